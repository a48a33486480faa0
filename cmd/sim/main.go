// SPDX-License-Identifier: GPL-3.0

// Command sim runs the configured parameter sweep (§6/§7): it loads
// config.txt from the working directory, runs one Simulation per
// resolved Scenario (seed innermost), and writes results.txt, sim.log
// and metrics.prom before exiting. It replaces the original main.go's
// single fixed sender/receiver/iface/delay pipeline run once; this
// driver wires a fresh terminal population per sweep point and
// aggregates across all of them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/wlansim/wlansim/internal/config"
	"github.com/wlansim/wlansim/internal/logging"
	"github.com/wlansim/wlansim/internal/metrics"
	"github.com/wlansim/wlansim/internal/results"
	"github.com/wlansim/wlansim/internal/simulation"
)

// defaultConfigDir is the compiled-in default directory (§6: "Default
// directory is compiled in").
const defaultConfigDir = "."

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sim:", err)
		os.Exit(1)
	}
}

func run() error {
	noPause := pflag.Bool("no_pause", false, "exit immediately instead of waiting for a keypress on completion")

	// "--<dirname>" (§6) names the working directory as the flag itself,
	// so it can't be declared ahead of time like --no_pause; pull it out
	// of argv before handing the rest to pflag.
	dir, rest := extractDirFlag(os.Args[1:])
	if err := pflag.CommandLine.Parse(rest); err != nil {
		return err
	}
	if dir == "" {
		dir = defaultConfigDir
	}

	runID := uuid.New().String()

	k, err := config.Load(dir + "/config.txt")
	if err != nil {
		return err
	}
	scenarios, err := config.BuildSweep(k)
	if err != nil {
		return err
	}

	var logW *os.File
	anyLog := false
	for _, sc := range scenarios {
		if len(sc.LogCategories) > 0 {
			anyLog = true
			break
		}
	}
	if anyLog {
		logW, err = os.Create(dir + "/sim.log")
		if err != nil {
			return err
		}
		defer logW.Close()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	out, err := os.Create(dir + "/results.txt")
	if err != nil {
		return err
	}
	defer out.Close()
	writer := results.New(out, runID)

	for _, sc := range scenarios {
		loggers := logging.Discard()
		if logW != nil {
			loggers = logging.New(logW, sc.LogCategories)
		}
		sim := simulation.New(sc, loggers)
		if err := sim.Run(); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Label, err)
		}
		writer.WriteIteration(sim)
		results.Collect(collector, sim, sc.Label)
	}
	writer.WriteSummary()

	if err := metrics.WriteTo(reg, dir+"/metrics.prom"); err != nil {
		return err
	}

	if !*noPause {
		fmt.Fprintln(os.Stderr, "done; press enter to exit")
		fmt.Scanln()
	}
	return nil
}

// extractDirFlag splits a "--<dirname>" argument out of args, returning
// the directory name and the remaining arguments for pflag to parse.
func extractDirFlag(args []string) (dir string, rest []string) {
	for _, a := range args {
		if a != "--no_pause" && strings.HasPrefix(a, "--") {
			dir = strings.TrimPrefix(a, "--")
			continue
		}
		rest = append(rest, a)
	}
	return dir, rest
}
