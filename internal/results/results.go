// SPDX-License-Identifier: GPL-3.0

// Package results writes results.txt (§6/§7): per-iteration parameter
// echo plus a per-terminal metrics table, followed at end-of-sweep by
// each metric's mean and confidence interval across seeds. It also
// populates the Prometheus collectors dumped to metrics.prom. The table
// layout follows xplot.go in spirit (a plain per-run summary written
// alongside the binary's working directory) rather than its
// gnuplot-oriented format, since results.txt is read by a human or a
// downstream script, not plotted directly.
package results

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/wlansim/wlansim/internal/metrics"
	"github.com/wlansim/wlansim/internal/simulation"
	"github.com/wlansim/wlansim/internal/stats"
	"github.com/wlansim/wlansim/internal/terminal"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/wire"
)

// Writer accumulates per-iteration output and the cross-seed statistics
// needed for the final summary.
type Writer struct {
	w     io.Writer
	runID string

	groupOrder []string
	groups     map[string]map[string]*stats.Accumulator
}

// New returns a Writer that writes to w, stamping runID in the header.
func New(w io.Writer, runID string) *Writer {
	fmt.Fprintf(w, "# run %s\n", runID)
	return &Writer{
		w:      w,
		groups: make(map[string]map[string]*stats.Accumulator),
	}
}

// WriteIteration writes one sweep point's parameter echo and per-terminal
// metrics table, and folds its metrics into the cross-seed accumulators.
func (wr *Writer) WriteIteration(sim *simulation.Simulation) {
	fmt.Fprintf(wr.w, "\n## %s (%s)\n", sim.Label(), sim.StandardName())
	fmt.Fprintf(wr.w, "%-10s %-16s %-6s %10s %14s %10s %10s %10s %8s %8s %10s %8s %10s\n",
		"terminal", "position", "ac", "dist_m", "bytes", "packets", "xfer_s", "tx_s", "loss", "ovfl", "queue", "rate", "power_dbm")

	groupKey := stripSeed(sim.Label())
	group, ok := wr.groups[groupKey]
	if !ok {
		group = make(map[string]*stats.Accumulator)
		wr.groups[groupKey] = group
		wr.groupOrder = append(wr.groupOrder, groupKey)
	}

	apPos := make(map[wire.TerminalID]topology.Point)
	for _, ap := range sim.APs {
		apPos[ap.ID()] = ap.Position()
	}

	elapsedSec := sim.ElapsedSec()
	for _, ap := range sim.APs {
		wr.writeRow(ap, "-", 0, elapsedSec, group)
	}
	for _, st := range sim.Stations {
		dist := topology.Distance(st.Term.Position(), apPos[st.AP.ID()])
		wr.writeRow(st.Term, st.AC.String(), dist, elapsedSec, group)
	}
}

func (wr *Writer) writeRow(t *terminal.Terminal, ac string, distM, elapsedSec float64, group map[string]*stats.Accumulator) {
	rate, _ := t.MeanTxMode()
	power, _ := t.MeanPowerDBm(elapsedSec)
	fmt.Fprintf(wr.w, "%-10d (%-6.1f,%-6.1f) %-6s %10.1f %14d %10d %10.4f %10.4f %8.4f %8.4f %10.2f %8.2f %10.2f\n",
		t.ID(), t.Position().X, t.Position().Y, ac, distM,
		t.BytesDelivered(), t.PacketsDelivered(),
		t.TransferDelay().Mean(), t.TransmissionDelay().Mean(),
		t.LossRate(), t.OverflowRate(), t.QueueLength().Mean(), rate, power)

	prefix := fmt.Sprintf("%d:", t.ID())
	acc(group, prefix+"bytes").Add(float64(t.BytesDelivered()))
	acc(group, prefix+"packets").Add(float64(t.PacketsDelivered()))
	acc(group, prefix+"xfer_s").Add(t.TransferDelay().Mean())
	acc(group, prefix+"tx_s").Add(t.TransmissionDelay().Mean())
	acc(group, prefix+"loss").Add(t.LossRate())
	acc(group, prefix+"ovfl").Add(t.OverflowRate())
	acc(group, prefix+"queue").Add(t.QueueLength().Mean())
	acc(group, prefix+"rate").Add(rate)
	if !math.IsInf(power, -1) {
		acc(group, prefix+"power_dbm").Add(power)
	}
}

func acc(group map[string]*stats.Accumulator, key string) *stats.Accumulator {
	a, ok := group[key]
	if !ok {
		a = &stats.Accumulator{}
		group[key] = a
	}
	return a
}

// WriteSummary writes each group's (every sweep point except the seed
// dimension) per-metric mean and 95% confidence interval across seeds.
func (wr *Writer) WriteSummary() {
	fmt.Fprintf(wr.w, "\n## summary (mean ± CI across seeds)\n")
	for _, gk := range wr.groupOrder {
		fmt.Fprintf(wr.w, "\n# %s\n", gk)
		group := wr.groups[gk]
		keys := make([]string, 0, len(group))
		for k := range group {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a := group[k]
			fmt.Fprintf(wr.w, "%-24s mean=%12.4f ci95=±%10.4f n=%d\n", k, a.Mean(), a.ConfidenceWidth(0.95), a.N())
		}
	}
}

// stripSeed removes the "Seed=<value>" component from a sweep label, so
// every seed of the same otherwise-identical scenario groups together.
func stripSeed(label string) string {
	parts := strings.Split(label, ";")
	kept := parts[:0]
	for _, p := range parts {
		if strings.HasPrefix(p, "Seed=") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ";")
}

// Collect populates collector's Prometheus metrics from sim's terminals,
// labeled by scenario.
func Collect(collector *metrics.Collector, sim *simulation.Simulation, scenarioLabel string) {
	apPos := make(map[wire.TerminalID]topology.Point)
	for _, ap := range sim.APs {
		apPos[ap.ID()] = ap.Position()
	}
	for _, ap := range sim.APs {
		collectTerminal(collector, ap, scenarioLabel)
	}
	for _, st := range sim.Stations {
		collectTerminal(collector, st.Term, scenarioLabel)
		if la := st.Term.LinkAdaptFor(st.AP.ID()); la != nil {
			collector.CurrentMode.WithLabelValues(fmt.Sprint(st.Term.ID()), st.AC.String(), scenarioLabel).Set(float64(la.RawMode()))
		}
	}
}

func collectTerminal(collector *metrics.Collector, t *terminal.Terminal, scenarioLabel string) {
	id := fmt.Sprint(t.ID())
	collector.BytesDelivered.WithLabelValues(id, scenarioLabel).Add(float64(t.BytesDelivered()))
	collector.PacketsDelivered.WithLabelValues(id, scenarioLabel).Add(float64(t.PacketsDelivered()))
	collector.PacketsDropped.WithLabelValues(id, "queue", scenarioLabel).Add(float64(t.PacketsDroppedQueue()))
	collector.PacketsDropped.WithLabelValues(id, "retries", scenarioLabel).Add(float64(t.PacketsDroppedRetries()))
	collector.TransferDelay.WithLabelValues(id, scenarioLabel).Observe(t.TransferDelay().Mean())
	collector.QueueLength.WithLabelValues(id, scenarioLabel).Set(t.QueueLength().Mean())
	collector.RadiatedEnergy.WithLabelValues(id, scenarioLabel).Set(t.PHY().EnergyMwSec())
}
