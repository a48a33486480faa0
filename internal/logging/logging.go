// SPDX-License-Identifier: GPL-3.0

// Package logging provides the category-tagged loggers selected by
// config.txt's Log key (§6): SETUP, PHY, MAC, CHANNEL, TRAFFIC, ADAPT,
// DEBUG. It replaces log.go's single log.Printf-with-timestamp helper
// with one charmbracelet/log logger per category, each carrying the
// simulated clock and terminal ID the way logf prefixed them onto every
// line; a category absent from Log writes to io.Discard so the cost of
// a disabled category is one no-op Write.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/wire"
)

// Category names a sim.log category, as listed in config.txt's Log key (§6).
type Category string

const (
	Setup   Category = "SETUP"
	PHY     Category = "PHY"
	MAC     Category = "MAC"
	Channel Category = "CHANNEL"
	Traffic Category = "TRAFFIC"
	Adapt   Category = "ADAPT"
	Debug   Category = "DEBUG"
)

var allCategories = []Category{Setup, PHY, MAC, Channel, Traffic, Adapt, Debug}

// Loggers holds one *log.Logger per category, writing to w for an
// enabled category and to io.Discard otherwise.
type Loggers struct {
	byCategory map[Category]*log.Logger
}

// New builds a Loggers set. enabled is the set of category names from
// config.txt's Log key, keyed by upper-case name (config.BuildSweep
// upper-cases them); w is the destination for
// enabled categories (typically an open sim.log file).
func New(w io.Writer, enabled map[string]bool) *Loggers {
	l := &Loggers{byCategory: make(map[Category]*log.Logger, len(allCategories))}
	for _, c := range allCategories {
		dest := io.Discard
		if enabled[strings.ToUpper(string(c))] {
			dest = w
		}
		logger := log.NewWithOptions(dest, log.Options{
			ReportTimestamp: false,
			Prefix:          string(c),
		})
		l.byCategory[c] = logger
	}
	return l
}

// Discard returns a Loggers set with every category silenced, for
// sweep points with no Log key configured.
func Discard() *Loggers {
	return New(io.Discard, nil)
}

// Stderr returns a Loggers set with every category enabled to stderr,
// useful for ad hoc debugging of a single scenario.
func Stderr() *Loggers {
	enabled := make(map[string]bool, len(allCategories))
	for _, c := range allCategories {
		enabled[string(c)] = true
	}
	return New(os.Stderr, enabled)
}

// For returns the logger for category c.
func (l *Loggers) For(c Category) *log.Logger { return l.byCategory[c] }

// Logf writes one line to category c's logger, tagged with the
// simulated clock and terminal ID the way logf tagged every line with
// (Clock, nodeID).
func (l *Loggers) Logf(c Category, now simtime.Timestamp, id wire.TerminalID, format string, a ...any) {
	logger := l.byCategory[c]
	if logger == nil {
		return
	}
	logger.Infof("%s [%d]: "+format, append([]any{now, int(id)}, a...)...)
}
