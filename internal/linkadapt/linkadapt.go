// SPDX-License-Identifier: GPL-3.0

// Package linkadapt implements per-link rate/power adaptation (§4.5): the
// fixed, OPT (genie, delegating to PHY oracles), and SUBOPT (ARF-style
// counter-based) policies. The counter/threshold state machine shape
// mirrors slowstart.go/ramp.go's congestion-control state machines (small
// integer counters compared against thresholds on every success/failure
// signal), generalized here to rate/power instead of window size.
package linkadapt

import (
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// Policy selects the adaptation strategy.
type Policy int

const (
	OPT Policy = iota
	SUBOPT
	Fixed
)

// Metric selects what SUBOPT adapts in response to ARF counters.
type Metric int

const (
	Rate Metric = iota
	Power
)

// defaultLowMobilitySucceedCounter and defaultHighMobilitySucceedCounter are
// the ARF enquiry-mode thresholds (§4.5 "failed()").
const (
	defaultLowMobilitySucceedCounter  = 10
	defaultHighMobilitySucceedCounter = 3
)

// Config holds a LinkAdapt instance's static configuration (§6).
type Config struct {
	Policy        Policy
	Metric        Metric
	FixedMode     standard.Mode
	PMin, PMax    float64
	PStepUp       float64
	PStepDown     float64
	TargetPER     float64
	MaxSucceed    int
	FailLimit     int
	UseRxMode     bool
	AdaptLAThresh bool
	Standard      standard.Standard
}

// LinkAdapt tracks one link's current mode/power and, for SUBOPT, its ARF
// counters (§4.5).
type LinkAdapt struct {
	cfg Config

	currentMode standard.Mode
	powerDBm    float64

	succeedCounter int
	failCounter    int
}

// New returns a new LinkAdapt starting at the bottom MCS and maximum power.
func New(cfg Config) *LinkAdapt {
	return &LinkAdapt{
		cfg:         cfg,
		currentMode: cfg.FixedMode,
		powerDBm:    cfg.PMax,
	}
}

// CurrentMode returns the link's current transmit Mode (§4.5).
func (l *LinkAdapt) CurrentMode(now simtime.Timestamp, p *phy.PHY, target wire.TerminalID, nbytes wlanunits.Bytes) standard.Mode {
	switch l.cfg.Policy {
	case Fixed:
		return standard.ClampMCS(l.cfg.Standard, l.cfg.FixedMode)
	case OPT:
		return p.OptMode(now, target, nbytes, l.cfg.TargetPER, l.powerDBm)
	default: // SUBOPT
		return standard.ClampMCS(l.cfg.Standard, l.currentMode)
	}
}

// Power returns the link's current transmit power in dBm (§4.5).
func (l *LinkAdapt) Power(now simtime.Timestamp, p *phy.PHY, target wire.TerminalID, nbytes wlanunits.Bytes) float64 {
	switch l.cfg.Policy {
	case Fixed:
		return l.cfg.PMax
	case OPT:
		mode := l.CurrentMode(now, p, target, nbytes)
		return p.OptPower(now, target, nbytes, l.cfg.TargetPER, mode, l.cfg.PMin, l.cfg.PMax, l.cfg.PStepUp)
	default: // SUBOPT
		return l.clampPower(l.powerDBm)
	}
}

func (l *LinkAdapt) clampPower(p float64) float64 {
	if p < l.cfg.PMin {
		return l.cfg.PMin
	}
	if p > l.cfg.PMax {
		return l.cfg.PMax
	}
	return p
}

// RawMode returns the ARF/fixed mode state without consulting a PHY oracle,
// for reporting a link's last-known rate without forcing an OPT lookup.
func (l *LinkAdapt) RawMode() standard.Mode { return l.currentMode }

// RawPower returns the tracked transmit power in dBm without consulting a
// PHY oracle, for reporting a link's last-known power.
func (l *LinkAdapt) RawPower() float64 { return l.powerDBm }

// Failed implements the SUBOPT ARF failure transition (§4.5 "failed()").
// It is a no-op under Fixed/OPT policies.
func (l *LinkAdapt) Failed() {
	if l.cfg.Policy != SUBOPT {
		return
	}
	l.failCounter++
	l.succeedCounter = 0

	if l.cfg.MaxSucceed == 0 {
		l.cfg.MaxSucceed = defaultLowMobilitySucceedCounter
	} else if l.cfg.AdaptLAThresh {
		l.cfg.MaxSucceed = defaultHighMobilitySucceedCounter
	}

	if l.failCounter >= l.cfg.FailLimit {
		if l.cfg.Metric == Rate || l.currentMode > 0 {
			if l.currentMode > 0 {
				l.currentMode--
			}
		} else {
			l.powerDBm = l.clampPower(l.powerDBm + l.cfg.PStepUp)
		}
		l.succeedCounter = 0
		l.failCounter = 0
	}
}

// RTSFailed is identical to Failed, meaningful only in Power adapt mode
// (§4.5 "rts_failed()").
func (l *LinkAdapt) RTSFailed() {
	l.Failed()
}

// Success implements the SUBOPT ARF success transition (§4.5 "success()").
// Only the last fragment of an MSDU advances the counters.
func (l *LinkAdapt) Success(lastFrag bool) {
	if l.cfg.Policy != SUBOPT || !lastFrag {
		return
	}
	l.succeedCounter++
	l.failCounter = 0

	if l.succeedCounter >= l.cfg.MaxSucceed {
		if l.cfg.Metric == Rate || l.powerDBm <= l.cfg.PMin {
			l.currentMode = standard.ClampMCS(l.cfg.Standard, l.currentMode+1)
		} else {
			l.powerDBm = l.clampPower(l.powerDBm - l.cfg.PStepDown)
		}
		if l.cfg.AdaptLAThresh {
			l.cfg.MaxSucceed = 0
		}
		l.succeedCounter = 0
	}
}

// RxSuccess implements the use_rx_mode jump (§4.5 "rx_success()"): if
// enabled and the peer's reported mode exceeds our current mode, jump to
// it and reset the ARF counters.
func (l *LinkAdapt) RxSuccess(rxMode standard.Mode) {
	if !l.cfg.UseRxMode || rxMode <= l.currentMode {
		return
	}
	l.currentMode = standard.ClampMCS(l.cfg.Standard, rxMode)
	l.succeedCounter = 0
	l.failCounter = 0
}
