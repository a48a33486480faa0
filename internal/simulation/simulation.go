// SPDX-License-Identifier: GPL-3.0

// Package simulation is the arena (§9 Design Notes): it owns the
// Channel, the RNG, the Scheduler and every Terminal for exactly one
// sweep point, constructed at iteration start and released once the
// Scheduler returns, before the next iteration reseeds (§3 Lifecycle).
// It plays the role sim.go plays for a single TCP/AQM run, generalized
// to the access-point/station population a Scenario describes instead
// of one fixed sender/receiver pair.
package simulation

import (
	"math"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/config"
	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/logging"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/terminal"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// Station pairs a mobile station's Terminal with the AP it associates
// with and the access category its traffic was sampled into (§6
// ppAC_BK/BE/VI/VO/Legacy).
type Station struct {
	Term *terminal.Terminal
	AP   *terminal.Terminal
	AC   mac.AC
}

// Simulation is one constructed, runnable instance of a Scenario.
type Simulation struct {
	scenario *config.Scenario
	loggers  *logging.Loggers

	rng    *rng.RNG
	sched  *event.Scheduler
	ch     *channel.Channel
	pktIDs *simtime.PacketIDGen

	APs      []*terminal.Terminal
	Stations []*Station

	sampleEvery simtime.Timestamp
}

// New constructs every terminal, channel link and traffic flow a Scenario
// describes, but does not advance the clock. Callers run it with Run.
func New(sc *config.Scenario, loggers *logging.Loggers) *Simulation {
	if loggers == nil {
		loggers = logging.Discard()
	}
	s := &Simulation{
		scenario: sc,
		loggers:  loggers,
		rng:      rng.New(sc.Seed),
		sched:    event.New(),
		pktIDs:   simtime.NewPacketIDGen(),
	}
	s.sched.Init()
	s.ch = channel.New(channel.Config{
		RefLossDB:       sc.Channel.RefLossDB,
		LossExponent:    sc.Channel.LossExponent,
		DopplerSpreadHz: sc.Channel.DopplerSpreadHz,
		NumberSinus:     sc.Channel.NumberSinus,
	}, s.sched, s.rng)

	s.loggers.Logf(logging.Setup, s.sched.Now(), 0, "building scenario %s: %d AP(s), %d station(s)", sc.Label, sc.NumberAPs, sc.NumberStas)
	s.buildAPs()
	s.buildStations()
	s.loggers.Logf(logging.Setup, s.sched.Now(), 0, "scenario built: %d terminal(s) registered", len(s.APs)+len(s.Stations))
	s.sampleEvery = simtime.FromSeconds(0.1)
	if sc.TempOutputInterval > 0 && sc.TempOutputInterval < s.sampleEvery {
		s.sampleEvery = sc.TempOutputInterval
	}
	return s
}

func (s *Simulation) phyConfig() phy.Config {
	return phy.Config{
		Standard:          s.scenario.Standard,
		CCASensitivityDBm: s.scenario.PHYCfg.CCASensitivityDBm,
		NoiseVarianceDBm:  s.scenario.PHYCfg.NoiseVarianceDBm,
	}
}

func (s *Simulation) macConfig() mac.Config {
	return mac.Config{
		Standard:               s.scenario.Standard,
		RTSThreshold:           s.scenario.RTSThreshold,
		RetryLimit:             s.scenario.RetryLimit,
		FragmentationThreshold: s.scenario.FragmentationThreshold,
		QueueSize:              s.scenario.QueueSize,
		SetBAAgg:               s.scenario.SetBAAgg,
	}
}

func (s *Simulation) linkAdaptConfig() linkadapt.Config {
	return linkadapt.Config{
		Policy:        s.scenario.LAPolicy,
		Metric:        s.scenario.LAMetric,
		FixedMode:     s.scenario.FixedMode,
		PMin:          s.scenario.PMin,
		PMax:          s.scenario.PMax,
		PStepUp:       s.scenario.PStepUp,
		PStepDown:     s.scenario.PStepDown,
		TargetPER:     s.scenario.TargetPER,
		MaxSucceed:    s.scenario.LAMaxSucceed,
		FailLimit:     s.scenario.LAFailLimit,
		UseRxMode:     s.scenario.UseRxMode,
		AdaptLAThresh: s.scenario.AdaptLAThresh,
		Standard:      s.scenario.Standard,
	}
}

func (s *Simulation) buildAPs() {
	n := s.scenario.NumberAPs
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		pos := topology.Point{}
		if len(s.scenario.APPositions) > 0 {
			pos = s.scenario.APPositions[i%len(s.scenario.APPositions)]
		}
		id := wire.TerminalID(i)
		t := terminal.New(id, pos, s.phyConfig(), s.macConfig(), s.scenario.TransientTime, s.sched, s.ch, s.rng, s.pktIDs)
		s.APs = append(s.APs, t)
	}
}

// buildStations places each station uniformly within Radius of its
// associated AP (round-robin association), samples its access category
// from ppAC_*, wires it to the channel and starts its bidirectional
// traffic (uplink scaled by UplinkFactor, downlink by DownlinkFactor).
func (s *Simulation) buildStations() {
	n := s.scenario.NumberStas
	for i := 0; i < n; i++ {
		ap := s.APs[i%len(s.APs)]
		pos := s.randomPointNear(ap.Position(), s.scenario.Radius)
		id := wire.TerminalID(len(s.APs) + i)
		t := terminal.New(id, pos, s.phyConfig(), s.macConfig(), s.scenario.TransientTime, s.sched, s.ch, s.rng, s.pktIDs)

		s.ch.NewLink(s.sched.Now(), ap.ID(), t.ID(), ap.Position(), t.Position(), ap.PHY(), t.PHY())

		ac := s.sampleAC()
		st := &Station{Term: t, AP: ap, AC: ac}
		s.Stations = append(s.Stations, st)

		t.AddLinkAdapt(ap.ID(), s.linkAdaptConfig())
		ap.AddLinkAdapt(t.ID(), s.linkAdaptConfig())

		baseRate := wlanunits.Bitrate(s.scenario.DataRateMbps) * wlanunits.Mbps

		t.StartTraffic(ap.ID(), traffic.Config{
			DataRateBps:  baseRate * wlanunits.Bitrate(s.scenario.UplinkFactor),
			PacketLength: traffic.NewPacketLength(s.scenario.PacketLength),
			Arrival:      s.scenario.Arrival,
			Source:       t.ID(),
			Target:       ap.ID(),
			TID:          int(ac),
		}, s.sched.Now(), s.sched, s.rng, s.pktIDs)

		ap.StartTraffic(t.ID(), traffic.Config{
			DataRateBps:  baseRate * wlanunits.Bitrate(s.scenario.DownlinkFactor),
			PacketLength: traffic.NewPacketLength(s.scenario.PacketLength),
			Arrival:      s.scenario.Arrival,
			Source:       ap.ID(),
			Target:       t.ID(),
			TID:          int(ac),
		}, s.sched.Now(), s.sched, s.rng, s.pktIDs)
	}
}

// randomPointNear samples a uniform point within radius of center, per
// §6 NumberStas/Radius: angle and radial distance are drawn independently,
// with the radius drawn as sqrt(U) so the resulting distribution is
// uniform over the disc's area rather than biased toward the center.
func (s *Simulation) randomPointNear(center topology.Point, radius float64) topology.Point {
	if radius <= 0 {
		return center
	}
	theta := s.rng.Uniform(0, 2*math.Pi)
	r := radius * math.Sqrt(s.rng.Float64())
	return topology.Point{X: center.X + r*math.Cos(theta), Y: center.Y + r*math.Sin(theta)}
}

// sampleAC draws one access category from ppAC_* via inverse-CDF sampling
// over the configured shares.
func (s *Simulation) sampleAC() mac.AC {
	u := s.rng.Float64()
	cum := 0.0
	for _, e := range s.scenario.PPAC {
		cum += e.Share
		if u <= cum {
			return e.AC
		}
	}
	return s.scenario.PPAC[len(s.scenario.PPAC)-1].AC
}

// Run advances the scheduler to MaxSimTime, periodically sampling each
// terminal's queue length (§3) along the way.
func (s *Simulation) Run() error {
	s.scheduleSampling()
	return s.sched.Run(s.scenario.MaxSimTime)
}

func (s *Simulation) scheduleSampling() {
	var tick func(now simtime.Timestamp)
	tick = func(now simtime.Timestamp) {
		for _, ap := range s.APs {
			ap.SampleQueueLength(now)
		}
		for _, st := range s.Stations {
			st.Term.SampleQueueLength(now)
		}
		next := now.Add(s.sampleEvery)
		if next <= s.scenario.MaxSimTime {
			s.sched.Schedule(next, 0, "sample", tick)
		}
	}
	s.sched.Schedule(s.sampleEvery, 0, "sample", tick)
}

// AllTerminals returns every AP and station Terminal, in the stable order
// used by results.txt output.
func (s *Simulation) AllTerminals() []*terminal.Terminal {
	all := make([]*terminal.Terminal, 0, len(s.APs)+len(s.Stations))
	all = append(all, s.APs...)
	for _, st := range s.Stations {
		all = append(all, st.Term)
	}
	return all
}

// Label identifies this run's sweep point, for results.txt/sim.log.
func (s *Simulation) Label() string { return s.scenario.Label }

// StandardName returns the configured IEEE 802.11 amendment's display name.
func (s *Simulation) StandardName() string {
	return s.scenario.Standard.String()
}

// ElapsedSec returns the configured MaxSimTime in seconds, the denominator
// results.Writer.WriteIteration uses to turn a terminal's accumulated
// radiated energy into a mean power (§6 "power").
func (s *Simulation) ElapsedSec() float64 {
	return s.scenario.MaxSimTime.Seconds()
}
