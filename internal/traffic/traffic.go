// SPDX-License-Identifier: GPL-3.0

// Package traffic generates MSDUs at configured inter-arrival times and
// enqueues them into a MAC (§4.6). The pmf-sampling shape (discrete
// cumulative distribution, draw u, walk until the running sum exceeds it)
// is the same kind of table-driven sampling the RNG package already
// exposes via Pick; PacketLength here needs weighted rather than uniform
// sampling, so it keeps its own small sampler.
package traffic

import (
	"fmt"

	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// Arrival selects the inter-arrival process (§4.6, §6 ArrivalTime).
type Arrival int

const (
	Constant Arrival = iota
	Exponential
)

// PacketLengthEntry is one (length,probability) pair of a discrete packet
// length distribution (§6 PacketLength).
type PacketLengthEntry struct {
	Bytes wlanunits.Bytes
	Prob  float64
}

// PacketLength samples a frame size from a discrete pmf.
type PacketLength struct {
	entries []PacketLengthEntry
}

// NewPacketLength returns a PacketLength sampler for the given pmf, which
// must sum to 1 (§6).
func NewPacketLength(entries []PacketLengthEntry) *PacketLength {
	return &PacketLength{entries: entries}
}

// Sample draws a packet length, in bytes.
func (p *PacketLength) Sample(r *rng.RNG) wlanunits.Bytes {
	if len(p.entries) == 0 {
		return 0
	}
	u := r.Float64()
	sum := 0.0
	for _, e := range p.entries {
		sum += e.Prob
		if u <= sum {
			return e.Bytes
		}
	}
	return p.entries[len(p.entries)-1].Bytes
}

// MeanBits returns the pmf's mean frame size in bits, used to derive
// packets-per-second from an offered data rate (§4.6).
func (p *PacketLength) MeanBits() float64 {
	mean := 0.0
	for _, e := range p.entries {
		mean += e.Prob * float64(e.Bytes.Bits())
	}
	return mean
}

// Sink receives generated MSDUs, normally a MAC (§4.6
// "call MAC.macUnitdataReq").
type Sink interface {
	MacUnitdataReq(now simtime.Timestamp, msdu *wire.MSDU) int
}

// Config holds one Traffic generator's static parameters (§6).
type Config struct {
	DataRateBps  wlanunits.Bitrate
	PacketLength *PacketLength
	Arrival      Arrival
	Source       wire.TerminalID
	Target       wire.TerminalID
	TID          int
}

// Traffic generates MSDUs for one connection and enqueues them into sink.
type Traffic struct {
	cfg    Config
	sched  *event.Scheduler
	rng    *rng.RNG
	sink   Sink
	pktIDs *simtime.PacketIDGen

	rateHz float64
}

// New returns a new Traffic generator. packs_per_sec is derived once from
// the configured data rate and the pmf's mean frame size (§4.6).
func New(cfg Config, sched *event.Scheduler, r *rng.RNG, sink Sink, pktIDs *simtime.PacketIDGen) *Traffic {
	meanBits := cfg.PacketLength.MeanBits()
	rate := 0.0
	if meanBits > 0 {
		rate = cfg.DataRateBps.Bps() / meanBits
	}
	return &Traffic{cfg: cfg, sched: sched, rng: r, sink: sink, pktIDs: pktIDs, rateHz: rate}
}

// Start schedules the first arrival (§4.6): U[0,1/rate) for CONSTANT,
// Exp(rate) for EXP.
func (t *Traffic) Start(now simtime.Timestamp) {
	if t.rateHz <= 0 {
		return
	}
	var first float64
	switch t.cfg.Arrival {
	case Constant:
		first = t.rng.Uniform(0, 1/t.rateHz)
	case Exponential:
		first = t.rng.Exponential(t.rateHz)
	}
	at := now.Add(simtime.FromSeconds(first))
	t.sched.Schedule(at, uint64(t.cfg.Source), t.tag(), func(fireNow simtime.Timestamp) { t.fire(fireNow) })
}

func (t *Traffic) tag() string {
	return fmt.Sprintf("traffic:%d:%d", t.cfg.Source, t.cfg.Target)
}

// fire generates one MSDU, enqueues it, and schedules the next arrival.
func (t *Traffic) fire(now simtime.Timestamp) {
	msdu := &wire.MSDU{
		ID:          t.pktIDs.Next(),
		NBytesData:  t.cfg.PacketLength.Sample(t.rng),
		TID:         t.cfg.TID,
		Source:      t.cfg.Source,
		Target:      t.cfg.Target,
		TimeCreated: now,
	}
	t.sink.MacUnitdataReq(now, msdu)

	var next float64
	switch t.cfg.Arrival {
	case Constant:
		next = 1 / t.rateHz
	case Exponential:
		next = t.rng.Exponential(t.rateHz)
	}
	at := now.Add(simtime.FromSeconds(next))
	t.sched.Schedule(at, uint64(t.cfg.Source), t.tag(), func(fireNow simtime.Timestamp) { t.fire(fireNow) })
}
