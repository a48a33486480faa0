// SPDX-License-Identifier: GPL-3.0

// Package simtime provides the simulator's fixed-point virtual clock and the
// process-wide monotonic ID generators for packets and events.
package simtime

import (
	"fmt"
	"math"
)

// Tick is the simulator's time resolution: 0.4 microseconds.
const Tick = 400 * 1e-9 // seconds per tick, as a float64 for conversions

// Timestamp is a non-negative count of Ticks since the start of an
// iteration. It never goes negative and traps on overflow.
type Timestamp uint64

// Max is the largest representable Timestamp.
const Max = Timestamp(math.MaxUint64)

// FromSeconds truncates (lossily) a floating point seconds value to a
// Timestamp.
func FromSeconds(sec float64) Timestamp {
	if sec < 0 {
		panic("simtime: negative seconds")
	}
	return Timestamp(sec / Tick)
}

// Seconds converts back to floating point seconds, lossily.
func (t Timestamp) Seconds() float64 {
	return float64(t) * Tick
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%.9f", t.Seconds())
}

// Add returns t+d, panicking on overflow (TimestampOverflow, §7).
func (t Timestamp) Add(d Timestamp) Timestamp {
	r := t + d
	if r < t {
		panic("simtime: timestamp overflow")
	}
	return r
}

// Sub returns t-d. Negative results are a programming error: timestamps
// never go negative, so this traps rather than wrapping.
func (t Timestamp) Sub(d Timestamp) Timestamp {
	if d > t {
		panic("simtime: timestamp underflow")
	}
	return t - d
}

// Before reports whether t is strictly earlier than o.
func (t Timestamp) Before(o Timestamp) bool { return t < o }

// After reports whether t is strictly later than o.
func (t Timestamp) After(o Timestamp) bool { return t > o }

// idGen is a monotonically-increasing 64-bit ID generator. One is created
// per Simulation iteration so IDs are stable for the life of a run but reset
// between iterations (§3 Lifecycle; §9 "replace statics with per-run
// counters").
type idGen struct {
	next uint64
}

// newIDGen returns an idGen starting at 0.
func newIDGen() *idGen {
	return &idGen{}
}

// nextID returns the next ID and advances the generator.
func (g *idGen) nextID() uint64 {
	id := g.next
	g.next++
	return id
}

// PacketID is a process-wide (per-iteration) unique packet identifier.
type PacketID uint64

// EventID is a process-wide (per-iteration) unique event identifier.
type EventID uint64

// PacketIDGen issues monotonically-increasing PacketIDs.
type PacketIDGen struct{ g idGen }

// NewPacketIDGen returns a fresh generator starting at 0.
func NewPacketIDGen() *PacketIDGen { return &PacketIDGen{} }

// Next returns the next PacketID.
func (g *PacketIDGen) Next() PacketID { return PacketID(g.g.nextID()) }

// EventIDGen issues monotonically-increasing EventIDs.
type EventIDGen struct{ g idGen }

// NewEventIDGen returns a fresh generator starting at 0.
func NewEventIDGen() *EventIDGen { return &EventIDGen{} }

// Next returns the next EventID.
func (g *EventIDGen) Next() EventID { return EventID(g.g.nextID()) }
