// SPDX-License-Identifier: GPL-3.0

// Package channel implements the shared radio medium (§4.2): in-flight
// frame tracking with interference accumulation, path loss (long-term mean
// plus Rayleigh fading on active links), and busy/free carrier-sense
// notifications.
package channel

import (
	"fmt"
	"math"

	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/wire"
)

// Subscriber is the interface a PHY presents to the Channel for delivery
// and carrier-sense notifications. Cross-references are non-owning per
// §3/§9: the Channel holds Subscriber handles for the life of the
// iteration only.
type Subscriber interface {
	TerminalID() wire.TerminalID
	// CheckCCABusy is called when the channel's interference may have
	// crossed this subscriber's CCA sensitivity while it is waiting for a
	// busy transition. It returns true if the subscriber went busy (and
	// should be unsubscribed from busy notifications).
	CheckCCABusy(now simtime.Timestamp, interfDBm float64) bool
	// CheckCCAFree is the free-transition counterpart of CheckCCABusy.
	CheckCCAFree(now simtime.Timestamp, interfDBm float64) bool
	// Receive delivers a finished frame. interfMaxMw is the peak
	// interference (mW) observed at this receiver over the frame's
	// duration, or 0 for an overheard (non-addressed) delivery under
	// SendAll.
	Receive(frame *Frame, pathLossDB float64, interfMaxMw float64)
}

// Frame is an in-flight (or just-finished) MPDU tracked by the Channel.
type Frame struct {
	ID         simtime.PacketID
	Source     wire.TerminalID
	Target     wire.TerminalID
	PowerDBm   float64
	Duration   simtime.Timestamp
	Start      simtime.Timestamp
	Payload   any
	Broadcast bool    // delivered via SendAll
	Interf    float64 // mW, current
	InterfMax float64 // mW, peak observed
}

type linkKey struct{ a, b wire.TerminalID }

func key(a, b wire.TerminalID) linkKey {
	if a <= b {
		return linkKey{a, b}
	}
	return linkKey{b, a}
}

type pathLossEntry struct {
	link   *Link // nil if not an active fading link
	meanDB float64
}

// Config holds the channel's propagation parameters (§6).
type Config struct {
	RefLossDB       float64
	LossExponent    float64
	DopplerSpreadHz float64
	NumberSinus     int
}

// Channel is the shared medium for one simulation iteration.
type Channel struct {
	cfg   Config
	sched *event.Scheduler
	rng   *rng.RNG

	positions map[wire.TerminalID]topology.Point
	subs      map[wire.TerminalID]Subscriber
	pathLoss  map[linkKey]*pathLossEntry
	airPack   []*Frame

	waitingBusy []Subscriber
	waitingFree []Subscriber

	nextStopID uint64
}

// New returns a new Channel wired to sched for scheduling stop-send events
// and r for seeding new fading Links.
func New(cfg Config, sched *event.Scheduler, r *rng.RNG) *Channel {
	return &Channel{
		cfg:       cfg,
		sched:     sched,
		rng:       r,
		positions: make(map[wire.TerminalID]topology.Point),
		subs:      make(map[wire.TerminalID]Subscriber),
		pathLoss:  make(map[linkKey]*pathLossEntry),
	}
}

// meanPathLossDB computes the long-term mean path loss for a distance
// (§4.2: RefLoss_dB + 10*LossExponent*log10(distance_m)).
func (c *Channel) meanPathLossDB(distanceM float64) float64 {
	if distanceM <= 0 {
		distanceM = 1e-3
	}
	return c.cfg.RefLossDB + 10*c.cfg.LossExponent*math.Log10(distanceM)
}

// register adds id (at pos, with subscriber sub) to term_list if unknown,
// computing long-term path loss to every already-registered PHY.
func (c *Channel) register(id wire.TerminalID, pos topology.Point, sub Subscriber) {
	if _, ok := c.positions[id]; ok {
		return
	}
	for other, otherPos := range c.positions {
		d := topology.Distance(pos, otherPos)
		c.pathLoss[key(id, other)] = &pathLossEntry{meanDB: c.meanPathLossDB(d)}
	}
	c.positions[id] = pos
	c.subs[id] = sub
}

// NewLink registers a and b (if unknown) and ensures (a,b) has an active
// fading Link, per §4.2's Registration algorithm.
func (c *Channel) NewLink(now simtime.Timestamp, a, b wire.TerminalID, posA, posB topology.Point, subA, subB Subscriber) {
	c.register(a, posA, subA)
	c.register(b, posB, subB)

	k := key(a, b)
	entry, ok := c.pathLoss[k]
	if !ok {
		d := topology.Distance(posA, posB)
		entry = &pathLossEntry{meanDB: c.meanPathLossDB(d)}
		c.pathLoss[k] = entry
	}
	if entry.link != nil {
		return
	}
	l := NewLink(c.cfg.NumberSinus, c.cfg.DopplerSpreadHz, entry.meanDB, c.rng)
	entry.link = l
	entry.meanDB = l.Fade(now)
}

// GetPathLossDB returns the channel's current understanding of path loss
// between a and b (fading-updated if active, otherwise the long-term
// mean).
func (c *Channel) GetPathLossDB(now simtime.Timestamp, a, b wire.TerminalID) float64 {
	entry, ok := c.pathLoss[key(a, b)]
	if !ok {
		return math.Inf(1)
	}
	if entry.link != nil {
		return entry.link.Fade(now)
	}
	return entry.meanDB
}

// dBmToMw converts a dBm value to milliwatts.
func dBmToMw(dBm float64) float64 {
	return math.Pow(10, dBm/10)
}

// GetInterfDBm returns the dB of the maximum single-contributor
// interference currently observed at id: for every in-flight frame,
// regardless of who it targets, what its own source's transmit power would
// measure at id's location via the current path loss. This is "what would
// any current transmitter's signal measure here," not the interference
// accumulated at id's own inbound frames — a subscriber sensing the medium
// before transmitting is virtually never the target of the traffic it
// needs to sense. Preserves the source's documented design choice (§4.2,
// §9): max of contributors, not their sum.
func (c *Channel) GetInterfDBm(now simtime.Timestamp, id wire.TerminalID) float64 {
	max := math.Inf(-1)
	for _, f := range c.airPack {
		candidate := f.PowerDBm - c.GetPathLossDB(now, f.Source, id)
		if candidate > max {
			max = candidate
		}
	}
	return max
}

// SubscribeBusy registers sub to be notified the next time the medium
// becomes busy at its location.
func (c *Channel) SubscribeBusy(sub Subscriber) {
	c.waitingBusy = append(c.waitingBusy, sub)
}

// SubscribeFree registers sub to be notified the next time the medium
// becomes free at its location.
func (c *Channel) SubscribeFree(sub Subscriber) {
	c.waitingFree = append(c.waitingFree, sub)
}

// Send transmits frame, either to only its Target (all=false) or to every
// registered PHY except the source (all=true), per §4.2 "Transmission".
func (c *Channel) Send(now simtime.Timestamp, frame *Frame, all bool) {
	frame.Broadcast = all
	frame.Start = now

	for _, q := range c.airPack {
		// q's interference from the new frame.
		mw := dBmToMw(frame.PowerDBm - c.GetPathLossDB(now, frame.Source, q.Target))
		if frame.Source == q.Target {
			q.Interf = math.Inf(1)
			q.InterfMax = math.Inf(1)
		} else {
			q.Interf += mw
			if q.Interf > q.InterfMax {
				q.InterfMax = q.Interf
			}
		}
		// the new frame's interference from q.
		mw2 := dBmToMw(q.PowerDBm - c.GetPathLossDB(now, q.Source, frame.Target))
		if q.Target == frame.Target {
			frame.Interf = math.Inf(1)
			frame.InterfMax = math.Inf(1)
		} else {
			frame.Interf += mw2
			if frame.Interf > frame.InterfMax {
				frame.InterfMax = frame.Interf
			}
		}
	}

	c.airPack = append(c.airPack, frame)

	if c.cfg.DopplerSpreadHz > 0 {
		c.GetPathLossDB(now, frame.Source, frame.Target)
	}

	id := frame.ID
	c.sched.Schedule(now.Add(frame.Duration), 0, fmt.Sprintf("stop_send:%d", id), func(fireNow simtime.Timestamp) {
		c.stopSend(fireNow, id)
	})

	c.notifyBusy(now)
}

// notifyBusy delivers a busy-channel check to every subscriber on the busy
// waiting list, removing those that signal they went busy (§4.2 step 5).
func (c *Channel) notifyBusy(now simtime.Timestamp) {
	var remaining []Subscriber
	for _, sub := range c.waitingBusy {
		interfDBm := c.GetInterfDBm(now, sub.TerminalID())
		if sub.CheckCCABusy(now, interfDBm) {
			continue
		}
		remaining = append(remaining, sub)
	}
	c.waitingBusy = remaining
}

// notifyFree is the free-transition counterpart of notifyBusy.
func (c *Channel) notifyFree(now simtime.Timestamp) {
	var remaining []Subscriber
	for _, sub := range c.waitingFree {
		interfDBm := c.GetInterfDBm(now, sub.TerminalID())
		if sub.CheckCCAFree(now, interfDBm) {
			continue
		}
		remaining = append(remaining, sub)
	}
	c.waitingFree = remaining
}

// stopSend finds the frame with the given id and ends its airtime (§4.2
// "End of airtime").
func (c *Channel) stopSend(now simtime.Timestamp, id simtime.PacketID) {
	idx := -1
	for i, f := range c.airPack {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("channel: protocol invariant violated: frame %d absent from air_pack at stop_send", id))
	}
	f := c.airPack[idx]

	if targetSub, ok := c.subs[f.Target]; ok {
		pl := c.GetPathLossDB(now, f.Source, f.Target)
		targetSub.Receive(f, pl, f.InterfMax)
	}
	if f.Broadcast {
		for id, sub := range c.subs {
			if id == f.Target || id == f.Source {
				continue
			}
			pl := c.GetPathLossDB(now, f.Source, id)
			sub.Receive(f, pl, 0)
		}
	}

	c.airPack = append(c.airPack[:idx], c.airPack[idx+1:]...)

	for _, q := range c.airPack {
		if math.IsInf(q.Interf, 1) {
			continue
		}
		mw := dBmToMw(f.PowerDBm - c.GetPathLossDB(now, f.Source, q.Target))
		q.Interf -= mw
		if q.Interf < 0 {
			q.Interf = 0
		}
	}

	c.notifyFree(now)
}
