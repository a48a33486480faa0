// SPDX-License-Identifier: GPL-3.0

// Package terminal implements Terminal (§3): the owner of exactly one PHY
// and one MAC, plus a Traffic/LinkAdapt pair per peer connection (an
// AccessPoint has many, a MobileStation has one). It is the concrete
// mac.Upstream and traffic.Sink: it resolves per-peer LinkAdapt instances
// and accumulates the per-terminal delivery counters that feed results.txt.
// The PHY/MAC mutual-construction cycle is resolved the same way the
// teacher's node/Handler wiring defers callback dispatch to a handler value
// assigned after both ends of a cross-reference exist (node.go): here a
// small adapter forwards phy.MACNotifiee calls to a *mac.MAC built after the
// PHY it is wired into.
package terminal

import (
	"math"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/stats"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wire"
)

// macAdapter forwards phy.MACNotifiee calls to a *mac.MAC that does not
// exist yet at PHY-construction time.
type macAdapter struct {
	get func() *mac.MAC
}

func (a macAdapter) PhyCCABusy(now simtime.Timestamp) { a.get().PhyCCABusy(now) }
func (a macAdapter) PhyCCAFree(now simtime.Timestamp) { a.get().PhyCCAFree(now) }
func (a macAdapter) PhyRxEndInd(now simtime.Timestamp, payload any, pathLossDB, interfMw float64) {
	a.get().PhyRxEndInd(now, payload, pathLossDB, interfMw)
}

// connection holds one peer's Traffic/LinkAdapt pair (§3). Traffic is nil
// for a connection that only receives (e.g. an AP's uplink-only STA before
// any downlink flow is configured).
type connection struct {
	la      *linkadapt.LinkAdapt
	traffic *traffic.Traffic
}

// Terminal is one simulated station or access point.
type Terminal struct {
	id        wire.TerminalID
	pos       topology.Point
	phy       *phy.PHY
	mac       *mac.MAC
	transient simtime.Timestamp

	conns map[wire.TerminalID]*connection

	bytesDelivered        uint64
	packetsDelivered      uint64
	packetsDroppedQueue   uint64
	packetsDroppedRetries uint64
	attemptedPackets      uint64

	transferDelay     stats.Accumulator
	transmissionDelay stats.Accumulator
	queueLength       stats.Accumulator
}

// New builds a Terminal's PHY and MAC and wires them to each other and to
// ch, then returns the Terminal. transientTime gates counter accumulation
// per §3 ("accumulate only after a configured transient time").
func New(id wire.TerminalID, pos topology.Point, phyCfg phy.Config, macCfg mac.Config, transientTime simtime.Timestamp, sched *event.Scheduler, ch *channel.Channel, r *rng.RNG, pktIDs *simtime.PacketIDGen) *Terminal {
	t := &Terminal{
		id: id, pos: pos, transient: transientTime,
		conns: make(map[wire.TerminalID]*connection),
	}
	var m *mac.MAC
	p := phy.New(id, phyCfg, ch, macAdapter{get: func() *mac.MAC { return m }}, r)
	m = mac.New(id, macCfg, sched, p, r, t, pktIDs)
	t.phy = p
	t.mac = m
	return t
}

// ID returns the terminal's identity.
func (t *Terminal) ID() wire.TerminalID { return t.id }

// Position returns the terminal's fixed location.
func (t *Terminal) Position() topology.Point { return t.pos }

// PHY returns the terminal's physical layer, for channel.NewLink wiring.
func (t *Terminal) PHY() *phy.PHY { return t.phy }

// MAC returns the terminal's MAC, mainly for queue-length sampling.
func (t *Terminal) MAC() *mac.MAC { return t.mac }

// AddLinkAdapt registers (or returns the existing) LinkAdapt this terminal
// uses toward peer (§3: "A Terminal owns ... LinkAdapt objects per
// connection").
func (t *Terminal) AddLinkAdapt(peer wire.TerminalID, cfg linkadapt.Config) *linkadapt.LinkAdapt {
	c := t.connFor(peer)
	if c.la == nil {
		c.la = linkadapt.New(cfg)
	}
	return c.la
}

// StartTraffic creates and starts a Traffic generator toward peer, using
// this Terminal as the traffic.Sink (§4.6).
func (t *Terminal) StartTraffic(peer wire.TerminalID, cfg traffic.Config, now simtime.Timestamp, sched *event.Scheduler, r *rng.RNG, pktIDs *simtime.PacketIDGen) *traffic.Traffic {
	c := t.connFor(peer)
	tr := traffic.New(cfg, sched, r, t, pktIDs)
	c.traffic = tr
	tr.Start(now)
	return tr
}

func (t *Terminal) connFor(peer wire.TerminalID) *connection {
	c, ok := t.conns[peer]
	if !ok {
		c = &connection{}
		t.conns[peer] = c
	}
	return c
}

// SampleQueueLength records the MAC's current total queue length as one
// queue-length sample (§3), if the transient period has elapsed.
func (t *Terminal) SampleQueueLength(now simtime.Timestamp) {
	if now < t.transient {
		return
	}
	t.queueLength.Add(float64(t.mac.QueueLen()))
}

// MacUnitdataReq implements traffic.Sink: counts the attempt, then hands
// the MSDU to the MAC.
func (t *Terminal) MacUnitdataReq(now simtime.Timestamp, msdu *wire.MSDU) int {
	if now >= t.transient {
		t.attemptedPackets++
	}
	return t.mac.MacUnitdataReq(now, msdu)
}

// QueueOverflow implements mac.Upstream.
func (t *Terminal) QueueOverflow(now simtime.Timestamp, msdu *wire.MSDU) {
	if now >= t.transient {
		t.packetsDroppedQueue++
	}
}

// StatusInd implements mac.Upstream: a packet was delivered end to end.
func (t *Terminal) StatusInd(now simtime.Timestamp, msdu *wire.MSDU, ackDelay simtime.Timestamp) {
	if now < t.transient {
		return
	}
	t.packetsDelivered++
	t.bytesDelivered += uint64(msdu.NBytesData)
	t.transferDelay.Add(now.Sub(msdu.TimeCreated).Seconds())
	t.transmissionDelay.Add(ackDelay.Seconds())
}

// MaxRetryDropped implements mac.Upstream.
func (t *Terminal) MaxRetryDropped(now simtime.Timestamp, msdu *wire.MSDU) {
	if now >= t.transient {
		t.packetsDroppedRetries++
	}
}

// LinkAdaptFor implements mac.Upstream, resolving the per-peer LinkAdapt
// this terminal owns. Returns nil for a peer with none registered.
func (t *Terminal) LinkAdaptFor(peer wire.TerminalID) *linkadapt.LinkAdapt {
	c, ok := t.conns[peer]
	if !ok {
		return nil
	}
	return c.la
}

// BytesDelivered returns the cumulative bytes successfully delivered.
func (t *Terminal) BytesDelivered() uint64 { return t.bytesDelivered }

// PacketsDelivered returns the cumulative count of MSDUs successfully
// delivered.
func (t *Terminal) PacketsDelivered() uint64 { return t.packetsDelivered }

// PacketsDroppedQueue returns the cumulative count of MSDUs dropped for
// queue overflow.
func (t *Terminal) PacketsDroppedQueue() uint64 { return t.packetsDroppedQueue }

// PacketsDroppedRetries returns the cumulative count of MSDUs dropped for
// exceeding the retry limit.
func (t *Terminal) PacketsDroppedRetries() uint64 { return t.packetsDroppedRetries }

// AttemptedPackets returns the cumulative count of MSDUs offered to the MAC.
func (t *Terminal) AttemptedPackets() uint64 { return t.attemptedPackets }

// TransferDelay returns the accumulator of end-to-end (creation to
// delivery) delays, in seconds.
func (t *Terminal) TransferDelay() *stats.Accumulator { return &t.transferDelay }

// TransmissionDelay returns the accumulator of transmission (first attempt
// to acknowledgement) delays, in seconds.
func (t *Terminal) TransmissionDelay() *stats.Accumulator { return &t.transmissionDelay }

// QueueLength returns the accumulator of sampled MAC queue lengths.
func (t *Terminal) QueueLength() *stats.Accumulator { return &t.queueLength }

// MeanTxMode returns the mean of LinkAdapt.RawMode across this terminal's
// peer connections, averaged over every connection with a registered
// LinkAdapt (§6 "PHY rate"). Under the OPT policy RawMode stays at the
// starting mode and does not reflect the oracle's per-frame choice. ok is
// false if this terminal has no LinkAdapt registered toward any peer.
func (t *Terminal) MeanTxMode() (mode float64, ok bool) {
	var sum float64
	var n int
	for _, c := range t.conns {
		if c.la == nil {
			continue
		}
		sum += float64(c.la.RawMode())
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MeanPowerDBm returns this terminal's mean radiated transmit power, in
// dBm, over the iteration's elapsed duration elapsedSec (§4.3 "Energy",
// §6 "power"). ok is false if elapsedSec is not positive.
func (t *Terminal) MeanPowerDBm(elapsedSec float64) (dBm float64, ok bool) {
	if elapsedSec <= 0 {
		return 0, false
	}
	meanMw := t.phy.EnergyMwSec() / elapsedSec
	if meanMw <= 0 {
		return math.Inf(-1), true
	}
	return 10 * math.Log10(meanMw), true
}

// LossRate returns the fraction of attempted packets dropped for retry
// exhaustion, or 0 if none were attempted.
func (t *Terminal) LossRate() float64 {
	if t.attemptedPackets == 0 {
		return 0
	}
	return float64(t.packetsDroppedRetries) / float64(t.attemptedPackets)
}

// OverflowRate returns the fraction of attempted packets dropped for queue
// overflow, or 0 if none were attempted.
func (t *Terminal) OverflowRate() float64 {
	if t.attemptedPackets == 0 {
		return 0
	}
	return float64(t.packetsDroppedQueue) / float64(t.attemptedPackets)
}
