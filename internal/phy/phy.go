// SPDX-License-Identifier: GPL-3.0

// Package phy implements the physical layer (§4.3): carrier sensing, the
// transceiver half-duplex gate, the SNR->BER->PER error model, the
// rate/power optimization oracles used by OPT link adaptation, and
// per-frame radiated energy accounting. The BER/PER pipeline shape (evaluate
// a polynomial, derive a PER, roll one uniform draw to decide delivery) is
// grounded on openthread-ot-ns's radiomodel/ber_model.go; the polynomial
// coefficients and SNR thresholds themselves come from internal/standard
// per §4.3, not from that file's 802.15.4 table.
package phy

import (
	"math"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// codingBurstFactor is L in §4.3's PER formula.
const codingBurstFactor = 3.3

// MACNotifiee is the interface PHY uses to notify its own MAC of carrier
// sense transitions and received frames, per §4.4.2's phyCCA_busy/
// phyCCA_free/phyRxEndInd.
type MACNotifiee interface {
	PhyCCABusy(now simtime.Timestamp)
	PhyCCAFree(now simtime.Timestamp)
	PhyRxEndInd(now simtime.Timestamp, payload any, pathLossDB float64, interfMw float64)
}

// Config holds a PHY's static parameters (§6).
type Config struct {
	Standard          standard.Standard
	CCASensitivityDBm float64
	NoiseVarianceDBm  float64
}

// PHY models one terminal's physical layer.
type PHY struct {
	id  wire.TerminalID
	cfg Config
	ch  *channel.Channel
	mac MACNotifiee
	rng *rng.RNG

	busyBegin, busyEnd simtime.Timestamp
	haveBusyInterval   bool

	energyMwSec float64
}

// New returns a new PHY with the given terminal ID, wired to ch for
// transmission/reception and mac for upward notifications.
func New(id wire.TerminalID, cfg Config, ch *channel.Channel, mac MACNotifiee, r *rng.RNG) *PHY {
	return &PHY{id: id, cfg: cfg, ch: ch, mac: mac, rng: r}
}

// TerminalID implements channel.Subscriber.
func (p *PHY) TerminalID() wire.TerminalID { return p.id }

// Standard returns the PHY's configured standard.
func (p *PHY) Standard() standard.Standard { return p.cfg.Standard }

// Transmit hands a frame to the Channel, after marking the transceiver
// busy for its duration (§4.3 "Transceiver half-duplex gate": "Transmission
// sets the interval to [now, now+duration] before dispatching to
// Channel").
func (p *PHY) Transmit(now simtime.Timestamp, id simtime.PacketID, payload any, target wire.TerminalID, powerDBm float64, duration simtime.Timestamp, all bool) {
	p.busyBegin = now
	p.busyEnd = now.Add(duration)
	p.haveBusyInterval = true

	f := &channel.Frame{
		ID:       id,
		Source:   p.id,
		Target:   target,
		PowerDBm: powerDBm,
		Duration: duration,
		Payload:  payload,
	}
	p.ch.Send(now, f, all)
	p.energyMwSec += duration.Seconds() * math.Pow(10, powerDBm/10)
}

// overlapsBusy reports whether [start,end] overlaps this PHY's current
// transmit/receive busy interval.
func (p *PHY) overlapsBusy(start, end simtime.Timestamp) bool {
	if !p.haveBusyInterval {
		return false
	}
	return start < p.busyEnd && end > p.busyBegin
}

// Receive implements channel.Subscriber: the Channel calls this at the end
// of a frame's airtime. Per the PHY invariant (§8), a frame overlapping
// this PHY's own busy interval is dropped before ever reaching the error
// model or the MAC.
func (p *PHY) Receive(frame *channel.Frame, pathLossDB float64, interfMaxMw float64) {
	start := frame.Start
	end := start.Add(frame.Duration)
	if p.overlapsBusy(start, end) {
		return
	}

	rxPowerDBm := frame.PowerDBm - pathLossDB
	if rxPowerDBm < p.cfg.CCASensitivityDBm {
		return
	}

	mode := modeOf(frame.Payload)
	nbits := nbitsOf(frame.Payload)

	n0Mw := math.Pow(10, p.cfg.NoiseVarianceDBm/10)
	snir := rxPowerDBm - 10*math.Log10(interfMaxMw+n0Mw)
	ber := CalculateBER(p.cfg.Standard, mode, snir)
	per := packetErrorRate(ber, nbits)

	u := p.rng.Float64()
	if u > per {
		p.mac.PhyRxEndInd(start.Add(frame.Duration), frame.Payload, pathLossDB, interfMaxMw)
	}
}

// packetErrorRate derives PER from a per-bit error rate and frame length
// (§4.3: PER = 1 - (1 - BER/L)^nbits).
func packetErrorRate(ber float64, nbits uint64) float64 {
	if nbits == 0 {
		return 0
	}
	return 1 - math.Pow(1-ber/codingBurstFactor, float64(nbits))
}

// CalculateBER implements the threshold/polynomial error model of §4.3.
func CalculateBER(std standard.Standard, mode standard.Mode, snrDB float64) float64 {
	minThresh, maxThresh, high, mid := standard.BERParams(std, mode)
	switch {
	case snrDB < minThresh:
		return 0.5
	case snrDB > maxThresh:
		return math.Pow(10, high[0]+high[1]*snrDB)
	default:
		p := mid[0] + mid[1]*snrDB + mid[2]*snrDB*snrDB + mid[3]*math.Pow(snrDB, 3) + mid[4]*math.Pow(snrDB, 4)
		return math.Pow(10, p)
	}
}

// NotifyBusy subscribes this PHY to the Channel's next busy-transition
// check (§4.4.4 begin_countdown: "subscribe to busy-channel notifications").
func (p *PHY) NotifyBusy() {
	p.ch.SubscribeBusy(p)
}

// NotifyFree subscribes this PHY to the Channel's next free-transition
// check (§4.4.3 tx_attempt: "request notify_free_channel from PHY").
func (p *PHY) NotifyFree() {
	p.ch.SubscribeFree(p)
}

// CheckCCABusy implements channel.Subscriber.
func (p *PHY) CheckCCABusy(now simtime.Timestamp, interfDBm float64) bool {
	if interfDBm >= p.cfg.CCASensitivityDBm {
		p.mac.PhyCCABusy(now)
		return true
	}
	return false
}

// CheckCCAFree implements channel.Subscriber.
func (p *PHY) CheckCCAFree(now simtime.Timestamp, interfDBm float64) bool {
	if interfDBm < p.cfg.CCASensitivityDBm {
		p.mac.PhyCCAFree(now)
		return true
	}
	return false
}

// CurrentInterfDBm returns the Channel's current interference reading at
// this PHY, for immediate (non-subscription) CCA checks.
func (p *PHY) CurrentInterfDBm(now simtime.Timestamp) float64 {
	return p.ch.GetInterfDBm(now, p.id)
}

// EnergyMwSec returns accumulated radiated energy (milliwatt-seconds) for
// mean-power reporting (§4.3 "Energy").
func (p *PHY) EnergyMwSec() float64 {
	return p.energyMwSec
}

// OptMode implements the opt_mode oracle (§4.3): the highest MCS whose
// predicted PER at the given power does not exceed perTarget, walking down
// from the standard's maximum MCS.
func (p *PHY) OptMode(now simtime.Timestamp, target wire.TerminalID, nbytes wlanunits.Bytes, perTarget float64, powerDBm float64) standard.Mode {
	pl := p.ch.GetPathLossDB(now, p.id, target)
	interfMw := dbmToMwOrZero(p.ch.GetInterfDBm(now, target))
	n0Mw := math.Pow(10, p.cfg.NoiseVarianceDBm/10)

	for m := standard.MaxMCS(p.cfg.Standard); m >= 0; m-- {
		nbits := wire.NBits(wire.DATA, wire.NormalACK, nbytes)
		rxPower := powerDBm - pl
		snir := rxPower - 10*math.Log10(interfMw+n0Mw)
		ber := CalculateBER(p.cfg.Standard, m, snir)
		per := packetErrorRate(ber, nbits)
		if per <= perTarget {
			return m
		}
	}
	return 0
}

// OptPower implements the opt_power oracle (§4.3): the lowest power in
// [pmin,pmax] (stepping by pstep) whose predicted PER at the given mode
// does not exceed perTarget.
func (p *PHY) OptPower(now simtime.Timestamp, target wire.TerminalID, nbytes wlanunits.Bytes, perTarget float64, mode standard.Mode, pmin, pmax, pstep float64) float64 {
	pl := p.ch.GetPathLossDB(now, p.id, target)
	interfMw := dbmToMwOrZero(p.ch.GetInterfDBm(now, target))
	n0Mw := math.Pow(10, p.cfg.NoiseVarianceDBm/10)
	nbits := wire.NBits(wire.DATA, wire.NormalACK, nbytes)

	for power := pmin; power <= pmax; power += pstep {
		rxPower := power - pl
		snir := rxPower - 10*math.Log10(interfMw+n0Mw)
		ber := CalculateBER(p.cfg.Standard, mode, snir)
		per := packetErrorRate(ber, nbits)
		if per <= perTarget {
			return power
		}
	}
	return pmax
}

func dbmToMwOrZero(dBm float64) float64 {
	if math.IsInf(dBm, -1) {
		return 0
	}
	return math.Pow(10, dBm/10)
}

// modeOf extracts the transmission Mode from a wire payload.
func modeOf(payload any) standard.Mode {
	switch v := payload.(type) {
	case *wire.DataMPDU:
		return v.Mode
	case *wire.MPDU:
		return v.Mode
	}
	return 0
}

// nbitsOf extracts the bit count from a wire payload.
func nbitsOf(payload any) uint64 {
	switch v := payload.(type) {
	case *wire.DataMPDU:
		return v.NBits
	case *wire.MPDU:
		return v.NBits
	}
	return 0
}
