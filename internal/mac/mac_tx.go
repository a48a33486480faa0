// SPDX-License-Identifier: GPL-3.0

package mac

import (
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// startTXOP implements §4.4.5. Multi-MSDU greedy packing within one TXOP
// is simplified here to the head MSDU's own fragments (documented as an
// accepted simplification): the TXOP still exists as a state (block-ACK
// aggregation across fragments, a single link-adaptation outcome at
// end_TXOP), it just never spans more than one MSDU's fragments.
func (m *MAC) startTXOP(now simtime.Timestamp) {
	m.countdownFlag = false
	ac := m.myAC
	max := txopMax(m.cfg.Standard, ac)
	if m.inTXOP || max == 0 {
		m.transmit(now)
		return
	}

	m.inTXOP = true
	m.txopAgg = m.cfg.SetBAAgg
	m.txopLAWin = OutcomeSuccess

	la := m.up.LinkAdaptFor(m.currentMSDU.Target)
	mode := la.CurrentMode(now, m.phy, m.currentMSDU.Target, m.cfg.FragmentationThreshold)
	_, rtsDur := wire.FrameDuration(m.cfg.Standard, standard.Mode(0), wire.RTS, wire.NoACK, 0, true)
	fragBytes := fragmentBytes(m.currentMSDU.NBytesData, m.currentFrag, m.nfrags, m.cfg.FragmentationThreshold)
	_, dataDur := wire.FrameDuration(m.cfg.Standard, mode, wire.DATA, wire.BlockACK, fragBytes, true)
	_, baDur := wire.FrameDuration(m.cfg.Standard, mode, wire.BA, wire.NoACK, 0, true)
	_, ctsDur := wire.FrameDuration(m.cfg.Standard, 0, wire.CTS, wire.NoACK, 0, true)

	planned := rtsDur.Add(sifs()).Add(ctsDur).Add(sifs()).Add(dataDur).Add(sifs()).Add(baDur)
	m.txopEnd = now.Add(planned).Add(1)

	power := la.Power(now, m.phy, m.currentMSDU.Target, fragBytes)
	rts := &wire.MPDU{
		ID: m.nextPacketID(), Type: wire.RTS, Source: m.id, Target: m.currentMSDU.Target,
		Mode: 0, TxPowerDBm: power, Duration: rtsDur, NAV: m.txopEnd,
	}
	m.nav = m.txopEnd
	m.navRTS = m.txopEnd
	m.sched.RemoveByCallback(m.owner(), "cts_timeout")
	to := sifs().Add(ctsDur).Add(5)
	m.sched.Schedule(now.Add(to), m.owner(), "cts_timeout", func(t simtime.Timestamp) { m.ctsTimedOut(t) })
	m.phy.Transmit(now, rts.ID, rts, rts.Target, power, rtsDur, false)
}

// fragmentBytes returns the payload byte count for the given fragment
// index, per §4.4.6: fixed-size fragments except a possibly shorter final
// one.
func fragmentBytes(total wlanunits.Bytes, frag, nfrags int, threshold wlanunits.Bytes) wlanunits.Bytes {
	if nfrags <= 1 {
		return total
	}
	if frag < nfrags {
		return threshold
	}
	rem := total - threshold*wlanunits.Bytes(nfrags-1)
	if rem <= 0 {
		return threshold
	}
	return rem
}

// endTXOP implements §4.4.5's end_TXOP.
func (m *MAC) endTXOP(now simtime.Timestamp) {
	m.inTXOP = false
	la := m.up.LinkAdaptFor(m.currentMSDU.Target)
	switch m.txopLAWin {
	case OutcomeSuccess:
		la.Success(true)
	case OutcomeACKFail:
		la.Failed()
	case OutcomeCTSFail:
		la.RTSFailed()
	}
	if m.queues[m.myAC].len() > 0 && !m.baScheduled {
		m.newMSDU(now)
	}
}

// transmit implements §4.4.6.
func (m *MAC) transmit(now simtime.Timestamp) {
	msdu := m.currentMSDU
	la := m.up.LinkAdaptFor(msdu.Target)
	fragBytes := fragmentBytes(msdu.NBytesData, m.currentFrag, m.nfrags, m.cfg.FragmentationThreshold)
	mode := la.CurrentMode(now, m.phy, msdu.Target, fragBytes)
	power := la.Power(now, m.phy, msdu.Target, fragBytes)

	policy := wire.NormalACK
	addPreamble := true
	if m.inTXOP && m.txopAgg {
		policy = wire.BlockACK
		addPreamble = m.currentFrag == 1
	}

	nbits, dur := wire.FrameDuration(m.cfg.Standard, mode, wire.DATA, policy, fragBytes, addPreamble)
	frameBytes := fragBytes + wire.OverheadBytes(wire.DATA, policy)

	mpdu := &wire.DataMPDU{
		MPDU: wire.MPDU{
			ID: m.nextPacketID(), Type: wire.DATA, Source: m.id, Target: msdu.Target,
			Mode: mode, TxPowerDBm: power, Duration: dur, NBits: nbits,
		},
		FragNumber: m.currentFrag, FragTotal: m.nfrags, MSDUID: msdu.ID, TID: msdu.TID,
		NBytesData: fragBytes, AckPolicy: policy,
	}

	if frameBytes < m.cfg.RTSThreshold {
		if m.inTXOP {
			mpdu.NAV = m.txopEnd
		} else {
			_, ackDur := wire.FrameDuration(m.cfg.Standard, mode, wire.ACK, wire.NoACK, 0, true)
			mpdu.NAV = now.Add(dur).Add(sifs()).Add(ackDur)
		}
		m.sendData(now, mpdu)
		return
	}

	_, rtsDur := wire.FrameDuration(m.cfg.Standard, 0, wire.RTS, wire.NoACK, 0, true)
	_, ctsDur := wire.FrameDuration(m.cfg.Standard, 0, wire.CTS, wire.NoACK, 0, true)
	if m.inTXOP {
		mpdu.NAV = m.txopEnd
	} else {
		_, ackDur := wire.FrameDuration(m.cfg.Standard, mode, wire.ACK, wire.NoACK, 0, true)
		mpdu.NAV = now.Add(rtsDur).Add(sifs()).Add(ctsDur).Add(sifs()).Add(dur).Add(sifs()).Add(ackDur)
	}
	rts := &wire.MPDU{ID: m.nextPacketID(), Type: wire.RTS, Source: m.id, Target: msdu.Target, Mode: 0, TxPowerDBm: power, Duration: rtsDur, NAV: mpdu.NAV}
	m.nav = mpdu.NAV
	m.navRTS = mpdu.NAV
	m.pendingTXMPDU = mpdu
	to := sifs().Add(ctsDur).Add(5)
	m.sched.RemoveByCallback(m.owner(), "cts_timeout")
	m.sched.Schedule(now.Add(to), m.owner(), "cts_timeout", func(t simtime.Timestamp) { m.ctsTimedOut(t) })
	m.phy.Transmit(now, rts.ID, rts, rts.Target, power, rtsDur, false)
}

// sendData implements §4.4.7's send_data.
func (m *MAC) sendData(now simtime.Timestamp, mpdu *wire.DataMPDU) {
	m.nav = mpdu.NAV
	m.pendingTXMPDU = mpdu
	m.phy.Transmit(now, mpdu.ID, mpdu, mpdu.Target, mpdu.TxPowerDBm, mpdu.Duration, false)

	if m.inTXOP && m.txopAgg {
		m.pendingBA = append(m.pendingBA, mpdu.ID)
		m.pendingBAMSDU[mpdu.ID] = m.currentMSDU
		m.pendingBATarget = mpdu.Target
		end := now.Add(mpdu.Duration)
		m.sched.Schedule(end, m.owner(), "aggreg_send", func(t simtime.Timestamp) { m.aggregSend(t) })
		return
	}
	_, ackDur := wire.FrameDuration(m.cfg.Standard, mpdu.Mode, wire.ACK, wire.NoACK, 0, true)
	to := sifs().Add(ackDur).Add(5)
	m.sched.RemoveByCallback(m.owner(), "ack_timeout")
	m.sched.Schedule(now.Add(mpdu.Duration).Add(to), m.owner(), "ack_timeout", func(t simtime.Timestamp) { m.ackTimedOut(t) })
}

// aggregSend chains the next fragment inside an aggregating TXOP, per
// §4.4.7: once every fragment is sent, arm a BA timeout instead of sending
// another data frame.
func (m *MAC) aggregSend(now simtime.Timestamp) {
	if m.currentFrag >= m.nfrags {
		m.armBATimeout(now)
		return
	}
	m.currentFrag++
	m.transmit(now)
}

// armBATimeout waits for the peer's block-ACK of the fragments just sent
// (§4.4.7 "ba_timed_out").
func (m *MAC) armBATimeout(now simtime.Timestamp) {
	if m.baScheduled || len(m.pendingBA) == 0 {
		return
	}
	m.baScheduled = true
	m.sched.RemoveByCallback(m.owner(), "ba_timeout")
	at := m.txopEnd.Add(1)
	m.sched.Schedule(at, m.owner(), "ba_timeout", func(t simtime.Timestamp) { m.baTimedOut(t) })
}

// sendCTS implements §4.4.7's send_cts.
func (m *MAC) sendCTS(now simtime.Timestamp, to wire.TerminalID) {
	_, dur := wire.FrameDuration(m.cfg.Standard, 0, wire.CTS, wire.NoACK, 0, true)
	power := m.controlPower(now, to)
	cts := &wire.MPDU{ID: m.nextPacketID(), Type: wire.CTS, Source: m.id, Target: to, Mode: 0, TxPowerDBm: power, Duration: dur, NAV: m.navRTS}
	m.phy.Transmit(now, cts.ID, cts, to, power, dur, false)
}

// sendACK implements §4.4.7's send_ack.
func (m *MAC) sendACK(now simtime.Timestamp, to wire.TerminalID, mode standard.Mode, nav simtime.Timestamp) {
	_, dur := wire.FrameDuration(m.cfg.Standard, mode, wire.ACK, wire.NoACK, 0, true)
	power := m.controlPower(now, to)
	ack := &wire.MPDU{ID: m.nextPacketID(), Type: wire.ACK, Source: m.id, Target: to, Mode: mode, TxPowerDBm: power, Duration: dur, NAV: nav}
	m.phy.Transmit(now, ack.ID, ack, to, power, dur, false)
}

// ackTimedOut implements §4.4.7's ack_timed_out.
func (m *MAC) ackTimedOut(now simtime.Timestamp) {
	if m.inTXOP {
		m.txopLAWin = OutcomeACKFail
		return
	}
	la := m.up.LinkAdaptFor(m.currentMSDU.Target)
	la.Failed()
	m.retryOrDrop(now)
}

// ctsTimedOut implements §4.4.7's cts_timed_out.
func (m *MAC) ctsTimedOut(now simtime.Timestamp) {
	if m.inTXOP {
		m.txopLAWin = OutcomeCTSFail
		m.sched.Schedule(m.txopEnd, m.owner(), "end_TXOP", func(t simtime.Timestamp) { m.endTXOP(t) })
		return
	}
	la := m.up.LinkAdaptFor(m.currentMSDU.Target)
	la.RTSFailed()
	m.retryOrDrop(now)
}

// baTimedOut implements §4.4.7's ba_timed_out.
func (m *MAC) baTimedOut(now simtime.Timestamp) {
	m.txopLAWin = OutcomeACKFail
	for _, id := range m.pendingBA {
		msdu := m.pendingBAMSDU[id]
		delete(m.pendingBAMSDU, id)
		m.requeueOrDrop(now, msdu)
	}
	m.pendingBA = nil
	m.baScheduled = false
}

// retryOrDrop implements the common DCF retry/drop logic shared by
// ack_timed_out and cts_timed_out outside a TXOP.
func (m *MAC) retryOrDrop(now simtime.Timestamp) {
	msdu := m.currentMSDU
	msdu.RetryCount++
	if msdu.RetryCount >= m.cfg.RetryLimit {
		m.dropCurrent(now, msdu)
		return
	}
	ac := AC(msdu.TID)
	m.cw[ac] = clampInt(m.cw[ac]*2, acTable[ac].CWMin, acTable[ac].CWMax)
	m.boc[ac] = m.rng.DiscreteUniform(0, m.cw[ac]-1)
	m.currentFrag = 0
	m.currentMSDU = nil
	m.haveMyAC = false
	m.newMSDU(now)
}

func (m *MAC) requeueOrDrop(now simtime.Timestamp, msdu *wire.MSDU) {
	if msdu == nil {
		return
	}
	msdu.RetryCount++
	if msdu.RetryCount >= m.cfg.RetryLimit {
		m.up.MaxRetryDropped(now, msdu)
		return
	}
	ac := AC(msdu.TID)
	m.queues[ac].pushFront(msdu)
	m.currentMSDU = nil
	m.currentFrag = 0
	m.haveMyAC = false
	m.newMSDU(now)
}

func (m *MAC) dropCurrent(now simtime.Timestamp, msdu *wire.MSDU) {
	m.up.MaxRetryDropped(now, msdu)
	m.popCurrent()
	m.currentMSDU = nil
	m.currentFrag = 0
	m.haveMyAC = false
	m.newMSDU(now)
}

// popCurrent removes the head of the current AC's queue (the MSDU just
// finished, successfully or by drop).
func (m *MAC) popCurrent() {
	if m.currentMSDU == nil {
		return
	}
	ac := AC(m.currentMSDU.TID)
	m.queues[ac].popFront()
	if m.totalQueued > 0 {
		m.totalQueued--
	}
}

// controlPower resolves the transmit power a control frame (CTS/ACK/BA)
// sends at toward to, per §4.4.7: the original always calls
// term->get_power(to, frag_thresh) for these, the same adaptive per-link
// power transmit() uses for DATA, not a fixed reference level. Falls back
// to maxPower only if no LinkAdapt is registered toward to.
func (m *MAC) controlPower(now simtime.Timestamp, to wire.TerminalID) float64 {
	if la := m.up.LinkAdaptFor(to); la != nil {
		return la.Power(now, m.phy, to, m.cfg.FragmentationThreshold)
	}
	return maxPower
}

const maxPower = 20.0 // dBm; fallback reference power when no LinkAdapt is registered toward the peer.
