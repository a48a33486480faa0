// SPDX-License-Identifier: GPL-3.0

package mac

import (
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/wire"
)

// base extracts the common MPDU fields from either payload shape.
func base(payload any) *wire.MPDU {
	switch v := payload.(type) {
	case *wire.DataMPDU:
		return &v.MPDU
	case *wire.MPDU:
		return v
	}
	return nil
}

// PhyRxEndInd implements phy.MACNotifiee: dispatch on whether the frame was
// addressed to us (§4.4.2).
func (m *MAC) PhyRxEndInd(now simtime.Timestamp, payload any, pathLossDB float64, interfMw float64) {
	b := base(payload)
	if b == nil {
		return
	}
	if b.Target == m.id {
		m.receiveThis(now, payload)
	} else {
		m.receiveBC(now, b)
	}
}

// receiveBC implements §4.4.8's receive_bc.
func (m *MAC) receiveBC(now simtime.Timestamp, b *wire.MPDU) {
	if b.NAV > m.nav {
		m.nav = b.NAV
	}
	if b.Type == wire.RTS {
		_, ctsDur := wire.FrameDuration(m.cfg.Standard, 0, wire.CTS, wire.NoACK, 0, true)
		at := now.Add(sifs()).Add(sifs()).Add(ctsDur).Add(2 * slotTime())
		m.sched.Schedule(at, m.owner(), "check_nav", func(t simtime.Timestamp) { m.checkNAV(t) })
	}
}

// checkNAV releases the NAV early if the medium turns out to be idle
// (§4.4.8).
func (m *MAC) checkNAV(now simtime.Timestamp) {
	if !m.ccaBusy && m.nav > now {
		m.nav = now
	}
}

// receiveThis implements §4.4.8's receive_this, dispatching by packet type.
func (m *MAC) receiveThis(now simtime.Timestamp, payload any) {
	switch v := payload.(type) {
	case *wire.DataMPDU:
		m.receiveData(now, v)
	case *wire.MPDU:
		switch v.Type {
		case wire.ACK:
			m.receiveACK(now, v)
		case wire.RTS:
			m.receiveRTS(now, v)
		case wire.CTS:
			m.receiveCTS(now, v)
		case wire.BA:
			m.receiveBA(now, v)
		}
	}
}

func (m *MAC) receiveACK(now simtime.Timestamp, ack *wire.MPDU) {
	m.sched.RemoveByCallback(m.owner(), "ack_timeout")
	if m.currentFrag == m.nfrags {
		la := m.up.LinkAdaptFor(m.currentMSDU.Target)
		la.Success(true)
		ackDelay := now.Sub(m.currentMSDU.TxTime)
		m.up.StatusInd(now, m.currentMSDU, ackDelay)
		m.popCurrent()
		m.currentMSDU = nil
		m.currentFrag = 0
		m.haveMyAC = false
		m.newMSDU(now)
		return
	}
	la := m.up.LinkAdaptFor(m.currentMSDU.Target)
	la.Success(false)
	m.currentFrag++
	m.sched.Schedule(now.Add(sifs()), m.owner(), "transmit_next_frag", func(t simtime.Timestamp) { m.transmit(t) })
}

func (m *MAC) receiveData(now simtime.Timestamp, d *wire.DataMPDU) {
	if d.NAV > m.nav {
		m.nav = d.NAV
	}
	m.lastRxMode[d.Source] = d.Mode

	switch d.AckPolicy {
	case wire.NormalACK:
		m.sched.Schedule(now.Add(sifs()), m.owner(), "send_ack", func(t simtime.Timestamp) { m.sendACK(t, d.Source, d.Mode, d.NAV) })
	case wire.BlockACK:
		m.rxPendingBA = append(m.rxPendingBA, d.ID)
		if !m.rxBAScheduled {
			m.rxBAScheduled = true
			_, baDur := wire.FrameDuration(m.cfg.Standard, d.Mode, wire.BA, wire.NoACK, 0, true)
			at := d.NAV.Sub(baDur).Sub(1)
			if at < now {
				at = now
			}
			src := d.Source
			m.sched.Schedule(at, m.owner(), "rx_send_ba", func(t simtime.Timestamp) { m.rxSendBA(t, src) })
		}
	}

	if la := m.up.LinkAdaptFor(d.Source); la != nil {
		la.RxSuccess(d.Mode)
	}
}

// rxSendBA sends the BA acknowledging frames this MAC has received as a
// data sink (distinct from pendingBA, which tracks frames this MAC itself
// transmitted and awaits acknowledgement for).
func (m *MAC) rxSendBA(now simtime.Timestamp, to wire.TerminalID) {
	mode := m.lastRxMode[to]
	_, dur := wire.FrameDuration(m.cfg.Standard, mode, wire.BA, wire.NoACK, 0, true)
	power := m.controlPower(now, to)
	ba := &wire.MPDU{ID: m.nextPacketID(), Type: wire.BA, Source: m.id, Target: to, Mode: mode, TxPowerDBm: power, Duration: dur, NAV: m.nav, AckedIDs: append([]simtime.PacketID{}, m.rxPendingBA...)}
	m.phy.Transmit(now, ba.ID, ba, to, power, dur, false)
	m.rxPendingBA = nil
	m.rxBAScheduled = false
}

func (m *MAC) receiveRTS(now simtime.Timestamp, rts *wire.MPDU) {
	if now > m.nav {
		m.navRTS = rts.NAV
		m.nav = rts.NAV
		src := rts.Source
		m.sched.Schedule(now.Add(sifs()), m.owner(), "send_cts", func(t simtime.Timestamp) { m.sendCTS(t, src) })
	}
}

func (m *MAC) receiveCTS(now simtime.Timestamp, cts *wire.MPDU) {
	m.sched.RemoveByCallback(m.owner(), "cts_timeout")
	if m.inTXOP {
		m.sched.Schedule(now.Add(sifs()), m.owner(), "tx_attempt", func(t simtime.Timestamp) { m.txAttempt(t) })
		m.sched.Schedule(m.txopEnd, m.owner(), "end_TXOP", func(t simtime.Timestamp) { m.endTXOP(t) })
		return
	}
	if m.pendingTXMPDU != nil {
		m.sched.Schedule(now.Add(sifs()), m.owner(), "send_data", func(t simtime.Timestamp) { m.sendData(t, m.pendingTXMPDU) })
	}
}

func (m *MAC) receiveBA(now simtime.Timestamp, ba *wire.MPDU) {
	m.sched.RemoveByCallback(m.owner(), "ba_timeout")
	acked := make(map[simtime.PacketID]bool, len(ba.AckedIDs))
	for _, id := range ba.AckedIDs {
		acked[id] = true
	}
	currentAcked := false
	for _, id := range m.pendingBA {
		msdu := m.pendingBAMSDU[id]
		delete(m.pendingBAMSDU, id)
		if msdu == nil {
			continue
		}
		if acked[id] {
			la := m.up.LinkAdaptFor(msdu.Target)
			la.Success(true)
			ackDelay := now.Sub(msdu.TxTime)
			m.up.StatusInd(now, msdu, ackDelay)
			if msdu == m.currentMSDU {
				m.popCurrent()
				currentAcked = true
			}
		} else {
			m.requeueOrDrop(now, msdu)
		}
	}
	m.pendingBA = nil
	m.baScheduled = false
	if currentAcked {
		m.currentMSDU = nil
		m.currentFrag = 0
		m.haveMyAC = false
		m.newMSDU(now)
	}
}
