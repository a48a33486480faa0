// SPDX-License-Identifier: GPL-3.0

// Package mac implements the DCF/EDCA coordination function (§4.4): per-AC
// backoff and internal contention, RTS/CTS, fragmentation, ACK/CTS/BA
// timeouts, TXOPs with block-ACK aggregation, and NAV tracking. The
// timeout/retry bookkeeping (counters compared against limits, doubling a
// bounded window on failure) follows the shape of cca.go/slowstart.go's
// congestion controllers: small integer state machines driven by
// scheduled callbacks, generalized here from a single congestion window
// to one per access category.
package mac

import (
	"fmt"
	"math"

	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// AC enumerates the access categories, plus the pre-EDCA legacy class
// (§4.4.1).
type AC int

const (
	BK AC = iota
	BE
	VI
	VO
	Legacy
	numAC
)

func (a AC) String() string {
	switch a {
	case BK:
		return "BK"
	case BE:
		return "BE"
	case VI:
		return "VI"
	case VO:
		return "VO"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("AC(%d)", int(a))
	}
}

// acParams holds one AC's fixed contention parameters (§4.4.1).
type acParams struct {
	CWMin, CWMax int
	AIFSN        int
	TXOPMax      simtime.Timestamp
}

// Fixed MAC timing constants (§4.4.1), independent of standard.
const (
	slotTimeSec = 9e-6
	sifsSec     = 16e-6
)

var acTable = [numAC]acParams{
	BK:     {CWMin: 31, CWMax: 1023, AIFSN: 7, TXOPMax: 0},
	BE:     {CWMin: 31, CWMax: 1023, AIFSN: 3, TXOPMax: 0},
	VI:     {CWMin: 15, CWMax: 31, AIFSN: 2, TXOPMax: simtime.FromSeconds(3.008e-3)},
	VO:     {CWMin: 7, CWMax: 15, AIFSN: 2, TXOPMax: simtime.FromSeconds(1.504e-3)},
	Legacy: {CWMin: 15, CWMax: 1023, AIFSN: 2, TXOPMax: 0},
}

func slotTime() simtime.Timestamp { return simtime.FromSeconds(slotTimeSec) }
func sifs() simtime.Timestamp     { return simtime.FromSeconds(sifsSec) }

func aifs(ac AC) simtime.Timestamp {
	return sifs().Add(simtime.Timestamp(acTable[ac].AIFSN) * slotTime())
}

func txopMax(std standard.Standard, ac AC) simtime.Timestamp {
	base := acTable[ac].TXOPMax
	if base == 0 {
		return 0
	}
	return simtime.FromSeconds(base.Seconds() * standard.TXOPMaxScale(std))
}

// Outcome is the result link-adaptation is told about after a transmission
// attempt or TXOP concludes.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeACKFail
	OutcomeCTSFail
)

// Upstream is how a MAC reports terminal-visible events: queue drops,
// final delivery status, and retry-limit drops (§4.4.2, §4.4.7). It also
// resolves the per-peer LinkAdapt instance a Terminal owns (§3).
type Upstream interface {
	QueueOverflow(now simtime.Timestamp, msdu *wire.MSDU)
	StatusInd(now simtime.Timestamp, msdu *wire.MSDU, ackDelay simtime.Timestamp)
	MaxRetryDropped(now simtime.Timestamp, msdu *wire.MSDU)
	LinkAdaptFor(target wire.TerminalID) *linkadapt.LinkAdapt
}

// Config holds one MAC's static parameters (§6).
type Config struct {
	Standard               standard.Standard
	RTSThreshold           wlanunits.Bytes
	RetryLimit             int
	FragmentationThreshold wlanunits.Bytes
	QueueSize              int
	SetBAAgg               bool
}

type acQueue struct {
	items []*wire.MSDU
}

func (q *acQueue) len() int { return len(q.items) }
func (q *acQueue) front() *wire.MSDU {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}
func (q *acQueue) pushBack(m *wire.MSDU)  { q.items = append(q.items, m) }
func (q *acQueue) pushFront(m *wire.MSDU) { q.items = append([]*wire.MSDU{m}, q.items...) }
func (q *acQueue) popFront() {
	if len(q.items) > 0 {
		q.items = q.items[1:]
	}
}

// MAC is one terminal's DCF/EDCA state machine.
type MAC struct {
	id     wire.TerminalID
	cfg    Config
	sched  *event.Scheduler
	phy    *phy.PHY
	rng    *rng.RNG
	up     Upstream
	pktIDs *simtime.PacketIDGen

	queues      [numAC]*acQueue
	totalQueued int

	boc     [numAC]int
	cw      [numAC]int
	bocFlag [numAC]bool

	myAC          AC
	haveMyAC      bool
	countdownFlag bool
	timeToSend    simtime.Timestamp

	nav    simtime.Timestamp
	navRTS simtime.Timestamp

	inTXOP    bool
	txopEnd   simtime.Timestamp
	txopAgg   bool
	txopLAWin Outcome

	currentMSDU   *wire.MSDU
	currentFrag   int
	nfrags        int
	ccaBusy       bool
	pendingTXMPDU *wire.DataMPDU // most recent DATA frame awaiting ACK/BA

	lastRxMode map[wire.TerminalID]standard.Mode

	pendingBA       []simtime.PacketID
	pendingBAMSDU   map[simtime.PacketID]*wire.MSDU
	pendingBATarget wire.TerminalID
	baScheduled     bool

	// rxPendingBA/rxBAScheduled track frames received as a block-ACK sink,
	// distinct from pendingBA (frames this MAC transmitted and awaits
	// acknowledgement for).
	rxPendingBA   []simtime.PacketID
	rxBAScheduled bool
}

// New returns a new MAC for terminal id.
func New(id wire.TerminalID, cfg Config, sched *event.Scheduler, p *phy.PHY, r *rng.RNG, up Upstream, pktIDs *simtime.PacketIDGen) *MAC {
	m := &MAC{
		id: id, cfg: cfg, sched: sched, phy: p, rng: r, up: up, pktIDs: pktIDs,
		lastRxMode:    make(map[wire.TerminalID]standard.Mode),
		pendingBAMSDU: make(map[simtime.PacketID]*wire.MSDU),
	}
	for ac := AC(0); ac < numAC; ac++ {
		m.queues[ac] = &acQueue{}
		m.bocFlag[ac] = true
	}
	return m
}

// owner is this MAC's scheduler-callback identity.
func (m *MAC) owner() uint64 { return uint64(m.id) }

// QueueLen returns the total number of MSDUs currently queued across all
// access categories, for queue-length sampling (§3 "queue-length samples").
func (m *MAC) QueueLen() int { return m.totalQueued }

// nextPacketID mints a fresh on-air frame identity.
func (m *MAC) nextPacketID() simtime.PacketID { return m.pktIDs.Next() }

// MacUnitdataReq enqueues msdu for transmission and returns the new total
// queue size (§4.4.2). msdu.TID selects the access category directly.
func (m *MAC) MacUnitdataReq(now simtime.Timestamp, msdu *wire.MSDU) int {
	if m.totalQueued >= m.cfg.QueueSize {
		m.up.QueueOverflow(now, msdu)
		return m.totalQueued
	}
	ac := AC(msdu.TID)
	wasEmpty := m.queues[ac].len() == 0
	m.queues[ac].pushBack(msdu)
	m.totalQueued++
	if wasEmpty && !m.baScheduled {
		m.newMSDU(now)
	}
	return m.totalQueued
}

// newMSDU starts contention for a freshly-queued (or requeued) MSDU, if the
// MAC is not already attempting a transmission.
func (m *MAC) newMSDU(now simtime.Timestamp) {
	if m.inTXOP || m.countdownFlag || m.currentMSDU != nil {
		return
	}
	m.internalContention(now)
	m.txAttempt(now)
}

// internalContention implements §4.4.4's AC-selection algorithm.
func (m *MAC) internalContention(now simtime.Timestamp) {
	ttt := [numAC]simtime.Timestamp{}
	active := [numAC]bool{}

	for ac := AC(0); ac < numAC; ac++ {
		if m.queues[ac].len() == 0 {
			continue
		}
		active[ac] = true
		if m.bocFlag[ac] {
			m.cw[ac] = acTable[ac].CWMin
			m.boc[ac] = m.rng.DiscreteUniform(0, m.cw[ac]-1)
			m.bocFlag[ac] = false
		}
		ttt[ac] = now.Add(aifs(ac)).Add(simtime.Timestamp(m.boc[ac]) * slotTime())
	}

	winner := AC(-1)
	for ac := AC(0); ac < numAC; ac++ {
		if !active[ac] {
			continue
		}
		if winner < 0 || ttt[ac] < ttt[winner] {
			winner = ac
		}
	}
	if winner < 0 {
		return
	}

	for ac := AC(0); ac < numAC; ac++ {
		if !active[ac] || ac == winner {
			continue
		}
		if ttt[ac] == ttt[winner] {
			m.cw[ac] = clampInt(m.cw[ac]*2, acTable[ac].CWMin, acTable[ac].CWMax)
			m.boc[ac] = m.rng.DiscreteUniform(0, m.cw[ac]-1)
			ttt[ac] = now.Add(aifs(ac)).Add(simtime.Timestamp(m.boc[ac]) * slotTime())
		}
		if ttt[ac] > ttt[winner] {
			delta := int64(ttt[ac].Sub(ttt[winner]).Seconds() / slotTimeSec)
			if int64(m.boc[ac]) > delta {
				m.boc[ac] -= int(delta)
			} else {
				m.boc[ac] = 0
			}
		}
	}

	m.myAC = winner
	m.haveMyAC = true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// txAttempt implements §4.4.3.
func (m *MAC) txAttempt(now simtime.Timestamp) {
	if !m.haveMyAC {
		return
	}
	msdu := m.queues[m.myAC].front()
	if msdu == nil {
		return
	}
	if m.currentMSDU == nil {
		m.currentMSDU = msdu
		if m.currentFrag == 0 {
			m.nfrags = int(math.Ceil(float64(msdu.NBytesData) / float64(m.cfg.FragmentationThreshold)))
			if m.nfrags < 1 {
				m.nfrags = 1
			}
			m.currentFrag = 1
		}
		if !msdu.TxTimeSet {
			msdu.TxTime = now
			msdu.TxTimeSet = true
		}
	}

	if m.inTXOP {
		m.transmit(now)
		return
	}
	if now <= m.nav {
		m.sched.Schedule(m.nav.Add(1), m.owner(), "tx_attempt", func(t simtime.Timestamp) { m.txAttempt(t) })
		return
	}
	if m.ccaBusy {
		m.phy.NotifyFree()
		return
	}
	m.beginCountdown(now)
}

// beginCountdown implements §4.4.4's begin_countdown.
func (m *MAC) beginCountdown(now simtime.Timestamp) {
	ttt := now.Add(aifs(m.myAC)).Add(simtime.Timestamp(m.boc[m.myAC]) * slotTime())
	m.timeToSend = ttt
	m.countdownFlag = true
	m.sched.RemoveByCallback(m.owner(), "start_TXOP")
	m.sched.Schedule(ttt, m.owner(), "start_TXOP", func(t simtime.Timestamp) { m.startTXOP(t) })
	m.phy.NotifyBusy()
}

// PhyCCABusy implements phy.MACNotifiee (§4.4.2).
func (m *MAC) PhyCCABusy(now simtime.Timestamp) {
	m.ccaBusy = true
	if m.countdownFlag {
		remain := 0
		if m.timeToSend > now {
			remain = int(m.timeToSend.Sub(now).Seconds() / slotTimeSec)
		}
		m.boc[m.myAC] = remain
		m.sched.RemoveByCallback(m.owner(), "start_TXOP")
	}
}

// PhyCCAFree implements phy.MACNotifiee (§4.4.2).
func (m *MAC) PhyCCAFree(now simtime.Timestamp) {
	m.ccaBusy = false
	if now <= m.nav {
		m.sched.Schedule(m.nav.Add(1), m.owner(), "end_nav", func(t simtime.Timestamp) { m.PhyCCAFree(t) })
		return
	}
	if m.countdownFlag {
		ttt := now.Add(aifs(m.myAC)).Add(simtime.Timestamp(m.boc[m.myAC]) * slotTime())
		m.timeToSend = ttt
		m.sched.RemoveByCallback(m.owner(), "start_TXOP")
		m.sched.Schedule(ttt, m.owner(), "start_TXOP", func(t simtime.Timestamp) { m.startTXOP(t) })
		return
	}
	if !m.haveMyAC {
		m.internalContention(now)
	}
	if m.haveMyAC {
		m.beginCountdown(now)
	}
}
