// SPDX-License-Identifier: GPL-3.0

package mac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/wire"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

type fakeUpstream struct {
	overflowed []*wire.MSDU
	delivered  []*wire.MSDU
	dropped    []*wire.MSDU
	la         map[wire.TerminalID]*linkadapt.LinkAdapt
}

func newFakeUpstream(std standard.Standard) *fakeUpstream {
	return &fakeUpstream{la: make(map[wire.TerminalID]*linkadapt.LinkAdapt)}
}

func (u *fakeUpstream) QueueOverflow(now simtime.Timestamp, msdu *wire.MSDU) {
	u.overflowed = append(u.overflowed, msdu)
}
func (u *fakeUpstream) StatusInd(now simtime.Timestamp, msdu *wire.MSDU, ackDelay simtime.Timestamp) {
	u.delivered = append(u.delivered, msdu)
}
func (u *fakeUpstream) MaxRetryDropped(now simtime.Timestamp, msdu *wire.MSDU) {
	u.dropped = append(u.dropped, msdu)
}
func (u *fakeUpstream) LinkAdaptFor(target wire.TerminalID) *linkadapt.LinkAdapt {
	la, ok := u.la[target]
	if !ok {
		la = linkadapt.New(linkadapt.Config{Policy: linkadapt.Fixed, FixedMode: 0, PMax: 20, Standard: standard.A11})
		u.la[target] = la
	}
	return la
}

type testNetwork struct {
	sched    *event.Scheduler
	ch       *channel.Channel
	macA     *MAC
	macB     *MAC
	upA, upB *fakeUpstream
	pktIDs   *simtime.PacketIDGen
}

func newTestNetwork(cfg Config) *testNetwork {
	sched := event.New()
	r := rng.New(42)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()

	upA, upB := newFakeUpstream(cfg.Standard), newFakeUpstream(cfg.Standard)

	a, b := wire.TerminalID(0), wire.TerminalID(1)
	phyCfg := phy.Config{Standard: cfg.Standard, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}

	var macA, macB *MAC
	phyA := phy.New(a, phyCfg, ch, macAdapter{get: func() *MAC { return macA }}, r)
	phyB := phy.New(b, phyCfg, ch, macAdapter{get: func() *MAC { return macB }}, r)

	macA = New(a, cfg, sched, phyA, r, upA, pktIDs)
	macB = New(b, cfg, sched, phyB, r, upB, pktIDs)

	ch.NewLink(0, a, b, topology.Point{}, topology.Point{X: 1}, phyA, phyB)

	return &testNetwork{sched: sched, ch: ch, macA: macA, macB: macB, upA: upA, upB: upB, pktIDs: pktIDs}
}

// macAdapter defers to a *MAC that may not exist yet at PHY-construction
// time (PHY and MAC are mutually referential in this package's wiring).
type macAdapter struct {
	get func() *MAC
}

func (a macAdapter) PhyCCABusy(now simtime.Timestamp) { a.get().PhyCCABusy(now) }
func (a macAdapter) PhyCCAFree(now simtime.Timestamp) { a.get().PhyCCAFree(now) }
func (a macAdapter) PhyRxEndInd(now simtime.Timestamp, payload any, pathLossDB float64, interfMw float64) {
	a.get().PhyRxEndInd(now, payload, pathLossDB, interfMw)
}

func basicConfig() Config {
	return Config{
		Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4,
		FragmentationThreshold: 10000, QueueSize: 16, SetBAAgg: false,
	}
}

func TestMacUnitdataReqOverflowsPastQueueSize(t *testing.T) {
	net := newTestNetwork(Config{Standard: standard.A11, RetryLimit: 4, FragmentationThreshold: 1000, QueueSize: 1, RTSThreshold: 10000})
	m := net.macA
	m1 := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(BE), Target: 1}
	m2 := &wire.MSDU{ID: 2, NBytesData: 100, TID: int(BE), Target: 1}
	size1 := m.MacUnitdataReq(0, m1)
	assert.Equal(t, 1, size1)
	m.MacUnitdataReq(0, m2)
	assert.Len(t, net.upA.overflowed, 1)
}

func TestBasicDCFDataDeliveryCompletesStatusInd(t *testing.T) {
	net := newTestNetwork(basicConfig())
	msdu := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(BE), Source: 0, Target: 1}
	net.macA.MacUnitdataReq(0, msdu)

	// The exchange completes and the scheduler drains well before tMax;
	// draining early is expected here (no further traffic is generated),
	// not the protocol deadlock the scheduler would flag in a live run.
	_ = net.sched.Run(simtime.FromSeconds(1e-3))

	require.Len(t, net.upA.delivered, 1)
	assert.Equal(t, msdu, net.upA.delivered[0])
}

func TestInternalContentionPicksNonEmptyAC(t *testing.T) {
	net := newTestNetwork(basicConfig())
	m := net.macA
	msdu := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(VO), Target: 1}
	m.queues[VO].pushBack(msdu)
	m.internalContention(0)
	assert.True(t, m.haveMyAC)
	assert.Equal(t, VO, m.myAC)
}

func TestFragmentBytesFixedSizeWithShorterFinal(t *testing.T) {
	assert.Equal(t, wlanunits.Bytes(100), fragmentBytes(250, 1, 3, 100))
	assert.Equal(t, wlanunits.Bytes(100), fragmentBytes(250, 2, 3, 100))
	assert.Equal(t, wlanunits.Bytes(50), fragmentBytes(250, 3, 3, 100))
}

func TestFragmentBytesSingleFragmentReturnsTotal(t *testing.T) {
	assert.Equal(t, wlanunits.Bytes(80), fragmentBytes(80, 1, 1, 1000))
}

func TestRetryOrDropDropsAtRetryLimit(t *testing.T) {
	net := newTestNetwork(Config{Standard: standard.A11, RetryLimit: 1, FragmentationThreshold: 1000, QueueSize: 16, RTSThreshold: 10000})
	m := net.macA
	msdu := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(BE), Target: 1}
	m.currentMSDU = msdu
	m.queues[BE].pushBack(msdu)
	m.totalQueued = 1
	m.retryOrDrop(0)
	assert.Len(t, net.upA.dropped, 1)
}

func TestClampIntBounds(t *testing.T) {
	assert.Equal(t, 5, clampInt(2, 5, 10))
	assert.Equal(t, 10, clampInt(20, 5, 10))
	assert.Equal(t, 7, clampInt(7, 5, 10))
}
