// SPDX-License-Identifier: GPL-3.0

package terminal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/phy"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wire"
)

func newTestPair(t *testing.T, transient simtime.Timestamp) (*event.Scheduler, *Terminal, *Terminal) {
	t.Helper()
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()

	phyCfg := phy.Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	macCfg := mac.Config{Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4, FragmentationThreshold: 10000, QueueSize: 16}

	a := New(0, topology.Point{}, phyCfg, macCfg, transient, sched, ch, r, pktIDs)
	b := New(1, topology.Point{X: 1}, phyCfg, macCfg, transient, sched, ch, r, pktIDs)
	ch.NewLink(0, a.ID(), b.ID(), a.Position(), b.Position(), a.PHY(), b.PHY())

	laCfg := linkadapt.Config{Policy: linkadapt.Fixed, FixedMode: 0, PMax: 20, Standard: standard.A11}
	a.AddLinkAdapt(b.ID(), laCfg)
	b.AddLinkAdapt(a.ID(), laCfg)

	return sched, a, b
}

func TestTerminalDeliversAndCountsStats(t *testing.T) {
	sched, a, b := newTestPair(t, 0)
	_ = b

	a.StartTraffic(1, traffic.Config{
		DataRateBps:  1_000_000,
		PacketLength: traffic.NewPacketLength([]traffic.PacketLengthEntry{{Bytes: 100, Prob: 1}}),
		Arrival:      traffic.Constant,
		Source:       a.ID(), Target: 1, TID: 1,
	}, 0, sched, rng.New(2), simtime.NewPacketIDGen())

	_ = sched.Run(simtime.FromSeconds(5e-3))

	require.Greater(t, a.PacketsDelivered(), uint64(0))
	assert.Greater(t, a.BytesDelivered(), uint64(0))
	assert.Equal(t, int64(a.PacketsDelivered()), a.TransferDelay().N())
	assert.Equal(t, int64(a.PacketsDelivered()), a.TransmissionDelay().N())
	assert.Greater(t, a.AttemptedPackets(), uint64(0))
}

func TestTerminalTransientGatesCounters(t *testing.T) {
	transient := simtime.FromSeconds(1)
	sched, a, _ := newTestPair(t, transient)

	msdu := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(mac.BE), Source: 0, Target: 1}
	a.MacUnitdataReq(0, msdu)
	_ = sched.Run(simtime.FromSeconds(1e-3))

	assert.Equal(t, uint64(0), a.AttemptedPackets())
	assert.Equal(t, uint64(0), a.PacketsDelivered())
}

func TestTerminalQueueOverflowCounted(t *testing.T) {
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()
	phyCfg := phy.Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	macCfg := mac.Config{Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4, FragmentationThreshold: 1000, QueueSize: 1}

	term := New(0, topology.Point{}, phyCfg, macCfg, 0, sched, ch, r, pktIDs)

	m1 := &wire.MSDU{ID: 1, NBytesData: 100, TID: int(mac.BE), Target: 1}
	m2 := &wire.MSDU{ID: 2, NBytesData: 100, TID: int(mac.BE), Target: 1}
	term.MacUnitdataReq(0, m1)
	term.MacUnitdataReq(0, m2)

	assert.Equal(t, uint64(1), term.PacketsDroppedQueue())
	assert.Equal(t, 1.0, term.OverflowRate()*float64(term.AttemptedPackets()))
}

func TestTerminalLinkAdaptForUnknownPeerIsNil(t *testing.T) {
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()
	phyCfg := phy.Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	macCfg := mac.Config{Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4, FragmentationThreshold: 1000, QueueSize: 16}
	term := New(0, topology.Point{}, phyCfg, macCfg, 0, sched, ch, r, pktIDs)

	assert.Nil(t, term.LinkAdaptFor(99))
}

func TestTerminalMeanTxModeAndPowerReflectTraffic(t *testing.T) {
	sched, a, b := newTestPair(t, 0)
	_ = b

	_, ok := a.MeanTxMode()
	assert.True(t, ok)
	_, ok = a.MeanPowerDBm(1.0)
	assert.True(t, ok)
	_, ok = a.MeanPowerDBm(0)
	assert.False(t, ok)

	a.StartTraffic(1, traffic.Config{
		DataRateBps:  1_000_000,
		PacketLength: traffic.NewPacketLength([]traffic.PacketLengthEntry{{Bytes: 100, Prob: 1}}),
		Arrival:      traffic.Constant,
		Source:       a.ID(), Target: 1, TID: 1,
	}, 0, sched, rng.New(2), simtime.NewPacketIDGen())
	_ = sched.Run(simtime.FromSeconds(5e-3))

	power, ok := a.MeanPowerDBm(5e-3)
	assert.True(t, ok)
	assert.Greater(t, power, math.Inf(-1))
}

func TestTerminalMeanTxModeNoConnectionsIsNotOK(t *testing.T) {
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()
	phyCfg := phy.Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	macCfg := mac.Config{Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4, FragmentationThreshold: 1000, QueueSize: 16}
	term := New(0, topology.Point{}, phyCfg, macCfg, 0, sched, ch, r, pktIDs)

	_, ok := term.MeanTxMode()
	assert.False(t, ok)
}

func TestTerminalSampleQueueLength(t *testing.T) {
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)
	pktIDs := simtime.NewPacketIDGen()
	phyCfg := phy.Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	macCfg := mac.Config{Standard: standard.A11, RTSThreshold: 10000, RetryLimit: 4, FragmentationThreshold: 1000, QueueSize: 16}
	term := New(0, topology.Point{}, phyCfg, macCfg, 0, sched, ch, r, pktIDs)

	term.SampleQueueLength(0)
	term.SampleQueueLength(0)
	assert.Equal(t, int64(2), term.QueueLength().N())
}
