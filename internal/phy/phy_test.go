// SPDX-License-Identifier: GPL-3.0

package phy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/event"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/wire"
)

type fakeMAC struct {
	busyCalls, freeCalls int
	rxInds               []any
}

func (m *fakeMAC) PhyCCABusy(now simtime.Timestamp) { m.busyCalls++ }
func (m *fakeMAC) PhyCCAFree(now simtime.Timestamp) { m.freeCalls++ }
func (m *fakeMAC) PhyRxEndInd(now simtime.Timestamp, payload any, pathLossDB float64, interfMw float64) {
	m.rxInds = append(m.rxInds, payload)
}

func newTestPHYs() (*channel.Channel, *event.Scheduler, *PHY, *fakeMAC, *PHY, *fakeMAC) {
	sched := event.New()
	r := rng.New(1)
	ch := channel.New(channel.Config{RefLossDB: 0, LossExponent: 2}, sched, r)

	macA, macB := &fakeMAC{}, &fakeMAC{}
	cfg := Config{Standard: standard.A11, CCASensitivityDBm: -90, NoiseVarianceDBm: -95}
	phyA := New(wire.TerminalID(0), cfg, ch, macA, r)
	phyB := New(wire.TerminalID(1), cfg, ch, macB, r)

	ch.NewLink(0, phyA.TerminalID(), phyB.TerminalID(), topology.Point{}, topology.Point{X: 1}, phyA, phyB)
	return ch, sched, phyA, macA, phyB, macB
}

func TestCalculateBERBelowMinThreshIsHalf(t *testing.T) {
	ber := CalculateBER(standard.A11, 0, -100)
	assert.Equal(t, 0.5, ber)
}

func TestCalculateBERAboveMaxThreshUsesHighPoly(t *testing.T) {
	ber := CalculateBER(standard.A11, 0, 100)
	assert.Less(t, ber, 0.5)
	assert.Greater(t, ber, 0.0)
}

func TestPacketErrorRateZeroBitsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, packetErrorRate(0.01, 0))
}

func TestPacketErrorRateIncreasesWithBits(t *testing.T) {
	small := packetErrorRate(0.001, 100)
	large := packetErrorRate(0.001, 10000)
	assert.Less(t, small, large)
}

func TestTransmitSetsBusyIntervalAndEnergy(t *testing.T) {
	_, _, phyA, _, _, _ := newTestPHYs()
	mpdu := &wire.MPDU{Mode: 0, NBits: 1000}
	phyA.Transmit(0, 1, mpdu, wire.TerminalID(1), 10, 1000, false)

	assert.True(t, phyA.haveBusyInterval)
	assert.Equal(t, simtime.Timestamp(0), phyA.busyBegin)
	assert.Equal(t, simtime.Timestamp(1000), phyA.busyEnd)
	assert.Greater(t, phyA.EnergyMwSec(), 0.0)
}

func TestReceiveDropsFrameOverlappingOwnBusyInterval(t *testing.T) {
	_, _, phyA, _, phyB, macB := newTestPHYs()
	mpdu := &wire.MPDU{Mode: 0, NBits: 1000}
	// phyB is mid-transmission (busy) when the frame would arrive.
	phyB.Transmit(0, 1, mpdu, phyA.TerminalID(), 10, 2000, false)

	f := &channel.Frame{ID: 2, Source: phyA.TerminalID(), Target: phyB.TerminalID(), PowerDBm: 10, Duration: 100, Start: 0, Payload: mpdu}
	phyB.Receive(f, 0, 0)

	assert.Empty(t, macB.rxInds)
}

func TestReceiveDropsBelowCCASensitivity(t *testing.T) {
	_, _, phyA, _, phyB, macB := newTestPHYs()
	mpdu := &wire.MPDU{Mode: 0, NBits: 1000}
	f := &channel.Frame{ID: 1, Source: phyA.TerminalID(), Target: phyB.TerminalID(), PowerDBm: -200, Duration: 100, Start: 0, Payload: mpdu}
	phyB.Receive(f, 0, 0)
	assert.Empty(t, macB.rxInds)
}

func TestReceiveDeliversStrongLowInterferenceFrame(t *testing.T) {
	_, _, phyA, _, phyB, macB := newTestPHYs()
	mpdu := &wire.MPDU{Mode: 0, NBits: 100}
	f := &channel.Frame{ID: 1, Source: phyA.TerminalID(), Target: phyB.TerminalID(), PowerDBm: 30, Duration: 100, Start: 0, Payload: mpdu}
	phyB.Receive(f, 0, 0)
	require.Len(t, macB.rxInds, 1)
	assert.Equal(t, mpdu, macB.rxInds[0])
}

func TestCheckCCABusyAndFreeTransitions(t *testing.T) {
	_, _, phyA, macA, _, _ := newTestPHYs()
	assert.True(t, phyA.CheckCCABusy(0, -50))
	assert.Equal(t, 1, macA.busyCalls)
	assert.False(t, phyA.CheckCCABusy(0, -200))
	assert.Equal(t, 1, macA.busyCalls)

	assert.True(t, phyA.CheckCCAFree(0, -200))
	assert.Equal(t, 1, macA.freeCalls)
	assert.False(t, phyA.CheckCCAFree(0, -50))
	assert.Equal(t, 1, macA.freeCalls)
}

func TestOptModeDecreasesWithLowerPower(t *testing.T) {
	_, _, phyA, _, phyB, _ := newTestPHYs()
	hiPower := phyA.OptMode(0, phyB.TerminalID(), 1000, 0.1, 30)
	loPower := phyA.OptMode(0, phyB.TerminalID(), 1000, 0.1, -30)
	assert.GreaterOrEqual(t, hiPower, loPower)
}

func TestOptPowerFindsMinimumSatisfyingTarget(t *testing.T) {
	_, _, phyA, _, phyB, _ := newTestPHYs()
	p := phyA.OptPower(0, phyB.TerminalID(), 1000, 0.5, 0, -10, 30, 1)
	assert.GreaterOrEqual(t, p, -10.0)
	assert.LessOrEqual(t, p, 30.0)
}

func TestDbmToMwOrZeroHandlesNegativeInf(t *testing.T) {
	assert.Equal(t, 0.0, dbmToMwOrZero(math.Inf(-1)))
	assert.Greater(t, dbmToMwOrZero(0), 0.0)
}
