// SPDX-License-Identifier: GPL-3.0

package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlansim/wlansim/internal/config"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

func testScenario() *config.Scenario {
	return &config.Scenario{
		Label:                  "test",
		Seed:                   42,
		MaxSimTime:             simtime.FromSeconds(0.05),
		NumberAPs:              1,
		NumberStas:             3,
		APPositions:            []topology.Point{{X: 0, Y: 0}},
		Radius:                 20,
		PacketLength:           []traffic.PacketLengthEntry{{Bytes: 1000, Prob: 1.0}},
		DataRateMbps:           1,
		Arrival:                traffic.Constant,
		UplinkFactor:           1,
		DownlinkFactor:         1,
		Standard:               standard.A11,
		RTSThreshold:           wlanunits.Bytes(2347),
		RetryLimit:             7,
		FragmentationThreshold: wlanunits.Bytes(2312),
		QueueSize:              50,
		LAPolicy:               linkadapt.SUBOPT,
		LAMetric:               linkadapt.Rate,
		TargetPER:              0.1,
		PMax:                   20,
		PMin:                   0,
		PStepUp:                1,
		PStepDown:              1,
		LAMaxSucceed:           5,
		LAFailLimit:            2,
		PPAC: []config.ACShare{
			{AC: mac.BK, Share: 0}, {AC: mac.BE, Share: 0}, {AC: mac.VI, Share: 0},
			{AC: mac.VO, Share: 0}, {AC: mac.Legacy, Share: 1},
		},
		LogCategories: map[string]bool{},
	}
}

func TestSimulationBuildsTerminalsAndRuns(t *testing.T) {
	sim := New(testScenario(), nil)
	require.Len(t, sim.APs, 1)
	require.Len(t, sim.Stations, 3)

	err := sim.Run()
	require.NoError(t, err)

	total := uint64(0)
	for _, st := range sim.Stations {
		total += st.Term.AttemptedPackets()
	}
	assert.Greater(t, total, uint64(0))
}

func TestSimulationElapsedSecMatchesMaxSimTime(t *testing.T) {
	sim := New(testScenario(), nil)
	assert.InDelta(t, 0.05, sim.ElapsedSec(), 1e-9)
}

func TestSimulationStationsAssignedConfiguredAC(t *testing.T) {
	sim := New(testScenario(), nil)
	for _, st := range sim.Stations {
		assert.Equal(t, mac.Legacy, st.AC)
	}
}
