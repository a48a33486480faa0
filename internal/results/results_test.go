// SPDX-License-Identifier: GPL-3.0

package results

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlansim/wlansim/internal/config"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/metrics"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/simulation"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

func TestStripSeedRemovesSeedComponent(t *testing.T) {
	got := stripSeed("DataRate=1;Seed=42;Standard=11a")
	assert.Equal(t, "DataRate=1;Standard=11a", got)
}

func TestStripSeedNoSeedPresent(t *testing.T) {
	got := stripSeed("DataRate=1;Standard=11a")
	assert.Equal(t, "DataRate=1;Standard=11a", got)
}

func testScenario() *config.Scenario {
	return &config.Scenario{
		Label:          "test;Seed=7",
		Seed:           7,
		MaxSimTime:     simtime.FromSeconds(0.02),
		NumberAPs:      1,
		NumberStas:     1,
		APPositions:    []topology.Point{{X: 0, Y: 0}},
		Radius:         10,
		PacketLength:   []traffic.PacketLengthEntry{{Bytes: 500, Prob: 1.0}},
		DataRateMbps:   1,
		Arrival:        traffic.Constant,
		UplinkFactor:   1,
		DownlinkFactor: 1,
		Standard:       standard.A11,
		RTSThreshold:   wlanunits.Bytes(2347),
		RetryLimit:     7,
		FragmentationThreshold: wlanunits.Bytes(2312),
		QueueSize:      50,
		LAPolicy:       linkadapt.Fixed,
		LAMetric:       linkadapt.Rate,
		FixedMode:      0,
		PMax:           20,
		PMin:           0,
		PStepUp:        1,
		PStepDown:      1,
		PPAC: []config.ACShare{
			{AC: mac.BK, Share: 0}, {AC: mac.BE, Share: 0}, {AC: mac.VI, Share: 0},
			{AC: mac.VO, Share: 0}, {AC: mac.Legacy, Share: 1},
		},
		LogCategories: map[string]bool{},
	}
}

func TestWriteIterationIncludesRateAndPowerColumns(t *testing.T) {
	sim := simulation.New(testScenario(), nil)
	require.NoError(t, sim.Run())

	var buf bytes.Buffer
	wr := New(&buf, "test-run")
	wr.WriteIteration(sim)

	out := buf.String()
	assert.Contains(t, out, "rate")
	assert.Contains(t, out, "power_dbm")
}

func TestCollectPopulatesRadiatedEnergy(t *testing.T) {
	sim := simulation.New(testScenario(), nil)
	require.NoError(t, sim.Run())

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	Collect(collector, sim, "test")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "wlansim_terminal_radiated_energy_mw_sec" {
			found = true
			require.NotEmpty(t, mf.GetMetric())
		}
	}
	assert.True(t, found)
}
