// SPDX-License-Identifier: GPL-3.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSweepSeedIsInnermostLoop(t *testing.T) {
	path := writeTempConfig(t, `
Seed=1,2,3
DataRate=1,2
MaxSimTime=1
NumberAPs=1
NumberStas=1
PacketLength=1000(1.0)
ArrivalTime=CONST
Standard=802.11a
`)
	k, err := Load(path)
	require.NoError(t, err)
	scenarios, err := BuildSweep(k)
	require.NoError(t, err)
	require.Len(t, scenarios, 6)

	for i := 0; i < len(scenarios); i += 3 {
		assert.Equal(t, uint64(1), scenarios[i].Seed)
		assert.Equal(t, uint64(2), scenarios[i+1].Seed)
		assert.Equal(t, uint64(3), scenarios[i+2].Seed)
	}
	assert.Equal(t, scenarios[0].DataRateMbps, scenarios[1].DataRateMbps)
	assert.NotEqual(t, scenarios[0].DataRateMbps, scenarios[3].DataRateMbps)
}

func TestBuildSweepAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	k, err := Load(path)
	require.NoError(t, err)
	scenarios, err := BuildSweep(k)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)
	assert.Equal(t, 0.95, scenarios[0].Confidence)
	assert.Equal(t, 7, scenarios[0].RetryLimit)
	assert.Equal(t, 1.0, scenarios[0].PPAC[len(scenarios[0].PPAC)-1].Share)
}

func TestBuildSweepRejectsBadACShareSum(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"\nppAC_BE=0.5\nppAC_Legacy=0.8\n")
	k, err := Load(path)
	require.NoError(t, err)
	_, err = BuildSweep(k)
	require.Error(t, err)
}

func TestBuildSweepRejectsMissingRequiredKey(t *testing.T) {
	path := writeTempConfig(t, "Seed=1\n")
	k, err := Load(path)
	require.NoError(t, err)
	_, err = BuildSweep(k)
	require.Error(t, err)
}

func TestBuildSweepRejectsUnknownLogCategory(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"\nLog=BOGUS\n")
	k, err := Load(path)
	require.NoError(t, err)
	_, err = BuildSweep(k)
	require.Error(t, err)
}

func TestBuildSweepAcceptsKnownLogCategory(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+"\nLog=MAC,phy\n")
	k, err := Load(path)
	require.NoError(t, err)
	scenarios, err := BuildSweep(k)
	require.NoError(t, err)
	assert.True(t, scenarios[0].LogCategories["MAC"])
	assert.True(t, scenarios[0].LogCategories["PHY"])
}
