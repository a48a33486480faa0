// SPDX-License-Identifier: GPL-3.0

package linkadapt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wlansim/wlansim/internal/standard"
)

func TestFixedModeAlwaysReturnsConfiguredMode(t *testing.T) {
	la := New(Config{Policy: Fixed, FixedMode: 3, PMax: 20, Standard: standard.A11})
	assert.Equal(t, standard.Mode(3), la.CurrentMode(0, nil, 0, 0))
	assert.Equal(t, 20.0, la.Power(0, nil, 0, 0))
}

func TestSUBOPTFailedDecrementsModeAtFailLimit(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, FailLimit: 2, PMax: 20, PMin: 0, Standard: standard.A11})
	la.currentMode = 4
	la.Failed()
	assert.Equal(t, standard.Mode(4), la.currentMode)
	la.Failed()
	assert.Equal(t, standard.Mode(3), la.currentMode)
	assert.Equal(t, 0, la.failCounter)
}

func TestSUBOPTFailedSetsEnquiryThresholdOnFirstCall(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, FailLimit: 10, Standard: standard.A11})
	la.Failed()
	assert.Equal(t, defaultLowMobilitySucceedCounter, la.cfg.MaxSucceed)
}

func TestSUBOPTFailedUsesHighMobilityThresholdWhenAdaptLAThresh(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, FailLimit: 10, AdaptLAThresh: true, Standard: standard.A11})
	la.cfg.MaxSucceed = defaultLowMobilitySucceedCounter
	la.Failed()
	assert.Equal(t, defaultHighMobilitySucceedCounter, la.cfg.MaxSucceed)
}

func TestSUBOPTFailedPowerModeAtModeZeroIncreasesPower(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Power, FailLimit: 1, PStepUp: 2, PMax: 20, PMin: 0, Standard: standard.A11})
	la.currentMode = 0
	la.powerDBm = 0
	la.Failed()
	assert.InDelta(t, 2.0, la.powerDBm, 1e-9)
}

func TestSUBOPTSuccessOnlyActsOnLastFragment(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, MaxSucceed: 2, Standard: standard.A11})
	la.Success(false)
	assert.Equal(t, 0, la.succeedCounter)
}

func TestSUBOPTSuccessIncrementsModeAtThreshold(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, MaxSucceed: 2, Standard: standard.A11})
	la.currentMode = 1
	la.Success(true)
	assert.Equal(t, standard.Mode(1), la.currentMode)
	la.Success(true)
	assert.Equal(t, standard.Mode(2), la.currentMode)
	assert.Equal(t, 0, la.succeedCounter)
}

func TestSUBOPTSuccessDecreasesPowerWhenPowerAdaptAndAboveMin(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Power, MaxSucceed: 1, PStepDown: 3, PMax: 20, PMin: 0, Standard: standard.A11})
	la.powerDBm = 10
	la.Success(true)
	assert.InDelta(t, 7.0, la.powerDBm, 1e-9)
}

func TestSUBOPTSuccessResetsEnquiryModeWhenAdaptLAThresh(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, MaxSucceed: 1, AdaptLAThresh: true, Standard: standard.A11})
	la.Success(true)
	assert.Equal(t, 0, la.cfg.MaxSucceed)
}

func TestRxSuccessJumpsUpAndResetsCounters(t *testing.T) {
	la := New(Config{Policy: SUBOPT, UseRxMode: true, Standard: standard.A11})
	la.currentMode = 1
	la.failCounter = 5
	la.succeedCounter = 5
	la.RxSuccess(4)
	assert.Equal(t, standard.Mode(4), la.currentMode)
	assert.Equal(t, 0, la.failCounter)
	assert.Equal(t, 0, la.succeedCounter)
}

func TestRxSuccessIgnoredWhenDisabledOrLower(t *testing.T) {
	la := New(Config{Policy: SUBOPT, UseRxMode: false, Standard: standard.A11})
	la.currentMode = 4
	la.RxSuccess(7)
	assert.Equal(t, standard.Mode(4), la.currentMode)

	la2 := New(Config{Policy: SUBOPT, UseRxMode: true, Standard: standard.A11})
	la2.currentMode = 4
	la2.RxSuccess(2)
	assert.Equal(t, standard.Mode(4), la2.currentMode)
}

func TestRTSFailedDelegatesToFailed(t *testing.T) {
	la := New(Config{Policy: SUBOPT, Metric: Rate, FailLimit: 1, Standard: standard.A11})
	la.currentMode = 2
	la.RTSFailed()
	assert.Equal(t, standard.Mode(1), la.currentMode)
}
