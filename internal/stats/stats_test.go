// SPDX-License-Identifier: GPL-3.0

package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorMeanAndVariance(t *testing.T) {
	var a Accumulator
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		a.Add(x)
	}
	assert.Equal(t, int64(8), a.N())
	assert.InDelta(t, 5.0, a.Mean(), 1e-9)
	assert.InDelta(t, 4.571428571, a.Variance(), 1e-6)
}

func TestAccumulatorConfidenceWidthSingleSampleIsInf(t *testing.T) {
	var a Accumulator
	a.Add(1)
	assert.Equal(t, math.Inf(1), a.ConfidenceWidth(0.95))

	var empty Accumulator
	assert.Equal(t, math.Inf(1), empty.ConfidenceWidth(0.95))
}

func TestAccumulatorConfidenceWidthPositive(t *testing.T) {
	var a Accumulator
	for _, x := range []float64{1, 2, 3, 4, 5} {
		a.Add(x)
	}
	w := a.ConfidenceWidth(0.95)
	assert.Greater(t, w, 0.0)
	assert.Less(t, w, 10.0)
}

func TestAccumulatorZeroVarianceForConstantSamples(t *testing.T) {
	var a Accumulator
	for i := 0; i < 5; i++ {
		a.Add(3.0)
	}
	assert.Equal(t, 0.0, a.Variance())
	assert.Equal(t, 0.0, a.StdDev())
}
