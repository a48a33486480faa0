// SPDX-License-Identifier: GPL-3.0

// Package stats implements the Welford-equivalent running accumulator used
// for the per-terminal delay and queue-length statistics and the per-metric
// cross-seed summaries (§4.7): a (sum, sumsq, n)
// triple updated online from each sample, with mean/stddev/confidence-width
// derived on demand rather than from a retained sample list. This mirrors
// how deltic.go/delmin.go track running RTT/CWND statistics inline rather
// than buffering samples.
package stats

import (
	"math"

	"github.com/wlansim/wlansim/internal/numerics"
)

// Accumulator is a running (sum, sumsq, n) triple for one scalar metric.
type Accumulator struct {
	sum   float64
	sumsq float64
	n     int64
}

// Add records one sample.
func (a *Accumulator) Add(x float64) {
	a.sum += x
	a.sumsq += x * x
	a.n++
}

// N returns the number of recorded samples.
func (a *Accumulator) N() int64 { return a.n }

// Mean returns the sample mean, or 0 if no samples have been recorded.
func (a *Accumulator) Mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

// Variance returns the unbiased sample variance, or 0 if n <= 1.
func (a *Accumulator) Variance() float64 {
	if a.n <= 1 {
		return 0
	}
	n := float64(a.n)
	mean := a.sum / n
	v := (a.sumsq - n*mean*mean) / (n - 1)
	if v < 0 {
		// Rounding can drive this marginally negative for near-zero variance.
		v = 0
	}
	return v
}

// StdDev returns the unbiased sample standard deviation.
func (a *Accumulator) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

// ConfidenceWidth returns the half-width of a two-sided confidence interval
// at the given confidence level (e.g. 0.95), per §4.7: s · t_{1-(1-c)/2,n-1}.
// n <= 1 returns +Inf (no interval can be formed from a single sample).
func (a *Accumulator) ConfidenceWidth(confidence float64) float64 {
	if a.n <= 1 {
		return math.Inf(1)
	}
	df := float64(a.n - 1)
	p := 1 - (1-confidence)/2
	t := numerics.StudentTPPF(p, df)
	return a.StdDev() * t
}
