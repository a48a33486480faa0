// SPDX-License-Identifier: GPL-3.0

// Link implements Jakes' sum-of-sinusoids Rayleigh fading (§4.2.1). The
// caching shape (lazily-evaluated, per-link state keyed by a stable ID) is
// grounded on openthread-ot-ns's radiomodel/fading_model.go, though that
// file's actual fading formula (log-normal shadow + periodic Gaussian
// re-roll) is not what we implement: the formula here follows §4.2.1's
// Jakes' model exactly.
package channel

import (
	"math"

	"github.com/wlansim/wlansim/internal/numerics"
	"github.com/wlansim/wlansim/internal/rng"
	"github.com/wlansim/wlansim/internal/simtime"
)

// Link is one Rayleigh-fading radio link between two PHYs.
type Link struct {
	fd      float64 // Doppler spread, Hz
	meanDB  float64
	cosBeta []float64
	sinBeta []float64
	omega   []float64
	theta   []float64
	alpha   float64

	haveEval     bool
	lastEvalTime simtime.Timestamp
	lastResult   float64
	// minSafeDelta is the smallest Δt observed so far for which
	// J0(2*pi*fd*Δt) >= 0.9999; per §9's documented open question, this is
	// cached as a lower bound for future early-outs and is never reduced,
	// so a very small fd can cause the cache to "freeze" fading at a
	// stale value indefinitely. This is the source's behavior, preserved
	// and documented rather than fixed.
	minSafeDelta  simtime.Timestamp
	haveSafeDelta bool
}

// NewLink returns a new Link with N sinusoids, Doppler spread fd (Hz), and
// long-term mean path loss meanDB, using r to draw the random phases.
func NewLink(n int, fd float64, meanDB float64, r *rng.RNG) *Link {
	l := &Link{fd: fd, meanDB: meanDB}
	if n <= 0 {
		return l
	}
	l.cosBeta = make([]float64, n)
	l.sinBeta = make([]float64, n)
	l.omega = make([]float64, n)
	l.theta = make([]float64, n)
	for i := 0; i < n; i++ {
		beta := math.Pi * float64(i+1) / float64(n)
		l.cosBeta[i] = math.Cos(beta)
		l.sinBeta[i] = math.Sin(beta)
		l.omega[i] = 2 * math.Pi * fd * math.Cos(beta*float64(n)/float64(2*n+1))
		l.theta[i] = r.Uniform(0, 2*math.Pi)
	}
	l.alpha = r.Uniform(0, 2*math.Pi)
	return l
}

// Fade returns the current path loss in dB at time t, including fading.
func (l *Link) Fade(now simtime.Timestamp) float64 {
	if l.fd <= 0 || len(l.omega) == 0 {
		return l.meanDB
	}
	if l.haveEval {
		delta := now
		if now >= l.lastEvalTime {
			delta = now - l.lastEvalTime
		} else {
			delta = 0
		}
		if l.haveSafeDelta && delta <= l.minSafeDelta {
			return l.lastResult
		}
		deltaSec := delta.Seconds()
		j0 := numerics.BesselJ0(2 * math.Pi * l.fd * deltaSec)
		if j0 >= 0.9999 {
			if !l.haveSafeDelta || delta < l.minSafeDelta {
				l.minSafeDelta = delta
				l.haveSafeDelta = true
			}
			return l.lastResult
		}
	}

	tSec := now.Seconds()
	var x, y float64
	for i := range l.omega {
		c := math.Cos(l.omega[i]*tSec + l.theta[i])
		x += l.cosBeta[i] * c * 2
		y += l.sinBeta[i] * c * 2
	}
	c0 := math.Cos(2 * math.Pi * l.fd * tSec)
	x += math.Sqrt2 * math.Cos(l.alpha) * c0
	y += math.Sqrt2 * math.Sin(l.alpha) * c0

	amp := math.Sqrt(x*x+y*y) / math.Sqrt(float64(len(l.omega))+0.5)
	pl := l.meanDB - 20*math.Log10(amp)

	l.lastResult = pl
	l.lastEvalTime = now
	l.haveEval = true
	return pl
}
