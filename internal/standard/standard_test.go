// SPDX-License-Identifier: GPL-3.0

package standard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStandard(t *testing.T) {
	s, err := ParseStandard("802.11ac")
	require.NoError(t, err)
	assert.Equal(t, AC11, s)

	_, err = ParseStandard("802.11z")
	assert.Error(t, err)
}

func TestClampMCSBounds(t *testing.T) {
	assert.Equal(t, Mode(0), ClampMCS(A11, -5))
	assert.Equal(t, MaxMCS(A11), ClampMCS(A11, 100))
	assert.Equal(t, Mode(8), ClampMCS(AH11, 9))
	assert.Equal(t, Mode(7), ClampMCS(N11, 9))
}

func TestSymbolPeriodPerStandard(t *testing.T) {
	assert.Equal(t, 4e-6, SymbolPeriodSec(A11))
	assert.Equal(t, 40e-6, SymbolPeriodSec(AH11))
}

func TestBitsPerSymbolIncreasesWithMCS(t *testing.T) {
	prev := 0.0
	for m := Mode(0); m <= MaxMCS(AC11); m++ {
		b := BitsPerSymbol(AC11, m)
		assert.GreaterOrEqual(t, b, prev)
		prev = b
	}
}

func TestTXOPMaxScale(t *testing.T) {
	assert.Equal(t, 1.0, TXOPMaxScale(N11))
	assert.Equal(t, 10.0, TXOPMaxScale(AH11))
}

func TestBERParamsThresholdsBracketEveryMode(t *testing.T) {
	for m := Mode(0); m <= MaxMCS(A11); m++ {
		minT, maxT, _, _ := BERParams(A11, m)
		assert.Greater(t, maxT, minT)
	}
}
