// SPDX-License-Identifier: GPL-3.0

package simtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampMonotoneNonNegative(t *testing.T) {
	var z Timestamp
	assert.Equal(t, Timestamp(0), z)
	assert.Panics(t, func() { FromSeconds(-1) })
}

func TestTimestampOverflowTraps(t *testing.T) {
	require.Panics(t, func() {
		Max.Add(1)
	})
}

func TestTimestampUnderflowTraps(t *testing.T) {
	require.Panics(t, func() {
		Timestamp(0).Sub(1)
	})
}

func TestTimestampRoundTripLossy(t *testing.T) {
	ts := FromSeconds(1.2345)
	got := ts.Seconds()
	assert.InDelta(t, 1.2345, got, Tick*2)
}

func TestPacketIDGenMonotonic(t *testing.T) {
	g := NewPacketIDGen()
	a := g.Next()
	b := g.Next()
	assert.Less(t, uint64(a), uint64(b))
}

func TestEventIDGenMonotonic(t *testing.T) {
	g := NewEventIDGen()
	a := g.Next()
	b := g.Next()
	assert.Less(t, uint64(a), uint64(b))
}
