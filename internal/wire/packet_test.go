// SPDX-License-Identifier: GPL-3.0

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

func TestOverheadBytesIncludesServiceField(t *testing.T) {
	assert.Equal(t, wlanunits.Bytes(standard.ServiceFieldBytes+standard.OverheadAckBytes), OverheadBytes(ACK, NoACK))
}

func TestOverheadBytesBlockAckAddsDelimiter(t *testing.T) {
	plain := OverheadBytes(DATA, NormalACK)
	ba := OverheadBytes(DATA, BlockACK)
	assert.Equal(t, wlanunits.Bytes(standard.MPDUDelimiterBytes), ba-plain)
}

func TestDurationIncreasesWithPayload(t *testing.T) {
	d1 := Duration(standard.A11, 0, 100, true)
	d2 := Duration(standard.A11, 0, 1000, true)
	assert.Greater(t, uint64(d2), uint64(d1))
}

func TestDurationPreambleAddsFixedOverhead(t *testing.T) {
	withP := Duration(standard.A11, 0, 800, true)
	withoutP := Duration(standard.A11, 0, 800, false)
	assert.Greater(t, uint64(withP), uint64(withoutP))
}

func TestFrameDurationDataVsAck(t *testing.T) {
	_, dData := FrameDuration(standard.A11, 0, DATA, NormalACK, 500, true)
	_, dAck := FrameDuration(standard.A11, 0, ACK, NoACK, 0, true)
	assert.Greater(t, uint64(dData), uint64(dAck))
}
