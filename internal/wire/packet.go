// SPDX-License-Identifier: GPL-3.0

// Package wire defines the simulator's over-the-air and queued packet
// types: MSDU (the upper-layer service data unit) and the MPDU variants
// exchanged by the MAC (§3). Duration derivation (§4.4.9) lives here since
// it depends only on the standard's bits-per-symbol table, not on any
// MAC/PHY state.
package wire

import (
	"fmt"
	"math"

	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// TerminalID is a small-integer handle identifying a Terminal (AP or STA),
// used in place of back-pointers per §9.
type TerminalID int

// PacketType enumerates the MPDU types the MAC exchanges (§3).
type PacketType int

const (
	DATA PacketType = iota
	ACK
	RTS
	CTS
	BA
	DUMMY
)

func (t PacketType) String() string {
	switch t {
	case DATA:
		return "DATA"
	case ACK:
		return "ACK"
	case RTS:
		return "RTS"
	case CTS:
		return "CTS"
	case BA:
		return "BA"
	case DUMMY:
		return "DUMMY"
	default:
		return fmt.Sprintf("PacketType(%d)", int(t))
	}
}

// AckPolicy enumerates how a DataMPDU expects to be acknowledged (§3).
type AckPolicy int

const (
	NoACK AckPolicy = iota
	NormalACK
	BlockACK
)

// MSDU is the MAC service data unit handed down from Traffic (§3).
// NBytesData, TID, Source, Target and TimeCreated are immutable once
// constructed; TxTime and RetryCount mutate as the MAC attempts delivery.
type MSDU struct {
	ID          simtime.PacketID
	NBytesData  wlanunits.Bytes
	TID         int
	Source      TerminalID
	Target      TerminalID
	TimeCreated simtime.Timestamp

	TxTime     simtime.Timestamp
	TxTimeSet  bool
	RetryCount int
}

// MPDU is a single on-air frame (§3).
type MPDU struct {
	ID       simtime.PacketID
	Type     PacketType
	Source   TerminalID
	Target   TerminalID
	Mode     standard.Mode
	TxPowerDBm float64
	Duration simtime.Timestamp
	NAV      simtime.Timestamp
	NBits    uint64

	// AckedIDs is populated only on BA frames: the PacketIDs being
	// acknowledged.
	AckedIDs []simtime.PacketID
}

// DataMPDU extends MPDU with fragmentation and ACK-policy fields (§3).
type DataMPDU struct {
	MPDU

	FragNumber int
	FragTotal  int
	MSDUID     simtime.PacketID
	TID        int
	NBytesData wlanunits.Bytes
	AckPolicy  AckPolicy
}

// OverheadBytes returns the MAC+PHY overhead byte count for the given
// packet type and ACK policy (§4.4.9). A 2-byte service field is always
// included; the 4-byte MPDU delimiter is added only for block-ACK DATA.
func OverheadBytes(pt PacketType, policy AckPolicy) wlanunits.Bytes {
	b := wlanunits.Bytes(standard.ServiceFieldBytes)
	switch pt {
	case DATA:
		b += standard.OverheadDataBytes
		if policy == BlockACK {
			b += standard.MPDUDelimiterBytes
		}
	case ACK:
		b += standard.OverheadAckBytes
	case RTS:
		b += standard.OverheadRTSBytes
	case CTS:
		b += standard.OverheadCTSBytes
	case BA:
		b += standard.OverheadBABytes
	case DUMMY:
	}
	return b
}

// NBits returns the total coded bit count for nbytesData payload bytes of
// the given type/policy, including overhead (§4.4.9: nbits =
// 8*(nbytes_data+nbytes_overhead)).
func NBits(pt PacketType, policy AckPolicy, nbytesData wlanunits.Bytes) uint64 {
	return (nbytesData + OverheadBytes(pt, policy)).Bits()
}

// Duration derives the on-air duration of a frame with the given bit count
// from the standard's bits-per-OFDM-symbol table plus fixed overhead
// symbols (§4.4.9):
//
//	duration = ceil((nbits+6)/bits_per_symbol)*symbol_period + (preamble ? 5*symbol_period : 0)
func Duration(std standard.Standard, mode standard.Mode, nbits uint64, addPreamble bool) simtime.Timestamp {
	bps := standard.BitsPerSymbol(std, mode)
	symPeriod := standard.SymbolPeriodSec(std)
	nsym := math.Ceil((float64(nbits) + 6) / bps)
	sec := nsym * symPeriod
	if addPreamble {
		sec += 5 * symPeriod
	}
	return simtime.FromSeconds(sec)
}

// FrameDuration is a convenience combining NBits and Duration for a frame
// of the given type/policy/payload size.
func FrameDuration(std standard.Standard, mode standard.Mode, pt PacketType, policy AckPolicy, nbytesData wlanunits.Bytes, addPreamble bool) (nbits uint64, dur simtime.Timestamp) {
	nbits = NBits(pt, policy, nbytesData)
	dur = Duration(std, mode, nbits, addPreamble)
	return
}
