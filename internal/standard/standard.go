// SPDX-License-Identifier: GPL-3.0

// Package standard holds the per-802.11-standard lookup tables referenced
// throughout the PHY and MAC layers: bits-per-OFDM-symbol by MCS, symbol
// period, and the BER threshold/polynomial tables used by the PHY's error
// model (§4.3). These are "dynamic dispatch on a finite tagged enum" per
// §9: Standard and Mode are plain integer enums, not an open hierarchy.
package standard

import "fmt"

// Standard selects which 802.11 PHY tables apply.
type Standard int

const (
	A11 Standard = iota
	N11
	AC11
	AH11
)

func (s Standard) String() string {
	switch s {
	case A11:
		return "802.11a"
	case N11:
		return "802.11n"
	case AC11:
		return "802.11ac"
	case AH11:
		return "802.11ah"
	default:
		return fmt.Sprintf("Standard(%d)", int(s))
	}
}

// ParseStandard maps a config string to a Standard.
func ParseStandard(s string) (Standard, error) {
	switch s {
	case "802.11a":
		return A11, nil
	case "802.11n", "n":
		return N11, nil
	case "802.11ac", "ac":
		return AC11, nil
	case "802.11ah", "ah":
		return AH11, nil
	}
	return 0, fmt.Errorf("standard: unknown standard %q", s)
}

// Mode is a Modulation and Coding Scheme index, or an adaptation sentinel.
type Mode int

// ModeAuto requests that LinkAdapt choose the Mode; it is never a valid PHY
// transmission mode on its own.
const ModeAuto Mode = -1

const maxModeSlots = 10

// MaxMCS returns the highest valid Mode for the given Standard.
func MaxMCS(s Standard) Mode {
	switch s {
	case AC11, AH11:
		return Mode(8)
	default:
		return Mode(7)
	}
}

// ClampMCS clamps m to [0, MaxMCS(s)], fixing a malformed increment
// guard in the source this was adapted from: the intent was always to
// clamp at the standard's maximum MCS.
func ClampMCS(s Standard, m Mode) Mode {
	if m < 0 {
		return 0
	}
	if max := MaxMCS(s); m > max {
		return max
	}
	return m
}

// SymbolPeriodSec returns the OFDM symbol period in seconds for the
// standard: 4us for a/n/ac, 40us for the 1MHz-bandwidth 802.11ah (§4.4.9).
func SymbolPeriodSec(s Standard) float64 {
	if s == AH11 {
		return 40e-6
	}
	return 4e-6
}

// bitsPerSymbol holds, per standard, the coded information bits carried by
// one OFDM symbol at each MCS index, increasing with modulation order and
// coding rate (BPSK 1/2 through 64-QAM 3/4 on 802.11a, 64-QAM 5/6 on
// 802.11n and 256-QAM 3/4 on 802.11ac/ah).
var bitsPerSymbol = map[Standard][maxModeSlots]float64{
	A11:  {24, 36, 48, 72, 96, 144, 192, 216, 216, 216},
	N11:  {26, 52, 78, 104, 156, 208, 234, 260, 260, 260},
	AC11: {26, 52, 78, 104, 156, 208, 234, 260, 312, 312},
	// 802.11ah uses the same modulation/coding ladder as 802.11ac (§4.4.9);
	// it differs only in symbol period, handled by SymbolPeriodSec.
	AH11: {26, 52, 78, 104, 156, 208, 234, 260, 312, 312},
}

// BitsPerSymbol returns the bits-per-OFDM-symbol for the given mode on the
// given standard.
func BitsPerSymbol(s Standard, m Mode) float64 {
	m = ClampMCS(s, m)
	return bitsPerSymbol[s][m]
}

// The BER model (§4.3): below MinThreshDb, BER is pinned at 0.5; above
// MaxThreshDb, the 2-coefficient "high SNR" polynomial applies; in
// between, the 5-coefficient polynomial applies. Both polynomials
// evaluate in the exponent: BER = 10^p(SNR).

// Per-mode SNR thresholds and polynomial coefficients for 802.11a (8
// modes, MCS0-7).
var (
	minThreshA = [8]float64{-2.5103, 0.75061, 0.5000, 3.7609, 5.5103, 9.2712, 12.5206, 14.5321}
	maxThreshA = [8]float64{1.9897, 5.2506, 5.0000, 8.2609, 10.5103, 14.7712, 18.5206, 20.0321}
	coeffA     = [8][5]float64{
		{-2.2353000, -1.0721000, -0.1708900, 0.0243860, 0.0096656},
		{-0.3624500, -0.2937100, -0.0011057, -0.0408500, 0.0038022},
		{-0.4517200, -0.3560888, 0.0627930, -0.0651410, 0.0064799},
		{-0.3082200, -0.2063400, 0.1547100, -0.0389730, 0.0018157},
		{2.6965000, -1.9353000, 0.4736600, -0.0509360, 0.0016224},
		{34.8692000, -13.9070000, 2.0328000, -0.1283100, 0.0028499},
		{93.9622000, -26.7075000, 2.8106000, -0.1290100, 0.0021372},
		{-120.1972000, 26.3772000, -2.1564000, 0.0787190, -0.0011189},
	}
	coeffHighA = [8][2]float64{
		{-2.3974, -1.1580},
		{2.8250, -1.4824},
		{2.1138, -1.3738},
		{7.7079, -1.5347},
		{9.2576, -1.3244},
		{11.3789, -1.1004},
		{14.6479, -1.0454},
		{20.0742, -1.2278},
	}
)

// Per-mode SNR thresholds and polynomial coefficients for 802.11n (8
// modes, MCS0-7).
var (
	minThreshN = [8]float64{-2.5103, 0.5000, 3.7609, 5.5103, 9.2712, 12.5206, 14.5321, 11.6188}
	maxThreshN = [8]float64{1.9897, 5.0000, 8.2609, 10.5103, 14.7712, 18.5206, 20.0321, 21.5000}
	coeffN     = [8][5]float64{
		{-2.2353000, -1.0721000, -0.1708900, 0.0243860, 0.0096656},
		{-0.4517200, -0.3560888, 0.0627930, -0.0651410, 0.0064799},
		{-0.3082200, -0.2063400, 0.1547100, -0.0389730, 0.0018157},
		{2.6965000, -1.9353000, 0.4736600, -0.0509360, 0.0016224},
		{34.8692000, -13.9070000, 2.0328000, -0.1283100, 0.0028499},
		{93.9622000, -26.7075000, 2.8106000, -0.1290100, 0.0021372},
		{-120.1972000, 26.3772000, -2.1564000, 0.0787190, -0.0011189},
		{-42.9748720, 11.0385340, -1.0249930, 0.0411790, -0.0006080},
	}
	coeffHighN = [8][2]float64{
		{-2.3974, -1.1580},
		{2.1138, -1.3738},
		{7.7079, -1.5347},
		{9.2576, -1.3244},
		{11.3789, -1.1004},
		{14.6479, -1.0454},
		{20.0742, -1.2278},
		{21.2886, -1.2977},
	}
)

// Per-mode SNR thresholds and polynomial coefficients shared by 802.11ac
// and 802.11ah (9 modes, MCS0-8; the two standards use the same
// modulation/coding ladder per Standard.cpp's get_min_thresh/get_coeff).
var (
	minThreshACAH = [9]float64{-2.5103, 0.5000, 3.7609, 5.5103, 9.2712, 12.5206, 14.5321, 11.6188, 15.4106}
	maxThreshACAH = [9]float64{1.9897, 5.0000, 8.2609, 10.5103, 14.7712, 18.5206, 20.0321, 21.5000, 22.5000}
	coeffACAH     = [9][5]float64{
		{-2.2353000, -1.0721000, -0.1708900, 0.0243860, 0.0096656},
		{-0.4517200, -0.3560888, 0.0627930, -0.0651410, 0.0064799},
		{-0.3082200, -0.2063400, 0.1547100, -0.0389730, 0.0018157},
		{2.6965000, -1.9353000, 0.4736600, -0.0509360, 0.0016224},
		{34.8692000, -13.9070000, 2.0328000, -0.1283100, 0.0028499},
		{93.9622000, -26.7075000, 2.8106000, -0.1290100, 0.0021372},
		{-120.1972000, 26.3772000, -2.1564000, 0.0787190, -0.0011189},
		{-42.9748720, 11.0385340, -1.0249930, 0.0411790, -0.0006080},
		{-159.2792400, 33.9061380, -2.6679000, 0.0922430, -0.0011850},
	}
	coeffHighACAH = [9][2]float64{
		{-2.3974, -1.1580},
		{2.1138, -1.3738},
		{7.7079, -1.5347},
		{9.2576, -1.3244},
		{11.3789, -1.1004},
		{14.6479, -1.0454},
		{20.0742, -1.2278},
		{21.2886, -1.2977},
		{18.1224, -0.9725},
	}
)

// BERParams returns the BER model parameters for the given standard+mode,
// from the standard-specific lookup tables (§4.3).
func BERParams(s Standard, m Mode) (minThreshDb, maxThreshDb float64, high [2]float64, mid [5]float64) {
	idx := int(ClampMCS(s, m))
	switch s {
	case A11:
		return minThreshA[idx], maxThreshA[idx], coeffHighA[idx], coeffA[idx]
	case N11:
		return minThreshN[idx], maxThreshN[idx], coeffHighN[idx], coeffN[idx]
	default: // AC11, AH11 share one table.
		return minThreshACAH[idx], maxThreshACAH[idx], coeffHighACAH[idx], coeffACAH[idx]
	}
}

// Overhead byte counts per MPDU type (§4.4.9). A 2-byte service field is
// always added on top of these in nbytes_overhead.
const (
	ServiceFieldBytes  = 2
	OverheadDataBytes  = 28
	OverheadAckBytes   = 14
	OverheadRTSBytes   = 20
	OverheadCTSBytes   = 14
	OverheadBABytes    = 20
	MPDUDelimiterBytes = 4 // added only when ack_policy==blockACK
)

// TXOPMaxScale returns the multiplier applied to VI/VO TXOPmax on 802.11ah
// (§4.4.1: "multiplies TXOPmax by 10").
func TXOPMaxScale(s Standard) float64 {
	if s == AH11 {
		return 10
	}
	return 1
}
