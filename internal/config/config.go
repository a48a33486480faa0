// SPDX-License-Identifier: GPL-3.0

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// ErrConfig signals an unknown key, an invalid value, or a semantic
// violation (e.g. probabilities not summing to 1) per §7 "Config".
type ErrConfig struct {
	Key string
	Msg string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Msg)
}

// LogCategories enumerates the `Log` key's recognized category names (§6).
var LogCategories = []string{"SETUP", "PHY", "MAC", "CHANNEL", "TRAFFIC", "ADAPT", "DEBUG"}

// recognizedScalarKeys are config.txt keys consumed directly by name
// (APPosition_<i> is handled separately by prefix, §6).
var recognizedScalarKeys = []string{
	"Seed", "MaxSimTime", "TransientTime", "Confidence", "TempOutputInterval",
	"NumberAPs", "NumberStas", "Radius", "PacketLength", "DataRate", "ArrivalTime",
	"UplinkFactor", "DownlinkFactor",
	"LossExponent", "RefLoss_dB", "NoiseVariance_dBm", "CCASensitivity_dBm",
	"DopplerSpread_Hz", "NumberSinus",
	"TxMode", "AdaptMode", "TargetPER",
	"TxPowerMax_dBm", "TxPowerMin_dBm", "TxPowerStepUp_dBm", "TxPowerStepDown_dBm",
	"LAMaxSucceedCounter", "LAFailLimit", "UseRxMode",
	"RTSThreshold", "RetryLimit", "FragmentationThreshold", "QueueSize",
	"ppAC_BK", "ppAC_BE", "ppAC_VI", "ppAC_VO", "ppAC_Legacy",
	"set_BA_agg", "Standard", "Log",
}

// Load reads and tokenizes config.txt at path into a koanf flat store.
// koanf supplies the generic key/value container (Keys/Get) on top of the
// package's rawParser, which understands config.txt's own grammar.
func Load(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), newRawParser()); err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	if err := checkUnknownKeys(k); err != nil {
		return nil, err
	}
	return k, nil
}

// checkUnknownKeys enforces §7's "unknown key" Config error: every key in
// the file must either be in recognizedScalarKeys or match the
// "APPosition_<i>" prefix.
func checkUnknownKeys(k *koanf.Koanf) error {
	known := make(map[string]bool, len(recognizedScalarKeys))
	for _, n := range recognizedScalarKeys {
		known[n] = true
	}
	for _, key := range k.Keys() {
		if known[key] {
			continue
		}
		if strings.HasPrefix(key, "APPosition_") {
			continue
		}
		return &ErrConfig{Key: key, Msg: "unknown key"}
	}
	return nil
}

// values returns the raw string tokens for key, or nil if absent.
func values(k *koanf.Koanf, key string) []string {
	v := k.Get(key)
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseFloat(key, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ErrConfig{Key: key, Msg: fmt.Sprintf("invalid float %q", s)}
	}
	return f, nil
}

func parseInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ErrConfig{Key: key, Msg: fmt.Sprintf("invalid integer %q", s)}
	}
	return n, nil
}

func parseUint64(key, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &ErrConfig{Key: key, Msg: fmt.Sprintf("invalid seed %q", s)}
	}
	return n, nil
}

func parseBool(key, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, &ErrConfig{Key: key, Msg: fmt.Sprintf("invalid bool %q", s)}
}

// parsePacketLength parses the "len1(prob1);len2(prob2);..." grammar of §6
// PacketLength. Probabilities must sum to 1 within a small tolerance.
func parsePacketLength(s string) ([]traffic.PacketLengthEntry, error) {
	parts := strings.Split(s, ";")
	entries := make([]traffic.PacketLengthEntry, 0, len(parts))
	sum := 0.0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		open := strings.IndexByte(p, '(')
		close := strings.IndexByte(p, ')')
		if open < 0 || close < open {
			return nil, &ErrConfig{Key: "PacketLength", Msg: fmt.Sprintf("malformed entry %q", p)}
		}
		lenBytes, err := parseInt("PacketLength", strings.TrimSpace(p[:open]))
		if err != nil {
			return nil, err
		}
		prob, err := parseFloat("PacketLength", strings.TrimSpace(p[open+1:close]))
		if err != nil {
			return nil, err
		}
		entries = append(entries, traffic.PacketLengthEntry{Bytes: wlanunits.Bytes(lenBytes), Prob: prob})
		sum += prob
	}
	if len(entries) == 0 {
		return nil, &ErrConfig{Key: "PacketLength", Msg: "no entries"}
	}
	if sum < 0.999 || sum > 1.001 {
		return nil, &ErrConfig{Key: "PacketLength", Msg: fmt.Sprintf("probabilities sum to %.6f, want 1", sum)}
	}
	return entries, nil
}

func parseArrival(s string) (traffic.Arrival, error) {
	switch strings.ToUpper(s) {
	case "CONST", "CONSTANT":
		return traffic.Constant, nil
	case "EXP":
		return traffic.Exponential, nil
	}
	return 0, &ErrConfig{Key: "ArrivalTime", Msg: fmt.Sprintf("unknown arrival type %q", s)}
}

// parseTxMode parses §6 TxMode's "OPT"|"SUBOPT"|"MCS0".."MCS9".
func parseTxMode(std standard.Standard, s string) (linkadapt.Policy, standard.Mode, error) {
	switch strings.ToUpper(s) {
	case "OPT":
		return linkadapt.OPT, 0, nil
	case "SUBOPT":
		return linkadapt.SUBOPT, 0, nil
	}
	if strings.HasPrefix(strings.ToUpper(s), "MCS") {
		n, err := parseInt("TxMode", strings.TrimPrefix(strings.ToUpper(s), "MCS"))
		if err != nil {
			return 0, 0, err
		}
		mode := standard.Mode(n)
		if mode > standard.MaxMCS(std) {
			return 0, 0, &ErrConfig{Key: "TxMode", Msg: fmt.Sprintf("MCS%d unsupported by %s", n, std)}
		}
		return linkadapt.Fixed, mode, nil
	}
	return 0, 0, &ErrConfig{Key: "TxMode", Msg: fmt.Sprintf("unknown mode %q", s)}
}

func parseAdaptMetric(s string) (linkadapt.Metric, error) {
	switch strings.ToUpper(s) {
	case "RATE":
		return linkadapt.Rate, nil
	case "POWER":
		return linkadapt.Power, nil
	}
	return 0, &ErrConfig{Key: "AdaptMode", Msg: fmt.Sprintf("unknown adapt metric %q", s)}
}

// parsePosition parses §6 "(x;y)" position syntax.
func parsePosition(key, s string) (topology.Point, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.Split(s, ";")
	if len(parts) != 2 {
		return topology.Point{}, &ErrConfig{Key: key, Msg: fmt.Sprintf("malformed position %q", s)}
	}
	x, err := parseFloat(key, strings.TrimSpace(parts[0]))
	if err != nil {
		return topology.Point{}, err
	}
	y, err := parseFloat(key, strings.TrimSpace(parts[1]))
	if err != nil {
		return topology.Point{}, err
	}
	return topology.Point{X: x, Y: y}, nil
}

// apPositionKeys returns the sorted list of "APPosition_<i>" keys present.
func apPositionKeys(k *koanf.Koanf) []string {
	var keys []string
	for _, key := range k.Keys() {
		if strings.HasPrefix(key, "APPosition_") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
