// SPDX-License-Identifier: GPL-3.0

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/v2"

	"github.com/wlansim/wlansim/internal/channel"
	"github.com/wlansim/wlansim/internal/linkadapt"
	"github.com/wlansim/wlansim/internal/mac"
	"github.com/wlansim/wlansim/internal/simtime"
	"github.com/wlansim/wlansim/internal/standard"
	"github.com/wlansim/wlansim/internal/topology"
	"github.com/wlansim/wlansim/internal/traffic"
	"github.com/wlansim/wlansim/internal/wlanunits"
)

// ACShare pairs an access category with its configured station population
// fraction (§6 ppAC_BK/BE/VI/VO/Legacy).
type ACShare struct {
	AC    mac.AC
	Share float64
}

// Scenario is one fully-resolved parameter-sweep point: every sweepable
// config.txt key has been pinned to a single value (§6 "Multi-valued
// parameters are swept as a Cartesian product").
type Scenario struct {
	Label string // e.g. "AdaptMode=RATE;...;Standard=802.11a;...;Seed=42", for results.txt/log naming

	Seed               uint64
	MaxSimTime         simtime.Timestamp
	TransientTime      simtime.Timestamp
	Confidence         float64
	TempOutputInterval simtime.Timestamp

	NumberAPs   int
	NumberStas  int
	APPositions []topology.Point
	Radius      float64

	PacketLength   []traffic.PacketLengthEntry
	DataRateMbps   float64
	Arrival        traffic.Arrival
	UplinkFactor   float64
	DownlinkFactor float64

	Channel channel.Config
	PHYCfg  struct {
		CCASensitivityDBm float64
		NoiseVarianceDBm  float64
	}

	Standard standard.Standard

	RTSThreshold           wlanunits.Bytes
	RetryLimit             int
	FragmentationThreshold wlanunits.Bytes
	QueueSize              int
	SetBAAgg               bool

	LAPolicy      linkadapt.Policy
	LAMetric      linkadapt.Metric
	FixedMode     standard.Mode
	TargetPER     float64
	PMax, PMin    float64
	PStepUp       float64
	PStepDown     float64
	LAMaxSucceed  int
	LAFailLimit   int
	UseRxMode     bool
	AdaptLAThresh bool

	PPAC []ACShare

	LogCategories map[string]bool
}

// dim is one Cartesian-product sweep dimension: a recognized key and its
// list of raw string values.
type dim struct {
	key  string
	vals []string
}

// BuildSweep parses every recognized key out of k and returns one Scenario
// per point in the Cartesian product of all multi-valued parameters, with
// Seed forming the innermost (fastest-varying) loop per §6.
func BuildSweep(k *koanf.Koanf) ([]*Scenario, error) {
	defaults := map[string]string{
		"TransientTime":          "0",
		"Confidence":             "0.95",
		"TempOutputInterval":     "10",
		"Radius":                 "50",
		"UplinkFactor":           "1",
		"DownlinkFactor":         "1",
		"LossExponent":           "2",
		"RefLoss_dB":             "40",
		"NoiseVariance_dBm":      "-95",
		"CCASensitivity_dBm":     "-82",
		"DopplerSpread_Hz":       "0",
		"NumberSinus":            "0",
		"TxMode":                 "SUBOPT",
		"AdaptMode":              "RATE",
		"TargetPER":              "0.1",
		"TxPowerMax_dBm":         "20",
		"TxPowerMin_dBm":         "0",
		"TxPowerStepUp_dBm":      "1",
		"TxPowerStepDown_dBm":    "1",
		"LAMaxSucceedCounter":    "0",
		"LAFailLimit":            "2",
		"UseRxMode":              "false",
		"RTSThreshold":           "2347",
		"RetryLimit":             "7",
		"FragmentationThreshold": "2312",
		"QueueSize":              "50",
		"ppAC_BK":                "0",
		"ppAC_BE":                "0",
		"ppAC_VI":                "0",
		"ppAC_VO":                "0",
		"ppAC_Legacy":            "1",
		"set_BA_agg":             "false",
	}
	required := []string{"Seed", "MaxSimTime", "NumberAPs", "NumberStas", "DataRate", "PacketLength", "ArrivalTime", "Standard"}
	for _, r := range required {
		if len(values(k, r)) == 0 {
			return nil, &ErrConfig{Key: r, Msg: "required key missing"}
		}
	}

	var dims []dim
	for _, key := range recognizedScalarKeys {
		if key == "Log" {
			continue // applies globally, not swept
		}
		vs := values(k, key)
		if len(vs) == 0 {
			vs = []string{defaults[key]}
		}
		if key == "Seed" {
			continue // appended last, below
		}
		dims = append(dims, dim{key: key, vals: vs})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].key < dims[j].key })
	dims = append(dims, dim{key: "Seed", vals: values(k, "Seed")})

	combos := cartesian(dims)

	known := make(map[string]bool, len(LogCategories))
	for _, c := range LogCategories {
		known[c] = true
	}
	logCats := make(map[string]bool)
	for _, c := range values(k, "Log") {
		c = strings.ToUpper(c)
		if !known[c] {
			return nil, &ErrConfig{Key: "Log", Msg: fmt.Sprintf("unknown category %q", c)}
		}
		logCats[c] = true
	}

	var scenarios []*Scenario
	for _, combo := range combos {
		sc, err := buildScenario(combo, k, logCats)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// cartesian returns the Cartesian product of dims as a slice of
// key->value maps; the last dim in dims varies fastest, i.e. forms the
// innermost loop.
func cartesian(dims []dim) []map[string]string {
	result := []map[string]string{{}}
	for _, d := range dims {
		var next []map[string]string
		for _, combo := range result {
			for _, v := range d.vals {
				c := make(map[string]string, len(combo)+1)
				for k, v := range combo {
					c[k] = v
				}
				c[d.key] = v
				next = append(next, c)
			}
		}
		result = next
	}
	return result
}

func buildScenario(combo map[string]string, k *koanf.Koanf, logCats map[string]bool) (*Scenario, error) {
	sc := &Scenario{LogCategories: logCats}

	seed, err := parseUint64("Seed", combo["Seed"])
	if err != nil {
		return nil, err
	}
	sc.Seed = seed

	maxSimSec, err := parseFloat("MaxSimTime", combo["MaxSimTime"])
	if err != nil {
		return nil, err
	}
	sc.MaxSimTime = simtime.FromSeconds(maxSimSec)

	transientSec, err := parseFloat("TransientTime", combo["TransientTime"])
	if err != nil {
		return nil, err
	}
	sc.TransientTime = simtime.FromSeconds(transientSec)

	sc.Confidence, err = parseFloat("Confidence", combo["Confidence"])
	if err != nil {
		return nil, err
	}

	tempOutSec, err := parseFloat("TempOutputInterval", combo["TempOutputInterval"])
	if err != nil {
		return nil, err
	}
	sc.TempOutputInterval = simtime.FromSeconds(tempOutSec)

	sc.NumberAPs, err = parseInt("NumberAPs", combo["NumberAPs"])
	if err != nil {
		return nil, err
	}
	sc.NumberStas, err = parseInt("NumberStas", combo["NumberStas"])
	if err != nil {
		return nil, err
	}

	sc.Radius, err = parseFloat("Radius", combo["Radius"])
	if err != nil {
		return nil, err
	}

	for _, key := range apPositionKeys(k) {
		vs := values(k, key)
		if len(vs) == 0 {
			continue
		}
		p, err := parsePosition(key, vs[0])
		if err != nil {
			return nil, err
		}
		sc.APPositions = append(sc.APPositions, p)
	}
	if len(sc.APPositions) == 0 {
		for i := 0; i < sc.NumberAPs; i++ {
			sc.APPositions = append(sc.APPositions, topology.Point{})
		}
	}

	sc.PacketLength, err = parsePacketLength(combo["PacketLength"])
	if err != nil {
		return nil, err
	}

	sc.DataRateMbps, err = parseFloat("DataRate", combo["DataRate"])
	if err != nil {
		return nil, err
	}

	sc.Arrival, err = parseArrival(combo["ArrivalTime"])
	if err != nil {
		return nil, err
	}

	sc.UplinkFactor, err = parseFloat("UplinkFactor", combo["UplinkFactor"])
	if err != nil {
		return nil, err
	}
	sc.DownlinkFactor, err = parseFloat("DownlinkFactor", combo["DownlinkFactor"])
	if err != nil {
		return nil, err
	}

	sc.Channel.LossExponent, err = parseFloat("LossExponent", combo["LossExponent"])
	if err != nil {
		return nil, err
	}
	sc.Channel.RefLossDB, err = parseFloat("RefLoss_dB", combo["RefLoss_dB"])
	if err != nil {
		return nil, err
	}
	sc.Channel.DopplerSpreadHz, err = parseFloat("DopplerSpread_Hz", combo["DopplerSpread_Hz"])
	if err != nil {
		return nil, err
	}
	sc.Channel.NumberSinus, err = parseInt("NumberSinus", combo["NumberSinus"])
	if err != nil {
		return nil, err
	}

	sc.PHYCfg.NoiseVarianceDBm, err = parseFloat("NoiseVariance_dBm", combo["NoiseVariance_dBm"])
	if err != nil {
		return nil, err
	}
	sc.PHYCfg.CCASensitivityDBm, err = parseFloat("CCASensitivity_dBm", combo["CCASensitivity_dBm"])
	if err != nil {
		return nil, err
	}

	sc.Standard, err = standard.ParseStandard(combo["Standard"])
	if err != nil {
		return nil, &ErrConfig{Key: "Standard", Msg: err.Error()}
	}

	rts, err := parseInt("RTSThreshold", combo["RTSThreshold"])
	if err != nil {
		return nil, err
	}
	sc.RTSThreshold = wlanunits.Bytes(rts)

	sc.RetryLimit, err = parseInt("RetryLimit", combo["RetryLimit"])
	if err != nil {
		return nil, err
	}

	frag, err := parseInt("FragmentationThreshold", combo["FragmentationThreshold"])
	if err != nil {
		return nil, err
	}
	sc.FragmentationThreshold = wlanunits.Bytes(frag)

	sc.QueueSize, err = parseInt("QueueSize", combo["QueueSize"])
	if err != nil {
		return nil, err
	}

	sc.SetBAAgg, err = parseBool("set_BA_agg", combo["set_BA_agg"])
	if err != nil {
		return nil, err
	}

	sc.LAPolicy, sc.FixedMode, err = parseTxMode(sc.Standard, combo["TxMode"])
	if err != nil {
		return nil, err
	}
	sc.LAMetric, err = parseAdaptMetric(combo["AdaptMode"])
	if err != nil {
		return nil, err
	}
	sc.TargetPER, err = parseFloat("TargetPER", combo["TargetPER"])
	if err != nil {
		return nil, err
	}
	sc.PMax, err = parseFloat("TxPowerMax_dBm", combo["TxPowerMax_dBm"])
	if err != nil {
		return nil, err
	}
	sc.PMin, err = parseFloat("TxPowerMin_dBm", combo["TxPowerMin_dBm"])
	if err != nil {
		return nil, err
	}
	sc.PStepUp, err = parseFloat("TxPowerStepUp_dBm", combo["TxPowerStepUp_dBm"])
	if err != nil {
		return nil, err
	}
	sc.PStepDown, err = parseFloat("TxPowerStepDown_dBm", combo["TxPowerStepDown_dBm"])
	if err != nil {
		return nil, err
	}
	sc.LAMaxSucceed, err = parseInt("LAMaxSucceedCounter", combo["LAMaxSucceedCounter"])
	if err != nil {
		return nil, err
	}
	sc.LAFailLimit, err = parseInt("LAFailLimit", combo["LAFailLimit"])
	if err != nil {
		return nil, err
	}
	sc.UseRxMode, err = parseBool("UseRxMode", combo["UseRxMode"])
	if err != nil {
		return nil, err
	}

	acKeys := []struct {
		key string
		ac  mac.AC
	}{
		{"ppAC_BK", mac.BK}, {"ppAC_BE", mac.BE}, {"ppAC_VI", mac.VI},
		{"ppAC_VO", mac.VO}, {"ppAC_Legacy", mac.Legacy},
	}
	sum := 0.0
	for _, e := range acKeys {
		share, err := parseFloat(e.key, combo[e.key])
		if err != nil {
			return nil, err
		}
		sc.PPAC = append(sc.PPAC, ACShare{AC: e.ac, Share: share})
		sum += share
	}
	if sum < 0.999 || sum > 1.001 {
		return nil, &ErrConfig{Key: "ppAC_*", Msg: fmt.Sprintf("AC shares sum to %.6f, want 1", sum)}
	}

	sc.Label = sweepLabel(combo)
	return sc, nil
}

// sweepLabel builds a stable, human-readable identifier for one sweep
// point from every key in combo (each recognized key except Log, defaults
// included, whether or not it varies across the sweep), as key=value pairs
// sorted by key and joined by ';', for results.txt and sim.log headers.
func sweepLabel(combo map[string]string) string {
	keys := make([]string, 0, len(combo))
	for k := range combo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%s", k, combo[k])
	}
	return b.String()
}
