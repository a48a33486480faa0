// SPDX-License-Identifier: GPL-3.0

// Package metrics defines the Prometheus collectors dumped to metrics.prom
// at the end of a sweep (§6: "real-time export is a Non-goal; metrics are
// written to file once the run completes"). The Collector shape follows
// dantte-lp-gobfd's bfdmetrics.Collector: one struct of GaugeVec/CounterVec
// fields registered against a private prometheus.Registry (never the
// package-global DefaultRegisterer, so successive sweep iterations don't
// collide), labeled by terminal and access category.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "wlansim"
	subsystem = "terminal"
)

const (
	labelTerminal = "terminal"
	labelAC       = "ac"
	labelScenario = "scenario"
)

// Collector holds every per-terminal metric exported for one sweep point.
type Collector struct {
	BytesDelivered   *prometheus.CounterVec
	PacketsDelivered *prometheus.CounterVec
	PacketsDropped   *prometheus.CounterVec // labeled by reason=queue|retries
	TransferDelay    *prometheus.HistogramVec
	QueueLength      *prometheus.GaugeVec
	RadiatedEnergy   *prometheus.GaugeVec
	CurrentMode      *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics against reg.
// cmd/sim registers one Collector for the whole sweep; each metric carries a
// scenario label, so series from different sweep points stay separate.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		BytesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "bytes_delivered_total",
			Help: "Total MSDU payload bytes successfully delivered.",
		}, []string{labelTerminal, labelScenario}),
		PacketsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "packets_delivered_total",
			Help: "Total MSDUs successfully delivered end to end.",
		}, []string{labelTerminal, labelScenario}),
		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "packets_dropped_total",
			Help: "Total MSDUs dropped, labeled by reason (queue|retries).",
		}, []string{labelTerminal, "reason", labelScenario}),
		TransferDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "transfer_delay_seconds",
			Help:    "End-to-end (creation to delivery) delay distribution.",
			Buckets: prometheus.DefBuckets,
		}, []string{labelTerminal, labelScenario}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "mean_queue_length",
			Help: "Mean sampled MAC queue length over the run.",
		}, []string{labelTerminal, labelScenario}),
		RadiatedEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "radiated_energy_mw_sec",
			Help: "Cumulative radiated transmit energy, in mW*s.",
		}, []string{labelTerminal, labelScenario}),
		CurrentMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "current_mode",
			Help: "Final link-adaptation MCS index toward a peer, labeled by access category.",
		}, []string{labelTerminal, labelAC, labelScenario}),
	}
	reg.MustRegister(
		c.BytesDelivered, c.PacketsDelivered, c.PacketsDropped,
		c.TransferDelay, c.QueueLength, c.RadiatedEnergy, c.CurrentMode,
	)
	return c
}
