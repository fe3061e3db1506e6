// Package stats exposes the engine's counters and gauges through a
// prometheus.Registry, following the corpus's prometheus/client_golang
// idiom (a process-local registry owned by the component, not the global
// default registry).
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package stats

import "github.com/prometheus/client_golang/prometheus"

// Stats bundles every counter/gauge a Session tracks. Held per-session so
// multiple engines in one process don't collide on metric names.
type Stats struct {
	Registry *prometheus.Registry

	TxObjectsSent   prometheus.Counter
	TxBytesSent     prometheus.Counter
	TxParitySent    prometheus.Counter
	TxNacksReceived prometheus.Counter
	TxSquelchesSent prometheus.Counter

	RxObjectsCompleted prometheus.Counter
	RxObjectsAborted   prometheus.Counter
	RxBytesReceived    prometheus.Counter
	RxNacksSent        prometheus.Counter
	RxMalformedPdus    prometheus.Counter

	BlockPoolOverruns   prometheus.Counter
	SegmentPoolOverruns prometheus.Counter

	TxRate       prometheus.Gauge
	GrttAdvertised prometheus.Gauge
	LossFraction prometheus.Gauge
}

// New builds a Stats instance registered against a fresh registry.
func New() *Stats {
	reg := prometheus.NewRegistry()
	s := &Stats{
		Registry: reg,

		TxObjectsSent:   prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_tx_objects_sent_total", Help: "objects fully transmitted"}),
		TxBytesSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_tx_bytes_sent_total", Help: "bytes placed on the wire"}),
		TxParitySent:    prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_tx_parity_sent_total", Help: "parity symbols transmitted"}),
		TxNacksReceived: prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_tx_nacks_received_total", Help: "NACKs received by the sender"}),
		TxSquelchesSent: prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_tx_squelches_sent_total", Help: "CMD(SQUELCH) messages sent"}),

		RxObjectsCompleted: prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_rx_objects_completed_total", Help: "objects fully reassembled"}),
		RxObjectsAborted:   prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_rx_objects_aborted_total", Help: "objects aborted (sender purge or decode failure)"}),
		RxBytesReceived:    prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_rx_bytes_received_total", Help: "bytes delivered to the application"}),
		RxNacksSent:        prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_rx_nacks_sent_total", Help: "NACKs emitted by receivers"}),
		RxMalformedPdus:    prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_rx_malformed_pdus_total", Help: "PDUs discarded for failing to decode"}),

		BlockPoolOverruns:   prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_block_pool_overruns_total", Help: "block pool exhaustion events"}),
		SegmentPoolOverruns: prometheus.NewCounter(prometheus.CounterOpts{Name: "norm_segment_pool_overruns_total", Help: "segment pool exhaustion events"}),

		TxRate:         prometheus.NewGauge(prometheus.GaugeOpts{Name: "norm_tx_rate_bytes_per_sec", Help: "current congestion-controlled send rate"}),
		GrttAdvertised: prometheus.NewGauge(prometheus.GaugeOpts{Name: "norm_grtt_advertised_seconds", Help: "currently advertised group round-trip time"}),
		LossFraction:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "norm_loss_fraction", Help: "worst reported CLR/PLR loss fraction"}),
	}
	reg.MustRegister(
		s.TxObjectsSent, s.TxBytesSent, s.TxParitySent, s.TxNacksReceived, s.TxSquelchesSent,
		s.RxObjectsCompleted, s.RxObjectsAborted, s.RxBytesReceived, s.RxNacksSent, s.RxMalformedPdus,
		s.BlockPoolOverruns, s.SegmentPoolOverruns,
		s.TxRate, s.GrttAdvertised, s.LossFraction,
	)
	return s
}
