// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exposes remediation metrics via Prometheus.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures metric registration.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type Config struct {
	// Namespace is the metrics namespace. Required.
	Namespace string

	// Subsystem is the metrics subsystem. Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// LatencyBuckets defines histogram buckets for latency metrics (seconds).
	// If nil, uses default buckets.
	LatencyBuckets []float64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace: "build_medic",
		Subsystem: "loop",
		LatencyBuckets: []float64{
			0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0,
		},
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// Metrics holds the remediation loop's Prometheus collectors.
//
// A nil *Metrics is valid: every observation method is a no-op on a nil
// receiver, so callers never need to guard.
//
// Thread Safety: Safe for concurrent use.
type Metrics struct {
	compileCycles        prometheus.Counter
	diagnosticsExtracted prometheus.Counter
	remediationsAttempt  prometheus.Counter
	remediationsApplied  prometheus.Counter
	remediationsNoop     prometheus.Counter
	compileLatency       prometheus.Histogram
	completionLatency    prometheus.Histogram
}

// New creates and registers the metric set.
func New(cfg Config) (*Metrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := cfg.LatencyBuckets
	if buckets == nil {
		buckets = DefaultConfig().LatencyBuckets
	}

	m := &Metrics{
		compileCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "compile_cycles_total",
			Help: "Number of compile invocations performed.",
		}),
		diagnosticsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "diagnostics_extracted_total",
			Help: "Number of error diagnostics extracted from build output.",
		}),
		remediationsAttempt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "remediations_attempted_total",
			Help: "Number of correction requests sent to the model.",
		}),
		remediationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "remediations_applied_total",
			Help: "Number of corrections written to disk.",
		}),
		remediationsNoop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "remediations_noop_total",
			Help: "Number of corrections identical to their input.",
		}),
		compileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name:    "compile_duration_seconds",
			Help:    "Wall-clock duration of compile invocations.",
			Buckets: buckets,
		}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name:    "completion_duration_seconds",
			Help:    "Wall-clock duration of completion-service calls.",
			Buckets: buckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.compileCycles, m.diagnosticsExtracted,
		m.remediationsAttempt, m.remediationsApplied, m.remediationsNoop,
		m.compileLatency, m.completionLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) IncCompileCycle() {
	if m == nil {
		return
	}
	m.compileCycles.Inc()
}

func (m *Metrics) AddDiagnostics(n int) {
	if m == nil {
		return
	}
	m.diagnosticsExtracted.Add(float64(n))
}

func (m *Metrics) IncRemediationAttempted() {
	if m == nil {
		return
	}
	m.remediationsAttempt.Inc()
}

func (m *Metrics) IncRemediationApplied() {
	if m == nil {
		return
	}
	m.remediationsApplied.Inc()
}

func (m *Metrics) IncRemediationNoop() {
	if m == nil {
		return
	}
	m.remediationsNoop.Inc()
}

func (m *Metrics) ObserveCompile(d time.Duration) {
	if m == nil {
		return
	}
	m.compileLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveCompletion(d time.Duration) {
	if m == nil {
		return
	}
	m.completionLatency.Observe(d.Seconds())
}
