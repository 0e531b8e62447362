// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the request collectors of a Client. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadkit",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests sent to the remote API by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "threadkit",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Round-trip latency of requests to the remote API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Requests returns the request counter.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// Duration returns the latency histogram.
func (m *Metrics) Duration() *prometheus.HistogramVec {
	return m.duration
}

func (m *Metrics) observe(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, code).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
