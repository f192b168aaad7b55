// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors for the assistant.
type Metrics struct {
	EpisodesTotal     *prometheus.CounterVec
	EpisodeDuration   prometheus.Histogram
	ProviderAttempts  *prometheus.CounterVec
	ToolInvocations   *prometheus.CounterVec
	VerifyViolations  *prometheus.CounterVec
	DegradedResponses prometheus.Counter
}

// NewMetrics registers the assistant collectors on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a private
// registry so parallel tests do not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EpisodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "assistant",
			Name:      "episodes_total",
			Help:      "Reasoning episodes by terminal state.",
		}, []string{"state"}),
		EpisodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "assistant",
			Name:      "episode_duration_seconds",
			Help:      "Wall time per reasoning episode.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "llm",
			Name:      "provider_attempts_total",
			Help:      "Model call attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ToolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "assistant",
			Name:      "tool_invocations_total",
			Help:      "Tool calls by tool name and status.",
		}, []string{"tool", "status"}),
		VerifyViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "verify",
			Name:      "violations_total",
			Help:      "Verification findings by check.",
		}, []string{"check"}),
		DegradedResponses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "assistant",
			Name:      "degraded_responses_total",
			Help:      "Responses served as raw tool data because no provider was available.",
		}),
	}
}
