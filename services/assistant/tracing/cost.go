// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracing records per-request cost and user feedback in
// bounded in-memory ring buffers, and exports Prometheus metrics for
// the reasoning loop and verification pipeline.
package tracing

import (
	"sync"
	"time"

	"github.com/finsight-ai/finsight/services/llm"
)

// costRingSize bounds the cost record buffer.
const costRingSize = 10000

// recentCostEntries is how many records GetSummary returns verbatim.
const recentCostEntries = 20

// CostRecord is the spend attributed to one episode.
type CostRecord struct {
	TraceID          string    `json:"trace_id"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	Timestamp        time.Time `json:"timestamp"`
}

// ModelCost aggregates spend for one model.
type ModelCost struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// CostSummary is the /costs response payload.
type CostSummary struct {
	TotalRequests int                  `json:"total_requests"`
	TotalCostUSD  float64              `json:"total_cost_usd"`
	ByModel       map[string]ModelCost `json:"by_model"`
	Recent        []CostRecord         `json:"recent"`
}

// CostTracker accumulates episode costs in a fixed-size ring.
//
// Thread Safety: Safe for concurrent use.
type CostTracker struct {
	mu      sync.RWMutex
	records []CostRecord
	next    int
	full    bool
	now     func() time.Time
}

// NewCostTracker creates an empty tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{
		records: make([]CostRecord, costRingSize),
		now:     time.Now,
	}
}

// Record prices an episode's token usage against the model registry
// and stores it. Unknown models record with zero cost; the tokens are
// still counted.
func (t *CostTracker) Record(traceID, modelID string, usage llm.Usage) CostRecord {
	rec := CostRecord{
		TraceID:          traceID,
		Model:            modelID,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Timestamp:        t.now(),
	}
	if spec, err := llm.ModelByID(modelID); err == nil {
		rec.CostUSD = spec.Cost(usage.PromptTokens, usage.CompletionTokens)
	}

	t.mu.Lock()
	t.records[t.next] = rec
	t.next++
	if t.next == len(t.records) {
		t.next = 0
		t.full = true
	}
	t.mu.Unlock()
	return rec
}

// ordered returns records oldest first.
func (t *CostTracker) ordered() []CostRecord {
	if !t.full {
		out := make([]CostRecord, t.next)
		copy(out, t.records[:t.next])
		return out
	}
	out := make([]CostRecord, 0, len(t.records))
	out = append(out, t.records[t.next:]...)
	out = append(out, t.records[:t.next]...)
	return out
}

// GetSummary aggregates the buffered records.
func (t *CostTracker) GetSummary() CostSummary {
	t.mu.RLock()
	records := t.ordered()
	t.mu.RUnlock()

	summary := CostSummary{ByModel: make(map[string]ModelCost)}
	for _, r := range records {
		summary.TotalRequests++
		summary.TotalCostUSD += r.CostUSD
		mc := summary.ByModel[r.Model]
		mc.Requests++
		mc.PromptTokens += r.PromptTokens
		mc.CompletionTokens += r.CompletionTokens
		mc.CostUSD += r.CostUSD
		summary.ByModel[r.Model] = mc
	}

	start := len(records) - recentCostEntries
	if start < 0 {
		start = 0
	}
	recent := records[start:]
	// Newest first for display.
	summary.Recent = make([]CostRecord, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		summary.Recent = append(summary.Recent, recent[i])
	}
	return summary
}
