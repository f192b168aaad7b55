// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"encoding/json"
	"time"

	"github.com/finsight-ai/finsight/services/llm"
)

// EpisodeState is the reasoning loop state.
type EpisodeState string

const (
	// StateThinking means the model is producing the next turn.
	StateThinking EpisodeState = "THINKING"

	// StateActing means requested tool calls are being executed.
	StateActing EpisodeState = "ACTING"

	// StateObserving means tool results are being folded back into
	// the conversation.
	StateObserving EpisodeState = "OBSERVING"

	// StateDone is the success terminal state.
	StateDone EpisodeState = "DONE"

	// StateFailed is the failure terminal state (iteration bound hit
	// or providers exhausted).
	StateFailed EpisodeState = "FAILED"
)

// String returns the state name.
func (s EpisodeState) String() string {
	return string(s)
}

// IsTerminal returns true for DONE and FAILED.
func (s EpisodeState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// AllStates returns every episode state.
func AllStates() []EpisodeState {
	return []EpisodeState{
		StateThinking,
		StateActing,
		StateObserving,
		StateDone,
		StateFailed,
	}
}

// ToolCall is one immutable fact ledger entry.
//
// Every tool invocation appends exactly one ToolCall, including
// invocations that returned an error. Entries are never mutated after
// append; the verification pipeline treats them as the sole ground
// truth for the episode.
type ToolCall struct {
	// Tool is the registry name of the invoked tool.
	Tool string `json:"tool"`

	// Arguments is the raw JSON argument object the model supplied.
	Arguments json.RawMessage `json:"arguments"`

	// Result is the raw JSON result. Nil when the call errored.
	Result json.RawMessage `json:"result,omitempty"`

	// Err is the error text observed by the model, empty on success.
	Err string `json:"error,omitempty"`

	// Timestamp is when the call completed.
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the call errored.
func (tc ToolCall) Failed() bool {
	return tc.Err != ""
}

// Episode is one bounded reasoning run for a single user query.
//
// An episode is owned by exactly one request goroutine; it is not
// shared and therefore carries no locking.
type Episode struct {
	// TraceID identifies the episode in logs and responses.
	TraceID string

	// State is the current loop state.
	State EpisodeState

	// Messages is the conversation sent to the model, oldest first.
	Messages []llm.Message

	// Iterations counts completed think steps.
	Iterations int

	// Ledger accumulates tool call facts.
	Ledger *Ledger

	// Attempts records every provider call made on behalf of the episode.
	Attempts []llm.Attempt

	// Usage accumulates token consumption across all provider turns.
	Usage llm.Usage

	// StartedAt is when the episode began.
	StartedAt time.Time
}

// NewEpisode creates an episode in the THINKING state.
func NewEpisode(traceID string, seed []llm.Message) *Episode {
	return &Episode{
		TraceID:   traceID,
		State:     StateThinking,
		Messages:  seed,
		Ledger:    NewLedger(),
		StartedAt: time.Now(),
	}
}

// Outcome is the result of one episode run.
type Outcome struct {
	// TraceID identifies the episode.
	TraceID string `json:"trace_id"`

	// Response is the answer text, before verification annotation.
	Response string `json:"response"`

	// State is the terminal state (DONE or FAILED).
	State EpisodeState `json:"state"`

	// TerminalReason is the sentinel that forced FAILED, nil on DONE.
	TerminalReason error `json:"-"`

	// Degraded means no provider was reachable and Response was
	// formatted directly from the ledger.
	Degraded bool `json:"degraded,omitempty"`

	// Iterations is the number of completed think steps.
	Iterations int `json:"iterations"`

	// Ledger holds every tool call made during the episode.
	Ledger *Ledger `json:"-"`

	// Model is the model that produced the final turn, empty when degraded.
	Model string `json:"model"`

	// Attempts records every provider call, in order.
	Attempts []llm.Attempt `json:"attempts"`

	// Usage is the total token consumption.
	Usage llm.Usage `json:"usage"`

	// Duration is the wall time of the episode.
	Duration time.Duration `json:"duration"`
}
