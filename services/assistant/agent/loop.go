// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent implements the bounded reasoning loop: the model
// alternates between thinking and tool execution until it produces a
// final answer or the iteration bound forces a deterministic failure
// answer. Every tool call is recorded in the episode's fact ledger.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/llm"
)

// DefaultMaxIterations bounds think steps per episode.
const DefaultMaxIterations = 10

// ToolInvoker executes tools on behalf of the loop.
//
// Implemented by the tool registry. The loop stays ignorant of tool
// wiring; it only needs specs for the model and an invoke entry point.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ToolInvoker interface {
	// Specs returns the tool definitions advertised to the model.
	Specs() []llm.ToolSpec

	// Invoke runs one tool. The returned error is surfaced to the
	// model as an observation, never as an episode failure.
	Invoke(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error)
}

// Completer is the slice of the provider router the loop depends on.
type Completer interface {
	Complete(ctx context.Context, modelID string, messages []llm.Message, tools []llm.ToolSpec) (*llm.Completion, []llm.Attempt, error)
}

// Loop runs bounded reasoning episodes.
//
// Thread Safety: Loop is safe for concurrent use; each Run owns its
// episode exclusively.
type Loop struct {
	completer     Completer
	invoker       ToolInvoker
	sm            *StateMachine
	maxIterations int
	logger        *logging.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxIterations overrides the iteration bound.
func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithLoopLogger sets the logger.
func WithLoopLogger(logger *logging.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop creates a reasoning loop.
//
// Inputs:
//
//	completer - Provider router (or a test double)
//	invoker - Tool registry
//	opts - Optional configuration
func NewLoop(completer Completer, invoker ToolInvoker, opts ...LoopOption) *Loop {
	l := &Loop{
		completer:     completer,
		invoker:       invoker,
		sm:            DefaultStateMachine,
		maxIterations: DefaultMaxIterations,
		logger:        logging.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunRequest describes one episode.
type RunRequest struct {
	// Query is the user's question. Required.
	Query string

	// ModelID selects the preferred model; empty uses the default.
	ModelID string

	// History is the caller-supplied conversation window.
	History []llm.Message

	// MemoryContext carries user preferences and lessons.
	MemoryContext string

	// TraceID identifies the episode; generated when empty.
	TraceID string
}

// Run executes one bounded reasoning episode.
//
// Description:
//
//	Seeds the conversation, then alternates THINKING (model turn) and
//	ACTING/OBSERVING (tool execution) until the model answers without
//	tool calls, the iteration bound is hit, or every provider fails.
//	Tool errors become observations the model can react to; they never
//	abort the episode.
//
// Inputs:
//
//	ctx - Context for cancellation; an abandoned episode stops after
//	      the in-flight call resolves
//	req - The episode request
//
// Outputs:
//
//	*Outcome - Always non-nil on nil error, including FAILED episodes,
//	           which carry the deterministic insufficient-information
//	           answer (or raw ledger data when degraded)
//	error - ErrEmptyQuery or a context error
func (l *Loop) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	skill := ClassifyIntent(req.Query)
	seed := BuildSeed(SeedOptions{
		Query:         req.Query,
		SkillAddon:    skill.PromptAddon,
		MemoryContext: req.MemoryContext,
		History:       req.History,
	})

	episode := NewEpisode(traceID, seed)
	logger := l.logger.With("trace_id", traceID, "skill", skill.Name)
	logger.Info("episode started", "model", req.ModelID)

	specs := l.invoker.Specs()

	for episode.Iterations < l.maxIterations {
		if err := ctx.Err(); err != nil {
			_ = l.sm.Transition(episode, StateFailed)
			return nil, err
		}

		completion, attempts, err := l.completer.Complete(ctx, req.ModelID, episode.Messages, specs)
		episode.Attempts = append(episode.Attempts, attempts...)
		episode.Iterations++

		if err != nil {
			if errors.Is(err, llm.ErrProviderUnavailable) {
				// Degrade: answer with raw ledger data, no generation.
				_ = l.sm.Transition(episode, StateFailed)
				logger.Warn("all providers unavailable, degrading to raw data",
					"iterations", episode.Iterations,
					"tool_calls", episode.Ledger.Len(),
				)
				return l.outcome(episode, episode.Ledger.FormatRaw(), "", err, true), nil
			}
			_ = l.sm.Transition(episode, StateFailed)
			return nil, err
		}

		episode.Usage.PromptTokens += completion.Usage.PromptTokens
		episode.Usage.CompletionTokens += completion.Usage.CompletionTokens

		if len(completion.ToolCalls) == 0 {
			if err := l.sm.Transition(episode, StateDone); err != nil {
				return nil, err
			}
			logger.Info("episode complete",
				"iterations", episode.Iterations,
				"tool_calls", episode.Ledger.Len(),
			)
			return l.outcome(episode, completion.Text, completion.Model, nil, false), nil
		}

		if err := l.sm.Transition(episode, StateActing); err != nil {
			return nil, err
		}

		episode.Messages = append(episode.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		for _, tc := range completion.ToolCalls {
			observation := l.executeTool(ctx, episode, logger, tc)
			episode.Messages = append(episode.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    observation,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}

		if err := l.sm.Transition(episode, StateObserving); err != nil {
			return nil, err
		}
		if err := l.sm.Transition(episode, StateThinking); err != nil {
			return nil, err
		}
	}

	// Iteration bound reached.
	_ = l.sm.Transition(episode, StateFailed)
	logger.Warn("episode exhausted iteration bound",
		"iterations", episode.Iterations,
		"tool_calls", episode.Ledger.Len(),
	)
	return l.outcome(episode, InsufficientInfoAnswer, "", ErrReasoningExhausted, false), nil
}

// executeTool invokes one tool, records the ledger entry, and returns
// the observation text for the model.
func (l *Loop) executeTool(ctx context.Context, episode *Episode, logger *logging.Logger, tc llm.ToolCall) string {
	args := json.RawMessage(tc.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	start := time.Now()
	result, err := l.invoker.Invoke(ctx, tc.Name, args)

	entry := ToolCall{
		Tool:      tc.Name,
		Arguments: args,
		Timestamp: time.Now(),
	}
	if err != nil {
		entry.Err = err.Error()
		logger.Warn("tool call failed",
			"tool", tc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
	} else {
		entry.Result = result
		logger.Debug("tool call complete",
			"tool", tc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	episode.Ledger.Append(entry)

	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(result)
}

// outcome assembles the episode outcome.
func (l *Loop) outcome(episode *Episode, response, model string, reason error, degraded bool) *Outcome {
	return &Outcome{
		TraceID:        episode.TraceID,
		Response:       response,
		State:          episode.State,
		TerminalReason: reason,
		Degraded:       degraded,
		Iterations:     episode.Iterations,
		Ledger:         episode.Ledger,
		Model:          model,
		Attempts:       episode.Attempts,
		Usage:          episode.Usage,
		Duration:       time.Since(episode.StartedAt),
	}
}
