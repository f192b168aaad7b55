// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight-ai/finsight/pkg/logging"
)

// Attempt records one provider call, successful or not.
//
// Attempts are surfaced in response metadata for observability; the
// verification pipeline never consults them.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Outcome  string        `json:"outcome"` // "ok" or an ErrorKind
	Latency  time.Duration `json:"latency"`
}

// Router sends completions to a preferred model and falls back across
// the registry when providers fail.
//
// Policy:
//
//  1. The preferred model is tried first.
//  2. On rate limiting, the same provider is retried after a fixed
//     backoff, at most rateLimitRetries more times.
//  3. On any other failure (or exhausted retries), the remaining
//     capable models are tried once each, cheapest first.
//  4. When everything fails, Complete returns ErrProviderUnavailable
//     and the caller degrades to a non-generative answer.
//
// Thread Safety: Router is safe for concurrent use.
type Router struct {
	clients          map[string]Client
	backoff          time.Duration
	rateLimitRetries int
	logger           *logging.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithBackoff sets the pause before a same-provider rate-limit retry.
func WithBackoff(d time.Duration) RouterOption {
	return func(r *Router) { r.backoff = d }
}

// WithRateLimitRetries sets how many extra same-provider attempts are
// made after a rate-limited call.
func WithRateLimitRetries(n int) RouterOption {
	return func(r *Router) { r.rateLimitRetries = n }
}

// WithRouterLogger sets the logger.
func WithRouterLogger(logger *logging.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter creates a Router over the given provider clients.
//
// Inputs:
//
//	clients - One client per configured provider. Providers without a
//	          client are skipped during fallback.
//	opts - Optional configuration
//
// Outputs:
//
//	*Router - Configured router
//	error - ErrNoProviders when clients is empty
func NewRouter(clients []Client, opts ...RouterOption) (*Router, error) {
	if len(clients) == 0 {
		return nil, ErrNoProviders
	}

	r := &Router{
		clients:          make(map[string]Client, len(clients)),
		backoff:          2 * time.Second,
		rateLimitRetries: 2,
		logger:           logging.Default(),
		sleep:            sleepCtx,
	}
	for _, c := range clients {
		r.clients[c.Provider()] = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HasProvider reports whether a client is configured for the provider.
func (r *Router) HasProvider(provider string) bool {
	_, ok := r.clients[provider]
	return ok
}

// Complete runs one chat completion under the routing policy.
//
// Inputs:
//
//	ctx - Context for cancellation
//	modelID - Registry model ID; empty selects DefaultModelID
//	messages - Conversation so far
//	tools - Tools the model may call
//
// Outputs:
//
//	*Completion - The model turn, nil on total failure
//	[]Attempt - Every provider call made, in order
//	error - ErrUnknownModel, or ErrProviderUnavailable when all
//	        providers failed
func (r *Router) Complete(ctx context.Context, modelID string, messages []Message, tools []ToolSpec) (*Completion, []Attempt, error) {
	if modelID == "" {
		modelID = DefaultModelID
	}
	preferred, err := ModelByID(modelID)
	if err != nil {
		return nil, nil, err
	}

	var attempts []Attempt

	// Preferred provider, with rate-limit retries.
	if client, ok := r.clients[preferred.Provider]; ok {
		for try := 0; try <= r.rateLimitRetries; try++ {
			completion, attempt := r.call(ctx, client, preferred, messages, tools)
			attempts = append(attempts, attempt)
			if completion != nil {
				return completion, attempts, nil
			}
			if attempt.Outcome != string(KindRateLimited) {
				break
			}
			if try < r.rateLimitRetries {
				r.logger.Warn("provider rate limited, backing off",
					"provider", preferred.Provider,
					"attempt", try+1,
					"backoff", r.backoff.String(),
				)
				if err := r.sleep(ctx, r.backoff); err != nil {
					return nil, attempts, err
				}
			}
		}
	} else {
		r.logger.Warn("preferred provider not configured", "provider", preferred.Provider)
	}

	// Ranked fallback: remaining capable models, cheapest first, once each.
	for _, spec := range FallbackOrder(CapabilityToolUse) {
		if spec.ID == preferred.ID {
			continue
		}
		client, ok := r.clients[spec.Provider]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		r.logger.Info("falling back to alternate model",
			"model", spec.ID,
			"provider", spec.Provider,
		)
		completion, attempt := r.call(ctx, client, spec, messages, tools)
		attempts = append(attempts, attempt)
		if completion != nil {
			return completion, attempts, nil
		}
	}

	return nil, attempts, fmt.Errorf("%w: %d attempts failed", ErrProviderUnavailable, len(attempts))
}

// call makes a single provider attempt and records its outcome.
func (r *Router) call(ctx context.Context, client Client, spec ModelSpec, messages []Message, tools []ToolSpec) (*Completion, Attempt) {
	start := time.Now()
	completion, err := client.ChatWithTools(ctx, spec.APIModelName, messages, tools)
	attempt := Attempt{
		Provider: spec.Provider,
		Model:    spec.ID,
		Latency:  time.Since(start),
	}

	if err != nil {
		if pe, ok := AsProviderError(err); ok {
			attempt.Outcome = string(pe.Kind)
		} else {
			attempt.Outcome = string(KindTransient)
		}
		r.logger.Error("provider call failed",
			"provider", spec.Provider,
			"model", spec.ID,
			"outcome", attempt.Outcome,
			"error", err.Error(),
		)
		return nil, attempt
	}

	attempt.Outcome = "ok"
	return completion, attempt
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
