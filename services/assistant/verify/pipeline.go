// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verify

import (
	"time"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/assistant/agent"
)

// Pipeline runs every checker over a response and returns the
// annotated verdict. Checks only annotate and amend; a flagged
// response is still returned to the user, with the verdict attached
// so the caller can surface or log it.
//
// Thread Safety: Pipeline is safe for concurrent use.
type Pipeline struct {
	checkers      []Checker
	thresholds    *ThresholdStore
	logger        *logging.Logger
	violationHook func(check string)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithThresholdStore sets the threshold source; defaults to a static
// store with the shipped limits.
func WithThresholdStore(s *ThresholdStore) PipelineOption {
	return func(p *Pipeline) { p.thresholds = s }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *logging.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithViolationHook registers a callback invoked once per check that
// found a problem, with the check name. Used for metrics.
func WithViolationHook(fn func(check string)) PipelineOption {
	return func(p *Pipeline) { p.violationHook = fn }
}

// WithCheckers replaces the default checker set.
func WithCheckers(checkers ...Checker) PipelineOption {
	return func(p *Pipeline) { p.checkers = checkers }
}

// NewPipeline creates a pipeline with the standard four checks.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		checkers: []Checker{
			NumericChecker{},
			HallucinationChecker{},
			RiskChecker{},
			DisclaimerChecker{},
		},
		thresholds: NewThresholdStore(DefaultThresholds()),
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify runs every check over response and returns the amended text
// plus the verdict.
func (p *Pipeline) Verify(response string, ledger *agent.Ledger) (string, *Verdict) {
	start := time.Now()
	verdict := &Verdict{NumericConsistent: true}
	th := p.thresholds.Get()

	for _, c := range p.checkers {
		before := verdict.Violations()
		response = c.Check(response, ledger, th, verdict)
		verdict.ChecksRun = append(verdict.ChecksRun, c.Name())

		if verdict.Violations() > before && p.violationHook != nil {
			p.violationHook(c.Name())
		}
	}

	verdict.Duration = time.Since(start)

	if n := verdict.Violations(); n > 0 {
		p.logger.Warn("verification flagged response",
			"violations", n,
			"flagged_values", len(verdict.FlaggedValues),
			"hallucinated_symbols", len(verdict.HallucinatedSymbols),
			"risk_flags", len(verdict.RiskFlags),
			"action_language", verdict.ActionLanguageFlagged,
		)
	}
	return response, verdict
}
