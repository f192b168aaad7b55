// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant provides the conversational portfolio assistant
// HTTP service.
//
// The service exposes endpoints for:
//   - One-shot commands and multi-turn chat over the portfolio
//   - User preferences and feedback
//   - Model listing and cost reporting
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/assistant/agent"
	"github.com/finsight-ai/finsight/services/assistant/memory"
	"github.com/finsight-ai/finsight/services/assistant/tools"
	"github.com/finsight-ai/finsight/services/assistant/tracing"
	"github.com/finsight-ai/finsight/services/assistant/verify"
	"github.com/finsight-ai/finsight/services/ghostfolio"
	"github.com/finsight-ai/finsight/services/llm"
	"github.com/finsight-ai/finsight/services/marketdata"
)

// Service is the conversational portfolio assistant.
//
// Thread Safety: Service is safe for concurrent use.
type Service struct {
	cfg        Config
	logger     *logging.Logger
	gf         *ghostfolio.Client
	market     *marketdata.Client
	completer  agent.Completer
	router     *llm.Router
	memory     *memory.Store
	costs      *tracing.CostTracker
	feedback   *tracing.FeedbackStore
	verifier   *verify.Pipeline
	thresholds *verify.ThresholdStore
	metrics    *tracing.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithGhostfolioClient injects the portfolio client (used in tests).
func WithGhostfolioClient(c *ghostfolio.Client) ServiceOption {
	return func(s *Service) { s.gf = c }
}

// WithMarketClient injects the market data client (used in tests).
func WithMarketClient(c *marketdata.Client) ServiceOption {
	return func(s *Service) { s.market = c }
}

// WithCompleter injects the completion source, replacing the provider
// router (used in tests).
func WithCompleter(c agent.Completer) ServiceOption {
	return func(s *Service) { s.completer = c }
}

// WithMetricsRegisterer sets where Prometheus collectors register.
func WithMetricsRegisterer(reg prometheus.Registerer) ServiceOption {
	return func(s *Service) { s.metrics = tracing.NewMetrics(reg) }
}

// NewService wires the assistant.
//
// Description:
//
//	Builds the Ghostfolio and market data clients, loads whatever LLM
//	provider keys are present in the environment, and assembles the
//	router, verification pipeline, memory, and bookkeeping stores. At
//	least one provider key must be configured unless a completer is
//	injected.
func NewService(cfg Config, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		cfg:        cfg,
		logger:     logging.Default(),
		memory:     memory.NewStore(),
		costs:      tracing.NewCostTracker(),
		feedback:   tracing.NewFeedbackStore(),
		thresholds: verify.NewThresholdStore(verify.DefaultThresholds()),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = tracing.NewMetrics(prometheus.DefaultRegisterer)
	}
	if s.gf == nil {
		s.gf = ghostfolio.NewClient(cfg.GhostfolioURL, cfg.GhostfolioAccessToken,
			ghostfolio.WithLogger(s.logger))
	}
	if s.market == nil {
		s.market = marketdata.NewClient(marketdata.WithLogger(s.logger))
	}

	if cfg.ThresholdsPath != "" {
		th, err := verify.LoadThresholds(cfg.ThresholdsPath)
		if err != nil {
			return nil, err
		}
		s.thresholds.Set(th)
	}
	s.verifier = verify.NewPipeline(
		verify.WithThresholdStore(s.thresholds),
		verify.WithPipelineLogger(s.logger),
		verify.WithViolationHook(func(check string) {
			s.metrics.VerifyViolations.WithLabelValues(check).Inc()
		}),
	)

	if s.completer == nil {
		router, err := buildRouter(s.logger)
		if err != nil {
			return nil, err
		}
		s.router = router
		s.completer = router
	}

	// Thumbs-down feedback with a comment becomes a lesson the memory
	// store can replay into later prompts.
	s.feedback.OnThumbsDown(func(userID, comment string) {
		s.memory.AddLesson(userID, comment)
	})

	return s, nil
}

// providerEnvVars maps providers to their key sources.
var providerEnvVars = []struct {
	provider   string
	envVar     string
	secretPath string
}{
	{"groq", "GROQ_API_KEY", "/run/secrets/groq_api_key"},
	{"openai", "OPENAI_API_KEY", "/run/secrets/openai_api_key"},
	{"anthropic", "ANTHROPIC_API_KEY", "/run/secrets/anthropic_api_key"},
}

// buildRouter constructs clients for every provider with a configured
// key. Providers without keys are skipped; the router's fallback walk
// does the same.
func buildRouter(logger *logging.Logger) (*llm.Router, error) {
	var clients []llm.Client
	for _, p := range providerEnvVars {
		key, err := llm.LoadAPIKey(p.provider, p.envVar, p.secretPath)
		if err != nil {
			logger.Debug("provider key not configured", "provider", p.provider)
			continue
		}

		var client llm.Client
		switch p.provider {
		case "groq":
			client, err = llm.NewGroqClient(key)
		case "openai":
			client, err = llm.NewOpenAIClient(key)
		case "anthropic":
			client, err = llm.NewAnthropicClient(key)
		}
		if err != nil {
			return nil, fmt.Errorf("build %s client: %w", p.provider, err)
		}
		clients = append(clients, client)
		logger.Info("LLM provider configured", "provider", p.provider)
	}

	router, err := llm.NewRouter(clients, llm.WithRouterLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("no LLM provider keys configured: %w", err)
	}
	return router, nil
}

// ThresholdStore exposes the verification thresholds for hot reload.
func (s *Service) ThresholdStore() *verify.ThresholdStore {
	return s.thresholds
}

// Result is the outcome of one assistant request.
type Result struct {
	TraceID    string          `json:"trace_id"`
	Response   string          `json:"response"`
	State      string          `json:"state"`
	Degraded   bool            `json:"degraded"`
	Iterations int             `json:"iterations"`
	ToolsUsed  []string        `json:"tools_used"`
	Model      string          `json:"model,omitempty"`
	CostUSD    float64         `json:"cost_usd"`
	Verdict    *verify.Verdict `json:"verification"`
	DurationMS int64           `json:"duration_ms"`
}

// askRequest is the internal episode request.
type askRequest struct {
	query   string
	modelID string
	userID  string
	history []llm.Message
	gf      *ghostfolio.Client

	// cacheScope partitions the fact cache per portfolio binding.
	cacheScope string
}

// tracer is the OTel tracer for episode spans.
var tracer = otel.Tracer("finsight/assistant")

// ask runs one reasoning episode against the given portfolio client
// and verifies the answer.
func (s *Service) ask(ctx context.Context, req askRequest) (*Result, error) {
	if req.modelID == "" {
		req.modelID = s.defaultModelID()
	}

	ctx, span := tracer.Start(ctx, "assistant.episode",
		trace.WithAttributes(attribute.String("llm.model", req.modelID)))
	defer span.End()

	// Stated preferences in the query itself are captured before the
	// context is built so they apply from this turn on.
	s.memory.ExtractPreferences(req.userID, req.query)

	registry := tools.NewRegistry(tools.Deps{
		Portfolio: req.gf,
		Market:    s.market,
		Logger:    s.logger,
	})

	// The fact cache is scoped per user; anonymous requests skip it so
	// one caller's portfolio data never answers another's question.
	var invoker agent.ToolInvoker = registry
	if req.userID != "" {
		invoker = &cachingInvoker{
			registry: registry,
			memory:   s.memory,
			userID:   req.userID,
			scope:    req.cacheScope,
			logger:   s.logger,
		}
	}
	loop := agent.NewLoop(s.completer, invoker,
		agent.WithMaxIterations(s.cfg.MaxIterations),
		agent.WithLoopLogger(s.logger),
	)

	outcome, err := loop.Run(ctx, agent.RunRequest{
		Query:         req.query,
		ModelID:       req.modelID,
		History:       req.history,
		MemoryContext: s.memory.BuildContext(req.userID, req.query),
	})
	if err != nil {
		return nil, err
	}

	s.observe(outcome, registry)
	span.SetAttributes(
		attribute.String("episode.state", string(outcome.State)),
		attribute.Int("episode.iterations", outcome.Iterations),
	)

	response := outcome.Response
	var verdict *verify.Verdict
	if outcome.Degraded {
		// Raw data answers skip verification; there is no generated
		// text to check.
		s.metrics.DegradedResponses.Inc()
	} else {
		response, verdict = s.verifier.Verify(outcome.Response, outcome.Ledger)
	}

	costModel := outcome.Model
	if costModel == "" {
		costModel = req.modelID
	}
	cost := s.costs.Record(outcome.TraceID, costModel, outcome.Usage)

	return &Result{
		TraceID:    outcome.TraceID,
		Response:   response,
		State:      string(outcome.State),
		Degraded:   outcome.Degraded,
		Iterations: outcome.Iterations,
		ToolsUsed:  outcome.Ledger.ToolNames(),
		Model:      costModel,
		CostUSD:    cost.CostUSD,
		Verdict:    verdict,
		DurationMS: outcome.Duration.Milliseconds(),
	}, nil
}

// observe exports episode metrics.
func (s *Service) observe(outcome *agent.Outcome, registry *tools.Registry) {
	s.metrics.EpisodesTotal.WithLabelValues(string(outcome.State)).Inc()
	s.metrics.EpisodeDuration.Observe(outcome.Duration.Seconds())
	for _, a := range outcome.Attempts {
		s.metrics.ProviderAttempts.WithLabelValues(a.Provider, a.Outcome).Inc()
	}
	for _, call := range outcome.Ledger.Calls() {
		status := "ok"
		if call.Failed() {
			status = "error"
		}
		s.metrics.ToolInvocations.WithLabelValues(call.Tool, status).Inc()
	}
}

// defaultModelID picks the default model for the configured provider.
func (s *Service) defaultModelID() string {
	for _, spec := range llm.SupportedModels {
		if spec.Provider == s.cfg.DefaultProvider {
			return spec.ID
		}
	}
	return llm.DefaultModelID
}

// Command runs a one-shot command against the default portfolio.
func (s *Service) Command(ctx context.Context, query, modelID, userID string) (*Result, error) {
	return s.ask(ctx, askRequest{
		query:   query,
		modelID: modelID,
		userID:  userID,
		gf:      s.gf,
	})
}

// Chat runs one turn of a multi-turn conversation. A non-empty
// portfolioToken binds the episode to that user's Ghostfolio account.
func (s *Service) Chat(ctx context.Context, query, modelID, userID, portfolioToken string, history []llm.Message) (*Result, error) {
	gf := s.gf
	if portfolioToken != "" {
		gf = s.gf.ForAccessToken(portfolioToken)
	}
	return s.ask(ctx, askRequest{
		query:      query,
		modelID:    modelID,
		userID:     userID,
		history:    history,
		gf:         gf,
		cacheScope: portfolioToken,
	})
}

// ModelInfo is one entry of the models listing.
type ModelInfo struct {
	llm.ModelSpec
	Available bool `json:"available"`
	Default   bool `json:"default"`
}

// Models lists every supported model with its availability, which
// depends on the provider keys configured at startup.
func (s *Service) Models() []ModelInfo {
	defaultID := s.defaultModelID()
	out := make([]ModelInfo, 0, len(llm.SupportedModels))
	for _, spec := range llm.SupportedModels {
		available := s.router == nil || s.router.HasProvider(spec.Provider)
		out = append(out, ModelInfo{
			ModelSpec: spec,
			Available: available,
			Default:   spec.ID == defaultID,
		})
	}
	return out
}

// Costs returns the aggregated spend report.
func (s *Service) Costs() tracing.CostSummary {
	return s.costs.GetSummary()
}

// RecordFeedback stores one rating.
func (s *Service) RecordFeedback(traceID, userID, rating, comment string) (tracing.FeedbackEntry, error) {
	return s.feedback.Record(traceID, userID, rating, comment)
}

// FeedbackSummary returns aggregated ratings.
func (s *Service) FeedbackSummary() tracing.FeedbackSummary {
	return s.feedback.Summary()
}

// Preferences returns a user's stored preferences.
func (s *Service) Preferences(userID string) map[string]string {
	return s.memory.Preferences(userID)
}

// SetPreference stores one preference.
func (s *Service) SetPreference(userID, key, value string) {
	s.memory.SetPreference(userID, key, value)
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status              string   `json:"status"`
	GhostfolioConnected bool     `json:"ghostfolio_connected"`
	LLMProviders        []string `json:"llm_providers"`
	Timestamp           string   `json:"timestamp"`
}

// Health probes the collaborators.
func (s *Service) Health(ctx context.Context) HealthStatus {
	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.gf.Ping(probe); err == nil {
		status.GhostfolioConnected = true
	} else {
		status.Status = "degraded"
		s.logger.Warn("ghostfolio health probe failed", "error", err.Error())
	}

	seen := make(map[string]bool)
	for _, spec := range llm.SupportedModels {
		if seen[spec.Provider] {
			continue
		}
		if s.router == nil || s.router.HasProvider(spec.Provider) {
			seen[spec.Provider] = true
			status.LLMProviders = append(status.LLMProviders, spec.Provider)
		}
	}
	if len(status.LLMProviders) == 0 {
		status.Status = "degraded"
	}
	return status
}
