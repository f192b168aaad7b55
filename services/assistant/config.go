// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the assistant service configuration, read from the
// environment. API keys are NOT stored here; they go straight from
// the environment into memguard enclaves in the llm package.
type Config struct {
	// GhostfolioURL is the base URL of the Ghostfolio instance.
	GhostfolioURL string

	// GhostfolioAccessToken is the default account's access token,
	// used for /command requests. Chat requests carry a per-user
	// token in the X-Portfolio-Token header instead.
	GhostfolioAccessToken string

	// DefaultProvider selects which provider's default model answers
	// when a request does not name one.
	DefaultProvider string

	// MaxIterations bounds reasoning steps per episode.
	MaxIterations int

	// APIKey, when set, is required as a bearer token on every
	// assistant endpoint.
	APIKey string

	// ThresholdsPath optionally points at a YAML file with the
	// verification thresholds, hot-reloaded on change.
	ThresholdsPath string
}

// Environment variable names.
const (
	EnvGhostfolioURL   = "GHOSTFOLIO_URL"
	EnvGhostfolioToken = "GHOSTFOLIO_ACCESS_TOKEN"
	EnvDefaultProvider = "DEFAULT_LLM_PROVIDER"
	EnvMaxIterations   = "MAX_AGENT_ITERATIONS"
	EnvAPIKey          = "AGENT_API_KEY"
	EnvThresholdsPath  = "VERIFY_THRESHOLDS_PATH"
)

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		GhostfolioURL:         envOr(EnvGhostfolioURL, "http://localhost:3333"),
		GhostfolioAccessToken: os.Getenv(EnvGhostfolioToken),
		DefaultProvider:       envOr(EnvDefaultProvider, "groq"),
		MaxIterations:         10,
		APIKey:                os.Getenv(EnvAPIKey),
		ThresholdsPath:        os.Getenv(EnvThresholdsPath),
	}

	if raw := os.Getenv(EnvMaxIterations); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMaxIterations, err)
		}
		cfg.MaxIterations = clampIterations(n)
	}

	return cfg, nil
}

// clampIterations keeps the bound in a sane range.
func clampIterations(n int) int {
	if n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	}
	return n
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
