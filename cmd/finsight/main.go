// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command finsight runs the Finsight portfolio assistant.
//
// The server exposes the assistant HTTP API plus Prometheus metrics;
// the client subcommands talk to a running server.
//
// # Environment Variables
//
//   - GHOSTFOLIO_URL: Ghostfolio base URL (default: http://localhost:3333)
//   - GHOSTFOLIO_ACCESS_TOKEN: default account's access token
//   - GROQ_API_KEY / OPENAI_API_KEY / ANTHROPIC_API_KEY: provider keys
//     (also read from /run/secrets/<provider>_api_key in containers)
//   - DEFAULT_LLM_PROVIDER: provider whose default model answers (default: groq)
//   - MAX_AGENT_ITERATIONS: reasoning bound per episode (default: 10)
//   - AGENT_API_KEY: bearer token required on assistant endpoints when set
//   - VERIFY_THRESHOLDS_PATH: YAML risk thresholds, hot-reloaded on change
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (tracing off when unset)
//
// # Usage
//
//	# Run the server
//	finsight serve --port 8080
//
//	# One-shot question against a running server
//	FINSIGHT_URL=http://localhost:8080 finsight ask "how is my portfolio doing?"
//
//	# List models and spend
//	finsight models
//	finsight costs
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Conversational portfolio assistant over Ghostfolio",
	Long: `Finsight answers natural-language questions about your portfolio
by calling Ghostfolio and market data tools, then verifying every
number in the answer against the data actually fetched.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
