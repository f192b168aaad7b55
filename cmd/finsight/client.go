// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var askModel string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a question about your portfolio",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported models and their availability",
	RunE:  runModels,
}

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show the server's LLM spend report",
	RunE:  runCosts,
}

func init() {
	askCmd.Flags().StringVar(&askModel, "model", "", "Model ID to prefer (see 'finsight models')")
	rootCmd.AddCommand(askCmd, modelsCmd, costsCmd)
}

// serverURL is where the client subcommands find a running server.
func serverURL() string {
	if url := os.Getenv("FINSIGHT_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}

// callServer performs one request, attaching the AGENT_API_KEY bearer
// token when set. The decoded JSON body is returned for both success
// and error statuses; the caller inspects the status code.
func callServer(method, path string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL()+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := os.Getenv("AGENT_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("is the server running? (%s): %w", serverURL(), err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, decoded, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	status, out, err := callServer(http.MethodPost, "/v1/assistant/command", map[string]any{
		"command": question,
		"model":   askModel,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("server returned %d: %v", status, out["error"])
	}

	fmt.Println(out["response"])
	if degraded, _ := out["degraded"].(bool); degraded {
		fmt.Fprintln(os.Stderr, "\n(degraded: no model provider was available)")
	}
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	status, out, err := callServer(http.MethodGet, "/v1/assistant/models", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("server returned %d: %v", status, out["error"])
	}

	models, _ := out["models"].([]any)
	for _, m := range models {
		spec, _ := m.(map[string]any)
		marker := " "
		if avail, _ := spec["available"].(bool); !avail {
			marker = "x"
		}
		def := ""
		if d, _ := spec["default"].(bool); d {
			def = " (default)"
		}
		fmt.Printf("[%s] %-18v %v%s\n", marker, spec["id"], spec["display_name"], def)
	}
	return nil
}

func runCosts(cmd *cobra.Command, args []string) error {
	status, out, err := callServer(http.MethodGet, "/v1/assistant/costs", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("server returned %d: %v", status, out["error"])
	}

	fmt.Printf("requests: %v  total: $%v\n", out["total_requests"], out["total_cost_usd"])
	byModel, _ := out["by_model"].(map[string]any)
	for model, raw := range byModel {
		mc, _ := raw.(map[string]any)
		fmt.Printf("  %-18s requests=%v cost=$%v\n", model, mc["requests"], mc["cost_usd"])
	}
	return nil
}
