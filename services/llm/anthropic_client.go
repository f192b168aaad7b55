// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    []systemBlock      `json:"system,omitempty"` // Top-level system prompt
	MaxTokens int                `json:"max_tokens"`
	Tools     []anthropicTool    `json:"tools,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"` // Must be "ephemeral"
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use blocks (assistant output)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks (user input)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *anthropicError `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient talks to the Anthropic messages API over plain REST.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     *APIKey
	baseURL    string
}

// NewAnthropicClient creates an Anthropic client with the sealed key.
func NewAnthropicClient(key *APIKey) (*AnthropicClient, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: anthropic", ErrMissingAPIKey)
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     key,
		baseURL:    anthropicBaseURL,
	}, nil
}

// Provider implements the Client interface.
func (a *AnthropicClient) Provider() string {
	return "anthropic"
}

// ChatWithTools implements the Client interface.
func (a *AnthropicClient) ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (*Completion, error) {
	apiMessages, systemBlocks := toAnthropicMessages(messages)

	reqPayload := anthropicRequest{
		Model:     model,
		Messages:  apiMessages,
		System:    systemBlocks,
		MaxTokens: 4096,
	}
	for _, t := range tools {
		reqPayload.Tools = append(reqPayload.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Kind: KindFatal, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Kind: KindFatal, Err: err}
	}

	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")
	if err := a.apiKey.Use(func(secret string) error {
		req.Header.Set("x-api-key", secret)
		return nil
	}); err != nil {
		return nil, &ProviderError{Provider: "anthropic", Kind: KindFatal, Err: err}
	}

	slog.Debug("sending REST request to Anthropic", "model", model)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		kind := KindTransient
		var netErr net.Error
		if errors.Is(err, context.Canceled) {
			kind = KindFatal
		} else if errors.As(err, &netErr) && netErr.Timeout() {
			kind = KindTransient
		}
		return nil, &ProviderError{Provider: "anthropic", Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: "anthropic",
			Kind:     classifyStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(bodyBytes)),
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, &ProviderError{Provider: "anthropic", Kind: KindTransient, Err: fmt.Errorf("parse response JSON: %w", err)}
	}
	if apiResp.Error != nil {
		return nil, &ProviderError{
			Provider: "anthropic",
			Kind:     KindFatal,
			Err:      fmt.Errorf("anthropic API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message),
		}
	}

	completion := &Completion{
		Model: apiResp.Model,
		Usage: Usage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
		},
	}
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			completion.Text += block.Text
		case "tool_use":
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	if completion.Text == "" && len(completion.ToolCalls) == 0 {
		return nil, &ProviderError{Provider: "anthropic", Kind: KindTransient, Err: fmt.Errorf("received empty content from Anthropic")}
	}
	return completion, nil
}

// toAnthropicMessages converts generic messages to the Anthropic format.
//
// System messages move to the top-level system field. Tool results
// become tool_result content blocks on user messages, and assistant
// tool calls become tool_use blocks.
func toAnthropicMessages(messages []Message) ([]anthropicMessage, []systemBlock) {
	var apiMessages []anthropicMessage
	var systemBlocks []systemBlock

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			block := systemBlock{Type: "text", Text: msg.Content}
			if len(msg.Content) > 1024 {
				block.CacheControl = &cacheControl{Type: "ephemeral"}
			}
			systemBlocks = append(systemBlocks, block)

		case RoleTool:
			apiMessages = append(apiMessages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})

		case RoleAssistant:
			var content []anthropicContent
			if msg.Content != "" {
				content = append(content, anthropicContent{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				content = append(content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			apiMessages = append(apiMessages, anthropicMessage{Role: "assistant", Content: content})

		default:
			apiMessages = append(apiMessages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: msg.Content}},
			})
		}
	}
	return apiMessages, systemBlocks
}
