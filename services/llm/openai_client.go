// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/sashabaranov/go-openai"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient talks to any OpenAI-compatible chat completion API.
// It serves both the "openai" and "groq" providers; Groq exposes the
// same wire protocol under a different base URL.
type OpenAIClient struct {
	client   *openai.Client
	provider string
}

// NewOpenAIClient creates a client for api.openai.com.
func NewOpenAIClient(key *APIKey) (*OpenAIClient, error) {
	return newOpenAICompatible(key, "openai", "")
}

// NewGroqClient creates a client for Groq's OpenAI-compatible API.
func NewGroqClient(key *APIKey) (*OpenAIClient, error) {
	return newOpenAICompatible(key, "groq", groqBaseURL)
}

func newOpenAICompatible(key *APIKey, provider, baseURL string) (*OpenAIClient, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, provider)
	}

	var client *openai.Client
	err := key.Use(func(secret string) error {
		cfg := openai.DefaultConfig(secret)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		client = openai.NewClientWithConfig(cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("initialized chat completion client", "provider", provider)
	return &OpenAIClient{client: client, provider: provider}, nil
}

// Provider implements the Client interface.
func (o *OpenAIClient) Provider() string {
	return o.provider
}

// ChatWithTools implements the Client interface.
func (o *OpenAIClient) ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	for _, t := range tools {
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, &ProviderError{Provider: o.provider, Kind: KindFatal, Err: fmt.Errorf("marshal tool schema %s: %w", t.Name, err)}
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, o.normalize(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: o.provider, Kind: KindTransient, Err: fmt.Errorf("no choices returned")}
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Text:  choice.Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return completion, nil
}

// normalize maps go-openai errors onto the package error taxonomy.
func (o *OpenAIClient) normalize(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: o.provider,
			Kind:     classifyStatus(apiErr.HTTPStatusCode),
			Status:   apiErr.HTTPStatusCode,
			Err:      err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Provider: o.provider,
			Kind:     classifyStatus(reqErr.HTTPStatusCode),
			Status:   reqErr.HTTPStatusCode,
			Err:      err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{Provider: o.provider, Kind: KindTransient, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: o.provider, Kind: KindFatal, Err: err}
	}
	// Unrecognized errors are treated as transient so another provider
	// gets a chance.
	return &ProviderError{Provider: o.provider, Kind: KindTransient, Err: err}
}

// toOpenAIMessages converts provider-agnostic messages to the wire format.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}
