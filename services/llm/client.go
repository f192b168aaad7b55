// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides chat-completion clients for the model providers the
// assistant can route to, plus the Router that implements retry and
// fallback policy across them.
package llm

import (
	"context"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a provider-agnostic chat message.
type Message struct {
	// Role is one of system, user, assistant, tool.
	Role string `json:"role"`

	// Content is the message text. For tool messages this is the
	// serialized tool result.
	Content string `json:"content"`

	// ToolCalls are the tool invocations requested by an assistant
	// message, if any.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message back to the assistant tool call
	// it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name for tool messages.
	Name string `json:"name,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	// ID is the provider-assigned call identifier.
	ID string `json:"id"`

	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments is the raw JSON argument object.
	Arguments string `json:"arguments"`
}

// ToolSpec describes a tool the model may call.
type ToolSpec struct {
	// Name is the tool identifier.
	Name string `json:"name"`

	// Description tells the model when to use the tool.
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any `json:"parameters"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion is one model turn.
//
// Either Text is the final answer, or ToolCalls lists the tools the
// model wants invoked before it can answer. Some providers return both.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Model     string     `json:"model"`
	Usage     Usage      `json:"usage"`
}

// Client is a single-provider chat completion client.
//
// Implementations must normalize provider failures into *ProviderError
// so the Router can apply retry and fallback policy uniformly.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Client interface {
	// Provider returns the provider identifier ("groq", "openai", "anthropic").
	Provider() string

	// ChatWithTools sends a chat completion request.
	//
	// Inputs:
	//
	//	ctx - Context for cancellation and deadline
	//	model - The provider-specific model name
	//	messages - Conversation so far, oldest first
	//	tools - Tools the model may call (may be empty)
	//
	// Outputs:
	//
	//	*Completion - The model turn
	//	error - *ProviderError on provider failure
	ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (*Completion, error)
}
