// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

// ErrorResponse is the error payload for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CommandRequest is the POST /v1/assistant/command body.
type CommandRequest struct {
	// Command is the natural-language request. Required.
	Command string `json:"command" binding:"required"`

	// Model optionally names the preferred model by its stable ID.
	Model string `json:"model"`

	// UserID scopes preferences and lessons; defaults to "default".
	UserID string `json:"user_id"`
}

// ChatTurn is one prior turn of the conversation.
type ChatTurn struct {
	// Role is "user" or "assistant".
	Role string `json:"role" binding:"required,oneof=user assistant"`

	// Content is the turn text.
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the POST /v1/assistant/chat/send body.
type ChatRequest struct {
	// Message is the new user message. Required.
	Message string `json:"message" binding:"required"`

	// History is the prior conversation, oldest first. Only the most
	// recent turns are replayed to the model.
	History []ChatTurn `json:"history"`

	// Model optionally names the preferred model.
	Model string `json:"model"`

	// UserID scopes preferences and lessons; defaults to "default".
	UserID string `json:"user_id"`
}

// FeedbackRequest is the POST /v1/assistant/chat/feedback body.
type FeedbackRequest struct {
	// TraceID identifies the rated response. Required.
	TraceID string `json:"trace_id" binding:"required"`

	// Rating is "up" or "down". Required.
	Rating string `json:"rating" binding:"required"`

	// Comment optionally explains the rating. Thumbs-down comments
	// become lessons for future prompts.
	Comment string `json:"comment"`

	// UserID scopes the lesson; defaults to "default".
	UserID string `json:"user_id"`
}

// PreferenceRequest is the POST /v1/assistant/preferences body.
type PreferenceRequest struct {
	Key    string `json:"key" binding:"required"`
	Value  string `json:"value" binding:"required"`
	UserID string `json:"user_id"`
}
