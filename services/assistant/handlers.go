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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finsight-ai/finsight/services/assistant/agent"
	"github.com/finsight-ai/finsight/services/assistant/tracing"
	"github.com/finsight-ai/finsight/services/llm"
)

// PortfolioTokenHeader carries the per-user Ghostfolio access token on
// chat requests.
const PortfolioTokenHeader = "X-Portfolio-Token"

// Handlers contains the HTTP handlers for the assistant.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers wrapping the service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCommand handles POST /v1/assistant/command.
//
// Description:
//
//	Runs a one-shot natural-language command against the default
//	portfolio and returns the verified answer. Episodes that exhaust
//	the reasoning bound or lose every provider still return 200 with
//	a deterministic or degraded response; the state field tells the
//	caller which.
//
// Response:
//
//	200 OK: Result
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleCommand(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.Command(c.Request.Context(), req.Command, req.Model, userOrDefault(req.UserID))
	if err != nil {
		h.writeEpisodeError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleChatSend handles POST /v1/assistant/chat/send.
//
// Description:
//
//	Runs one turn of a multi-turn conversation. The caller supplies
//	prior turns in the body; the X-Portfolio-Token header binds the
//	episode to that user's Ghostfolio account and falls back to the
//	service's default account when absent.
//
// Response:
//
//	200 OK: Result
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleChatSend(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	history := make([]llm.Message, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	result, err := h.svc.Chat(
		c.Request.Context(),
		req.Message,
		req.Model,
		userOrDefault(req.UserID),
		c.GetHeader(PortfolioTokenHeader),
		history,
	)
	if err != nil {
		h.writeEpisodeError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleFeedback handles POST /v1/assistant/chat/feedback.
//
// Response:
//
//	200 OK: {"status": "recorded"} plus the aggregate summary
//	400 Bad Request: Validation error or invalid rating
func (h *Handlers) HandleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if _, err := h.svc.RecordFeedback(req.TraceID, userOrDefault(req.UserID), req.Rating, req.Comment); err != nil {
		if errors.Is(err, tracing.ErrInvalidRating) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_RATING",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "FEEDBACK_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "recorded",
		"summary": h.svc.FeedbackSummary(),
	})
}

// HandleFeedbackSummary handles GET /v1/assistant/chat/feedback/summary.
func (h *Handlers) HandleFeedbackSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.FeedbackSummary())
}

// HandleGetPreferences handles GET /v1/assistant/preferences.
func (h *Handlers) HandleGetPreferences(c *gin.Context) {
	userID := userOrDefault(c.Query("user_id"))
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"preferences": h.svc.Preferences(userID),
	})
}

// HandleSetPreference handles POST /v1/assistant/preferences.
func (h *Handlers) HandleSetPreference(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	userID := userOrDefault(req.UserID)
	h.svc.SetPreference(userID, req.Key, req.Value)
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"preferences": h.svc.Preferences(userID),
	})
}

// HandleModels handles GET /v1/assistant/models.
func (h *Handlers) HandleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.svc.Models()})
}

// HandleCosts handles GET /v1/assistant/costs.
func (h *Handlers) HandleCosts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Costs())
}

// HandleHealth handles GET /v1/assistant/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	status := h.svc.Health(c.Request.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// HandleReady handles GET /v1/assistant/ready. Readiness only needs
// the process up; collaborator health is /health's job.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// writeEpisodeError maps episode errors to HTTP responses.
func (h *Handlers) writeEpisodeError(c *gin.Context, requestID string, err error) {
	logger := h.svc.logger.With("request_id", requestID)

	switch {
	case errors.Is(err, agent.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Query is required",
			Code:  "EMPTY_QUERY",
		})
	case errors.Is(err, llm.ErrUnknownModel):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "UNKNOWN_MODEL",
		})
	case c.Request.Context().Err() != nil:
		logger.Warn("request canceled", "error", err.Error())
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: "Request canceled",
			Code:  "CANCELED",
		})
	default:
		logger.Error("episode failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Internal error",
			Code:  "EPISODE_ERROR",
		})
	}
}

// userOrDefault substitutes the shared default user for empty IDs.
func userOrDefault(userID string) string {
	if userID == "" {
		return "default"
	}
	return userID
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
