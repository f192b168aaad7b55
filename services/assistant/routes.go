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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all assistant routes with the router.
//
// Description:
//
//	Registers all /v1/assistant/* endpoints with the given Gin router
//	group. The router group should already have any required
//	middleware applied; health and ready are registered outside the
//	auth middleware so probes work without credentials.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//	apiKey - Optional bearer token required on non-probe endpoints
//
// Endpoints:
//
//	POST /v1/assistant/command - One-shot portfolio command
//	POST /v1/assistant/chat/send - One turn of a conversation
//	POST /v1/assistant/chat/feedback - Rate a response
//	GET  /v1/assistant/chat/feedback/summary - Aggregate ratings
//	GET  /v1/assistant/preferences - Get user preferences
//	PUT  /v1/assistant/preferences - Set a user preference (POST also accepted)
//	GET  /v1/assistant/models - List models with availability
//	GET  /v1/assistant/costs - Spend report
//	GET  /v1/assistant/health - Health check
//	GET  /v1/assistant/ready - Readiness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, apiKey string) {
	assistant := rg.Group("/assistant")

	// Probes stay unauthenticated.
	assistant.GET("/health", handlers.HandleHealth)
	assistant.GET("/ready", handlers.HandleReady)

	authed := assistant.Group("")
	if apiKey != "" {
		authed.Use(BearerAuth(apiKey))
	}
	{
		authed.POST("/command", handlers.HandleCommand)

		authed.POST("/chat/send", handlers.HandleChatSend)
		authed.POST("/chat/feedback", handlers.HandleFeedback)
		authed.GET("/chat/feedback/summary", handlers.HandleFeedbackSummary)

		authed.GET("/preferences", handlers.HandleGetPreferences)
		authed.PUT("/preferences", handlers.HandleSetPreference)
		authed.POST("/preferences", handlers.HandleSetPreference)

		authed.GET("/models", handlers.HandleModels)
		authed.GET("/costs", handlers.HandleCosts)
	}
}
