// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"strings"

	"github.com/finsight-ai/finsight/services/llm"
)

// SystemPrompt grounds the model in the tool-first contract: every
// number in an answer must come from a tool result fetched this turn.
const SystemPrompt = `You are a portfolio assistant. You answer questions about the user's investment portfolio using ONLY data returned by your tools.

RULES:
1. Never invent portfolio values, performance figures, or holdings. Every number in your answer must come from a tool result in this conversation.
2. Call tools to fetch data before answering. If a question needs portfolio data you have not fetched this turn, fetch it.
3. If the tools cannot provide the data needed, say so plainly instead of guessing.
4. When you reference a holding, use the exact symbol returned by the tools.
5. Quote currency amounts and percentages exactly as the tools report them. Round only for readability and never change leading digits.
6. You may explain and summarize, but you must not give personalized buy or sell recommendations.
7. Trades are recorded only through the add_trade tool, and only after the user confirms a preview. Never describe a trade as executed unless the tool reported it.
8. If a symbol lookup returns no results, tell the user the symbol was not found. Do not substitute a similar-looking symbol.
9. Keep answers concise. Lead with the figure the user asked for.
10. If you cannot complete the request within the available tool calls, summarize what you found and what is missing.`

// InsufficientInfoAnswer is the deterministic FAILED-state response.
const InsufficientInfoAnswer = "I was unable to gather enough information to answer that reliably within my reasoning limits. Please try rephrasing the question or narrowing it to a specific holding or time range."

// SeedOptions configures the initial conversation.
type SeedOptions struct {
	// Query is the user's question. Required.
	Query string

	// SkillAddon is appended to the system prompt when an intent
	// classifier matched a skill.
	SkillAddon string

	// MemoryContext carries user preferences and past lessons.
	MemoryContext string

	// History is the caller-supplied conversation window, oldest
	// first. Only the most recent HistoryWindow turns are used.
	History []llm.Message
}

// HistoryWindow bounds how many prior turns are replayed to the model.
const HistoryWindow = 18

// BuildSeed assembles the initial message list for an episode.
func BuildSeed(opts SeedOptions) []llm.Message {
	system := SystemPrompt
	if opts.SkillAddon != "" {
		system += "\n\n" + opts.SkillAddon
	}
	if opts.MemoryContext != "" {
		system += "\n\nUSER CONTEXT:\n" + opts.MemoryContext
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	history := opts.History
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	for _, m := range history {
		// Only plain user/assistant turns are replayed; tool plumbing
		// from previous episodes is not.
		if m.Role == llm.RoleUser || (m.Role == llm.RoleAssistant && len(m.ToolCalls) == 0) {
			messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: strings.TrimSpace(opts.Query)})
	return messages
}
