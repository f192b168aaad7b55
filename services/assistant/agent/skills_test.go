// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/finsight-ai/finsight/services/llm"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What is my portfolio worth?", "portfolio_analysis"},
		{"How did my returns look this year?", "performance_tracking"},
		{"I bought 10 shares of AAPL yesterday", "trade_execution"},
		{"How concentrated and risky is my exposure?", "risk_assessment"},
		{"What's the price of MSFT today?", "research"},
		{"Tell me a joke", "portfolio_analysis"}, // default
	}
	for _, tt := range tests {
		got := ClassifyIntent(tt.query)
		if got.Name != tt.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tt.query, got.Name, tt.want)
		}
	}
}

func TestClassifyIntent_TradePriorityBeatsTies(t *testing.T) {
	// "buy" and "price" each score one keyword hit; trade_execution's
	// higher priority must win.
	got := ClassifyIntent("buy at what price?")
	if got.Name != "trade_execution" {
		t.Errorf("got %s, want trade_execution", got.Name)
	}
}

func TestClassifyIntent_WholeWordsOnly(t *testing.T) {
	// "buying" contains "buy" as a substring but not as a word, and
	// "stockpile" contains "stock". Neither should trigger alone.
	got := ClassifyIntent("the warehouse is stockpiling inventory")
	if got.Name != "portfolio_analysis" {
		t.Errorf("got %s, want default portfolio_analysis", got.Name)
	}
}

func TestBuildSeed(t *testing.T) {
	seed := BuildSeed(SeedOptions{
		Query:         "  What do I own?  ",
		SkillAddon:    "FOCUS: composition.",
		MemoryContext: "Prefers concise answers.",
	})

	if len(seed) != 2 {
		t.Fatalf("len(seed) = %d, want 2", len(seed))
	}
	sys := seed[0]
	if sys.Role != "system" {
		t.Errorf("first role = %s, want system", sys.Role)
	}
	for _, want := range []string{"FOCUS: composition.", "USER CONTEXT:", "Prefers concise answers."} {
		if !strings.Contains(sys.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if seed[1].Content != "What do I own?" {
		t.Errorf("query not trimmed: %q", seed[1].Content)
	}
}

func TestBuildSeed_HistoryWindow(t *testing.T) {
	history := make([]llm.Message, 0, 30)
	for i := 0; i < 30; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: fmt.Sprintf("turn-%d", i)})
	}

	seed := BuildSeed(SeedOptions{Query: "next", History: history})

	// system + 18 history turns + query
	if len(seed) != 20 {
		t.Fatalf("len(seed) = %d, want 20", len(seed))
	}
	// Oldest retained turn is index 12 of the original history.
	if seed[1].Content != "turn-12" {
		t.Errorf("first history turn = %q, want turn-12", seed[1].Content)
	}
}

func TestBuildSeed_DropsToolPlumbingFromHistory(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "what do I own?"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "portfolio_summary"}}},
		{Role: llm.RoleTool, Content: `{"total_value": 1}`, ToolCallID: "c1"},
		{Role: llm.RoleAssistant, Content: "You hold two positions."},
	}

	seed := BuildSeed(SeedOptions{Query: "and the value?", History: history})

	// system + user turn + plain assistant turn + query
	if len(seed) != 4 {
		t.Fatalf("len(seed) = %d, want 4", len(seed))
	}
	if seed[2].Content != "You hold two positions." {
		t.Errorf("kept wrong turn: %q", seed[2].Content)
	}
}
