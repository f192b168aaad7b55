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

import "strings"

// Skill is a query intent with a prompt addon steering the model
// toward the right tools.
type Skill struct {
	// Name is the stable skill identifier.
	Name string

	// DisplayName is human readable.
	DisplayName string

	// Keywords trigger the skill when present in the query.
	Keywords []string

	// RelevantTools hints which tools the skill usually needs.
	RelevantTools []string

	// PromptAddon is appended to the system prompt.
	PromptAddon string

	// Priority breaks keyword-score ties; higher wins.
	Priority int
}

// Skills is the ordered skill registry. portfolio_analysis is the
// default when nothing scores.
var Skills = []Skill{
	{
		Name:          "portfolio_analysis",
		DisplayName:   "Portfolio Analysis",
		Keywords:      []string{"portfolio", "holdings", "positions", "worth", "value", "allocation", "own", "invested"},
		RelevantTools: []string{"portfolio_summary", "market_sentiment", "holding_detail"},
		PromptAddon:   "FOCUS: The user is asking about portfolio composition. Start with portfolio_summary; use market_sentiment for concentration and allocation questions.",
		Priority:      1,
	},
	{
		Name:          "performance_tracking",
		DisplayName:   "Performance Tracking",
		Keywords:      []string{"performance", "return", "returns", "gain", "loss", "profit", "grew", "dropped", "ytd", "change"},
		RelevantTools: []string{"portfolio_performance", "portfolio_summary", "dividend_history"},
		PromptAddon:   "FOCUS: The user is asking about returns. Use portfolio_performance with the date range they name; default to ytd when unspecified.",
		Priority:      1,
	},
	{
		Name:          "trade_execution",
		DisplayName:   "Trade Recording",
		Keywords:      []string{"buy", "sell", "bought", "sold", "trade", "order", "record", "add", "shares"},
		RelevantTools: []string{"add_trade", "symbol_search", "stock_price"},
		PromptAddon:   "FOCUS: The user wants to record a trade. Use add_trade WITHOUT confirmed first to show a preview, and only set confirmed after the user explicitly approves the preview.",
		Priority:      2,
	},
	{
		Name:          "risk_assessment",
		DisplayName:   "Risk Assessment",
		Keywords:      []string{"risk", "risky", "concentration", "concentrated", "diversified", "diversification", "exposure", "drawdown", "volatile"},
		RelevantTools: []string{"market_sentiment", "portfolio_summary", "portfolio_performance"},
		PromptAddon:   "FOCUS: The user is asking about risk. Use market_sentiment for concentration metrics and flag any threshold breaches it reports.",
		Priority:      1,
	},
	{
		Name:          "research",
		DisplayName:   "Market Research",
		Keywords:      []string{"price", "quote", "stock", "market", "sector", "trend", "volume", "trading", "today"},
		RelevantTools: []string{"stock_price", "stock_trend", "stock_volume", "sector_performance", "symbol_search"},
		PromptAddon:   "FOCUS: The user is asking about market data. Use the stock_* tools for quotes and trends and sector_performance for sector questions.",
		Priority:      1,
	},
}

// ClassifyIntent picks the best-matching skill for a query.
//
// Scoring is keyword hits * 10 + priority; portfolio_analysis wins
// by default when nothing matches.
func ClassifyIntent(query string) Skill {
	lower := strings.ToLower(query)

	best := Skills[0]
	bestScore := 0
	for _, skill := range Skills {
		hits := 0
		for _, kw := range skill.Keywords {
			if containsWord(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := hits*10 + skill.Priority
		if score > bestScore {
			bestScore = score
			best = skill
		}
	}
	return best
}

// containsWord reports whether w appears as a whole word in s.
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		leftOK := start == 0 || !isWordChar(s[start-1])
		rightOK := end == len(s) || !isWordChar(s[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
