// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"regexp"
	"strings"

	"github.com/finsight-ai/finsight/services/assistant/agent"
)

// HallucinationChecker flags ticker symbols the response presents as
// holdings or market data when no tool result mentions them.
//
// A candidate only counts when it appears in a financial context, such
// as "$AAPL" or "AAPL stock". Symbols the tools explicitly reported as
// not found are exempt; the model relaying "XYZ was not found" is
// honesty, not hallucination.
type HallucinationChecker struct{}

// Name implements Checker.
func (HallucinationChecker) Name() string { return "hallucination" }

// Check implements Checker.
func (HallucinationChecker) Check(response string, ledger *agent.Ledger, _ Thresholds, verdict *Verdict) string {
	candidates := extractTickerCandidates(response)
	if len(candidates) == 0 {
		return response
	}

	known := ledger.Symbols()
	notFound := ledger.NotFoundSymbols()
	raw := ledger.RawText()

	for _, c := range candidates {
		if known[c] || notFound[c] {
			continue
		}
		if strings.Contains(raw, c) {
			continue
		}
		if !inFinancialContext(response, c) {
			continue
		}
		verdict.HallucinatedSymbols = append(verdict.HallucinatedSymbols, c)
	}
	return response
}

var financialContextWords = []string{
	"stock", "stocks", "shares", "holding", "holdings", "position",
	"positions", "etf", "fund", "ticker", "symbol",
}

// inFinancialContext reports whether sym appears in response preceded
// by a dollar sign or followed by a financial noun.
func inFinancialContext(response, sym string) bool {
	if strings.Contains(response, "$"+sym) {
		return true
	}
	// sym followed within a few words by a financial noun.
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(sym) + `\b[^.!?\n]{0,30}`)
	lowerNouns := financialContextWords
	for _, m := range re.FindAllString(response, -1) {
		tail := strings.ToLower(m)
		for _, noun := range lowerNouns {
			if containsWord(tail, noun) {
				return true
			}
		}
	}
	return false
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
		leftOK := start == 0 || !isWordByte(s[start-1])
		rightOK := end == len(s) || !isWordByte(s[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
