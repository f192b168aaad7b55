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

// FinancialDisclaimer is appended to responses that discuss investment
// topics. Appended at most once.
const FinancialDisclaimer = "\n\n---\n*Disclaimer: This information is for educational purposes only and is not financial advice. Consult a licensed financial advisor before making investment decisions.*"

// disclaimerTriggers are lowercase words that mark a response as
// investment-related.
var disclaimerTriggers = []string{
	"return", "returns", "performance", "gain", "gains", "loss",
	"losses", "risk", "volatility", "allocation", "diversification",
	"dividend", "dividends", "yield", "growth", "investment",
	"investments", "portfolio", "value", "profit",
}

// actionLanguageRe matches personalized buy/sell instructions.
var actionLanguageRe = regexp.MustCompile(`(?i)\b(you should (buy|sell)|i recommend (buying|selling)|you (must|need to) (buy|sell))\b`)

// actionVerbTickerRe matches a trade verb immediately governing a
// ticker-shaped token ("buy AAPL"). The verb is case-insensitive, the
// token is not; lowercase words after the verb are ordinary prose.
var actionVerbTickerRe = regexp.MustCompile(`\b(?i:buy|sell)\s+[A-Z]{1,5}\b`)

// DisclaimerChecker appends the canonical disclaimer to investment
// answers and flags trade instructions, which the system prompt
// forbids. Flagged instructions always get the disclaimer even when
// no trigger word is present.
type DisclaimerChecker struct{}

// Name implements Checker.
func (DisclaimerChecker) Name() string { return "disclaimer" }

// Check implements Checker.
func (DisclaimerChecker) Check(response string, _ *agent.Ledger, _ Thresholds, verdict *Verdict) string {
	action := actionLanguageRe.MatchString(response) || actionVerbTickerRe.MatchString(response)
	if action {
		verdict.ActionLanguageFlagged = true
	}

	if strings.Contains(response, "*Disclaimer:") {
		return response
	}

	trigger := action
	if !trigger {
		lower := strings.ToLower(response)
		for _, w := range disclaimerTriggers {
			if containsWord(lower, w) {
				trigger = true
				break
			}
		}
	}
	if trigger {
		verdict.DisclaimerAppended = true
		return response + FinancialDisclaimer
	}
	return response
}
