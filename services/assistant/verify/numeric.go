// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"math"
	"regexp"
	"strings"

	"github.com/finsight-ai/finsight/services/assistant/agent"
)

// NumericChecker verifies that every currency amount and percentage in
// the response traces back to a ledger fact within tolerance.
//
// Percentages also match ratios derivable from fact pairs (a/b*100),
// which covers values the model computes from two tool numbers, and a
// bullet list of allocation percentages must sum to roughly 100.
type NumericChecker struct{}

// Name implements Checker.
func (NumericChecker) Name() string { return "numeric_consistency" }

// Check implements Checker.
func (NumericChecker) Check(response string, ledger *agent.Ledger, th Thresholds, verdict *Verdict) string {
	verdict.NumericConsistent = true
	facts := ledger.NumericFacts()
	if len(facts) == 0 {
		// Nothing to check against; any number would be ungrounded,
		// but an empty ledger usually means a conversational answer.
		if hasNumbers(response) {
			verdict.NumericConsistent = false
			lits, _ := extractCurrencyValues(response)
			verdict.FlaggedValues = append(verdict.FlaggedValues, lits...)
			plits, _ := extractPercentValues(response)
			verdict.FlaggedValues = append(verdict.FlaggedValues, plits...)
		}
		return response
	}

	curLits, curVals := extractCurrencyValues(response)
	for i, v := range curVals {
		if !matchesCurrency(v, facts, th.CurrencyRelTolerance) {
			verdict.NumericConsistent = false
			verdict.FlaggedValues = append(verdict.FlaggedValues, curLits[i])
		}
	}

	pctLits, pctVals := extractPercentValues(response)
	for i, v := range pctVals {
		if !matchesPercent(v, facts, th.PercentPointTolerance) {
			verdict.NumericConsistent = false
			verdict.FlaggedValues = append(verdict.FlaggedValues, pctLits[i])
		}
	}

	if sum, n, ok := allocationBulletSum(response); ok && n >= 2 {
		if sum < 99 || sum > 101 {
			verdict.NumericConsistent = false
			verdict.FlaggedValues = append(verdict.FlaggedValues, "allocation total")
		}
	}

	return response
}

func hasNumbers(s string) bool {
	return currencyRe.MatchString(s) || percentRe.MatchString(s)
}

// matchesCurrency reports whether v is within relTol of any fact.
func matchesCurrency(v float64, facts []float64, relTol float64) bool {
	for _, f := range facts {
		if f == 0 {
			if v == 0 {
				return true
			}
			continue
		}
		if math.Abs(v-f)/math.Abs(f) <= relTol {
			return true
		}
	}
	return false
}

// matchesPercent reports whether v is within tol points of a fact, a
// fact scaled by 100 (tools report some ratios as fractions), or a
// ratio of any two facts.
func matchesPercent(v float64, facts []float64, tol float64) bool {
	for _, f := range facts {
		if math.Abs(v-f) <= tol || math.Abs(v-f*100) <= tol {
			return true
		}
	}
	for _, a := range facts {
		for _, b := range facts {
			if b == 0 {
				continue
			}
			if math.Abs(v-a/b*100) <= tol {
				return true
			}
		}
	}
	return false
}

var bulletRe = regexp.MustCompile(`(?m)^\s*[-*•]`)

// allocationBulletSum sums the percentages on bullet lines when the
// response presents an allocation breakdown.
func allocationBulletSum(response string) (sum float64, count int, ok bool) {
	if !strings.Contains(strings.ToLower(response), "allocation") {
		return 0, 0, false
	}
	for _, line := range strings.Split(response, "\n") {
		if !bulletRe.MatchString(line) {
			continue
		}
		_, vals := extractPercentValues(line)
		if len(vals) == 0 {
			continue
		}
		// One percentage per bullet; extra percents on a line are
		// commentary, not allocation weights.
		sum += vals[0]
		count++
	}
	return sum, count, count > 0
}
