// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/finsight-ai/finsight/services/assistant/agent"
)

// RiskChecker flags portfolio risk threshold breaches visible in the
// ledger data. It only runs when a portfolio-level tool was fetched
// this episode; quoting a stock price says nothing about the user's
// concentration.
type RiskChecker struct{}

// Name implements Checker.
func (RiskChecker) Name() string { return "risk_thresholds" }

// Check implements Checker.
func (RiskChecker) Check(response string, ledger *agent.Ledger, th Thresholds, verdict *Verdict) string {
	if !ledger.PortfolioFetched() {
		return response
	}

	in := collectRiskInputs(ledger)

	single := in.topSingle
	top3 := in.topThree
	if len(in.weights) > 0 {
		sort.Sort(sort.Reverse(sort.Float64Slice(in.weights)))
		if in.weights[0] > single {
			single = in.weights[0]
		}
		sum := 0.0
		for i := 0; i < len(in.weights) && i < 3; i++ {
			sum += in.weights[i]
		}
		if sum > top3 {
			top3 = sum
		}
	}

	if single > th.SingleHoldingPct {
		verdict.RiskFlags = append(verdict.RiskFlags, RiskFlag{
			Kind:   RiskSingleConcentration,
			Detail: fmt.Sprintf("largest holding is %.1f%% of the portfolio (limit %.0f%%)", single, th.SingleHoldingPct),
		})
	}
	if top3 > th.Top3HoldingsPct {
		verdict.RiskFlags = append(verdict.RiskFlags, RiskFlag{
			Kind:   RiskTop3Concentration,
			Detail: fmt.Sprintf("top 3 holdings are %.1f%% of the portfolio (limit %.0f%%)", top3, th.Top3HoldingsPct),
		})
	}

	// Per-holding weight lists can be truncated to the top positions;
	// an explicit holdings_count from a snapshot view is authoritative.
	count := len(in.weights)
	if in.holdingsCount > count {
		count = in.holdingsCount
	}
	if count > 0 && count < th.MinHoldings {
		verdict.RiskFlags = append(verdict.RiskFlags, RiskFlag{
			Kind:   RiskLowDiversification,
			Detail: fmt.Sprintf("portfolio has %d holdings (minimum %d)", count, th.MinHoldings),
		})
	}

	for _, d := range in.drawdowns {
		if math.Abs(d) > th.MaxDrawdownPct {
			verdict.RiskFlags = append(verdict.RiskFlags, RiskFlag{
				Kind:   RiskDrawdown,
				Detail: fmt.Sprintf("drawdown of %.1f%% exceeds %.0f%%", math.Abs(d), th.MaxDrawdownPct),
			})
			break
		}
	}

	return response
}

// weightKeys are the JSON keys portfolio tools use for per-holding
// weights.
var weightKeys = map[string]bool{
	"weight_pct":     true,
	"allocation_pct": true,
}

// drawdownKeys are the JSON keys performance tools use for drawdowns.
var drawdownKeys = map[string]bool{
	"max_drawdown":     true,
	"max_drawdown_pct": true,
}

// riskInputs aggregates the risk figures found in the ledger. Snapshot
// views (market_sentiment) report pre-aggregated concentration keys
// instead of per-holding weights; both shapes feed the same checks.
type riskInputs struct {
	weights       []float64
	drawdowns     []float64
	topSingle     float64
	topThree      float64
	holdingsCount int
}

// collectRiskInputs walks every successful tool result for holding
// weights, aggregate concentration figures, and drawdowns.
func collectRiskInputs(ledger *agent.Ledger) riskInputs {
	var in riskInputs
	for _, call := range ledger.Calls() {
		if call.Failed() || len(call.Result) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(call.Result, &v); err != nil {
			continue
		}
		walkRiskValues(v, &in)
	}
	return in
}

func walkRiskValues(v any, in *riskInputs) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if f, ok := val.(float64); ok {
				switch {
				case weightKeys[k]:
					in.weights = append(in.weights, f)
					continue
				case drawdownKeys[k]:
					in.drawdowns = append(in.drawdowns, f)
					continue
				case k == "top_holding_pct":
					if f > in.topSingle {
						in.topSingle = f
					}
					continue
				case k == "top3_pct":
					if f > in.topThree {
						in.topThree = f
					}
					continue
				case k == "holdings_count":
					if int(f) > in.holdingsCount {
						in.holdingsCount = int(f)
					}
					continue
				}
			}
			walkRiskValues(val, in)
		}
	case []any:
		for _, val := range t {
			walkRiskValues(val, in)
		}
	}
}
