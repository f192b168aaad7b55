// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/services/assistant/agent"
)

func TestPipeline_CleanResponse(t *testing.T) {
	ledger := agent.NewLedger()
	ledger.Append(agent.ToolCall{
		Tool: "portfolio_summary",
		Result: json.RawMessage(`{
			"total_value": 50000,
			"holdings": [
				{"symbol": "AAPL", "weight_pct": 20},
				{"symbol": "VTI", "weight_pct": 20},
				{"symbol": "MSFT", "weight_pct": 20},
				{"symbol": "BND", "weight_pct": 20},
				{"symbol": "GLD", "weight_pct": 20}
			]
		}`),
	})

	p := NewPipeline()
	out, verdict := p.Verify("Your portfolio is worth $50,000 and AAPL is one of five equal holdings.", ledger)

	assert.True(t, verdict.NumericConsistent)
	assert.Empty(t, verdict.HallucinatedSymbols)
	assert.Empty(t, verdict.RiskFlags)
	assert.False(t, verdict.ActionLanguageFlagged)
	assert.Equal(t, 0, verdict.Violations())
	assert.Equal(t,
		[]string{"numeric_consistency", "hallucination", "risk_thresholds", "disclaimer"},
		verdict.ChecksRun)

	// "portfolio" triggers the disclaimer even on a clean answer.
	assert.True(t, verdict.DisclaimerAppended)
	assert.True(t, strings.HasSuffix(out, FinancialDisclaimer))
}

func TestPipeline_AnnotatesButNeverBlocks(t *testing.T) {
	ledger := agent.NewLedger()
	ledger.Append(agent.ToolCall{
		Tool:   "portfolio_summary",
		Result: json.RawMessage(`{"total_value": 50000, "holdings": [{"symbol": "AAPL", "weight_pct": 80}]}`),
	})

	p := NewPipeline()
	response := "Your NVDA position is worth $99,999. You should buy more."
	out, verdict := p.Verify(response, ledger)

	// Every problem is annotated.
	assert.False(t, verdict.NumericConsistent)
	assert.Contains(t, verdict.HallucinatedSymbols, "NVDA")
	assert.NotEmpty(t, verdict.RiskFlags)
	assert.True(t, verdict.ActionLanguageFlagged)
	assert.Greater(t, verdict.Violations(), 2)

	// The response text survives, amended only by annotation passes.
	assert.Contains(t, out, "Your NVDA position is worth $99,999.")
}

func TestPipeline_ViolationHook(t *testing.T) {
	ledger := agent.NewLedger()

	var fired []string
	p := NewPipeline(WithViolationHook(func(check string) {
		fired = append(fired, check)
	}))

	_, _ = p.Verify("Your portfolio is worth $1,000,000.", ledger)

	require.NotEmpty(t, fired)
	assert.Contains(t, fired, "numeric_consistency")
}

func TestPipeline_HotReloadedThresholds(t *testing.T) {
	ledger := agent.NewLedger()
	ledger.Append(agent.ToolCall{
		Tool: "portfolio_summary",
		Result: json.RawMessage(`{"holdings": [
			{"symbol": "AAPL", "weight_pct": 30},
			{"symbol": "VTI", "weight_pct": 18},
			{"symbol": "MSFT", "weight_pct": 16},
			{"symbol": "BND", "weight_pct": 18},
			{"symbol": "GLD", "weight_pct": 18}
		]}`),
	})

	store := NewThresholdStore(DefaultThresholds())
	p := NewPipeline(WithThresholdStore(store))

	_, verdict := p.Verify("summary", ledger)
	assert.NotEmpty(t, verdict.RiskFlags, "30% holding should flag at default 25% limit")

	relaxed := DefaultThresholds()
	relaxed.SingleHoldingPct = 40
	relaxed.Top3HoldingsPct = 80
	store.Set(relaxed)

	_, verdict = p.Verify("summary", ledger)
	assert.Empty(t, verdict.RiskFlags, "relaxed limits should clear the flags")
}

func TestLoadThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("single_holding_pct: 35\nmin_holdings: 3\n"), 0o600))

	th, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 35.0, th.SingleHoldingPct)
	assert.Equal(t, 3, th.MinHoldings)
	// Unspecified fields keep defaults.
	assert.Equal(t, 60.0, th.Top3HoldingsPct)
	assert.Equal(t, 1.0, th.PercentPointTolerance)
}

func TestLoadThresholds_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := LoadThresholds(path)
	assert.Error(t, err)
}
