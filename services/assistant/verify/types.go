// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verify checks generated answers against the episode's fact
// ledger. Checks annotate a Verdict and may amend the response text
// (disclaimers); they never block or rewrite the substance of an
// answer and they never fail the request.
package verify

import (
	"time"

	"github.com/finsight-ai/finsight/services/assistant/agent"
)

// RiskFlag is one portfolio risk threshold breach.
type RiskFlag struct {
	// Kind identifies the breached threshold.
	Kind string `json:"kind"`

	// Detail is a human-readable description with the observed value.
	Detail string `json:"detail"`
}

// Risk flag kinds.
const (
	RiskSingleConcentration = "single_holding_concentration"
	RiskTop3Concentration   = "top3_concentration"
	RiskDrawdown            = "drawdown"
	RiskLowDiversification  = "low_diversification"
)

// Verdict is the annotation record for one verified response.
type Verdict struct {
	// NumericConsistent is false when a currency or percent value in
	// the response matches nothing in the ledger within tolerance.
	NumericConsistent bool `json:"numeric_consistent"`

	// FlaggedValues lists the unmatched numeric literals as written.
	FlaggedValues []string `json:"flagged_values,omitempty"`

	// HallucinatedSymbols lists ticker-like tokens the response uses
	// in a financial context that no tool result mentions.
	HallucinatedSymbols []string `json:"hallucinated_symbols,omitempty"`

	// RiskFlags lists portfolio risk thresholds the ledger data breaches.
	RiskFlags []RiskFlag `json:"risk_flags,omitempty"`

	// DisclaimerAppended is true when the canonical disclaimer was
	// added to the response.
	DisclaimerAppended bool `json:"disclaimer_appended"`

	// ActionLanguageFlagged is true when the response contains
	// personalized buy or sell instructions.
	ActionLanguageFlagged bool `json:"action_language_flagged"`

	// ChecksRun lists the checks that executed, in order.
	ChecksRun []string `json:"checks_run"`

	// Duration is total verification wall time.
	Duration time.Duration `json:"duration"`
}

// Violations counts the annotations that indicate a problem.
func (v *Verdict) Violations() int {
	n := len(v.HallucinatedSymbols) + len(v.RiskFlags)
	if !v.NumericConsistent {
		n++
	}
	if v.ActionLanguageFlagged {
		n++
	}
	return n
}

// Checker is one verification pass.
//
// Check inspects the response against the ledger, annotates the
// verdict, and returns the (possibly amended) response text.
type Checker interface {
	Name() string
	Check(response string, ledger *agent.Ledger, thresholds Thresholds, verdict *Verdict) string
}
