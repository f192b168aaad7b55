// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"reflect"
	"testing"
)

func TestExtractCurrencyValues(t *testing.T) {
	lits, vals := extractCurrencyValues("Your portfolio is worth $50,000.25 and AAPL adds $1,234.")
	if !reflect.DeepEqual(lits, []string{"$50,000.25", "$1,234"}) {
		t.Errorf("literals = %v", lits)
	}
	if !reflect.DeepEqual(vals, []float64{50000.25, 1234}) {
		t.Errorf("values = %v", vals)
	}
}

func TestExtractPercentValues(t *testing.T) {
	lits, vals := extractPercentValues("Up 12.5% YTD, with AAPL at 30% of the portfolio.")
	if !reflect.DeepEqual(lits, []string{"12.5%", "30%"}) {
		t.Errorf("literals = %v", lits)
	}
	if !reflect.DeepEqual(vals, []float64{12.5, 30}) {
		t.Errorf("values = %v", vals)
	}
}

func TestExtractTickerCandidates(t *testing.T) {
	text := "Your largest holding is AAPL, followed by MSFT. The ETF VTI rounds it out."
	got := extractTickerCandidates(text)
	want := []string{"AAPL", "MSFT", "VTI"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}
}

func TestExtractTickerCandidates_Stoplist(t *testing.T) {
	got := extractTickerCandidates("The CEO said the IPO and GDP numbers moved USD and EUR markets.")
	if len(got) != 0 {
		t.Errorf("stoplisted words leaked through: %v", got)
	}
}

func TestExtractTickerCandidates_SentenceLeadersSkipped(t *testing.T) {
	// GOOG opens a sentence so it is skipped; AAPL mid-sentence is kept.
	got := extractTickerCandidates("GOOG moved today. Your AAPL position gained.")
	want := []string{"AAPL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}
}

func TestExtractTickerCandidates_Deduplicates(t *testing.T) {
	got := extractTickerCandidates("Both AAPL calls and AAPL puts reference AAPL itself.")
	if len(got) != 1 || got[0] != "AAPL" {
		t.Errorf("candidates = %v, want [AAPL]", got)
	}
}
