// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractorVersion identifies the extraction rule set. Bump it when a
// regex or the stoplist changes so flagged-value diffs across releases
// can be attributed to rule changes rather than model drift.
const ExtractorVersion = "1.0.0"

var (
	currencyRe = regexp.MustCompile(`\$[\d,]+(\.\d+)?`)
	percentRe  = regexp.MustCompile(`(\d+(\.\d+)?)%`)
	tickerRe   = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// tickerStoplist holds uppercase tokens that look like tickers but are
// ordinary words or financial abbreviations.
var tickerStoplist = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "ETF": true, "CEO": true,
	"IPO": true, "GDP": true, "YTD": true, "BUY": true, "SELL": true,
	"THE": true, "AND": true, "FOR": true, "NOT": true, "BUT": true,
	"ARE": true, "ALL": true, "CAN": true, "HAS": true, "HER": true,
	"ONE": true, "OUR": true, "OUT": true, "YOU": true, "DAY": true,
	"GET": true, "HIS": true, "HOW": true, "ITS": true, "MAY": true,
	"NEW": true, "NOW": true, "OLD": true, "SEE": true, "WAY": true,
	"WHO": true, "DID": true, "TOP": true, "FEE": true,
	"A": true, "I": true, "OK": true, "API": true, "FAQ": true,
}

// extractCurrencyValues returns every dollar amount in text, with the
// literal as written alongside the parsed value.
func extractCurrencyValues(text string) (literals []string, values []float64) {
	for _, m := range currencyRe.FindAllString(text, -1) {
		raw := strings.ReplaceAll(strings.TrimPrefix(m, "$"), ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		literals = append(literals, m)
		values = append(values, v)
	}
	return literals, values
}

// extractPercentValues returns every percentage in text.
func extractPercentValues(text string) (literals []string, values []float64) {
	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		literals = append(literals, m[0])
		values = append(values, v)
	}
	return literals, values
}

// extractTickerCandidates returns uppercase tokens that could be
// ticker symbols. Stoplisted words and tokens that open a sentence are
// skipped; sentence openers are usually emphasis, not symbols.
func extractTickerCandidates(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, loc := range tickerRe.FindAllStringIndex(text, -1) {
		tok := text[loc[0]:loc[1]]
		if tickerStoplist[tok] || seen[tok] {
			continue
		}
		if startsSentence(text, loc[0]) {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// startsSentence reports whether position i opens the text or follows
// sentence-ending punctuation.
func startsSentence(text string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		c := text[j]
		switch {
		case c == ' ' || c == '\t':
			continue
		case c == '.' || c == '!' || c == '?' || c == '\n':
			return true
		default:
			return false
		}
	}
	return true
}
