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

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Ledger is the append-only fact record for one episode.
//
// Every tool invocation appends exactly one entry, including failed
// calls. The verification pipeline reads the ledger as the sole ground
// truth: a number or symbol that cannot be traced to a ledger entry is
// treated as unsupported.
//
// Thread Safety: Ledger is safe for concurrent use, although an
// episode invokes tools strictly sequentially.
type Ledger struct {
	mu    sync.RWMutex
	calls []ToolCall
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records a completed tool call. Entries are immutable once
// appended.
func (l *Ledger) Append(call ToolCall) {
	if call.Timestamp.IsZero() {
		call.Timestamp = time.Now()
	}
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

// Calls returns a copy of all entries in append order.
func (l *Ledger) Calls() []ToolCall {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ToolCall, len(l.calls))
	copy(out, l.calls)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.calls)
}

// ToolNames returns the distinct tools invoked, in first-use order.
func (l *Ledger) ToolNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, c := range l.calls {
		if !seen[c.Tool] {
			seen[c.Tool] = true
			out = append(out, c.Tool)
		}
	}
	return out
}

// Invoked reports whether the tool was called during the episode.
func (l *Ledger) Invoked(tool string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.calls {
		if c.Tool == tool {
			return true
		}
	}
	return false
}

// RawText returns all successful result payloads concatenated.
// Used for substring grounding checks.
func (l *Ledger) RawText() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	for _, c := range l.calls {
		if len(c.Result) > 0 {
			b.Write(c.Result)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// NumericFacts returns every number found in successful results,
// discovered by a recursive walk of the decoded JSON.
func (l *Ledger) NumericFacts() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var facts []float64
	for _, c := range l.calls {
		if len(c.Result) == 0 {
			continue
		}
		var decoded any
		if err := json.Unmarshal(c.Result, &decoded); err != nil {
			continue
		}
		collectNumbers(decoded, &facts)
	}
	return facts
}

// collectNumbers walks decoded JSON gathering float values.
func collectNumbers(v any, out *[]float64) {
	switch t := v.(type) {
	case float64:
		*out = append(*out, t)
	case map[string]any:
		// Deterministic order keeps derived-ratio checks stable.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectNumbers(t[k], out)
		}
	case []any:
		for _, item := range t {
			collectNumbers(item, out)
		}
	}
}

// symbolKeys are JSON keys whose string values name instruments.
var symbolKeys = map[string]bool{
	"symbol":             true,
	"ticker":             true,
	"etf":                true,
	"top_holding_symbol": true,
}

// Symbols returns every instrument symbol appearing in successful
// results, uppercased.
func (l *Ledger) Symbols() map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	symbols := make(map[string]bool)
	for _, c := range l.calls {
		if len(c.Result) == 0 {
			continue
		}
		var decoded any
		if err := json.Unmarshal(c.Result, &decoded); err != nil {
			continue
		}
		collectSymbols(decoded, symbols)
	}
	return symbols
}

// collectSymbols walks decoded JSON gathering symbol values and
// symbol-shaped map keys (holdings maps are keyed by ticker).
func collectSymbols(v any, out map[string]bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if symbolKeys[k] {
				if s, ok := val.(string); ok && s != "" {
					out[strings.ToUpper(s)] = true
				}
			}
			if looksLikeTicker(k) {
				out[k] = true
			}
			collectSymbols(val, out)
		}
	case []any:
		for _, item := range t {
			collectSymbols(item, out)
		}
	}
}

// tickerShape matches an uppercase ticker-shaped string.
var tickerShape = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

func looksLikeTicker(s string) bool {
	return len(s) >= 1 && len(s) <= 10 && tickerShape.MatchString(s)
}

// notFoundMarkers flag results reporting an unresolvable symbol.
var notFoundMarkers = []string{"not found", "no results", "NOT_FOUND"}

// NotFoundSymbols returns symbols the episode looked up and failed to
// resolve. The hallucination checker exempts these: the model is
// allowed to echo a symbol back while reporting it does not exist.
func (l *Ledger) NotFoundSymbols() map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]bool)
	for _, c := range l.calls {
		payload := string(c.Result)
		notFound := c.Failed()
		if !notFound {
			lower := strings.ToLower(payload)
			for _, marker := range notFoundMarkers {
				if strings.Contains(lower, strings.ToLower(marker)) {
					notFound = true
					break
				}
			}
		}
		if !notFound {
			continue
		}

		var args map[string]any
		if err := json.Unmarshal(c.Arguments, &args); err != nil {
			continue
		}
		for k, v := range args {
			if k != "symbol" && k != "ticker" && k != "query" {
				continue
			}
			if s, ok := v.(string); ok {
				upper := strings.ToUpper(strings.TrimSpace(s))
				if looksLikeTicker(upper) {
					out[upper] = true
				}
			}
		}
	}
	return out
}

// PortfolioFetched reports whether any entry carries portfolio state.
// Risk threshold checks only run when this is true: stale risk
// warnings from earlier turns are worse than none.
func (l *Ledger) PortfolioFetched() bool {
	portfolioTools := map[string]bool{
		"portfolio_summary":     true,
		"market_sentiment":      true,
		"portfolio_performance": true,
		"holding_detail":        true,
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.calls {
		if portfolioTools[c.Tool] && len(c.Result) > 0 {
			return true
		}
	}
	return false
}

// FormatRaw renders the ledger as a plain structured-data answer.
// Used when every model provider is unavailable: the user still gets
// the facts that were fetched, without generated prose.
func (l *Ledger) FormatRaw() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.calls) == 0 {
		return "The assistant is temporarily unable to generate a response, and no portfolio data was retrieved for this request. Please try again shortly."
	}

	var b strings.Builder
	b.WriteString("The assistant is temporarily unable to generate a narrative response. Raw data retrieved for this request:\n")
	for _, c := range l.calls {
		if c.Failed() {
			fmt.Fprintf(&b, "\n%s: error: %s\n", c.Tool, c.Err)
			continue
		}
		pretty := prettyJSON(c.Result)
		fmt.Fprintf(&b, "\n%s:\n%s\n", c.Tool, pretty)
	}
	return b.String()
}

// prettyJSON indents a raw message, falling back to the raw bytes.
func prettyJSON(raw json.RawMessage) string {
	var buf strings.Builder
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decoded); err != nil {
		return string(raw)
	}
	return strings.TrimRight(buf.String(), "\n")
}
