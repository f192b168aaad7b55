// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verify

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/finsight-ai/finsight/pkg/logging"
)

// Thresholds holds the tunable limits for the verification checks.
type Thresholds struct {
	// SingleHoldingPct flags any one holding above this weight.
	SingleHoldingPct float64 `yaml:"single_holding_pct"`

	// Top3HoldingsPct flags the three largest holdings above this
	// combined weight.
	Top3HoldingsPct float64 `yaml:"top3_holdings_pct"`

	// MaxDrawdownPct flags a drawdown whose magnitude exceeds this.
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`

	// MinHoldings flags portfolios with fewer distinct holdings.
	MinHoldings int `yaml:"min_holdings"`

	// CurrencyRelTolerance is the relative tolerance for matching a
	// currency amount against a ledger fact.
	CurrencyRelTolerance float64 `yaml:"currency_rel_tolerance"`

	// PercentPointTolerance is the absolute tolerance, in percentage
	// points, for matching a percent against a ledger fact.
	PercentPointTolerance float64 `yaml:"percent_point_tolerance"`
}

// DefaultThresholds returns the shipped limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SingleHoldingPct:      25,
		Top3HoldingsPct:       60,
		MaxDrawdownPct:        20,
		MinHoldings:           5,
		CurrencyRelTolerance:  0.01,
		PercentPointTolerance: 1.0,
	}
}

// LoadThresholds reads limits from a YAML file. Zero-valued fields
// fall back to the defaults so a partial file is valid.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultThresholds(), fmt.Errorf("parse thresholds: %w", err)
	}
	d := DefaultThresholds()
	if t.SingleHoldingPct <= 0 {
		t.SingleHoldingPct = d.SingleHoldingPct
	}
	if t.Top3HoldingsPct <= 0 {
		t.Top3HoldingsPct = d.Top3HoldingsPct
	}
	if t.MaxDrawdownPct <= 0 {
		t.MaxDrawdownPct = d.MaxDrawdownPct
	}
	if t.MinHoldings <= 0 {
		t.MinHoldings = d.MinHoldings
	}
	if t.CurrencyRelTolerance <= 0 {
		t.CurrencyRelTolerance = d.CurrencyRelTolerance
	}
	if t.PercentPointTolerance <= 0 {
		t.PercentPointTolerance = d.PercentPointTolerance
	}
	return t, nil
}

// ThresholdStore holds the active thresholds and supports hot reload.
//
// Thread Safety: Safe for concurrent use.
type ThresholdStore struct {
	mu sync.RWMutex
	t  Thresholds
}

// NewThresholdStore creates a store seeded with t.
func NewThresholdStore(t Thresholds) *ThresholdStore {
	return &ThresholdStore{t: t}
}

// Get returns the active thresholds.
func (s *ThresholdStore) Get() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

// Set replaces the active thresholds.
func (s *ThresholdStore) Set(t Thresholds) {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
}

// Watch reloads the store whenever the file at path changes. A file
// that fails to parse keeps the previous thresholds. Watch blocks
// until ctx is done; callers run it in a goroutine.
func (s *ThresholdStore) Watch(ctx context.Context, path string, logger *logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			t, err := LoadThresholds(path)
			if err != nil {
				logger.Warn("threshold reload failed, keeping previous values",
					"path", path, "error", err.Error())
				continue
			}
			s.Set(t)
			logger.Info("verification thresholds reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("threshold watcher error", "error", err.Error())
		}
	}
}
