// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"testing"
)

func TestValidateDateRange(t *testing.T) {
	tests := []struct {
		name      string
		dateRange string
		wantErr   bool
	}{
		{"one day", "1d", false},
		{"one week", "1w", false},
		{"one month", "1m", false},
		{"three months", "3m", false},
		{"six months", "6m", false},
		{"year to date", "ytd", false},
		{"one year", "1y", false},
		{"three years", "3y", false},
		{"five years", "5y", false},
		{"max", "max", false},
		{"uppercase accepted", "YTD", false},

		{"empty", "", true},
		{"unknown range", "2w", true},
		{"injection attempt", "1d&admin=true", true},
		{"whole word", "yearly", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDateRange(tt.dateRange)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDateRange(%q) error = %v, wantErr %v", tt.dateRange, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeDateRange(t *testing.T) {
	tests := []struct {
		name      string
		dateRange string
		want      string
		wantErr   bool
	}{
		{"lowercase passthrough", "ytd", "ytd", false},
		{"uppercase normalized", "YTD", "ytd", false},
		{"spaces trimmed", " 1y ", "1y", false},
		{"invalid rejected", "forever", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeDateRange(tt.dateRange)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeDateRange(%q) error = %v, wantErr %v", tt.dateRange, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeDateRange(%q) = %q, want %q", tt.dateRange, got, tt.want)
			}
		})
	}
}

func TestValidateTradeSide(t *testing.T) {
	tests := []struct {
		name    string
		side    string
		wantErr bool
	}{
		{"buy upper", "BUY", false},
		{"sell upper", "SELL", false},
		{"buy lower", "buy", false},
		{"sell mixed", "Sell", false},
		{"empty", "", true},
		{"hold", "HOLD", true},
		{"short", "SHORT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTradeSide(tt.side)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTradeSide(%q) error = %v, wantErr %v", tt.side, err, tt.wantErr)
			}
		})
	}
}
