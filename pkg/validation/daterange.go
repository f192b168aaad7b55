// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"fmt"
	"strings"
)

// validDateRanges are the performance windows accepted by the wealth API.
var validDateRanges = map[string]bool{
	"1d":  true,
	"1w":  true,
	"1m":  true,
	"3m":  true,
	"6m":  true,
	"ytd": true,
	"1y":  true,
	"3y":  true,
	"5y":  true,
	"max": true,
}

// ValidateDateRange validates a performance date range string.
//
// Valid ranges: 1d, 1w, 1m, 3m, 6m, ytd, 1y, 3y, 5y, max.
// Matching is case-insensitive; use SanitizeDateRange to normalize.
func ValidateDateRange(dateRange string) error {
	if dateRange == "" {
		return fmt.Errorf("date range cannot be empty")
	}
	if !validDateRanges[strings.ToLower(dateRange)] {
		return fmt.Errorf("invalid date range: %q (must be one of 1d, 1w, 1m, 3m, 6m, ytd, 1y, 3y, 5y, max)", dateRange)
	}
	return nil
}

// SanitizeDateRange normalizes and validates a date range string.
// Returns the lowercase range if valid, or an error if invalid.
func SanitizeDateRange(dateRange string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(dateRange))
	if err := ValidateDateRange(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateTradeSide validates an order side.
//
// Valid sides: BUY, SELL (case-insensitive).
func ValidateTradeSide(side string) error {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case "BUY", "SELL":
		return nil
	default:
		return fmt.Errorf("invalid trade side: %q (must be BUY or SELL)", side)
	}
}
