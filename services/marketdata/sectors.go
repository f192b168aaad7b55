// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package marketdata

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// sectorETFs maps each GICS sector to its SPDR proxy ETF.
var sectorETFs = map[string]string{
	"Technology":             "XLK",
	"Healthcare":             "XLV",
	"Financials":             "XLF",
	"Consumer Discretionary": "XLY",
	"Consumer Staples":       "XLP",
	"Energy":                 "XLE",
	"Industrials":            "XLI",
	"Materials":              "XLB",
	"Real Estate":            "XLRE",
	"Utilities":              "XLU",
	"Communication Services": "XLC",
}

// SectorPerformance is one sector's return over a period, proxied by
// its SPDR ETF.
type SectorPerformance struct {
	Sector    string  `json:"sector"`
	ETF       string  `json:"etf"`
	ChangePct float64 `json:"change_pct"`
}

// GetSectorPerformance returns per-sector returns for the period,
// best-performing first. The eleven ETF fetches run concurrently,
// bounded so the shared rate limiter is not drained in one burst.
// Sectors whose ETF fetch fails are skipped; the result is partial
// rather than an error as long as at least one sector resolved.
func (c *Client) GetSectorPerformance(ctx context.Context, period string) ([]SectorPerformance, error) {
	var (
		mu      sync.Mutex
		out     []SectorPerformance
		lastErr error
	)

	var g errgroup.Group
	g.SetLimit(4)
	for sector, etf := range sectorETFs {
		g.Go(func() error {
			trend, err := c.GetTrend(ctx, etf, period)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				c.logger.Warn("sector ETF fetch failed", "sector", sector, "etf", etf, "error", err.Error())
				return nil
			}
			out = append(out, SectorPerformance{
				Sector:    sector,
				ETF:       etf,
				ChangePct: trend.ChangePct,
			})
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangePct > out[j].ChangePct })
	return out, nil
}
