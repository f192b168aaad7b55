// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/finsight-ai/finsight/services/ghostfolio"
)

// topHolding is one entry of the portfolio summary's largest positions.
type topHolding struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	WeightPct      float64 `json:"weight_pct"`
	PerformancePct float64 `json:"performance_pct"`
}

func (r *Registry) registerPortfolioTools(gf *ghostfolio.Client) {
	r.Register(&Tool{
		Name:        "portfolio_summary",
		Description: "Get the portfolio's total value, overall performance, largest holdings, and allocation by asset class. Use this first for any question about what the user owns.",
		Parameters:  objectSchema(map[string]any{}),
		handler: func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			details, err := gf.PortfolioDetails(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch portfolio details: %w", err)
			}
			return marshalResult(buildSummary(details))
		},
	})

	r.Register(&Tool{
		Name:        "portfolio_performance",
		Description: "Get portfolio returns over a date range (1d, 1w, 1m, 3m, 6m, ytd, 1y, 3y, 5y, max), including max drawdown over the range.",
		Parameters: objectSchema(map[string]any{
			"date_range": map[string]any{
				"type":        "string",
				"description": "Range to report, defaults to ytd",
			},
		}),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				DateRange string `json:"date_range"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.DateRange == "" {
				in.DateRange = "ytd"
			}
			perf, err := gf.Performance(ctx, in.DateRange)
			if err != nil {
				return nil, fmt.Errorf("fetch performance: %w", err)
			}
			out := map[string]any{
				"date_range":            strings.ToLower(in.DateRange),
				"net_performance_pct":   round2(perf.Performance.NetPerformancePercentage * 100),
				"gross_performance_pct": round2(perf.Performance.GrossPerformancePercentage * 100),
				"net_performance":       round2(perf.Performance.NetPerformance),
				"total_investment":      round2(perf.Performance.TotalInvestment),
				"current_value":         round2(perf.Performance.CurrentValueInBaseCurrency),
			}
			if dd, ok := maxDrawdown(perf.Chart); ok {
				out["max_drawdown_pct"] = round2(dd)
			}
			return marshalResult(out)
		},
	})

	r.Register(&Tool{
		Name:        "holding_detail",
		Description: "Get detail for one holding by symbol: quantity, value, performance, sectors, and countries.",
		Parameters: objectSchema(map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Ticker symbol, e.g. AAPL"},
		}, "symbol"),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Symbol string `json:"symbol" validate:"required"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			holding, err := gf.HoldingDetail(ctx, "YAHOO", in.Symbol)
			if errors.Is(err, ghostfolio.ErrNotFound) {
				return marshalResult(map[string]any{
					"symbol":  strings.ToUpper(in.Symbol),
					"message": fmt.Sprintf("holding %s not found in the portfolio", strings.ToUpper(in.Symbol)),
				})
			}
			if err != nil {
				return nil, fmt.Errorf("fetch holding %s: %w", in.Symbol, err)
			}
			return marshalResult(map[string]any{
				"symbol":          holding.Symbol,
				"name":            holding.Name,
				"asset_class":     holding.AssetClass,
				"currency":        holding.Currency,
				"quantity":        holding.Quantity,
				"value":           round2(holding.ValueInBaseCurrency),
				"weight_pct":      round2(holding.AllocationInPercent * 100),
				"performance_pct": round2(holding.NetPerformancePercent * 100),
				"sectors":         holding.Sectors,
				"countries":       holding.Countries,
			})
		},
	})

	r.Register(&Tool{
		Name:        "transactions",
		Description: "List recorded trades, optionally filtered by symbol. Returns the most recent first.",
		Parameters: objectSchema(map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Optional ticker filter"},
			"limit":  map[string]any{"type": "integer", "description": "Max rows, default 20"},
		}),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Symbol string `json:"symbol"`
				Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.Limit == 0 {
				in.Limit = 20
			}
			resp, err := gf.Activities(ctx, ghostfolio.ActivitiesQuery{Take: in.Limit, Symbol: in.Symbol})
			if err != nil {
				return nil, fmt.Errorf("fetch transactions: %w", err)
			}
			rows := make([]map[string]any, 0, len(resp.Activities))
			for _, a := range resp.Activities {
				rows = append(rows, map[string]any{
					"date":       a.Date,
					"type":       a.Type,
					"symbol":     a.SymbolProfile.Symbol,
					"quantity":   a.Quantity,
					"unit_price": a.UnitPrice,
					"fee":        a.Fee,
					"currency":   a.Currency,
				})
			}
			return marshalResult(map[string]any{"transactions": rows, "count": resp.Count})
		},
	})

	r.Register(&Tool{
		Name:        "dividend_history",
		Description: "Get dividend payments received for one holding by symbol.",
		Parameters: objectSchema(map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Ticker symbol"},
		}, "symbol"),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Symbol string `json:"symbol" validate:"required"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			resp, err := gf.Dividends(ctx, "YAHOO", in.Symbol)
			if err != nil {
				return nil, fmt.Errorf("fetch dividends for %s: %w", in.Symbol, err)
			}
			if len(resp.Dividends) == 0 {
				return marshalResult(map[string]any{
					"symbol":  strings.ToUpper(in.Symbol),
					"message": fmt.Sprintf("no results: no dividends recorded for %s", strings.ToUpper(in.Symbol)),
				})
			}
			total := 0.0
			for _, d := range resp.Dividends {
				total += d.NetDividend
			}
			return marshalResult(map[string]any{
				"symbol":         strings.ToUpper(in.Symbol),
				"dividends":      resp.Dividends,
				"total_received": round2(total),
			})
		},
	})

	r.Register(&Tool{
		Name:        "symbol_search",
		Description: "Search for a ticker symbol by company name or partial symbol. Use before add_trade when the user names a company instead of a ticker.",
		Parameters: objectSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Company name or partial symbol"},
		}, "query"),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Query string `json:"query" validate:"required,min=1"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			resp, err := gf.LookupSymbol(ctx, in.Query)
			if err != nil {
				return nil, fmt.Errorf("symbol lookup %q: %w", in.Query, err)
			}
			items := resp.Items
			if len(items) > 10 {
				items = items[:10]
			}
			if len(items) == 0 {
				return marshalResult(map[string]any{
					"query":   in.Query,
					"items":   []ghostfolio.LookupItem{},
					"message": fmt.Sprintf("no results: symbol %q not found", in.Query),
				})
			}
			return marshalResult(map[string]any{"query": in.Query, "items": items})
		},
	})

	r.Register(&Tool{
		Name:        "market_sentiment",
		Description: "Analyze portfolio concentration, sector and geographic exposure, and diversification. Use for risk questions.",
		Parameters:  objectSchema(map[string]any{}),
		handler: func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			details, err := gf.PortfolioDetails(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch portfolio details: %w", err)
			}
			return marshalResult(buildSentiment(details))
		},
	})
}

// buildSummary flattens /portfolio/details into the summary shape the
// model consumes.
func buildSummary(details *ghostfolio.PortfolioDetails) map[string]any {
	holdings := sortedHoldings(details)

	totalValue := 0.0
	for _, h := range holdings {
		totalValue += h.ValueInBaseCurrency
	}

	top := make([]topHolding, 0, 5)
	for i, h := range holdings {
		if i == 5 {
			break
		}
		weight := 0.0
		if totalValue > 0 {
			weight = h.ValueInBaseCurrency / totalValue * 100
		}
		top = append(top, topHolding{
			Symbol:         h.Symbol,
			Name:           h.Name,
			Value:          round2(h.ValueInBaseCurrency),
			WeightPct:      round2(weight),
			PerformancePct: round2(h.NetPerformancePercent * 100),
		})
	}

	byClass := make(map[string]float64)
	for _, h := range holdings {
		class := h.AssetClass
		if class == "" {
			class = "OTHER"
		}
		if totalValue > 0 {
			byClass[class] += h.ValueInBaseCurrency / totalValue * 100
		}
	}
	for k, v := range byClass {
		byClass[k] = round2(v)
	}

	out := map[string]any{
		"total_value":               round2(totalValue),
		"holdings_count":            len(holdings),
		"top_holdings":              top,
		"allocation_by_asset_class": byClass,
	}
	if s := details.Summary; s != nil {
		out["total_value"] = round2(s.CurrentValueInBaseCurrency)
		out["total_investment"] = round2(s.TotalInvestment)
		out["net_performance_pct"] = round2(s.NetPerformancePercentage * 100)
		out["cash"] = round2(s.Cash)
	}
	return out
}

// buildSentiment computes concentration and exposure metrics.
func buildSentiment(details *ghostfolio.PortfolioDetails) map[string]any {
	holdings := sortedHoldings(details)

	totalValue := 0.0
	for _, h := range holdings {
		totalValue += h.ValueInBaseCurrency
	}

	weights := make([]float64, 0, len(holdings))
	for _, h := range holdings {
		if totalValue > 0 {
			weights = append(weights, h.ValueInBaseCurrency/totalValue*100)
		}
	}

	topWeight, top3 := 0.0, 0.0
	topSymbol := ""
	if len(weights) > 0 {
		topWeight = weights[0]
		topSymbol = holdings[0].Symbol
		for i := 0; i < len(weights) && i < 3; i++ {
			top3 += weights[i]
		}
	}

	sectorW := make(map[string]float64)
	countryW := make(map[string]float64)
	for i, h := range holdings {
		if i >= len(weights) {
			break
		}
		for _, s := range h.Sectors {
			sectorW[s.Name] += weights[i] * s.Weight
		}
		for _, c := range h.Countries {
			countryW[c.Name] += weights[i] * c.Weight
		}
	}
	for k, v := range sectorW {
		sectorW[k] = round2(v)
	}
	for k, v := range countryW {
		countryW[k] = round2(v)
	}

	var riskFlags []string
	if topWeight > 25 {
		riskFlags = append(riskFlags, fmt.Sprintf("single holding %s is %.1f%% of the portfolio", topSymbol, topWeight))
	}
	if top3 > 60 {
		riskFlags = append(riskFlags, fmt.Sprintf("top 3 holdings are %.1f%% of the portfolio", top3))
	}
	if len(holdings) > 0 && len(holdings) < 5 {
		riskFlags = append(riskFlags, fmt.Sprintf("only %d holdings", len(holdings)))
	}

	return map[string]any{
		"holdings_count":        len(holdings),
		"top_holding_symbol":    topSymbol,
		"top_holding_pct":       round2(topWeight),
		"top3_pct":              round2(top3),
		"sector_weights":        sectorW,
		"country_weights":       countryW,
		"diversification_score": diversificationScore(weights, len(sectorW)),
		"risk_flags":            riskFlags,
	}
}

// sortedHoldings returns holdings by value, largest first.
func sortedHoldings(details *ghostfolio.PortfolioDetails) []ghostfolio.Holding {
	holdings := make([]ghostfolio.Holding, 0, len(details.Holdings))
	for _, h := range details.Holdings {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].ValueInBaseCurrency > holdings[j].ValueInBaseCurrency
	})
	return holdings
}

// diversificationScore maps holding and sector spread onto 0-100.
// A Herfindahl-style concentration penalty on weights, plus a small
// bonus per distinct sector, capped at 100.
func diversificationScore(weights []float64, sectorCount int) float64 {
	if len(weights) == 0 {
		return 0
	}
	hhi := 0.0
	for _, w := range weights {
		hhi += (w / 100) * (w / 100)
	}
	score := (1 - hhi) * 100
	score += float64(sectorCount) * 2
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return round2(score)
}

// maxDrawdown returns the deepest peak-to-trough decline, in percent,
// across the chart values. Negative by convention.
func maxDrawdown(chart []ghostfolio.ChartPoint) (float64, bool) {
	peak := 0.0
	worst := 0.0
	seen := false
	for _, p := range chart {
		v := p.ValueInBaseCurrency
		if v <= 0 {
			continue
		}
		seen = true
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	if !seen {
		return 0, false
	}
	return worst, true
}
