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
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/services/marketdata"
)

func (r *Registry) registerMarketTools(md *marketdata.Client) {
	r.Register(&Tool{
		Name:        "stock_price",
		Description: "Get the current market price, previous close, and day change for a ticker.",
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
			quote, err := md.GetQuote(ctx, in.Symbol)
			if err != nil {
				return nil, fmt.Errorf("quote %s: %w", strings.ToUpper(in.Symbol), err)
			}
			return marshalResult(quote)
		},
	})

	r.Register(&Tool{
		Name:        "stock_trend",
		Description: "Get price movement for a ticker over a period (1d, 5d, 1m, 3m, 6m, 1y): start and end price, change percent, high, and low.",
		Parameters: objectSchema(map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Ticker symbol"},
			"period": map[string]any{"type": "string", "description": "Lookback period, defaults to 1m"},
		}, "symbol"),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Symbol string `json:"symbol" validate:"required"`
				Period string `json:"period"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.Period == "" {
				in.Period = "1m"
			}
			if !marketdata.ValidPeriod(in.Period) {
				return nil, fmt.Errorf("%w: period must be one of 1d, 5d, 1m, 3m, 6m, 1y", ErrInvalidArguments)
			}
			trend, err := md.GetTrend(ctx, in.Symbol, in.Period)
			if err != nil {
				return nil, fmt.Errorf("trend %s: %w", strings.ToUpper(in.Symbol), err)
			}
			return marshalResult(trend)
		},
	})

	r.Register(&Tool{
		Name:        "stock_volume",
		Description: "Get the latest trading volume for a ticker.",
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
			volume, err := md.GetVolume(ctx, in.Symbol)
			if err != nil {
				return nil, fmt.Errorf("volume %s: %w", strings.ToUpper(in.Symbol), err)
			}
			return marshalResult(map[string]any{
				"symbol": strings.ToUpper(in.Symbol),
				"volume": volume,
			})
		},
	})

	r.Register(&Tool{
		Name:        "sector_performance",
		Description: "Get per-sector market returns over a period (1d, 5d, 1m, 3m, 6m, 1y), proxied by SPDR sector ETFs, best first.",
		Parameters: objectSchema(map[string]any{
			"period": map[string]any{"type": "string", "description": "Lookback period, defaults to 1m"},
		}),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Period string `json:"period"`
			}
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.Period == "" {
				in.Period = "1m"
			}
			if !marketdata.ValidPeriod(in.Period) {
				return nil, fmt.Errorf("%w: period must be one of 1d, 5d, 1m, 3m, 6m, 1y", ErrInvalidArguments)
			}
			sectors, err := md.GetSectorPerformance(ctx, in.Period)
			if err != nil {
				return nil, fmt.Errorf("sector performance: %w", err)
			}
			return marshalResult(map[string]any{
				"period":  strings.ToLower(in.Period),
				"sectors": sectors,
			})
		},
	})
}
