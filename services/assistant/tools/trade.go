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
	"time"

	"github.com/finsight-ai/finsight/pkg/validation"
	"github.com/finsight-ai/finsight/services/ghostfolio"
)

// defaultAccountName is created on first trade when the user has no
// Ghostfolio account yet.
const defaultAccountName = "Default"

// addTradeArgs is the add_trade argument schema.
type addTradeArgs struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Side      string  `json:"side" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"required,gt=0"`
	Fee       float64 `json:"fee" validate:"omitempty,gte=0"`
	Date      string  `json:"date"`
	Currency  string  `json:"currency"`
	Confirmed bool    `json:"confirmed"`
}

func (r *Registry) registerTradeTools(gf *ghostfolio.Client) {
	r.Register(&Tool{
		Name: "add_trade",
		Description: "Record a BUY or SELL trade in the portfolio. Call WITHOUT confirmed first: the tool returns a preview for the user to approve. " +
			"Only call again with confirmed=true after the user explicitly approves the preview. The trade is written on the confirmed call.",
		Mutating: true,
		Parameters: objectSchema(map[string]any{
			"symbol":     map[string]any{"type": "string", "description": "Ticker symbol, e.g. AAPL"},
			"side":       map[string]any{"type": "string", "enum": []string{"BUY", "SELL"}},
			"quantity":   map[string]any{"type": "number", "description": "Number of shares, must be positive"},
			"unit_price": map[string]any{"type": "number", "description": "Price per share"},
			"fee":        map[string]any{"type": "number", "description": "Optional commission"},
			"date":       map[string]any{"type": "string", "description": "Trade date YYYY-MM-DD, defaults to today"},
			"currency":   map[string]any{"type": "string", "description": "Trade currency, defaults to USD"},
			"confirmed":  map[string]any{"type": "boolean", "description": "Set true only after the user approves the preview"},
		}, "symbol", "side", "quantity", "unit_price"),
		handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in addTradeArgs
			if err := r.decodeArgs(args, &in); err != nil {
				return nil, err
			}

			symbol, err := validation.SanitizeTicker(in.Symbol)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, err.Error())
			}
			if err := validation.ValidateTradeSide(in.Side); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, err.Error())
			}
			side := strings.ToUpper(strings.TrimSpace(in.Side))
			if in.Date == "" {
				in.Date = time.Now().UTC().Format("2006-01-02")
			} else if _, err := time.Parse("2006-01-02", in.Date); err != nil {
				return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidArguments)
			}
			if in.Currency == "" {
				in.Currency = "USD"
			}
			in.Currency = strings.ToUpper(in.Currency)

			total := round2(in.Quantity*in.UnitPrice + in.Fee)

			if !in.Confirmed {
				return marshalResult(map[string]any{
					"status":                "preview",
					"confirmation_required": true,
					"side":                  side,
					"symbol":                symbol,
					"quantity":              in.Quantity,
					"unit_price":            in.UnitPrice,
					"fee":                   in.Fee,
					"date":                  in.Date,
					"currency":              in.Currency,
					"total":                 total,
					"message":               fmt.Sprintf("Preview: %s %g %s at %g %s on %s (total %g). Ask the user to confirm before recording.", side, in.Quantity, symbol, in.UnitPrice, in.Currency, in.Date, total),
				})
			}

			accountID, err := r.ensureAccount(ctx, gf, in.Currency)
			if err != nil {
				return nil, err
			}

			activity, err := gf.CreateOrder(ctx, ghostfolio.OrderRequest{
				AccountID:  accountID,
				Currency:   in.Currency,
				DataSource: "YAHOO",
				Date:       in.Date,
				Fee:        in.Fee,
				Quantity:   in.Quantity,
				Symbol:     symbol,
				Type:       side,
				UnitPrice:  in.UnitPrice,
			})
			if err != nil {
				return nil, fmt.Errorf("record trade: %w", err)
			}

			r.logger.Info("trade recorded",
				"symbol", symbol, "side", side,
				"quantity", in.Quantity, "activity_id", activity.ID,
			)
			return marshalResult(map[string]any{
				"status":      "recorded",
				"activity_id": activity.ID,
				"side":        side,
				"symbol":      symbol,
				"quantity":    in.Quantity,
				"unit_price":  in.UnitPrice,
				"date":        in.Date,
				"total":       total,
			})
		},
	})
}

// ensureAccount returns the user's first account, creating the default
// one when none exists.
func (r *Registry) ensureAccount(ctx context.Context, gf *ghostfolio.Client, currency string) (string, error) {
	accounts, err := gf.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts.Accounts) > 0 {
		return accounts.Accounts[0].ID, nil
	}
	created, err := gf.CreateAccount(ctx, defaultAccountName, currency)
	if err != nil {
		return "", fmt.Errorf("create default account: %w", err)
	}
	r.logger.Info("created default account", "account_id", created.ID)
	return created.ID, nil
}
