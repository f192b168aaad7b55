// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package marketdata fetches live quotes from the Yahoo Finance chart
// API. It backs the stock price, trend, volume, and sector performance
// tools.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/pkg/validation"
)

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// --- Yahoo Finance Structs ---

type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  interface{}   `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta       yahooMeta       `json:"meta"`
	Timestamp  []int64         `json:"timestamp"`
	Indicators yahooIndicators `json:"indicators"`
}

type yahooMeta struct {
	Currency           string  `json:"currency"`
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	PreviousClose      float64 `json:"chartPreviousClose"`
}

type yahooIndicators struct {
	Quote []struct {
		Open   []float64 `json:"open"`
		High   []float64 `json:"high"`
		Low    []float64 `json:"low"`
		Close  []float64 `json:"close"`
		Volume []int64   `json:"volume"`
	} `json:"quote"`
	AdjClose []struct {
		AdjClose []float64 `json:"adjclose"`
	} `json:"adjclose"`
}

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	ChangePct     float64 `json:"change_pct"`
	Volume        int64   `json:"volume"`
	AsOf          string  `json:"as_of"`
}

// Trend summarizes price movement over a period.
type Trend struct {
	Symbol     string    `json:"symbol"`
	Period     string    `json:"period"`
	StartPrice float64   `json:"start_price"`
	EndPrice   float64   `json:"end_price"`
	ChangePct  float64   `json:"change_pct"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Closes     []float64 `json:"closes"`
}

// periodStarts maps a trend period to its lookback duration.
var periodStarts = map[string]time.Duration{
	"1d": 24 * time.Hour,
	"5d": 5 * 24 * time.Hour,
	"1m": 30 * 24 * time.Hour,
	"3m": 91 * 24 * time.Hour,
	"6m": 182 * 24 * time.Hour,
	"1y": 365 * 24 * time.Hour,
}

// ValidPeriod reports whether the trend period is supported.
func ValidPeriod(period string) bool {
	_, ok := periodStarts[strings.ToLower(period)]
	return ok
}

// Client fetches market data from the Yahoo Finance chart API.
//
// Requests are throttled with a token bucket so burst tool activity
// cannot trip Yahoo's rate limiting.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient HTTPClient
	limiter    *rate.Limiter
	logger     *logging.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (used in tests).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the Yahoo endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a market data client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 8), // 4 req/s, burst 8
		logger:     logging.Default(),
		baseURL:    "https://query1.finance.yahoo.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetchChart calls the chart endpoint for one ticker.
func (c *Client) fetchChart(ctx context.Context, ticker string, start, end time.Time, interval string) (*yahooResult, error) {
	safeTicker, err := validation.SanitizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s&events=history",
		c.baseURL, safeTicker, start.Unix(), end.Unix(), interval,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Yahoo API returned status %s", resp.Status)
	}

	var chartData yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartData); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo JSON: %w", err)
	}

	if chartData.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo API error: %v", chartData.Chart.Error)
	}
	if len(chartData.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results for ticker %s", safeTicker)
	}

	return &chartData.Chart.Result[0], nil
}

// GetQuote returns the latest price snapshot for a ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	end := time.Now()
	res, err := c.fetchChart(ctx, ticker, end.Add(-5*24*time.Hour), end, "1d")
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Symbol:        res.Meta.Symbol,
		Currency:      res.Meta.Currency,
		Price:         res.Meta.RegularMarketPrice,
		PreviousClose: res.Meta.PreviousClose,
		AsOf:          end.UTC().Format(time.RFC3339),
	}
	if quote.PreviousClose != 0 {
		quote.ChangePct = (quote.Price - quote.PreviousClose) / quote.PreviousClose * 100
	}

	if len(res.Indicators.Quote) > 0 {
		volumes := res.Indicators.Quote[0].Volume
		for i := len(volumes) - 1; i >= 0; i-- {
			if volumes[i] > 0 {
				quote.Volume = volumes[i]
				break
			}
		}
	}
	return quote, nil
}

// GetTrend returns price movement over the given period.
//
// Valid periods: 1d, 5d, 1m, 3m, 6m, 1y.
func (c *Client) GetTrend(ctx context.Context, ticker, period string) (*Trend, error) {
	lookback, ok := periodStarts[strings.ToLower(period)]
	if !ok {
		return nil, fmt.Errorf("invalid period: %q (must be one of 1d, 5d, 1m, 3m, 6m, 1y)", period)
	}

	end := time.Now()
	interval := "1d"
	if lookback <= 24*time.Hour {
		interval = "15m"
	}
	res, err := c.fetchChart(ctx, ticker, end.Add(-lookback), end, interval)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("incomplete indicators for ticker %s", ticker)
	}

	var closes []float64
	for _, v := range res.Indicators.Quote[0].Close {
		if v > 0 {
			closes = append(closes, v)
		}
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("no close prices for ticker %s", ticker)
	}

	trend := &Trend{
		Symbol:     res.Meta.Symbol,
		Period:     strings.ToLower(period),
		StartPrice: closes[0],
		EndPrice:   closes[len(closes)-1],
		High:       closes[0],
		Low:        closes[0],
		Closes:     closes,
	}
	for _, v := range closes {
		if v > trend.High {
			trend.High = v
		}
		if v < trend.Low {
			trend.Low = v
		}
	}
	if trend.StartPrice != 0 {
		trend.ChangePct = (trend.EndPrice - trend.StartPrice) / trend.StartPrice * 100
	}
	return trend, nil
}

// GetVolume returns the most recent daily volume for a ticker.
func (c *Client) GetVolume(ctx context.Context, ticker string) (int64, error) {
	quote, err := c.GetQuote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return quote.Volume, nil
}
