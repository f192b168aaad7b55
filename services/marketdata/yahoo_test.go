// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// chartPayload builds a minimal Yahoo chart response.
func chartPayload(symbol string, price, prevClose float64, closes []float64, volumes []int64) string {
	closeJSON := "["
	for i, v := range closes {
		if i > 0 {
			closeJSON += ","
		}
		closeJSON += fmt.Sprintf("%f", v)
	}
	closeJSON += "]"

	volJSON := "["
	for i, v := range volumes {
		if i > 0 {
			volJSON += ","
		}
		volJSON += fmt.Sprintf("%d", v)
	}
	volJSON += "]"

	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"currency": "USD", "symbol": %q, "regularMarketPrice": %f, "chartPreviousClose": %f},
				"timestamp": [1, 2, 3],
				"indicators": {"quote": [{"close": %s, "volume": %s}]}
			}],
			"error": null
		}
	}`, symbol, price, prevClose, closeJSON, volJSON)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
}

func TestGetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, chartPayload("AAPL", 200.0, 190.0, []float64{195, 198, 200}, []int64{100, 200, 0}))
	})

	quote, err := client.GetQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatal(err)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("symbol = %s", quote.Symbol)
	}
	if quote.Price != 200.0 {
		t.Errorf("price = %f", quote.Price)
	}
	// Last non-zero volume wins.
	if quote.Volume != 200 {
		t.Errorf("volume = %d, want 200", quote.Volume)
	}
	// Rounding order differs between the client and a constant-folded
	// expression, so compare within an epsilon.
	wantChange := (200.0 - 190.0) / 190.0 * 100
	if math.Abs(quote.ChangePct-wantChange) > 1e-9 {
		t.Errorf("change_pct = %f, want %f", quote.ChangePct, wantChange)
	}
}

func TestGetQuote_InvalidTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	if _, err := client.GetQuote(context.Background(), "../etc"); err == nil {
		t.Error("expected validation error")
	}
}

func TestGetQuote_YahooError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": [], "error": {"code": "Not Found"}}}`)
	})

	if _, err := client.GetQuote(context.Background(), "ZZZZ"); err == nil {
		t.Error("expected error for Yahoo error payload")
	}
}

func TestGetQuote_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := client.GetQuote(context.Background(), "AAPL"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestGetTrend(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Zero closes (market holidays) must be skipped.
		fmt.Fprint(w, chartPayload("MSFT", 420, 400, []float64{400, 0, 410, 420}, []int64{1, 1, 1, 1}))
	})

	trend, err := client.GetTrend(context.Background(), "MSFT", "1m")
	if err != nil {
		t.Fatal(err)
	}
	if trend.StartPrice != 400 || trend.EndPrice != 420 {
		t.Errorf("start/end = %f/%f", trend.StartPrice, trend.EndPrice)
	}
	if trend.High != 420 || trend.Low != 400 {
		t.Errorf("high/low = %f/%f", trend.High, trend.Low)
	}
	if len(trend.Closes) != 3 {
		t.Errorf("closes = %d, want 3 (zero filtered)", len(trend.Closes))
	}
	wantChange := (420.0 - 400.0) / 400.0 * 100
	if math.Abs(trend.ChangePct-wantChange) > 1e-9 {
		t.Errorf("change_pct = %f, want %f", trend.ChangePct, wantChange)
	}
}

func TestGetTrend_InvalidPeriod(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	if _, err := client.GetTrend(context.Background(), "MSFT", "10y"); err == nil {
		t.Error("expected error for invalid period")
	}
}

func TestValidPeriod(t *testing.T) {
	for _, p := range []string{"1d", "5d", "1m", "3m", "6m", "1y"} {
		if !ValidPeriod(p) {
			t.Errorf("ValidPeriod(%q) = false", p)
		}
	}
	for _, p := range []string{"", "2w", "max", "ytd"} {
		if ValidPeriod(p) {
			t.Errorf("ValidPeriod(%q) = true", p)
		}
	}
}

func TestGetSectorPerformance_PartialFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// XLK succeeds, everything else fails.
		if r.URL.Path == "/v8/finance/chart/XLK" {
			fmt.Fprint(w, chartPayload("XLK", 230, 220, []float64{220, 230}, []int64{1, 1}))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	perf, err := client.GetSectorPerformance(context.Background(), "1m")
	if err != nil {
		t.Fatal(err)
	}
	if len(perf) != 1 {
		t.Fatalf("got %d sectors, want 1", len(perf))
	}
	if perf[0].Sector != "Technology" || perf[0].ETF != "XLK" {
		t.Errorf("unexpected sector %+v", perf[0])
	}
}

func TestGetSectorPerformance_AllFail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.GetSectorPerformance(context.Background(), "1m"); err == nil {
		t.Error("expected error when every sector fetch fails")
	}
}
