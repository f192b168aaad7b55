// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ghostfolio

// Weight is a named percentage slice (sector, country).
type Weight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Holding is one position in the portfolio.
type Holding struct {
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	AssetClass            string   `json:"assetClass"`
	AssetSubClass         string   `json:"assetSubClass"`
	Currency              string   `json:"currency"`
	DataSource            string   `json:"dataSource"`
	Quantity              float64  `json:"quantity"`
	ValueInBaseCurrency   float64  `json:"valueInBaseCurrency"`
	AllocationInPercent   float64  `json:"allocationInPercent"`
	NetPerformancePercent float64  `json:"netPerformancePercent"`
	Sectors               []Weight `json:"sectors,omitempty"`
	Countries             []Weight `json:"countries,omitempty"`
}

// PortfolioSummary is the aggregate block of /portfolio/details.
type PortfolioSummary struct {
	CurrentValueInBaseCurrency float64 `json:"currentValueInBaseCurrency"`
	TotalInvestment            float64 `json:"totalInvestment"`
	NetPerformance             float64 `json:"currentNetPerformance"`
	NetPerformancePercentage   float64 `json:"currentNetPerformancePercent"`
	Cash                       float64 `json:"cash"`
}

// PortfolioDetails is the /portfolio/details response.
type PortfolioDetails struct {
	Holdings map[string]Holding `json:"holdings"`
	Summary  *PortfolioSummary  `json:"summary,omitempty"`
}

// HoldingsResponse is the /portfolio/holdings response.
type HoldingsResponse struct {
	Holdings []Holding `json:"holdings"`
}

// Performance is the v2 /portfolio/performance response.
type Performance struct {
	Performance struct {
		CurrentValueInBaseCurrency float64 `json:"currentValueInBaseCurrency"`
		TotalInvestment            float64 `json:"totalInvestment"`
		NetPerformance             float64 `json:"netPerformance"`
		NetPerformancePercentage   float64 `json:"netPerformancePercentage"`
		GrossPerformance           float64 `json:"grossPerformance"`
		GrossPerformancePercentage float64 `json:"grossPerformancePercentage"`
	} `json:"performance"`
	Chart []ChartPoint `json:"chart,omitempty"`
}

// ChartPoint is one point of the performance chart.
type ChartPoint struct {
	Date                     string  `json:"date"`
	NetPerformanceInPercent  float64 `json:"netPerformanceInPercentage"`
	ValueInBaseCurrency      float64 `json:"valueInBaseCurrency"`
	TotalInvestmentValue     float64 `json:"totalInvestment"`
	NetWorthInBaseCurrency   float64 `json:"netWorth"`
	InvestmentValueWithBuys  float64 `json:"investmentValueWithCurrencyEffect"`
	ValueWithCurrencyEffect  float64 `json:"valueWithCurrencyEffect"`
	NetPerformanceWithEffect float64 `json:"netPerformanceWithCurrencyEffect"`
}

// SymbolProfile describes the instrument attached to an activity.
type SymbolProfile struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	AssetClass string `json:"assetClass"`
	Currency   string `json:"currency"`
	DataSource string `json:"dataSource"`
}

// Activity is one recorded order.
type Activity struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"accountId"`
	Type          string        `json:"type"` // BUY, SELL, DIVIDEND
	Date          string        `json:"date"`
	Quantity      float64       `json:"quantity"`
	UnitPrice     float64       `json:"unitPrice"`
	Fee           float64       `json:"fee"`
	Currency      string        `json:"currency"`
	SymbolProfile SymbolProfile `json:"SymbolProfile"`
}

// ActivitiesResponse is the /order list response.
type ActivitiesResponse struct {
	Activities []Activity `json:"activities"`
	Count      int        `json:"count"`
}

// OrderRequest creates a new activity via POST /order.
type OrderRequest struct {
	AccountID  string  `json:"accountId"`
	Currency   string  `json:"currency"`
	DataSource string  `json:"dataSource"`
	Date       string  `json:"date"`
	Fee        float64 `json:"fee"`
	Quantity   float64 `json:"quantity"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"` // BUY or SELL
	UnitPrice  float64 `json:"unitPrice"`
}

// Account is one Ghostfolio account.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
}

// AccountsResponse is the /account list response.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// LookupItem is one symbol search hit.
type LookupItem struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Currency      string `json:"currency"`
	DataSource    string `json:"dataSource"`
	AssetClass    string `json:"assetClass"`
	AssetSubClass string `json:"assetSubClass"`
}

// LookupResponse is the /symbol/lookup response.
type LookupResponse struct {
	Items []LookupItem `json:"items"`
}

// DividendsResponse is the /portfolio/dividends response.
type DividendsResponse struct {
	Dividends []struct {
		Date        string  `json:"date"`
		Investment  float64 `json:"investment"`
		NetDividend float64 `json:"netDividend"`
	} `json:"dividends"`
}
