// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ghostfolio is a typed REST client for the Ghostfolio
// wealth-management API.
//
// The assistant treats Ghostfolio as an opaque collaborator: this
// package authenticates, shapes requests, and decodes responses, but
// performs no analytics of its own.
package ghostfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/pkg/validation"
)

// Sentinel errors for the ghostfolio package.
var (
	// ErrUnauthorized indicates authentication failed even after re-auth.
	ErrUnauthorized = errors.New("ghostfolio authentication failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("ghostfolio resource not found")
)

// APIError is a non-2xx response from Ghostfolio.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("ghostfolio API error (status %d): %s", e.Status, e.Detail)
}

// Retryable reports whether the request may be retried. 4xx responses
// are never retried; 5xx get exactly one retry.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an authenticated Ghostfolio API client.
//
// The client exchanges its access token for a bearer token lazily and
// re-authenticates once on 401. Concurrent re-authentication is
// deduplicated with singleflight so a burst of expired-token requests
// produces a single auth call.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  HTTPClient
	logger      *logging.Logger

	mu        sync.RWMutex
	authToken string

	authGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (used in tests).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Ghostfolio client.
//
// Inputs:
//
//	baseURL - Ghostfolio base URL, e.g. "http://localhost:3333"
//	accessToken - The account access token exchanged for a bearer token
//	opts - Optional configuration
func NewClient(baseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForAccessToken returns a client bound to a different access token,
// sharing the HTTP client and logger. Used for per-user chat sessions.
func (c *Client) ForAccessToken(accessToken string) *Client {
	return &Client{
		baseURL:     c.baseURL,
		accessToken: accessToken,
		httpClient:  c.httpClient,
		logger:      c.logger,
	}
}

// authenticate exchanges the access token for a bearer token.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	token, err, _ := c.authGroup.Do("auth", func() (any, error) {
		payload, err := json.Marshal(map[string]string{"accessToken": c.accessToken})
		if err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/auth/anonymous", bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("auth request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			return "", fmt.Errorf("%w: status %d: %s", ErrUnauthorized, resp.StatusCode, string(body))
		}

		var authResp struct {
			AuthToken string `json:"authToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
			return "", fmt.Errorf("decode auth response: %w", err)
		}
		if authResp.AuthToken == "" {
			return "", fmt.Errorf("%w: empty auth token", ErrUnauthorized)
		}

		c.mu.Lock()
		c.authToken = authResp.AuthToken
		c.mu.Unlock()

		c.logger.Debug("ghostfolio authenticated")
		return authResp.AuthToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// bearer returns the cached auth token, authenticating if needed.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token != "" {
		return token, nil
	}
	return c.authenticate(ctx)
}

// invalidate clears the cached token so the next call re-authenticates.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.authToken = ""
	c.mu.Unlock()
}

// do performs an authenticated request and decodes the JSON response.
//
// Retry policy:
//   - 401: re-authenticate and retry once
//   - 5xx or timeout: retry once
//   - other 4xx: fail immediately with *APIError
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var lastErr error

	reauthed := false
	retried := false
	for {
		err := c.doOnce(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && !reauthed:
			reauthed = true
			c.invalidate()
			if _, authErr := c.authenticate(ctx); authErr != nil {
				return authErr
			}
			continue
		case errors.As(err, &apiErr) && apiErr.Retryable() && !retried:
			retried = true
			continue
		case isTimeout(err) && !retried:
			retried = true
			continue
		}
		return lastErr
	}
}

// doMutate performs an authenticated request that changes server
// state. A 401 still gets one re-auth retry since the server rejects
// before acting, but 5xx and timeouts are never replayed: the first
// attempt may have recorded the change before failing.
func (c *Client) doMutate(ctx context.Context, method, path string, query url.Values, body, out any) error {
	err := c.doOnce(ctx, method, path, query, body, out)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.invalidate()
		if _, authErr := c.authenticate(ctx); authErr != nil {
			return authErr
		}
		return c.doOnce(ctx, method, path, query, body, out)
	}
	return err
}

// doOnce performs a single authenticated request.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ghostfolio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Detail: string(detail)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isTimeout reports whether the error is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

// PortfolioDetails fetches all holdings with allocations and the
// portfolio summary.
func (c *Client) PortfolioDetails(ctx context.Context) (*PortfolioDetails, error) {
	var out PortfolioDetails
	if err := c.do(ctx, "GET", "/api/v1/portfolio/details", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Holdings fetches holdings for the given date range.
func (c *Client) Holdings(ctx context.Context, dateRange string) (*HoldingsResponse, error) {
	r, err := validation.SanitizeDateRange(dateRange)
	if err != nil {
		return nil, err
	}
	var out HoldingsResponse
	q := url.Values{"range": {r}}
	if err := c.do(ctx, "GET", "/api/v1/portfolio/holdings", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Performance fetches portfolio performance for the given date range.
func (c *Client) Performance(ctx context.Context, dateRange string) (*Performance, error) {
	r, err := validation.SanitizeDateRange(dateRange)
	if err != nil {
		return nil, err
	}
	var out Performance
	q := url.Values{"range": {r}}
	if err := c.do(ctx, "GET", "/api/v2/portfolio/performance", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HoldingDetail fetches a single position.
func (c *Client) HoldingDetail(ctx context.Context, dataSource, symbol string) (*Holding, error) {
	safeSymbol, err := validation.SanitizeTicker(symbol)
	if err != nil {
		return nil, err
	}
	var out Holding
	path := fmt.Sprintf("/api/v1/portfolio/holding/%s/%s", url.PathEscape(dataSource), url.PathEscape(safeSymbol))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, safeSymbol)
		}
		return nil, err
	}
	return &out, nil
}

// ActivitiesQuery filters the activities listing.
type ActivitiesQuery struct {
	Take       int
	Skip       int
	Symbol     string
	AssetClass string
}

// Activities fetches recorded orders.
func (c *Client) Activities(ctx context.Context, query ActivitiesQuery) (*ActivitiesResponse, error) {
	q := url.Values{}
	if query.Take > 0 {
		q.Set("take", strconv.Itoa(query.Take))
	}
	if query.Skip > 0 {
		q.Set("skip", strconv.Itoa(query.Skip))
	}
	if query.Symbol != "" {
		safeSymbol, err := validation.SanitizeTicker(query.Symbol)
		if err != nil {
			return nil, err
		}
		q.Set("symbol", safeSymbol)
	}
	if query.AssetClass != "" {
		q.Set("assetClasses", query.AssetClass)
	}
	var out ActivitiesResponse
	if err := c.do(ctx, "GET", "/api/v1/order", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder records a new BUY or SELL activity.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*Activity, error) {
	if err := validation.ValidateTradeSide(order.Type); err != nil {
		return nil, err
	}
	safeSymbol, err := validation.SanitizeTicker(order.Symbol)
	if err != nil {
		return nil, err
	}
	order.Symbol = safeSymbol
	order.Type = strings.ToUpper(order.Type)

	var out Activity
	if err := c.doMutate(ctx, "POST", "/api/v1/order", nil, order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dividends fetches dividend history for one position.
func (c *Client) Dividends(ctx context.Context, dataSource, symbol string) (*DividendsResponse, error) {
	safeSymbol, err := validation.SanitizeTicker(symbol)
	if err != nil {
		return nil, err
	}
	var out DividendsResponse
	path := fmt.Sprintf("/api/v1/portfolio/dividends/%s/%s", url.PathEscape(dataSource), url.PathEscape(safeSymbol))
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupSymbol searches instruments by name or ticker fragment.
func (c *Client) LookupSymbol(ctx context.Context, query string) (*LookupResponse, error) {
	var out LookupResponse
	q := url.Values{"query": {query}}
	if err := c.do(ctx, "GET", "/api/v1/symbol/lookup", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Accounts lists the user's accounts.
func (c *Client) Accounts(ctx context.Context) (*AccountsResponse, error) {
	var out AccountsResponse
	if err := c.do(ctx, "GET", "/api/v1/account", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAccount creates a new account. Used to auto-provision the
// default account before the first recorded trade.
func (c *Client) CreateAccount(ctx context.Context, name, currency string) (*Account, error) {
	payload := map[string]any{
		"name":     name,
		"currency": currency,
		"balance":  0,
	}
	var out Account
	if err := c.doMutate(ctx, "POST", "/api/v1/account", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping probes connectivity for health checks. Any authenticated
// response counts as connected.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Accounts(ctx)
	return err
}
