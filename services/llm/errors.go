// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the llm package.
var (
	// ErrProviderUnavailable indicates every configured provider failed.
	ErrProviderUnavailable = errors.New("all model providers unavailable")

	// ErrNoProviders indicates no provider client is configured.
	ErrNoProviders = errors.New("no model providers configured")

	// ErrUnknownModel indicates the requested model is not in the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrMissingAPIKey indicates the provider API key is not configured.
	ErrMissingAPIKey = errors.New("provider API key missing")
)

// ErrorKind classifies a provider failure for routing policy.
type ErrorKind string

const (
	// KindRateLimited means the provider rejected the call for quota
	// reasons. Retrying the same provider after a pause may succeed.
	KindRateLimited ErrorKind = "rate_limited"

	// KindTransient means the failure is likely temporary (5xx,
	// timeout, connection reset). A different provider should be tried.
	KindTransient ErrorKind = "transient_error"

	// KindFatal means retrying will not help (auth failure, malformed
	// request, content rejection).
	KindFatal ErrorKind = "fatal_error"
)

// ProviderError is a provider failure normalized for routing policy.
//
// Raw provider errors never cross the package boundary. Every client
// wraps failures in ProviderError before returning, so the Router can
// decide retry vs fallback without provider-specific knowledge.
type ProviderError struct {
	// Provider that produced the failure.
	Provider string

	// Kind classifies the failure.
	Kind ErrorKind

	// Status is the HTTP status code, if the failure was an HTTP error.
	Status int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same provider may be retried.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimited
}

// classifyStatus maps an HTTP status code to an ErrorKind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	case status == 408:
		return KindTransient
	default:
		return KindFatal
	}
}

// AsProviderError extracts a *ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
