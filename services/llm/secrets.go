// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// APIKey holds a provider credential in encrypted memory.
//
// The key is sealed in a memguard enclave immediately after loading so
// it never sits in plain heap memory between requests. Callers get at
// the plaintext only inside Use, and the decrypted buffer is wiped when
// the callback returns.
type APIKey struct {
	provider string
	enclave  *memguard.Enclave
}

// LoadAPIKey loads a provider API key from the environment, falling
// back to a container secret file.
//
// Inputs:
//
//	provider - Provider name, for error messages
//	envVar - Environment variable to check first
//	secretPath - Secret file path checked when the env var is empty
//	             (e.g. "/run/secrets/openai_api_key")
//
// Outputs:
//
//	*APIKey - The sealed key
//	error - ErrMissingAPIKey when neither source is set
func LoadAPIKey(provider, envVar, secretPath string) (*APIKey, error) {
	raw := os.Getenv(envVar)
	if raw == "" && secretPath != "" {
		if content, err := os.ReadFile(secretPath); err == nil {
			raw = strings.TrimSpace(string(content))
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: %s (set %s)", ErrMissingAPIKey, provider, envVar)
	}

	enclave := memguard.NewEnclave([]byte(raw))
	return &APIKey{provider: provider, enclave: enclave}, nil
}

// Use decrypts the key, passes it to fn, and wipes the plaintext buffer
// when fn returns.
func (k *APIKey) Use(fn func(secret string) error) error {
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("open %s key enclave: %w", k.provider, err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}
