// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/assistant/memory"
	"github.com/finsight-ai/finsight/services/assistant/tools"
	"github.com/finsight-ai/finsight/services/llm"
)

// cachingInvoker fronts the tool registry with the per-user fact
// cache. Read tools asked with the same arguments within the fact TTL
// are answered from memory instead of re-fetching, which keeps
// follow-up questions in a conversation from hammering Ghostfolio.
//
// Mutating tools bypass the cache and clear the user's facts on
// success so later reads do not see pre-trade data.
type cachingInvoker struct {
	registry *tools.Registry
	memory   *memory.Store
	userID   string

	// scope separates cache entries per portfolio binding. Chat turns
	// carrying a portfolio token must not read facts fetched for the
	// default account under the same user ID.
	scope  string
	logger *logging.Logger
}

// Specs implements agent.ToolInvoker.
func (c *cachingInvoker) Specs() []llm.ToolSpec { return c.registry.Specs() }

// Invoke implements agent.ToolInvoker.
func (c *cachingInvoker) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if c.registry.IsMutating(name) {
		result, err := c.registry.Invoke(ctx, name, args)
		if err == nil {
			c.memory.ClearFacts(c.userID)
		}
		return result, err
	}

	key := factKey(c.scope, name, args)
	if v, ok := c.memory.Fact(c.userID, key); ok {
		c.logger.Debug("tool result served from fact cache", "tool", name)
		return json.RawMessage(v), nil
	}

	result, err := c.registry.Invoke(ctx, name, args)
	if err != nil {
		return nil, err
	}
	c.memory.CacheFact(c.userID, key, string(result))
	return result, nil
}

// factKey identifies one tool invocation. Whitespace in the raw
// arguments does not change the call, so it does not change the key.
func factKey(scope, name string, args json.RawMessage) string {
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, args); err != nil {
		return "tool:" + scope + ":" + name + ":" + string(args)
	}
	return "tool:" + scope + ":" + name + ":" + compact.String()
}
