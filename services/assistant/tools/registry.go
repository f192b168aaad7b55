// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools exposes portfolio and market data operations to the
// reasoning loop. Every tool takes JSON arguments validated against a
// typed struct and returns a JSON result; tool failures surface as
// errors the loop converts into model observations.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/ghostfolio"
	"github.com/finsight-ai/finsight/services/llm"
	"github.com/finsight-ai/finsight/services/marketdata"
)

// Sentinel errors.
var (
	// ErrUnknownTool indicates the model asked for a tool that is not
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments indicates the tool arguments failed schema
	// validation.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Handler executes one tool invocation.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Tool is one registered capability.
type Tool struct {
	// Name is the identifier the model calls.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Mutating marks tools with side effects. Mutating tools are
	// never retried by callers.
	Mutating bool

	// Parameters is the JSON Schema advertised to the model.
	Parameters map[string]any

	handler Handler
}

// Registry holds the tool set for one request scope.
//
// A registry is built per authenticated user so every handler is
// closed over that user's portfolio client.
//
// Thread Safety: Safe for concurrent use after construction.
type Registry struct {
	tools    map[string]*Tool
	order    []string
	validate *validator.Validate
	logger   *logging.Logger
}

// Deps carries the clients the standard tool set needs.
type Deps struct {
	Portfolio *ghostfolio.Client
	Market    *marketdata.Client
	Logger    *logging.Logger
}

// NewRegistry builds the standard tool set.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	r := &Registry{
		tools:    make(map[string]*Tool),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   deps.Logger,
	}
	r.registerPortfolioTools(deps.Portfolio)
	r.registerTradeTools(deps.Portfolio)
	r.registerMarketTools(deps.Market)
	return r
}

// Register adds a tool. Later registrations with the same name replace
// earlier ones.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IsMutating reports whether the named tool has side effects.
func (r *Registry) IsMutating(name string) bool {
	t, ok := r.tools[name]
	return ok && t.Mutating
}

// Specs returns the tool definitions advertised to the model.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return specs
}

// Invoke runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	result, err := t.handler(ctx, args)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// decodeArgs unmarshals args strictly into dst and validates it.
// Unknown fields are rejected so a misspelled argument fails loudly
// instead of silently using a default.
func (r *Registry) decodeArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, err.Error())
	}
	if err := r.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %s", ErrInvalidArguments, err.Error())
	}
	return nil
}

// marshalResult encodes a tool result, which by construction never
// fails for the value types the tools return.
func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return data, nil
}

// objectSchema builds the JSON Schema for a tool's parameters.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
