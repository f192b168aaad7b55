// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"sort"
)

// Capability tags what a model can do. The Router only falls back to
// models that carry every capability the request needs.
type Capability string

const (
	// CapabilityToolUse means the model supports structured tool calling.
	CapabilityToolUse Capability = "tool_use"

	// CapabilityLongContext means the model accepts 100k+ token prompts.
	CapabilityLongContext Capability = "long_context"
)

// ModelSpec describes one routable model.
type ModelSpec struct {
	// ID is the stable identifier used in API requests and config.
	ID string `json:"id"`

	// Provider is the hosting provider ("groq", "openai", "anthropic").
	Provider string `json:"provider"`

	// DisplayName is shown in the models listing.
	DisplayName string `json:"display_name"`

	// APIModelName is the provider-specific model name sent on the wire.
	APIModelName string `json:"api_model_name"`

	// Temperature is the sampling temperature used for this model.
	// Kept low for factual portfolio answers.
	Temperature float32 `json:"temperature"`

	// InputCostPerMTok is USD per million input tokens.
	InputCostPerMTok float64 `json:"input_cost_per_mtok"`

	// OutputCostPerMTok is USD per million output tokens.
	OutputCostPerMTok float64 `json:"output_cost_per_mtok"`

	// Capabilities lists what the model supports.
	Capabilities []Capability `json:"capabilities"`

	// Free marks models with a no-cost tier.
	Free bool `json:"is_free"`
}

// HasCapability reports whether the spec carries the capability.
func (m ModelSpec) HasCapability(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// blendedCost is the ranking key for fallback ordering. Output tokens
// dominate assistant traffic roughly 3:1 against input.
func (m ModelSpec) blendedCost() float64 {
	return m.InputCostPerMTok*0.75 + m.OutputCostPerMTok*0.25
}

// Cost returns the USD cost of a completion on this model.
func (m ModelSpec) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1e6*m.InputCostPerMTok +
		float64(completionTokens)/1e6*m.OutputCostPerMTok
}

// DefaultModelID is used when the request does not name a model.
const DefaultModelID = "llama-3.3-70b"

// SupportedModels is the declarative model registry. Fallback order is
// derived from it; nothing about routing is hardcoded elsewhere.
var SupportedModels = []ModelSpec{
	{
		ID:                "llama-3.3-70b",
		Provider:          "groq",
		DisplayName:       "Llama 3.3 70B (Groq)",
		APIModelName:      "llama-3.3-70b-versatile",
		Temperature:       0.1,
		InputCostPerMTok:  0.59,
		OutputCostPerMTok: 0.79,
		Capabilities:      []Capability{CapabilityToolUse},
		Free:              true,
	},
	{
		ID:                "gpt-4o-mini",
		Provider:          "openai",
		DisplayName:       "GPT-4o mini",
		APIModelName:      "gpt-4o-mini",
		Temperature:       0.1,
		InputCostPerMTok:  0.15,
		OutputCostPerMTok: 0.60,
		Capabilities:      []Capability{CapabilityToolUse, CapabilityLongContext},
	},
	{
		ID:                "gpt-4o",
		Provider:          "openai",
		DisplayName:       "GPT-4o",
		APIModelName:      "gpt-4o",
		Temperature:       0.1,
		InputCostPerMTok:  2.50,
		OutputCostPerMTok: 10.00,
		Capabilities:      []Capability{CapabilityToolUse, CapabilityLongContext},
	},
	{
		ID:                "claude-haiku",
		Provider:          "anthropic",
		DisplayName:       "Claude Haiku 4.5",
		APIModelName:      "claude-haiku-4-5-20251001",
		Temperature:       0.1,
		InputCostPerMTok:  0.80,
		OutputCostPerMTok: 4.00,
		Capabilities:      []Capability{CapabilityToolUse, CapabilityLongContext},
	},
}

// ModelByID looks up a model spec by its stable identifier.
func ModelByID(id string) (ModelSpec, error) {
	for _, m := range SupportedModels {
		if m.ID == id {
			return m, nil
		}
	}
	return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
}

// FallbackOrder returns all models carrying the required capabilities,
// cheapest first by blended cost. The caller filters out models whose
// provider has no configured client and the model already tried.
func FallbackOrder(required ...Capability) []ModelSpec {
	var out []ModelSpec
	for _, m := range SupportedModels {
		ok := true
		for _, c := range required {
			if !m.HasCapability(c) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].blendedCost() < out[j].blendedCost()
	})
	return out
}
