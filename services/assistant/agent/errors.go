// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import "errors"

// Sentinel errors for the agent package.
var (
	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrReasoningExhausted indicates the iteration bound was reached
	// without a final answer.
	ErrReasoningExhausted = errors.New("reasoning iterations exhausted")

	// ErrEmptyQuery indicates the query is empty.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrEpisodeTerminated indicates the episode is already in a terminal state.
	ErrEpisodeTerminated = errors.New("episode already terminated")
)
