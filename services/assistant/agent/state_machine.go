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

import (
	"fmt"
	"sync"
)

// StateMachine manages valid state transitions for the reasoning loop.
//
// The state machine enforces the following transition graph:
//
//	THINKING → ACTING       : Model requested tool calls
//	THINKING → DONE         : Model produced a final answer
//	THINKING → FAILED       : Providers exhausted or loop aborted
//	ACTING → OBSERVING      : Tool calls executed (success or error)
//	ACTING → FAILED         : Episode canceled mid-execution
//	OBSERVING → THINKING    : Observations folded in, next iteration
//	OBSERVING → FAILED      : Iteration bound reached
//
// DONE and FAILED are terminal; no transition leaves them.
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	// transitions maps (from, to) pairs that are valid.
	transitions map[EpisodeState]map[EpisodeState]bool
}

// NewStateMachine creates a new state machine with all valid transitions.
//
// Outputs:
//
//	*StateMachine - Configured state machine
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[EpisodeState]map[EpisodeState]bool),
	}

	// Initialize all states with empty transition maps
	for _, state := range AllStates() {
		sm.transitions[state] = make(map[EpisodeState]bool)
	}

	sm.addTransition(StateThinking, StateActing)
	sm.addTransition(StateThinking, StateDone)
	sm.addTransition(StateThinking, StateFailed)

	sm.addTransition(StateActing, StateObserving)
	sm.addTransition(StateActing, StateFailed)

	sm.addTransition(StateObserving, StateThinking)
	sm.addTransition(StateObserving, StateFailed)

	return sm
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to EpisodeState) {
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one state to another is valid.
//
// Inputs:
//
//	from - Current state
//	to - Target state
//
// Outputs:
//
//	bool - True if the transition is valid
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to EpisodeState) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition attempts to transition an episode to a new state.
//
// Description:
//
//	Validates the transition and updates the episode state if valid.
//	Returns an error if the transition is not allowed.
//
// Inputs:
//
//	episode - The episode to transition
//	to - Target state
//
// Outputs:
//
//	error - ErrInvalidTransition if transition not allowed
func (sm *StateMachine) Transition(episode *Episode, to EpisodeState) error {
	from := episode.State

	if from.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrEpisodeTerminated, from)
	}
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	episode.State = to
	return nil
}

// ValidTransitionsFrom returns all valid transitions from a given state.
//
// Inputs:
//
//	from - The source state
//
// Outputs:
//
//	[]EpisodeState - All valid target states
func (sm *StateMachine) ValidTransitionsFrom(from EpisodeState) []EpisodeState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var result []EpisodeState
	if toMap, ok := sm.transitions[from]; ok {
		for state, valid := range toMap {
			if valid {
				result = append(result, state)
			}
		}
	}
	return result
}

// TransitionReason provides a human-readable description of a transition.
//
// Inputs:
//
//	from - Source state
//	to - Target state
//
// Outputs:
//
//	string - Description of why this transition occurs
func (sm *StateMachine) TransitionReason(from, to EpisodeState) string {
	key := from.String() + "->" + to.String()

	reasons := map[string]string{
		"THINKING->ACTING":    "Model requested tool calls",
		"THINKING->DONE":      "Model produced a final answer",
		"THINKING->FAILED":    "Providers exhausted or loop aborted",
		"ACTING->OBSERVING":   "Tool calls executed",
		"ACTING->FAILED":      "Episode canceled mid-execution",
		"OBSERVING->THINKING": "Observations folded in, next iteration",
		"OBSERVING->FAILED":   "Iteration bound reached",
	}

	if reason, ok := reasons[key]; ok {
		return reason
	}
	return "Unknown transition"
}

// DefaultStateMachine is the shared state machine instance.
var DefaultStateMachine = NewStateMachine()
