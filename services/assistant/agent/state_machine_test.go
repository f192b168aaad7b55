// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"errors"
	"testing"
)

func TestStateMachine_ValidTransitions(t *testing.T) {
	sm := NewStateMachine()

	valid := []struct{ from, to EpisodeState }{
		{StateThinking, StateActing},
		{StateThinking, StateDone},
		{StateThinking, StateFailed},
		{StateActing, StateObserving},
		{StateActing, StateFailed},
		{StateObserving, StateThinking},
		{StateObserving, StateFailed},
	}
	for _, tt := range valid {
		if !sm.CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tt.from, tt.to)
		}
	}
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	sm := NewStateMachine()

	invalid := []struct{ from, to EpisodeState }{
		{StateThinking, StateObserving}, // must pass through ACTING
		{StateActing, StateThinking},    // must pass through OBSERVING
		{StateActing, StateDone},        // only THINKING can finish
		{StateObserving, StateDone},
		{StateDone, StateThinking}, // terminal
		{StateFailed, StateThinking},
		{StateDone, StateFailed},
	}
	for _, tt := range invalid {
		if sm.CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tt.from, tt.to)
		}
	}
}

func TestStateMachine_Transition(t *testing.T) {
	sm := NewStateMachine()
	episode := NewEpisode("t-1", nil)

	if err := sm.Transition(episode, StateActing); err != nil {
		t.Fatalf("THINKING -> ACTING: %v", err)
	}
	if episode.State != StateActing {
		t.Errorf("state = %s, want ACTING", episode.State)
	}

	err := sm.Transition(episode, StateDone)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ACTING -> DONE error = %v, want ErrInvalidTransition", err)
	}
}

func TestStateMachine_TerminalStatesReject(t *testing.T) {
	sm := NewStateMachine()
	episode := NewEpisode("t-2", nil)
	episode.State = StateDone

	err := sm.Transition(episode, StateThinking)
	if !errors.Is(err, ErrEpisodeTerminated) {
		t.Errorf("transition from DONE error = %v, want ErrEpisodeTerminated", err)
	}
}

func TestEpisodeState_IsTerminal(t *testing.T) {
	tests := []struct {
		state EpisodeState
		want  bool
	}{
		{StateThinking, false},
		{StateActing, false},
		{StateObserving, false},
		{StateDone, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if tt.state.IsTerminal() != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, !tt.want, tt.want)
		}
	}
}

func TestStateMachine_TransitionReason(t *testing.T) {
	sm := NewStateMachine()
	if r := sm.TransitionReason(StateThinking, StateActing); r == "Unknown transition" {
		t.Error("expected a reason for THINKING -> ACTING")
	}
	if r := sm.TransitionReason(StateDone, StateActing); r != "Unknown transition" {
		t.Errorf("expected Unknown transition, got %q", r)
	}
}
