// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracing

import (
	"errors"
	"sync"
	"time"
)

// feedbackRingSize bounds the feedback buffer.
const feedbackRingSize = 10000

// Feedback ratings.
const (
	RatingUp   = "up"
	RatingDown = "down"
)

// ErrInvalidRating indicates a rating other than up or down.
var ErrInvalidRating = errors.New("rating must be \"up\" or \"down\"")

// FeedbackEntry is one user rating of an assistant response.
type FeedbackEntry struct {
	TraceID   string    `json:"trace_id"`
	UserID    string    `json:"user_id"`
	Rating    string    `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackSummary aggregates buffered ratings.
type FeedbackSummary struct {
	Total int `json:"total"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

// FeedbackStore keeps ratings in a fixed-size ring.
//
// Thread Safety: Safe for concurrent use.
type FeedbackStore struct {
	mu      sync.RWMutex
	entries []FeedbackEntry
	next    int
	full    bool
	now     func() time.Time

	// onDown is invoked for thumbs-down feedback with a comment, so
	// the memory store can turn it into a lesson.
	onDown func(userID, comment string)
}

// NewFeedbackStore creates an empty store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{
		entries: make([]FeedbackEntry, feedbackRingSize),
		now:     time.Now,
	}
}

// OnThumbsDown registers a callback for negative feedback that carries
// a comment.
func (s *FeedbackStore) OnThumbsDown(fn func(userID, comment string)) {
	s.mu.Lock()
	s.onDown = fn
	s.mu.Unlock()
}

// Record stores one rating.
func (s *FeedbackStore) Record(traceID, userID, rating, comment string) (FeedbackEntry, error) {
	if rating != RatingUp && rating != RatingDown {
		return FeedbackEntry{}, ErrInvalidRating
	}
	entry := FeedbackEntry{
		TraceID:   traceID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.entries[s.next] = entry
	s.next++
	if s.next == len(s.entries) {
		s.next = 0
		s.full = true
	}
	hook := s.onDown
	s.mu.Unlock()

	if rating == RatingDown && comment != "" && hook != nil {
		hook(userID, comment)
	}
	return entry, nil
}

// Summary aggregates the buffered ratings.
func (s *FeedbackStore) Summary() FeedbackSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.next
	if s.full {
		count = len(s.entries)
	}
	out := FeedbackSummary{}
	for i := 0; i < count; i++ {
		out.Total++
		switch s.entries[i].Rating {
		case RatingUp:
			out.Up++
		case RatingDown:
			out.Down++
		}
	}
	return out
}
