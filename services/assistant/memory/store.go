// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory keeps lightweight per-user conversational state:
// stated preferences, lessons learned from feedback, and a short-lived
// fact cache. Everything is in-process; restarting the service clears
// it, which is acceptable for conversational context.
package memory

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// maxLessonsPerUser bounds the lesson deque; the oldest entry is
// evicted when full.
const maxLessonsPerUser = 50

// factTTL is how long a cached fact stays fresh.
const factTTL = 5 * time.Minute

// relevantLessons is how many matching lessons BuildContext includes.
const relevantLessons = 3

// Lesson is one piece of guidance distilled from user feedback.
type Lesson struct {
	Text      string
	CreatedAt time.Time
}

// cachedFact is one TTL-bound fact entry.
type cachedFact struct {
	value     string
	expiresAt time.Time
}

// userState holds one user's memory.
type userState struct {
	preferences map[string]string
	lessons     []Lesson
	facts       map[string]cachedFact
}

// Store is the in-process memory store.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userState
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]*userState),
		now:   time.Now,
	}
}

func (s *Store) user(id string) *userState {
	u, ok := s.users[id]
	if !ok {
		u = &userState{
			preferences: make(map[string]string),
			facts:       make(map[string]cachedFact),
		}
		s.users[id] = u
	}
	return u
}

// SetPreference records one preference key for a user.
func (s *Store) SetPreference(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).preferences[key] = value
}

// Preferences returns a copy of the user's preferences.
func (s *Store) Preferences(userID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(u.preferences))
	for k, v := range u.preferences {
		out[k] = v
	}
	return out
}

// AddLesson appends a lesson for the user, evicting the oldest when
// the deque is full. Duplicate texts are ignored.
func (s *Store) AddLesson(userID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for _, l := range u.lessons {
		if l.Text == text {
			return
		}
	}
	u.lessons = append(u.lessons, Lesson{Text: text, CreatedAt: s.now()})
	if len(u.lessons) > maxLessonsPerUser {
		u.lessons = u.lessons[len(u.lessons)-maxLessonsPerUser:]
	}
}

// Lessons returns a copy of the user's lessons, oldest first.
func (s *Store) Lessons(userID string) []Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	out := make([]Lesson, len(u.lessons))
	copy(out, u.lessons)
	return out
}

// CacheFact stores a fact for the user with the standard TTL.
func (s *Store) CacheFact(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).facts[key] = cachedFact{
		value:     value,
		expiresAt: s.now().Add(factTTL),
	}
}

// Fact returns a cached fact if present and fresh.
func (s *Store) Fact(userID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", false
	}
	f, ok := u.facts[key]
	if !ok || s.now().After(f.expiresAt) {
		return "", false
	}
	return f.value, true
}

// ClearFacts drops every cached fact for the user. Called after a
// mutating operation so later reads do not see pre-trade data.
func (s *Store) ClearFacts(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return
	}
	u.facts = make(map[string]cachedFact)
}

// BuildContext assembles the memory block injected into the system
// prompt: preferences plus up to three lessons relevant to the query.
// Returns "" when there is nothing worth injecting.
func (s *Store) BuildContext(userID, query string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return ""
	}

	var b strings.Builder
	if len(u.preferences) > 0 {
		b.WriteString("Preferences:\n")
		for k, v := range u.preferences {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	matched := 0
	queryWords := contentWords(query)
	for i := len(u.lessons) - 1; i >= 0 && matched < relevantLessons; i-- {
		if overlap(queryWords, contentWords(u.lessons[i].Text)) >= 2 {
			if matched == 0 {
				b.WriteString("Lessons from past feedback:\n")
			}
			fmt.Fprintf(&b, "- %s\n", u.lessons[i].Text)
			matched++
		}
	}

	return strings.TrimSpace(b.String())
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// stopWords are too common to signal lesson relevance.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "of": true, "to": true, "in": true, "my": true,
	"your": true, "i": true, "you": true, "it": true, "and": true,
	"or": true, "for": true, "on": true, "with": true, "do": true,
	"what": true, "how": true, "when": true, "me": true, "about": true,
}

func contentWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if len(w) > 1 && !stopWords[w] {
			out[w] = true
		}
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// preferencePatterns map regexes over user messages to preference keys.
var preferencePatterns = []struct {
	re  *regexp.Regexp
	key string
	val func(m []string) string
}{
	{
		re:  regexp.MustCompile(`(?i)\b(?:keep|make)\s+(?:it|answers|responses)\s+(short|brief|concise)`),
		key: "response_style",
		val: func([]string) string { return "concise" },
	},
	{
		re:  regexp.MustCompile(`(?i)\b(?:more|give me)\s+detail`),
		key: "response_style",
		val: func([]string) string { return "detailed" },
	},
	{
		re:  regexp.MustCompile(`(?i)\bi(?:'m| am)\s+(?:a\s+)?(conservative|aggressive|moderate)\s+investor\b`),
		key: "risk_profile",
		val: func(m []string) string { return strings.ToLower(m[1]) },
	},
	{
		re:  regexp.MustCompile(`(?i)\bmy\s+(?:base\s+)?currency\s+is\s+([A-Za-z]{3})\b`),
		key: "currency",
		val: func(m []string) string { return strings.ToUpper(m[1]) },
	},
}

// ExtractPreferences scans a user message for stated preferences and
// records any found. Returns the keys that were set.
func (s *Store) ExtractPreferences(userID, message string) []string {
	var keys []string
	for _, p := range preferencePatterns {
		if m := p.re.FindStringSubmatch(message); m != nil {
			s.SetPreference(userID, p.key, p.val(m))
			keys = append(keys, p.key)
		}
	}
	return keys
}
