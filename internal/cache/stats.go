// Package cache holds the short-lived per-round and per-call state of a game:
// event hit statistics and peer verification tallies.
package cache

import (
	"sync"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// EventStats tracks how often each normalized text has been hit in a round
type EventStats struct {
	mu     sync.Mutex
	rounds map[string]*roundStats
}

type roundStats struct {
	total int
	texts map[string]*textStat
}

type textStat struct {
	hits    int
	players map[string]struct{}
}

// NewEventStats creates an empty EventStats
func NewEventStats() *EventStats {
	return &EventStats{rounds: make(map[string]*roundStats)}
}

// RecordHit adds one hit by playerID on text and returns the updated text
// statistic along with the round's total hit count
func (s *EventStats) RecordHit(roundID, text, playerID string) (models.EventStat, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.rounds[roundID]
	if !ok {
		rs = &roundStats{texts: make(map[string]*textStat)}
		s.rounds[roundID] = rs
	}
	ts, ok := rs.texts[text]
	if !ok {
		ts = &textStat{players: make(map[string]struct{})}
		rs.texts[text] = ts
	}

	ts.hits++
	ts.players[playerID] = struct{}{}
	rs.total++

	return models.EventStat{Hits: ts.hits, UniquePlayers: len(ts.players)}, rs.total
}

// Stat returns the current statistic for text in a round
func (s *EventStats) Stat(roundID, text string) models.EventStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.rounds[roundID]
	if !ok {
		return models.EventStat{}
	}
	ts, ok := rs.texts[text]
	if !ok {
		return models.EventStat{}
	}
	return models.EventStat{Hits: ts.hits, UniquePlayers: len(ts.players)}
}

// Snapshot returns every text statistic recorded for a round
func (s *EventStats) Snapshot(roundID string) map[string]models.EventStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.EventStat)
	if rs, ok := s.rounds[roundID]; ok {
		for text, ts := range rs.texts {
			out[text] = models.EventStat{Hits: ts.hits, UniquePlayers: len(ts.players)}
		}
	}
	return out
}

// DropRound forgets all statistics for a round
func (s *EventStats) DropRound(roundID string) {
	s.mu.Lock()
	delete(s.rounds, roundID)
	s.mu.Unlock()
}
