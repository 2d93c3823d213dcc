package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CallInterval is the minimum wall-clock gap between a player's calls in a round
const CallInterval = 2 * time.Second

// callLimiter keeps one token bucket per player per round
type callLimiter struct {
	mu     sync.Mutex
	rounds map[string]map[string]*rate.Limiter
	every  time.Duration
}

func newCallLimiter(every time.Duration) *callLimiter {
	return &callLimiter{
		rounds: make(map[string]map[string]*rate.Limiter),
		every:  every,
	}
}

func (l *callLimiter) allow(roundID, playerID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	players, ok := l.rounds[roundID]
	if !ok {
		players = make(map[string]*rate.Limiter)
		l.rounds[roundID] = players
	}
	lim, ok := players[playerID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), 1)
		players[playerID] = lim
	}
	return lim.AllowN(now, 1)
}

func (l *callLimiter) drop(roundID string) {
	l.mu.Lock()
	delete(l.rounds, roundID)
	l.mu.Unlock()
}
