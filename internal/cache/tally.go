package cache

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// VerificationTTL is how long a verification prompt stays open
const VerificationTTL = 60 * time.Second

var (
	// ErrTallyNotFound is returned for unknown, expired or already resolved tallies
	ErrTallyNotFound = errors.New("verification not found")
	// ErrTallyExists is returned when a tally is opened twice for the same call
	ErrTallyExists = errors.New("verification already open")
	// ErrNotEligible is returned when a player who was not prompted responds
	ErrNotEligible = errors.New("player not eligible to respond")
)

// Tally is the peer verification state of one call
type Tally struct {
	CallID     string
	RoomID     string
	RoundID    string
	CallerID   string
	Text       string
	Recipients []string
	Responses  map[string]bool
	ExpiresAt  time.Time
}

// Counts returns the number of approving and rejecting responses
func (t Tally) Counts() (approve, reject int) {
	for _, ok := range t.Responses {
		if ok {
			approve++
		} else {
			reject++
		}
	}
	return approve, reject
}

// Approved reports whether the responses favor the caller. A split vote
// counts as approval.
func (t Tally) Approved() bool {
	approve, reject := t.Counts()
	return approve >= reject
}

func (t Tally) clone() Tally {
	c := t
	c.Recipients = append([]string(nil), t.Recipients...)
	c.Responses = make(map[string]bool, len(t.Responses))
	for k, v := range t.Responses {
		c.Responses[k] = v
	}
	return c
}

func (t Tally) eligible(playerID string) bool {
	for _, id := range t.Recipients {
		if id == playerID {
			return true
		}
	}
	return false
}

// Quorum reports whether total responses out of others prompted players settle a vote
func Quorum(total, others int) bool {
	return total >= others || total >= (others+1)/2
}

// Tallies is a keyed store of open verification tallies with expiry.
// Resolving a tally removes it, so at most one Respond ever reports resolution.
type Tallies struct {
	mu     sync.Mutex
	items  map[string]*tallyEntry
	expiry expiryQueue
	now    func() time.Time
}

type tallyEntry struct {
	tally Tally
	index int
}

// NewTallies creates an empty store using the wall clock
func NewTallies() *Tallies {
	return NewTalliesWithClock(time.Now)
}

// NewTalliesWithClock creates an empty store with an injected clock
func NewTalliesWithClock(now func() time.Time) *Tallies {
	return &Tallies{
		items: make(map[string]*tallyEntry),
		now:   now,
	}
}

// Open starts a tally that expires after ttl
func (s *Tallies) Open(t Tally, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[t.CallID]; ok {
		return ErrTallyExists
	}
	t = t.clone()
	t.ExpiresAt = s.now().Add(ttl)

	e := &tallyEntry{tally: t}
	s.items[t.CallID] = e
	heap.Push(&s.expiry, e)
	return nil
}

// Respond records playerID's answer. A repeated answer replaces the earlier one.
// When the answer completes a quorum the tally is removed and resolved is
// true; the returned tally then holds the final responses.
func (s *Tallies) Respond(callID, playerID string, approve bool) (t Tally, resolved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[callID]
	if !ok {
		return Tally{}, false, ErrTallyNotFound
	}
	if !s.now().Before(e.tally.ExpiresAt) {
		s.remove(e)
		return Tally{}, false, ErrTallyNotFound
	}
	if !e.tally.eligible(playerID) {
		return Tally{}, false, ErrNotEligible
	}

	e.tally.Responses[playerID] = approve
	if Quorum(len(e.tally.Responses), len(e.tally.Recipients)) {
		s.remove(e)
		return e.tally.clone(), true, nil
	}
	return e.tally.clone(), false, nil
}

// Get returns a copy of an open tally
func (s *Tallies) Get(callID string) (Tally, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[callID]
	if !ok {
		return Tally{}, false
	}
	return e.tally.clone(), true
}

// Len returns the number of open tallies
func (s *Tallies) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes and returns every tally that has expired by now
func (s *Tallies) Sweep(now time.Time) []Tally {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Tally
	for s.expiry.Len() > 0 && !now.Before(s.expiry[0].tally.ExpiresAt) {
		e := heap.Pop(&s.expiry).(*tallyEntry)
		delete(s.items, e.tally.CallID)
		expired = append(expired, e.tally)
	}
	return expired
}

// Run sweeps expired tallies every interval until ctx is cancelled
func (s *Tallies) Run(ctx context.Context, every time.Duration, onExpire func(Tally)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range s.Sweep(s.now()) {
				if onExpire != nil {
					onExpire(t)
				}
			}
		}
	}
}

// remove must be called with mu held
func (s *Tallies) remove(e *tallyEntry) {
	delete(s.items, e.tally.CallID)
	if e.index >= 0 {
		heap.Remove(&s.expiry, e.index)
	}
}

// expiryQueue is a min-heap of tallies ordered by expiry
type expiryQueue []*tallyEntry

func (q expiryQueue) Len() int { return len(q) }

func (q expiryQueue) Less(i, j int) bool {
	return q[i].tally.ExpiresAt.Before(q[j].tally.ExpiresAt)
}

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	e := x.(*tallyEntry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
