package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
	"github.com/parlaywatch/parlaywatch/internal/services"
	"github.com/parlaywatch/parlaywatch/internal/testutil"
)

// sent is one message captured by the recorder
type sent struct {
	Kind     string // room, except or player
	RoomID   string
	PlayerID string
	Msg      models.WSMessage
}

// recorder is a Broadcaster that keeps everything it is given
type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) BroadcastRoom(roomID string, msg models.WSMessage) {
	r.add(sent{Kind: "room", RoomID: roomID, Msg: msg})
}

func (r *recorder) BroadcastExcept(roomID, exceptPlayerID string, msg models.WSMessage) {
	r.add(sent{Kind: "except", RoomID: roomID, PlayerID: exceptPlayerID, Msg: msg})
}

func (r *recorder) SendPlayer(roomID, playerID string, msg models.WSMessage) {
	r.add(sent{Kind: "player", RoomID: roomID, PlayerID: playerID, Msg: msg})
}

func (r *recorder) add(s sent) {
	r.mu.Lock()
	r.msgs = append(r.msgs, s)
	r.mu.Unlock()
}

func (r *recorder) count(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.msgs {
		if s.Msg.Type == msgType {
			n++
		}
	}
	return n
}

// last returns the most recent message of a type
func (r *recorder) last(msgType string) (sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Msg.Type == msgType {
			return r.msgs[i], true
		}
	}
	return sent{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixture wires the round and consensus services over a real repository
type fixture struct {
	repo      *repository.Repository
	rounds    *services.RoundService
	consensus *services.ConsensusService
	tallies   *cache.Tallies
	stats     *cache.EventStats
	sched     *scheduler.Scheduler
	bc        *recorder
	clock     *clock
	room      *testutil.Room
}

// setupRoundService seeds a room with default settings and the named players
func setupRoundService(t *testing.T, players ...string) *fixture {
	t.Helper()
	return setupRoundServiceWithSettings(t, models.DefaultRoomSettings(), players...)
}

func setupRoundServiceWithSettings(t *testing.T, settings models.RoomSettings, players ...string) *fixture {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	f := newFixture(t, repo, repo)
	f.room = testutil.SeedRoomWithSettings(t, repo, settings, players...)
	return f
}

// newFixture builds services over full, which may wrap repo to inject errors
func newFixture(t *testing.T, repo *repository.Repository, full repository.FullRepository) *fixture {
	t.Helper()
	log := logger.New()
	f := &fixture{
		repo:  repo,
		stats: cache.NewEventStats(),
		sched: scheduler.New(),
		bc:    &recorder{},
		clock: newClock(),
	}
	t.Cleanup(f.sched.Stop)

	f.tallies = cache.NewTalliesWithClock(f.clock.Now)
	f.consensus = services.NewConsensusService(log, full, f.tallies, f.sched, nil)
	f.consensus.SetBroadcaster(f.bc)
	f.consensus.SetClock(f.clock.Now)
	f.rounds = services.NewRoundService(log, full, f.consensus, f.stats, f.sched, nil)
	f.rounds.SetBroadcaster(f.bc)
	f.rounds.SetClock(f.clock.Now)
	return f
}

func (f *fixture) player(i int) *models.Player {
	return f.room.Players[i]
}

func (f *fixture) hostID() string {
	return f.room.Host.ID
}

// startRound opens a round in the parlay phase
func (f *fixture) startRound(t *testing.T) *models.Round {
	t.Helper()
	round, err := f.rounds.StartRound(context.Background(), f.room.Room.ID, f.hostID(), "video.mp4")
	if err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	return round
}

// startVideo opens a round, submits one parlay per text in player order and locks
func (f *fixture) startVideo(t *testing.T, texts ...string) *models.Round {
	t.Helper()
	ctx := context.Background()
	round := f.startRound(t)
	for i, text := range texts {
		if _, err := f.rounds.SubmitParlay(ctx, round.ID, f.player(i).ID, text, "do ten pushups"); err != nil {
			t.Fatalf("SubmitParlay(%d) failed: %v", i, err)
		}
	}
	if err := f.rounds.Lock(ctx, round.ID, f.hostID()); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	return round
}

// call submits a call with no latency
func (f *fixture) call(t *testing.T, round *models.Round, player int, text string, at float64) *services.CallResult {
	t.Helper()
	res, err := f.rounds.SubmitCall(context.Background(), services.CallInput{
		RoundID:   round.ID,
		PlayerID:  f.player(player).ID,
		Text:      text,
		VideoTime: at,
	})
	if err != nil {
		t.Fatalf("SubmitCall(player %d, %q, %v) failed: %v", player, text, at, err)
	}
	return res
}

func (f *fixture) score(t *testing.T, player int) float64 {
	t.Helper()
	p, err := f.repo.GetPlayer(context.Background(), f.player(player).ID)
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	return p.Score
}

func (f *fixture) parlay(t *testing.T, round *models.Round, player int) *models.Parlay {
	t.Helper()
	p, err := f.repo.GetParlayByPlayer(context.Background(), round.ID, f.player(player).ID)
	if err != nil {
		t.Fatalf("GetParlayByPlayer failed: %v", err)
	}
	return p
}

func (f *fixture) status(t *testing.T, round *models.Round) models.RoundStatus {
	t.Helper()
	r, err := f.repo.GetRound(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	return r.Status
}

func (f *fixture) events(t *testing.T, round *models.Round) []models.ConfirmedEvent {
	t.Helper()
	events, err := f.repo.ListEvents(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	return events
}

func assertIgnored(t *testing.T, err error) {
	t.Helper()
	if !services.IsIgnored(err) {
		t.Fatalf("expected action to be ignored, got %v", err)
	}
}
