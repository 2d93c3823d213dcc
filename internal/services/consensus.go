package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/metrics"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
	"github.com/parlaywatch/parlaywatch/internal/scoring"
)

// ConsensusService runs peer verification of calls in rooms with more than
// two players
type ConsensusService struct {
	notifier
	tallies *cache.Tallies
	ttl     time.Duration
}

// NewConsensusService creates a new ConsensusService
func NewConsensusService(log logger.Logger, repo repository.FullRepository, tallies *cache.Tallies, sched *scheduler.Scheduler, m *metrics.Metrics) *ConsensusService {
	return &ConsensusService{
		notifier: newNotifier(log, repo, sched, m),
		tallies:  tallies,
		ttl:      cache.VerificationTTL,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *ConsensusService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the wall clock used for award timestamps
func (s *ConsensusService) SetClock(now func() time.Time) {
	s.now = now
}

// Verification is a persisted call about to be put to the room
type Verification struct {
	Room    *models.Room
	Round   *models.Round
	Call    *models.Call
	Caller  *models.Player
	Parlay  *models.Parlay
	Players []models.Player
}

// VerifyPrompt is the payload of vote:verify
type VerifyPrompt struct {
	CallID     string    `json:"call_id"`
	RoundID    string    `json:"round_id"`
	CallerID   string    `json:"caller_id"`
	CallerName string    `json:"caller_name"`
	Text       string    `json:"text"`
	ParlayText string    `json:"parlay_text"`
	Punishment string    `json:"punishment,omitempty"`
	VideoTime  float64   `json:"video_time"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Resolution is the state of a verification after a response
type Resolution struct {
	CallID     string                 `json:"call_id"`
	CallerID   string                 `json:"caller_id"`
	Resolved   bool                   `json:"resolved"`
	Approved   bool                   `json:"approved"`
	Approvals  int                    `json:"approvals"`
	Rejections int                    `json:"rejections"`
	Auto       bool                   `json:"auto,omitempty"`
	Event      *models.ConfirmedEvent `json:"event,omitempty"`
}

// ExpiredInfo is the payload of vote:expired
type ExpiredInfo struct {
	CallID   string `json:"call_id"`
	RoundID  string `json:"round_id"`
	CallerID string `json:"caller_id"`
}

// ConfirmedInfo is the payload of event:confirmed
type ConfirmedInfo struct {
	Event  *models.ConfirmedEvent   `json:"event"`
	Scores map[string]scoring.Score `json:"scores,omitempty"`
}

// BeginVerification asks every other non-host player to verify a call.
// With nobody to ask the call is approved on the spot.
func (s *ConsensusService) BeginVerification(ctx context.Context, v Verification) (*Resolution, error) {
	var recipients []string
	for _, p := range v.Players {
		if p.IsHost || p.ID == v.Caller.ID {
			continue
		}
		recipients = append(recipients, p.ID)
	}

	if len(recipients) == 0 {
		event, err := s.Award(ctx, v.Room, v.Round, v.Call.NormalizedText, v.Call.VideoTime, []models.Parlay{*v.Parlay})
		if err != nil {
			return nil, err
		}
		res := &Resolution{
			CallID:   v.Call.ID,
			CallerID: v.Caller.ID,
			Resolved: true,
			Approved: true,
			Auto:     true,
			Event:    event,
		}
		s.metrics.VerificationResolved(true)
		s.broadcast(v.Room.ID, models.MsgVoteResolved, res)
		return res, nil
	}

	err := s.tallies.Open(cache.Tally{
		CallID:     v.Call.ID,
		RoomID:     v.Room.ID,
		RoundID:    v.Round.ID,
		CallerID:   v.Caller.ID,
		Text:       v.Call.NormalizedText,
		Recipients: recipients,
		Responses:  map[string]bool{},
	}, s.ttl)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Verification opened", "call_id", v.Call.ID, "round_id", v.Round.ID, "recipients", len(recipients))
	s.broadcastExcept(v.Room.ID, v.Caller.ID, models.MsgVoteVerify, VerifyPrompt{
		CallID:     v.Call.ID,
		RoundID:    v.Round.ID,
		CallerID:   v.Caller.ID,
		CallerName: v.Caller.Name,
		Text:       v.Call.NormalizedText,
		ParlayText: v.Parlay.Text,
		Punishment: v.Parlay.Punishment,
		VideoTime:  v.Call.VideoTime,
		ExpiresAt:  s.now().Add(s.ttl),
	})
	return &Resolution{CallID: v.Call.ID, CallerID: v.Caller.ID}, nil
}

// Respond records a player's verdict on a call. The response that completes
// the quorum resolves the call; responses to unknown, expired or resolved
// calls and responses from players who were not asked are dropped.
func (s *ConsensusService) Respond(ctx context.Context, callID, playerID string, approve bool) (*Resolution, error) {
	open, ok := s.tallies.Get(callID)
	if !ok {
		return nil, s.dropResponse(callID, playerID, cache.ErrTallyNotFound)
	}
	// Facts are loaded before the tally can close; a failed load records nothing.
	facts, err := s.loadFacts(ctx, open)
	if err != nil {
		return nil, err
	}

	t, resolved, err := s.tallies.Respond(callID, playerID, approve)
	if stderrors.Is(err, cache.ErrTallyNotFound) || stderrors.Is(err, cache.ErrNotEligible) {
		return nil, s.dropResponse(callID, playerID, err)
	}
	if err != nil {
		return nil, err
	}

	approvals, rejections := t.Counts()
	if !resolved {
		return &Resolution{
			CallID:     callID,
			CallerID:   t.CallerID,
			Approvals:  approvals,
			Rejections: rejections,
		}, nil
	}
	return s.resolve(ctx, t, facts)
}

func (s *ConsensusService) dropResponse(callID, playerID string, reason error) error {
	s.log.Debug("Dropped verification response", "call_id", callID, "player_id", playerID, "reason", reason)
	s.metrics.ActionDropped("vote:response")
	return ErrIgnored
}

// verificationFacts is the stored state a verification outcome is applied to
type verificationFacts struct {
	room   *models.Room
	round  *models.Round
	call   *models.Call
	parlay *models.Parlay
}

func (s *ConsensusService) loadFacts(ctx context.Context, t cache.Tally) (*verificationFacts, error) {
	room, err := s.repo.GetRoom(ctx, t.RoomID)
	if err != nil {
		return nil, err
	}
	round, err := s.repo.GetRound(ctx, t.RoundID)
	if err != nil {
		return nil, err
	}
	call, err := s.repo.GetCall(ctx, t.CallID)
	if err != nil {
		return nil, err
	}
	parlay, err := s.repo.GetParlayByPlayer(ctx, round.ID, t.CallerID)
	if err != nil {
		return nil, err
	}
	return &verificationFacts{room: room, round: round, call: call, parlay: parlay}, nil
}

func (s *ConsensusService) resolve(ctx context.Context, t cache.Tally, facts *verificationFacts) (*Resolution, error) {
	approvals, rejections := t.Counts()
	res := &Resolution{
		CallID:     t.CallID,
		CallerID:   t.CallerID,
		Resolved:   true,
		Approved:   t.Approved(),
		Approvals:  approvals,
		Rejections: rejections,
	}

	room, round := facts.room, facts.round
	if res.Approved {
		event, err := s.Award(ctx, room, round, t.Text, facts.call.VideoTime, []models.Parlay{*facts.parlay})
		if err != nil {
			return nil, err
		}
		res.Event = event
	} else if err := s.penalize(ctx, room.ID, round.ID, []string{t.CallerID}, PenaltySourceConsensus); err != nil {
		return nil, err
	}

	s.metrics.VerificationResolved(res.Approved)
	s.log.Info("Verification resolved", "call_id", t.CallID, "approved", res.Approved,
		"approvals", approvals, "rejections", rejections)
	s.broadcast(room.ID, models.MsgVoteResolved, res)
	return res, nil
}

// Award gives each parlay's owner the flat consensus award and one leg,
// records one consensus event naming them all and pauses play
func (s *ConsensusService) Award(ctx context.Context, room *models.Room, round *models.Round, text string, at float64, winners []models.Parlay) (*models.ConfirmedEvent, error) {
	now := s.now()
	awards := make([]repository.Award, 0, len(winners))
	awarded := make([]string, 0, len(winners))
	for _, p := range winners {
		awards = append(awards, repository.Award{
			PlayerID: p.PlayerID,
			ParlayID: p.ID,
			Score:    ConsensusAward,
			Legs:     1,
			At:       now,
		})
		awarded = append(awarded, p.PlayerID)
	}
	if err := s.repo.ApplyAwards(ctx, awards); err != nil {
		return nil, err
	}

	event := &models.ConfirmedEvent{
		RoundID:          round.ID,
		NormalizedText:   text,
		VideoTime:        at,
		Source:           models.SourceConsensus,
		AwardedPlayerIDs: awarded,
		CreatedAt:        now,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.metrics.EventConfirmed(string(models.SourceConsensus))
	s.log.Info("Event confirmed", "round_id", round.ID, "text", text, "source", event.Source, "players", len(awarded))
	s.broadcast(room.ID, models.MsgEventConfirmed, ConfirmedInfo{Event: event})
	s.pushScoreboard(ctx, room.ID)
	if round.Status == models.RoundVideo {
		s.pauseThenResume(room.ID, round.ID, text, at, room.Settings.PauseDuration())
	}
	return event, nil
}

// Pending returns the open verification for a call, if any
func (s *ConsensusService) Pending(callID string) (cache.Tally, bool) {
	return s.tallies.Get(callID)
}

// RunExpiry drops verifications whose TTL elapsed, checking every interval,
// until ctx is cancelled. Expired calls change no scores.
func (s *ConsensusService) RunExpiry(ctx context.Context, every time.Duration) {
	s.tallies.Run(ctx, every, s.expire)
}

// ExpireNow drops every verification that has expired by now
func (s *ConsensusService) ExpireNow(now time.Time) int {
	expired := s.tallies.Sweep(now)
	for _, t := range expired {
		s.expire(t)
	}
	return len(expired)
}

func (s *ConsensusService) expire(t cache.Tally) {
	s.metrics.VerificationExpired()
	s.log.Info("Verification expired", "call_id", t.CallID, "round_id", t.RoundID, "responses", len(t.Responses))
	s.broadcast(t.RoomID, models.MsgVoteExpired, ExpiredInfo{
		CallID:   t.CallID,
		RoundID:  t.RoundID,
		CallerID: t.CallerID,
	})
}
