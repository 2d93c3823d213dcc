package services

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/clustering"
	"github.com/parlaywatch/parlaywatch/internal/errors"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/metrics"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
	"github.com/parlaywatch/parlaywatch/internal/scoring"
)

// DismissWindow is how far either side of the dismissed time calls are penalized
const DismissWindow = 2.5

// Host playback actions
const (
	VideoPlay  = "play"
	VideoPause = "pause"
	VideoSeek  = "seek"
)

// RoundService runs the round state machine and the host actions inside it
type RoundService struct {
	notifier
	consensus *ConsensusService
	stats     *cache.EventStats
	engine    *scoring.Engine
	limiter   *callLimiter

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRoundService creates a new RoundService
func NewRoundService(log logger.Logger, repo repository.FullRepository, consensus *ConsensusService, stats *cache.EventStats, sched *scheduler.Scheduler, m *metrics.Metrics) *RoundService {
	return &RoundService{
		notifier:  newNotifier(log, repo, sched, m),
		consensus: consensus,
		stats:     stats,
		engine:    scoring.NewEngine(stats),
		limiter:   newCallLimiter(CallInterval),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *RoundService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the wall clock used for call timestamps and rate limits
func (s *RoundService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRand replaces the source used to break full ties for the loser
func (s *RoundService) SetRand(r *rand.Rand) {
	s.rngMu.Lock()
	s.rng = r
	s.rngMu.Unlock()
}

// StatusInfo is the payload of round:status
type StatusInfo struct {
	RoundID    string             `json:"round_id"`
	Index      int                `json:"index"`
	Status     models.RoundStatus `json:"status"`
	LoserID    string             `json:"loser_id,omitempty"`
	Punishment string             `json:"punishment,omitempty"`
}

// ParlaysInfo is the payload of round:parlays
type ParlaysInfo struct {
	RoundID string          `json:"round_id"`
	Parlays []models.Parlay `json:"parlays"`
}

// CallInput is a call as reported by a client
type CallInput struct {
	RoundID   string
	PlayerID  string
	Text      string // empty means the caller's own parlay
	VideoTime float64
	LatencyMs float64
}

// CallResult reports what happened to a call
type CallResult struct {
	Call       *models.Call           `json:"call"`
	Route      string                 `json:"route"`
	Accepted   bool                   `json:"accepted"`
	Event      *models.ConfirmedEvent `json:"event,omitempty"`
	Resolution *Resolution            `json:"resolution,omitempty"`
}

// ClusterView is a vote cluster as shown to the host
type ClusterView struct {
	models.VoteCluster
	AutoPause bool `json:"auto_pause"`
}

// RoundSnapshot is the full state of a round
type RoundSnapshot struct {
	Round      *models.Round               `json:"round"`
	Parlays    []models.Parlay             `json:"parlays"`
	Events     []models.ConfirmedEvent     `json:"events"`
	Markers    []models.Marker             `json:"markers"`
	Scoreboard []models.ScoreboardEntry    `json:"scoreboard"`
	Stats      map[string]models.EventStat `json:"stats"`
}

// ==================== Lookups ====================

func (s *RoundService) drop(action, reason string, args ...any) error {
	s.log.Debug("Dropped action", append([]any{"action", action, "reason", reason}, args...)...)
	s.metrics.ActionDropped(action)
	return ErrIgnored
}

// load fetches a round in the wanted phase together with its room
func (s *RoundService) load(ctx context.Context, action, roundID string, want models.RoundStatus) (*models.Round, *models.Room, error) {
	round, err := s.repo.GetRound(ctx, roundID)
	if err == repository.ErrNotFound {
		return nil, nil, s.drop(action, "unknown round", "round_id", roundID)
	}
	if err != nil {
		return nil, nil, err
	}
	if round.Status != want {
		return nil, nil, s.drop(action, "wrong phase", "round_id", roundID, "status", round.Status)
	}
	room, err := s.repo.GetRoom(ctx, round.RoomID)
	if err == repository.ErrNotFound {
		return nil, nil, s.drop(action, "unknown room", "room_id", round.RoomID)
	}
	if err != nil {
		return nil, nil, err
	}
	return round, room, nil
}

// loadAsHost is load for host-only actions
func (s *RoundService) loadAsHost(ctx context.Context, action, roundID, hostID string, want models.RoundStatus) (*models.Round, *models.Room, error) {
	round, room, err := s.load(ctx, action, roundID, want)
	if err != nil {
		return nil, nil, err
	}
	if room.HostID != hostID {
		return nil, nil, s.drop(action, "not host", "round_id", roundID, "player_id", hostID)
	}
	return round, room, nil
}

func (s *RoundService) member(ctx context.Context, action string, room *models.Room, playerID string) (*models.Player, error) {
	p, err := s.repo.GetPlayer(ctx, playerID)
	if err == repository.ErrNotFound || (err == nil && p.RoomID != room.ID) {
		return nil, s.drop(action, "unknown player", "room_id", room.ID, "player_id", playerID)
	}
	return p, err
}

func (s *RoundService) findRound(ctx context.Context, roundID string) (*models.Round, error) {
	round, err := s.repo.GetRound(ctx, roundID)
	if err == repository.ErrNotFound {
		return nil, errors.NotFound("round not found")
	}
	return round, err
}

func countPlayers(players []models.Player) int {
	n := 0
	for _, p := range players {
		if !p.IsHost {
			n++
		}
	}
	return n
}

// transition moves the round to the target status through the guarded
// transition table and announces it
func (s *RoundService) transition(ctx context.Context, action string, room *models.Room, round *models.Round, to models.RoundStatus) error {
	var tc models.TransitionContext
	if round.Status == models.RoundVideo {
		n, err := s.repo.CountMarkers(ctx, round.ID)
		if err != nil {
			return err
		}
		tc.UnreviewedMarkers = n
	}
	if !models.CanTransition(round.Status, to, tc) {
		return s.drop(action, "illegal transition", "round_id", round.ID, "from", round.Status, "to", to)
	}
	// Legs confirmed in review count toward the accuracy the loser is ranked on
	if round.Status == models.RoundReview && to == models.RoundWheel {
		if err := s.settleAccuracy(ctx, round.ID); err != nil {
			return err
		}
	}

	from := round.Status
	if err := s.repo.UpdateRoundStatus(ctx, round.ID, from, to); err != nil {
		if err == repository.ErrStaleStatus || err == repository.ErrNotFound {
			return s.drop(action, "round changed", "round_id", round.ID)
		}
		return err
	}
	round.Status = to
	s.log.Info("Round status changed", "round_id", round.ID, "from", from, "to", to)

	if from == models.RoundVideo {
		s.sched.Cancel(round.ID)
		s.limiter.drop(round.ID)
	}
	if to == models.RoundDone {
		s.stats.DropRound(round.ID)
	}

	info := StatusInfo{RoundID: round.ID, Index: round.Index, Status: to}
	if to == models.RoundWheel {
		loser, err := s.loserParlay(ctx, round.ID)
		if err != nil {
			s.log.Error("Failed to determine loser", "round_id", round.ID, "error", err)
		} else if loser != nil {
			info.LoserID = loser.PlayerID
			info.Punishment = loser.Punishment
		}
	}
	s.broadcast(room.ID, models.MsgRoundStatus, info)
	return nil
}

// ==================== Parlay Phase ====================

// StartRound opens the next round of a room in the parlay phase. It is
// dropped while an earlier round is unfinished.
func (s *RoundService) StartRound(ctx context.Context, roomID, hostID, videoRef string) (*models.Round, error) {
	const action = "host:start_round"
	room, err := s.repo.GetRoom(ctx, roomID)
	if err == repository.ErrNotFound {
		return nil, s.drop(action, "unknown room", "room_id", roomID)
	}
	if err != nil {
		return nil, err
	}
	if room.HostID != hostID {
		return nil, s.drop(action, "not host", "room_id", roomID, "player_id", hostID)
	}

	rounds, err := s.repo.ListRounds(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, r := range rounds {
		if r.Status != models.RoundDone {
			return nil, s.drop(action, "round in progress", "room_id", roomID, "round_id", r.ID)
		}
	}

	round, err := s.repo.CreateRound(ctx, roomID, strings.TrimSpace(videoRef))
	if err != nil {
		return nil, err
	}
	s.log.Info("Round started", "room_id", roomID, "round_id", round.ID, "index", round.Index)
	s.broadcast(roomID, models.MsgRoundStatus, StatusInfo{RoundID: round.ID, Index: round.Index, Status: round.Status})
	return round, nil
}

// SubmitParlay creates or replaces a player's parlay for the round
func (s *RoundService) SubmitParlay(ctx context.Context, roundID, playerID, text, punishment string) (*models.Parlay, error) {
	const action = "parlay"
	round, room, err := s.load(ctx, action, roundID, models.RoundParlay)
	if err != nil {
		return nil, err
	}
	player, err := s.member(ctx, action, room, playerID)
	if err != nil {
		return nil, err
	}
	if player.IsHost {
		return nil, s.drop(action, "host has no parlay", "round_id", roundID)
	}

	normalized := models.NormalizeText(text)
	if normalized == "" {
		return nil, ErrParlayTextRequired
	}
	return s.repo.UpsertParlay(ctx, round.ID, player.ID, strings.TrimSpace(text), normalized, strings.TrimSpace(punishment))
}

// Lock freezes parlays, starts the video phase and publishes every parlay
func (s *RoundService) Lock(ctx context.Context, roundID, hostID string) error {
	const action = "host:lock"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundParlay)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, action, room, round, models.RoundVideo); err != nil {
		return err
	}

	parlays, err := s.repo.ListParlays(ctx, round.ID)
	if err != nil {
		return err
	}
	s.broadcast(room.ID, models.MsgRoundParlays, ParlaysInfo{RoundID: round.ID, Parlays: parlays})
	return nil
}

// ==================== Video Phase ====================

// SubmitCall records a player's call and routes it: rooms with exactly two
// players use the two-player rule of the room's mode, all others go to peer
// verification.
func (s *RoundService) SubmitCall(ctx context.Context, in CallInput) (*CallResult, error) {
	const action = "call"
	round, room, err := s.load(ctx, action, in.RoundID, models.RoundVideo)
	if err != nil {
		return nil, err
	}
	player, err := s.member(ctx, action, room, in.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.IsHost {
		return nil, s.drop(action, "host cannot call", "round_id", round.ID)
	}
	parlay, err := s.repo.GetParlayByPlayer(ctx, round.ID, player.ID)
	if err == repository.ErrNotFound {
		return nil, s.drop(action, "no parlay", "round_id", round.ID, "player_id", player.ID)
	}
	if err != nil {
		return nil, err
	}

	text := models.NormalizeText(in.Text)
	if text == "" {
		text = parlay.NormalizedText
	}
	if in.VideoTime < 0 || math.IsNaN(in.VideoTime) {
		return nil, ErrInvalidVideoTime
	}

	now := s.now()
	if !s.limiter.allow(round.ID, player.ID, now) {
		return nil, ErrCallRateLimited
	}

	call := &models.Call{
		RoundID:        round.ID,
		PlayerID:       player.ID,
		NormalizedText: text,
		VideoTime:      models.CorrectVideoTime(in.VideoTime, in.LatencyMs),
		CreatedAt:      now,
	}
	if err := s.repo.CreateCall(ctx, call); err != nil {
		return nil, err
	}

	players, err := s.repo.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if countPlayers(players) == 2 {
		return s.twoPlayerCall(ctx, room, round, call, now)
	}

	s.metrics.CallAccepted(metrics.RouteVerification)
	res, err := s.consensus.BeginVerification(ctx, Verification{
		Room:    room,
		Round:   round,
		Call:    call,
		Caller:  player,
		Parlay:  parlay,
		Players: players,
	})
	if err != nil {
		return nil, err
	}
	return &CallResult{
		Call:       call,
		Route:      metrics.RouteVerification,
		Accepted:   res.Approved,
		Event:      res.Event,
		Resolution: res,
	}, nil
}

// twoPlayerCall applies the room's two-player rule to the calls around the
// new one. Players already awarded for the same text near the same time are
// not awarded again.
func (s *RoundService) twoPlayerCall(ctx context.Context, room *models.Room, round *models.Round, call *models.Call, now time.Time) (*CallResult, error) {
	s.metrics.CallAccepted(metrics.RouteTwoPlayer)
	result := &CallResult{Call: call, Route: metrics.RouteTwoPlayer}

	recent, err := s.repo.ListCallsSince(ctx, round.ID, now.Add(-clustering.TwoPlayerRecency))
	if err != nil {
		return nil, err
	}
	nearby := clustering.WithinWindow(recent, call.NormalizedText, call.VideoTime, clustering.TwoPlayerWindow)
	cluster := clustering.CheckTwoPlayerConsensus(nearby, room.Settings.TwoPlayerMode, 2, now)
	if cluster == nil {
		return result, nil
	}

	events, err := s.repo.ListEvents(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	var winners []models.Parlay
	for _, voter := range cluster.Voters {
		if alreadyAwarded(events, voter, cluster.NormalizedText, cluster.TCenter) {
			continue
		}
		p, err := s.repo.GetParlayByPlayer(ctx, round.ID, voter)
		if err == repository.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		// Only a parlay naming the called event wins it
		if p.NormalizedText != cluster.NormalizedText {
			continue
		}
		winners = append(winners, *p)
	}
	if len(winners) == 0 {
		return result, nil
	}

	event, err := s.consensus.Award(ctx, room, round, cluster.NormalizedText, cluster.TCenter, winners)
	if err != nil {
		return nil, err
	}
	result.Accepted = true
	result.Event = event
	return result, nil
}

func alreadyAwarded(events []models.ConfirmedEvent, playerID, text string, at float64) bool {
	for _, e := range events {
		if e.NormalizedText != text || math.Abs(e.VideoTime-at) > clustering.TwoPlayerWindow {
			continue
		}
		for _, id := range e.AwardedPlayerIDs {
			if id == playerID {
				return true
			}
		}
	}
	return false
}

// Confirm is the host's manual confirmation of a text near centerTime. Every
// parlay with that text scores, rarity-weighted, as one group event.
func (s *RoundService) Confirm(ctx context.Context, roundID, hostID, text string, centerTime float64) (*ConfirmedInfo, error) {
	const action = "host:confirm"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundVideo)
	if err != nil {
		return nil, err
	}
	normalized := models.NormalizeText(text)
	if normalized == "" {
		return nil, ErrCallTextRequired
	}
	return s.confirm(ctx, room, round, normalized, centerTime, true)
}

func (s *RoundService) confirm(ctx context.Context, room *models.Room, round *models.Round, text string, center float64, pause bool) (*ConfirmedInfo, error) {
	settings := room.Settings
	w := settings.VoteWindowSeconds
	calls, err := s.repo.ListCallsInRange(ctx, round.ID, text, center-w, center+w)
	if err != nil {
		return nil, err
	}
	at, ok := clustering.Median(clustering.Times(calls))
	if !ok {
		at = center
	}

	parlays, err := s.repo.ListParlaysByText(ctx, round.ID, text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scores := make(map[string]scoring.Score, len(parlays))
	awards := make([]repository.Award, 0, len(parlays))
	awarded := make([]string, 0, len(parlays))
	for _, p := range parlays {
		fast := fastTap(calls, p.PlayerID, at, settings.FastTapSeconds)
		score := s.engine.CalculateEventScore(round.ID, text, p.PlayerID, settings.ScoreMultiplier, fast)
		scores[p.PlayerID] = score
		awards = append(awards, repository.Award{
			PlayerID: p.PlayerID,
			ParlayID: p.ID,
			Score:    score.TotalScore,
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
		Source:           models.SourceHostReview,
		AwardedPlayerIDs: awarded,
		CreatedAt:        now,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.metrics.EventConfirmed(string(models.SourceHostReview))
	s.log.Info("Event confirmed", "round_id", round.ID, "text", text, "source", event.Source,
		"video_time", at, "players", len(awarded))
	info := &ConfirmedInfo{Event: event, Scores: scores}
	s.broadcast(room.ID, models.MsgEventConfirmed, info)
	s.pushScoreboard(ctx, room.ID)
	if pause {
		s.pauseThenResume(room.ID, round.ID, text, at, settings.PauseDuration())
	}
	return info, nil
}

// fastTap reports whether the player's call closest to at lands within window
func fastTap(calls []models.Call, playerID string, at, window float64) bool {
	best := math.Inf(1)
	for _, c := range calls {
		if c.PlayerID != playerID {
			continue
		}
		if d := math.Abs(c.VideoTime - at); d < best {
			best = d
		}
	}
	return best <= window
}

// Dismiss is the host rejecting a text near a time. Everyone who called it
// within DismissWindow is penalized once and play resumes at once.
func (s *RoundService) Dismiss(ctx context.Context, roundID, hostID, text string, at float64) ([]string, error) {
	const action = "host:dismiss"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundVideo)
	if err != nil {
		return nil, err
	}
	normalized := models.NormalizeText(text)
	if normalized == "" {
		return nil, ErrCallTextRequired
	}

	calls, err := s.repo.ListCallsInRange(ctx, round.ID, normalized, at-DismissWindow, at+DismissWindow)
	if err != nil {
		return nil, err
	}
	voters := clustering.DistinctVoters(calls)
	if err := s.penalize(ctx, room.ID, round.ID, voters, PenaltySourceDismiss); err != nil {
		return nil, err
	}
	s.log.Info("Call dismissed", "round_id", round.ID, "text", normalized, "penalized", len(voters))
	s.resumeNow(room.ID, round.ID, at)
	return voters, nil
}

// Mark bookmarks a video time for review after the round
func (s *RoundService) Mark(ctx context.Context, roundID, hostID string, at float64, note string) (*models.Marker, error) {
	const action = "host:mark"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundVideo)
	if err != nil {
		return nil, err
	}
	if at < 0 || math.IsNaN(at) {
		return nil, ErrInvalidVideoTime
	}

	marker := &models.Marker{
		RoundID:   round.ID,
		HostID:    hostID,
		VideoTime: at,
		Note:      strings.TrimSpace(note),
	}
	if err := s.repo.CreateMarker(ctx, marker); err != nil {
		return nil, err
	}
	s.send(room.ID, hostID, models.MsgMarkerCreated, marker)
	return marker, nil
}

// Video relays a host playback action to the room. Play cancels any
// pending automatic resume.
func (s *RoundService) Video(ctx context.Context, roundID, hostID, videoAction string, at float64) error {
	const action = "host:video"
	var msgType string
	switch videoAction {
	case VideoPlay:
		msgType = models.MsgVideoPlay
	case VideoPause:
		msgType = models.MsgVideoPause
	case VideoSeek:
		msgType = models.MsgVideoSeek
	default:
		return ErrInvalidVideoAction
	}

	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundVideo)
	if err != nil {
		return err
	}
	if videoAction == VideoPlay {
		s.sched.Cancel(round.ID)
	}
	s.broadcast(room.ID, msgType, PlaybackInfo{RoundID: round.ID, VideoTime: at})
	return nil
}

// EndRound settles accuracy and leaves the video phase, for review when
// markers are waiting and straight to the wheel otherwise
func (s *RoundService) EndRound(ctx context.Context, roundID, hostID string) error {
	const action = "host:end_round"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundVideo)
	if err != nil {
		return err
	}
	if err := s.settleAccuracy(ctx, round.ID); err != nil {
		return err
	}

	markers, err := s.repo.CountMarkers(ctx, round.ID)
	if err != nil {
		return err
	}
	to := models.RoundWheel
	if markers > 0 {
		to = models.RoundReview
	}
	return s.transition(ctx, action, room, round, to)
}

// settleAccuracy sets each parlay's accuracy to legs hit per call made. It
// runs when video ends and again when review hands over to the wheel.
func (s *RoundService) settleAccuracy(ctx context.Context, roundID string) error {
	counts, err := s.repo.CountCallsByPlayer(ctx, roundID)
	if err != nil {
		return err
	}
	parlays, err := s.repo.ListParlays(ctx, roundID)
	if err != nil {
		return err
	}
	for _, p := range parlays {
		accuracy := 0.0
		if n := counts[p.PlayerID]; n > 0 {
			accuracy = math.Min(1, float64(p.LegsHit)/float64(n))
		}
		if err := s.repo.SetAccuracy(ctx, p.ID, accuracy); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Review Phase ====================

func (s *RoundService) reviewMarker(ctx context.Context, action, roundID, hostID, markerID string) (*models.Round, *models.Room, *models.Marker, error) {
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundReview)
	if err != nil {
		return nil, nil, nil, err
	}
	marker, err := s.repo.GetMarker(ctx, markerID)
	if err == repository.ErrNotFound || (err == nil && marker.RoundID != round.ID) {
		return nil, nil, nil, s.drop(action, "unknown marker", "round_id", round.ID, "marker_id", markerID)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return round, room, marker, nil
}

// ConfirmMarker confirms text at a marker's time through the host
// confirmation path, then clears the marker
func (s *RoundService) ConfirmMarker(ctx context.Context, roundID, hostID, markerID, text string) (*ConfirmedInfo, error) {
	const action = "host:confirm_marker"
	round, room, marker, err := s.reviewMarker(ctx, action, roundID, hostID, markerID)
	if err != nil {
		return nil, err
	}
	normalized := models.NormalizeText(text)
	if normalized == "" {
		return nil, ErrCallTextRequired
	}

	info, err := s.confirm(ctx, room, round, normalized, marker.VideoTime, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteMarker(ctx, marker.ID); err != nil {
		return nil, err
	}
	return info, s.advanceIfReviewed(ctx, action, room, round)
}

// SkipMarker lets a marker lapse without scoring
func (s *RoundService) SkipMarker(ctx context.Context, roundID, hostID, markerID string) error {
	const action = "host:skip_marker"
	round, room, marker, err := s.reviewMarker(ctx, action, roundID, hostID, markerID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMarker(ctx, marker.ID); err != nil {
		return err
	}
	return s.advanceIfReviewed(ctx, action, room, round)
}

// advanceIfReviewed moves to the wheel once the last marker is cleared
func (s *RoundService) advanceIfReviewed(ctx context.Context, action string, room *models.Room, round *models.Round) error {
	n, err := s.repo.CountMarkers(ctx, round.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.transition(ctx, action, room, round, models.RoundWheel)
}

// FinishReview ends review early; remaining markers lapse
func (s *RoundService) FinishReview(ctx context.Context, roundID, hostID string) error {
	const action = "host:finish_review"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundReview)
	if err != nil {
		return err
	}
	return s.transition(ctx, action, room, round, models.RoundWheel)
}

// ==================== Wheel Phase ====================

// Complete closes a round once the wheel is done with it
func (s *RoundService) Complete(ctx context.Context, roundID, hostID string) error {
	const action = "host:complete"
	round, room, err := s.loadAsHost(ctx, action, roundID, hostID, models.RoundWheel)
	if err != nil {
		return err
	}
	return s.transition(ctx, action, room, round, models.RoundDone)
}

// Loser returns the player whose parlay ranks last in the round.
// ok is false when the round has no parlays.
func (s *RoundService) Loser(ctx context.Context, roundID string) (playerID string, ok bool, err error) {
	if _, err := s.findRound(ctx, roundID); err != nil {
		return "", false, err
	}
	p, err := s.loserParlay(ctx, roundID)
	if err != nil || p == nil {
		return "", false, err
	}
	return p.PlayerID, true, nil
}

func (s *RoundService) loserParlay(ctx context.Context, roundID string) (*models.Parlay, error) {
	parlays, err := s.repo.ListParlays(ctx, roundID)
	if err != nil {
		return nil, err
	}

	s.rngMu.Lock()
	playerID, ok := scoring.DetermineLoser(parlays, s.rng)
	s.rngMu.Unlock()
	if !ok {
		return nil, nil
	}
	for i := range parlays {
		if parlays[i].PlayerID == playerID {
			return &parlays[i], nil
		}
	}
	return nil, nil
}

// ==================== Views ====================

// Round returns a round by id
func (s *RoundService) Round(ctx context.Context, roundID string) (*models.Round, error) {
	return s.findRound(ctx, roundID)
}

// Rounds lists a room's rounds in order
func (s *RoundService) Rounds(ctx context.Context, roomID string) ([]models.Round, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("room not found")
		}
		return nil, err
	}
	return s.repo.ListRounds(ctx, roomID)
}

// Clusters groups the round's calls for the host, flagging clusters strong
// enough to pause play
func (s *RoundService) Clusters(ctx context.Context, roundID string) ([]ClusterView, error) {
	round, err := s.findRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	room, err := s.repo.GetRoom(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	calls, err := s.repo.ListCalls(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	players, err := s.repo.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	total := countPlayers(players)
	clusters := clustering.ClusterVotes(calls, room.Settings.VoteWindowSeconds)
	views := make([]ClusterView, 0, len(clusters))
	for _, c := range clusters {
		views = append(views, ClusterView{
			VoteCluster: c,
			AutoPause:   clustering.ShouldAutoPause(c, total, room.Settings.ConsensusThreshold, room.Settings.MinVotes),
		})
	}
	return views, nil
}

// Snapshot returns everything a reconnecting client needs about a round
func (s *RoundService) Snapshot(ctx context.Context, roundID string) (*RoundSnapshot, error) {
	round, err := s.findRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	parlays, err := s.repo.ListParlays(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	markers, err := s.repo.ListMarkers(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	board, err := s.scoreboard(ctx, round.RoomID)
	if err != nil {
		return nil, err
	}
	return &RoundSnapshot{
		Round:      round,
		Parlays:    parlays,
		Events:     events,
		Markers:    markers,
		Scoreboard: board,
		Stats:      s.stats.Snapshot(round.ID),
	}, nil
}
