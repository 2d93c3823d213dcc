package services

import (
	"context"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/metrics"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
)

// Broadcaster defines the interface for sending messages to room clients
type Broadcaster interface {
	BroadcastRoom(roomID string, msg models.WSMessage)
	BroadcastExcept(roomID, exceptPlayerID string, msg models.WSMessage)
	SendPlayer(roomID, playerID string, msg models.WSMessage)
}

// Score changes applied outside the rarity-weighted host path
const (
	ConsensusAward = 1.0
	Penalty        = -0.5
)

// Penalty sources
const (
	PenaltySourceConsensus = "consensus"
	PenaltySourceDismiss   = "dismiss"
)

// PauseInfo is the payload of video:pause_auto
type PauseInfo struct {
	RoundID    string  `json:"round_id"`
	Text       string  `json:"text"`
	VideoTime  float64 `json:"video_time"`
	ResumeInMs int64   `json:"resume_in_ms"`
}

// PlaybackInfo is the payload of video:resume and the host playback relays
type PlaybackInfo struct {
	RoundID   string  `json:"round_id"`
	VideoTime float64 `json:"video_time"`
}

// PenaltyInfo is the payload of penalty:applied
type PenaltyInfo struct {
	RoundID   string   `json:"round_id"`
	PlayerIDs []string `json:"player_ids"`
	Amount    float64  `json:"amount"`
	Source    string   `json:"source"`
}

// notifier holds what the round and consensus services share for telling
// clients about results: broadcasting, scoreboards and the pause/resume timer
type notifier struct {
	log         logger.Logger
	repo        repository.FullRepository
	sched       *scheduler.Scheduler
	metrics     *metrics.Metrics
	broadcaster Broadcaster
	now         func() time.Time
}

func newNotifier(log logger.Logger, repo repository.FullRepository, sched *scheduler.Scheduler, m *metrics.Metrics) notifier {
	return notifier{
		log:     log,
		repo:    repo,
		sched:   sched,
		metrics: m,
		now:     time.Now,
	}
}

func (n *notifier) broadcast(roomID, msgType string, payload any) {
	if n.broadcaster == nil {
		return
	}
	n.broadcaster.BroadcastRoom(roomID, models.WSMessage{Type: msgType, Payload: payload})
}

func (n *notifier) broadcastExcept(roomID, exceptPlayerID, msgType string, payload any) {
	if n.broadcaster == nil {
		return
	}
	n.broadcaster.BroadcastExcept(roomID, exceptPlayerID, models.WSMessage{Type: msgType, Payload: payload})
}

func (n *notifier) send(roomID, playerID, msgType string, payload any) {
	if n.broadcaster == nil {
		return
	}
	n.broadcaster.SendPlayer(roomID, playerID, models.WSMessage{Type: msgType, Payload: payload})
}

// scoreboard lists the room's non-host players by join order
func (n *notifier) scoreboard(ctx context.Context, roomID string) ([]models.ScoreboardEntry, error) {
	players, err := n.repo.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	board := make([]models.ScoreboardEntry, 0, len(players))
	for _, p := range players {
		if p.IsHost {
			continue
		}
		board = append(board, models.ScoreboardEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	return board, nil
}

func (n *notifier) pushScoreboard(ctx context.Context, roomID string) {
	board, err := n.scoreboard(ctx, roomID)
	if err != nil {
		n.log.Error("Failed to load scoreboard", "room_id", roomID, "error", err)
		return
	}
	n.broadcast(roomID, models.MsgScoreboard, board)
}

// pauseThenResume broadcasts an automatic pause and schedules the resume.
// A pending resume for the round is replaced, so play resumes one full pause
// after the latest confirmed event.
func (n *notifier) pauseThenResume(roomID, roundID, text string, at float64, pause time.Duration) {
	n.broadcast(roomID, models.MsgPauseAuto, PauseInfo{
		RoundID:    roundID,
		Text:       text,
		VideoTime:  at,
		ResumeInMs: pause.Milliseconds(),
	})
	if n.sched.Schedule(roundID, pause, func() {
		n.broadcast(roomID, models.MsgResume, PlaybackInfo{RoundID: roundID, VideoTime: at})
	}) {
		n.log.Debug("Replaced pending resume", "round_id", roundID)
	}
}

// resumeNow cancels any pending resume and resumes play immediately
func (n *notifier) resumeNow(roomID, roundID string, at float64) {
	n.sched.Cancel(roundID)
	n.broadcast(roomID, models.MsgResume, PlaybackInfo{RoundID: roundID, VideoTime: at})
}

// penalize applies the flat penalty to each player and their parlay in the round
func (n *notifier) penalize(ctx context.Context, roomID, roundID string, playerIDs []string, source string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	now := n.now()
	awards := make([]repository.Award, 0, len(playerIDs))
	for _, id := range playerIDs {
		a := repository.Award{PlayerID: id, Score: Penalty, At: now}
		parlay, err := n.repo.GetParlayByPlayer(ctx, roundID, id)
		switch {
		case err == nil:
			a.ParlayID = parlay.ID
		case err != repository.ErrNotFound:
			return err
		}
		awards = append(awards, a)
	}
	if err := n.repo.ApplyAwards(ctx, awards); err != nil {
		return err
	}

	n.metrics.PenaltyApplied(source, len(playerIDs))
	n.log.Info("Penalty applied", "round_id", roundID, "players", len(playerIDs), "source", source)
	n.broadcast(roomID, models.MsgPenaltyApplied, PenaltyInfo{
		RoundID:   roundID,
		PlayerIDs: playerIDs,
		Amount:    Penalty,
		Source:    source,
	})
	n.pushScoreboard(ctx, roomID)
	return nil
}
