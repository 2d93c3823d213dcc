package services

import (
	"context"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/models"
)

// RoomServicer defines the interface for room operations
type RoomServicer interface {
	CreateRoom(ctx context.Context, name, hostName string) (*models.Room, *models.Player, error)
	JoinRoom(ctx context.Context, roomID, name string) (*models.Player, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetPlayer(ctx context.Context, roomID, playerID string) (*models.Player, error)
	UpdateSettings(ctx context.Context, roomID, hostID string, settings models.RoomSettings) (*models.Room, error)
	Scoreboard(ctx context.Context, roomID string) ([]models.ScoreboardEntry, error)
}

// ConsensusServicer defines the interface for peer verification
type ConsensusServicer interface {
	BeginVerification(ctx context.Context, v Verification) (*Resolution, error)
	Respond(ctx context.Context, callID, playerID string, approve bool) (*Resolution, error)
	Pending(callID string) (cache.Tally, bool)
	RunExpiry(ctx context.Context, every time.Duration)
	ExpireNow(now time.Time) int
	SetBroadcaster(b Broadcaster)
}

// RoundServicer defines the interface for round lifecycle operations
type RoundServicer interface {
	StartRound(ctx context.Context, roomID, hostID, videoRef string) (*models.Round, error)
	SubmitParlay(ctx context.Context, roundID, playerID, text, punishment string) (*models.Parlay, error)
	Lock(ctx context.Context, roundID, hostID string) error
	SubmitCall(ctx context.Context, in CallInput) (*CallResult, error)
	Confirm(ctx context.Context, roundID, hostID, text string, centerTime float64) (*ConfirmedInfo, error)
	Dismiss(ctx context.Context, roundID, hostID, text string, at float64) ([]string, error)
	Mark(ctx context.Context, roundID, hostID string, at float64, note string) (*models.Marker, error)
	Video(ctx context.Context, roundID, hostID, videoAction string, at float64) error
	EndRound(ctx context.Context, roundID, hostID string) error
	ConfirmMarker(ctx context.Context, roundID, hostID, markerID, text string) (*ConfirmedInfo, error)
	SkipMarker(ctx context.Context, roundID, hostID, markerID string) error
	FinishReview(ctx context.Context, roundID, hostID string) error
	Complete(ctx context.Context, roundID, hostID string) error
	Loser(ctx context.Context, roundID string) (string, bool, error)
	Round(ctx context.Context, roundID string) (*models.Round, error)
	Rounds(ctx context.Context, roomID string) ([]models.Round, error)
	Clusters(ctx context.Context, roundID string) ([]ClusterView, error)
	Snapshot(ctx context.Context, roundID string) (*RoundSnapshot, error)
	SetBroadcaster(b Broadcaster)
}

// Ensure concrete types implement interfaces
var (
	_ RoomServicer      = (*RoomService)(nil)
	_ ConsensusServicer = (*ConsensusService)(nil)
	_ RoundServicer     = (*RoundService)(nil)
)
