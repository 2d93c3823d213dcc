package repository

import (
	"context"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// RoomRepository defines room and roster data operations
type RoomRepository interface {
	CreateRoom(ctx context.Context, name, hostName string, settings models.RoomSettings) (*models.Room, *models.Player, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	UpdateRoomSettings(ctx context.Context, id string, settings models.RoomSettings) error
	AddPlayer(ctx context.Context, roomID, name string) (*models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context, roomID string) ([]models.Player, error)
}

// RoundRepository defines round data operations
type RoundRepository interface {
	CreateRound(ctx context.Context, roomID, videoRef string) (*models.Round, error)
	GetRound(ctx context.Context, id string) (*models.Round, error)
	ListRounds(ctx context.Context, roomID string) ([]models.Round, error)
	UpdateRoundStatus(ctx context.Context, id string, from, to models.RoundStatus) error
}

// ParlayRepository defines parlay and score data operations
type ParlayRepository interface {
	UpsertParlay(ctx context.Context, roundID, playerID, text, normalized, punishment string) (*models.Parlay, error)
	GetParlayByPlayer(ctx context.Context, roundID, playerID string) (*models.Parlay, error)
	ListParlays(ctx context.Context, roundID string) ([]models.Parlay, error)
	ListParlaysByText(ctx context.Context, roundID, normalized string) ([]models.Parlay, error)
	SetAccuracy(ctx context.Context, parlayID string, accuracy float64) error
	ApplyAwards(ctx context.Context, awards []Award) error
}

// CallRepository defines call data operations
type CallRepository interface {
	CreateCall(ctx context.Context, call *models.Call) error
	GetCall(ctx context.Context, id string) (*models.Call, error)
	ListCalls(ctx context.Context, roundID string) ([]models.Call, error)
	ListCallsInRange(ctx context.Context, roundID, normalized string, from, to float64) ([]models.Call, error)
	ListCallsSince(ctx context.Context, roundID string, since time.Time) ([]models.Call, error)
	CountCallsByPlayer(ctx context.Context, roundID string) (map[string]int, error)
}

// EventRepository defines confirmed event data operations
type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.ConfirmedEvent) error
	ListEvents(ctx context.Context, roundID string) ([]models.ConfirmedEvent, error)
}

// MarkerRepository defines review marker data operations
type MarkerRepository interface {
	CreateMarker(ctx context.Context, marker *models.Marker) error
	GetMarker(ctx context.Context, id string) (*models.Marker, error)
	ListMarkers(ctx context.Context, roundID string) ([]models.Marker, error)
	CountMarkers(ctx context.Context, roundID string) (int, error)
	DeleteMarker(ctx context.Context, id string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	RoomRepository
	RoundRepository
	ParlayRepository
	CallRepository
	EventRepository
	MarkerRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
