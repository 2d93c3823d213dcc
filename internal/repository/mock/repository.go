package mock

import (
	"context"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ApplyAwardsError = errors.New("database error")
//	svc := services.NewRoundService(log, mockRepo, deps)
//	err := svc.Confirm(ctx, roundID, hostID, "cat jumps", 10)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Room Errors =====
	GetRoomError     error
	AddPlayerError   error
	GetPlayerError   error
	ListPlayersError error

	// ===== Round Errors =====
	CreateRoundError       error
	GetRoundError          error
	UpdateRoundStatusError error

	// ===== Parlay Errors =====
	UpsertParlayError      error
	GetParlayByPlayerError error
	ListParlaysError       error
	ListParlaysByTextError error
	SetAccuracyError       error
	ApplyAwardsError       error

	// ===== Call Errors =====
	CreateCallError         error
	ListCallsError          error
	ListCallsInRangeError   error
	ListCallsSinceError     error
	CountCallsByPlayerError error

	// ===== Event Errors =====
	CreateEventError error
	ListEventsError  error

	// ===== Marker Errors =====
	CreateMarkerError error
	GetMarkerError    error
	CountMarkersError error
	DeleteMarkerError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Room Methods =====

func (m *Repository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	if m.GetRoomError != nil {
		return nil, m.GetRoomError
	}
	return m.FullRepository.GetRoom(ctx, id)
}

func (m *Repository) AddPlayer(ctx context.Context, roomID, name string) (*models.Player, error) {
	if m.AddPlayerError != nil {
		return nil, m.AddPlayerError
	}
	return m.FullRepository.AddPlayer(ctx, roomID, name)
}

func (m *Repository) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	if m.GetPlayerError != nil {
		return nil, m.GetPlayerError
	}
	return m.FullRepository.GetPlayer(ctx, id)
}

func (m *Repository) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	if m.ListPlayersError != nil {
		return nil, m.ListPlayersError
	}
	return m.FullRepository.ListPlayers(ctx, roomID)
}

// ===== Round Methods =====

func (m *Repository) CreateRound(ctx context.Context, roomID, videoRef string) (*models.Round, error) {
	if m.CreateRoundError != nil {
		return nil, m.CreateRoundError
	}
	return m.FullRepository.CreateRound(ctx, roomID, videoRef)
}

func (m *Repository) GetRound(ctx context.Context, id string) (*models.Round, error) {
	if m.GetRoundError != nil {
		return nil, m.GetRoundError
	}
	return m.FullRepository.GetRound(ctx, id)
}

func (m *Repository) UpdateRoundStatus(ctx context.Context, id string, from, to models.RoundStatus) error {
	if m.UpdateRoundStatusError != nil {
		return m.UpdateRoundStatusError
	}
	return m.FullRepository.UpdateRoundStatus(ctx, id, from, to)
}

// ===== Parlay Methods =====

func (m *Repository) UpsertParlay(ctx context.Context, roundID, playerID, text, normalized, punishment string) (*models.Parlay, error) {
	if m.UpsertParlayError != nil {
		return nil, m.UpsertParlayError
	}
	return m.FullRepository.UpsertParlay(ctx, roundID, playerID, text, normalized, punishment)
}

func (m *Repository) GetParlayByPlayer(ctx context.Context, roundID, playerID string) (*models.Parlay, error) {
	if m.GetParlayByPlayerError != nil {
		return nil, m.GetParlayByPlayerError
	}
	return m.FullRepository.GetParlayByPlayer(ctx, roundID, playerID)
}

func (m *Repository) ListParlays(ctx context.Context, roundID string) ([]models.Parlay, error) {
	if m.ListParlaysError != nil {
		return nil, m.ListParlaysError
	}
	return m.FullRepository.ListParlays(ctx, roundID)
}

func (m *Repository) ListParlaysByText(ctx context.Context, roundID, normalized string) ([]models.Parlay, error) {
	if m.ListParlaysByTextError != nil {
		return nil, m.ListParlaysByTextError
	}
	return m.FullRepository.ListParlaysByText(ctx, roundID, normalized)
}

func (m *Repository) SetAccuracy(ctx context.Context, parlayID string, accuracy float64) error {
	if m.SetAccuracyError != nil {
		return m.SetAccuracyError
	}
	return m.FullRepository.SetAccuracy(ctx, parlayID, accuracy)
}

func (m *Repository) ApplyAwards(ctx context.Context, awards []repository.Award) error {
	if m.ApplyAwardsError != nil {
		return m.ApplyAwardsError
	}
	return m.FullRepository.ApplyAwards(ctx, awards)
}

// ===== Call Methods =====

func (m *Repository) CreateCall(ctx context.Context, call *models.Call) error {
	if m.CreateCallError != nil {
		return m.CreateCallError
	}
	return m.FullRepository.CreateCall(ctx, call)
}

func (m *Repository) ListCalls(ctx context.Context, roundID string) ([]models.Call, error) {
	if m.ListCallsError != nil {
		return nil, m.ListCallsError
	}
	return m.FullRepository.ListCalls(ctx, roundID)
}

func (m *Repository) ListCallsInRange(ctx context.Context, roundID, normalized string, from, to float64) ([]models.Call, error) {
	if m.ListCallsInRangeError != nil {
		return nil, m.ListCallsInRangeError
	}
	return m.FullRepository.ListCallsInRange(ctx, roundID, normalized, from, to)
}

func (m *Repository) ListCallsSince(ctx context.Context, roundID string, since time.Time) ([]models.Call, error) {
	if m.ListCallsSinceError != nil {
		return nil, m.ListCallsSinceError
	}
	return m.FullRepository.ListCallsSince(ctx, roundID, since)
}

func (m *Repository) CountCallsByPlayer(ctx context.Context, roundID string) (map[string]int, error) {
	if m.CountCallsByPlayerError != nil {
		return nil, m.CountCallsByPlayerError
	}
	return m.FullRepository.CountCallsByPlayer(ctx, roundID)
}

// ===== Event Methods =====

func (m *Repository) CreateEvent(ctx context.Context, event *models.ConfirmedEvent) error {
	if m.CreateEventError != nil {
		return m.CreateEventError
	}
	return m.FullRepository.CreateEvent(ctx, event)
}

func (m *Repository) ListEvents(ctx context.Context, roundID string) ([]models.ConfirmedEvent, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	return m.FullRepository.ListEvents(ctx, roundID)
}

// ===== Marker Methods =====

func (m *Repository) CreateMarker(ctx context.Context, marker *models.Marker) error {
	if m.CreateMarkerError != nil {
		return m.CreateMarkerError
	}
	return m.FullRepository.CreateMarker(ctx, marker)
}

func (m *Repository) GetMarker(ctx context.Context, id string) (*models.Marker, error) {
	if m.GetMarkerError != nil {
		return nil, m.GetMarkerError
	}
	return m.FullRepository.GetMarker(ctx, id)
}

func (m *Repository) CountMarkers(ctx context.Context, roundID string) (int, error) {
	if m.CountMarkersError != nil {
		return 0, m.CountMarkersError
	}
	return m.FullRepository.CountMarkers(ctx, roundID)
}

func (m *Repository) DeleteMarker(ctx context.Context, id string) error {
	if m.DeleteMarkerError != nil {
		return m.DeleteMarkerError
	}
	return m.FullRepository.DeleteMarker(ctx, id)
}
