package testutil

import (
	"context"
	"testing"

	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// Room is a seeded room with its host and players
type Room struct {
	Room    *models.Room
	Host    *models.Player
	Players []*models.Player
}

// SeedRoom creates a room with default settings, a host and the named players
func SeedRoom(t *testing.T, repo repository.RoomRepository, players ...string) *Room {
	t.Helper()
	return SeedRoomWithSettings(t, repo, models.DefaultRoomSettings(), players...)
}

// SeedRoomWithSettings is SeedRoom with explicit room settings
func SeedRoomWithSettings(t *testing.T, repo repository.RoomRepository, settings models.RoomSettings, players ...string) *Room {
	t.Helper()
	ctx := context.Background()

	room, host, err := repo.CreateRoom(ctx, "test room", "host", settings)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	seeded := &Room{Room: room, Host: host}
	for _, name := range players {
		p, err := repo.AddPlayer(ctx, room.ID, name)
		if err != nil {
			t.Fatalf("AddPlayer(%s) failed: %v", name, err)
		}
		seeded.Players = append(seeded.Players, p)
	}
	return seeded
}
