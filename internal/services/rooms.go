package services

import (
	"context"
	"strings"

	"github.com/parlaywatch/parlaywatch/internal/errors"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/repository"
)

// RoomService handles rooms and their rosters
type RoomService struct {
	log      logger.Logger
	repo     repository.RoomRepository
	defaults models.RoomSettings
}

// NewRoomService creates a new RoomService. New rooms start with defaults.
func NewRoomService(log logger.Logger, repo repository.RoomRepository, defaults models.RoomSettings) *RoomService {
	return &RoomService{log: log, repo: repo, defaults: defaults}
}

// CreateRoom creates a room with its host
func (s *RoomService) CreateRoom(ctx context.Context, name, hostName string) (*models.Room, *models.Player, error) {
	name = strings.TrimSpace(name)
	hostName = strings.TrimSpace(hostName)
	if name == "" {
		return nil, nil, ErrRoomNameRequired
	}
	if hostName == "" {
		return nil, nil, ErrPlayerNameRequired
	}

	room, host, err := s.repo.CreateRoom(ctx, name, hostName, s.defaults)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("Room created", "room_id", room.ID, "host_id", host.ID)
	return room, host, nil
}

// JoinRoom adds a player to a room
func (s *RoomService) JoinRoom(ctx context.Context, roomID, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	player, err := s.repo.AddPlayer(ctx, roomID, name)
	if err != nil {
		return nil, err
	}
	s.log.Info("Player joined", "room_id", roomID, "player_id", player.ID)
	return player, nil
}

// GetRoom retrieves a room
func (s *RoomService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err == repository.ErrNotFound {
		return nil, errors.NotFound("room not found")
	}
	return room, err
}

// GetPlayer retrieves a player of a room
func (s *RoomService) GetPlayer(ctx context.Context, roomID, playerID string) (*models.Player, error) {
	p, err := s.repo.GetPlayer(ctx, playerID)
	if err == repository.ErrNotFound || (err == nil && p.RoomID != roomID) {
		return nil, errors.NotFound("player not found")
	}
	return p, err
}

// UpdateSettings replaces a room's settings. Only the host may do this.
func (s *RoomService) UpdateSettings(ctx context.Context, roomID, hostID string, settings models.RoomSettings) (*models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != hostID {
		return nil, ErrNotHost
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRoomSettings(ctx, roomID, settings); err != nil {
		return nil, err
	}
	room.Settings = settings
	s.log.Info("Room settings updated", "room_id", roomID, "two_player_mode", settings.TwoPlayerMode)
	return room, nil
}

// Scoreboard lists the room's players, host excluded, with their scores
func (s *RoomService) Scoreboard(ctx context.Context, roomID string) ([]models.ScoreboardEntry, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	players, err := s.repo.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	board := make([]models.ScoreboardEntry, 0, len(players))
	for _, p := range players {
		if !p.IsHost {
			board = append(board, models.ScoreboardEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
		}
	}
	return board, nil
}
