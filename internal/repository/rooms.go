package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// ==================== Room Methods ====================

// CreateRoom creates a room together with its host player
func (r *Repository) CreateRoom(ctx context.Context, name, hostName string, settings models.RoomSettings) (*models.Room, *models.Player, error) {
	now := time.Now().UTC()
	room := &models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		Settings:  settings,
		CreatedAt: now,
	}
	host := &models.Player{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		Name:     hostName,
		IsHost:   true,
		JoinedAt: now,
	}
	room.HostID = host.ID

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, nil, err
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (id, name, host_id, settings, created_at) VALUES (?, ?, ?, ?, ?)`,
			room.ID, room.Name, room.HostID, string(settingsJSON), toMillis(now)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO players (id, room_id, name, is_host, score, joined_at) VALUES (?, ?, ?, 1, 0, ?)`,
			host.ID, room.ID, host.Name, toMillis(now))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return room, host, nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	var settingsJSON string
	var createdAt int64

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, host_id, settings, created_at FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &room.HostID, &settingsJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	room.Settings = models.DefaultRoomSettings()
	if err := json.Unmarshal([]byte(settingsJSON), &room.Settings); err != nil {
		return nil, err
	}
	room.CreatedAt = fromMillis(createdAt)
	return &room, nil
}

// UpdateRoomSettings replaces a room's settings
func (r *Repository) UpdateRoomSettings(ctx context.Context, id string, settings models.RoomSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return r.withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `UPDATE rooms SET settings = ? WHERE id = ?`, string(settingsJSON), id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// ==================== Player Methods ====================

// AddPlayer adds a non-host player to a room
func (r *Repository) AddPlayer(ctx context.Context, roomID, name string) (*models.Player, error) {
	p := &models.Player{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Name:     name,
		JoinedAt: time.Now().UTC(),
	}
	err := r.withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO players (id, room_id, name, is_host, score, joined_at) VALUES (?, ?, ?, 0, 0, ?)`,
			p.ID, p.RoomID, p.Name, toMillis(p.JoinedAt))
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, room_id, name, is_host, score, joined_at FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlayers returns every player in a room, host included, in join order
func (r *Repository) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room_id, name, is_host, score, joined_at FROM players WHERE room_id = ? ORDER BY joined_at, id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s scanner) (*models.Player, error) {
	var p models.Player
	var joinedAt int64
	if err := s.Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.Score, &joinedAt); err != nil {
		return nil, err
	}
	p.JoinedAt = fromMillis(joinedAt)
	return &p, nil
}

// requireRow turns a zero-row write into ErrNotFound
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
