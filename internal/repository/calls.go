package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// ==================== Call Methods ====================

const callColumns = `id, round_id, player_id, normalized_text, video_time, created_at`

// CreateCall stores a call, assigning an ID if it has none
func (r *Repository) CreateCall(ctx context.Context, call *models.Call) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	call.CreatedAt = nowOr(call.CreatedAt)
	return r.withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO calls (`+callColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			call.ID, call.RoundID, call.PlayerID, call.NormalizedText, call.VideoTime, toMillis(call.CreatedAt))
		return err
	})
}

// GetCall retrieves a call by ID
func (r *Repository) GetCall(ctx context.Context, id string) (*models.Call, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCalls returns every call in a round ordered by video time
func (r *Repository) ListCalls(ctx context.Context, roundID string) ([]models.Call, error) {
	return r.queryCalls(ctx, `SELECT `+callColumns+` FROM calls WHERE round_id = ? ORDER BY video_time, created_at`, roundID)
}

// ListCallsInRange returns the calls for a text whose video time is within [from, to]
func (r *Repository) ListCallsInRange(ctx context.Context, roundID, normalized string, from, to float64) ([]models.Call, error) {
	return r.queryCalls(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE round_id = ? AND normalized_text = ? AND video_time BETWEEN ? AND ?
		ORDER BY video_time, created_at`,
		roundID, normalized, from, to)
}

// ListCallsSince returns the calls created at or after since
func (r *Repository) ListCallsSince(ctx context.Context, roundID string, since time.Time) ([]models.Call, error) {
	return r.queryCalls(ctx,
		`SELECT `+callColumns+` FROM calls WHERE round_id = ? AND created_at >= ? ORDER BY video_time, created_at`,
		roundID, toMillis(since))
}

// CountCallsByPlayer returns the number of calls each player made in a round
func (r *Repository) CountCallsByPlayer(ctx context.Context, roundID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT player_id, COUNT(*) FROM calls WHERE round_id = ? GROUP BY player_id`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var playerID string
		var n int
		if err := rows.Scan(&playerID, &n); err != nil {
			return nil, err
		}
		counts[playerID] = n
	}
	return counts, rows.Err()
}

func (r *Repository) queryCalls(ctx context.Context, query string, args ...any) ([]models.Call, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []models.Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

func scanCall(s scanner) (*models.Call, error) {
	var c models.Call
	var createdAt int64
	if err := s.Scan(&c.ID, &c.RoundID, &c.PlayerID, &c.NormalizedText, &c.VideoTime, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}

// ==================== Confirmed Event Methods ====================

// CreateEvent stores a confirmed event, assigning an ID if it has none
func (r *Repository) CreateEvent(ctx context.Context, event *models.ConfirmedEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = nowOr(event.CreatedAt)
	if event.AwardedPlayerIDs == nil {
		event.AwardedPlayerIDs = []string{}
	}
	awarded, err := json.Marshal(event.AwardedPlayerIDs)
	if err != nil {
		return err
	}
	return r.withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO confirmed_events (id, round_id, normalized_text, video_time, source, awarded, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.RoundID, event.NormalizedText, event.VideoTime, string(event.Source), string(awarded),
			toMillis(event.CreatedAt))
		return err
	})
}

// ListEvents returns a round's confirmed events in creation order
func (r *Repository) ListEvents(ctx context.Context, roundID string) ([]models.ConfirmedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, round_id, normalized_text, video_time, source, awarded, created_at
		FROM confirmed_events WHERE round_id = ? ORDER BY created_at, id`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ConfirmedEvent
	for rows.Next() {
		var e models.ConfirmedEvent
		var source, awarded string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.RoundID, &e.NormalizedText, &e.VideoTime, &source, &awarded, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(awarded), &e.AwardedPlayerIDs); err != nil {
			return nil, err
		}
		e.Source = models.EventSource(source)
		e.CreatedAt = fromMillis(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ==================== Marker Methods ====================

const markerColumns = `id, round_id, host_id, video_time, note, created_at`

// CreateMarker stores a review marker, assigning an ID if it has none
func (r *Repository) CreateMarker(ctx context.Context, marker *models.Marker) error {
	if marker.ID == "" {
		marker.ID = uuid.NewString()
	}
	marker.CreatedAt = nowOr(marker.CreatedAt)
	return r.withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO markers (`+markerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			marker.ID, marker.RoundID, marker.HostID, marker.VideoTime, marker.Note, toMillis(marker.CreatedAt))
		return err
	})
}

// GetMarker retrieves a marker by ID
func (r *Repository) GetMarker(ctx context.Context, id string) (*models.Marker, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+markerColumns+` FROM markers WHERE id = ?`, id)
	m, err := scanMarker(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMarkers returns a round's markers ordered by video time
func (r *Repository) ListMarkers(ctx context.Context, roundID string) ([]models.Marker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+markerColumns+` FROM markers WHERE round_id = ? ORDER BY video_time, created_at`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []models.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, *m)
	}
	return markers, rows.Err()
}

// CountMarkers returns the number of unreviewed markers in a round
func (r *Repository) CountMarkers(ctx context.Context, roundID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM markers WHERE round_id = ?`, roundID).Scan(&n)
	return n, err
}

// DeleteMarker removes a reviewed marker
func (r *Repository) DeleteMarker(ctx context.Context, id string) error {
	return r.withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM markers WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func scanMarker(s scanner) (*models.Marker, error) {
	var m models.Marker
	var note sql.NullString
	var createdAt int64
	if err := s.Scan(&m.ID, &m.RoundID, &m.HostID, &m.VideoTime, &note, &createdAt); err != nil {
		return nil, err
	}
	m.Note = note.String
	m.CreatedAt = fromMillis(createdAt)
	return &m, nil
}
