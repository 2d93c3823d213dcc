package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// Award is a score change for one player and, optionally, their parlay.
// Legs greater than zero counts as a hit and stamps the parlay's completion
// time the first time it happens.
type Award struct {
	PlayerID string
	ParlayID string
	Score    float64
	Legs     int
	At       time.Time
}

// ==================== Round Methods ====================

// CreateRound creates the next round for a room in the parlay phase
func (r *Repository) CreateRound(ctx context.Context, roomID, videoRef string) (*models.Round, error) {
	now := time.Now().UTC()
	round := &models.Round{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		VideoRef:  videoRef,
		Status:    models.RoundParlay,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var last int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(idx), 0) FROM rounds WHERE room_id = ?`, roomID).Scan(&last); err != nil {
			return err
		}
		round.Index = last + 1
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rounds (id, room_id, idx, video_ref, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			round.ID, round.RoomID, round.Index, round.VideoRef, string(round.Status), toMillis(now), toMillis(now))
		return err
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

const roundColumns = `id, room_id, idx, video_ref, status, created_at, updated_at`

// GetRound retrieves a round by ID
func (r *Repository) GetRound(ctx context.Context, id string) (*models.Round, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id)
	round, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return round, nil
}

// ListRounds returns a room's rounds in play order
func (r *Repository) ListRounds(ctx context.Context, roomID string) ([]models.Round, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE room_id = ? ORDER BY idx`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *round)
	}
	return rounds, rows.Err()
}

// UpdateRoundStatus moves a round from one status to another. It fails with
// ErrStaleStatus if the round is no longer in from.
func (r *Repository) UpdateRoundStatus(ctx context.Context, id string, from, to models.RoundStatus) error {
	return r.withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE rounds SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), toMillis(time.Now()), id, string(from))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		var exists int
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrStaleStatus
	})
}

func scanRound(s scanner) (*models.Round, error) {
	var round models.Round
	var videoRef sql.NullString
	var status string
	var createdAt, updatedAt int64
	if err := s.Scan(&round.ID, &round.RoomID, &round.Index, &videoRef, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	round.VideoRef = videoRef.String
	round.Status = models.RoundStatus(status)
	round.CreatedAt = fromMillis(createdAt)
	round.UpdatedAt = fromMillis(updatedAt)
	return &round, nil
}

// ==================== Parlay Methods ====================

const parlayColumns = `id, round_id, player_id, text, normalized_text, punishment, score_final, legs_hit, accuracy, completed_at, created_at, updated_at`

// UpsertParlay creates or replaces a player's parlay for a round. Resubmission
// keeps the parlay's id and score.
func (r *Repository) UpsertParlay(ctx context.Context, roundID, playerID, text, normalized, punishment string) (*models.Parlay, error) {
	now := toMillis(time.Now())
	err := r.withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO parlays (id, round_id, player_id, text, normalized_text, punishment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(round_id, player_id) DO UPDATE SET
				text = excluded.text,
				normalized_text = excluded.normalized_text,
				punishment = excluded.punishment,
				updated_at = excluded.updated_at`,
			uuid.NewString(), roundID, playerID, text, normalized, punishment, now, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetParlayByPlayer(ctx, roundID, playerID)
}

// GetParlayByPlayer retrieves a player's parlay for a round
func (r *Repository) GetParlayByPlayer(ctx context.Context, roundID, playerID string) (*models.Parlay, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+parlayColumns+` FROM parlays WHERE round_id = ? AND player_id = ?`, roundID, playerID)
	p, err := scanParlay(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListParlays returns every parlay in a round
func (r *Repository) ListParlays(ctx context.Context, roundID string) ([]models.Parlay, error) {
	return r.queryParlays(ctx, `SELECT `+parlayColumns+` FROM parlays WHERE round_id = ? ORDER BY created_at, id`, roundID)
}

// ListParlaysByText returns the parlays in a round predicting normalized
func (r *Repository) ListParlaysByText(ctx context.Context, roundID, normalized string) ([]models.Parlay, error) {
	return r.queryParlays(ctx,
		`SELECT `+parlayColumns+` FROM parlays WHERE round_id = ? AND normalized_text = ? ORDER BY created_at, id`,
		roundID, normalized)
}

func (r *Repository) queryParlays(ctx context.Context, query string, args ...any) ([]models.Parlay, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parlays []models.Parlay
	for rows.Next() {
		p, err := scanParlay(rows)
		if err != nil {
			return nil, err
		}
		parlays = append(parlays, *p)
	}
	return parlays, rows.Err()
}

// SetAccuracy stores a parlay's end-of-round accuracy
func (r *Repository) SetAccuracy(ctx context.Context, parlayID string, accuracy float64) error {
	return r.withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE parlays SET accuracy = ?, updated_at = ? WHERE id = ?`, accuracy, toMillis(time.Now()), parlayID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// ApplyAwards applies score changes to parlays and their players in a single
// transaction using in-place increments
func (r *Repository) ApplyAwards(ctx context.Context, awards []Award) error {
	if len(awards) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range awards {
			at := toMillis(nowOr(a.At))
			if a.ParlayID != "" {
				res, err := tx.ExecContext(ctx, `
					UPDATE parlays SET
						score_final = score_final + ?,
						legs_hit = legs_hit + ?,
						completed_at = CASE WHEN ? > 0 AND completed_at IS NULL THEN ? ELSE completed_at END,
						updated_at = ?
					WHERE id = ?`,
					a.Score, a.Legs, a.Legs, at, at, a.ParlayID)
				if err != nil {
					return err
				}
				if err := requireRow(res); err != nil {
					return err
				}
			}
			res, err := tx.ExecContext(ctx, `UPDATE players SET score = score + ? WHERE id = ?`, a.Score, a.PlayerID)
			if err != nil {
				return err
			}
			if err := requireRow(res); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanParlay(s scanner) (*models.Parlay, error) {
	var p models.Parlay
	var punishment sql.NullString
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := s.Scan(&p.ID, &p.RoundID, &p.PlayerID, &p.Text, &p.NormalizedText, &punishment,
		&p.ScoreFinal, &p.LegsHit, &p.Accuracy, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Punishment = punishment.String
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		p.CompletedAt = &t
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
