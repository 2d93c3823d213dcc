package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

// Repository provides data access methods
type Repository struct {
	db         *sql.DB
	maxRetries uint64
}

// DefaultMaxRetries bounds how often a busy write is retried
const DefaultMaxRetries = 5

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, maxRetries: DefaultMaxRetries}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an existing connection without running migrations
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db, maxRetries: DefaultMaxRetries}
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			host_id TEXT NOT NULL,
			settings TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			name TEXT NOT NULL,
			is_host BOOLEAN NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0,
			joined_at INTEGER NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			video_ref TEXT,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			UNIQUE(room_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS parlays (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			text TEXT NOT NULL,
			normalized_text TEXT NOT NULL,
			punishment TEXT,
			score_final REAL NOT NULL DEFAULT 0,
			legs_hit INTEGER NOT NULL DEFAULT 0,
			accuracy REAL NOT NULL DEFAULT 0,
			completed_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE,
			FOREIGN KEY (player_id) REFERENCES players(id) ON DELETE CASCADE,
			UNIQUE(round_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS calls (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			normalized_text TEXT NOT NULL,
			video_time REAL NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE,
			FOREIGN KEY (player_id) REFERENCES players(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS confirmed_events (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			normalized_text TEXT NOT NULL,
			video_time REAL NOT NULL,
			source TEXT NOT NULL,
			awarded TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS markers (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			host_id TEXT NOT NULL,
			video_time REAL NOT NULL,
			note TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_room ON players(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_room ON rounds(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parlays_round_text ON parlays(round_id, normalized_text)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_round_text_time ON calls(round_id, normalized_text, video_time)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_round_created ON calls(round_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_round ON confirmed_events(round_id)`,
		`CREATE INDEX IF NOT EXISTS idx_markers_round ON markers(round_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// isBusy reports whether err is a transient SQLite lock error
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs op, retrying with exponential backoff while SQLite reports
// the database as busy. Any other error is returned immediately.
func (r *Repository) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// inTx runs fn in a transaction, retrying the whole transaction when busy
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
