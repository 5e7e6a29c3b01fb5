package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tazhate/sallebot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps the history of directory syncs. Room data itself is never
// stored: every start begins with a fresh fetch of the feed.
type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			trigger_source TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			rooms INTEGER DEFAULT 0,
			bookings INTEGER DEFAULT 0,
			error TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at)`,
		// Skipped events counter
		`ALTER TABLE sync_runs ADD COLUMN skipped INTEGER DEFAULT 0`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Sync runs ===

// CreateSyncRun records one attempt to refresh the room directory
func (s *Storage) CreateSyncRun(r *domain.SyncRun) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_runs (id, trigger_source, started_at, finished_at, rooms, bookings, skipped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Rooms, r.Bookings, r.Skipped, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the most recent sync runs, newest first
func (s *Storage) ListSyncRuns(limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, trigger_source, started_at, finished_at, rooms, bookings, skipped, error
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		r, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetLastSuccessfulSync returns the newest run without error, or nil
func (s *Storage) GetLastSuccessfulSync() (*domain.SyncRun, error) {
	row := s.db.QueryRow(
		`SELECT id, trigger_source, started_at, finished_at, rooms, bookings, skipped, error
		 FROM sync_runs WHERE error = '' ORDER BY started_at DESC LIMIT 1`,
	)
	r, err := scanSyncRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// PruneSyncRuns deletes all but the newest keep runs
func (s *Storage) PruneSyncRuns(keep int) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM sync_runs WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row scanner) (*domain.SyncRun, error) {
	r := &domain.SyncRun{}
	var trigger string
	err := row.Scan(&r.ID, &trigger, &r.StartedAt, &r.FinishedAt, &r.Rooms, &r.Bookings, &r.Skipped, &r.Error)
	if err != nil {
		return nil, err
	}
	r.Trigger = domain.SyncTrigger(trigger)
	return r, nil
}
