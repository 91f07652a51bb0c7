package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/arbor/internal/starred"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS stars (
		seq        INTEGER PRIMARY KEY,
		taxon_id   TEXT NOT NULL UNIQUE,
		starred_at INTEGER NOT NULL
	);
`

// Store implements starred.Store on a single SQLite table. Each star gets a
// fresh seq, so listing by seq gives the order stars were added.
type Store struct {
	mu sync.Mutex
	db *sql.DB // nil once closed
}

var _ starred.Store = (*Store)(nil)

// New opens or creates the starred database at dbPath.
func New(dbPath string) (*Store, error) {
	return open(dbPath+"?_journal_mode=WAL&_busy_timeout=5000", 0)
}

// NewInMemory creates an in-memory store for tests.
func NewInMemory() (*Store, error) {
	// Every pooled connection would get its own empty database.
	return open(":memory:", 1)
}

func open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open starred database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize starred database: %w", err)
	}
	return &Store{db: db}, nil
}

// with runs fn on the open database under the store lock.
func (s *Store) with(fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return starred.ErrStoreClosed
	}
	return fn(s.db)
}

// Toggle removes the star if present and adds it otherwise, in one
// transaction.
func (s *Store) Toggle(ctx context.Context, taxonID string) (bool, error) {
	var on bool
	err := s.with(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin toggle: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, "DELETE FROM stars WHERE taxon_id = ?", taxonID)
		if err != nil {
			return fmt.Errorf("failed to unstar %s: %w", taxonID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stars (taxon_id, starred_at) VALUES (?, ?)",
				taxonID, time.Now().Unix(),
			); err != nil {
				return fmt.Errorf("failed to star %s: %w", taxonID, err)
			}
			on = true
		}
		return tx.Commit()
	})
	return on, err
}

// List returns starred ids, most recently starred first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.with(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT taxon_id FROM stars ORDER BY seq DESC")
		if err != nil {
			return fmt.Errorf("failed to list stars: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan star: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// Clear removes every star.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := s.with(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM stars")
		if err != nil {
			return fmt.Errorf("failed to clear stars: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
