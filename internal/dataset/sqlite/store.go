package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/arbor/internal/core"
	_ "modernc.org/sqlite"
)

// Common errors.
var (
	ErrStoreClosed = errors.New("taxonomy store is closed")
)

// Store persists a taxonomy forest in SQLite, one row per taxon.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New opens or creates the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize taxonomy database: %w", err)
	}

	return store, nil
}

// NewInMemory creates an in-memory store.
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Each pooled connection would get its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS taxa (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			position INTEGER NOT NULL,
			taxon TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			common_name TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_taxa_parent ON taxa(parent_id, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Import replaces the stored forest with roots. Missing ids are assigned
// first.
func (s *Store) Import(ctx context.Context, roots []*core.Taxon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	core.AssignIDs(roots)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM taxa"); err != nil {
		return fmt.Errorf("failed to clear taxa: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO taxa (id, parent_id, position, taxon, name, common_name) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var insert func(nodes []*core.Taxon, parent sql.NullString) error
	insert = func(nodes []*core.Taxon, parent sql.NullString) error {
		for i, t := range nodes {
			if _, err := stmt.ExecContext(ctx, t.ID, parent, i, t.Taxon, t.Name, t.CommonName); err != nil {
				return fmt.Errorf("failed to insert taxon %s: %w", t.ID, err)
			}
			if err := insert(t.Children, sql.NullString{String: t.ID, Valid: true}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(roots, sql.NullString{}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// Load rebuilds the forest. Rows whose parent is missing become roots.
func (s *Store) Load(ctx context.Context) ([]*core.Taxon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, parent_id, taxon, name, common_name FROM taxa ORDER BY position, rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxa: %w", err)
	}
	defer rows.Close()

	type entry struct {
		taxon  *core.Taxon
		parent sql.NullString
	}
	var entries []entry
	byID := make(map[string]*core.Taxon)
	for rows.Next() {
		var e entry
		t := &core.Taxon{}
		if err := rows.Scan(&t.ID, &e.parent, &t.Taxon, &t.Name, &t.CommonName); err != nil {
			return nil, fmt.Errorf("failed to scan taxon: %w", err)
		}
		e.taxon = t
		entries = append(entries, e)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read taxa: %w", err)
	}

	roots := []*core.Taxon{}
	for _, e := range entries {
		parent, ok := byID[e.parent.String]
		if !e.parent.Valid || !ok {
			roots = append(roots, e.taxon)
			continue
		}
		parent.Children = append(parent.Children, e.taxon)
	}
	return roots, nil
}

// Count returns the number of stored taxa.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM taxa").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count taxa: %w", err)
	}
	return count, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
