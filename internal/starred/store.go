package starred

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("starred store is closed")

// Store persists which taxa the user has starred. Stars are keyed by taxon
// id and live apart from the dataset, so reloading or re-importing the
// taxonomy keeps them.
type Store interface {
	// Toggle flips the star on a taxon and reports whether it is now on.
	Toggle(ctx context.Context, taxonID string) (bool, error)

	// List returns starred ids, most recently starred first.
	List(ctx context.Context) ([]string, error)

	// Clear unstars everything and returns how many stars were removed.
	Clear(ctx context.Context) (int64, error)

	Close() error
}

// Set loads every starred id into a lookup set.
func Set(ctx context.Context, store Store) (map[string]bool, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
