package sqlite

import "github.com/fwojciec/wikifuse"

// Compile-time interface verification.
var _ wikifuse.Store = (*Store)(nil)

// Store implements wikifuse.Store using SQLite.
type Store struct {
	db *DB
}

// NewStore creates a new Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}
