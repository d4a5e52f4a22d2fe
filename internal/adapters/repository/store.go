// Package repository defines the leaderboard store interface, its backends and errors.
package repository

import (
	"context"

	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
)

// Backend names reported by Store.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Stats is a point-in-time count of what a store holds.
type Stats struct {
	Entries  int `json:"entries"`
	GameKeys int `json:"gameKeys"`
}

// Store persists leaderboard entries partitioned by game key.
type Store interface {
	// Append stores e, assigning ID and CreatedAt, and returns the stored entry.
	Append(ctx context.Context, e types.Entry) (types.Entry, error)

	// Query returns entries for gameKey in leaderboard order, best first.
	// limit <= 0 returns the whole partition. Unknown keys yield an empty slice.
	Query(ctx context.Context, gameKey string, limit int) ([]types.Entry, error)

	// Stats counts stored entries and distinct game keys.
	Stats(ctx context.Context) (Stats, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases background workers and connections.
	Close() error

	// Backend names the storage strategy.
	Backend() string
}
