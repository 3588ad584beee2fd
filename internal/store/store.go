// Package store caches dataset snapshots so the dashboard and the export
// command can run without hitting the backend on every start.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// ErrNoSnapshot is returned when no unexpired snapshot exists.
var ErrNoSnapshot = eris.New("store: no snapshot available")

// Snapshot is one cached copy of the bulk dataset plus its summary.
type Snapshot struct {
	ID        string              `json:"id"`
	Records   []model.Opportunity `json:"records"`
	Summary   model.Summary       `json:"summary"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Store persists dataset snapshots with a TTL.
type Store interface {
	// SaveSnapshot persists snap, expiring after ttl.
	SaveSnapshot(ctx context.Context, snap Snapshot, ttl time.Duration) error

	// LoadSnapshot returns the newest unexpired snapshot, or ErrNoSnapshot.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// Prune deletes expired snapshots and reports how many were removed.
	Prune(ctx context.Context) (int, error)

	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error

	Close() error
}
