// Package storage defines the persistence contracts for the relay.
package storage

import (
	"context"

	"github.com/dailypulse/relay/internal/app/domain/observation"
)

// QueueStore persists the ordered observation queue as a single document.
// Save replaces the whole queue; partial updates do not exist, which keeps
// the on-disk document and the in-memory queue trivially consistent.
type QueueStore interface {
	Load(ctx context.Context) ([]observation.Record, error)
	Save(ctx context.Context, queue []observation.Record) error
}
