// Package memory provides an in-memory queue store used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/dailypulse/relay/internal/app/domain/observation"
)

// Store keeps the queue in memory. Failures can be injected to exercise
// the uploader's best-effort persistence path.
type Store struct {
	mu      sync.Mutex
	queue   []observation.Record
	saves   int
	saveErr error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{}
}

// FailSavesWith makes every subsequent Save return err (nil restores
// normal behavior).
func (s *Store) FailSavesWith(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *Store) Load(ctx context.Context) ([]observation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]observation.Record, len(s.queue))
	copy(out, s.queue)
	return out, nil
}

func (s *Store) Save(ctx context.Context, queue []observation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.queue = make([]observation.Record, len(queue))
	copy(s.queue, queue)
	s.saves++
	return nil
}

// Saves reports how many successful Save calls have happened.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Snapshot returns the currently persisted queue.
func (s *Store) Snapshot() []observation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]observation.Record, len(s.queue))
	copy(out, s.queue)
	return out
}
