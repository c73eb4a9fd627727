// Package file implements the durable queue store: a single JSON document
// replaced atomically on every mutation.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dailypulse/relay/internal/app/domain/observation"
	"github.com/dailypulse/relay/pkg/logger"
)

const queueFileName = "observation-queue.json"

// Store persists the queue at a fixed path using write-to-temp-then-rename
// so a crash mid-write never leaves a truncated document behind.
type Store struct {
	path string
	log  *logger.Logger
}

// New returns a store backed by the given file path.
func New(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("queue-store")
	}
	return &Store{path: path, log: log}
}

// NewDefault places the queue document in the per-installation durable
// directory, falling back to the temporary directory only when no durable
// directory is available.
func NewDefault(log *logger.Logger) *Store {
	return NewInDir(DefaultDir(), log)
}

// NewInDir places the queue document inside dir.
func NewInDir(dir string, log *logger.Logger) *Store {
	return New(filepath.Join(dir, queueFileName), log)
}

// DefaultDir resolves the durable per-installation data directory. It is
// deliberately outside any cache location the OS may purge under storage
// pressure.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dailypulse")
	}
	return filepath.Join(os.TempDir(), "dailypulse")
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted queue. A missing or unparsable document yields
// an empty queue: corruption is data loss, never a startup failure.
func (s *Store) Load(ctx context.Context) ([]observation.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.WithError(err).Warn("queue document unreadable; starting empty")
		}
		return []observation.Record{}, nil
	}

	var queue []observation.Record
	if err := json.Unmarshal(data, &queue); err != nil {
		s.log.WithError(err).Warn("queue document corrupt; starting empty")
		return []observation.Record{}, nil
	}
	return queue, nil
}

// Save serializes the full queue and atomically replaces the backing file.
func (s *Store) Save(ctx context.Context, queue []observation.Record) error {
	if queue == nil {
		queue = []observation.Record{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, queueFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp queue document: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write queue document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync queue document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close queue document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace queue document: %w", err)
	}
	return nil
}
