package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dailypulse/relay/internal/app/domain/observation"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "observation-queue.json"), nil)
}

func sampleQueue(t *testing.T, n int) []observation.Record {
	t.Helper()
	queue := make([]observation.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := observation.NewRecord("1234123412", time.Now().Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("new record: %v", err)
		}
		queue = append(queue, rec)
	}
	return queue
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	queue := sampleQueue(t, 3)

	if err := store.Save(context.Background(), queue); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(queue) {
		t.Fatalf("loaded %d records, want %d", len(loaded), len(queue))
	}
	for i := range queue {
		if loaded[i].ExternalID != queue[i].ExternalID {
			t.Fatalf("record %d: external id %q, want %q", i, loaded[i].ExternalID, queue[i].ExternalID)
		}
		if loaded[i].Observation != queue[i].Observation {
			t.Fatalf("record %d: observation mismatch", i)
		}
		if !loaded[i].CreatedAt.Equal(queue[i].CreatedAt) {
			t.Fatalf("record %d: createdAt mismatch", i)
		}
	}
}

func TestStore_MissingFileIsEmptyQueue(t *testing.T) {
	store := testStore(t)
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty queue, got %d records", len(loaded))
	}
}

func TestStore_CorruptFileIsEmptyQueue(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path(), []byte(`{"not": "an array"`), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load must not fail on corruption: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty queue, got %d records", len(loaded))
	}
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	store := testStore(t)
	if err := store.Save(context.Background(), sampleQueue(t, 5)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(context.Background(), nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", data)
	}

	// No temp files may survive a completed save.
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", entry.Name())
		}
	}
}

func TestStore_PersistedFormat(t *testing.T) {
	store := testStore(t)
	queue := sampleQueue(t, 1)
	if err := store.Save(context.Background(), queue); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, field := range []string{`"id"`, `"externalId"`, `"observation"`, `"createdAt"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("persisted document missing %s: %s", field, data)
		}
	}
}
