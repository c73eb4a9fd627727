package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dailypulse/relay/internal/app/services/credentials"
	"github.com/dailypulse/relay/internal/app/services/settings"
	"github.com/dailypulse/relay/internal/app/services/status"
	"github.com/dailypulse/relay/internal/app/services/uploader"
	"github.com/dailypulse/relay/internal/app/storage/memory"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func fullResponses() map[int]int {
	return map[int]int{1: 1, 2: 2, 3: 3, 4: 4, 5: 1, 6: 2, 7: 3, 8: 4, 9: 1, 10: 2}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestService_ForgetMe(t *testing.T) {
	var forgetAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/forget-me-now"):
			forgetAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		default:
			// Keep queued observations queued during the test.
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	st := settings.New(credentials.NewDefaultFileStore(t.TempDir()), server.URL+"/api/v1/")
	if err := st.SetCredential(testKey); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	store := memory.New()
	hub := status.NewHub()
	engine := uploader.New(store, uploader.NewHTTPSender(server.Client(), nil), st, hub, nil,
		uploader.WithBackoff(time.Hour, 24*time.Hour))
	engine.Enqueue(fullResponses())
	waitFor(t, "record queued", func() bool { return len(store.Snapshot()) == 1 })
	waitFor(t, "initial drain settled", func() bool { return hub.Latest().LastError != "" })

	svc := NewService(st, engine, server.Client(), nil)
	if err := svc.ForgetMe(context.Background()); err != nil {
		t.Fatalf("forget me: %v", err)
	}

	if forgetAuth != "Bearer "+testKey {
		t.Fatalf("forget-me auth header = %q", forgetAuth)
	}
	if _, ok := st.Credential(); ok {
		t.Fatalf("credential must be deleted after forget-me")
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("queue must be cleared after forget-me")
	}
	if s := hub.Latest(); s.Pending != 0 || s.LastError != "" {
		t.Fatalf("expected idle status after wipe, got %#v", s)
	}
}

func TestService_ForgetMe_ServerErrorKeepsLocalState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	st := settings.New(credentials.NewDefaultFileStore(t.TempDir()), server.URL+"/api/v1/")
	if err := st.SetCredential(testKey); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	store := memory.New()
	engine := uploader.New(store, uploader.NewHTTPSender(server.Client(), nil), st, status.NewHub(), nil)

	svc := NewService(st, engine, server.Client(), nil)
	if err := svc.ForgetMe(context.Background()); err == nil {
		t.Fatalf("expected error on server rejection")
	}
	if _, ok := st.Credential(); !ok {
		t.Fatalf("credential must survive a failed forget-me")
	}
}

func TestService_ForgetMe_NotConfigured(t *testing.T) {
	st := settings.New(credentials.NewDefaultFileStore(t.TempDir()), "")
	engine := uploader.New(memory.New(), uploader.NewHTTPSender(nil, nil), st, status.NewHub(), nil)

	svc := NewService(st, engine, nil, nil)
	if err := svc.ForgetMe(context.Background()); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
