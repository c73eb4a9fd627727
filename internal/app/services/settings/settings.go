// Package settings holds the mutable collection-service configuration: the
// stored bearer credential plus the derived endpoint set.
package settings

import (
	"sync"

	"github.com/dailypulse/relay/internal/app/domain/endpoints"
	"github.com/dailypulse/relay/internal/app/services/credentials"
)

// Settings is the uploader's configuration source. The endpoint set may be
// replaced at runtime through the control API; the credential is read
// through the file store on every lookup so external edits are picked up
// without a restart.
type Settings struct {
	creds *credentials.FileStore

	mu   sync.RWMutex
	eps  endpoints.Endpoints
	have bool
}

// New derives the endpoint set from rawBase. An empty or invalid base
// leaves the settings in the unconfigured state; the uploader halts with a
// configuration-incomplete status until a valid base arrives.
func New(creds *credentials.FileStore, rawBase string) *Settings {
	s := &Settings{creds: creds}
	if rawBase != "" {
		if eps, err := endpoints.Derive(rawBase); err == nil {
			s.eps = eps
			s.have = true
		}
	}
	return s
}

// Credential returns the stored bearer credential, if any.
func (s *Settings) Credential() (string, bool) {
	return s.creds.Credential()
}

// Endpoints returns the derived endpoint set, if configured.
func (s *Settings) Endpoints() (endpoints.Endpoints, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eps, s.have
}

// SetBaseURL derives and installs a new endpoint set.
func (s *Settings) SetBaseURL(raw string) (endpoints.Endpoints, error) {
	eps, err := endpoints.Derive(raw)
	if err != nil {
		return endpoints.Endpoints{}, err
	}
	s.mu.Lock()
	s.eps = eps
	s.have = true
	s.mu.Unlock()
	return eps, nil
}

// SetCredential validates and stores a replacement credential.
func (s *Settings) SetCredential(key string) error {
	return s.creds.Store(key)
}

// DeleteCredential removes the stored credential.
func (s *Settings) DeleteCredential() error {
	return s.creds.Delete()
}
