// Package account implements the forget-me flow: remote account deletion
// followed by a local wipe.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dailypulse/relay/internal/app/services/settings"
	"github.com/dailypulse/relay/internal/app/services/uploader"
	"github.com/dailypulse/relay/pkg/logger"
)

// ErrNotConfigured reports a forget-me request without a stored credential
// or endpoint.
var ErrNotConfigured = errors.New("collection service not configured")

// Service deletes the remote account and clears all local delivery state.
type Service struct {
	settings *settings.Settings
	engine   *uploader.Engine
	client   *http.Client
	log      *logger.Logger
}

// NewService wires the forget-me flow.
func NewService(st *settings.Settings, engine *uploader.Engine, client *http.Client, log *logger.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("account")
	}
	return &Service{settings: st, engine: engine, client: client, log: log}
}

// ForgetMe asks the collection service to delete all data held for this
// credential, then deletes the local credential and clears the queue so no
// residual record can be delivered under the now-deleted account.
func (s *Service) ForgetMe(ctx context.Context) error {
	credential, haveCredential := s.settings.Credential()
	eps, haveEndpoints := s.settings.Endpoints()
	if !haveCredential || !haveEndpoints {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eps.ForgetMe, nil)
	if err != nil {
		return fmt.Errorf("build forget-me request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("forget-me request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("forget-me request failed with status %d", resp.StatusCode)
	}

	if err := s.settings.DeleteCredential(); err != nil {
		s.log.WithError(err).Warn("deleting stored credential failed")
	}
	s.engine.ClearQueue()
	s.log.Info("remote account deleted and local state cleared")
	return nil
}
