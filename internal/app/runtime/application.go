// Package runtime wires the relay's components and manages their
// lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dailypulse/relay/internal/app/httpapi"
	"github.com/dailypulse/relay/internal/app/services/account"
	"github.com/dailypulse/relay/internal/app/services/credentials"
	"github.com/dailypulse/relay/internal/app/services/maintenance"
	"github.com/dailypulse/relay/internal/app/services/settings"
	"github.com/dailypulse/relay/internal/app/services/status"
	"github.com/dailypulse/relay/internal/app/services/uploader"
	"github.com/dailypulse/relay/internal/app/storage/file"
	"github.com/dailypulse/relay/internal/app/system"
	"github.com/dailypulse/relay/internal/config"
	"github.com/dailypulse/relay/pkg/logger"
)

// Application wires core dependencies and manages the control API server
// and background service lifecycles.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	services   []system.Service

	Engine   *uploader.Engine
	Hub      *status.Hub
	Settings *settings.Settings
}

// NewApplication constructs the application with default wiring.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := logger.New(cfg.Logging)

	dataDir := cfg.Queue.DataDir
	if dataDir == "" {
		dataDir = file.DefaultDir()
	}

	queueStore := file.NewInDir(dataDir, log.WithComponent("queue-store"))
	creds := credentials.NewDefaultFileStore(dataDir)
	st := settings.New(creds, cfg.API.BaseURL)
	hub := status.NewHub()
	sender := uploader.NewHTTPSender(nil, log.WithComponent("observation-sender"))

	engine := uploader.New(
		queueStore,
		sender,
		st,
		hub,
		log.WithComponent("uploader"),
		uploader.WithBackoff(
			time.Duration(cfg.Queue.BackoffBaseSeconds)*time.Second,
			time.Duration(cfg.Queue.BackoffMaxSeconds)*time.Second,
		),
		uploader.WithRetention(time.Duration(cfg.Queue.RetentionHours)*time.Hour),
	)

	acct := account.NewService(st, engine, nil, log.WithComponent("account"))
	sweeper := maintenance.NewSweeper(engine, cfg.Queue.SweepSchedule, log.WithComponent("maintenance"))

	limiter := httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	handler := httpapi.NewHandler(engine, hub, st, acct, limiter, log.WithComponent("httpapi"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		services:   []system.Service{engine, sweeper},
		Engine:     engine,
		Hub:        hub,
		Settings:   st,
	}, nil
}

// Run starts the background services and the control API server, blocking
// until the context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	for _, svc := range a.services {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("control API listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the control API server and the services in reverse start
// order.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("control API shutdown failed")
	}

	for i := len(a.services) - 1; i >= 0; i-- {
		svc := a.services[i]
		if err := svc.Stop(shutdownCtx); err != nil {
			a.log.WithError(err).Warnf("stopping %s failed", svc.Name())
		}
	}
	return nil
}
