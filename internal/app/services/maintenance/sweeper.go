// Package maintenance re-triggers the uploader on a schedule so a queue
// sitting in a long backoff is re-attempted and expired records are pruned
// even when nothing else wakes the engine.
package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/dailypulse/relay/internal/app/system"
	"github.com/dailypulse/relay/pkg/logger"
)

// Trigger is the subset of the uploader the sweeper drives.
type Trigger interface {
	RetryNow()
}

var _ system.Service = (*Sweeper)(nil)

// Sweeper fires a drain trigger on a cron schedule.
type Sweeper struct {
	trigger  Trigger
	schedule string
	log      *logger.Logger
	cron     *cron.Cron
}

// NewSweeper builds a sweeper. An empty schedule defaults to hourly.
func NewSweeper(trigger Trigger, schedule string, log *logger.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	if log == nil {
		log = logger.NewDefault("maintenance")
	}
	return &Sweeper{trigger: trigger, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "maintenance" }

func (s *Sweeper) Start(ctx context.Context) error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		s.log.Debug("maintenance sweep: triggering drain")
		s.trigger.RetryNow()
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Infof("maintenance sweep scheduled (%s)", s.schedule)
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopCtx := s.cron.Stop()
	s.cron = nil
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
