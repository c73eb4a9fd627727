package maintenance

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingTrigger struct {
	fired atomic.Int64
}

func (c *countingTrigger) RetryNow() { c.fired.Add(1) }

func TestSweeper_FiresOnSchedule(t *testing.T) {
	trigger := &countingTrigger{}
	sweeper := NewSweeper(trigger, "@every 10ms", nil)

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sweeper.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for trigger.fired.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep fired %d times, want at least 2", trigger.fired.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	sweeper := NewSweeper(&countingTrigger{}, "not a schedule", nil)
	if err := sweeper.Start(context.Background()); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestSweeper_StopWaitsForCompletion(t *testing.T) {
	trigger := &countingTrigger{}
	sweeper := NewSweeper(trigger, "@hourly", nil)

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sweeper.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// A second stop is a no-op.
	if err := sweeper.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
