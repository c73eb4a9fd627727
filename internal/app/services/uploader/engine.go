// Package uploader implements the durable observation delivery queue:
// ordered at-least-once delivery with exponential backoff, retention
// pruning, and single-flight upload concurrency.
package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dailypulse/relay/internal/app/domain/endpoints"
	"github.com/dailypulse/relay/internal/app/domain/observation"
	"github.com/dailypulse/relay/internal/app/domain/question"
	"github.com/dailypulse/relay/internal/app/metrics"
	"github.com/dailypulse/relay/internal/app/storage"
	"github.com/dailypulse/relay/internal/app/system"
	"github.com/dailypulse/relay/pkg/logger"
)

const (
	defaultBaseBackoff = time.Minute
	defaultMaxBackoff  = 24 * time.Hour
	defaultRetention   = 24 * time.Hour

	rateLimitMessage      = "You are answering too quickly. Please wait before submitting again."
	configIncompleteError = "Upload configuration incomplete."
)

// Config supplies the credential and derived endpoints for outbound
// requests. Both lookups are synchronous and may report absence; the
// engine halts without consuming the head record in that case.
type Config interface {
	Credential() (string, bool)
	Endpoints() (endpoints.Endpoints, bool)
}

// Sink receives immutable status snapshots. Publication is fire-and-forget
// and never read back by the engine.
type Sink interface {
	Publish(observation.Status)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBackoff overrides the retry delay bounds.
func WithBackoff(base, max time.Duration) Option {
	return func(e *Engine) {
		if base > 0 {
			e.baseBackoff = base
		}
		if max > 0 {
			e.maxBackoff = max
		}
	}
}

// WithRetention overrides the record retention window.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retention = d
		}
	}
}

// WithQuestions overrides the canonical question set used by the codec.
func WithQuestions(qs []question.Question) Option {
	return func(e *Engine) {
		if len(qs) > 0 {
			e.questions = qs
		}
	}
}

var _ system.Service = (*Engine)(nil)

// Engine owns the observation queue. All mutation happens under one mutex
// and every mutation is persisted before it becomes externally visible.
// The uploading flag collapses concurrent drain triggers into at most one
// active upload loop.
type Engine struct {
	store     storage.QueueStore
	sender    Sender
	config    Config
	sink      Sink
	log       *logger.Logger
	questions []question.Question

	baseBackoff time.Duration
	maxBackoff  time.Duration
	retention   time.Duration

	now func() time.Time

	saveMu   sync.Mutex
	savedSeq uint64

	mu          sync.Mutex
	queue       []observation.Record
	uploading   bool
	saveSeq     uint64
	backoff     time.Duration
	retryTimer  *time.Timer
	nextRetryAt *time.Time
	lastError   string
	rateLimited bool
	runCtx      context.Context
	cancel      context.CancelFunc
	started     bool
	wg          sync.WaitGroup
}

// New constructs an engine with injected collaborators. Nothing is loaded
// until Start.
func New(store storage.QueueStore, sender Sender, config Config, sink Sink, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewDefault("uploader")
	}
	e := &Engine{
		store:       store,
		sender:      sender,
		config:      config,
		sink:        sink,
		log:         log,
		questions:   question.Bank(),
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		retention:   defaultRetention,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.backoff = e.baseBackoff
	return e
}

func (e *Engine) Name() string { return "uploader" }

// Start loads the persisted queue, publishes the initial status, and
// schedules a drain for any recovered records.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.runCtx = runCtx
	e.cancel = cancel
	e.started = true
	e.mu.Unlock()

	queue, err := e.store.Load(ctx)
	if err != nil {
		// Load contracts treat corruption as data loss, so an error here
		// is unexpected; start empty rather than refuse to run.
		e.log.WithError(err).Warn("loading observation queue failed; starting empty")
		queue = nil
	}

	e.mu.Lock()
	e.queue = queue
	pending := len(queue)
	e.mu.Unlock()

	e.log.Infof("uploader started with %d pending observation(s)", pending)
	e.publishStatus()
	if pending > 0 {
		e.triggerDrain()
	}
	return nil
}

// Stop cancels any scheduled retry and waits for an in-flight drain.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	cancel := e.cancel
	e.cancel = nil
	e.cancelRetryLocked()
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.log.Info("uploader stopped")
	return nil
}

// Enqueue encodes the answer-set and appends a record to the queue. Codec
// failures are logged and swallowed: a malformed local answer-set must
// never stall the caller. The record's external id is assigned here and
// reused across every retry.
func (e *Engine) Enqueue(responses map[int]int) {
	encoded, err := observation.Encode(responses, e.questions)
	if err != nil {
		e.log.WithError(err).Warn("observation skipped: invalid response set")
		return
	}

	rec, err := observation.NewRecord(encoded, e.now())
	if err != nil {
		e.log.WithError(err).Warn("observation skipped: could not create record")
		return
	}

	e.mu.Lock()
	e.queue = append(e.queue, rec)
	e.clearRateLimitLocked()
	queue, seq := e.snapshotQueueLocked()
	e.mu.Unlock()

	e.persist(queue, seq)
	e.publishStatus()
	e.triggerDrain()
}

// RetryNow triggers an immediate drain attempt. Backoff state is kept; it
// only resets when an attempt succeeds or the configuration changes.
func (e *Engine) RetryNow() {
	e.triggerDrain()
}

// ConfigurationDidChange cancels any pending retry, resets backoff to the
// base delay, and drains immediately. The previous delay is meaningless
// once the credential or endpoint has been replaced.
func (e *Engine) ConfigurationDidChange() {
	e.mu.Lock()
	e.cancelRetryLocked()
	e.backoff = e.baseBackoff
	e.mu.Unlock()
	e.triggerDrain()
}

// ClearQueue drops every queued record and resets all retry state. Used by
// the forget-me flow so nothing can be delivered under a deleted account.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	e.queue = nil
	e.cancelRetryLocked()
	e.backoff = e.baseBackoff
	e.lastError = ""
	e.rateLimited = false
	queue, seq := e.snapshotQueueLocked()
	e.mu.Unlock()

	e.persist(queue, seq)
	e.publishStatus()
}

// Status returns the current snapshot.
func (e *Engine) Status() observation.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) triggerDrain() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.drain()
	}()
}

// drain is the single-flight upload loop. Redundant calls while a drain is
// running are no-ops; the running loop re-peeks the head each iteration so
// it naturally picks up records enqueued meanwhile.
func (e *Engine) drain() {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return
	}
	if len(e.queue) == 0 {
		st := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(st)
		return
	}
	e.uploading = true
	e.cancelRetryLocked()
	ctx := e.runCtx
	e.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		e.mu.Lock()
		e.uploading = false
		e.mu.Unlock()
	}()

	e.pruneExpired()
	e.publishStatus()

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			break
		}
		head := e.queue[0]
		e.mu.Unlock()

		// Time can advance past the retention window mid-loop.
		if head.Expired(e.now(), e.retention) {
			e.dropExpiredHead(head.ID)
			continue
		}

		credential, haveCredential := e.config.Credential()
		eps, haveEndpoints := e.config.Endpoints()
		if !haveCredential || !haveEndpoints {
			// Nothing was attempted, so no backoff is scheduled; the
			// record stays queued for the next trigger.
			e.mu.Lock()
			e.lastError = configIncompleteError
			e.mu.Unlock()
			e.publishStatus()
			return
		}

		start := time.Now()
		outcome := e.sender.Send(ctx, eps.Observations, credential, head)
		metrics.RecordDeliveryAttempt(outcome.Class.String(), time.Since(start))

		switch outcome.Class {
		case OutcomeDelivered:
			e.mu.Lock()
			e.removeHeadLocked(head.ID)
			e.lastError = ""
			e.rateLimited = false
			e.backoff = e.baseBackoff
			queue, seq := e.snapshotQueueLocked()
			e.mu.Unlock()
			e.persist(queue, seq)
			e.publishStatus()

		case OutcomeRateLimited:
			// The record is discarded, not retried, and the pass halts so
			// the server gets breathing room. No backoff escalation.
			e.mu.Lock()
			e.removeHeadLocked(head.ID)
			e.lastError = rateLimitMessage
			e.rateLimited = true
			e.backoff = e.baseBackoff
			queue, seq := e.snapshotQueueLocked()
			e.mu.Unlock()
			e.persist(queue, seq)
			e.publishStatus()
			return

		default:
			e.mu.Lock()
			e.lastError = outcome.Detail
			e.mu.Unlock()
			e.scheduleRetry()
			return
		}
	}

	e.mu.Lock()
	e.backoff = e.baseBackoff
	st := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(st)
}

func (e *Engine) pruneExpired() {
	now := e.now()

	e.mu.Lock()
	kept := e.queue[:0:len(e.queue)]
	for _, rec := range e.queue {
		if !rec.Expired(now, e.retention) {
			kept = append(kept, rec)
		}
	}
	dropped := len(e.queue) - len(kept)
	if dropped == 0 {
		e.mu.Unlock()
		return
	}
	e.queue = kept
	e.lastError = expiredMessage(dropped)
	queue, seq := e.snapshotQueueLocked()
	e.mu.Unlock()

	e.log.Warnf("dropped %d expired observation(s)", dropped)
	metrics.RecordExpired(dropped)
	e.persist(queue, seq)
}

func (e *Engine) dropExpiredHead(id string) {
	e.mu.Lock()
	if len(e.queue) == 0 || e.queue[0].ID != id {
		e.mu.Unlock()
		return
	}
	e.queue = e.queue[1:]
	e.lastError = expiredMessage(1)
	queue, seq := e.snapshotQueueLocked()
	e.mu.Unlock()

	metrics.RecordExpired(1)
	e.persist(queue, seq)
	e.publishStatus()
}

// scheduleRetry arms the backoff timer. At most one retry is ever pending;
// arming replaces any previous timer. The delay doubles after each
// schedule, capped at the ceiling.
func (e *Engine) scheduleRetry() {
	e.mu.Lock()
	delay := e.backoff
	next := e.now().Add(delay)
	e.nextRetryAt = &next
	if e.retryTimer != nil {
		e.retryTimer.Stop()
	}
	e.retryTimer = time.AfterFunc(delay, e.retryFired)
	e.backoff = e.backoff * 2
	if e.backoff > e.maxBackoff {
		e.backoff = e.maxBackoff
	}
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Infof("retry scheduled in %s", delay)
	e.publish(st)
}

func (e *Engine) retryFired() {
	e.mu.Lock()
	e.retryTimer = nil
	e.nextRetryAt = nil
	e.mu.Unlock()
	e.drain()
}

// cancelRetryLocked is safe to call when no timer is pending. An already
// in-flight attempt is never interrupted; only the future retry is.
func (e *Engine) cancelRetryLocked() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	e.nextRetryAt = nil
}

func (e *Engine) clearRateLimitLocked() {
	if e.rateLimited && e.lastError == rateLimitMessage {
		e.lastError = ""
	}
	e.rateLimited = false
}

// removeHeadLocked drops the head record only when it is still the record
// that was attempted. ClearQueue may empty or replace the queue while a
// send is in flight; a stale removal must never consume a fresh record.
func (e *Engine) removeHeadLocked(id string) {
	if len(e.queue) > 0 && e.queue[0].ID == id {
		e.queue = e.queue[1:]
	}
}

// snapshotQueueLocked copies the queue and stamps the copy with a mutation
// sequence number so saves can be ordered.
func (e *Engine) snapshotQueueLocked() ([]observation.Record, uint64) {
	e.saveSeq++
	out := make([]observation.Record, len(e.queue))
	copy(out, e.queue)
	return out, e.saveSeq
}

// persist writes the snapshot through to the store. Snapshots carry the
// sequence number taken at mutation time; one that has been superseded by
// an already-saved newer snapshot is skipped, so concurrent callers can
// never roll the document back to an older state. Failures are logged and
// the in-memory queue carries on; the next successful save catches up.
func (e *Engine) persist(queue []observation.Record, seq uint64) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if seq <= e.savedSeq {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.store.Save(ctx, queue); err != nil {
		e.log.WithError(err).Warn("persisting observation queue failed")
		return
	}
	e.savedSeq = seq
}

func (e *Engine) snapshotLocked() observation.Status {
	st := observation.Status{
		Pending:     len(e.queue),
		LastError:   e.lastError,
		RateLimited: e.rateLimited,
	}
	if e.nextRetryAt != nil {
		next := *e.nextRetryAt
		st.NextRetryAt = &next
	}
	return st
}

func (e *Engine) publishStatus() {
	e.mu.Lock()
	st := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(st)
}

func (e *Engine) publish(st observation.Status) {
	metrics.SetQueuePending(st.Pending)
	if e.sink != nil {
		e.sink.Publish(st)
	}
}

func expiredMessage(n int) string {
	if n == 1 {
		return "Dropped an expired upload."
	}
	return fmt.Sprintf("Dropped %d expired uploads.", n)
}
