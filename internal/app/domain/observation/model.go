// Package observation defines the queued observation record, the answer-set
// codec, and the status snapshot published by the uploader.
package observation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dailypulse/relay/internal/app/domain/question"
)

// ErrIncompleteResponses reports an answer-set that is missing a question
// or carries an out-of-scale value. Nothing is enqueued in that case.
var ErrIncompleteResponses = errors.New("incomplete or invalid responses")

// Record is one queued observation awaiting delivery. Records are immutable
// after creation; the queue only ever appends and removes them.
type Record struct {
	// ID identifies the record within this process only.
	ID string `json:"id"`
	// ExternalID is the time-ordered idempotency key the collection
	// service deduplicates on. Assigned once at enqueue time; retries
	// always reuse it.
	ExternalID string `json:"externalId"`
	// Observation is the fixed-width encoded answer string.
	Observation string    `json:"observation"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewRecord builds a record for an encoded observation stamped at now.
// The external id is a UUIDv7 so its high bits order by creation time.
func NewRecord(encoded string, now time.Time) (Record, error) {
	external, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("generate external id: %w", err)
	}
	return Record{
		ID:          uuid.NewString(),
		ExternalID:  external.String(),
		Observation: encoded,
		CreatedAt:   now,
	}, nil
}

// Expired reports whether the record has aged past the retention window.
func (r Record) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(r.CreatedAt) > retention
}

// Encode converts an answer-set into the compact wire form: one ASCII digit
// per question, in canonical question order. Every question must be
// answered with a value inside the scale; otherwise ErrIncompleteResponses
// and no partial output.
func Encode(responses map[int]int, questions []question.Question) (string, error) {
	buf := make([]byte, len(questions))
	for i, q := range questions {
		answer, ok := responses[q.ID]
		if !ok || answer < question.MinAnswer || answer > question.MaxAnswer {
			return "", ErrIncompleteResponses
		}
		buf[i] = byte('0' + answer)
	}
	return string(buf), nil
}

// Status is an immutable snapshot of the delivery queue, published to
// observers on every externally visible transition.
type Status struct {
	Pending     int        `json:"pending"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	// RateLimited marks the distinguished server-signaled throttle
	// message so the UI can render it apart from transport errors.
	RateLimited bool `json:"rateLimited,omitempty"`
}
