package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dailypulse/relay/internal/app/domain/observation"
	"github.com/dailypulse/relay/pkg/logger"
)

// OutcomeClass classifies the result of one delivery attempt.
type OutcomeClass int

const (
	// OutcomeDelivered: the server accepted the observation (2xx).
	OutcomeDelivered OutcomeClass = iota
	// OutcomeRateLimited: the server rejected with 429; the record is
	// discarded rather than retried.
	OutcomeRateLimited
	// OutcomeRetriable: transport error or any other status; the record
	// stays queued and the attempt is retried with backoff.
	OutcomeRetriable
)

func (c OutcomeClass) String() string {
	switch c {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "retriable"
	}
}

// Outcome is the classified result of a delivery attempt. Detail carries a
// human-readable failure description for status reporting.
type Outcome struct {
	Class  OutcomeClass
	Detail string
}

// Sender performs a single observation delivery attempt. Implementations
// must classify every possible result; the engine never sees raw errors.
type Sender interface {
	Send(ctx context.Context, endpoint, credential string, rec observation.Record) Outcome
}

type observationRequest struct {
	ExternalID  string `json:"externalId"`
	Observation string `json:"observation"`
}

// HTTPSender posts observations to the collection service.
type HTTPSender struct {
	client *http.Client
	log    *logger.Logger
}

// NewHTTPSender returns a sender using the given client, or a default
// 30-second-timeout client when nil.
func NewHTTPSender(client *http.Client, log *logger.Logger) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("observation-sender")
	}
	return &HTTPSender{client: client, log: log}
}

// Send posts one observation and classifies the response.
func (s *HTTPSender) Send(ctx context.Context, endpoint, credential string, rec observation.Record) Outcome {
	body, err := json.Marshal(observationRequest{
		ExternalID:  rec.ExternalID,
		Observation: rec.Observation,
	})
	if err != nil {
		return Outcome{Class: OutcomeRetriable, Detail: fmt.Sprintf("Upload error: %v.", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{Class: OutcomeRetriable, Detail: fmt.Sprintf("Upload error: %v.", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.WithError(err).WithField("external_id", rec.ExternalID).Warn("observation upload failed")
		return Outcome{Class: OutcomeRetriable, Detail: fmt.Sprintf("Upload error: %v.", err)}
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Outcome{Class: OutcomeDelivered}
	case resp.StatusCode == http.StatusTooManyRequests:
		s.log.WithField("external_id", rec.ExternalID).Warn("observation upload rejected with 429")
		return Outcome{Class: OutcomeRateLimited}
	default:
		s.log.WithField("external_id", rec.ExternalID).
			Warnf("observation upload failed with status %d", resp.StatusCode)
		return Outcome{Class: OutcomeRetriable, Detail: fmt.Sprintf("Upload failed with status %d.", resp.StatusCode)}
	}
}
