package observation

import (
	"testing"
	"time"

	"github.com/dailypulse/relay/internal/app/domain/question"
)

func fullResponses() map[int]int {
	responses := make(map[int]int)
	for i, q := range question.Bank() {
		responses[q.ID] = i%4 + 1
	}
	return responses
}

func TestEncode(t *testing.T) {
	bank := question.Bank()

	encoded, err := Encode(fullResponses(), bank)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != len(bank) {
		t.Fatalf("encoded length %d, want %d", len(encoded), len(bank))
	}
	if encoded != "1234123412" {
		t.Fatalf("unexpected encoding %q", encoded)
	}
}

func TestEncode_MissingAnswer(t *testing.T) {
	responses := fullResponses()
	delete(responses, 4)
	if _, err := Encode(responses, question.Bank()); err != ErrIncompleteResponses {
		t.Fatalf("expected ErrIncompleteResponses, got %v", err)
	}
}

func TestEncode_OutOfScaleAnswer(t *testing.T) {
	for _, bad := range []int{0, 5, -1, 42} {
		responses := fullResponses()
		responses[2] = bad
		if _, err := Encode(responses, question.Bank()); err != ErrIncompleteResponses {
			t.Fatalf("answer %d: expected ErrIncompleteResponses, got %v", bad, err)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(fullResponses(), question.Bank())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(fullResponses(), question.Bank())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if a != b {
		t.Fatalf("encoding not deterministic: %q vs %q", a, b)
	}
}

func TestNewRecord_ExternalIDsAreTimeOrdered(t *testing.T) {
	now := time.Now()
	first, err := NewRecord("1111111111", now)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := NewRecord("2222222222", now.Add(2*time.Millisecond))
	if err != nil {
		t.Fatalf("new record: %v", err)
	}

	if first.ExternalID == second.ExternalID {
		t.Fatalf("external ids must be unique")
	}
	// UUIDv7 encodes creation time in its high bits, so lexicographic
	// order follows creation order.
	if first.ExternalID >= second.ExternalID {
		t.Fatalf("external ids not time-ordered: %s >= %s", first.ExternalID, second.ExternalID)
	}
}

func TestRecord_Expired(t *testing.T) {
	now := time.Now()
	rec := Record{CreatedAt: now.Add(-25 * time.Hour)}
	if !rec.Expired(now, 24*time.Hour) {
		t.Fatalf("record older than retention should be expired")
	}
	fresh := Record{CreatedAt: now.Add(-23 * time.Hour)}
	if fresh.Expired(now, 24*time.Hour) {
		t.Fatalf("record inside retention should not be expired")
	}
}
