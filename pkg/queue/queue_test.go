package queue

import (
	"testing"

	"github.com/yeisme/filegate/pkg/internal/types"
)

func TestDeterministicIDStable(t *testing.T) {
	a := DeterministicID(TopicFileIngested, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	b := DeterministicID(TopicFileIngested, "01ARZ3NDEKTSV4RRFFQ69G5FAV")

	if a != b {
		t.Fatalf("same topic+key must give same id: %q vs %q", a, b)
	}

	if c := DeterministicID(TopicFileDeleted, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); c == a {
		t.Error("different topics must give different ids")
	}

	// 无键消息退回随机 ID
	if x, y := DeterministicID(TopicFileRejected, ""), DeterministicID(TopicFileRejected, ""); x == y {
		t.Error("empty key must not produce a stable id")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := FileQuarantinedPayload{
		User:     "mallory",
		Category: "docs",
		Digest:   "deadbeef",
		Source:   types.ScanSourceHeuristic,
	}

	msg, err := NewWatermillMessage(TopicFileQuarantined, payload.Digest, payload,
		WithTraceID("req-1"))
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	parsed, err := ParseWatermillMessage[FileQuarantinedPayload](msg)
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}

	if parsed.Header.Topic != TopicFileQuarantined {
		t.Errorf("topic: %q", parsed.Header.Topic)
	}
	if parsed.Header.TraceID != "req-1" {
		t.Errorf("trace id: %q", parsed.Header.TraceID)
	}
	if parsed.Payload != payload {
		t.Errorf("payload mismatch: %+v", parsed.Payload)
	}
}
