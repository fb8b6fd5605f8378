package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("record.create", "success", 10*time.Millisecond)
	h.ObserveOperation("record.create", "conflict", time.Millisecond)
	h.IncConflict("record.create")
	h.IncStorageUnavailable("record.update")

	if len(h.Operations) != 2 {
		t.Fatalf("expected 2 op events, got %d", len(h.Operations))
	}
	if h.Operations[0].Name != "record.create" || h.Operations[0].Status != "success" {
		t.Fatalf("unexpected op event: %+v", h.Operations[0])
	}
	if got := h.Statuses(); len(got) != 2 || got[1] != "conflict" {
		t.Fatalf("unexpected statuses: %+v", got)
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != "record.create" {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if len(h.Unavailable) != 1 || h.Unavailable[0] != "record.update" {
		t.Fatalf("unexpected unavailable: %+v", h.Unavailable)
	}
}
