package pipeline

import (
	"strings"
	"testing"
)

func TestNewRunID_Format(t *testing.T) {
	id := NewRunID()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d: %s", len(id), id)
	}
	for _, r := range id {
		if !strings.ContainsRune(crockford, r) {
			t.Fatalf("invalid character %q in %s", r, id)
		}
	}
}

func TestNewRunID_UniqueWithinSameMillisecond(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("duplicate run id: %s", id)
		}
		seen[id] = true
	}
}

func TestNewRunID_TimeSortable(t *testing.T) {
	// Same-millisecond ids carry an increasing sequence, so a batch of
	// ids always sorts in generation order.
	prev := NewRunID()
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if id <= prev {
			t.Fatalf("ids not ascending: %s then %s", prev, id)
		}
		prev = id
	}
}
