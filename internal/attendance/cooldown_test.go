package attendance

import (
	"testing"
	"time"
)

func TestCooldownMap_ActiveWithinWindow(t *testing.T) {
	c := newCooldownMap(10 * time.Second)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	c.Set("alice", base)

	if !c.Active("alice", base.Add(9*time.Second)) {
		t.Error("expected active at 9s")
	}
	if c.Active("alice", base.Add(10*time.Second)) {
		t.Error("expected expired at exactly 10s")
	}
}

func TestCooldownMap_EvictsOnRead(t *testing.T) {
	c := newCooldownMap(10 * time.Second)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	c.Set("alice", base)
	c.Set("bob", base)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	if c.Active("alice", base.Add(time.Minute)) {
		t.Error("expected expired entry")
	}
	if c.Len() != 1 {
		t.Errorf("expected expired entry evicted on read, got %d entries", c.Len())
	}
}

func TestCooldownMap_UnknownName(t *testing.T) {
	c := newCooldownMap(10 * time.Second)
	if c.Active("nobody", time.Now()) {
		t.Error("expected inactive for unknown name")
	}
}
