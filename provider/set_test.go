package provider

import (
	"context"
	"testing"
	"time"
)

type nullClient struct{ id string }

func (c *nullClient) ID() string { return c.id }
func (c *nullClient) Translate(ctx context.Context, batch *Batch) (map[string]string, error) {
	return nil, nil
}

func newTestSet(t *testing.T, ids ...string) (*Set, *time.Time) {
	t.Helper()
	clients := make([]Client, len(ids))
	for i, id := range ids {
		clients[i] = &nullClient{id: id}
	}
	s := NewSet(clients, 3, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestPickPriorityOrder(t *testing.T) {
	s, _ := newTestSet(t, "primary", "backup")
	c, err := s.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if c.ID() != "primary" {
		t.Fatalf("Pick() = %q, want primary", c.ID())
	}
}

func TestPickSkipsCooldown(t *testing.T) {
	s, _ := newTestSet(t, "primary", "backup")
	for i := 0; i < 3; i++ {
		s.RecordFailure("primary")
	}

	c, err := s.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if c.ID() != "backup" {
		t.Fatalf("Pick() = %q, want fallback past benched provider", c.ID())
	}
}

func TestCooldownExpires(t *testing.T) {
	s, now := newTestSet(t, "primary", "backup")
	for i := 0; i < 3; i++ {
		s.RecordFailure("primary")
	}
	*now = now.Add(2 * time.Minute)

	c, err := s.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if c.ID() != "primary" {
		t.Fatalf("Pick() = %q, want primary after cooldown expired", c.ID())
	}
}

func TestFailuresBelowThresholdDoNotBench(t *testing.T) {
	s, _ := newTestSet(t, "primary", "backup")
	s.RecordFailure("primary")
	s.RecordFailure("primary")

	c, err := s.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if c.ID() != "primary" {
		t.Fatalf("Pick() = %q, two failures must not bench", c.ID())
	}
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	s, _ := newTestSet(t, "primary")
	s.RecordFailure("primary")
	s.RecordFailure("primary")
	s.RecordSuccess("primary")
	if got := s.Failures("primary"); got != 0 {
		t.Fatalf("Failures() = %d after success, want 0", got)
	}
}

func TestPickExcluding(t *testing.T) {
	s, _ := newTestSet(t, "primary", "backup")

	c, err := s.PickExcluding(map[string]bool{"primary": true})
	if err != nil {
		t.Fatalf("PickExcluding() error: %v", err)
	}
	if c.ID() != "backup" {
		t.Fatalf("PickExcluding() = %q, want backup", c.ID())
	}

	if _, err := s.PickExcluding(map[string]bool{"primary": true, "backup": true}); err == nil {
		t.Fatal("expected error with every provider excluded")
	}
}
