package console

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(clock *fakeClock, ttl time.Duration) *Registry {
	return NewRegistry(RegistryOptions{
		Session: SessionOptions{Backend: &fakeBackend{}},
		TTL:     ttl,
		Logger:  discardLogger(),
		Now:     clock.Now,
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		r := newTestRegistry(clock, time.Hour)

		a := r.Create()
		b := r.Create()
		if a.ID() == "" || a.ID() == b.ID() {
			t.Fatalf("session ids %q and %q must be distinct and non-empty", a.ID(), b.ID())
		}
		if got, ok := r.Get(a.ID()); !ok || got != a {
			t.Errorf("Get(%q) = %v, %v", a.ID(), got, ok)
		}
		if _, ok := r.Get("missing"); ok {
			t.Error("Get(missing) found a session")
		}
		if _, ok := r.Get(""); ok {
			t.Error("Get(\"\") found a session")
		}
		if r.Len() != 2 {
			t.Errorf("Len() = %d, want 2", r.Len())
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		r := newTestRegistry(clock, time.Hour)

		a := r.Create()
		b := r.Create()
		a.SetToken("token-a")

		if b.Snapshot().HasToken {
			t.Error("token leaked into another session")
		}
	})

	t.Run("get refreshes expiry", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		r := newTestRegistry(clock, time.Hour)
		s := r.Create()

		clock.Advance(50 * time.Minute)
		if _, ok := r.Get(s.ID()); !ok {
			t.Fatal("session expired early")
		}
		clock.Advance(50 * time.Minute)
		if _, ok := r.Get(s.ID()); !ok {
			t.Fatal("Get did not extend the session lifetime")
		}
		clock.Advance(time.Hour)
		if _, ok := r.Get(s.ID()); ok {
			t.Fatal("expired session was returned")
		}
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0 after expired lookup", r.Len())
		}
	})

	t.Run("sweep removes expired", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		r := newTestRegistry(clock, time.Hour)

		old := r.Create()
		clock.Advance(40 * time.Minute)
		fresh := r.Create()
		clock.Advance(30 * time.Minute)

		if removed := r.Sweep(); removed != 1 {
			t.Errorf("Sweep() = %d, want 1", removed)
		}
		if _, ok := r.Get(old.ID()); ok {
			t.Error("old session survived sweep")
		}
		if _, ok := r.Get(fresh.ID()); !ok {
			t.Error("fresh session was swept")
		}
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		r := newTestRegistry(clock, 0)
		s := r.Create()

		r.Remove(s.ID())
		r.Remove(s.ID())
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})
}
