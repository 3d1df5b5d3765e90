package console

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 12 * time.Hour

// RegistryOptions configures a Registry and the sessions it creates.
type RegistryOptions struct {
	Session SessionOptions
	TTL     time.Duration
	Logger  *slog.Logger
	// Now is the clock used for expiry; nil means time.Now.
	Now func() time.Time
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Registry keeps the open sessions in memory. Nothing in it is persisted.
type Registry struct {
	opts SessionOptions
	ttl  time.Duration
	now  func() time.Time
	log  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}

	return &Registry{
		opts:     opts.Session,
		ttl:      opts.TTL,
		now:      opts.Now,
		log:      opts.Logger.With("component", "session_registry"),
		sessions: make(map[string]*entry),
	}
}

// Create opens a new session with a random identifier.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := NewSession(id, r.opts)

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, expiresAt: r.now().Add(r.ttl)}
	count := len(r.sessions)
	r.mu.Unlock()

	r.log.Debug("Session created", "session_id", id, "open_sessions", count)
	return s
}

// Get returns the live session with id and extends its lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if !now.Before(e.expiresAt) {
		delete(r.sessions, id)
		return nil, false
	}
	e.expiresAt = now.Add(r.ttl)
	return e.session, true
}

// Remove drops the session with id, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	removed := 0
	for id, e := range r.sessions {
		if !now.Before(e.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	if removed > 0 {
		r.log.Info("Expired sessions removed", "removed", removed, "open_sessions", remaining)
	}
	return removed
}

// Len returns the number of sessions currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
