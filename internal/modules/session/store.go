// README: In-memory session registry with per-session locking and idle expiry.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fareflow/internal/types"
)

const defaultIdleTTL = 30 * time.Minute

type RegistryConfig struct {
	Config     ConfigSource
	Calculator Calculator
	IdleTTL    time.Duration
	Now        func() time.Time
	Logger     zerolog.Logger
}

type entry struct {
	mu       sync.Mutex
	sess     *Session
	lastSeen time.Time
	expired  bool
}

// Registry holds the sessions of live widget instances. Sessions themselves are
// single-threaded; Registry serializes every operation on one session.
type Registry struct {
	cfg     ConfigSource
	calc    Calculator
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	mu      sync.Mutex
	entries map[types.ID]*entry
}

func NewRegistry(cfg RegistryConfig) *Registry {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		cfg:     cfg.Config,
		calc:    cfg.Calculator,
		ttl:     ttl,
		now:     now,
		logger:  cfg.Logger,
		entries: make(map[types.ID]*entry),
	}
}

// Create starts a new, unresolved session.
func (r *Registry) Create() State {
	id := types.NewID()
	sess := New(id, r.cfg, r.calc, Options{Now: r.now, Logger: r.logger})

	r.mu.Lock()
	r.entries[id] = &entry{sess: sess, lastSeen: r.now()}
	r.mu.Unlock()
	return sess.Snapshot()
}

// With runs fn while holding the session's lock.
func (r *Registry) With(id types.ID, fn func(*Session) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return r.run(e, fn)
}

// run locks e and calls fn unless Sweep expired e after it was looked up.
func (r *Registry) run(e *entry, fn func(*Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expired {
		return ErrNotFound
	}
	e.lastSeen = r.now()
	return fn(e.sess)
}

func (r *Registry) Snapshot(id types.ID) (State, error) {
	var st State
	err := r.With(id, func(s *Session) error {
		st = s.Snapshot()
		return nil
	})
	return st, err
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastSeen.Before(cutoff) {
			e.expired = true
			delete(r.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("expired", n).Int("live", r.Len()).Msg("expired idle sessions")
			}
		}
	}
}
