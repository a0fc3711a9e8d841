package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCapacity = errors.New("rate limiter capacity exceeded")

// attempts is the open window of one grant key.
type attempts struct {
	count   int
	resetAt time.Time
}

func (a *attempts) expired(now time.Time) bool {
	return !now.Before(a.resetAt)
}

func (a *attempts) decision(limit int) Decision {
	return Decision{
		Allowed:   a.count <= limit,
		Limit:     limit,
		Remaining: max(limit-a.count, 0),
		ResetAt:   a.resetAt,
	}
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// MemoryLimiter keeps grant attempt windows in process memory. It serves a
// single backend replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	maxKeys int
	open    map[GrantKey]*attempts
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) *MemoryLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &MemoryLimiter{now: cfg.Now, maxKeys: cfg.MaxKeys, open: make(map[GrantKey]*attempts)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key GrantKey, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return unlimited(limit), nil
	}
	key = key.normalized()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.window(key, now, window)
	if err != nil {
		return Decision{}, err
	}
	if a.count >= limit {
		return Decision{Limit: limit, ResetAt: a.resetAt}, nil
	}
	a.count++
	return a.decision(limit), nil
}

// window returns the open window of key, starting a new one when the last
// has run out. New keys past MaxKeys first evict expired windows.
func (m *MemoryLimiter) window(key GrantKey, now time.Time, length time.Duration) (*attempts, error) {
	a, ok := m.open[key]
	if ok && !a.expired(now) {
		return a, nil
	}
	if !ok && len(m.open) >= m.maxKeys {
		m.evictExpired(now)
		if len(m.open) >= m.maxKeys {
			return nil, ErrCapacity
		}
	}
	a = &attempts{resetAt: now.Add(length)}
	m.open[key] = a
	return a, nil
}

func (m *MemoryLimiter) evictExpired(now time.Time) {
	for key, a := range m.open {
		if a.expired(now) {
			delete(m.open, key)
		}
	}
}

func (m *MemoryLimiter) Forget(_ context.Context, key GrantKey) error {
	m.mu.Lock()
	delete(m.open, key.normalized())
	m.mu.Unlock()
	return nil
}

// Tracked is the number of keys with a window, expired or not.
func (m *MemoryLimiter) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}
