// Package lock serializes work that must not run twice at the same time,
// such as two full imports of one shop.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLocked = errors.New("lock is held")

type Locker interface {
	// Acquire takes key for at most ttl. The returned func releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocal() *Local {
	return &Local{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLocked
	}
	expires := now.Add(ttl)
	l.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// A lock that expired and was taken again belongs to someone else.
			if l.held[key] == expires {
				delete(l.held, key)
			}
		})
	}, nil
}
