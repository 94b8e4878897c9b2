package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/resilience"
)

// guardedStore routes every store call through a circuit breaker so an
// unreachable Redis costs one fast failure per request instead of a dial
// timeout. Misses do not count as failures.
type guardedStore struct {
	store  Store
	cb     *resilience.CircuitBreaker
	isMiss func(error) bool
}

func Guard(store Store, cb *resilience.CircuitBreaker, isMiss func(error) bool) Store {
	return &guardedStore{store: store, cb: cb, isMiss: isMiss}
}

func (g *guardedStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := g.cb.Execute(func() error {
		var err error
		val, err = g.store.Get(ctx, key)
		return err
	}, g.isMiss)
	return val, err
}

func (g *guardedStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return g.cb.Execute(func() error {
		return g.store.Set(ctx, key, value, ttl)
	}, nil)
}

func (g *guardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.cb.Execute(func() error {
		var err error
		n, err = g.store.FlushByPattern(ctx, pattern)
		return err
	}, nil)
	return n, err
}
