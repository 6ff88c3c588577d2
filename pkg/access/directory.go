package access

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CallerStore loads a caller's payment status and admin scope.
type CallerStore interface {
	LookupCaller(ctx context.Context, username string) (*Caller, error)
}

// Directory resolves callers through a CallerStore and memoizes the result
// for a short time, since admin scope is checked on every search.
type Directory struct {
	store CallerStore
	cache *expirable.LRU[string, *Caller]
}

// NewDirectory creates a Directory caching up to size callers for ttl.
func NewDirectory(store CallerStore, size int, ttl time.Duration) *Directory {
	if size <= 0 {
		size = 1024
	}
	return &Directory{
		store: store,
		cache: expirable.NewLRU[string, *Caller](size, nil, ttl),
	}
}

// Resolve returns the caller for username. An empty username yields
// ErrUnknownCaller without touching the store.
func (d *Directory) Resolve(ctx context.Context, username string) (*Caller, error) {
	if username == "" {
		return nil, ErrUnknownCaller
	}
	if c, ok := d.cache.Get(username); ok {
		return c, nil
	}

	c, err := d.store.LookupCaller(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving caller %s: %w", username, err)
	}
	d.cache.Add(username, c)
	return c, nil
}

// Forget drops a cached caller, e.g. after their admin rights changed.
func (d *Directory) Forget(username string) {
	d.cache.Remove(username)
}

// Len returns the number of cached callers.
func (d *Directory) Len() int {
	return d.cache.Len()
}
