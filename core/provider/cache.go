package provider

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
)

// Cache holds loaded models keyed by model id. The first Get for an id runs
// the loader; concurrent Gets for the same id wait for that single load and
// share its result. Failed loads are not stored, the next Get retries.
type Cache[T any] struct {
	mutex sync.RWMutex
	items map[string]T
	group singleflight.Group
	loads atomic.Int64
}

// NewCache creates an empty cache
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{items: make(map[string]T)}
}

// Get returns the cached value for id, loading it on first use. If ctx ends
// while waiting, Get returns ctx.Err() and the load keeps running for later
// callers.
func (c *Cache[T]) Get(ctx context.Context, id string, load func() (T, error)) (T, error) {
	if v, ok := c.lookup(id); ok {
		return v, nil
	}

	ch := c.group.DoChan(id, func() (interface{}, error) {
		if v, ok := c.lookup(id); ok {
			return v, nil
		}
		c.loads.Add(1)
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.mutex.Lock()
		c.items[id] = v
		c.mutex.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return zero, result.Err
		}
		return result.Val.(T), nil
	}
}

// Loaded reports whether id is cached
func (c *Cache[T]) Loaded(id string) bool {
	_, ok := c.lookup(id)
	return ok
}

// Loads returns how many times a loader ran
func (c *Cache[T]) Loads() int64 {
	return c.loads.Load()
}

// Len returns the number of cached models
func (c *Cache[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Clear empties the cache, closing values that implement io.Closer
func (c *Cache[T]) Clear() error {
	c.mutex.Lock()
	items := c.items
	c.items = make(map[string]T)
	c.mutex.Unlock()

	var result *multierror.Error
	for _, v := range items {
		if closer, ok := any(v).(io.Closer); ok {
			if err := closer.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

func (c *Cache[T]) lookup(id string) (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	v, ok := c.items[id]
	return v, ok
}
