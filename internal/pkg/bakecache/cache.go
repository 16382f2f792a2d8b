// Package bakecache memoizes whole-dataset aggregations for the duration of one baking run.
//
// A Cache is created per run and never invalidated: a run assumes the source data
// does not change while it bakes. Keys name an operation, not its arguments, so
// only computations that load everything they need at once belong here.
package bakecache

import (
	"context"
	"fmt"
	"sync"
)

type slot struct {
	mx       sync.Mutex
	computed bool
	value    any
}

type Cache struct {
	mx    sync.Mutex
	slots map[string]*slot
}

func New() *Cache {
	return &Cache{slots: make(map[string]*slot)}
}

func (c *Cache) slot(key string) *slot {
	c.mx.Lock()
	defer c.mx.Unlock()

	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	return s
}

// Computed reports whether key already holds a value.
func (c *Cache) Computed(key string) bool {
	s := c.slot(key)
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.computed
}

// Memoize returns the value stored under key, computing it on first use.
// A failed computation is not stored, the next caller computes again.
//
// Slots are locked independently, so compute may itself memoize other keys.
func Memoize[T any](ctx context.Context, c *Cache, key string, compute func(ctx context.Context) (T, error)) (T, error) {
	s := c.slot(key)
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.computed {
		v, ok := s.value.(T)
		if !ok {
			return *new(T), fmt.Errorf("bakecache: slot %q holds %T", key, s.value)
		}
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return *new(T), err
	}

	s.value = v
	s.computed = true
	return v, nil
}
