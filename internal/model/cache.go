package model

import (
	"context"
	"fmt"
	"sync"
)

// Cache lazily loads a model bundle and keeps the first successful load for
// the lifetime of the process. Failed loads are retried on the next Get;
// Invalidate discards the held bundle so the next Get reloads.
type Cache struct {
	mu     sync.Mutex
	bundle *Bundle
	load   func(ctx context.Context) (Bundle, error)
}

func NewCache(load func(ctx context.Context) (Bundle, error)) (*Cache, error) {
	if load == nil {
		return nil, fmt.Errorf("loader is required")
	}
	return &Cache{load: load}, nil
}

// Get returns the cached bundle, loading it on first use. First successful
// load wins; concurrent callers observe the same bundle.
func (c *Cache) Get(ctx context.Context) (Bundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bundle != nil {
		return *c.bundle, nil
	}
	bundle, err := c.load(ctx)
	if err != nil {
		return Bundle{}, err
	}
	if err := bundle.Validate(); err != nil {
		return Bundle{}, fmt.Errorf("loaded bundle invalid: %w", err)
	}
	c.bundle = &bundle
	return bundle, nil
}

// Invalidate drops the held bundle. The next Get performs a fresh load.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundle = nil
}
