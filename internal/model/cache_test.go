package model

import (
	"context"
	"errors"
	"testing"
)

func TestCacheFirstSuccessfulLoadWins(t *testing.T) {
	loads := 0
	cache, err := NewCache(func(ctx context.Context) (Bundle, error) {
		loads++
		return testBundle(), nil
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
}

func TestCacheRetriesAfterFailure(t *testing.T) {
	loads := 0
	cache, err := NewCache(func(ctx context.Context) (Bundle, error) {
		loads++
		if loads == 1 {
			return Bundle{}, errors.New("transient")
		}
		return testBundle(), nil
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	ctx := context.Background()
	if _, err := cache.Get(ctx); err == nil {
		t.Fatal("first Get should fail")
	}
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if loads != 2 {
		t.Fatalf("loader ran %d times, want 2", loads)
	}
}

func TestCacheInvalidate(t *testing.T) {
	loads := 0
	cache, err := NewCache(func(ctx context.Context) (Bundle, error) {
		loads++
		return testBundle(), nil
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	ctx := context.Background()
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("Get: %v", err)
	}
	cache.Invalidate()
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("Get after Invalidate: %v", err)
	}
	if loads != 2 {
		t.Fatalf("loader ran %d times, want 2", loads)
	}
}
