// Package cachetest runs the behavior every cache.Cache implementation shares.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/interviewlab/internal/port/cache"
)

// Run exercises c. settle is called after each write so implementations with
// asynchronous admission (ristretto) can flush; it may be nil.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "prompt.agentA.v1", []byte("Ask one thing at a time."), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "prompt.agentA.v1")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != "Ask one thing at a time." {
			t.Fatalf("unexpected value %q", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "prompt.agentA.absent")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for absent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "prompt.agentB.v1", []byte("x"), time.Minute)
		settle()
		if err := c.Delete(ctx, "prompt.agentB.v1"); err != nil {
			t.Fatal(err)
		}
		settle()
		_, found, err := c.Get(ctx, "prompt.agentB.v1")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteAbsent", func(t *testing.T) {
		if err := c.Delete(ctx, "prompt.agentC.never"); err != nil {
			t.Fatalf("Delete of absent key should not error, got %v", err)
		}
	})
}
