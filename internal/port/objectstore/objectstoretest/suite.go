// Package objectstoretest holds the behavior every objectstore.Backend must
// share. Backend packages run it from their own tests.
package objectstoretest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

// Run exercises put/get/list/delete against a fresh backend from newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) objectstore.Backend) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("PutThenGet", func(t *testing.T) {
		b := newBackend(t)
		key := objectstore.Key{Kind: objectstore.KindRun, ID: "run-1"}
		want := []byte(`{"runId":"run-1"}`)
		if err := b.Put(ctx, objectstore.Record{Key: key, Data: want, CreatedAt: base}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := b.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, objectstore.Key{Kind: objectstore.KindRun, ID: "absent"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := newBackend(t)
		key := objectstore.Key{Kind: objectstore.KindProfile, ID: "p1"}
		_ = b.Put(ctx, objectstore.Record{Key: key, Data: []byte(`{"v":1}`), CreatedAt: base})
		if err := b.Put(ctx, objectstore.Record{Key: key, Data: []byte(`{"v":2}`), CreatedAt: base}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := b.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != `{"v":2}` {
			t.Fatalf("expected second version, got %s", got)
		}
		list, err := b.List(ctx, objectstore.KindProfile, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("overwrite must not duplicate the listing, got %d", len(list))
		}
	})

	t.Run("ListScoped", func(t *testing.T) {
		b := newBackend(t)
		put := func(scope, id string, at time.Time) {
			t.Helper()
			rec := objectstore.Record{
				Key:       objectstore.Key{Kind: objectstore.KindPrompt, Scope: scope, ID: id},
				Data:      []byte(`{"id":"` + id + `"}`),
				CreatedAt: at,
			}
			if err := b.Put(ctx, rec); err != nil {
				t.Fatalf("Put %s/%s: %v", scope, id, err)
			}
		}
		put("agentA", "a1", base)
		put("agentA", "a2", base.Add(time.Minute))
		put("agentB", "b1", base)

		list, err := b.List(ctx, objectstore.KindPrompt, "agentA")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		ids := map[string]bool{}
		for _, rec := range list {
			if rec.Key.Scope != "agentA" {
				t.Errorf("record from scope %q leaked into agentA listing", rec.Key.Scope)
			}
			ids[rec.Key.ID] = true
		}
		if len(ids) != 2 || !ids["a1"] || !ids["a2"] {
			t.Fatalf("expected a1 and a2, got %v", ids)
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		b := newBackend(t)
		list, err := b.List(ctx, objectstore.KindRun, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty listing, got %d", len(list))
		}
	})

	t.Run("DeleteRemovesFromListing", func(t *testing.T) {
		b := newBackend(t)
		keep := objectstore.Key{Kind: objectstore.KindRun, ID: "keep"}
		drop := objectstore.Key{Kind: objectstore.KindRun, ID: "drop"}
		_ = b.Put(ctx, objectstore.Record{Key: keep, Data: []byte(`{}`), CreatedAt: base})
		_ = b.Put(ctx, objectstore.Record{Key: drop, Data: []byte(`{}`), CreatedAt: base})

		if err := b.Delete(ctx, drop); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := b.Get(ctx, drop); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		list, err := b.List(ctx, objectstore.KindRun, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 || list[0].Key.ID != "keep" {
			t.Fatalf("expected only keep in listing, got %+v", list)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Delete(ctx, objectstore.Key{Kind: objectstore.KindRun, ID: "never"}); err != nil {
			t.Fatalf("delete of absent record should not error, got %v", err)
		}
	})
}
