package natskv

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/port/cache/cachetest"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
	"github.com/Strob0t/interviewlab/internal/port/objectstore/objectstoretest"
)

func TestStoreConformance(t *testing.T) {
	objectstoretest.Run(t, func(t *testing.T) objectstore.Backend {
		return NewStore(newMemoryKV(), 4)
	})
}

func TestStoreMaintainsIndex(t *testing.T) {
	kv := newMemoryKV()
	s := NewStore(kv, 2)
	ctx := context.Background()
	key := objectstore.Key{Kind: objectstore.KindPrompt, Scope: "agentB", ID: "p1"}

	if err := s.Put(ctx, objectstore.Record{Key: key, Data: []byte(`{}`), CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if !kv.has("prompts.agentB.p1") {
		t.Error("missing value key")
	}
	if !kv.has("idx.prompts.agentB.p1") {
		t.Error("missing index key")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if kv.has("prompts.agentB.p1") || kv.has("idx.prompts.agentB.p1") {
		t.Error("delete must remove both the value and the index entry")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	s := NewStore(newMemoryKV(), 2)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		rec := objectstore.Record{
			Key:       objectstore.Key{Kind: objectstore.KindRun, ID: id},
			Data:      []byte(`{}`),
			CreatedAt: base.Add(offsets[i]),
		}
		if err := s.Put(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx, objectstore.KindRun, "")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, rec := range list {
		got = append(got, rec.Key.ID)
	}
	want := []string{"newest", "middle", "old"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStoreListSkipsFailedFetches(t *testing.T) {
	kv := newMemoryKV()
	s := NewStore(kv, 2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_ = s.Put(ctx, objectstore.Record{Key: objectstore.Key{Kind: objectstore.KindRun, ID: id}, Data: []byte(`{}`)})
	}
	kv.failGet["runs.b"] = true
	// index entry left behind by an interrupted delete
	_ = kv.Put(ctx, "idx.runs.ghost", []byte(time.Now().Format(time.RFC3339Nano)))

	list, err := s.List(ctx, objectstore.KindRun, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected a and c only, got %+v", list)
	}
}

func TestStorePutFailurePropagates(t *testing.T) {
	kv := newMemoryKV()
	kv.failPut = true
	err := NewStore(kv, 1).Put(context.Background(), objectstore.Record{Key: objectstore.Key{Kind: objectstore.KindRun, ID: "x"}})
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected write error to propagate, got %v", err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	_, err := NewStore(newMemoryKV(), 1).Get(context.Background(), objectstore.Key{Kind: objectstore.KindSettings, ID: "global"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCacheConformance(t *testing.T) {
	cachetest.Run(t, NewCache(newMemoryKV()), nil)
}

func TestCacheSurfacesTransportErrors(t *testing.T) {
	kv := newMemoryKV()
	kv.failGet["prompt.x"] = true
	_, ok, err := NewCache(kv).Get(context.Background(), "prompt.x")
	if ok || !errors.Is(err, errUnavailable) {
		t.Fatalf("expected transport error, got ok=%v err=%v", ok, err)
	}
}

// testBucket binds a throwaway bucket on a live server or skips.
func testBucket(t *testing.T) *Bucket {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	conn, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	b, err := conn.Bucket(context.Background(), "test-"+uuid.NewString()[:8], 0)
	if err != nil {
		t.Fatalf("Bucket: %v", err)
	}
	return b
}

func TestBucketConformance(t *testing.T) {
	objectstoretest.Run(t, func(t *testing.T) objectstore.Backend {
		return NewStore(testBucket(t), 4)
	})
}

func TestBucketCache(t *testing.T) {
	cachetest.Run(t, NewCache(testBucket(t)), nil)
}

func TestSubjectFilter(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"idx.runs.", "idx.runs.>", true},
		{"idx.prompts.agentA.", "idx.prompts.agentA.>", true},
		{"idx.run", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := subjectFilter(tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("subjectFilter(%q) = %q, %v; want %q, %v", tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBucketKeysStayInCollection(t *testing.T) {
	b := testBucket(t)
	ctx := context.Background()
	for _, k := range []string{"idx.runs.r1", "idx.runs.r2", "runs.r1", "idx.profiles.p1", "idx.prompts.agentA.x"} {
		if err := b.Put(ctx, k, []byte("1")); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := b.Keys(ctx, "idx.runs.")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected the two run index keys, got %v", keys)
	}
	if keys, err := b.Keys(ctx, "idx.settings."); err != nil || len(keys) != 0 {
		t.Fatalf("expected no keys, got %v %v", keys, err)
	}
}
