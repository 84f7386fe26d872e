package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Strob0t/interviewlab/internal/port/objectstore"
	"github.com/Strob0t/interviewlab/internal/port/objectstore/objectstoretest"
)

func TestBackendConformance(t *testing.T) {
	objectstoretest.Run(t, func(t *testing.T) objectstore.Backend {
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestRecordLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := objectstore.Key{Kind: objectstore.KindPrompt, Scope: "agentC", ID: "p1"}
	if err := s.Put(context.Background(), objectstore.Record{Key: key, Data: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prompts", "agentC", "p1.json")); err != nil {
		t.Fatalf("expected record file on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prompts", "agentC", "p1.json.tmp")); !os.IsNotExist(err) {
		t.Fatal("temp file must not survive a successful write")
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = s.Put(ctx, objectstore.Record{Key: objectstore.Key{Kind: objectstore.KindRun, ID: "r1"}, Data: []byte(`{}`)})

	runs := filepath.Join(dir, "runs")
	_ = os.WriteFile(filepath.Join(runs, "notes.txt"), []byte("hi"), 0o600)
	_ = os.Mkdir(filepath.Join(runs, "archive"), 0o750)

	list, err := s.List(ctx, objectstore.KindRun, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Key.ID != "r1" {
		t.Fatalf("expected only r1, got %+v", list)
	}
}

func TestRecoverInterruptedWrites(t *testing.T) {
	dir := t.TempDir()
	runs := filepath.Join(dir, "runs")
	if err := os.MkdirAll(runs, 0o750); err != nil {
		t.Fatal(err)
	}
	// orphan with no main file: promoted
	_ = os.WriteFile(filepath.Join(runs, "a.json.tmp"), []byte(`{"v":"tmp"}`), 0o600)
	// orphan next to main file: discarded
	_ = os.WriteFile(filepath.Join(runs, "b.json"), []byte(`{"v":"main"}`), 0o600)
	_ = os.WriteFile(filepath.Join(runs, "b.json.tmp"), []byte(`{"v":"stale"}`), 0o600)

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	got, err := s.Get(ctx, objectstore.Key{Kind: objectstore.KindRun, ID: "a"})
	if err != nil || string(got) != `{"v":"tmp"}` {
		t.Errorf("expected promoted temp file, got %s, %v", got, err)
	}
	got, err = s.Get(ctx, objectstore.Key{Kind: objectstore.KindRun, ID: "b"})
	if err != nil || string(got) != `{"v":"main"}` {
		t.Errorf("expected main file kept, got %s, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(runs, "b.json.tmp")); !os.IsNotExist(err) {
		t.Error("stale temp file must be removed")
	}
}
