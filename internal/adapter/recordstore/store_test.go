package recordstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

var errBackendDown = errors.New("backend down")

// flakyBackend is an in-memory backend whose reads and writes can be made to
// fail.
type flakyBackend struct {
	mu        sync.Mutex
	recs      map[string]objectstore.Record
	failRead  bool
	failWrite bool
	gets      int
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{recs: make(map[string]objectstore.Record)}
}

func (b *flakyBackend) Name() string { return "flaky" }

func (b *flakyBackend) Put(_ context.Context, rec objectstore.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWrite {
		return errBackendDown
	}
	b.recs[rec.Key.Path()] = rec
	return nil
}

func (b *flakyBackend) Get(_ context.Context, key objectstore.Key) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.failRead {
		return nil, errBackendDown
	}
	rec, ok := b.recs[key.Path()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Data, nil
}

func (b *flakyBackend) List(_ context.Context, kind objectstore.Kind, scope string) ([]objectstore.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRead {
		return nil, errBackendDown
	}
	var out []objectstore.Record
	for path, rec := range b.recs {
		if _, ok := objectstore.ParsePath(kind, scope, path); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *flakyBackend) Delete(_ context.Context, key objectstore.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWrite {
		return errBackendDown
	}
	delete(b.recs, key.Path())
	return nil
}

func (b *flakyBackend) raw(key objectstore.Key, data string) {
	b.mu.Lock()
	b.recs[key.Path()] = objectstore.Record{Key: key, Data: []byte(data)}
	b.mu.Unlock()
}

var t0 = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func testRun(id string, at time.Time) *run.Run {
	return run.New(id, run.CreateRequest{Mode: run.ModeInteractive, InitialQuestion: "Tell me about your last project."},
		run.Snapshot{AgentAPromptID: run.RefDefault, AgentCPromptID: run.RefDefault}, at)
}

func TestRunRoundTrip(t *testing.T) {
	s := New(newFlakyBackend(), 0)
	ctx := context.Background()
	r := testRun("r1", t0)
	if err := r.Append(run.Entry{Role: run.RoleInterviewer, Content: "Hi", Timestamp: t0, EndFlag: run.EndFlag(false)}); err != nil {
		t.Fatal(err)
	}

	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TurnCount != 1 || len(got.Transcript) != 1 || got.Transcript[0].Done() {
		t.Fatalf("unexpected round trip %+v", got)
	}
}

func TestReadsDegrade(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 0)
	ctx := context.Background()
	_ = s.SaveRun(ctx, testRun("r1", t0))

	b.failRead = true
	if _, err := s.GetRun(ctx, "r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on backend failure, got %v", err)
	}
	runs, err := s.ListRuns(ctx)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list on backend failure, got %d, %v", len(runs), err)
	}
	if _, err := s.GetSettings(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for settings, got %v", err)
	}
}

func TestWritesPropagate(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 0)
	ctx := context.Background()
	b.failWrite = true

	checks := map[string]error{
		"SaveRun":       s.SaveRun(ctx, testRun("r1", t0)),
		"DeleteRun":     s.DeleteRun(ctx, "r1"),
		"SaveProfile":   s.SaveProfile(ctx, &profile.Profile{ID: "p1", Name: "n", Content: "c"}),
		"DeletePrompt":  s.DeletePrompt(ctx, prompt.RoleInterviewer, "x"),
		"SaveSettings":  s.SaveSettings(ctx, settings.Defaults("gpt-4o")),
		"DeleteProfile": s.DeleteProfile(ctx, "p1"),
	}
	for name, err := range checks {
		if !errors.Is(err, domain.ErrStoreWrite) || !errors.Is(err, errBackendDown) {
			t.Errorf("%s: expected ErrStoreWrite wrapping the cause, got %v", name, err)
		}
	}
}

func TestListSkipsCorruptAndSortsNewestFirst(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 0)
	ctx := context.Background()

	_ = s.SaveRun(ctx, testRun("old", t0))
	_ = s.SaveRun(ctx, testRun("new", t0.Add(time.Hour)))
	b.raw(objectstore.Key{Kind: objectstore.KindRun, ID: "broken"}, `{"runId":`)
	b.raw(objectstore.Key{Kind: objectstore.KindRun, ID: "badmode"}, `{"runId":"badmode","mode":"chat","status":"completed"}`)

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("expected [new old], got %+v", runs)
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 0)
	b.raw(objectstore.Key{Kind: objectstore.KindProfile, ID: "p9"},
		`{"id":"p9","name":"Skeptic","content":"Doubts everything.","createdAt":"2026-01-01T00:00:00Z","color":"red"}`)

	p, err := s.GetProfile(context.Background(), "p9")
	if err != nil {
		t.Fatalf("extra keys must not reject the record: %v", err)
	}
	if p.Name != "Skeptic" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestActivatePromptKeepsOneActive(t *testing.T) {
	s := New(newFlakyBackend(), 0)
	ctx := context.Background()
	role := prompt.RoleInterviewer

	for i, id := range []string{"v1", "v2", "v3"} {
		p := &prompt.Prompt{ID: id, Role: role, Author: "ana", Content: "text " + id, IsActive: id == "v1", CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
		if err := s.SavePrompt(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	// a prompt of another role stays untouched
	_ = s.SavePrompt(ctx, &prompt.Prompt{ID: "b1", Role: prompt.RolePersona, Content: "persona", IsActive: true, CreatedAt: t0})

	got, err := s.ActivatePrompt(ctx, role, "v3")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive {
		t.Fatal("returned prompt must be active")
	}

	list, _ := s.ListPrompts(ctx, role)
	active := 0
	for _, p := range list {
		if p.IsActive {
			active++
			if p.ID != "v3" {
				t.Errorf("unexpected active prompt %s", p.ID)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active prompt, got %d", active)
	}
	if b1, _ := s.GetPrompt(ctx, prompt.RolePersona, "b1"); b1 == nil || !b1.IsActive {
		t.Fatal("activation must stay within its role")
	}
}

func TestActivatePromptMissing(t *testing.T) {
	_, err := New(newFlakyBackend(), 0).ActivatePrompt(context.Background(), prompt.RoleEvaluator, "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsCache(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 5*time.Second)
	now := t0
	s.settings.now = func() time.Time { return now }
	ctx := context.Background()

	b.raw(settingsKey, `{"agentAModel":"gpt-4o","scoringFactors":[{"name":"Clarity","min":0,"max":10}]}`)

	first, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first.AgentAModel = "mutated"
	second, _ := s.GetSettings(ctx)
	if b.gets != 1 {
		t.Fatalf("expected one backend read within the ttl, got %d", b.gets)
	}
	if second.AgentAModel != "gpt-4o" {
		t.Fatal("cached settings must not alias caller copies")
	}

	now = now.Add(6 * time.Second)
	if _, err := s.GetSettings(ctx); err != nil {
		t.Fatal(err)
	}
	if b.gets != 2 {
		t.Fatalf("expected a refresh after the ttl, got %d reads", b.gets)
	}
}

func TestSettingsCacheRemembersAbsence(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, 5*time.Second)
	now := t0
	s.settings.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		if _, err := s.GetSettings(ctx); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if b.gets != 1 {
		t.Fatalf("expected one backend read within the ttl, got %d", b.gets)
	}

	now = now.Add(6 * time.Second)
	_, _ = s.GetSettings(ctx)
	if b.gets != 2 {
		t.Fatalf("expected a refresh after the ttl, got %d reads", b.gets)
	}

	if err := s.SaveSettings(ctx, settings.Defaults("gpt-4o")); err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetSettings(ctx); err != nil || got.AgentAModel != "gpt-4o" {
		t.Fatalf("saved settings hidden by cached absence: %v %v", got, err)
	}
	if b.gets != 2 {
		t.Fatalf("expected save to refresh the cache, got %d reads", b.gets)
	}
}

func TestSaveSettingsRefreshesCache(t *testing.T) {
	b := newFlakyBackend()
	s := New(b, time.Minute)
	ctx := context.Background()

	st := settings.Defaults("gpt-4o")
	st.AgentBModel = "gpt-4o-mini"
	if err := s.SaveSettings(ctx, st); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.AgentBModel != "gpt-4o-mini" || b.gets != 0 {
		t.Fatalf("expected settings served from cache after save, got %q with %d reads", got.AgentBModel, b.gets)
	}
}
