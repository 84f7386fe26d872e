package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/interviewlab/internal/adapter/localfs"
	"github.com/Strob0t/interviewlab/internal/adapter/recordstore"
	"github.com/Strob0t/interviewlab/internal/config"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/port/agent"
)

// scriptedParticipant answers interviewer calls from a script of done flags
// and persona calls with a fixed text. It records every request.
type scriptedParticipant struct {
	mu       sync.Mutex
	done     []bool // consumed per interviewer call; missing entries mean false
	err      error
	requests []agent.ParticipantRequest
}

func (p *scriptedParticipant) CallParticipant(_ context.Context, req agent.ParticipantRequest) (*agent.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if req.Role == prompt.RolePersona {
		return &agent.Reply{Content: "I mostly worked on the payment flow."}, nil
	}
	done := false
	if len(p.done) > 0 {
		done, p.done = p.done[0], p.done[1:]
	}
	return &agent.Reply{Content: "What was the hardest part?", Done: done}, nil
}

func (p *scriptedParticipant) calls(role prompt.Role) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.requests {
		if r.Role == role {
			n++
		}
	}
	return n
}

func (p *scriptedParticipant) last() agent.ParticipantRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type fakeEvaluator struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   int
	last    agent.EvaluatorRequest
}

func (e *fakeEvaluator) CallEvaluator(_ context.Context, req agent.EvaluatorRequest) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return []byte(e.payload), nil
}

type recordedEvent struct {
	kind    string
	payload any
}

type fakeHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (h *fakeHub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	h.mu.Lock()
	h.events = append(h.events, recordedEvent{eventType, payload})
	h.mu.Unlock()
}

func (h *fakeHub) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

const goodPayload = `{
	"subscores": {"relevance": 80, "coverage": 70, "clarity": 90, "efficiency": 60, "redundancy": 75, "reasoning": 85, "tone": 95},
	"overallScore": 78,
	"strengths": ["Focused questions"],
	"weaknesses": ["Stopped before asking about scale"],
	"actionableSuggestions": ["Ask about traffic volume"],
	"stopTiming": "too early",
	"evidence": [{"quote": "What was the hardest part?", "note": "Open follow-up", "category": "clarity"}]
}`

// harness wires every service over a local store in a temp dir.
type harness struct {
	runs        *RunService
	orch        *Orchestrator
	prompts     *PromptService
	profiles    *ProfileService
	settings    *SettingsService
	participant *scriptedParticipant
	evaluator   *fakeEvaluator
	hub         *fakeHub
	cache       *memCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := recordstore.New(backend, 0)

	h := &harness{
		participant: &scriptedParticipant{},
		evaluator:   &fakeEvaluator{payload: goodPayload},
		hub:         &fakeHub{},
		cache:       &memCache{data: make(map[string][]byte)},
	}
	cfg := config.Defaults().Orchestrator
	h.prompts = NewPromptService(store, h.cache, time.Minute)
	h.profiles = NewProfileService(store)
	h.settings = NewSettingsService(store, "gpt-4o")
	h.runs = NewRunService(store, h.prompts, h.hub)
	h.orch = NewOrchestrator(store, h.prompts, h.profiles, h.settings, h.participant, h.evaluator, h.hub, cfg)
	return h
}
