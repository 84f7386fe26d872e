package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/port/broadcast"
)

func intPtr(n int) *int { return &n }

func assertTurnInvariant(t *testing.T, r *run.Run) {
	t.Helper()
	if r.TurnCount != len(r.Transcript) {
		t.Fatalf("turnCount %d != transcript length %d", r.TurnCount, len(r.Transcript))
	}
}

func createRun(t *testing.T, h *harness, req run.CreateRequest) *run.Run {
	t.Helper()
	if req.InitialQuestion == "" {
		req.InitialQuestion = "How should we price the new plan?"
	}
	r, err := h.runs.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestSimulatedRunStopsAtMaxTurns(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated, MaxTurns: intPtr(2)})

	r, err := h.orch.Step(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if len(r.Transcript) != 2 || r.Status != run.StatusActive {
		t.Fatalf("after first step expected 2 entries and active, got %d %s", len(r.Transcript), r.Status)
	}
	if r.Transcript[0].Role != run.RoleInterviewer || r.Transcript[0].EndFlag == nil || *r.Transcript[0].EndFlag != 0 {
		t.Errorf("unexpected interviewer entry %+v", r.Transcript[0])
	}
	if r.Transcript[1].Role != run.RolePersona || r.Transcript[1].EndFlag != nil {
		t.Errorf("unexpected persona entry %+v", r.Transcript[1])
	}

	r, err = h.orch.Step(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.Status != run.StatusCompleted || len(r.Transcript) != 2 {
		t.Fatalf("second step must complete without generating, got %s with %d entries", r.Status, len(r.Transcript))
	}
	if h.evaluator.calls != 1 {
		t.Fatalf("expected one evaluator call, got %d", h.evaluator.calls)
	}
	if h.participant.calls(prompt.RoleInterviewer) != 1 || h.participant.calls(prompt.RolePersona) != 1 {
		t.Fatal("the limit check must run before any participant call")
	}
	if r.Evaluation == nil || r.Evaluation.OverallScore != 78 || r.Evaluation.StopTiming != evaluation.StopTooEarly {
		t.Fatalf("unexpected evaluation %+v", r.Evaluation)
	}
	if r.EndedAt == nil {
		t.Error("completed run must record endedAt")
	}

	stored, err := h.runs.Get(ctx, r.ID)
	if err != nil || stored.Status != run.StatusCompleted {
		t.Fatalf("completion must be persisted, got %+v, %v", stored, err)
	}
}

func TestSimulatedDoneSkipsPersona(t *testing.T) {
	h := newHarness(t)
	h.participant.done = []bool{true}
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})

	r, err := h.orch.Step(context.Background(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.Status != run.StatusCompleted || len(r.Transcript) != 1 || !r.Transcript[0].Done() {
		t.Fatalf("done interviewer must complete the run at once, got %+v", r)
	}
	if h.participant.calls(prompt.RolePersona) != 0 {
		t.Fatal("persona must not be called after done")
	}
	if h.evaluator.calls != 1 {
		t.Fatalf("expected one evaluator call, got %d", h.evaluator.calls)
	}
}

func TestSimulatedUsesDefaultLimit(t *testing.T) {
	h := newHarness(t)
	h.orch.cfg.DefaultMaxTurns = 4
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		var err error
		if r, err = h.orch.Step(ctx, r.ID); err != nil {
			t.Fatal(err)
		}
	}
	if r.Status != run.StatusActive || r.TurnCount != 4 {
		t.Fatalf("expected 4 turns and active, got %d %s", r.TurnCount, r.Status)
	}
	r, err := h.orch.Step(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != run.StatusCompleted || r.TurnCount != 4 {
		t.Fatalf("expected completion at the default limit, got %d %s", r.TurnCount, r.Status)
	}
}

func TestInteractiveOpening(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})

	r, err := h.orch.Start(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.TurnCount != 1 || r.Transcript[0].Role != run.RoleInterviewer {
		t.Fatalf("expected one interviewer entry, got %+v", r.Transcript)
	}

	again, err := h.orch.Start(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.TurnCount != 1 || h.participant.calls(prompt.RoleInterviewer) != 1 {
		t.Fatal("starting a started run must not generate again")
	}
}

func TestInteractiveChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})

	// an empty message on a fresh run opens it
	r, err := h.orch.Chat(ctx, r.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.TurnCount != 1 {
		t.Fatalf("expected opening entry, got %d", r.TurnCount)
	}

	r, err = h.orch.Chat(ctx, r.ID, "We charge per seat today.")
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.TurnCount != 3 || r.Transcript[1].Role != run.RoleHuman || r.Transcript[2].Role != run.RoleInterviewer {
		t.Fatalf("expected human then interviewer entry, got %+v", r.Transcript)
	}
	if got := h.participant.last().Transcript; len(got) != 2 || got[1].Content != "We charge per seat today." {
		t.Fatalf("interviewer must see the human entry, got %+v", got)
	}

	if _, err := h.orch.Chat(ctx, r.ID, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty message, got %v", err)
	}
	if h.hub.count(broadcast.EventRunTurn) != 2 {
		t.Errorf("expected a turn event per request, got %d", h.hub.count(broadcast.EventRunTurn))
	}
}

func TestInteractiveDoneCompletes(t *testing.T) {
	h := newHarness(t)
	h.participant.done = []bool{false, true}
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})

	if _, err := h.orch.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	r, err := h.orch.Chat(ctx, r.ID, "That is everything.")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != run.StatusCompleted || r.Evaluation == nil || !r.Transcript[2].Done() {
		t.Fatalf("done reply must complete and evaluate, got %+v", r)
	}

	if _, err := h.orch.Chat(ctx, r.ID, "one more thing"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on completed run, got %v", err)
	}
	if h.evaluator.calls != 1 {
		t.Fatalf("evaluator must run once, got %d", h.evaluator.calls)
	}
}

func TestInteractiveCeiling(t *testing.T) {
	h := newHarness(t)
	h.orch.cfg.InteractiveTurnCeiling = 3
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive, MaxTurns: intPtr(99)})
	if r.MaxTurns != nil {
		t.Fatal("maxTurns applies to simulated runs only")
	}

	if _, err := h.orch.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	r, err := h.orch.Chat(ctx, r.ID, "Per seat.")
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.Status != run.StatusCompleted || r.TurnCount != 3 {
		t.Fatalf("expected completion at the ceiling, got %d %s", r.TurnCount, r.Status)
	}
	if r.Transcript[2].Done() {
		t.Error("ceiling completion must not fake the done flag")
	}
}

func TestModeMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sim := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})
	human := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})

	if _, err := h.orch.Chat(ctx, sim.ID, "hi"); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("chat on simulated run: expected ErrInvalidState, got %v", err)
	}
	if _, err := h.orch.Step(ctx, human.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("step on interactive run: expected ErrInvalidState, got %v", err)
	}
	if _, err := h.orch.Step(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEvaluatorFailureYieldsFailureEvaluation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		err     error
	}{
		{"transport error", "", errors.New("connection reset by peer")},
		{"not an object", `["nope"]`, nil},
		{"not json", `Sure! Here is my evaluation`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.evaluator.payload, h.evaluator.err = tt.payload, tt.err
			h.participant.done = []bool{true}
			r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})

			r, err := h.orch.Step(context.Background(), r.ID)
			if err != nil {
				t.Fatalf("evaluator failure must not fail the request: %v", err)
			}
			if r.Status != run.StatusCompleted {
				t.Fatalf("expected completed, got %s", r.Status)
			}
			ev := r.Evaluation
			if ev == nil || ev.OverallScore != 0 || len(ev.Weaknesses) != 1 || ev.Weaknesses[0] != evaluation.FailureWeakness {
				t.Fatalf("expected failure evaluation, got %+v", ev)
			}
			for name, v := range ev.Subscores {
				if v != 0 {
					t.Errorf("subscore %s must be zero, got %v", name, v)
				}
			}
			if len(ev.Subscores) != 7 {
				t.Errorf("expected a zeroed subscore per configured factor, got %d", len(ev.Subscores))
			}
		})
	}
}

func TestStopAndDiscard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})
	if _, err := h.orch.Discard(ctx, r.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("discard of an empty run: expected ErrInvalidState, got %v", err)
	}
	if _, err := h.orch.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Stop(ctx, r.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("stop with one entry: expected ErrInvalidState, got %v", err)
	}

	first, err := h.orch.Discard(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != run.StatusCompleted || first.Evaluation != nil || h.evaluator.calls != 0 {
		t.Fatalf("discard completes without evaluating, got %+v", first)
	}
	second, err := h.orch.Discard(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != first.Status || !second.EndedAt.Equal(*first.EndedAt) || second.TurnCount != first.TurnCount {
		t.Fatal("discarding twice must leave the same terminal state")
	}
	if _, err := h.orch.Stop(ctx, r.ID); err != nil || h.evaluator.calls != 0 {
		t.Fatal("stop after discard must be a no-op")
	}
}

func TestStopEvaluatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})
	if _, err := h.orch.Step(ctx, r.ID); err != nil {
		t.Fatal(err)
	}

	first, err := h.orch.Stop(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.orch.Stop(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h.evaluator.calls != 1 {
		t.Fatalf("expected a single evaluation, got %d", h.evaluator.calls)
	}
	if first.Evaluation == nil || second.Evaluation == nil || second.Evaluation.OverallScore != first.Evaluation.OverallScore {
		t.Fatal("second stop must return the stored evaluation unchanged")
	}
	if _, err := h.orch.Step(ctx, r.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("step on a stopped run: expected ErrInvalidState, got %v", err)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.orch.Import(ctx, run.ImportRequest{
		InitialQuestion: "Why did churn rise?",
		Transcript: []run.Entry{
			{Role: run.RoleInterviewer, Content: "When did you cancel?"},
			{Role: run.RoleHuman, Content: "Last month."},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTurnInvariant(t, r)
	if r.Mode != run.ModeImported || r.Status != run.StatusCompleted || r.Evaluation == nil {
		t.Fatalf("unexpected imported run %+v", r)
	}
	if r.AgentAPromptID != run.RefUploaded {
		t.Errorf("expected uploaded interviewer reference, got %q", r.AgentAPromptID)
	}
	if !r.Transcript[1].Timestamp.After(r.Transcript[0].Timestamp) {
		t.Error("filled timestamps must keep transcript order")
	}
	if h.evaluator.calls != 1 || len(h.evaluator.last.Transcript) != 2 {
		t.Fatalf("expected one evaluation of the full transcript, got %d", h.evaluator.calls)
	}

	_, err = h.orch.Import(ctx, run.ImportRequest{
		InitialQuestion: "q",
		Transcript:      []run.Entry{{Role: "narrator", Content: "x"}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestRunUsesSnapshottedPrompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	v1, err := h.prompts.Create(ctx, prompt.RoleInterviewer, prompt.CreateRequest{Author: "ana", Content: "Interview v1"})
	if err != nil {
		t.Fatal(err)
	}
	r := createRun(t, h, run.CreateRequest{Mode: run.ModeInteractive})
	if r.AgentAPromptID != v1.ID || r.AgentCPromptID != run.RefDefault {
		t.Fatalf("unexpected snapshot %q/%q", r.AgentAPromptID, r.AgentCPromptID)
	}

	if _, err := h.prompts.Create(ctx, prompt.RoleInterviewer, prompt.CreateRequest{Author: "ana", Content: "Interview v2", SetAsActive: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if got := h.participant.last().Prompt; got != "Interview v1" {
		t.Fatalf("run must keep the prompt it was created with, got %q", got)
	}
	if _, ok := h.cache.data[cacheKey(prompt.RoleInterviewer, v1.ID)]; !ok {
		t.Error("resolved prompt version should be cached")
	}
}

func TestPersonaReceivesProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.profiles.Create(ctx, profileRequest("Skeptic", "Questions every claim."))
	if err != nil {
		t.Fatal(err)
	}
	withProfile := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated, ProfileID: p.ID})
	if _, err := h.orch.Step(ctx, withProfile.ID); err != nil {
		t.Fatal(err)
	}
	if got := h.participant.last().Profile; got != "Questions every claim." {
		t.Fatalf("expected stored profile text, got %q", got)
	}

	fallback := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})
	if fallback.ProfileID != "default" {
		t.Fatalf("expected default profile reference, got %q", fallback.ProfileID)
	}
	if _, err := h.orch.Step(ctx, fallback.ID); err != nil {
		t.Fatal(err)
	}
	if got := h.participant.last().Profile; got != DefaultProfile().Content {
		t.Fatalf("expected default profile text, got %q", got)
	}
}

func TestEvaluatorSeesConfiguredSchema(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	st, _ := h.settings.Get(ctx)
	st.ScoringFactors = []evaluation.Factor{{Name: "empathy", Min: 1, Max: 5}}
	st.AgentCModel = "judge-model"
	if _, err := h.settings.Update(ctx, st); err != nil {
		t.Fatal(err)
	}
	h.evaluator.payload = `{"subscores":{"empathy":4}}`
	h.participant.done = []bool{true}

	r := createRun(t, h, run.CreateRequest{Mode: run.ModeSimulated})
	r, err := h.orch.Step(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if h.evaluator.last.Model != "judge-model" {
		t.Errorf("expected evaluator model from settings, got %q", h.evaluator.last.Model)
	}
	if r.Evaluation.Subscores["empathy"] != 4 || r.Evaluation.StopTiming != evaluation.StopAppropriate {
		t.Fatalf("expected reconciled evaluation, got %+v", r.Evaluation)
	}
	if r.Evaluation.Strengths == nil {
		t.Error("missing list fields must default to empty lists")
	}
}
