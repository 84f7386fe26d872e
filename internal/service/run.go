package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/interviewlab/internal/adapter/otel"
	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/port/broadcast"
	"github.com/Strob0t/interviewlab/internal/port/database"
)

// RunService creates, lists and deletes runs. Turns are driven by the
// Orchestrator.
type RunService struct {
	store   database.Store
	prompts *PromptService
	hub     broadcast.Broadcaster
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewRunService creates a RunService.
func NewRunService(store database.Store, prompts *PromptService, hub broadcast.Broadcaster) *RunService {
	return &RunService{store: store, prompts: prompts, hub: hub, now: time.Now}
}

// SetMetrics attaches the metric instruments.
func (s *RunService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Create starts an interactive or simulated run. The active prompt of every
// role and the persona profile are recorded on the run; "default" stands in
// for anything not configured.
func (s *RunService) Create(ctx context.Context, req run.CreateRequest) (*run.Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snap := run.Snapshot{
		AgentAPromptID: s.prompts.ActiveID(ctx, prompt.RoleInterviewer),
		AgentCPromptID: s.prompts.ActiveID(ctx, prompt.RoleEvaluator),
	}
	if req.Mode == run.ModeSimulated {
		snap.AgentBPromptID = s.prompts.ActiveID(ctx, prompt.RolePersona)
		snap.ProfileID = req.ProfileID
		if snap.ProfileID == "" {
			snap.ProfileID = profile.DefaultID
		}
	}

	r := run.New(uuid.NewString(), req, snap, s.now().UTC())
	if err := s.store.SaveRun(ctx, r); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RunsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(r.Mode))))
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventRunCreated, broadcast.RunEvent{RunID: r.ID, Mode: r.Mode, Status: r.Status})
	slog.InfoContext(ctx, "run created", "run_id", r.ID, "mode", r.Mode)
	return r, nil
}

// Get returns a run by id.
func (s *RunService) Get(ctx context.Context, id string) (*run.Run, error) {
	return s.store.GetRun(ctx, id)
}

// List returns all runs, newest first.
func (s *RunService) List(ctx context.Context) ([]run.Run, error) {
	return s.store.ListRuns(ctx)
}

// Delete removes a run and its index entries.
func (s *RunService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetRun(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteRun(ctx, id); err != nil {
		return err
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventRunDeleted, broadcast.RunEvent{RunID: id})
	slog.InfoContext(ctx, "run deleted", "run_id", id)
	return nil
}
