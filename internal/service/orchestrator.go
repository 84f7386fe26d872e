package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/interviewlab/internal/adapter/otel"
	"github.com/Strob0t/interviewlab/internal/config"
	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/port/agent"
	"github.com/Strob0t/interviewlab/internal/port/broadcast"
	"github.com/Strob0t/interviewlab/internal/port/database"
)

// Orchestrator drives runs through their lifecycle. Every operation is one
// read-modify-write of the run record; nothing is held between requests.
type Orchestrator struct {
	store       database.Store
	prompts     *PromptService
	profiles    *ProfileService
	settings    *SettingsService
	participant agent.Participant
	evaluator   agent.Evaluator
	hub         broadcast.Broadcaster
	cfg         config.Orchestrator
	metrics     *cfotel.Metrics
	now         func() time.Time
}

// NewOrchestrator creates an Orchestrator with all dependencies.
func NewOrchestrator(
	store database.Store,
	prompts *PromptService,
	profiles *ProfileService,
	settingsSvc *SettingsService,
	participant agent.Participant,
	evaluator agent.Evaluator,
	hub broadcast.Broadcaster,
	cfg config.Orchestrator,
) *Orchestrator {
	return &Orchestrator{
		store:       store,
		prompts:     prompts,
		profiles:    profiles,
		settings:    settingsSvc,
		participant: participant,
		evaluator:   evaluator,
		hub:         hub,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetMetrics attaches the metric instruments.
func (o *Orchestrator) SetMetrics(m *cfotel.Metrics) { o.metrics = m }

// load fetches a run and checks it belongs to mode and still accepts turns.
func (o *Orchestrator) load(ctx context.Context, id string, mode run.Mode) (*run.Run, error) {
	r, err := o.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Mode != mode {
		return nil, fmt.Errorf("%w: run %s is a %s run", domain.ErrInvalidState, id, r.Mode)
	}
	if !r.IsActive() {
		return nil, fmt.Errorf("%w: run %s is already completed", domain.ErrInvalidState, id)
	}
	return r, nil
}

// Start generates the opening interviewer entry of an interactive run. A run
// that already has entries is returned unchanged.
func (o *Orchestrator) Start(ctx context.Context, id string) (*run.Run, error) {
	r, err := o.load(ctx, id, run.ModeInteractive)
	if err != nil {
		return nil, err
	}
	if len(r.Transcript) > 0 {
		return r, nil
	}
	ctx, span := cfotel.StartRunSpan(ctx, "start", r.ID, string(r.Mode))
	defer span.End()

	return o.interviewerTurn(ctx, r, nil)
}

// Chat appends the human's message, then the interviewer's reply. The run
// completes with an evaluation when the interviewer is done or the turn
// ceiling is reached. An empty message on a run without entries starts it.
func (o *Orchestrator) Chat(ctx context.Context, id, message string) (*run.Run, error) {
	r, err := o.load(ctx, id, run.ModeInteractive)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		if len(r.Transcript) == 0 {
			return o.Start(ctx, id)
		}
		return nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	ctx, span := cfotel.StartRunSpan(ctx, "chat", r.ID, string(r.Mode))
	defer span.End()

	if r.TurnCount >= o.cfg.InteractiveTurnCeiling {
		return o.finish(ctx, r, true, nil)
	}

	human := run.Entry{Role: run.RoleHuman, Content: message, Timestamp: o.now().UTC()}
	if err := r.Append(human); err != nil {
		return nil, err
	}
	o.countTurn(ctx, human.Role)
	return o.interviewerTurn(ctx, r, []run.Entry{human})
}

// interviewerTurn appends one generated interviewer entry and completes the
// run when it signals done or the interactive ceiling is hit. appended holds
// entries already added by the caller in this request.
func (o *Orchestrator) interviewerTurn(ctx context.Context, r *run.Run, appended []run.Entry) (*run.Run, error) {
	reply, err := o.callInterviewer(ctx, r)
	if err != nil {
		return nil, err
	}
	entry := run.Entry{Role: run.RoleInterviewer, Content: reply.Content, Timestamp: o.now().UTC(), EndFlag: run.EndFlag(reply.Done)}
	if err := r.Append(entry); err != nil {
		return nil, err
	}
	o.countTurn(ctx, entry.Role)
	appended = append(appended, entry)

	if reply.Done || r.TurnCount >= o.cfg.InteractiveTurnCeiling {
		return o.finish(ctx, r, true, appended)
	}
	return o.save(ctx, r, appended)
}

// Step advances a simulated run by one exchange. The turn limit is checked
// before any call; a done interviewer completes the run before the persona
// answers.
func (o *Orchestrator) Step(ctx context.Context, id string) (*run.Run, error) {
	r, err := o.load(ctx, id, run.ModeSimulated)
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartRunSpan(ctx, "step", r.ID, string(r.Mode))
	defer span.End()

	if r.TurnCount >= r.TurnLimit(o.cfg.DefaultMaxTurns) {
		return o.finish(ctx, r, true, nil)
	}

	reply, err := o.callInterviewer(ctx, r)
	if err != nil {
		return nil, err
	}
	question := run.Entry{Role: run.RoleInterviewer, Content: reply.Content, Timestamp: o.now().UTC(), EndFlag: run.EndFlag(reply.Done)}
	if err := r.Append(question); err != nil {
		return nil, err
	}
	o.countTurn(ctx, question.Role)
	if reply.Done {
		return o.finish(ctx, r, true, []run.Entry{question})
	}

	answer, err := o.callPersona(ctx, r)
	if err != nil {
		return nil, err
	}
	entry := run.Entry{Role: run.RolePersona, Content: answer.Content, Timestamp: o.now().UTC()}
	if err := r.Append(entry); err != nil {
		return nil, err
	}
	o.countTurn(ctx, entry.Role)
	return o.save(ctx, r, []run.Entry{question, entry})
}

// Stop ends a run with an evaluation. It needs at least two entries; a
// completed run is returned unchanged.
func (o *Orchestrator) Stop(ctx context.Context, id string) (*run.Run, error) {
	return o.terminate(ctx, id, 2, true)
}

// Discard ends a run without an evaluation. It needs at least one entry; a
// completed run is returned unchanged.
func (o *Orchestrator) Discard(ctx context.Context, id string) (*run.Run, error) {
	return o.terminate(ctx, id, 1, false)
}

func (o *Orchestrator) terminate(ctx context.Context, id string, minEntries int, evaluate bool) (*run.Run, error) {
	r, err := o.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsActive() {
		return r, nil
	}
	if len(r.Transcript) < minEntries {
		return nil, fmt.Errorf("%w: run %s needs at least %d transcript entries", domain.ErrInvalidState, id, minEntries)
	}
	op := "discard"
	if evaluate {
		op = "stop"
	}
	ctx, span := cfotel.StartRunSpan(ctx, op, r.ID, string(r.Mode))
	defer span.End()
	return o.finish(ctx, r, evaluate, nil)
}

// Import stores a finished transcript as a completed run, evaluated once.
func (o *Orchestrator) Import(ctx context.Context, req run.ImportRequest) (*run.Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r := run.NewImported(uuid.NewString(), req, o.prompts.ActiveID(ctx, prompt.RoleEvaluator), o.now().UTC())

	ctx, span := cfotel.StartRunSpan(ctx, "import", r.ID, string(r.Mode))
	defer span.End()

	if o.metrics != nil {
		o.metrics.RunsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(r.Mode))))
	}
	return o.finish(ctx, r, true, nil)
}

// finish completes r, evaluating it first when asked, and persists it.
func (o *Orchestrator) finish(ctx context.Context, r *run.Run, evaluate bool, appended []run.Entry) (*run.Run, error) {
	var ev *evaluation.Evaluation
	if evaluate {
		ev = o.evaluate(ctx, r)
	}
	if err := r.Complete(o.now().UTC(), ev); err != nil {
		return nil, err
	}
	if _, err := o.save(ctx, r, appended); err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RunsCompleted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", string(r.Mode)),
			attribute.Bool("evaluated", evaluate),
		))
	}
	o.hub.BroadcastEvent(ctx, broadcast.EventRunCompleted, broadcast.RunEvent{
		RunID: r.ID, Mode: r.Mode, Status: r.Status, TurnCount: r.TurnCount,
	})
	slog.InfoContext(ctx, "run completed", "run_id", r.ID, "mode", r.Mode, "turns", r.TurnCount, "evaluated", evaluate)
	return r, nil
}

func (o *Orchestrator) save(ctx context.Context, r *run.Run, appended []run.Entry) (*run.Run, error) {
	if err := o.store.SaveRun(ctx, r); err != nil {
		return nil, fmt.Errorf("save run %s: %w", r.ID, err)
	}
	if len(appended) > 0 {
		o.hub.BroadcastEvent(ctx, broadcast.EventRunTurn, broadcast.RunEvent{
			RunID: r.ID, Mode: r.Mode, Status: r.Status, TurnCount: r.TurnCount, Entries: appended,
		})
	}
	return r, nil
}

// evaluate scores a finished transcript. Any failure, from a bad scoring
// configuration to a transport error or a non-conforming payload, yields the
// failure evaluation instead of an error.
func (o *Orchestrator) evaluate(ctx context.Context, r *run.Run) *evaluation.Evaluation {
	st, err := o.settings.Get(ctx)
	if err != nil {
		o.evaluatorFailed(ctx, r, err)
		return evaluation.Failure(nil, nil)
	}
	factors, options := st.ScoringFactors, st.OutputOptions

	schema, err := evaluation.BuildSchema(factors, options)
	if err != nil {
		o.evaluatorFailed(ctx, r, err)
		return evaluation.Failure(factors, options)
	}

	model := st.ModelFor(prompt.RoleEvaluator)
	ctx, span := cfotel.StartAgentSpan(ctx, string(prompt.RoleEvaluator), model)
	defer span.End()

	payload, err := o.evaluator.CallEvaluator(ctx, agent.EvaluatorRequest{
		Model:           model,
		Prompt:          o.prompts.Resolve(ctx, prompt.RoleEvaluator, r.AgentCPromptID),
		InitialQuestion: r.InitialQuestion,
		TaskTopic:       r.TaskTopic,
		Transcript:      r.Transcript,
		Schema:          schema,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.evaluatorFailed(ctx, r, fmt.Errorf("%w: %w", domain.ErrEvaluator, err))
		return evaluation.Failure(factors, options)
	}

	ev, err := evaluation.Reconcile(payload, factors, options)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.evaluatorFailed(ctx, r, err)
		return evaluation.Failure(factors, options)
	}
	return ev
}

func (o *Orchestrator) evaluatorFailed(ctx context.Context, r *run.Run, err error) {
	slog.ErrorContext(ctx, "evaluator failed; using failure evaluation", "run_id", r.ID, "error", err)
	if o.metrics != nil {
		o.metrics.EvaluatorFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(r.Mode))))
	}
}

func (o *Orchestrator) callInterviewer(ctx context.Context, r *run.Run) (*agent.Reply, error) {
	model := o.modelFor(ctx, prompt.RoleInterviewer)
	ctx, span := cfotel.StartAgentSpan(ctx, string(prompt.RoleInterviewer), model)
	defer span.End()

	reply, err := o.participant.CallParticipant(ctx, agent.ParticipantRequest{
		Role:            prompt.RoleInterviewer,
		Model:           model,
		Prompt:          o.prompts.Resolve(ctx, prompt.RoleInterviewer, r.AgentAPromptID),
		InitialQuestion: r.InitialQuestion,
		TaskTopic:       r.TaskTopic,
		Transcript:      r.Transcript,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("interviewer turn for run %s: %w", r.ID, err)
	}
	return reply, nil
}

func (o *Orchestrator) callPersona(ctx context.Context, r *run.Run) (*agent.Reply, error) {
	model := o.modelFor(ctx, prompt.RolePersona)
	ctx, span := cfotel.StartAgentSpan(ctx, string(prompt.RolePersona), model)
	defer span.End()

	reply, err := o.participant.CallParticipant(ctx, agent.ParticipantRequest{
		Role:            prompt.RolePersona,
		Model:           model,
		Prompt:          o.prompts.Resolve(ctx, prompt.RolePersona, r.AgentBPromptID),
		InitialQuestion: r.InitialQuestion,
		TaskTopic:       r.TaskTopic,
		Transcript:      r.Transcript,
		Profile:         o.profiles.Resolve(ctx, r.ProfileID),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persona turn for run %s: %w", r.ID, err)
	}
	return reply, nil
}

// modelFor reads the configured model of role. Settings that cannot be read
// leave the choice to the agent adapter.
func (o *Orchestrator) modelFor(ctx context.Context, role prompt.Role) string {
	st, err := o.settings.Get(ctx)
	if err != nil {
		return ""
	}
	return st.ModelFor(role)
}

func (o *Orchestrator) countTurn(ctx context.Context, role run.Role) {
	if o.metrics != nil {
		o.metrics.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("role", string(role))))
	}
}
