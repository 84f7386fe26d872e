// Package run defines the Run aggregate: one conversation between an
// interviewer and a respondent, followed by a single evaluation.
package run

import (
	"fmt"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
)

// Mode is fixed at creation and decides how turns are produced.
type Mode string

const (
	ModeInteractive Mode = "human"      // A human answers the interviewer
	ModeSimulated   Mode = "simulation" // A persona agent answers the interviewer
	ModeImported    Mode = "transcript" // A finished transcript supplied by the caller
)

// Status is monotonic: active runs may complete, completed runs never change.
type Status string

const (
	StatusActive    Status = "in_progress"
	StatusCompleted Status = "completed"
)

// Role tags the author of a transcript entry.
type Role string

const (
	RoleInterviewer Role = "agentA"
	RolePersona     Role = "agentB"
	RoleHuman       Role = "user"
)

// Snapshot references recorded instead of a prompt or profile id.
const (
	RefDefault  = "default"  // no stored prompt/profile was active; built-in text used
	RefUploaded = "uploaded" // interviewer of an imported transcript is unknown
)

// Entry is one turn of the transcript. EndFlag is set on interviewer entries
// produced by the orchestrator: 1 when the interviewer declared itself done.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	EndFlag   *int      `json:"endFlag,omitempty"`
}

// Done reports whether the entry carries the completion signal.
func (e Entry) Done() bool {
	return e.EndFlag != nil && *e.EndFlag == 1
}

// EndFlag returns the flag value for an interviewer entry.
func EndFlag(done bool) *int {
	v := 0
	if done {
		v = 1
	}
	return &v
}

// Run is the central aggregate. The prompt and profile ids are captured when
// the run is created and never re-resolved.
type Run struct {
	ID              string                 `json:"runId"`
	Mode            Mode                   `json:"mode"`
	Status          Status                 `json:"status"`
	CreatedAt       time.Time              `json:"createdAt"`
	EndedAt         *time.Time             `json:"endedAt,omitempty"`
	InitialQuestion string                 `json:"initialQuestion"`
	TaskTopic       string                 `json:"taskTopic,omitempty"`
	AgentAPromptID  string                 `json:"agentAPromptVersionId"`
	AgentBPromptID  string                 `json:"agentBPromptVersionId,omitempty"`
	AgentCPromptID  string                 `json:"agentCPromptVersionId"`
	ProfileID       string                 `json:"agentBProfileId,omitempty"`
	Transcript      []Entry                `json:"transcript"`
	TurnCount       int                    `json:"turnCount"`
	MaxTurns        *int                   `json:"maxTurns,omitempty"`
	Evaluation      *evaluation.Evaluation `json:"evaluation,omitempty"`
}

// IsActive reports whether the run still accepts turns.
func (r *Run) IsActive() bool {
	return r.Status == StatusActive
}

// Append adds one entry and increments the turn count. Completed runs reject
// the append.
func (r *Run) Append(e Entry) error {
	if !r.IsActive() {
		return fmt.Errorf("%w: run %s is %s", domain.ErrInvalidState, r.ID, r.Status)
	}
	r.Transcript = append(r.Transcript, e)
	r.TurnCount++
	return nil
}

// Complete moves the run to completed and attaches ev, which is nil when the
// run is discarded. A second completion is rejected so an evaluation is never
// overwritten.
func (r *Run) Complete(at time.Time, ev *evaluation.Evaluation) error {
	if !r.IsActive() {
		return fmt.Errorf("%w: run %s is already %s", domain.ErrInvalidState, r.ID, r.Status)
	}
	r.Status = StatusCompleted
	r.EndedAt = &at
	r.Evaluation = ev
	return nil
}

// TurnLimit returns the run's own ceiling or fallback when none was set.
func (r *Run) TurnLimit(fallback int) int {
	if r.MaxTurns != nil && *r.MaxTurns > 0 {
		return *r.MaxTurns
	}
	return fallback
}

// LastFrom returns the content of the most recent entry by role, or "".
func (r *Run) LastFrom(role Role) string {
	for i := len(r.Transcript) - 1; i >= 0; i-- {
		if r.Transcript[i].Role == role {
			return r.Transcript[i].Content
		}
	}
	return ""
}

// CreateRequest holds the fields for starting an interactive or simulated run.
type CreateRequest struct {
	Mode            Mode   `json:"mode"`
	InitialQuestion string `json:"initialQuestion"`
	TaskTopic       string `json:"taskTopic,omitempty"`
	MaxTurns        *int   `json:"maxTurns,omitempty"`
	ProfileID       string `json:"profileId,omitempty"`
}

// ImportRequest holds a finished transcript to be evaluated.
type ImportRequest struct {
	InitialQuestion string  `json:"initialQuestion"`
	TaskTopic       string  `json:"taskTopic,omitempty"`
	Transcript      []Entry `json:"transcript"`
}

// Snapshot carries the configuration ids recorded on a new run.
type Snapshot struct {
	AgentAPromptID string
	AgentBPromptID string
	AgentCPromptID string
	ProfileID      string
}

// New builds an active run with an empty transcript. MaxTurns is kept only
// for simulated runs.
func New(id string, req CreateRequest, snap Snapshot, now time.Time) *Run {
	r := &Run{
		ID:              id,
		Mode:            req.Mode,
		Status:          StatusActive,
		CreatedAt:       now,
		InitialQuestion: req.InitialQuestion,
		TaskTopic:       req.TaskTopic,
		AgentAPromptID:  snap.AgentAPromptID,
		AgentCPromptID:  snap.AgentCPromptID,
		Transcript:      []Entry{},
	}
	if req.Mode == ModeSimulated {
		r.AgentBPromptID = snap.AgentBPromptID
		r.ProfileID = snap.ProfileID
		r.MaxTurns = req.MaxTurns
	}
	return r
}

// NewImported builds a run from a finished transcript. It is still active; the
// caller completes it with the evaluation. Missing timestamps are filled with
// now plus one second per position so the order survives.
func NewImported(id string, req ImportRequest, agentCPromptID string, now time.Time) *Run {
	r := &Run{
		ID:              id,
		Mode:            ModeImported,
		Status:          StatusActive,
		CreatedAt:       now,
		InitialQuestion: req.InitialQuestion,
		TaskTopic:       req.TaskTopic,
		AgentAPromptID:  RefUploaded,
		AgentCPromptID:  agentCPromptID,
		Transcript:      make([]Entry, 0, len(req.Transcript)),
	}
	for i, e := range req.Transcript {
		if e.Timestamp.IsZero() {
			e.Timestamp = now.Add(time.Duration(i) * time.Second)
		}
		r.Transcript = append(r.Transcript, e)
	}
	r.TurnCount = len(r.Transcript)
	return r
}
