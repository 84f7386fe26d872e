// Package agent defines the calls the orchestrator makes to the three agents.
// Transport and model choice belong to the adapter.
package agent

import (
	"context"

	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
)

// ParticipantRequest is the context handed to the interviewer or the persona.
type ParticipantRequest struct {
	Role            prompt.Role // RoleInterviewer or RolePersona
	Model           string
	Prompt          string
	InitialQuestion string
	TaskTopic       string
	Transcript      []run.Entry
	Profile         string // persona description, persona calls only
}

// Reply is one generated turn. Done is meaningful for the interviewer only.
type Reply struct {
	Content string
	Done    bool
}

// Participant produces conversation turns.
type Participant interface {
	CallParticipant(ctx context.Context, req ParticipantRequest) (*Reply, error)
}

// EvaluatorRequest carries the finished conversation and the schema the
// response must follow.
type EvaluatorRequest struct {
	Model           string
	Prompt          string
	InitialQuestion string
	TaskTopic       string
	Transcript      []run.Entry
	Schema          evaluation.Schema
}

// Evaluator scores a finished conversation. It returns the raw payload;
// reconciliation against the schema is the caller's job.
type Evaluator interface {
	CallEvaluator(ctx context.Context, req EvaluatorRequest) ([]byte, error)
}
