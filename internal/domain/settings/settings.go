// Package settings defines the evaluation and model configuration shared by
// all runs.
package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
)

// Settings is the singleton configuration record. Runs read it when they are
// evaluated, so an edit affects runs completed afterwards.
type Settings struct {
	AgentAModel    string                    `json:"agentAModel"`
	AgentBModel    string                    `json:"agentBModel"`
	AgentCModel    string                    `json:"agentCModel"`
	ScoringFactors []evaluation.Factor       `json:"scoringFactors"`
	OutputOptions  []evaluation.OutputOption `json:"outputOptions"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// Validate checks the models and the scoring configuration.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.AgentAModel) == "" || strings.TrimSpace(s.AgentBModel) == "" || strings.TrimSpace(s.AgentCModel) == "" {
		return fmt.Errorf("%w: all agent models are required", domain.ErrValidation)
	}
	return evaluation.ValidateConfig(s.ScoringFactors, s.OutputOptions)
}

// ModelFor returns the model configured for a role.
func (s *Settings) ModelFor(role prompt.Role) string {
	switch role {
	case prompt.RoleInterviewer:
		return s.AgentAModel
	case prompt.RolePersona:
		return s.AgentBModel
	default:
		return s.AgentCModel
	}
}

// Defaults returns the built-in configuration used until settings are saved.
func Defaults(model string) *Settings {
	return &Settings{
		AgentAModel:    model,
		AgentBModel:    model,
		AgentCModel:    model,
		ScoringFactors: DefaultFactors(),
		OutputOptions:  DefaultOutputOptions(),
	}
}

// DefaultFactors are the seven interview quality categories, scored 0 to 100.
func DefaultFactors() []evaluation.Factor {
	return []evaluation.Factor{
		{Name: "relevance", Min: 0, Max: 100, Description: "Follow-ups stayed on topic and served the initial question"},
		{Name: "coverage", Min: 0, Max: 100, Description: "The interviewer gathered the key missing information"},
		{Name: "clarity", Min: 0, Max: 100, Description: "Questions were specific and easy to answer"},
		{Name: "efficiency", Min: 0, Max: 100, Description: "No unnecessary turns"},
		{Name: "redundancy", Min: 0, Max: 100, Description: "The interviewer avoided repeating itself"},
		{Name: "reasoning", Min: 0, Max: 100, Description: "Questions were sequenced logically and built on answers"},
		{Name: "tone", Min: 0, Max: 100, Description: "Tone was appropriate and helpful"},
	}
}

// DefaultOutputOptions enables every standard evaluation field.
func DefaultOutputOptions() []evaluation.OutputOption {
	return []evaluation.OutputOption{
		{Name: evaluation.FieldOverallScore, Description: "Overall interview quality from 0 to 100", Type: evaluation.TypeNumber, Enabled: true},
		{Name: evaluation.FieldStrengths, Description: "What the interviewer did well", Type: evaluation.TypeStringArray, Enabled: true},
		{Name: evaluation.FieldWeaknesses, Description: "Where the interviewer fell short", Type: evaluation.TypeStringArray, Enabled: true},
		{Name: evaluation.FieldActionableSuggestions, Description: "Concrete changes for the next interview", Type: evaluation.TypeStringArray, Enabled: true},
		{Name: evaluation.FieldStopTiming, Description: "Whether the interviewer stopped too early, appropriately or too late", Type: evaluation.TypeString, Enabled: true},
		{Name: evaluation.FieldEvidence, Description: "Three to eight transcript quotes backing the scores", Type: evaluation.TypeObjectArray, Enabled: true},
	}
}
