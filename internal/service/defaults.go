package service

import (
	_ "embed"
	"strings"

	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
)

var (
	//go:embed templates/interviewer.md
	defaultInterviewerPrompt string
	//go:embed templates/persona.md
	defaultPersonaPrompt string
	//go:embed templates/evaluator.md
	defaultEvaluatorPrompt string
	//go:embed templates/profile.md
	defaultProfileContent string
)

// DefaultPromptText returns the built-in instructions for role.
func DefaultPromptText(role prompt.Role) string {
	switch role {
	case prompt.RoleInterviewer:
		return strings.TrimSpace(defaultInterviewerPrompt)
	case prompt.RolePersona:
		return strings.TrimSpace(defaultPersonaPrompt)
	default:
		return strings.TrimSpace(defaultEvaluatorPrompt)
	}
}

// DefaultProfile returns the built-in persona.
func DefaultProfile() *profile.Profile {
	return profile.Default(strings.TrimSpace(defaultProfileContent))
}
