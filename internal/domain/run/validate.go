package run

import (
	"fmt"
	"strings"

	"github.com/Strob0t/interviewlab/internal/domain"
)

var validModes = map[Mode]bool{
	ModeInteractive: true,
	ModeSimulated:   true,
	ModeImported:    true,
}

var validStatuses = map[Status]bool{
	StatusActive:    true,
	StatusCompleted: true,
}

var validRoles = map[Role]bool{
	RoleInterviewer: true,
	RolePersona:     true,
	RoleHuman:       true,
}

// Validate checks a decoded run record.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("runId is required")
	}
	if !validModes[r.Mode] {
		return fmt.Errorf("invalid mode %q", r.Mode)
	}
	if !validStatuses[r.Status] {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.TurnCount < 0 {
		return fmt.Errorf("turnCount must be non-negative")
	}
	return nil
}

// Validate checks a create request. Imported runs go through ImportRequest.
func (c *CreateRequest) Validate() error {
	if c.Mode != ModeInteractive && c.Mode != ModeSimulated {
		return fmt.Errorf("%w: mode must be %q or %q", domain.ErrValidation, ModeInteractive, ModeSimulated)
	}
	if strings.TrimSpace(c.InitialQuestion) == "" {
		return fmt.Errorf("%w: initialQuestion is required", domain.ErrValidation)
	}
	if c.MaxTurns != nil && *c.MaxTurns < 1 {
		return fmt.Errorf("%w: maxTurns must be >= 1", domain.ErrValidation)
	}
	return nil
}

// Validate checks an imported transcript: known roles and non-empty content.
func (i *ImportRequest) Validate() error {
	if strings.TrimSpace(i.InitialQuestion) == "" {
		return fmt.Errorf("%w: initialQuestion is required", domain.ErrValidation)
	}
	if len(i.Transcript) == 0 {
		return fmt.Errorf("%w: transcript must not be empty", domain.ErrValidation)
	}
	for n, e := range i.Transcript {
		if !validRoles[e.Role] {
			return fmt.Errorf("%w: transcript[%d]: role must be agentA, agentB or user", domain.ErrValidation, n)
		}
		if strings.TrimSpace(e.Content) == "" {
			return fmt.Errorf("%w: transcript[%d]: content must not be empty", domain.ErrValidation, n)
		}
	}
	return nil
}
