// Package database defines the typed store port used by the services.
package database

import (
	"context"

	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
)

// Store is the port interface for entity persistence.
//
// Reads degrade: a Get that fails for any reason returns domain.ErrNotFound
// and a List that fails returns an empty slice. Writes never degrade: Save and
// Delete failures wrap domain.ErrStoreWrite.
type Store interface {
	// Runs, listed newest first.
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRuns(ctx context.Context) ([]run.Run, error)
	SaveRun(ctx context.Context, r *run.Run) error
	DeleteRun(ctx context.Context, id string) error

	// Prompts, scoped by role and listed newest first.
	GetPrompt(ctx context.Context, role prompt.Role, id string) (*prompt.Prompt, error)
	ListPrompts(ctx context.Context, role prompt.Role) ([]prompt.Prompt, error)
	SavePrompt(ctx context.Context, p *prompt.Prompt) error
	// ActivatePrompt marks id active and every other prompt of role inactive.
	ActivatePrompt(ctx context.Context, role prompt.Role, id string) (*prompt.Prompt, error)
	DeletePrompt(ctx context.Context, role prompt.Role, id string) error

	// Profiles, listed newest first.
	GetProfile(ctx context.Context, id string) (*profile.Profile, error)
	ListProfiles(ctx context.Context) ([]profile.Profile, error)
	SaveProfile(ctx context.Context, p *profile.Profile) error
	DeleteProfile(ctx context.Context, id string) error

	// Settings singleton. GetSettings returns domain.ErrNotFound until saved.
	GetSettings(ctx context.Context) (*settings.Settings, error)
	SaveSettings(ctx context.Context, s *settings.Settings) error
}
