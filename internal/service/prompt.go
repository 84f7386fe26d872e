package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/port/cache"
	"github.com/Strob0t/interviewlab/internal/port/database"
)

// PromptService manages prompt versions and resolves the text a run uses.
type PromptService struct {
	store    database.Store
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewPromptService creates a PromptService. c caches prompt text by version
// id and may be nil.
func NewPromptService(store database.Store, c cache.Cache, cacheTTL time.Duration) *PromptService {
	return &PromptService{store: store, cache: c, cacheTTL: cacheTTL, now: time.Now}
}

// List returns the prompts of role, newest first. A role without stored
// prompts lists its built-in default.
func (s *PromptService) List(ctx context.Context, role prompt.Role) ([]prompt.Prompt, error) {
	list, err := s.store.ListPrompts(ctx, role)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []prompt.Prompt{*prompt.Default(role, DefaultPromptText(role))}, nil
	}
	return list, nil
}

// Create stores a new version. It becomes active when requested or when it
// is the first prompt of its role.
func (s *PromptService) Create(ctx context.Context, role prompt.Role, req prompt.CreateRequest) (*prompt.Prompt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.ListPrompts(ctx, role)
	if err != nil {
		return nil, err
	}

	p := &prompt.Prompt{
		ID:        uuid.NewString(),
		Role:      role,
		Name:      req.Name,
		Author:    req.Author,
		Content:   req.Content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SavePrompt(ctx, p); err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	if req.SetAsActive || len(existing) == 0 {
		activated, err := s.store.ActivatePrompt(ctx, role, p.ID)
		if err != nil {
			return nil, fmt.Errorf("create prompt: activate: %w", err)
		}
		p = activated
	}
	slog.InfoContext(ctx, "prompt created", "role", role, "prompt_id", p.ID, "active", p.IsActive)
	return p, nil
}

// Activate makes id the active prompt of role.
func (s *PromptService) Activate(ctx context.Context, role prompt.Role, id string) (*prompt.Prompt, error) {
	return s.store.ActivatePrompt(ctx, role, id)
}

// Delete removes a prompt. The active prompt cannot be deleted.
func (s *PromptService) Delete(ctx context.Context, role prompt.Role, id string) error {
	p, err := s.store.GetPrompt(ctx, role, id)
	if err != nil {
		return err
	}
	if p.IsActive {
		return fmt.Errorf("%w: prompt %s is active; activate another version first", domain.ErrInvalidState, id)
	}
	if err := s.store.DeletePrompt(ctx, role, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cacheKey(role, id))
	}
	return nil
}

// ActiveID returns the id of the active prompt of role, or run.RefDefault
// when none is stored.
func (s *PromptService) ActiveID(ctx context.Context, role prompt.Role) string {
	list, _ := s.store.ListPrompts(ctx, role)
	for i := range list {
		if list[i].IsActive {
			return list[i].ID
		}
	}
	return run.RefDefault
}

// Resolve returns the text of the version recorded on a run. Default and
// unknown references, and versions that can no longer be read, resolve to the
// built-in text.
func (s *PromptService) Resolve(ctx context.Context, role prompt.Role, id string) string {
	if id == "" || id == run.RefDefault || id == run.RefUploaded {
		return DefaultPromptText(role)
	}

	key := cacheKey(role, id)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return string(data)
		}
	}

	p, err := s.store.GetPrompt(ctx, role, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "prompt: resolve failed", "role", role, "prompt_id", id, "error", err)
		}
		return DefaultPromptText(role)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(p.Content), s.cacheTTL); err != nil {
			slog.DebugContext(ctx, "prompt: cache set failed", "prompt_id", id, "error", err)
		}
	}
	return p.Content
}

func cacheKey(role prompt.Role, id string) string {
	return "prompt." + string(role) + "." + id
}
