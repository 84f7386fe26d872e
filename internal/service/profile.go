package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/port/database"
)

// ProfileService manages persona profiles.
type ProfileService struct {
	store database.Store
	now   func() time.Time
}

// NewProfileService creates a ProfileService.
func NewProfileService(store database.Store) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

// List returns stored profiles newest first, or the default profile when
// none are stored.
func (s *ProfileService) List(ctx context.Context) ([]profile.Profile, error) {
	list, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []profile.Profile{*DefaultProfile()}, nil
	}
	return list, nil
}

// Create stores a new profile.
func (s *ProfileService) Create(ctx context.Context, req profile.Request) (*profile.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &profile.Profile{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Content:   req.Content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// Update replaces name and content of an existing profile.
func (s *ProfileService) Update(ctx context.Context, id string, req profile.Request) (*profile.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.Name = req.Name
	p.Content = req.Content
	p.UpdatedAt = &now
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// Delete removes a profile. The default profile cannot be deleted.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if id == profile.DefaultID {
		return fmt.Errorf("%w: the default profile cannot be deleted", domain.ErrInvalidState)
	}
	if _, err := s.store.GetProfile(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteProfile(ctx, id)
}

// Resolve returns the persona text for id, falling back to the default
// profile when id is empty, "default" or no longer readable.
func (s *ProfileService) Resolve(ctx context.Context, id string) string {
	if id == "" || id == profile.DefaultID {
		return DefaultProfile().Content
	}
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return DefaultProfile().Content
	}
	return p.Content
}
