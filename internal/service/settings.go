package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/evaluation"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
	"github.com/Strob0t/interviewlab/internal/port/database"
)

// SettingsService reads and updates the evaluation and model configuration.
type SettingsService struct {
	store        database.Store
	defaultModel string
	now          func() time.Time
}

// NewSettingsService creates a SettingsService. defaultModel fills every role
// until settings are saved.
func NewSettingsService(store database.Store, defaultModel string) *SettingsService {
	return &SettingsService{store: store, defaultModel: defaultModel, now: time.Now}
}

// Get returns the stored settings or the built-in defaults.
func (s *SettingsService) Get(ctx context.Context) (*settings.Settings, error) {
	st, err := s.store.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return settings.Defaults(s.defaultModel), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Update validates and replaces the settings. The scoring configuration must
// produce a valid evaluation schema.
func (s *SettingsService) Update(ctx context.Context, st *settings.Settings) (*settings.Settings, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if _, err := evaluation.BuildSchema(st.ScoringFactors, st.OutputOptions); err != nil {
		return nil, err
	}
	st.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return st, nil
}

// Schema previews the evaluation schema built from the current settings.
func (s *SettingsService) Schema(ctx context.Context) (evaluation.Schema, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return evaluation.BuildSchema(st.ScoringFactors, st.OutputOptions)
}
