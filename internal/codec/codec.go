// Package codec serializes runs, prompts, profiles and settings to the flat
// JSON records kept by every store backend. Unknown keys are ignored on decode
// so records written by newer versions stay readable.
package codec

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
)

// api matches encoding/json output (HTML escaping, sorted map keys).
var api = sonic.ConfigStd

// Encode serializes an entity record.
func Encode(v any) ([]byte, error) {
	data, err := api.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// DecodeRun parses a run record.
func DecodeRun(data []byte) (*run.Run, error) {
	var r run.Run
	if err := api.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	if r.Transcript == nil {
		r.Transcript = []run.Entry{}
	}
	return &r, nil
}

// DecodePrompt parses a prompt record.
func DecodePrompt(data []byte) (*prompt.Prompt, error) {
	var p prompt.Prompt
	if err := api.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode prompt: %w", err)
	}
	if p.ID == "" {
		return nil, errors.New("decode prompt: id is required")
	}
	if _, err := prompt.ParseRole(string(p.Role)); err != nil {
		return nil, fmt.Errorf("decode prompt: %w", err)
	}
	return &p, nil
}

// DecodeProfile parses a profile record.
func DecodeProfile(data []byte) (*profile.Profile, error) {
	var p profile.Profile
	if err := api.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.ID == "" {
		return nil, errors.New("decode profile: id is required")
	}
	return &p, nil
}

// DecodeSettings parses the settings record.
func DecodeSettings(data []byte) (*settings.Settings, error) {
	var s settings.Settings
	if err := api.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}
