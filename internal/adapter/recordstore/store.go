// Package recordstore implements database.Store over any objectstore.Backend.
// It owns the record codec, the read degradation policy, prompt activation and
// the settings cache.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Strob0t/interviewlab/internal/codec"
	"github.com/Strob0t/interviewlab/internal/domain"
	"github.com/Strob0t/interviewlab/internal/domain/profile"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

const settingsID = "global"

var settingsKey = objectstore.Key{Kind: objectstore.KindSettings, ID: settingsID}

// Store is the typed store.
type Store struct {
	backend  objectstore.Backend
	settings *settingsCache
}

// New creates a typed store on backend. Settings reads are served from memory
// for settingsTTL after each refresh; zero disables the cache.
func New(backend objectstore.Backend, settingsTTL time.Duration) *Store {
	return &Store{
		backend:  backend,
		settings: &settingsCache{ttl: settingsTTL, now: time.Now},
	}
}

// Backend returns the underlying backend name.
func (s *Store) Backend() string { return s.backend.Name() }

// read fetches one record. Any failure is reported as domain.ErrNotFound;
// failures other than absence are logged first.
func (s *Store) read(ctx context.Context, key objectstore.Key) ([]byte, error) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "store: read degraded to not found",
				"backend", s.backend.Name(), "key", key.Path(), "error", err)
		}
		return nil, fmt.Errorf("%s %s: %w", key.Kind, key.ID, domain.ErrNotFound)
	}
	return data, nil
}

// readAll lists a collection. A failed listing is reported as empty.
func (s *Store) readAll(ctx context.Context, kind objectstore.Kind, scope string) []objectstore.Record {
	recs, err := s.backend.List(ctx, kind, scope)
	if err != nil {
		slog.WarnContext(ctx, "store: list degraded to empty",
			"backend", s.backend.Name(), "kind", kind, "scope", scope, "error", err)
		return nil
	}
	return recs
}

func (s *Store) write(ctx context.Context, key objectstore.Key, createdAt time.Time, v any) error {
	data, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("save %s %s: %w: %w", key.Kind, key.ID, domain.ErrStoreWrite, err)
	}
	if err := s.backend.Put(ctx, objectstore.Record{Key: key, Data: data, CreatedAt: createdAt}); err != nil {
		return fmt.Errorf("save %s %s: %w: %w", key.Kind, key.ID, domain.ErrStoreWrite, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key objectstore.Key) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s %s: %w: %w", key.Kind, key.ID, domain.ErrStoreWrite, err)
	}
	return nil
}

// decodeAll decodes every record, skipping the ones that do not parse, and
// orders the result newest first.
func decodeAll[T any](ctx context.Context, recs []objectstore.Record, decode func([]byte) (*T, error), created func(*T) time.Time) []T {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := decode(rec.Data)
		if err != nil {
			slog.WarnContext(ctx, "store: skipping unparseable record", "key", rec.Key.Path(), "error", err)
			continue
		}
		out = append(out, *v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return created(&out[i]).After(created(&out[j]))
	})
	return out
}

func runKey(id string) objectstore.Key {
	return objectstore.Key{Kind: objectstore.KindRun, ID: id}
}

// GetRun implements database.Store.
func (s *Store) GetRun(ctx context.Context, id string) (*run.Run, error) {
	data, err := s.read(ctx, runKey(id))
	if err != nil {
		return nil, err
	}
	r, err := codec.DecodeRun(data)
	if err != nil {
		slog.WarnContext(ctx, "store: unparseable run", "run_id", id, "error", err)
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// ListRuns implements database.Store.
func (s *Store) ListRuns(ctx context.Context) ([]run.Run, error) {
	recs := s.readAll(ctx, objectstore.KindRun, "")
	return decodeAll(ctx, recs, codec.DecodeRun, func(r *run.Run) time.Time { return r.CreatedAt }), nil
}

// SaveRun implements database.Store.
func (s *Store) SaveRun(ctx context.Context, r *run.Run) error {
	return s.write(ctx, runKey(r.ID), r.CreatedAt, r)
}

// DeleteRun implements database.Store.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.remove(ctx, runKey(id))
}

func promptKey(role prompt.Role, id string) objectstore.Key {
	return objectstore.Key{Kind: objectstore.KindPrompt, Scope: string(role), ID: id}
}

// GetPrompt implements database.Store.
func (s *Store) GetPrompt(ctx context.Context, role prompt.Role, id string) (*prompt.Prompt, error) {
	data, err := s.read(ctx, promptKey(role, id))
	if err != nil {
		return nil, err
	}
	p, err := codec.DecodePrompt(data)
	if err != nil || p.Role != role {
		slog.WarnContext(ctx, "store: unparseable prompt", "role", role, "prompt_id", id, "error", err)
		return nil, fmt.Errorf("prompt %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ListPrompts implements database.Store.
func (s *Store) ListPrompts(ctx context.Context, role prompt.Role) ([]prompt.Prompt, error) {
	recs := s.readAll(ctx, objectstore.KindPrompt, string(role))
	return decodeAll(ctx, recs, codec.DecodePrompt, func(p *prompt.Prompt) time.Time { return p.CreatedAt }), nil
}

// SavePrompt implements database.Store.
func (s *Store) SavePrompt(ctx context.Context, p *prompt.Prompt) error {
	return s.write(ctx, promptKey(p.Role, p.ID), p.CreatedAt, p)
}

// ActivatePrompt marks id active, then clears the flag on every other prompt
// of the role. The target is written first so a failure part way leaves the
// requested prompt active.
func (s *Store) ActivatePrompt(ctx context.Context, role prompt.Role, id string) (*prompt.Prompt, error) {
	target, err := s.GetPrompt(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		target.IsActive = true
		if err := s.SavePrompt(ctx, target); err != nil {
			return nil, err
		}
	}

	others, _ := s.ListPrompts(ctx, role)
	for i := range others {
		p := &others[i]
		if p.ID == id || !p.IsActive {
			continue
		}
		p.IsActive = false
		if err := s.SavePrompt(ctx, p); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// DeletePrompt implements database.Store.
func (s *Store) DeletePrompt(ctx context.Context, role prompt.Role, id string) error {
	return s.remove(ctx, promptKey(role, id))
}

func profileKey(id string) objectstore.Key {
	return objectstore.Key{Kind: objectstore.KindProfile, ID: id}
}

// GetProfile implements database.Store.
func (s *Store) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	data, err := s.read(ctx, profileKey(id))
	if err != nil {
		return nil, err
	}
	p, err := codec.DecodeProfile(data)
	if err != nil {
		slog.WarnContext(ctx, "store: unparseable profile", "profile_id", id, "error", err)
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ListProfiles implements database.Store.
func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	recs := s.readAll(ctx, objectstore.KindProfile, "")
	return decodeAll(ctx, recs, codec.DecodeProfile, func(p *profile.Profile) time.Time { return p.CreatedAt }), nil
}

// SaveProfile implements database.Store.
func (s *Store) SaveProfile(ctx context.Context, p *profile.Profile) error {
	return s.write(ctx, profileKey(p.ID), p.CreatedAt, p)
}

// DeleteProfile implements database.Store.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	return s.remove(ctx, profileKey(id))
}

// GetSettings implements database.Store.
func (s *Store) GetSettings(ctx context.Context) (*settings.Settings, error) {
	if cached, missing, ok := s.settings.get(); ok {
		if missing {
			return nil, fmt.Errorf("settings: %w", domain.ErrNotFound)
		}
		return cached, nil
	}
	data, err := s.read(ctx, settingsKey)
	if err != nil {
		s.settings.setMissing()
		return nil, err
	}
	st, err := codec.DecodeSettings(data)
	if err != nil {
		slog.WarnContext(ctx, "store: unparseable settings", "error", err)
		s.settings.setMissing()
		return nil, fmt.Errorf("settings: %w", domain.ErrNotFound)
	}
	s.settings.set(st)
	return clone(st), nil
}

// SaveSettings implements database.Store.
func (s *Store) SaveSettings(ctx context.Context, st *settings.Settings) error {
	if err := s.write(ctx, settingsKey, st.UpdatedAt, st); err != nil {
		s.settings.invalidate()
		return err
	}
	s.settings.set(st)
	return nil
}
