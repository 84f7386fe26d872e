package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/domain/settings"
	"github.com/Strob0t/interviewlab/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Runs         *service.RunService
	Orchestrator *service.Orchestrator
	Prompts      *service.PromptService
	Profiles     *service.ProfileService
	Settings     *service.SettingsService
	Backend      string // name of the active store backend, reported by /health

	// ModelGuards wrap the routes that call the language model (rate limit,
	// idempotent replay). Nil entries are skipped.
	ModelGuards []func(http.Handler) http.Handler
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Health reports liveness and the store backend in use.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.Backend})
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

type chatRequest struct {
	Message string `json:"message"`
}

// ChatRun appends a human message to an interactive run and returns the run
// with the interviewer's reply.
func (h *Handlers) ChatRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[chatRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Orchestrator.Chat(r.Context(), urlParam(r, "id"), req.Message)
	if err != nil {
		writeDomainError(w, r, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

// promptRole parses the {role} path segment, answering 400 when it is unknown.
func promptRole(w http.ResponseWriter, r *http.Request) (prompt.Role, bool) {
	role, err := prompt.ParseRole(urlParam(r, "role"))
	if err != nil {
		writeDomainError(w, r, err, "")
		return "", false
	}
	return role, true
}

// ListPrompts lists the versions of one role, newest first.
func (h *Handlers) ListPrompts(w http.ResponseWriter, r *http.Request) {
	role, ok := promptRole(w, r)
	if !ok {
		return
	}
	handleList(func(ctx context.Context) ([]prompt.Prompt, error) {
		return h.Prompts.List(ctx, role)
	})(w, r)
}

// CreatePrompt stores a new version for a role.
func (h *Handlers) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	role, ok := promptRole(w, r)
	if !ok {
		return
	}
	handleCreate(func(ctx context.Context, req prompt.CreateRequest) (*prompt.Prompt, error) {
		return h.Prompts.Create(ctx, role, req)
	})(w, r)
}

// ActivatePrompt makes {id} the active version of its role.
func (h *Handlers) ActivatePrompt(w http.ResponseWriter, r *http.Request) {
	role, ok := promptRole(w, r)
	if !ok {
		return
	}
	p, err := h.Prompts.Activate(r.Context(), role, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "prompt not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePrompt removes an inactive version.
func (h *Handlers) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	role, ok := promptRole(w, r)
	if !ok {
		return
	}
	handleDelete(func(ctx context.Context, id string) error {
		return h.Prompts.Delete(ctx, role, id)
	}, "prompt not found")(w, r)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSettings returns the current settings or the defaults.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings replaces the settings after validating the scoring configuration.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[settings.Settings](w, r)
	if !ok {
		return
	}
	st, err := h.Settings.Update(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SettingsSchema previews the evaluation schema built from the current settings.
func (h *Handlers) SettingsSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.Settings.Schema(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, schema)
}
