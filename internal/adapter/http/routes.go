package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/interviewlab/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Runs
		r.Get("/runs", handleList(h.Runs.List))
		r.Post("/runs", handleCreate(h.Runs.Create))
		model := r.With(h.guards()...)
		model.Post("/runs/import", handleCreate(h.Orchestrator.Import))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RunID)
			r.Get("/runs/{id}", handleGet(h.Runs.Get, "run not found"))
			r.Delete("/runs/{id}", handleDelete(h.Runs.Delete, "run not found"))
			r.Post("/runs/{id}/discard", handleRunAction(h.Orchestrator.Discard))

			model := r.With(h.guards()...)
			model.Post("/runs/{id}/start", handleRunAction(h.Orchestrator.Start))
			model.Post("/runs/{id}/chat", h.ChatRun)
			model.Post("/runs/{id}/step", handleRunAction(h.Orchestrator.Step))
			model.Post("/runs/{id}/stop", handleRunAction(h.Orchestrator.Stop))
		})

		// Prompts
		r.Get("/prompts/{role}", h.ListPrompts)
		r.Post("/prompts/{role}", h.CreatePrompt)
		r.Post("/prompts/{role}/{id}/activate", h.ActivatePrompt)
		r.Delete("/prompts/{role}/{id}", h.DeletePrompt)

		// Profiles
		r.Get("/profiles", handleList(h.Profiles.List))
		r.Post("/profiles", handleCreate(h.Profiles.Create))
		r.Put("/profiles/{id}", handleUpdate(h.Profiles.Update, "profile not found"))
		r.Delete("/profiles/{id}", handleDelete(h.Profiles.Delete, "profile not found"))

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/settings/schema", h.SettingsSchema)
	})
}

func (h *Handlers) guards() []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, 0, len(h.ModelGuards))
	for _, g := range h.ModelGuards {
		if g != nil {
			out = append(out, g)
		}
	}
	return out
}
