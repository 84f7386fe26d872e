// Package profile defines persona descriptions used by simulated runs.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// DefaultID identifies the built-in persona. It cannot be deleted.
const DefaultID = "default"

// Profile is a named persona. Content is opaque text handed to the persona agent.
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Default wraps the built-in persona text.
func Default(content string) *Profile {
	return &Profile{ID: DefaultID, Name: "Default", Content: content}
}

// Request holds the fields for creating or replacing a profile.
type Request struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Validate checks required fields and trims the name.
func (r *Request) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	return nil
}
