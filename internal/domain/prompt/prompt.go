// Package prompt defines versioned instruction texts for the three agent roles.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// Role names the agent a prompt instructs.
type Role string

const (
	RoleInterviewer Role = "agentA"
	RolePersona     Role = "agentB"
	RoleEvaluator   Role = "agentC"
)

// Roles lists every prompt role.
var Roles = []Role{RoleInterviewer, RolePersona, RoleEvaluator}

// ParseRole validates a role taken from a request path or flag.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown prompt role %q", domain.ErrValidation, s)
}

// DefaultID identifies the built-in prompt of a role.
const DefaultID = "default"

// Prompt is one immutable version of a role's instructions. Within a role at
// most one prompt is active; activation is handled by the store.
type Prompt struct {
	ID        string    `json:"id"`
	Role      Role      `json:"agentType"`
	Name      string    `json:"name,omitempty"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsDefault reports whether p is the synthesized built-in prompt.
func (p *Prompt) IsDefault() bool {
	return p.ID == DefaultID
}

// Default wraps built-in text as the active prompt of role.
func Default(role Role, content string) *Prompt {
	return &Prompt{
		ID:       DefaultID,
		Role:     role,
		Name:     "Default",
		Author:   "system",
		Content:  content,
		IsActive: true,
	}
}

// CreateRequest holds the fields for adding a prompt version.
type CreateRequest struct {
	Name        string `json:"name,omitempty"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	SetAsActive bool   `json:"setAsActive"`
}

// Validate checks required fields and trims them in place.
func (c *CreateRequest) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Author = strings.TrimSpace(c.Author)
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if c.Author == "" {
		return fmt.Errorf("%w: author is required", domain.ErrValidation)
	}
	return nil
}
