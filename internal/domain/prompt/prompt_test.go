package prompt

import (
	"errors"
	"testing"

	"github.com/Strob0t/interviewlab/internal/domain"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if _, err := ParseRole("agentD"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		ok   bool
	}{
		{"valid", CreateRequest{Author: "kim", Content: "Ask one question at a time."}, true},
		{"missing author", CreateRequest{Content: "x"}, false},
		{"blank author", CreateRequest{Author: "  ", Content: "x"}, false},
		{"missing content", CreateRequest{Author: "kim"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateRequestTrims(t *testing.T) {
	req := CreateRequest{Name: " v2 ", Author: " kim ", Content: "x"}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	if req.Name != "v2" || req.Author != "kim" {
		t.Errorf("expected trimmed fields, got %q / %q", req.Name, req.Author)
	}
}

func TestDefault(t *testing.T) {
	p := Default(RoleEvaluator, "score it")
	if !p.IsDefault() || !p.IsActive || p.Role != RoleEvaluator {
		t.Errorf("unexpected default prompt %+v", p)
	}
}
