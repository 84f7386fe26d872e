package evaluation

import (
	"fmt"
	"strings"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// Field names with a fixed place in the evaluation payload.
const (
	FieldSubscores             = "subscores"
	FieldOverallScore          = "overallScore"
	FieldStopTiming            = "stopTiming"
	FieldEvidence              = "evidence"
	FieldStrengths             = "strengths"
	FieldWeaknesses            = "weaknesses"
	FieldActionableSuggestions = "actionableSuggestions"
)

// isSpecial reports whether name always gets a fixed shape regardless of the
// declared type.
func isSpecial(name string) bool {
	return name == FieldOverallScore || name == FieldStopTiming || name == FieldEvidence
}

// hasDedicatedField reports whether o is stored in a named Evaluation field
// rather than in Extra. The list fields qualify only when declared as string
// arrays.
func hasDedicatedField(o OutputOption) bool {
	if isSpecial(o.Name) {
		return true
	}
	switch o.Name {
	case FieldStrengths, FieldWeaknesses, FieldActionableSuggestions:
		return o.Type == TypeStringArray
	}
	return false
}

// ValueType is the declared type of an output option.
type ValueType string

const (
	TypeNumber      ValueType = "number"
	TypeString      ValueType = "string"
	TypeStringArray ValueType = "string_array"
	TypeObjectArray ValueType = "object_array"
)

var validValueTypes = map[ValueType]bool{
	TypeNumber:      true,
	TypeString:      true,
	TypeStringArray: true,
	TypeObjectArray: true,
}

func (t ValueType) zero() any {
	switch t {
	case TypeNumber:
		return float64(0)
	case TypeString:
		return ""
	case TypeStringArray:
		return []string{}
	default:
		return []map[string]any{}
	}
}

// Factor is one named scoring dimension with its numeric range.
type Factor struct {
	Name        string  `json:"name"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Description string  `json:"description,omitempty"`
}

// OutputOption is one top-level field the evaluator is asked to produce.
type OutputOption struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        ValueType `json:"type"`
	Enabled     bool      `json:"enabled"`
}

// ValidateConfig checks a scoring configuration before it is used to build a
// schema. Factor and option names must be unique and non-empty.
func ValidateConfig(factors []Factor, options []OutputOption) error {
	seen := make(map[string]bool, len(factors))
	for i, f := range factors {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("%w: scoring factor %d has no name", domain.ErrValidation, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate scoring factor %q", domain.ErrValidation, name)
		}
		if f.Min >= f.Max {
			return fmt.Errorf("%w: scoring factor %q: min must be below max", domain.ErrValidation, name)
		}
		seen[name] = true
	}

	seen = make(map[string]bool, len(options))
	for i, o := range options {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return fmt.Errorf("%w: output option %d has no name", domain.ErrValidation, i)
		}
		if name == FieldSubscores {
			return fmt.Errorf("%w: output option name %q is reserved", domain.ErrValidation, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate output option %q", domain.ErrValidation, name)
		}
		if !validValueTypes[o.Type] {
			return fmt.Errorf("%w: output option %q has invalid type %q", domain.ErrValidation, name, o.Type)
		}
		seen[name] = true
	}
	return nil
}
