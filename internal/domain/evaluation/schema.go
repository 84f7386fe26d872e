package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaName names the response format sent with the evaluator call.
const SchemaName = "interview_evaluation"

// Schema is a JSON Schema document. It marshals as a plain object so it can be
// handed to any client expecting a json.Marshaler.
type Schema map[string]any

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

// BuildSchema produces the strict response schema for one evaluator call from
// a configuration snapshot. The result requires a subscores object keyed by
// exactly the factor names plus one field per enabled output option, and
// rejects any other field.
func BuildSchema(factors []Factor, options []OutputOption) (Schema, error) {
	if err := ValidateConfig(factors, options); err != nil {
		return nil, err
	}

	subProps := make(map[string]any, len(factors))
	subRequired := make([]string, 0, len(factors))
	for _, f := range factors {
		subProps[f.Name] = map[string]any{
			"type":        "number",
			"description": factorDescription(f),
		}
		subRequired = append(subRequired, f.Name)
	}

	props := map[string]any{
		FieldSubscores: map[string]any{
			"type":                 "object",
			"description":          "Score per evaluation category",
			"properties":           subProps,
			"required":             subRequired,
			"additionalProperties": false,
		},
	}
	required := []string{FieldSubscores}

	for _, o := range options {
		if !o.Enabled {
			continue
		}
		props[o.Name] = optionSchema(o, factors)
		required = append(required, o.Name)
	}

	return Schema{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}, nil
}

func factorDescription(f Factor) string {
	rng := fmt.Sprintf("score from %g to %g", f.Min, f.Max)
	if d := strings.TrimSpace(f.Description); d != "" {
		return d + " (" + rng + ")"
	}
	return strings.ToUpper(rng[:1]) + rng[1:]
}

func optionSchema(o OutputOption, factors []Factor) map[string]any {
	switch o.Name {
	case FieldOverallScore:
		return map[string]any{"type": "number", "description": o.Description}
	case FieldStopTiming:
		enum := make([]string, len(stopTimings))
		for i, s := range stopTimings {
			enum[i] = string(s)
		}
		return map[string]any{"type": "string", "enum": enum, "description": o.Description}
	case FieldEvidence:
		return map[string]any{
			"type":        "array",
			"description": o.Description,
			"items":       evidenceItemSchema(factors),
		}
	}

	switch o.Type {
	case TypeNumber:
		return map[string]any{"type": "number", "description": o.Description}
	case TypeString:
		return map[string]any{"type": "string", "description": o.Description}
	case TypeStringArray:
		return map[string]any{
			"type":        "array",
			"description": o.Description,
			"items":       map[string]any{"type": "string"},
		}
	default:
		return map[string]any{
			"type":        "array",
			"description": o.Description,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":  map[string]any{"type": "string"},
					"detail": map[string]any{"type": "string"},
				},
				"required":             []string{"title", "detail"},
				"additionalProperties": false,
			},
		}
	}
}

func evidenceItemSchema(factors []Factor) map[string]any {
	category := map[string]any{"type": "string"}
	if len(factors) > 0 {
		names := make([]string, len(factors))
		for i, f := range factors {
			names[i] = f.Name
		}
		category["enum"] = names
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quote":    map[string]any{"type": "string", "description": "Short excerpt from the transcript"},
			"note":     map[string]any{"type": "string", "description": "Why the excerpt supports the evaluation"},
			"category": category,
		},
		"required":             []string{"quote", "note", "category"},
		"additionalProperties": false,
	}
}
