package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/interviewlab/internal/domain"
)

// Reconcile parses a candidate evaluator payload against the configuration it
// was requested with. Missing or mistyped fields take their defaults, unknown
// fields and subscores outside the configured factors are dropped. Only a
// payload that is not a JSON object is rejected.
func Reconcile(payload []byte, factors []Factor, options []OutputOption) (*Evaluation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(payload), &fields); err != nil {
		return nil, fmt.Errorf("%w: parse payload: %v", domain.ErrEvaluator, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", domain.ErrEvaluator)
	}

	ev := blank(factors, options)

	if raw, ok := fields[FieldSubscores]; ok {
		var subs map[string]json.RawMessage
		if json.Unmarshal(raw, &subs) == nil {
			for _, f := range factors {
				ev.Subscores[f.Name] = number(subs[f.Name])
			}
		}
	}

	ev.OverallScore = number(fields[FieldOverallScore])

	var timing string
	if json.Unmarshal(fields[FieldStopTiming], &timing) == nil && StopTiming(timing).Valid() {
		ev.StopTiming = StopTiming(timing)
	}

	ev.Evidence = evidenceList(fields[FieldEvidence])

	for _, o := range options {
		if !o.Enabled {
			continue
		}
		raw := fields[o.Name]
		switch {
		case isSpecial(o.Name):
			// handled above
		case hasDedicatedField(o):
			list := stringList(raw)
			switch o.Name {
			case FieldStrengths:
				ev.Strengths = list
			case FieldWeaknesses:
				ev.Weaknesses = list
			case FieldActionableSuggestions:
				ev.ActionableSuggestions = list
			}
		default:
			ev.Extra[o.Name] = typedValue(o.Type, raw)
		}
	}

	return ev, nil
}

// number decodes a JSON number, returning 0 for anything else.
func number(raw json.RawMessage) float64 {
	var f float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return 0
	}
	return f
}

// stringList keeps the string elements of a JSON array.
func stringList(raw json.RawMessage) []string {
	out := []string{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// evidenceList keeps the well-formed evidence objects of a JSON array. An item
// needs at least a quote.
func evidenceList(raw json.RawMessage) []Evidence {
	out := []Evidence{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var e Evidence
		if json.Unmarshal(item, &e) == nil && e.Quote != "" {
			out = append(out, e)
		}
	}
	return out
}

func typedValue(t ValueType, raw json.RawMessage) any {
	switch t {
	case TypeNumber:
		return number(raw)
	case TypeString:
		var s string
		if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
			return ""
		}
		return s
	case TypeStringArray:
		return stringList(raw)
	default:
		out := []map[string]any{}
		var items []json.RawMessage
		if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
			return out
		}
		for _, item := range items {
			var obj map[string]any
			if json.Unmarshal(item, &obj) == nil && obj != nil {
				out = append(out, obj)
			}
		}
		return out
	}
}
