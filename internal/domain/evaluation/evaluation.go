// Package evaluation defines the scored result attached to a completed run and
// the builder that turns a scoring configuration into a strict response schema.
package evaluation

// StopTiming is the evaluator's verdict on when the interviewer stopped asking.
type StopTiming string

const (
	StopTooEarly    StopTiming = "too early"
	StopAppropriate StopTiming = "appropriate"
	StopTooLate     StopTiming = "too late"
)

// stopTimings lists the verdicts in the order they appear in the schema enum.
var stopTimings = []StopTiming{StopTooEarly, StopAppropriate, StopTooLate}

// Valid reports whether t is one of the three verdicts.
func (t StopTiming) Valid() bool {
	for _, s := range stopTimings {
		if t == s {
			return true
		}
	}
	return false
}

// Evidence cites a transcript excerpt supporting a score.
type Evidence struct {
	Quote    string `json:"quote"`
	Note     string `json:"note"`
	Category string `json:"category"`
}

// Evaluation is the reconciled evaluator output. Subscores is keyed by the
// scoring factor names configured at evaluation time. Extra holds enabled
// custom output options that have no dedicated field.
type Evaluation struct {
	OverallScore          float64            `json:"overallScore"`
	Subscores             map[string]float64 `json:"subscores"`
	Strengths             []string           `json:"strengths"`
	Weaknesses            []string           `json:"weaknesses"`
	ActionableSuggestions []string           `json:"actionableSuggestions"`
	StopTiming            StopTiming         `json:"stopTiming"`
	Evidence              []Evidence         `json:"evidence"`
	Extra                 map[string]any     `json:"extra,omitempty"`
}

// FailureWeakness is the single weakness recorded when the evaluator could not
// produce a usable result.
const FailureWeakness = "Evaluation failed: the evaluator did not return a usable result, scores are placeholders"

// Failure returns the deterministic evaluation substituted for a failed
// evaluator call: zeroed subscores for every configured factor, one weakness
// noting the failure and empty lists everywhere else.
func Failure(factors []Factor, options []OutputOption) *Evaluation {
	ev := blank(factors, options)
	ev.Weaknesses = []string{FailureWeakness}
	return ev
}

// IsFailure reports whether ev is the substituted failure evaluation.
func (ev *Evaluation) IsFailure() bool {
	return ev != nil && len(ev.Weaknesses) == 1 && ev.Weaknesses[0] == FailureWeakness && ev.OverallScore == 0
}

// blank returns an evaluation holding only defaults.
func blank(factors []Factor, options []OutputOption) *Evaluation {
	ev := &Evaluation{
		Subscores:             make(map[string]float64, len(factors)),
		Strengths:             []string{},
		Weaknesses:            []string{},
		ActionableSuggestions: []string{},
		StopTiming:            StopAppropriate,
		Evidence:              []Evidence{},
	}
	for _, f := range factors {
		ev.Subscores[f.Name] = 0
	}
	for _, o := range options {
		if !o.Enabled || hasDedicatedField(o) {
			continue
		}
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra[o.Name] = o.Type.zero()
	}
	return ev
}
