// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested run, prompt or profile does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState indicates the operation is not permitted by the entity's
// current status or mode, e.g. a turn request against a completed run.
var ErrInvalidState = errors.New("invalid state")

// ErrValidation indicates malformed caller input.
var ErrValidation = errors.New("validation failed")

// ErrStoreWrite indicates a put or delete against the durable store failed.
// Write failures are never swallowed.
var ErrStoreWrite = errors.New("store write failed")

// ErrEvaluator indicates the evaluator call failed or returned a payload that
// could not be reconciled. It never reaches persisted state.
var ErrEvaluator = errors.New("evaluator failed")
