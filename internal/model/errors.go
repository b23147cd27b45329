package model

import (
	"errors"
	"fmt"
)

// Sentinels carried by ReferenceError. Match them with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("name already used by a sibling")
	ErrCycle       = errors.New("move would make the category its own ancestor")
	ErrHasChildren = errors.New("category has children")
	ErrInUse       = errors.New("category is referenced")
	ErrAmbiguous   = errors.New("ambiguous reference")
	ErrInvalid     = errors.New("invalid argument")
)

// ReferenceError reports an operation on a missing entity or one that would
// break the category forest. Callers receive it as a value and decide.
type ReferenceError struct {
	Entity string // "category", "rule", "transaction", "budget"
	Ref    string
	Err    error
}

func (e *ReferenceError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Ref, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// NotFound builds a ReferenceError for a missing entity id.
func NotFound(entity string, id int64) *ReferenceError {
	return &ReferenceError{Entity: entity, Ref: fmt.Sprintf("#%d", id), Err: ErrNotFound}
}

// IsReferenceError reports whether err is, or wraps, a ReferenceError.
func IsReferenceError(err error) bool {
	var re *ReferenceError
	return errors.As(err, &re)
}
