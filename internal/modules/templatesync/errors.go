package templatesync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested template version does not exist.
	ErrNotFound = errors.New("template not found")
	// ErrConcurrencyConflict is returned after the retry budget is exhausted,
	// or by the store when a concurrent writer won the race.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInvalidVersionTransition is returned for edits that would mutate a
	// frozen version in place.
	ErrInvalidVersionTransition = errors.New("invalid version transition")
	// ErrDuplicateNaturalKey is returned when a supplied or generated name
	// collides with a live entity and probing could not resolve it.
	ErrDuplicateNaturalKey = errors.New("duplicate natural key")
	// ErrOrphanReference is returned when a desired node claims a persisted
	// identity that exists in neither the persisted tree nor the batch.
	ErrOrphanReference = errors.New("orphan reference")
	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a structural problem in the desired tree with
// enough context for the builder UI to re-prompt.
type ValidationError struct {
	Level  string
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q: %s", e.Level, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Level, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OrphanReferenceError carries the dangling reference details.
type OrphanReferenceError struct {
	Level  string
	Ref    string
	Parent string
}

func (e *OrphanReferenceError) Error() string {
	return fmt.Sprintf("%s %q references missing parent or identity (parent %q)", e.Level, e.Ref, e.Parent)
}

func (e *OrphanReferenceError) Unwrap() error { return ErrOrphanReference }

// DuplicateNaturalKeyError names the colliding entity.
type DuplicateNaturalKeyError struct {
	Level string
	Name  string
}

func (e *DuplicateNaturalKeyError) Error() string {
	return fmt.Sprintf("%s name %q already exists", e.Level, e.Name)
}

func (e *DuplicateNaturalKeyError) Unwrap() error { return ErrDuplicateNaturalKey }
