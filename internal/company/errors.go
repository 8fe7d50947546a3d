package company

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid company name")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("company name rejected")
)

// ValidationError is returned when a name is empty or whitespace-only.
// It is raised before any storage or notification side effect.
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: name %q is blank", ErrValidation, e.Input)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError is returned when the store cannot durably record or
// retrieve data. Nothing was recorded when Insert returns one.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// RejectedError is returned when the naming policy or the rate limiter
// refuses a name.
type RejectedError struct {
	Name    string
	Rule    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %q by rule %s", ErrRejected, e.Name, e.Rule)
	}
	return fmt.Sprintf("%s: %q by rule %s: %s", ErrRejected, e.Name, e.Rule, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Persistence wraps err as a *PersistenceError for op. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
