package model

import (
	"errors"
	"fmt"
)

// Error taxonomy of a retrieval call
var (
	ErrResolutionUnavailable = errors.New("resolution unavailable")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrModelLoadFailure      = errors.New("model load failure")
	ErrTimeout               = errors.New("timeout")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// Retrieval stages used in error reports
const (
	StageResolve = "resolve"
	StageExpand  = "expand"
	StageRank    = "rank"
	StageFormat  = "format"
	StageModel   = "model"
	StageStore   = "store"
)

// RetrievalError reports which stage failed and on what subject (entity id, model id, query)
type RetrievalError struct {
	Kind    error
	Stage   string
	Subject string
	Err     error
}

// NewRetrievalError creates a new RetrievalError
func NewRetrievalError(kind error, stage, subject string, err error) *RetrievalError {
	return &RetrievalError{
		Kind:    kind,
		Stage:   stage,
		Subject: subject,
		Err:     err,
	}
}

// Error implements the error interface
func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("[%s] %v", e.Stage, e.Kind)
	if e.Subject != "" {
		msg += fmt.Sprintf(" (%s)", e.Subject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind so errors.Is(err, ErrTimeout) works
func (e *RetrievalError) Is(target error) bool {
	return e.Kind == target
}

// Unwrap returns the underlying cause
func (e *RetrievalError) Unwrap() error {
	return e.Err
}
