package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateQuery    = errors.New("query already exists")
	ErrDuplicateBaseTerm = errors.New("base term already exists")
	ErrQueryBusy         = errors.New("query is being processed")
	ErrQueueHalted       = errors.New("queue halted by fatal extraction error")

	ErrTransientExtraction = errors.New("transient extraction error")
	ErrFatalExtraction     = errors.New("fatal extraction error")
)

// ValidationError reports a malformed request. It is surfaced directly and
// never retried.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

type ExtractionKind int

const (
	ExtractionTransient ExtractionKind = iota
	ExtractionFatal
)

func (k ExtractionKind) String() string {
	if k == ExtractionFatal {
		return "fatal"
	}
	return "transient"
}

// ExtractionError wraps a provider failure with its kind. Fatal errors
// (credential or quota) halt the queue; transient ones fail a single job.
type ExtractionError struct {
	Kind   ExtractionKind
	Op     string
	Status int
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Kind, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrFatalExtraction:
		return e.Kind == ExtractionFatal
	case ErrTransientExtraction:
		return e.Kind == ExtractionTransient
	}
	return false
}

func Fatal(op string, status int, err error) *ExtractionError {
	return &ExtractionError{Kind: ExtractionFatal, Op: op, Status: status, Err: err}
}

func Transient(op string, status int, err error) *ExtractionError {
	return &ExtractionError{Kind: ExtractionTransient, Op: op, Status: status, Err: err}
}

// IsFatal reports whether err must stop the worker instead of failing one job.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalExtraction)
}

// PersistenceError is a write failure. Written is the number of records that
// were committed before the failure.
type PersistenceError struct {
	Op      string
	Written int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed after %d written: %v", e.Op, e.Written, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
