package records

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalid              = errors.New("invalid record")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidTransition    = errors.New("invalid payment status transition")
	ErrPendingPaymentExists = errors.New("pending payment already exists")
)

// Kinds of stored entities, used in NotFoundError.
const (
	KindUser            = "user"
	KindResume          = "resume"
	KindResumeAnalysis  = "resume_analysis"
	KindJobOptimization = "job_optimization"
	KindPayment         = "payment"
)

// NotFoundError reports a missing entity. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
