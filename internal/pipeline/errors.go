package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Megamind2600/resumerocketpro/internal/records"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrFileTooLarge        = fmt.Errorf("%w: file exceeds the 10MB limit", ErrValidation)
	ErrUnsupportedFile     = fmt.Errorf("%w: only PDF and DOCX files are allowed", ErrValidation)
	ErrNotFound            = records.ErrNotFound
	ErrPaymentRequired     = errors.New("payment required")
	ErrAlreadyPaid         = errors.New("optimization already paid")
	ErrCollaborator        = errors.New("collaborator failure")
	ErrCollaboratorTimeout = errors.New("collaborator timeout")
)

// Error codes used in the response envelope.
const (
	CodeValidation      = "validation_error"
	CodeFileTooLarge    = "file_too_large"
	CodeNotFound        = "not_found"
	CodePaymentRequired = "payment_required"
	CodeAlreadyPaid     = "already_paid"
	CodeProcessing      = "processing_failed"
	CodeTimeout         = "processing_timeout"
	CodeInternal        = "internal_error"
)

// SafeRetryMessage is the only message returned for collaborator failures.
const SafeRetryMessage = "We could not process this step. Please try again."

// Step names, used for logs and metrics.
const (
	StepUpload        = "upload_resume"
	StepJobLinks      = "generate_job_links"
	StepOptimize      = "optimize_resume"
	StepGetOpt        = "get_optimization"
	StepCreatePayment = "create_payment_intent"
	StepPaymentStatus = "payment_status"
	StepDownload      = "download"
	StepPreview       = "preview"
	StepGetAnalysis   = "get_analysis"
)

// StepError is a collaborator failure inside a pipeline step. It matches
// both its kind (ErrCollaborator or ErrCollaboratorTimeout) and the cause.
type StepError struct {
	Step         string
	Collaborator string
	Kind         error
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Collaborator, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func collaboratorError(step, collaborator string, err error) error {
	kind := ErrCollaborator
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrCollaboratorTimeout
	}
	return &StepError{Step: step, Collaborator: collaborator, Kind: kind, Err: err}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
