package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/extract"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/render"
	"github.com/Megamind2600/resumerocketpro/internal/shared/metrics"
	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/object"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// DefaultTimeout bounds each collaborator call when none is configured.
const DefaultTimeout = 90 * time.Second

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (extract.Result, error)
}

// RoleAnalyzer suggests roles for resume text.
type RoleAnalyzer interface {
	AnalyzeRoles(ctx context.Context, resumeText string) (llm.RoleAnalysis, error)
}

// JobMatcher compares resume text with a job description.
type JobMatcher interface {
	MatchJob(ctx context.Context, resumeText, jobDescription string) (llm.JobMatch, error)
}

// DocumentGenerator writes the optimized resume and the cover letter.
type DocumentGenerator interface {
	GenerateResume(ctx context.Context, resumeText string, match llm.JobMatch, jobTitle, companyName string) (string, error)
	GenerateCoverLetter(ctx context.Context, resumeText, jobDescription, companyName, jobTitle string) (string, error)
}

// Deps are the collaborators the orchestrator sequences.
type Deps struct {
	Store     records.Store
	Extractor TextExtractor
	Analyzer  RoleAnalyzer
	Matcher   JobMatcher
	Generator DocumentGenerator
	Renderer  render.Renderer
	Payments  payments.Gateway
	// Objects archives uploaded originals. Optional.
	Objects  object.ObjectStore
	Events   events.Publisher
	Currency string
	Timeout  time.Duration
}

// Service runs the pipeline steps. It keeps no per-user state between calls.
type Service struct {
	store     records.Store
	extractor TextExtractor
	analyzer  RoleAnalyzer
	matcher   JobMatcher
	generator DocumentGenerator
	renderer  render.Renderer
	payments  payments.Gateway
	objects   object.ObjectStore
	events    events.Publisher
	currency  string
	timeout   time.Duration
	now       func() time.Time
}

// NewService builds a Service from deps.
func NewService(deps Deps) *Service {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	currency := deps.Currency
	if currency == "" {
		currency = "usd"
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     deps.Store,
		extractor: deps.Extractor,
		analyzer:  deps.Analyzer,
		matcher:   deps.Matcher,
		generator: deps.Generator,
		renderer:  deps.Renderer,
		payments:  deps.Payments,
		objects:   deps.Objects,
		events:    publisher,
		currency:  currency,
		timeout:   timeout,
		now:       time.Now,
	}
}

// callTimeout bounds a single collaborator call.
func (s *Service) callTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// track records step metrics; call the returned func with the step's final error.
func (s *Service) track(step string) func(err error) {
	start := s.now()
	metrics.StepStarted(step)
	return func(err error) {
		elapsed := s.now().Sub(start)
		if err != nil {
			metrics.StepFailed(step, elapsed)
			var stepErr *StepError
			if errors.As(err, &stepErr) {
				kind := "error"
				if errors.Is(stepErr.Kind, ErrCollaboratorTimeout) {
					kind = "timeout"
				}
				metrics.CollaboratorFailed(stepErr.Collaborator, kind)
			}
			return
		}
		metrics.StepCompleted(step, elapsed)
	}
}

// publish is best effort: failures are logged and never fail the step.
func (s *Service) publish(ctx context.Context, ev events.Event) {
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		telemetry.Warn("pipeline.event_publish_failed", map[string]any{
			"event":           string(ev.Type),
			"resume_id":       ev.ResumeID,
			"optimization_id": ev.OptimizationID,
			"payment_id":      ev.PaymentID,
			"error":           err,
		})
	}
}
