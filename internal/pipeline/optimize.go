package pipeline

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// MaxJobDescriptionLength caps the job description sent to the model.
const MaxJobDescriptionLength = 20000

// OptimizeInput targets a resume at one job.
type OptimizeInput struct {
	ResumeID       int64
	JobDescription string
	CompanyName    string
	JobTitle       string
}

func (in OptimizeInput) normalized() (OptimizeInput, error) {
	in.JobDescription = strings.TrimSpace(in.JobDescription)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.JobTitle = strings.TrimSpace(in.JobTitle)
	if in.ResumeID <= 0 {
		return in, validationError("resumeId must be positive")
	}
	if in.JobDescription == "" {
		return in, validationError("jobDescription is required")
	}
	if len([]rune(in.JobDescription)) > MaxJobDescriptionLength {
		return in, validationError("jobDescription is too long")
	}
	return in, nil
}

// OptimizeResume runs job matching, then generates the optimized resume and
// the cover letter. The cover letter only needs the job description, so it
// runs alongside the match and resume chain. The JobOptimization is stored
// only when all three calls succeed.
func (s *Service) OptimizeResume(ctx context.Context, in OptimizeInput) (out records.JobOptimization, err error) {
	done := s.track(StepOptimize)
	defer func() { done(err) }()

	in, err = in.normalized()
	if err != nil {
		return records.JobOptimization{}, err
	}
	resume, err := s.store.GetResume(ctx, in.ResumeID)
	if err != nil {
		return records.JobOptimization{}, err
	}

	var (
		match       llm.JobMatch
		optimized   string
		coverLetter string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		callCtx, cancel := s.callTimeout(gctx)
		m, err := s.matcher.MatchJob(callCtx, resume.ExtractedText, in.JobDescription)
		cancel()
		if err != nil {
			return collaboratorError(StepOptimize, "job_match", err)
		}
		match = m

		callCtx, cancel = s.callTimeout(gctx)
		defer cancel()
		text, err := s.generator.GenerateResume(callCtx, resume.ExtractedText, m, in.JobTitle, in.CompanyName)
		if err != nil {
			return collaboratorError(StepOptimize, "resume_generation", err)
		}
		optimized = text
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := s.callTimeout(gctx)
		defer cancel()
		text, err := s.generator.GenerateCoverLetter(callCtx, resume.ExtractedText, in.JobDescription, in.CompanyName, in.JobTitle)
		if err != nil {
			return collaboratorError(StepOptimize, "cover_letter", err)
		}
		coverLetter = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return records.JobOptimization{}, err
	}

	out, err = s.store.CreateJobOptimization(ctx, records.JobOptimization{
		ResumeID:        resume.ID,
		JobDescription:  in.JobDescription,
		CompanyName:     in.CompanyName,
		JobTitle:        in.JobTitle,
		MatchScore:      records.ClampScore(match.MatchScore),
		MissingSkills:   match.MissingSkills,
		Recommendations: match.Recommendations,
		OptimizedResume: optimized,
		CoverLetter:     coverLetter,
	})
	if err != nil {
		return records.JobOptimization{}, err
	}

	telemetry.Info("pipeline.optimization_created", map[string]any{
		"resume_id":       resume.ID,
		"optimization_id": out.ID,
		"match_score":     out.MatchScore,
	})
	s.publish(ctx, events.Event{
		Type:           events.OptimizationCreated,
		ResumeID:       resume.ID,
		OptimizationID: out.ID,
		Data:           map[string]any{"matchScore": out.MatchScore},
	})
	return out, nil
}

// GetOptimization returns a stored optimization.
func (s *Service) GetOptimization(ctx context.Context, id int64) (out records.JobOptimization, err error) {
	done := s.track(StepGetOpt)
	defer func() { done(err) }()

	if id <= 0 {
		return records.JobOptimization{}, validationError("optimization id must be positive")
	}
	return s.store.GetJobOptimization(ctx, id)
}
