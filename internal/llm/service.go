package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

const maxRoles = 5

// RoleAnalysis is the structured role suggestion for a resume.
type RoleAnalysis struct {
	Roles           []records.SuggestedRole `json:"roles"`
	Skills          []string                `json:"skills"`
	ExperienceLevel string                  `json:"experienceLevel"`
	Location        string                  `json:"location"`
	Industries      []string                `json:"industries"`
	Explanation     string                  `json:"explanation"`
}

// OptimizedSections are the rewrite hints returned by job matching.
type OptimizedSections struct {
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
}

// JobMatch compares a resume with a job description.
type JobMatch struct {
	MatchScore        int               `json:"matchScore"`
	MissingSkills     []string          `json:"missingSkills"`
	Recommendations   []string          `json:"recommendations"`
	OptimizedSections OptimizedSections `json:"optimizedSections"`
}

// Service implements the role analysis, job match and document generation collaborators.
type Service struct {
	completer Completer
}

// NewService wraps a provider.
func NewService(completer Completer) *Service {
	if completer == nil {
		completer = PlaceholderClient{}
	}
	return &Service{completer: completer}
}

// AnalyzeRoles suggests roles for the resume text.
func (s *Service) AnalyzeRoles(ctx context.Context, resumeText string) (RoleAnalysis, error) {
	raw, err := s.completer.Complete(ctx, Request{
		Tier:   TierAnalysis,
		System: SystemPrompt(),
		Prompt: buildRoleAnalysisPrompt(resumeText),
		JSON:   true,
	})
	if err != nil {
		return RoleAnalysis{}, fmt.Errorf("role analysis: %w", err)
	}
	payload, err := extractJSONObject(raw)
	if err != nil {
		return RoleAnalysis{}, fmt.Errorf("role analysis: %w", err)
	}
	if err := validateJSON(roleAnalysisLoader, payload); err != nil {
		telemetry.Warn("llm.schema_mismatch", map[string]any{"step": "role_analysis", "error": err})
		return RoleAnalysis{}, fmt.Errorf("role analysis: %w", err)
	}

	var parsed struct {
		Roles []struct {
			Title       string  `json:"title"`
			Match       float64 `json:"match"`
			Industry    string  `json:"industry"`
			SalaryRange string  `json:"salaryRange"`
		} `json:"roles"`
		Skills          []string `json:"skills"`
		ExperienceLevel string   `json:"experienceLevel"`
		Location        string   `json:"location"`
		Industries      []string `json:"industries"`
		Explanation     string   `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return RoleAnalysis{}, fmt.Errorf("role analysis: %w: %v", ErrInvalidOutput, err)
	}

	out := RoleAnalysis{
		Roles:           []records.SuggestedRole{},
		Skills:          cleanList(parsed.Skills),
		ExperienceLevel: strings.TrimSpace(parsed.ExperienceLevel),
		Location:        strings.TrimSpace(parsed.Location),
		Industries:      cleanList(parsed.Industries),
		Explanation:     strings.TrimSpace(parsed.Explanation),
	}
	for _, role := range parsed.Roles {
		title := strings.TrimSpace(role.Title)
		if title == "" {
			continue
		}
		out.Roles = append(out.Roles, records.SuggestedRole{
			Title:       title,
			Match:       score(role.Match),
			Industry:    strings.TrimSpace(role.Industry),
			SalaryRange: strings.TrimSpace(role.SalaryRange),
		})
		if len(out.Roles) == maxRoles {
			break
		}
	}
	if len(out.Roles) == 0 {
		return RoleAnalysis{}, fmt.Errorf("role analysis: %w: no roles suggested", ErrInvalidOutput)
	}
	return out, nil
}

// MatchJob scores the resume against the job description.
func (s *Service) MatchJob(ctx context.Context, resumeText, jobDescription string) (JobMatch, error) {
	raw, err := s.completer.Complete(ctx, Request{
		Tier:   TierAnalysis,
		System: SystemPrompt(),
		Prompt: buildJobMatchPrompt(resumeText, jobDescription),
		JSON:   true,
	})
	if err != nil {
		return JobMatch{}, fmt.Errorf("job match: %w", err)
	}
	payload, err := extractJSONObject(raw)
	if err != nil {
		return JobMatch{}, fmt.Errorf("job match: %w", err)
	}
	if err := validateJSON(jobMatchLoader, payload); err != nil {
		telemetry.Warn("llm.schema_mismatch", map[string]any{"step": "job_match", "error": err})
		return JobMatch{}, fmt.Errorf("job match: %w", err)
	}

	var parsed struct {
		MatchScore        float64           `json:"matchScore"`
		MissingSkills     []string          `json:"missingSkills"`
		Recommendations   []string          `json:"recommendations"`
		OptimizedSections OptimizedSections `json:"optimizedSections"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return JobMatch{}, fmt.Errorf("job match: %w: %v", ErrInvalidOutput, err)
	}
	return JobMatch{
		MatchScore:      score(parsed.MatchScore),
		MissingSkills:   cleanList(parsed.MissingSkills),
		Recommendations: cleanList(parsed.Recommendations),
		OptimizedSections: OptimizedSections{
			Summary:    strings.TrimSpace(parsed.OptimizedSections.Summary),
			Skills:     cleanList(parsed.OptimizedSections.Skills),
			Experience: cleanList(parsed.OptimizedSections.Experience),
		},
	}, nil
}

// GenerateResume writes the optimized resume text.
func (s *Service) GenerateResume(ctx context.Context, resumeText string, match JobMatch, jobTitle, companyName string) (string, error) {
	text, err := s.generate(ctx, buildOptimizedResumePrompt(resumeText, match, jobTitle, companyName))
	if err != nil {
		return "", fmt.Errorf("optimized resume: %w", err)
	}
	return text, nil
}

// GenerateCoverLetter writes a cover letter for the job.
func (s *Service) GenerateCoverLetter(ctx context.Context, resumeText, jobDescription, companyName, jobTitle string) (string, error) {
	text, err := s.generate(ctx, buildCoverLetterPrompt(resumeText, jobDescription, companyName, jobTitle))
	if err != nil {
		return "", fmt.Errorf("cover letter: %w", err)
	}
	return text, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := s.completer.Complete(ctx, Request{
		Tier:   TierFast,
		System: SystemPrompt(),
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	text := stripCodeFence(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func extractJSONObject(raw string) (string, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return "", ErrEmptyResponse
	}
	if json.Valid([]byte(payload)) {
		return payload, nil
	}

	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no json object found", ErrInvalidOutput)
	}

	candidate := payload[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: invalid json object", ErrInvalidOutput)
	}
	return candidate, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// score rounds a model score into [0,100]. Clamping happens before the int
// conversion so out-of-range floats cannot wrap.
func score(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 100:
		return 100
	}
	return int(math.Round(v))
}
