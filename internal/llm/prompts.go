package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/system.txt
	systemPrompt string
	//go:embed prompts/role_analysis.txt
	roleAnalysisPrompt string
	//go:embed prompts/job_match.txt
	jobMatchPrompt string
	//go:embed prompts/optimized_resume.txt
	optimizedResumePrompt string
	//go:embed prompts/cover_letter.txt
	coverLetterPrompt string
)

// SystemPrompt returns the shared system instruction.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

func buildRoleAnalysisPrompt(resumeText string) string {
	return strings.NewReplacer(
		"{{RESUME_TEXT}}", resumeText,
	).Replace(roleAnalysisPrompt)
}

func buildJobMatchPrompt(resumeText, jobDescription string) string {
	return strings.NewReplacer(
		"{{RESUME_TEXT}}", resumeText,
		"{{JOB_DESCRIPTION}}", jobDescription,
	).Replace(jobMatchPrompt)
}

func buildOptimizedResumePrompt(resumeText string, match JobMatch, jobTitle, companyName string) string {
	return strings.NewReplacer(
		"{{RESUME_TEXT}}", resumeText,
		"{{JOB_TITLE}}", orDefault(jobTitle, "the advertised role"),
		"{{COMPANY_NAME}}", orDefault(companyName, "the hiring company"),
		"{{SUMMARY}}", orDefault(match.OptimizedSections.Summary, "keep the current summary"),
		"{{SKILLS}}", orDefault(strings.Join(match.OptimizedSections.Skills, ", "), "none given"),
		"{{EXPERIENCE}}", orDefault(strings.Join(match.OptimizedSections.Experience, "; "), "none given"),
		"{{RECOMMENDATIONS}}", orDefault(strings.Join(match.Recommendations, "; "), "none given"),
	).Replace(optimizedResumePrompt)
}

func buildCoverLetterPrompt(resumeText, jobDescription, companyName, jobTitle string) string {
	return strings.NewReplacer(
		"{{RESUME_TEXT}}", resumeText,
		"{{JOB_DESCRIPTION}}", jobDescription,
		"{{COMPANY_NAME}}", orDefault(companyName, "your company"),
		"{{JOB_TITLE}}", orDefault(jobTitle, "open"),
	).Replace(coverLetterPrompt)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
