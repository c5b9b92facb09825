package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	responses map[Tier]string
	err       error
	requests  []Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.responses[req.Tier], nil
}

func TestAnalyzeRolesNormalizesOutput(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: "```json\n" + `{
		"roles": [
			{"title": " Backend Engineer ", "match": 92.6, "industry": "Software", "salaryRange": "$140k - $170k"},
			{"title": "", "match": 50},
			{"title": "Platform Engineer", "match": 140},
			{"title": "SRE", "match": -3},
			{"title": "Data Engineer", "match": 70},
			{"title": "Solutions Architect", "match": 65},
			{"title": "Engineering Manager", "match": 60}
		],
		"skills": ["Go", " ", "Postgres"],
		"experienceLevel": "Senior Level",
		"location": "Austin, TX",
		"industries": null
	}` + "\n```"}}

	out, err := NewService(fake).AnalyzeRoles(context.Background(), "resume text")
	require.NoError(t, err)

	require.Len(t, out.Roles, maxRoles)
	assert.Equal(t, "Backend Engineer", out.Roles[0].Title)
	assert.Equal(t, 93, out.Roles[0].Match)
	assert.Equal(t, 100, out.Roles[1].Match)
	assert.Equal(t, 0, out.Roles[2].Match)
	assert.Equal(t, []string{"Go", "Postgres"}, out.Skills)
	assert.NotNil(t, out.Industries)
	assert.Empty(t, out.Industries)
	assert.Equal(t, "Austin, TX", out.Location)

	require.Len(t, fake.requests, 1)
	assert.True(t, fake.requests[0].JSON)
	assert.Contains(t, fake.requests[0].Prompt, "resume text")
	assert.NotEmpty(t, fake.requests[0].System)
}

func TestAnalyzeRolesRejectsSchemaMismatch(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: `{"roles": "Backend Engineer"}`}}

	_, err := NewService(fake).AnalyzeRoles(context.Background(), "resume")
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestAnalyzeRolesRequiresAtLeastOneRole(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: `{"roles": [], "skills": [], "experienceLevel": "", "location": "", "industries": []}`}}

	_, err := NewService(fake).AnalyzeRoles(context.Background(), "resume")
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestMatchJobClampsScoreAndFillsLists(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: `Here you go: {
		"matchScore": 134,
		"missingSkills": null,
		"recommendations": ["Quantify impact"],
		"optimizedSections": {"summary": "Backend engineer", "skills": ["Go"]}
	}`}}

	out, err := NewService(fake).MatchJob(context.Background(), "resume", "job description")
	require.NoError(t, err)
	assert.Equal(t, 100, out.MatchScore)
	assert.NotNil(t, out.MissingSkills)
	assert.Equal(t, []string{"Quantify impact"}, out.Recommendations)
	assert.NotNil(t, out.OptimizedSections.Experience)
	assert.Contains(t, fake.requests[0].Prompt, "job description")
}

func TestMatchJobNegativeScore(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: `{"matchScore": -20, "missingSkills": [], "recommendations": [], "optimizedSections": {}}`}}

	out, err := NewService(fake).MatchJob(context.Background(), "resume", "jd")
	require.NoError(t, err)
	assert.Equal(t, 0, out.MatchScore)
}

func TestScoresOutsideIntRangeClamp(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"1e20", 100},
		{"-1e20", 0},
		{"99.6", 100},
		{"0.4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: `{"matchScore": ` + tt.raw + `, "missingSkills": [], "recommendations": [], "optimizedSections": {}}`}}
			out, err := NewService(fake).MatchJob(context.Background(), "resume", "jd")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.MatchScore)

			fake = &fakeCompleter{responses: map[Tier]string{TierAnalysis: `{"roles": [{"title": "SRE", "match": ` + tt.raw + `}], "skills": [], "experienceLevel": "", "location": "", "industries": []}`}}
			roles, err := NewService(fake).AnalyzeRoles(context.Background(), "resume")
			require.NoError(t, err)
			require.Len(t, roles.Roles, 1)
			assert.Equal(t, tt.want, roles.Roles[0].Match)
		})
	}
}

func TestMatchJobRejectsNonJSON(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierAnalysis: "I cannot help with that."}}

	_, err := NewService(fake).MatchJob(context.Background(), "resume", "jd")
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestGenerateUsesFastTier(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierFast: "```\nJANE DOE\nEngineer\n```"}}
	svc := NewService(fake)

	resume, err := svc.GenerateResume(context.Background(), "resume", JobMatch{
		Recommendations:   []string{"Lead with Go"},
		OptimizedSections: OptimizedSections{Summary: "Go engineer", Skills: []string{"Go", "SQL"}},
	}, "Backend Engineer", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE\nEngineer", resume)
	assert.Equal(t, TierFast, fake.requests[0].Tier)
	assert.False(t, fake.requests[0].JSON)
	assert.Contains(t, fake.requests[0].Prompt, "Go, SQL")
	assert.Contains(t, fake.requests[0].Prompt, "Backend Engineer at Acme")

	letter, err := svc.GenerateCoverLetter(context.Background(), "resume", "jd", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, letter)
	assert.Contains(t, fake.requests[1].Prompt, "your company")
}

func TestGenerateRejectsEmptyText(t *testing.T) {
	fake := &fakeCompleter{responses: map[Tier]string{TierFast: "  "}}

	_, err := NewService(fake).GenerateCoverLetter(context.Background(), "resume", "jd", "Acme", "Engineer")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestProviderErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeCompleter{err: boom}

	_, err := NewService(fake).AnalyzeRoles(context.Background(), "resume")
	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.HasPrefix(err.Error(), "role analysis:"))
}

func TestPlaceholderClient(t *testing.T) {
	_, err := NewService(nil).MatchJob(context.Background(), "resume", "jd")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"plain":                     "plain",
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\ntext\n```":            "text",
		"  ```markdown\n# Hi\n```  ": "# Hi",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripCodeFence(in), "input %q", in)
	}
}
