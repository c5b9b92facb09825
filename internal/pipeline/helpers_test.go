package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/extract"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/render"
)

const sampleText = "JANE DOE\nBackend Engineer with eight years of Go, Postgres and AWS experience."

type fakeExtractor struct {
	text     string
	fallback bool
	err      error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte, fileName string) (extract.Result, error) {
	if f.err != nil {
		return extract.Result{}, f.err
	}
	mimeType, err := extract.MimeTypeFor(fileName)
	if err != nil {
		return extract.Result{}, err
	}
	return extract.Result{
		Text:     f.text,
		FileName: fileName,
		FileSize: int64(len(data)),
		MimeType: mimeType,
		Fallback: f.fallback,
	}, nil
}

// fakeAI implements RoleAnalyzer, JobMatcher and DocumentGenerator.
type fakeAI struct {
	mu          sync.Mutex
	analysis    llm.RoleAnalysis
	analyzeErr  error
	block       bool
	match       llm.JobMatch
	matchErr    error
	resumeErr   error
	letterErr   error
	matchCalls  int
	resumeCalls int
	letterCalls int
}

func newFakeAI() *fakeAI {
	return &fakeAI{
		analysis: llm.RoleAnalysis{
			Roles: []records.SuggestedRole{
				{Title: "Backend Engineer", Match: 91, Industry: "Software", SalaryRange: "$140k - $170k"},
				{Title: "Platform Engineer", Match: 84, Industry: "Cloud", SalaryRange: "$135k - $165k"},
			},
			Skills:          []string{"Go", "Postgres"},
			ExperienceLevel: "Senior Level",
			Location:        "Austin, TX",
			Industries:      []string{"Software"},
			Explanation:     "Strong backend profile.",
		},
		match: llm.JobMatch{
			MatchScore:      78,
			MissingSkills:   []string{"Kubernetes"},
			Recommendations: []string{"Quantify latency wins"},
		},
	}
}

func (f *fakeAI) AnalyzeRoles(ctx context.Context, resumeText string) (llm.RoleAnalysis, error) {
	if f.block {
		<-ctx.Done()
		return llm.RoleAnalysis{}, ctx.Err()
	}
	return f.analysis, f.analyzeErr
}

func (f *fakeAI) MatchJob(ctx context.Context, resumeText, jobDescription string) (llm.JobMatch, error) {
	f.mu.Lock()
	f.matchCalls++
	f.mu.Unlock()
	return f.match, f.matchErr
}

func (f *fakeAI) GenerateResume(ctx context.Context, resumeText string, match llm.JobMatch, jobTitle, companyName string) (string, error) {
	f.mu.Lock()
	f.resumeCalls++
	f.mu.Unlock()
	if f.resumeErr != nil {
		return "", f.resumeErr
	}
	return "JANE DOE\nOptimized for " + jobTitle, nil
}

func (f *fakeAI) GenerateCoverLetter(ctx context.Context, resumeText, jobDescription, companyName, jobTitle string) (string, error) {
	f.mu.Lock()
	f.letterCalls++
	f.mu.Unlock()
	if f.letterErr != nil {
		return "", f.letterErr
	}
	return "Dear " + companyName + " hiring team,", nil
}

type renderCall struct {
	doc  render.Document
	opts render.Options
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls []renderCall
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, doc render.Document, opts render.Options) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, renderCall{doc: doc, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	if opts.Watermark {
		return []byte("%PDF-preview " + string(doc.Kind)), nil
	}
	return []byte("%PDF-clean " + string(doc.Kind)), nil
}

func (f *fakeRenderer) unwatermarked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if !c.opts.Watermark {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *Service
	store    *records.MemoryStore
	ai       *fakeAI
	renderer *fakeRenderer
	gateway  *payments.MemoryGateway
	events   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    records.NewMemoryStore(),
		ai:       newFakeAI(),
		renderer: &fakeRenderer{},
		gateway:  payments.NewMemoryGateway(),
		events:   &events.Recorder{},
	}
	f.svc = NewService(Deps{
		Store:     f.store,
		Extractor: &fakeExtractor{text: sampleText},
		Analyzer:  f.ai,
		Matcher:   f.ai,
		Generator: f.ai,
		Renderer:  f.renderer,
		Payments:  f.gateway,
		Events:    f.events,
		Timeout:   2 * time.Second,
	})
	return f
}

func (f *fixture) upload(t *testing.T) UploadResult {
	t.Helper()
	res, err := f.svc.UploadResume(context.Background(), UploadInput{
		Email:    "a@b.com",
		FileName: "resume.pdf",
		Data:     []byte("%PDF-1.4 test"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return res
}

func (f *fixture) optimize(t *testing.T, resumeID int64, jd string) records.JobOptimization {
	t.Helper()
	opt, err := f.svc.OptimizeResume(context.Background(), OptimizeInput{
		ResumeID:       resumeID,
		JobDescription: jd,
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	return opt
}

var errBoom = errors.New("boom")
