package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Megamind2600/resumerocketpro/internal/extract"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/llm/gemini"
	"github.com/Megamind2600/resumerocketpro/internal/llm/openai"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
)

// prompttest runs role analysis, and job matching when -jd is given, against
// the configured provider and prints the parsed results as JSON.
func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf or docx)")
	jdPath := flag.String("jd", "", "Path to job description file (optional)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (gemini or openai)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	fastModel := flag.String("fast-model", cfg.LLMFastModel, "LLM model for free-text generation")
	timeout := flag.Duration("timeout", cfg.CollaboratorTimeout, "Timeout per model call")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}

	ctx := context.Background()
	extracted, err := extract.New().Extract(ctx, resumeBytes, filepath.Base(*resumePath))
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}
	if extracted.Fallback {
		_, _ = fmt.Fprintln(os.Stderr, "warning: extraction failed, using sample resume text")
	}

	client, err := buildClient(ctx, cfg, *provider, *model, *fastModel)
	if err != nil {
		exitErr(err.Error())
	}
	svc := llm.NewService(client)

	out := map[string]any{}
	callCtx, cancel := context.WithTimeout(ctx, *timeout)
	analysis, err := svc.AnalyzeRoles(callCtx, extracted.Text)
	cancel()
	if err != nil {
		exitErr(fmt.Sprintf("role analysis: %v", err))
	}
	out["analysis"] = analysis

	if strings.TrimSpace(*jdPath) != "" {
		jdBytes, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		callCtx, cancel := context.WithTimeout(ctx, *timeout)
		match, err := svc.MatchJob(callCtx, extracted.Text, string(jdBytes))
		cancel()
		if err != nil {
			exitErr(fmt.Sprintf("job match: %v", err))
		}
		out["match"] = match
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func buildClient(ctx context.Context, cfg config.Config, provider, model, fastModel string) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, model, fastModel)
	case "", "gemini":
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, model, fastModel)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

