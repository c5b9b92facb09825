package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "LLM_PROVIDER", "PAYMENT_PROVIDER", "COLLABORATOR_TIMEOUT", "OBJECT_STORE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.LLMProvider)
	}
	if cfg.PaymentProvider != "memory" {
		t.Fatalf("expected memory payments in dev, got %q", cfg.PaymentProvider)
	}
	if cfg.CollaboratorTimeout != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %s", cfg.CollaboratorTimeout)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local object store, got %q", cfg.ObjectStoreType)
	}
}

func TestLoadProductionDefaultsToStripe(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PAYMENT_PROVIDER", "")
	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.PaymentProvider != "stripe" {
		t.Fatalf("expected stripe, got %q", cfg.PaymentProvider)
	}
}

func TestGetDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("COLLABORATOR_TIMEOUT", "30")
	if got := getDuration("COLLABORATOR_TIMEOUT", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
	t.Setenv("COLLABORATOR_TIMEOUT", "2m")
	if got := getDuration("COLLABORATOR_TIMEOUT", time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", got)
	}
	t.Setenv("COLLABORATOR_TIMEOUT", "soon")
	if got := getDuration("COLLABORATOR_TIMEOUT", time.Minute); got != time.Minute {
		t.Fatalf("expected default, got %s", got)
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RR_TEST_A=from-file\nRR_TEST_B=\"quoted\"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("RR_TEST_A", "from-env")
	t.Setenv("RR_TEST_B", "")
	os.Unsetenv("RR_TEST_B")

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("RR_TEST_A"); got != "from-env" {
		t.Fatalf("expected env value to win, got %q", got)
	}
	if got := os.Getenv("RR_TEST_B"); got != "quoted" {
		t.Fatalf("expected quoted value from file, got %q", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}
