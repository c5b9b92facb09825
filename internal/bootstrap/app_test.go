package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
		LLMProvider:     "none",
		PaymentProvider: "memory",
	}
}

func TestBuildDevDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app, err := Build(devConfig(t))
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	if _, ok := app.Records.(*records.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", app.Records)
	}
	if _, ok := app.Payments.(*payments.MemoryGateway); !ok {
		t.Fatalf("expected memory gateway, got %T", app.Payments)
	}
	if _, ok := app.Events.(events.Nop); !ok {
		t.Fatalf("expected nop publisher, got %T", app.Events)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["store"] != "memory" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildCompleterFallsBackInDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.LLMProvider = "gemini"
	cfg.LLMModel = "gemini-2.5-pro"

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("expected placeholder fallback, got %v", err)
	}
	app.Close()
}

func TestBuildStripeNeedsKey(t *testing.T) {
	cfg := devConfig(t)
	cfg.PaymentProvider = "stripe"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without STRIPE_SECRET_KEY")
	}
}
