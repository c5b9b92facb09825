package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/events"
	"github.com/Megamind2600/resumerocketpro/internal/extract"
	"github.com/Megamind2600/resumerocketpro/internal/llm"
	"github.com/Megamind2600/resumerocketpro/internal/llm/gemini"
	"github.com/Megamind2600/resumerocketpro/internal/llm/openai"
	"github.com/Megamind2600/resumerocketpro/internal/payments"
	"github.com/Megamind2600/resumerocketpro/internal/pipeline"
	"github.com/Megamind2600/resumerocketpro/internal/records"
	"github.com/Megamind2600/resumerocketpro/internal/render"
	"github.com/Megamind2600/resumerocketpro/internal/services/health"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
	"github.com/Megamind2600/resumerocketpro/internal/shared/server"
	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/db"
	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/object"
	localstore "github.com/Megamind2600/resumerocketpro/internal/shared/storage/object/local"
	s3store "github.com/Megamind2600/resumerocketpro/internal/shared/storage/object/s3"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

const defaultOpenAIModel = "gpt-4o-mini"

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Records  records.Store
	Objects  object.ObjectStore
	Payments payments.Gateway
	Events   events.Publisher
	Pipeline *pipeline.Service

	closers []func() error
}

// Build wires stores, collaborators and the HTTP router from cfg.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(telemetry.ParseLevel(cfg.LogLevel))
	ctx := context.Background()
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Records = records.NewPGStore(sqlDB)
		app.closers = append(app.closers, sqlDB.Close)
	} else {
		app.Records = records.NewMemoryStore()
	}

	if app.Objects, err = buildObjects(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	completer, err := buildCompleter(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	ai := llm.NewService(completer)

	if app.Payments, err = buildPayments(cfg); err != nil {
		app.Close()
		return nil, err
	}

	app.Events = buildEvents(cfg)
	if closer, ok := app.Events.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	app.Pipeline = pipeline.NewService(pipeline.Deps{
		Store:     app.Records,
		Extractor: extract.New(),
		Analyzer:  ai,
		Matcher:   ai,
		Generator: ai,
		Renderer:  render.NewChromedpRenderer(cfg.ChromePath, cfg.CollaboratorTimeout),
		Payments:  app.Payments,
		Objects:   app.Objects,
		Events:    app.Events,
		Currency:  cfg.PaymentCurrency,
		Timeout:   cfg.CollaboratorTimeout,
	})

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Pipeline: pipeline.NewHandler(app.Pipeline),
		Health:   health.NewService(sqlDB),
	})
	return app, nil
}

// Close releases the database and broker connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_store", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := db.ServerPool().WithEnv(nil)
	if err != nil {
		return nil, fmt.Errorf("database pool settings: %w", err)
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildCompleter picks the model provider. Outside production a missing key
// falls back to the placeholder so the API still boots.
func buildCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	var (
		completer llm.Completer
		err       error
	)
	switch cfg.LLMProvider {
	case "none":
		return llm.PlaceholderClient{}, nil
	case "openai":
		model, fast := cfg.LLMModel, cfg.LLMFastModel
		if strings.HasPrefix(model, "gemini") {
			model, fast = defaultOpenAIModel, defaultOpenAIModel
		}
		completer, err = openai.NewClient(cfg.OpenAIAPIKey, model, fast)
	default:
		completer, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMFastModel)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider, "error": err})
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return completer, nil
}

func buildPayments(cfg config.Config) (payments.Gateway, error) {
	if cfg.PaymentProvider != "stripe" {
		if !isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_payments", map[string]any{"env": cfg.Env})
		}
		return payments.NewMemoryGateway(), nil
	}
	return payments.NewStripeGateway(cfg.StripeSecretKey)
}

// buildEvents publishes to RabbitMQ when configured. Events are best effort,
// so a broker that cannot be reached is logged and replaced by Nop.
func buildEvents(cfg config.Config) events.Publisher {
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return events.Nop{}
	}
	pub, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		telemetry.Warn("bootstrap.events_disabled", map[string]any{"error": err})
		return events.Nop{}
	}
	return pub
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
