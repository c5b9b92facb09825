package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	ObjectStoreType     string
	LocalStoreDir       string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	SSEKMSKeyID         string
	LLMProvider         string
	LLMModel            string
	LLMFastModel        string
	GeminiAPIKey        string
	OpenAIAPIKey        string
	CollaboratorTimeout time.Duration
	PaymentProvider     string
	StripeSecretKey     string
	PaymentCurrency     string
	RabbitMQURL         string
	EventsExchange      string
	ChromePath          string
	RateLimitEnabled    bool
	LogLevel            string
	DatabaseURL         string
	Env                 string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	paymentDefault := "memory"
	if env == "production" || env == "staging" {
		paymentDefault = "stripe"
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:         normalizeLLMProvider(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:            getEnv("LLM_MODEL", "gemini-2.5-pro"),
		LLMFastModel:        getEnv("LLM_FAST_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		CollaboratorTimeout: getDuration("COLLABORATOR_TIMEOUT", 90*time.Second),
		PaymentProvider:     normalizePaymentProvider(getEnv("PAYMENT_PROVIDER", paymentDefault)),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		PaymentCurrency:     strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		EventsExchange:      getEnv("EVENTS_EXCHANGE", "pipeline_events"),
		ChromePath:          getEnv("CHROME_PATH", ""),
		RateLimitEnabled:    getBool("RATE_LIMIT_ENABLED", true),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:         dbURL,
		Env:                 env,
	}
}

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment are not overridden.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config: invalid %s=%q, using %s", key, raw, def)
	return def
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeLLMProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off", "fake":
		return "none"
	default:
		return "gemini"
	}
}

func normalizePaymentProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stripe":
		return "stripe"
	default:
		return "memory"
	}
}
