package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"research-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	KVBackend   string
	KVDir       string
	SQLitePath  string
	DatabaseURL string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	LLMProvider       string
	LLMModel          string
	LLMTimeoutSeconds int
	GeminiAPIKey      string
	OpenAIAPIKey      string

	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	AnalyzeRatePerMin float64
	AnalyzeBurst      int
}

// Load reads configuration from defaults, an optional YAML file, .env files and the environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	k := koanf.New(".")
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			telemetry.Warn("config.file_unreadable", map[string]any{"path": path, "error": err})
		} else if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			telemetry.Warn("config.file_invalid", map[string]any{"path": path, "error": err})
		}
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		telemetry.Warn("config.env_failed", map[string]any{"error": err})
	}
	return FromKoanf(k)
}

// FromKoanf builds a Config from an already populated koanf instance.
func FromKoanf(k *koanf.Koanf) Config {
	env := normalizeEnv(getString(k, "env", "dev"))
	dbURL := getString(k, "database_url", "")
	kvBackend := normalizeKVBackend(getString(k, "kv_backend", ""), dbURL)

	if env == "production" && kvBackend == "postgres" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            getString(k, "port", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getString(k, "cors_allow_origins", "http://localhost:5173")),

		KVBackend:   kvBackend,
		KVDir:       getString(k, "kv_dir", "./data/kv"),
		SQLitePath:  getString(k, "sqlite_path", "./data/research.sqlite"),
		DatabaseURL: dbURL,

		ObjectStoreType: normalizeStoreType(getString(k, "object_store", "local")),
		LocalStoreDir:   getString(k, "local_store_dir", "./data/files"),
		AWSRegion:       getString(k, "aws_region", ""),
		S3Bucket:        getString(k, "s3_bucket", ""),
		S3Prefix:        getString(k, "s3_prefix", ""),
		SSEKMSKeyID:     getString(k, "sse_kms_key_id", ""),
		MinioEndpoint:   getString(k, "minio_endpoint", ""),
		MinioAccessKey:  getString(k, "minio_access_key", ""),
		MinioSecretKey:  getString(k, "minio_secret_key", ""),
		MinioBucket:     getString(k, "minio_bucket", "research-files"),
		MinioUseSSL:     getBool(k, "minio_use_ssl", false),

		LLMProvider:       normalizeProvider(getString(k, "llm_provider", "gemini")),
		LLMModel:          getString(k, "llm_model", ""),
		LLMTimeoutSeconds: getInt(k, "llm_timeout_seconds", 120),
		GeminiAPIKey:      firstNonEmpty(getString(k, "gemini_api_key", ""), getString(k, "api_key", "")),
		OpenAIAPIKey:      getString(k, "openai_api_key", ""),

		JWTSecret: getString(k, "jwt_secret", ""),

		GoogleClientID:     getString(k, "google_client_id", ""),
		GoogleClientSecret: getString(k, "google_client_secret", ""),
		GoogleRedirectURL:  getString(k, "google_redirect_url", ""),
		UIRedirectURL:      getString(k, "ui_redirect_url", ""),

		AnalyzeRatePerMin: getFloat(k, "analyze_rate_per_min", 6),
		AnalyzeBurst:      getInt(k, "analyze_burst", 3),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getString(k *koanf.Koanf, key, def string) string {
	if val := strings.TrimSpace(k.String(key)); val != "" {
		return val
	}
	return def
}

func getInt(k *koanf.Koanf, key string, def int) int {
	raw := getString(k, key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getFloat(k *koanf.Koanf, key string, def float64) float64 {
	raw := getString(k, key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_float", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getBool(k *koanf.Koanf, key string, def bool) bool {
	raw := getString(k, key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
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
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeKVBackend(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory", "file", "sqlite", "postgres":
		return strings.ToLower(strings.TrimSpace(raw))
	case "pg", "postgresql":
		return "postgres"
	case "":
		if dbURL != "" {
			return "postgres"
		}
		return "file"
	default:
		return "file"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "placeholder":
		return "none"
	default:
		return "gemini"
	}
}
