package config

import (
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

func loadYAML(t *testing.T, doc string) *koanf.Koanf {
	t.Helper()
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(doc)), yaml.Parser()); err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	return k
}

func TestFromKoanfDefaults(t *testing.T) {
	cfg := FromKoanf(koanf.New("."))

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %s", cfg.Env)
	}
	if cfg.KVBackend != "file" {
		t.Fatalf("expected file kv backend, got %s", cfg.KVBackend)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %s", cfg.LLMProvider)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local object store, got %s", cfg.ObjectStoreType)
	}
	if cfg.LLMTimeoutSeconds != 120 {
		t.Fatalf("expected 120s timeout, got %d", cfg.LLMTimeoutSeconds)
	}
}

func TestFromKoanfYAMLValues(t *testing.T) {
	k := loadYAML(t, `
env: prod
port: "9090"
kv_backend: sqlite
object_store: MINIO
minio_use_ssl: "true"
llm_provider: openai
llm_timeout_seconds: "30"
cors_allow_origins: "http://a.test, http://b.test ,"
`)
	cfg := FromKoanf(k)

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %s", cfg.Env)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.KVBackend != "sqlite" {
		t.Fatalf("expected sqlite, got %s", cfg.KVBackend)
	}
	if cfg.ObjectStoreType != "minio" || !cfg.MinioUseSSL {
		t.Fatalf("expected minio with ssl, got %s ssl=%v", cfg.ObjectStoreType, cfg.MinioUseSSL)
	}
	if cfg.LLMProvider != "openai" || cfg.LLMTimeoutSeconds != 30 {
		t.Fatalf("unexpected llm config: %s %d", cfg.LLMProvider, cfg.LLMTimeoutSeconds)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigin)
	}
}

func TestKVBackendFollowsDatabaseURL(t *testing.T) {
	k := loadYAML(t, `database_url: "postgres://localhost/research"`)
	cfg := FromKoanf(k)
	if cfg.KVBackend != "postgres" {
		t.Fatalf("expected postgres backend when DATABASE_URL set, got %s", cfg.KVBackend)
	}
}

func TestInvalidIntFallsBackToDefault(t *testing.T) {
	k := loadYAML(t, `analyze_burst: "lots"`)
	cfg := FromKoanf(k)
	if cfg.AnalyzeBurst != 3 {
		t.Fatalf("expected default burst 3, got %d", cfg.AnalyzeBurst)
	}
}
