package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"HTTP_ADDR":         ":9999",
		"DATABASE_DRIVER":   "sqlite",
		"DATABASE_DSN":      "file:agrisense.db",
		"REDIS_ADDR":        "",
		"VISION_PROVIDER":   "ollama",
		"VISION_TIMEOUT":    "5s",
		"VISION_RETRIES":    "4",
		"ANALYSIS_FALLBACK": "false",
		"MAX_UPLOAD_BYTES":  "1024",
		"MAX_IMAGE_PIXELS":  "1000000",
		"CORS_ORIGINS":      "https://a.example, https://b.example,",
	}))
	if err != nil {
		t.Fatalf("applyEnv returned error: %v", err)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "file:agrisense.db" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected explicit empty REDIS_ADDR to clear the address, got %q", cfg.Redis.Addr)
	}
	if cfg.Vision.Provider != ProviderOllama || cfg.Vision.Timeout != 5*time.Second || cfg.Vision.Retries != 4 {
		t.Fatalf("unexpected vision config %+v", cfg.Vision)
	}
	if cfg.Analysis.Fallback {
		t.Fatal("expected fallback to be disabled")
	}
	if cfg.Analysis.MaxUploadBytes != 1024 {
		t.Fatalf("unexpected max upload %d", cfg.Analysis.MaxUploadBytes)
	}
	if cfg.Analysis.MaxImagePixels != 1_000_000 {
		t.Fatalf("unexpected max pixels %d", cfg.Analysis.MaxImagePixels)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestApplyEnvKeepsRedisDefaultWhenUnset(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnv(envMap(nil)); err != nil {
		t.Fatalf("applyEnv returned error: %v", err)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.Redis.Addr)
	}
}

func TestApplyEnvReportsInvalidValues(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"VISION_TIMEOUT":    "soon",
		"ANALYSIS_FALLBACK": "maybe",
	}))
	if err == nil {
		t.Fatal("expected error for invalid values")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Vision.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown provider to fail")
	}

	cfg = Default()
	cfg.Database.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown driver to fail")
	}

	cfg = Default()
	cfg.Analysis.Fallback = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing gemini key without fallback to fail")
	}
	cfg.Vision.GeminiAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config with key to validate: %v", err)
	}
}

func TestMergeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":7070"
database:
  driver: sqlite
  dsn: "file::memory:"
vision:
  provider: ollama
  timeout: 12s
mqtt:
  broker: "mqtt://broker:1883"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		t.Fatalf("mergeFile returned error: %v", err)
	}
	if cfg.HTTPAddr != ":7070" || cfg.Database.Driver != DriverSQLite {
		t.Fatalf("unexpected merged config %+v", cfg)
	}
	if cfg.Vision.Timeout != 12*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Vision.Timeout)
	}
	if cfg.Vision.GeminiModel != "gemini-1.5-flash" {
		t.Fatalf("expected untouched defaults to survive, got %q", cfg.Vision.GeminiModel)
	}
	if cfg.MQTT.Broker != "mqtt://broker:1883" || cfg.MQTT.Topic == "" {
		t.Fatalf("unexpected mqtt config %+v", cfg.MQTT)
	}
}
