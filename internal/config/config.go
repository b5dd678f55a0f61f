// Package config loads agrisense configuration from defaults, an optional
// YAML file, a .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vision providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all service configuration.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	LogLevel string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Vision   VisionConfig   `yaml:"vision"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Camera   CameraConfig   `yaml:"camera"`
	MQTT     MQTTConfig     `yaml:"mqtt"`

	CORSOrigins  []string `yaml:"cors_origins"`
	SeedFixtures bool     `yaml:"seed_fixtures"`
}

// DatabaseConfig selects the gorm dialect and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig points at the result cache. An empty address selects the
// in-process cache.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig defines token signing and the bootstrap operator account.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTAudience   string        `yaml:"jwt_audience"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
}

// VisionConfig defines the remote classifier.
type VisionConfig struct {
	Provider      string        `yaml:"provider"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	GeminiBaseURL string        `yaml:"gemini_base_url"`
	OllamaBaseURL string        `yaml:"ollama_base_url"`
	OllamaModel   string        `yaml:"ollama_model"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
}

// AnalysisConfig tunes the health-check pipeline.
type AnalysisConfig struct {
	Fallback       bool  `yaml:"fallback"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	MaxImageEdge   int   `yaml:"max_image_edge"`
	MaxImagePixels int64 `yaml:"max_image_pixels"`
}

// CameraConfig tunes network camera capture.
type CameraConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	DefaultIP   string        `yaml:"default_ip"`
	DefaultPort string        `yaml:"default_port"`
}

// MQTTConfig defines the optional sensor ingestion broker. An empty broker
// disables the subscriber.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Topic     string `yaml:"topic"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	ClientID  string `yaml:"client_id"`
	RateLimit int64  `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver: DriverPostgres,
			DSN:    "host=postgres user=postgres password=postgres dbname=agrisense port=5432 sslmode=disable",
		},
		Redis: RedisConfig{Addr: "redis:6379"},
		Auth: AuthConfig{
			JWTSecret:     "dev-secret",
			TokenTTL:      24 * time.Hour,
			AdminUsername: "admin",
		},
		Vision: VisionConfig{
			Provider:      ProviderGemini,
			GeminiModel:   "gemini-1.5-flash",
			GeminiBaseURL: "https://generativelanguage.googleapis.com",
			OllamaBaseURL: "http://localhost:11434",
			OllamaModel:   "llama3.2-vision",
			Timeout:       30 * time.Second,
			Retries:       2,
		},
		Analysis: AnalysisConfig{
			Fallback:       true,
			MaxUploadBytes: 16 << 20,
			MaxImageEdge:   1600,
			MaxImagePixels: 40_000_000,
		},
		Camera: CameraConfig{
			Timeout:     10 * time.Second,
			DefaultIP:   "192.168.1.2",
			DefaultPort: "4747",
		},
		MQTT: MQTTConfig{
			Topic:     "agrisense/sensors/+/reading",
			ClientID:  "agrisense",
			RateLimit: 100,
		},
		CORSOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		SeedFixtures: true,
	}
}

// Load builds the configuration. The YAML file named by AGRISENSE_CONFIG is
// optional; a missing .env file is not an error.
func Load() (Config, error) {
	cfg := Default()

	_ = godotenv.Load()

	if path := strings.TrimSpace(os.Getenv("AGRISENSE_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	getenv := func(key string) string {
		v, _ := lookupEnv(key)
		return v
	}
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []string
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int64) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("GRPC_ADDR", &c.GRPCAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	if v, ok := lookupEnv("REDIS_ADDR"); ok {
		c.Redis.Addr = strings.TrimSpace(v)
	}
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWT_AUDIENCE", &c.Auth.JWTAudience)
	dur("JWT_TTL", &c.Auth.TokenTTL)
	str("ADMIN_USERNAME", &c.Auth.AdminUsername)
	str("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	str("VISION_PROVIDER", &c.Vision.Provider)
	str("GEMINI_API_KEY", &c.Vision.GeminiAPIKey)
	str("GEMINI_MODEL", &c.Vision.GeminiModel)
	str("GEMINI_BASE_URL", &c.Vision.GeminiBaseURL)
	str("OLLAMA_BASE_URL", &c.Vision.OllamaBaseURL)
	str("OLLAMA_MODEL", &c.Vision.OllamaModel)
	dur("VISION_TIMEOUT", &c.Vision.Timeout)
	retries := int64(c.Vision.Retries)
	integer("VISION_RETRIES", &retries)
	c.Vision.Retries = int(retries)
	boolean("ANALYSIS_FALLBACK", &c.Analysis.Fallback)
	integer("MAX_UPLOAD_BYTES", &c.Analysis.MaxUploadBytes)
	edge := int64(c.Analysis.MaxImageEdge)
	integer("MAX_IMAGE_EDGE", &edge)
	c.Analysis.MaxImageEdge = int(edge)
	integer("MAX_IMAGE_PIXELS", &c.Analysis.MaxImagePixels)
	dur("CAMERA_TIMEOUT", &c.Camera.Timeout)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_TOPIC", &c.MQTT.Topic)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	integer("MQTT_RATE_LIMIT", &c.MQTT.RateLimit)
	boolean("SEED_FIXTURES", &c.SeedFixtures)
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		c.CORSOrigins = splitList(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q (valid: postgres, sqlite)", c.Database.Driver)
	}
	switch c.Vision.Provider {
	case ProviderGemini:
		if c.Vision.GeminiAPIKey == "" && !c.Analysis.Fallback {
			return fmt.Errorf("GEMINI_API_KEY is required when the analysis fallback is disabled")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown vision provider %q (valid: gemini, ollama)", c.Vision.Provider)
	}
	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.Vision.Retries < 0 {
		return fmt.Errorf("vision retries must not be negative")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
