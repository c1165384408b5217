package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventsdesk/internal/validation"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL is the development backend the console talks to when
// nothing else is configured.
const DefaultAPIBaseURL = "http://127.0.0.1:8000/"

type Config struct {
	API         APIConfig       `yaml:"api"`
	State       StateConfig     `yaml:"state"`
	UI          UIConfig        `yaml:"ui"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment" validate:"oneof=development staging production test"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type StateConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

type UIConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"gte=0,lte=65535"`
	Anchor         string `yaml:"anchor" validate:"required"`
	StartPath      string `yaml:"start_path" validate:"required,startswith=/"`
	CSRFKey        string `yaml:"csrf_key"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" validate:"gt=0"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=stdout otlp none"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Load builds the configuration from environment variables and validates it.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an optional YAML file applied on top of the
// environment. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Config{
		API: APIConfig{
			BaseURL: getEnv("EVENTSDESK_API_BASE_URL", DefaultAPIBaseURL),
			Timeout: time.Duration(getEnvInt("EVENTSDESK_API_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		State: StateConfig{
			Dir: getEnv("EVENTSDESK_STATE_DIR", defaultStateDir()),
		},
		UI: UIConfig{
			Host:           getEnv("EVENTSDESK_UI_HOST", "127.0.0.1"),
			Port:           getEnvInt("EVENTSDESK_UI_PORT", 5173),
			Anchor:         getEnv("EVENTSDESK_UI_ANCHOR", "app"),
			StartPath:      getEnv("EVENTSDESK_UI_START_PATH", "/"),
			CSRFKey:        getEnv("EVENTSDESK_CSRF_KEY", ""),
			MaxUploadBytes: int64(getEnvInt("EVENTSDESK_MAX_UPLOAD_MB", 10)) << 20,
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("EVENTSDESK_RATE_LIMIT_PER_MINUTE", 120),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "eventsdesk"),
			OTLPEndpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and returns the first failures joined
// into a single error naming the offending fields.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		// Tokens travel in a header, so production backends must use TLS.
		if err := validation.ValidateBaseURL(cfg.API.BaseURL, "api.base_url", cfg.Environment == "production"); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
}

// UIAddr is the listen address of the console.
func (c Config) UIAddr() string {
	return fmt.Sprintf("%s:%d", c.UI.Host, c.UI.Port)
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eventsdesk")
	}
	return ".eventsdesk"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
