// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (PORTFOLIO_ prefix, runtime override)
//  2. Config file (config.yaml in the working directory or /etc/portfolio)
//  3. Default values
//
// Sensitive fields (API keys, database credentials embedded in the URL) are
// masked in MarshalJSON so the config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the generation model API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingDatabaseURL indicates the Postgres connection URL is not set.
	ErrMissingDatabaseURL = errors.New("missing database URL")

	// ErrInvalidDatabaseURL indicates the Postgres connection URL is malformed.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")

	// ErrInvalidDimensions indicates the embedder dimension setting is
	// incompatible with the vector schema.
	ErrInvalidDimensions = errors.New("incompatible embedder dimensions")

	// ErrInvalidRateLimit indicates the rate limiter settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidQuestionLimit indicates the question length bound is out of range.
	ErrInvalidQuestionLimit = errors.New("invalid question length limit")
)

// EmbeddingDimensions is the vector width the whole pipeline is built around.
// The profile_chunks schema declares vector(384) and the all-minilm model
// produces 384-dimensional embeddings; changing one requires changing both.
const EmbeddingDimensions = 384

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// HTTP server
	ServerAddr  string   `mapstructure:"server_addr" json:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Rate limiting (token bucket per client IP)
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" json:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Validation bounds for the chat endpoint
	MaxQuestionLength int `mapstructure:"max_question_length" json:"max_question_length"`

	// Storage
	DatabaseURL string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON

	// Generation model
	GeminiAPIKey string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName    string  `mapstructure:"model_name" json:"model_name"`
	Temperature  float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding model (Ollama)
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Indexing
	ProfilePath   string `mapstructure:"profile_path" json:"profile_path"`
	IndexLockPath string `mapstructure:"index_lock_path" json:"index_lock_path"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability: OTLP HTTP trace endpoint (empty = tracing disabled)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/portfolio")

	setDefaults(v)

	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "0.0.0.0:8000")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("trust_proxy", false)

	v.SetDefault("rate_limit_per_second", 1.0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("max_question_length", 2000)

	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 500)

	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("embedder_model", "all-minilm")

	v.SetDefault("profile_path", "data/profile.json")
	v.SetDefault("index_lock_path", "data/.index.lock")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("service_name", "portfolio-backend")
	v.SetDefault("environment", "development")
}

// ValidateServe checks the fields required to run the HTTP server and the
// RAG pipeline. Called from cmd before startup so failures are reported
// before any connection is attempted.
func (c *Config) ValidateServe() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set PORTFOLIO_GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: set PORTFOLIO_DATABASE_URL", ErrMissingDatabaseURL)
	}
	if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("%w: expected postgres:// or postgresql:// scheme", ErrInvalidDatabaseURL)
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: per_second=%.2f burst=%d", ErrInvalidRateLimit, c.RateLimitPerSecond, c.RateLimitBurst)
	}
	if c.MaxQuestionLength < 1 || c.MaxQuestionLength > 10000 {
		return fmt.Errorf("%w: %d", ErrInvalidQuestionLimit, c.MaxQuestionLength)
	}
	return nil
}

// MarshalJSON masks sensitive fields so a Config can be logged.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.GeminiAPIKey != "" {
		masked.GeminiAPIKey = "***"
	}
	if masked.DatabaseURL != "" {
		masked.DatabaseURL = maskDatabaseURL(masked.DatabaseURL)
	}
	return json.Marshal(masked)
}

// maskDatabaseURL hides the credential part of a connection URL,
// keeping host and database visible for debugging.
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return "***"
	}
	return url[:scheme+3] + "***" + url[at:]
}
