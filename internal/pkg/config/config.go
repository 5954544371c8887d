package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type LLMConfig struct {
	Provider     string
	OllamaHost   string
	OllamaModel  string
	GeminiAPIKey string
	GeminiModel  string
}

type StreamConfig struct {
	Timeout   time.Duration
	MaxChunks int
	CacheTTL  time.Duration
}

type ObservabilityConfig struct {
	MetricsAddr  string
	OTelEndpoint string
	PprofAddr    string
}

type Config struct {
	Repositories   RepositoriesConfig
	LLM            LLMConfig
	Stream         StreamConfig
	Observability  ObservabilityConfig
	ServerPort     string
	LogLevel       string
	HistoryEnabled bool
}

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

func Load() (*Config, error) {
	timeout, err := getEnvDuration("STREAM_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("ITINERARY_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	maxChunks, err := getEnvInt("STREAM_MAX_CHUNKS", 0)
	if err != nil {
		return nil, err
	}
	historyEnabled, err := getEnvBool("HISTORY_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "roamiq"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 10,
				MinConns: 2,
			},
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOllama)),
			OllamaHost:   getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			OllamaModel:  getEnvOrDefault("OLLAMA_MODEL", "llama3"),
			GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Stream: StreamConfig{
			Timeout:   timeout,
			MaxChunks: maxChunks,
			CacheTTL:  cacheTTL,
		},
		Observability: ObservabilityConfig{
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			OTelEndpoint: getEnvOrDefault("OTEL_EXPORTER_ENDPOINT", "otel-collector:4318"),
			PprofAddr:    os.Getenv("PPROF_ADDR"),
		},
		ServerPort:     getEnvOrDefault("SERVER_PORT", "8091"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		HistoryEnabled: historyEnabled,
	}
	if _, set := os.LookupEnv("PPROF_ADDR"); !set {
		cfg.Observability.PprofAddr = ":6060"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case ProviderOllama:
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOllama, ProviderGemini, c.LLM.Provider)
	}
	if c.HistoryEnabled && c.Repositories.Postgres.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD environment variable is required when HISTORY_ENABLED=true")
	}
	if c.Stream.Timeout <= 0 {
		return fmt.Errorf("STREAM_TIMEOUT must be positive")
	}
	if c.Stream.MaxChunks < 0 {
		return fmt.Errorf("STREAM_MAX_CHUNKS must not be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
