package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	EngineOllama = "ollama"
	EngineGemini = "gemini"

	insecureJWTSecret = "supersecretkey"
)

type Config struct {
	Addr           string          `yaml:"addr"`
	Env            string          `yaml:"env"`
	BaseURL        string          `yaml:"base_url"`
	JWTSecret      string          `yaml:"jwt_secret"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	TokenDuration  time.Duration   `yaml:"token_duration"`
	LogLevel       string          `yaml:"log_level"`
	EngineConfig   EngineConfig    `yaml:"engine"`
	Ollama         OllamaConfig    `yaml:"ollama"`
	Gemini         GeminiConfig    `yaml:"gemini"`
	Blob           BlobConfig      `yaml:"blob"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Social         SocialConfig    `yaml:"social"`
}

// EngineConfig selects the model backing job analysis and cover letters.
type EngineConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	DefaultModelNames       []string      `yaml:"models"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

// BlobConfig points at a gocloud.dev bucket URL (file://, mem://, s3://).
type BlobConfig struct {
	BucketURL string `yaml:"bucket_url"`
}

type RateLimitConfig struct {
	PerMinute     int    `yaml:"per_minute"`
	Burst         int    `yaml:"burst"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine; real deployments inject the environment
	_ = godotenv.Load()

	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	redisDB := 0
	if v := os.Getenv("CAREERPAL_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CAREERPAL_REDIS_DB: %w", err)
		}
		redisDB = n
	}

	cfg := &Config{
		Addr:           getEnv("CAREERPAL_ADDR", ":8080"),
		Env:            getEnv("CAREERPAL_ENV", EnvProduction),
		BaseURL:        getEnv("CAREERPAL_BASE_URL", "http://localhost:8080"),
		JWTSecret:      getEnv("CAREERPAL_JWT_SECRET", insecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("CAREERPAL_DATABASE_PATH", "careerpal.db"),
		MigrateOnStart: getEnv("CAREERPAL_MIGRATE_ON_START", "true") == "true",
		TokenDuration:  tokenDuration,
		LogLevel:       getEnv("CAREERPAL_LOG_LEVEL", "info"),
		EngineConfig: EngineConfig{
			Provider: getEnv("CAREERPAL_ENGINE_PROVIDER", EngineOllama),
			Model:    os.Getenv("CAREERPAL_ENGINE_MODEL"),
		},
		Ollama: OllamaConfig{
			BaseURL: os.Getenv("OLLAMA_HOST"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Blob: BlobConfig{
			BucketURL: getEnv("CAREERPAL_BLOB_URL", "mem://"),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:     os.Getenv("CAREERPAL_REDIS_ADDR"),
			RedisPassword: os.Getenv("CAREERPAL_REDIS_PASSWORD"),
			RedisDB:       redisDB,
		},
		Social: socialFromEnv(),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate fills unset fields with defaults and rejects unsafe or incomplete settings.
func (c *Config) Validate() error {
	if c.Env == "" {
		c.Env = EnvProduction
	}
	if c.Env != EnvDevelopment && c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("jwt_secret must be changed outside %s", EnvDevelopment)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is empty")
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.EngineConfig.Provider == "" {
		c.EngineConfig.Provider = EngineOllama
	}
	if c.EngineConfig.Model == "" {
		return fmt.Errorf("engine.model is required")
	}
	if c.EngineConfig.Timeout <= 0 {
		c.EngineConfig.Timeout = 60 * time.Second
	}
	switch c.EngineConfig.Provider {
	case EngineOllama:
	case EngineGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key is required when engine.provider is %s", EngineGemini)
		}
	default:
		return fmt.Errorf("unknown engine.provider %q", c.EngineConfig.Provider)
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = c.EngineConfig.Timeout
	}
	if c.Ollama.Backoff <= 0 {
		c.Ollama.Backoff = 500 * time.Millisecond
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}

	if c.Blob.BucketURL == "" {
		c.Blob.BucketURL = "mem://"
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ParseLogLevel maps a config log level to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
