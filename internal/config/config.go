package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tndg16-bot/ai-writing-automation/internal/retry"
)

// Backends accepted by BACKEND.
const (
	BackendGoogle = "google"
	BackendLocal  = "local"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Templates
	TemplateDir string `yaml:"template_dir"`

	// Document backend
	Backend         string `yaml:"backend"`
	GoogleTokenFile string `yaml:"google_token_file"`
	DriveFolderID   string `yaml:"drive_folder_id"`
	LocalOutputDir  string `yaml:"local_output_dir"`

	// Throttling
	RateLimitCalls  int           `yaml:"rate_limit_calls"`
	RateLimitPeriod time.Duration `yaml:"rate_limit_period"`

	// Retries
	RetryMaxAttempts    int           `yaml:"retry_max_attempts"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay       time.Duration `yaml:"retry_max_delay"`
	MediaRetryBaseDelay time.Duration `yaml:"media_retry_base_delay"`
	MediaRetryMaxDelay  time.Duration `yaml:"media_retry_max_delay"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Render history
	HistoryDB string `yaml:"history_db"`

	// Request limits
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                "8090",
		TemplateDir:         "templates",
		Backend:             BackendGoogle,
		GoogleTokenFile:     "token.json",
		LocalOutputDir:      "output",
		RateLimitCalls:      50,
		RateLimitPeriod:     60 * time.Second,
		RetryMaxAttempts:    3,
		RetryBaseDelay:      4 * time.Second,
		RetryMaxDelay:       60 * time.Second,
		MediaRetryBaseDelay: 2 * time.Second,
		MediaRetryMaxDelay:  10 * time.Second,
		WorkerCount:         2,
		MaxQueueSize:        50,
		JobTTL:              1 * time.Hour,
		HistoryDB:           "docrender.db",
		MaxBodyBytes:        10 << 20, // 10MB
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCRENDER_API_KEY", cfg.APIKey)
	cfg.TemplateDir = envOr("TEMPLATE_DIR", cfg.TemplateDir)

	cfg.Backend = envOr("BACKEND", cfg.Backend)
	cfg.GoogleTokenFile = envOr("GOOGLE_TOKEN_FILE", cfg.GoogleTokenFile)
	cfg.DriveFolderID = envOr("DRIVE_FOLDER_ID", cfg.DriveFolderID)
	cfg.LocalOutputDir = envOr("LOCAL_OUTPUT_DIR", cfg.LocalOutputDir)

	cfg.RateLimitCalls = envInt("RATE_LIMIT_CALLS", cfg.RateLimitCalls)
	cfg.RateLimitPeriod = envDuration("RATE_LIMIT_PERIOD", cfg.RateLimitPeriod)

	cfg.RetryMaxAttempts = envInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryBaseDelay = envDuration("RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.RetryMaxDelay = envDuration("RETRY_MAX_DELAY", cfg.RetryMaxDelay)
	cfg.MediaRetryBaseDelay = envDuration("MEDIA_RETRY_BASE_DELAY", cfg.MediaRetryBaseDelay)
	cfg.MediaRetryMaxDelay = envDuration("MEDIA_RETRY_MAX_DELAY", cfg.MediaRetryMaxDelay)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.HistoryDB = envOr("HISTORY_DB", cfg.HistoryDB)
	cfg.MaxBodyBytes = envInt64("MAX_BODY_BYTES", cfg.MaxBodyBytes)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// clamp resets non-positive numeric settings to their defaults.
func (c *Config) clamp() {
	d := Defaults()
	if c.RateLimitCalls <= 0 {
		c.RateLimitCalls = d.RateLimitCalls
	}
	if c.RateLimitPeriod <= 0 {
		c.RateLimitPeriod = d.RateLimitPeriod
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = d.RetryMaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = d.RetryMaxDelay
	}
	if c.MediaRetryBaseDelay <= 0 {
		c.MediaRetryBaseDelay = d.MediaRetryBaseDelay
	}
	if c.MediaRetryMaxDelay <= 0 {
		c.MediaRetryMaxDelay = d.MediaRetryMaxDelay
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
}

// Validate checks settings every entry point needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGoogle:
		if c.GoogleTokenFile == "" {
			return fmt.Errorf("GOOGLE_TOKEN_FILE is required for the google backend")
		}
		if _, err := os.Stat(c.GoogleTokenFile); err != nil {
			return fmt.Errorf("GOOGLE_TOKEN_FILE: %w", err)
		}
	case BackendLocal:
		if c.LocalOutputDir == "" {
			return fmt.Errorf("LOCAL_OUTPUT_DIR is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q (want %s or %s)", c.Backend, BackendGoogle, BackendLocal)
	}
	return nil
}

// ValidateServer additionally requires the API key.
func (c Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCRENDER_API_KEY is required")
	}
	return c.Validate()
}

// DocumentPolicy is the retry policy for document calls.
func (c Config) DocumentPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.RetryMaxAttempts, BaseDelay: c.RetryBaseDelay, MaxDelay: c.RetryMaxDelay}
}

// MediaPolicy is the retry policy for image uploads.
func (c Config) MediaPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.RetryMaxAttempts, BaseDelay: c.MediaRetryBaseDelay, MaxDelay: c.MediaRetryMaxDelay}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
