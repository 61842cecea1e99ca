// Package config loads service settings from the environment, optionally
// overlaid by a YAML file named in CONFIG_FILE.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable used by the commands.
type Config struct {
	GCPProject string `yaml:"gcp_project"`
	BQDataset  string `yaml:"bq_dataset"`
	GCSBucket  string `yaml:"gcs_bucket"`
	KMSKeyName string `yaml:"kms_key_name"`

	GeminiModel           string `yaml:"gemini_model"`
	UseModelExtraction    bool   `yaml:"use_model_extraction"`
	UseModelCleanup       bool   `yaml:"use_model_cleanup"`
	ExtractionConcurrency int    `yaml:"extraction_concurrency"`
	CleanupConcurrency    int    `yaml:"cleanup_concurrency"`

	AmountCeiling decimal.Decimal `yaml:"amount_ceiling"`

	WorkerCount int    `yaml:"worker_count"`
	ListenAddr  string `yaml:"listen_addr"`
	APIKey      string `yaml:"api_key"`
	RateLimit   int    `yaml:"rate_limit_per_minute"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BQDataset:             "finance",
		GeminiModel:           "gemini-2.5-flash",
		ExtractionConcurrency: 6,
		CleanupConcurrency:    4,
		AmountCeiling:         decimal.NewFromInt(5_000_000),
		WorkerCount:           5,
		ListenAddr:            ":8080",
		RateLimit:             60,
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	return load(os.LookupEnv, os.ReadFile)
}

func load(lookup func(string) (string, bool), readFile func(string) ([]byte, error)) (Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		data, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("Load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Load: parse %s: %w", path, err)
		}
	}

	env := envReader{lookup: lookup}
	env.str("GCP_PROJECT", &cfg.GCPProject)
	if cfg.GCPProject == "" {
		env.str("GOOGLE_CLOUD_PROJECT", &cfg.GCPProject)
	}
	env.str("BQ_DATASET", &cfg.BQDataset)
	env.str("GCS_BUCKET", &cfg.GCSBucket)
	env.str("KMS_KEY_NAME", &cfg.KMSKeyName)
	env.str("GEMINI_MODEL", &cfg.GeminiModel)
	env.boolean("USE_MODEL_EXTRACTION", &cfg.UseModelExtraction)
	env.boolean("USE_MODEL_CLEANUP", &cfg.UseModelCleanup)
	env.integer("EXTRACTION_CONCURRENCY", &cfg.ExtractionConcurrency)
	env.integer("CLEANUP_CONCURRENCY", &cfg.CleanupConcurrency)
	env.dec("AMOUNT_CEILING", &cfg.AmountCeiling)
	env.integer("WORKER_COUNT", &cfg.WorkerCount)
	env.str("LISTEN_ADDR", &cfg.ListenAddr)
	if port, ok := lookup("PORT"); ok && port != "" {
		cfg.ListenAddr = ":" + port
	}
	env.str("API_KEY", &cfg.APIKey)
	env.integer("RATE_LIMIT_PER_MINUTE", &cfg.RateLimit)
	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.str("LOG_FORMAT", &cfg.LogFormat)

	if env.err != nil {
		return Config{}, env.err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges that would otherwise fail deep inside a worker.
func (c Config) Validate() error {
	switch {
	case c.ExtractionConcurrency < 1:
		return fmt.Errorf("Validate: extraction_concurrency must be positive, got %d", c.ExtractionConcurrency)
	case c.CleanupConcurrency < 1:
		return fmt.Errorf("Validate: cleanup_concurrency must be positive, got %d", c.CleanupConcurrency)
	case c.WorkerCount < 1:
		return fmt.Errorf("Validate: worker_count must be positive, got %d", c.WorkerCount)
	case !c.AmountCeiling.IsPositive():
		return fmt.Errorf("Validate: amount_ceiling must be positive, got %s", c.AmountCeiling)
	}
	return nil
}

// RequireCloud reports an error when the GCP settings needed by the
// persistence and storage adapters are missing.
func (c Config) RequireCloud() error {
	var missing []string
	if c.GCPProject == "" {
		missing = append(missing, "GCP_PROJECT")
	}
	if c.GCSBucket == "" {
		missing = append(missing, "GCS_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("RequireCloud: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) dec(key string, dst *decimal.Decimal) {
	if v, ok := e.get(key); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("Load: %s=%q: %w", key, value, err)
	}
}
