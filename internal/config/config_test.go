package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func noFile(string) ([]byte, error) { return nil, errors.New("no file") }

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envFrom(nil), noFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 6, cfg.ExtractionConcurrency)
	assert.Equal(t, 4, cfg.CleanupConcurrency)
	assert.Equal(t, "5000000", cfg.AmountCeiling.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	file := []byte(`
gcp_project: from-file
gcs_bucket: statements
amount_ceiling: "250000"
worker_count: 2
use_model_extraction: true
`)
	env := envFrom(map[string]string{
		"CONFIG_FILE":  "cfg.yaml",
		"GCP_PROJECT":  "from-env",
		"WORKER_COUNT": "8",
		"PORT":         "9090",
		"LOG_FORMAT":   "json",
	})
	cfg, err := load(env, func(path string) ([]byte, error) {
		assert.Equal(t, "cfg.yaml", path)
		return file, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GCPProject)
	assert.Equal(t, "statements", cfg.GCSBucket)
	assert.Equal(t, "250000", cfg.AmountCeiling.String())
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.True(t, cfg.UseModelExtraction)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.RequireCloud())
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(envFrom(map[string]string{"WORKER_COUNT": "many"}), noFile)
	assert.ErrorContains(t, err, "WORKER_COUNT")

	_, err = load(envFrom(map[string]string{"USE_MODEL_EXTRACTION": "maybe"}), noFile)
	assert.ErrorContains(t, err, "USE_MODEL_EXTRACTION")

	_, err = load(envFrom(map[string]string{"EXTRACTION_CONCURRENCY": "0"}), noFile)
	assert.ErrorContains(t, err, "extraction_concurrency")

	_, err = load(envFrom(map[string]string{"CONFIG_FILE": "missing.yaml"}), noFile)
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestRequireCloud(t *testing.T) {
	err := Default().RequireCloud()
	assert.ErrorContains(t, err, "GCP_PROJECT, GCS_BUCKET")
}
