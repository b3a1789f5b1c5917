package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Redis.ScoreTTL)
	assert.Equal(t, "models/trust_model.gob", cfg.Model.Path)
	assert.Equal(t, 3000, cfg.Model.TrainingSamples)
	assert.True(t, cfg.Model.TrainOnStart)
	assert.Equal(t, 100, cfg.Model.Trees)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, 5*time.Minute, cfg.Scoring.BatchInterval)
	assert.Equal(t, 8, cfg.Scoring.Parallelism)
	assert.Equal(t, 30*24*time.Hour, cfg.Scoring.EventLookback)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
environment: production
server:
  port: 9090
model:
  trees: 50
  training_samples: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Model.Trees)
	assert.Equal(t, 500, cfg.Model.TrainingSamples)
	// Untouched keys keep their defaults.
	assert.Equal(t, 8, cfg.Scoring.Parallelism)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ZTS_ENVIRONMENT", "staging")
	t.Setenv("ZTS_SERVER__PORT", "7070")
	t.Setenv("ZTS_MODEL__TREES", "25")
	t.Setenv("ZTS_MODEL__TRAINING_SAMPLES", "1200")
	t.Setenv("ZTS_DATABASE__URL", "postgres://localhost:5432/zts")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Model.Trees)
	assert.Equal(t, 1200, cfg.Model.TrainingSamples)
	assert.Equal(t, "postgres://localhost:5432/zts", cfg.Database.URL)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("ZTS_SERVER__PORT", "6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		envVal  string
		wantMsg string
	}{
		{"zero trees", "ZTS_MODEL__TREES", "0", "model.trees"},
		{"negative samples", "ZTS_MODEL__TRAINING_SAMPLES", "-5", "model.training_samples"},
		{"zero parallelism", "ZTS_SCORING__PARALLELISM", "0", "scoring.parallelism"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envVal)

			_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
