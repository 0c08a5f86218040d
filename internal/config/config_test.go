package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WHEELHOUSE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 4, cfg.EvalWorkers)
	assert.Equal(t, 0.05, cfg.SeverityPassThreshold)
	assert.Equal(t, 0.20, cfg.SeverityMinorThreshold)
	assert.DirExists(t, cfg.DataDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WHEELHOUSE_DATA_DIR", t.TempDir())
	t.Setenv("WHEELHOUSE_PORT", "9100")
	t.Setenv("EVAL_WORKERS", "8")
	t.Setenv("SEVERITY_PASS_THRESHOLD", "0.02")
	t.Setenv("SEVERITY_MINOR_THRESHOLD", "0.15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 8, cfg.EvalWorkers)
	assert.Equal(t, 0.02, cfg.SeverityPassThreshold)
	assert.Equal(t, 0.15, cfg.SeverityMinorThreshold)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:                   8010,
		EvalWorkers:            4,
		SeverityPassThreshold:  0.05,
		SeverityMinorThreshold: 0.20,
	}
	assert.NoError(t, valid.Validate())

	badPort := valid
	badPort.Port = 0
	assert.Error(t, badPort.Validate())

	badWorkers := valid
	badWorkers.EvalWorkers = 0
	assert.Error(t, badWorkers.Validate())

	negativePass := valid
	negativePass.SeverityPassThreshold = -0.1
	assert.Error(t, negativePass.Validate())

	inverted := valid
	inverted.SeverityPassThreshold = 0.3
	inverted.SeverityMinorThreshold = 0.2
	assert.Error(t, inverted.Validate())
}
