package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchedule_Defaults(t *testing.T) {
	schedule, err := LoadSchedule("")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, schedule.Families["batting"].Interval)
	assert.Equal(t, 5*time.Minute, schedule.Families["bowling"].Interval)
	assert.Equal(t, 5*time.Minute, schedule.Families["match_result"].Interval)
	assert.True(t, schedule.Families["match_result"].Enabled)
}

func TestLoadSchedule_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	content := `
families:
  batting:
    enabled: true
    interval: 2m
    fixtures: [1001, 1002]
  bowling:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	schedule, err := LoadSchedule(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, schedule.Families["batting"].Interval)
	assert.Equal(t, []int64{1001, 1002}, schedule.Families["batting"].Fixtures)
	assert.False(t, schedule.Families["bowling"].Enabled)
}

func TestLoadSchedule_RejectsShortInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte("families:\n  batting:\n    interval: 1s\n"), 0o600))

	_, err := LoadSchedule(path)
	assert.Error(t, err)
}

func TestLoadSchedule_MissingFile(t *testing.T) {
	_, err := LoadSchedule(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewTestConfig()
	cfg.DatabaseURL = "postgres://localhost:5432"
	cfg.ProviderAPIToken = "token"
	require.NoError(t, cfg.Validate())

	t.Run("missing database url", func(t *testing.T) {
		c := *cfg
		c.DatabaseURL = ""
		assert.Error(t, c.Validate())
	})

	t.Run("bad not-out policy", func(t *testing.T) {
		c := *cfg
		c.NotOutPolicy = "guess"
		assert.Error(t, c.Validate())
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		c := *cfg
		c.EventBus = "kafka"
		assert.Error(t, c.Validate())
	})
}

func TestGet_TestEnvironmentFallback(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	custom := NewTestConfig()
	custom.HouseAccountID = 42
	SetTestConfig(custom)

	assert.Equal(t, int64(42), Get().HouseAccountID)
}
