package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BOT_TOKEN", "DEEPSEEK_API_KEY", "DEEPSEEK_API_URL", "DB_PATH", "LESSONS_FILE", "LEARNER_ID", "EXECUTION_DELAY", "LOG_MODE", "METRICS_ADDR", "TIMEZONE", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultDatabasePath, cfg.DatabasePath)
	assert.Equal(t, defaultLessonsFile, cfg.LessonsFile)
	assert.Equal(t, defaultDeepseekURL, cfg.DeepseekAPIURL)
	assert.Equal(t, time.Second, cfg.ExecutionDelay)
	assert.Equal(t, "dev", cfg.LogMode)
	assert.Equal(t, int64(0), cfg.LearnerID)
	assert.False(t, cfg.TutorEnabled())
	assert.Error(t, cfg.RequireBot())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DEEPSEEK_API_KEY", "key")
	t.Setenv("DB_PATH", "/tmp/progress.db")
	t.Setenv("LEARNER_ID", "4242")
	t.Setenv("EXECUTION_DELAY", "250ms")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireBot())
	assert.True(t, cfg.TutorEnabled())
	assert.Equal(t, "/tmp/progress.db", cfg.DatabasePath)
	assert.Equal(t, int64(4242), cfg.LearnerID)
	assert.Equal(t, 250*time.Millisecond, cfg.ExecutionDelay)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"learner id", "LEARNER_ID", "not-a-number"},
		{"delay", "EXECUTION_DELAY", "soon"},
		{"negative delay", "EXECUTION_DELAY", "-1s"},
		{"timezone", "TIMEZONE", "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
