package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("AI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("ANALYTICS_TIMEZONE", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "", cfg.AI.APIKey)
		assert.Equal(t, 30*time.Second, cfg.AI.Timeout())
		assert.Equal(t, 10, cfg.AI.SuggestionHistory)
		assert.True(t, cfg.AI.MockFallback)
		assert.False(t, cfg.Ingest.ResolutionLock)
		assert.Equal(t, 45*time.Second, cfg.App.RequestTimeout())

		loc, err := cfg.Analytics.Location()
		require.NoError(t, err)
		assert.Equal(t, time.UTC, loc)
	})

	t.Run("AI key falls back to GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("AI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "gem-key", cfg.AI.APIKey)
	})

	t.Run("AI_API_KEY wins", func(t *testing.T) {
		t.Setenv("AI_API_KEY", "primary")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "primary", cfg.AI.APIKey)
	})

	t.Run("invalid timezone is rejected", func(t *testing.T) {
		t.Setenv("ANALYTICS_TIMEZONE", "Mars/Olympus_Mons")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid REDIS_DB is rejected", func(t *testing.T) {
		t.Setenv("REDIS_DB", "zero")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed ints fall back", func(t *testing.T) {
		t.Setenv("AI_TIMEOUT_SECONDS", "soon")
		t.Setenv("INGEST_RESOLUTION_LOCK", "yes-please")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.AI.Timeout())
		assert.False(t, cfg.Ingest.ResolutionLock)
	})
}
