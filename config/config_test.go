package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERPER_API_KEY", "GOOGLE_API_KEY", "SERP_API_KEY", "PORT", "FRONTEND_URL",
		"DATABASE_URL", "GEMINI_MODEL", "LLM_TEMPERATURE", "PLAN_CACHE_TTL",
		"RATE_LIMIT_PER_MINUTE", "PLAN_RATE_LIMIT_PER_MINUTE", "IMAGE_LIMIT",
		"PLANNER_CONFIG", "SENTRY_DSN", "GIN_MODE", "ENVIRONMENT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 30*24*time.Hour, cfg.PlanCacheTTL())
	assert.Equal(t, "sqlite://planner.db", cfg.DatabaseURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPER_API_KEY", "serper")
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("SERP_API_KEY", "serp")
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("PLAN_CACHE_TTL", "2h")
	t.Setenv("IMAGE_LIMIT", "6")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 2*time.Hour, cfg.PlanCacheTTL())
	assert.Equal(t, 6, cfg.ImageLimit)
	assert.ElementsMatch(t, []string{"serper", "google", "serp"}, cfg.Secrets())
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "warm")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_TOMLOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "planner.toml")
	contents := `
[llm]
model = "gemini-2.5-pro"
temperature = 0.8

[cors]
origins = ["https://planner.example.com"]

[cache]
ttl = "72h"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv("PLANNER_CONFIG", path)
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash-lite")

	cfg, err := Load()
	require.NoError(t, err)

	// environment wins over the file
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.LLM.Model)
	assert.InDelta(t, 0.8, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 72*time.Hour, cfg.PlanCacheTTL())
	assert.Equal(t, []string{"http://localhost:3000", "https://planner.example.com"}, cfg.AllowedOrigins())
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "planner.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm\nmodel = "), 0o600))
	t.Setenv("PLANNER_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_MissingConfiguration(t *testing.T) {
	cfg := Default()
	cfg.GoogleAPIKey = "google"

	err := cfg.Validate()
	require.Error(t, err)

	var missing *MissingConfigurationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"SERPER_API_KEY", "SERP_API_KEY"}, missing.Keys)
	assert.Contains(t, err.Error(), "SERPER_API_KEY, SERP_API_KEY")
}

func TestValidate_Temperature(t *testing.T) {
	cfg := Default()
	cfg.SerperAPIKey, cfg.GoogleAPIKey, cfg.SerpAPIKey = "a", "b", "c"
	cfg.LLM.Temperature = 3

	assert.Error(t, cfg.Validate())
}
