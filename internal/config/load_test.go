package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Database.URL)

	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.LLM.BaseURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, time.Second, cfg.LLM.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.LLM.MaxDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.LLM.InterCallDelay)
	assert.Equal(t, 3, cfg.LLM.DisableThreshold)
	assert.Equal(t, time.Hour, cfg.LLM.QuotaWindow)

	keys := cfg.LLM.APIKeyList()
	assert.Len(t, keys, 5, "the built-in development pool carries five keys")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("READPULSE_SERVER_PORT", "9090")
	t.Setenv("READPULSE_SERVER_LOG_LEVEL", "debug")
	t.Setenv("READPULSE_LLM_API_KEYS", "key-a,key-b")
	t.Setenv("READPULSE_LLM_MAX_ATTEMPTS", "7")
	t.Setenv("READPULSE_LLM_QUOTA_WINDOW", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.LLM.APIKeyList())
	assert.Equal(t, 7, cfg.LLM.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.LLM.QuotaWindow)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port out of range": {"READPULSE_SERVER_PORT", "99999"},
		"bad log level":     {"READPULSE_SERVER_LOG_LEVEL", "verbose"},
		"bad database url":  {"READPULSE_DATABASE_URL", "not a url"},
		"zero quota window": {"READPULSE_LLM_QUOTA_WINDOW", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAPIKeyListTrimsAndDropsEmpties(t *testing.T) {
	cfg := LLMConfig{APIKeys: " key-a , ,key-b,, key-c "}
	assert.Equal(t, []string{"key-a", "key-b", "key-c"}, cfg.APIKeyList())
}
