package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/flightlog/insight"
)

func lookupFrom(env map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// chdir moves into dir for the rest of the test so godotenv sees no .env file.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, 120*time.Second, cfg.Decode.MaxDuration())
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLM.BaseURL)
	assert.False(t, cfg.LLM.Enabled())
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, insight.DefaultThresholds(), cfg.Insight.Thresholds())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"LISTEN_ADDR":        ":9090",
		"MAX_UPLOAD_MB":      "16",
		"MAX_MESSAGES":       "1000",
		"MAX_DECODE_SECONDS": "5",
		"RATE_LIMIT_RPS":     "2.5",
		"RATE_LIMIT_BURST":   "4",
		"CORS_ORIGINS":       "https://a.example, https://b.example,",
		"API_KEYS":           "k1,k2",
		"MASTER_API_KEY":     "master",
		"GROQ_API_KEY":       "gsk_test",
		"LLM_MODEL":          "llama-3.1-8b-instant",
		"DB_HOST":            "localhost",
		"DB_NAME":            "flightlog",
		"LOG_LEVEL":          "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, int64(16), cfg.Server.MaxUploadMB)
	assert.Equal(t, 1000, cfg.Decode.MaxMessages)
	assert.Equal(t, 5*time.Second, cfg.Decode.MaxDuration())
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 4, cfg.Server.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "master", cfg.Server.MasterKey)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "5432", cfg.Database.Settings().Port)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestApplyEnvInsight(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookupFrom(map[string]string{
		"INSIGHT_ALTITUDE_DROP_METRES":    "25.5",
		"INSIGHT_ALTITUDE_DROP_WINDOW_MS": "5000",
		"INSIGHT_MIN_SATELLITES":          "9",
		"INSIGHT_LOW_VOLTAGE":             "22.2",
		"INSIGHT_LOW_BATTERY_PERCENT":     "30",
		"INSIGHT_MAX_FINDINGS":            "5",
	})))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, insight.Thresholds{
		AltitudeDropMetres:   25.5,
		AltitudeDropWindowMs: 5000,
		MinSatellites:        9,
		LowVoltage:           22.2,
		LowBatteryPercent:    30,
		MaxFindings:          5,
	}, cfg.Insight.Thresholds())
}

func TestLLMAPIKeyTakesPrecedence(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookupFrom(map[string]string{
		"GROQ_API_KEY": "groq",
		"LLM_API_KEY":  "generic",
	})))
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"MAX_UPLOAD_MB":  "lots",
		"MAX_MESSAGES":   "1e3",
		"RATE_LIMIT_RPS": "fast",

		"INSIGHT_LOW_VOLTAGE": "low",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_MB")
	assert.Contains(t, err.Error(), "MAX_MESSAGES")
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
	assert.Contains(t, err.Error(), "INSIGHT_LOW_VOLTAGE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen address", func(c *Config) { c.Server.ListenAddr = "" }},
		{"zero upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"zero burst", func(c *Config) { c.Server.RateLimitBurst = 0 }},
		{"negative messages", func(c *Config) { c.Decode.MaxMessages = -1 }},
		{"negative seconds", func(c *Config) { c.Decode.MaxDecodeSeconds = -1 }},
		{"llm without url", func(c *Config) { c.LLM.APIKey = "k"; c.LLM.BaseURL = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"zero drop window", func(c *Config) { c.Insight.AltitudeDropWindowMs = 0 }},
		{"satellites overflow", func(c *Config) { c.Insight.MinSatellites = 300 }},
		{"battery over 100", func(c *Config) { c.Insight.LowBatteryPercent = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "flightlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":7070"
  max_upload_mb: 8
  read_timeout: 30s
decode:
  max_messages: 500
llm:
  model: local-model
insight:
  min_satellites: 10
log_level: warn
`), 0o644))

	for _, key := range []string{"LISTEN_ADDR", "MAX_UPLOAD_MB", "LLM_MODEL", "LOG_LEVEL", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}
	t.Setenv("MAX_MESSAGES", "700")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, int64(8), cfg.Server.MaxUploadMB)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 700, cfg.Decode.MaxMessages, "environment wins over the file")
	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, uint8(10), cfg.Insight.Thresholds().MinSatellites)
	// Defaults survive for keys the file leaves out.
	assert.Equal(t, 20, cfg.Server.RateLimitBurst)
	assert.Contains(t, cfg.Warnings, "no .env file found, using environment variables")
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}
