package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 86400, cfg.Cache.TTLSeconds)
	assert.Equal(t, 24*time.Hour, cfg.TTL())
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, DefaultSources, cfg.Scraper.Sources)
	require.NoError(t, cfg.validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Cache.TTLSeconds = 0 },
			wantErr: "cache ttl must be positive",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Scraper.Concurrency = 0 },
			wantErr: "scraper concurrency must be positive",
		},
		{
			name:    "unsupported language",
			mutate:  func(c *Config) { c.Language = "fr" },
			wantErr: "unsupported language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCoercesLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestUploadPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "testdata"
	cfg.Scraper.UploadFile = "pop.xlsx"
	assert.Equal(t, "testdata/pop.xlsx", cfg.UploadPath())
}

func TestLoadUsesEnvPrefix(t *testing.T) {
	t.Setenv("POPFLOW_SERVER_PORT", "9191")
	t.Setenv("POPFLOW_LANGUAGE", "zh")
	t.Setenv("POPFLOW_CACHE_TTL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, time.Minute, cfg.TTL())
}
