package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8080", cfg.GetAddress())
	assert.Contains(t, cfg.Scraper.UserAgent, "Mozilla/5.0")

	// Unbounded cache by default.
	assert.Zero(t, cfg.Cache.TTLMinutes)
	assert.Zero(t, cfg.Cache.MaxEntries)
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config file should have been written")

	// Loading the file it just wrote round-trips.
	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = "9000"
host = "127.0.0.1"

[cache]
ttl_minutes = 30
max_entries = 500

[resolver]
cookies_file = "/var/lib/tunelink/cookies.txt"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetAddress())
	assert.Equal(t, 30, cfg.Cache.TTLMinutes)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "/var/lib/tunelink/cookies.txt", cfg.Resolver.CookiesFile)

	// Sections left out keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "yt-dlp", cfg.Resolver.YtDlpPath)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty port", mutate: func(c *Config) { c.Server.Port = "" }},
		{name: "empty host", mutate: func(c *Config) { c.Server.Host = "" }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "empty user agent", mutate: func(c *Config) { c.Scraper.UserAgent = "" }},
		{name: "zero scraper timeout", mutate: func(c *Config) { c.Scraper.TimeoutSeconds = 0 }},
		{name: "zero request rate", mutate: func(c *Config) { c.Scraper.RequestsPerSecond = 0 }},
		{name: "zero burst", mutate: func(c *Config) { c.Scraper.Burst = 0 }},
		{name: "empty yt-dlp path", mutate: func(c *Config) { c.Resolver.YtDlpPath = "" }},
		{name: "zero resolver timeout", mutate: func(c *Config) { c.Resolver.TimeoutSeconds = 0 }},
		{name: "negative cache ttl", mutate: func(c *Config) { c.Cache.TTLMinutes = -1 }},
		{name: "negative cache size", mutate: func(c *Config) { c.Cache.MaxEntries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
