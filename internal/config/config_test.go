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
	t.Chdir(t.TempDir())
	cfg, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "freshpos.db", cfg.DBDSN)
	assert.Equal(t, 10*time.Second, cfg.FreshnessWindow)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pos.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: "9000"
db_dsn: ":memory:"
freshness_window: 30s
time_zone: UTC
default_language: en_US
`), 0o644))
	t.Setenv("FRESHPOS_PORT", "9100")

	cfg, err := NewLoader().Load(file)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.Equal(t, ":memory:", cfg.DBDSN)
	assert.Equal(t, 30*time.Second, cfg.FreshnessWindow)
	assert.Equal(t, "en_US", cfg.DefaultLanguage)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := NewLoader().Load("")
	require.NoError(t, err)

	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"port", func(c *Config) { c.Port = "http" }},
		{"dsn", func(c *Config) { c.DBDSN = " " }},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"window", func(c *Config) { c.FreshnessWindow = 0 }},
		{"zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }},
		{"pin", func(c *Config) { c.ManagerPIN = "12ab" }},
		{"upload", func(c *Config) { c.MaxUploadBytes = 10 }},
		{"idle", func(c *Config) { c.SessionIdle = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mut(&c)
			assert.Error(t, c.Validate())
		})
	}
}
