package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ParsesDatabasesAndRetention(t *testing.T) {
	yaml := `
backup:
  output_directory: "/srv/backups"
  include_companion_files: false
databases:
  primary:
    path: "/data/reading.db"
  secondary:
    name: "calibre.db"
    path: "/library/metadata.db"
    enabled: true
retention:
  keep_last: 3
`
	path := writeConfig(t, t.TempDir(), "config.yaml", yaml)

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, "/srv/backups", cfg.Backup.OutputDirectory)
	assert.False(t, cfg.Backup.IncludeCompanionFiles)
	assert.Equal(t, "reading.db", cfg.Databases.Primary.LogicalName())
	assert.Equal(t, "calibre.db", cfg.Databases.Secondary.LogicalName())
	assert.True(t, cfg.SecondaryEnabled())
	assert.Equal(t, 3, cfg.Retention.KeepLast)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
databases:
  primary:
    path: "/data/reading.db"
`)

	var cfg Config
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, DefaultKeepLast, cfg.Retention.KeepLast)
	assert.True(t, cfg.Backup.IncludeCompanionFiles)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SecondaryEnabled(), "secondary without a path is never enabled")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
databases:
  primary:
    path: "/data/reading.db"
retention:
  keep_last: 4
`)
	t.Setenv("SHELFSAFE_RETENTION_KEEP_LAST", "9")

	var cfg Config
	require.NoError(t, cfg.Load(path))
	assert.Equal(t, 9, cfg.Retention.KeepLast)
}

func TestLoad_MergesIncludes(t *testing.T) {
	dir := t.TempDir()
	inc := writeConfig(t, dir, "secondary.yaml", `
databases:
  secondary:
    path: "/library/metadata.db"
`)
	path := writeConfig(t, dir, "config.yaml", `
include:
  - `+inc+`
databases:
  primary:
    path: "/data/reading.db"
`)

	var cfg Config
	require.NoError(t, cfg.Load(path))
	assert.Equal(t, "/library/metadata.db", cfg.Databases.Secondary.Path)
	assert.Equal(t, "/data/reading.db", cfg.Databases.Primary.Path)
}

func TestLoad_ExpandsHome(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
backup:
  output_directory: "~/shelf-backups"
databases:
  primary:
    path: "/data/reading.db"
`)

	var cfg Config
	require.NoError(t, cfg.Load(path))

	want, err := homedir.Expand("~/shelf-backups")
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Backup.OutputDirectory)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
databases:
  primary:
    path: "/data/reading.db"
retention:
  keep_lsat: 3
`)

	var cfg Config
	err := cfg.Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadConfig))
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg Config
	err := cfg.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestValidate(t *testing.T) {
	base := Config{
		Backup:    BackupConfig{OutputDirectory: "/srv/backups"},
		Databases: DatabasesConfig{Primary: DatabaseConfig{Path: "/data/reading.db"}},
		Retention: RetentionConfig{KeepLast: 6},
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing primary", func(c *Config) { c.Databases.Primary.Path = "" }},
		{"missing output", func(c *Config) { c.Backup.OutputDirectory = "" }},
		{"zero retention", func(c *Config) { c.Retention.KeepLast = 0 }},
		{"name clash", func(c *Config) {
			c.Databases.Secondary = DatabaseConfig{Path: "/other/reading.db", Enabled: true}
		}},
	}

	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrValidateConfig)
		})
	}
}
