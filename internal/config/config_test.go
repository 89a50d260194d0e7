package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No config file present: defaults apply.
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.OutputDir)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.CacheEnabled)
	assert.True(t, cfg.DiagramsEnabled)
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0755))

	content := `output_dir: site
concurrency: 8
cache_enabled: false
exclude:
  - "testdata/*"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, FileName), []byte(content), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "site", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, []string{"testdata/*"}, cfg.Exclude)

	// Keys absent from the file keep their defaults (we unmarshal into
	// the default struct, and yaml leaves missing keys untouched).
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
}

func TestLoadBadYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, FileName), []byte("{not yaml"), 0644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCGEN_OUTPUT_DIR", "generated")
	t.Setenv("DOCGEN_CONCURRENCY", "2")
	t.Setenv("DOCGEN_CACHE_ENABLED", "false")
	t.Setenv("DOCGEN_EXCLUDE", "a/*, b/*")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "generated", cfg.OutputDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, []string{"a/*", "b/*"}, cfg.Exclude)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"zero max file size", func(c *Config) { c.MaxFileSize = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"bad glob", func(c *Config) { c.Exclude = []string{"[invalid"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInit(t *testing.T) {
	root := t.TempDir()

	path, err := Init(root)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Starter config must load cleanly.
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.OutputDir)

	// Second init refuses to overwrite.
	_, err = Init(root)
	assert.Error(t, err)
}
