// Package config loads docgen configuration from .docgen/config.yaml,
// applies DOCGEN_* environment overrides, and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dir is the per-repo directory where docgen keeps its config, cache
// database, and cost state.
const Dir = ".docgen"

// FileName is the config file name inside Dir.
const FileName = "config.yaml"

// Config holds generation settings for a repository.
type Config struct {
	// OutputDir is where generated documentation is written.
	// Default: "docs"
	OutputDir string `yaml:"output_dir"`

	// Include restricts scanning to paths matching these globs.
	// Empty means everything.
	Include []string `yaml:"include,omitempty"`

	// Exclude skips paths matching these globs (in addition to the
	// built-in skip list: VCS dirs, vendor trees, node_modules, etc.)
	Exclude []string `yaml:"exclude,omitempty"`

	// Languages restricts documentation to these languages.
	// Empty means all detected languages.
	Languages []string `yaml:"languages,omitempty"`

	// MaxFileSize is the largest file (in bytes) the scanner will read.
	// Default: 1 MiB.
	MaxFileSize int64 `yaml:"max_file_size"`

	// Model is the model used for package docs and overviews.
	// Empty uses the built-in default.
	Model string `yaml:"model,omitempty"`

	// SimpleModel is the cheaper model used for one-line summaries.
	SimpleModel string `yaml:"simple_model,omitempty"`

	// Concurrency is how many packages are documented in parallel.
	// Default: 4.
	Concurrency int `yaml:"concurrency"`

	// CacheEnabled controls the section cache. Default: true.
	CacheEnabled bool `yaml:"cache_enabled"`

	// DiagramsEnabled controls Mermaid diagram emission. Default: true.
	DiagramsEnabled bool `yaml:"diagrams_enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir:       "docs",
		MaxFileSize:     1 << 20,
		Concurrency:     4,
		CacheEnabled:    true,
		DiagramsEnabled: true,
	}
}

// Load reads the config file under repoRoot (if present), applies
// environment overrides, validates, and returns the result. A missing
// config file is not an error; defaults are used.
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(repoRoot, Dir, FileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides config fields from DOCGEN_* environment variables.
func (c *Config) applyEnv() {
	if val := os.Getenv("DOCGEN_OUTPUT_DIR"); val != "" {
		c.OutputDir = val
	}
	if val := os.Getenv("DOCGEN_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("DOCGEN_SIMPLE_MODEL"); val != "" {
		c.SimpleModel = val
	}
	if val := os.Getenv("DOCGEN_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
	if val := os.Getenv("DOCGEN_MAX_FILE_SIZE"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			c.MaxFileSize = n
		}
	}
	if val := os.Getenv("DOCGEN_CACHE_ENABLED"); val != "" {
		c.CacheEnabled = parseBool(val)
	}
	if val := os.Getenv("DOCGEN_DIAGRAMS_ENABLED"); val != "" {
		c.DiagramsEnabled = parseBool(val)
	}
	if val := os.Getenv("DOCGEN_EXCLUDE"); val != "" {
		for _, g := range strings.Split(val, ",") {
			if g = strings.TrimSpace(g); g != "" {
				c.Exclude = append(c.Exclude, g)
			}
		}
	}
}

// Validate checks that the configuration has safe and reasonable values.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	for _, g := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := filepath.Match(g, "probe"); err != nil {
			return fmt.Errorf("invalid glob %q: %w", g, err)
		}
	}
	return nil
}

// starter is the commented config written by `docgen init`.
const starter = `# docgen configuration
#
# Generated documentation is written here, relative to the repo root.
output_dir: docs

# Largest file (bytes) the scanner will read.
max_file_size: 1048576

# How many packages are documented in parallel.
concurrency: 4

# Cache generated sections by content hash so unchanged code is free.
cache_enabled: true

# Emit Mermaid diagrams alongside the prose.
diagrams_enabled: true

# Extra paths to skip (globs, in addition to the built-in skip list):
# exclude:
#   - "testdata/*"
#   - "*.gen.go"
`

// Init creates the .docgen directory and writes the starter config file.
// It refuses to overwrite an existing config.
func Init(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(starter), 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// parseBool parses a boolean string.
func parseBool(val string) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}
