package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

// fakeCostTracker is a CostTracker test double.
type fakeCostTracker struct {
	mu       sync.Mutex
	allow    bool
	reason   string
	recorded []int64
}

func (f *fakeCostTracker) RecordUsage(runID string, inputTokens, outputTokens int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, inputTokens+outputTokens)
	return nil
}

func (f *fakeCostTracker) CanProceed(runID string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allow, f.reason
}

func newTestGenerator(t *testing.T, retry RetryConfig, tracker CostTracker) *Generator {
	t.Helper()
	g, err := NewGenerator(&Config{
		APIKey:      "test-key",
		Retry:       retry,
		CostTracker: tracker,
		RunID:       "run-1",
	})
	require.NoError(t, err)
	return g
}

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.RequestsPerSecond = 0
	return cfg
}

func TestGetDefaultModelEnvOverride(t *testing.T) {
	assert.Equal(t, ModelDefault, GetDefaultModel())
	t.Setenv("DOCGEN_MODEL_DEFAULT", "claude-test-model")
	assert.Equal(t, "claude-test-model", GetDefaultModel())
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewGenerator(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	g := newTestGenerator(t, fastRetryConfig(), nil)

	attempts := 0
	err := g.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	g := newTestGenerator(t, fastRetryConfig(), nil)

	attempts := 0
	err := g.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		attempts++
		return errors.New("400 bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "permanent errors should not be retried")
}

func TestRetryBlockedByBudget(t *testing.T) {
	tracker := &fakeCostTracker{allow: false, reason: "hourly token budget exhausted"}
	g := newTestGenerator(t, fastRetryConfig(), tracker)

	called := false
	err := g.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
	assert.False(t, called, "blocked calls must never reach the API")
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	g := newTestGenerator(t, fastRetryConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.retryWithBackoff(ctx, "test_op", func(ctx context.Context) error {
		return errors.New("503 service unavailable")
	})
	require.Error(t, err)
}

func TestHealthCheckReportsOpenCircuit(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.FailureThreshold = 1
	g := newTestGenerator(t, cfg, nil)

	require.NoError(t, g.HealthCheck())

	g.circuitBreaker.RecordFailure()
	err := g.HealthCheck()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestIsSimplePackage(t *testing.T) {
	small := &parser.PackageInfo{
		Pkg: &types.Package{Path: "internal/tiny", Files: []types.SourceFile{{Path: "a.go"}}},
		Files: []parser.FileInfo{
			{Path: "a.go", Symbols: make([]types.Symbol, 5)},
		},
	}
	assert.True(t, isSimplePackage(small))

	manySymbols := &parser.PackageInfo{
		Pkg: &types.Package{Path: "internal/big", Files: []types.SourceFile{{Path: "a.go"}}},
		Files: []parser.FileInfo{
			{Path: "a.go", Symbols: make([]types.Symbol, 40)},
		},
	}
	assert.False(t, isSimplePackage(manySymbols))

	manyFiles := &parser.PackageInfo{
		Pkg: &types.Package{Path: "internal/wide", Files: make([]types.SourceFile, 6)},
		Files: []parser.FileInfo{
			{Path: "a.go", Symbols: make([]types.Symbol, 1)},
		},
	}
	assert.False(t, isSimplePackage(manyFiles))
}

func TestBuildPackagePromptIncludesDeclarations(t *testing.T) {
	info := &parser.PackageInfo{
		Pkg: &types.Package{Path: "internal/cache", Name: "cache", Language: types.LangGo,
			Files: []types.SourceFile{{Path: "cache.go"}}},
		Files: []parser.FileInfo{{
			Path: "internal/cache/cache.go",
			Symbols: []types.Symbol{
				{Name: "Open", Kind: types.SymbolFunc, Signature: "func Open(path string) (*Store, error)", Exported: true},
			},
		}},
		Imports: []string{"database/sql"},
	}

	prompt := buildPackagePrompt(info)
	assert.Contains(t, prompt, "internal/cache")
	assert.Contains(t, prompt, "func Open(path string) (*Store, error)")
	assert.Contains(t, prompt, "database/sql")
	assert.Contains(t, prompt, "ONLY the Markdown body")
}

func TestBuildPackagePromptFallsBackToFileHeads(t *testing.T) {
	info := &parser.PackageInfo{
		Pkg: &types.Package{Path: "scripts", Language: types.LangShell,
			Files: []types.SourceFile{{Path: "scripts/deploy.sh"}}},
		Files: []parser.FileInfo{{
			Path: "scripts/deploy.sh",
			Head: "#!/bin/sh\nset -eu\nrsync docs/ remote:/srv/docs\n",
		}},
	}

	prompt := buildPackagePrompt(info)
	assert.Contains(t, prompt, "No declarations were extracted")
	assert.Contains(t, prompt, "rsync docs/")
}

func TestBuildAuditPromptListsDependencies(t *testing.T) {
	deps := []types.Dependency{
		{Name: "github.com/spf13/cobra", Version: "v1.8.1", Ecosystem: types.EcosystemGo, Manifest: "go.mod"},
		{Name: "left-pad", Version: "^1.3.0", Ecosystem: types.EcosystemNPM, Manifest: "package.json", Indirect: true},
	}

	prompt := buildAuditPrompt(deps)
	assert.Contains(t, prompt, "github.com/spf13/cobra")
	assert.Contains(t, prompt, "left-pad")
	assert.Contains(t, prompt, "(indirect/dev)")
	assert.Contains(t, prompt, "ONLY raw JSON")
}
