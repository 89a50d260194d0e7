package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunprojectca/DocGen/internal/ai"
	"github.com/sunprojectca/DocGen/internal/cache"
	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/cost"
	"github.com/sunprojectca/DocGen/internal/types"
)

// writeTestRepo lays out a small Go repository under a temp dir.
func writeTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.23\n",
		"main.go": `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`,
		"internal/store/store.go": `package store

// Store holds key/value pairs.
type Store struct {
	data map[string]string
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.data[key]
	return v, ok
}
`,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRunDryRun(t *testing.T) {
	root := writeTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, 0o644))
	opts := Options{RepoPath: root, DryRun: true}

	p, err := New(root, config.Default(), opts)
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, types.RunCompleted, result.Run.Status)
	assert.Equal(t, 2, result.Run.FilesScanned, "go.mod is not a documentable source file")
	assert.Equal(t, 2, result.Run.Packages)
	assert.Equal(t, 1, result.Skipped, "the binary file is skipped, not scanned")
	assert.Empty(t, result.Written, "dry run must not write pages")
	require.Len(t, result.Deps, 0, "demo module has no requires")

	// Nothing on disk changed.
	_, err = os.Stat(filepath.Join(root, "docs"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, ".docgen"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunNoAI(t *testing.T) {
	root := writeTestRepo(t)
	opts := Options{RepoPath: root, NoAI: true}

	p, err := New(root, config.Default(), opts)
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, types.RunCompleted, result.Run.Status)
	assert.Zero(t, result.Run.InputTokens)
	assert.Contains(t, result.Written, "README.md")
	assert.Contains(t, result.Written, "internal-store.md")

	index, err := os.ReadFile(filepath.Join(root, "docs", "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "```mermaid")
	assert.Contains(t, string(index), "[internal/store](internal-store.md)")

	page, err := os.ReadFile(filepath.Join(root, "docs", "internal-store.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Declarations")
	assert.Contains(t, string(page), "`Store`")
}

func TestRunEmptyRepoFails(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("nothing documentable"), 0o644))

	opts := Options{RepoPath: root, DryRun: true}
	p, err := New(root, config.Default(), opts)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documentable source files")
}

func TestRunPackageFilter(t *testing.T) {
	root := writeTestRepo(t)
	opts := Options{RepoPath: root, DryRun: true, Packages: []string{"internal/store"}}

	p, err := New(root, config.Default(), opts)
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Run.Packages)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, "internal/store", result.Packages[0].Pkg.Path)
}

func TestFilterPackages(t *testing.T) {
	pkgs := []*types.Package{
		{Path: "."},
		{Path: "internal/store"},
		{Path: "internal/store/migrations"},
		{Path: "cmd/demo"},
	}

	assert.Len(t, filterPackages(pkgs, nil), 4, "no globs keeps everything")

	got := filterPackages(pkgs, []string{"internal/*"})
	require.Len(t, got, 1)
	assert.Equal(t, "internal/store", got[0].Path)

	got = filterPackages(pkgs, []string{"internal/store"})
	require.Len(t, got, 2, "a directory glob selects its subtree")

	got = filterPackages(pkgs, []string{"cmd/*", "."})
	assert.Len(t, got, 2)

	assert.Empty(t, filterPackages(pkgs, []string{"nonexistent"}))
}

func TestBudgetGateBlocksWhenExceeded(t *testing.T) {
	var _ ai.CostTracker = BudgetGate{}

	costCfg := cost.DefaultConfig()
	costCfg.MaxTokensPerHour = 1000
	costCfg.PersistStatePath = filepath.Join(t.TempDir(), "cost_state.json")
	tracker, err := cost.NewTracker(costCfg)
	require.NoError(t, err)

	gate := BudgetGate{Tracker: tracker}
	runID := "run-1"

	ok, _ := gate.CanProceed(runID)
	assert.True(t, ok)

	require.NoError(t, gate.RecordUsage(runID, 900, 200))
	ok, reason := gate.CanProceed(runID)
	assert.False(t, ok, "spend above the hourly budget must block further calls")
	assert.Contains(t, reason, "budget exceeded")
}

func TestNewBudgetGatePersistsUnderRepo(t *testing.T) {
	t.Setenv("DOCGEN_COST_ENABLED", "true")
	root := t.TempDir()
	gate, err := NewBudgetGate(root)
	require.NoError(t, err)
	require.NotNil(t, gate.Tracker)

	require.NoError(t, gate.RecordUsage("run-1", 10, 10))
	_, err = os.Stat(filepath.Join(root, config.Dir, "cost_state.json"))
	assert.NoError(t, err, "spend state persists under the repo's .docgen dir")
}

func TestCacheDisabledBypassesStore(t *testing.T) {
	ctx := context.Background()
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	cfg := config.Default()
	cfg.CacheEnabled = false
	p := &Pipeline{cfg: cfg, store: store}

	section := &types.DocSection{
		Kind:        types.SectionPackage,
		Path:        "internal/store",
		Title:       "internal/store",
		Markdown:    "cached body",
		ContentHash: "feedface00000000",
		Model:       "model-x",
		CreatedAt:   time.Now().UTC(),
	}

	p.storeSection(ctx, section)
	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Sections, "disabled cache must not persist sections")

	// A pre-seeded section stays invisible while caching is off.
	require.NoError(t, store.PutSection(ctx, section))
	assert.Nil(t, p.cachedSection(ctx, Options{}, section.ContentHash))

	cfg.CacheEnabled = true
	got := p.cachedSection(ctx, Options{}, section.ContentHash)
	require.NotNil(t, got)
	assert.Equal(t, "cached body", got.Markdown)

	assert.Nil(t, p.cachedSection(ctx, Options{Force: true}, section.ContentHash),
		"--force regenerates even with a warm cache")
}

func TestSectionHashStability(t *testing.T) {
	a := sectionHash(types.SectionPackage, "internal/store", "abc123", "model-x")
	b := sectionHash(types.SectionPackage, "internal/store", "abc123", "model-x")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, sectionHash(types.SectionPackage, "internal/store", "abc124", "model-x"),
		"code changes must change the key")
	assert.NotEqual(t, a, sectionHash(types.SectionPackage, "internal/store", "abc123", "model-y"),
		"model changes must change the key")
	assert.NotEqual(t, a, sectionHash(types.SectionOverview, "internal/store", "abc123", "model-x"),
		"section kind is part of the key")
	assert.Len(t, a, 16)
}

func TestModuleName(t *testing.T) {
	root := writeTestRepo(t)
	assert.Equal(t, "example.com/demo", ModuleName(root))

	plain := t.TempDir()
	assert.Equal(t, filepath.Base(plain), ModuleName(plain))
}
