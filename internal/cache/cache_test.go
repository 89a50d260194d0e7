package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunprojectca/DocGen/internal/types"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSectionMissThenHit(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	got, err := c.GetSection(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil, nil")

	section := &types.DocSection{
		Kind:         types.SectionPackage,
		Path:         "internal/scanner",
		Title:        "scanner",
		Markdown:     "## scanner\n\nWalks the repo.",
		ContentHash:  "deadbeef",
		Model:        "claude-sonnet-4-5",
		InputTokens:  1200,
		OutputTokens: 400,
	}
	require.NoError(t, c.PutSection(ctx, section))

	got, err = c.GetSection(ctx, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.FromCache)
	assert.Equal(t, section.Markdown, got.Markdown)
	assert.Equal(t, section.Model, got.Model)
	assert.Equal(t, int64(1200), got.InputTokens)
}

func TestPutSectionRequiresHash(t *testing.T) {
	c := openTestCache(t)
	err := c.PutSection(context.Background(), &types.DocSection{Markdown: "x"})
	assert.Error(t, err)
}

func TestPutSectionReplaces(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutSection(ctx, &types.DocSection{ContentHash: "h1", Markdown: "old"}))
	require.NoError(t, c.PutSection(ctx, &types.DocSection{ContentHash: "h1", Markdown: "new"}))

	got, err := c.GetSection(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Markdown)
}

func TestStatsAndPurge(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutSection(ctx, &types.DocSection{
		ContentHash: "h1", Markdown: "12345", InputTokens: 100, OutputTokens: 50,
	}))
	require.NoError(t, c.PutSection(ctx, &types.DocSection{
		ContentHash: "h2", Markdown: "abc",
	}))

	// Two hits on h1.
	_, err := c.GetSection(ctx, "h1")
	require.NoError(t, err)
	_, err = c.GetSection(ctx, "h1")
	require.NoError(t, err)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sections)
	assert.Equal(t, int64(2), stats.TotalHits)
	assert.Equal(t, int64(8), stats.TotalBytes)
	assert.Equal(t, int64(300), stats.TokensSaved)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err = c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sections)
}

func TestRunLedger(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	run := &types.Run{
		ID:        uuid.New().String(),
		RepoPath:  "/tmp/demo",
		StartedAt: time.Now().UTC(),
		Status:    types.RunRunning,
	}
	require.NoError(t, c.StartRun(ctx, run))

	run.Status = types.RunCompleted
	run.FilesScanned = 42
	run.Packages = 7
	run.SectionsNew = 5
	run.SectionsCache = 2
	run.InputTokens = 10000
	run.OutputTokens = 3000
	run.CostUSD = 0.075
	require.NoError(t, c.FinishRun(ctx, run))

	runs, err := c.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, types.RunCompleted, got.Status)
	assert.Equal(t, 42, got.FilesScanned)
	assert.Equal(t, 2, got.SectionsCache)
	require.NotNil(t, got.FinishedAt)
	assert.InDelta(t, 0.075, got.CostUSD, 1e-9)
}

func TestFinishUnknownRun(t *testing.T) {
	c := openTestCache(t)
	err := c.FinishRun(context.Background(), &types.Run{ID: "nope", Status: types.RunFailed})
	assert.Error(t, err)
}

func TestListRunsOrdering(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		run := &types.Run{
			ID:        uuid.New().String(),
			RepoPath:  "/tmp/demo",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    types.RunRunning,
		}
		require.NoError(t, c.StartRun(ctx, run))
	}

	runs, err := c.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestConfigKV(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	val, err := c.GetConfig(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, c.SetConfig(ctx, "schema_version", "1"))
	require.NoError(t, c.SetConfig(ctx, "schema_version", "2"))

	val, err = c.GetConfig(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}
