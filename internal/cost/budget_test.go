package cost

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns an enabled config with tight limits and state
// persisted under a temp dir.
func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxTokensPerHour = 1000
	cfg.MaxTokensPerRun = 500
	cfg.MaxCostPerHour = 0 // token limits only
	cfg.PersistStatePath = filepath.Join(t.TempDir(), "cost_state.json")
	return cfg
}

func TestRecordUsageStatuses(t *testing.T) {
	tracker, err := NewTracker(testConfig(t))
	require.NoError(t, err)

	status, err := tracker.RecordUsage("run-1", 100, 100)
	require.NoError(t, err)
	assert.Equal(t, BudgetHealthy, status)

	// 80% of 1000 tokens crosses the default alert threshold.
	status, err = tracker.RecordUsage("run-1", 300, 300)
	require.NoError(t, err)
	assert.Equal(t, BudgetWarning, status)

	status, err = tracker.RecordUsage("run-1", 200, 100)
	require.NoError(t, err)
	assert.Equal(t, BudgetExceeded, status)
}

func TestCanProceed(t *testing.T) {
	tracker, err := NewTracker(testConfig(t))
	require.NoError(t, err)

	ok, reason := tracker.CanProceed("run-1")
	assert.True(t, ok)
	assert.Empty(t, reason)

	// Exhaust the per-run budget (500) without touching the hourly one.
	_, err = tracker.RecordUsage("run-1", 400, 100)
	require.NoError(t, err)

	ok, reason = tracker.CanProceed("run-1")
	assert.False(t, ok)
	assert.Contains(t, reason, "run token budget exceeded")

	// A different run is still allowed.
	ok, _ = tracker.CanProceed("run-2")
	assert.True(t, ok)
}

func TestHourlyLimitBlocksAllRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTokensPerRun = 0
	tracker, err := NewTracker(cfg)
	require.NoError(t, err)

	_, err = tracker.RecordUsage("run-1", 600, 400)
	require.NoError(t, err)

	ok, reason := tracker.CanProceed("run-2")
	assert.False(t, ok)
	assert.Contains(t, reason, "hourly token budget exceeded")
}

func TestWindowReset(t *testing.T) {
	tracker, err := NewTracker(testConfig(t))
	require.NoError(t, err)

	_, err = tracker.RecordUsage("run-1", 600, 400)
	require.NoError(t, err)
	ok, _ := tracker.CanProceed("")
	assert.False(t, ok)

	// Advance the clock past the reset interval.
	base := time.Now()
	tracker.now = func() time.Time { return base.Add(2 * time.Hour) }

	ok, _ = tracker.CanProceed("")
	assert.True(t, ok)

	stats := tracker.GetStats()
	assert.Equal(t, int64(0), stats.HourlyTokensUsed)
	// All-time totals survive the reset.
	assert.Equal(t, int64(1000), stats.TotalTokensUsed)
}

func TestDisabledTrackerAlwaysProceeds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	tracker, err := NewTracker(cfg)
	require.NoError(t, err)

	status, err := tracker.RecordUsage("run-1", 1e6, 1e6)
	require.NoError(t, err)
	assert.Equal(t, BudgetHealthy, status)

	ok, _ := tracker.CanProceed("run-1")
	assert.True(t, ok)
}

func TestStatePersistenceRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	tracker, err := NewTracker(cfg)
	require.NoError(t, err)
	_, err = tracker.RecordUsage("run-1", 100, 50)
	require.NoError(t, err)

	// A fresh tracker on the same path picks up where we left off.
	reloaded, err := NewTracker(cfg)
	require.NoError(t, err)

	stats := reloaded.GetStats()
	assert.Equal(t, int64(150), stats.TotalTokensUsed)
	assert.Equal(t, int64(150), stats.HourlyTokensUsed)
}

func TestCalculateCost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputTokenCost = 3.0
	cfg.OutputTokenCost = 15.0
	cfg.PersistStatePath = ""
	tracker, err := NewTracker(cfg)
	require.NoError(t, err)

	// 1M input + 1M output = $3 + $15.
	assert.InDelta(t, 18.0, tracker.CostFor(1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0, tracker.CostFor(0, 0), 1e-9)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlertThreshold = 1.5
	_, err := NewTracker(cfg)
	assert.Error(t, err)
}
