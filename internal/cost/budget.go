// Package cost tracks AI token spend against hourly and per-run budgets,
// persisting state across invocations so restarts cannot reset the meter.
package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BudgetStatus represents the current budget state.
type BudgetStatus int

const (
	// BudgetHealthy indicates normal operation, under budget limits.
	BudgetHealthy BudgetStatus = iota
	// BudgetWarning indicates usage above the alert threshold.
	BudgetWarning
	// BudgetExceeded indicates a budget limit has been crossed.
	BudgetExceeded
)

// String returns a human-readable representation of the budget status.
func (s BudgetStatus) String() string {
	switch s {
	case BudgetHealthy:
		return "HEALTHY"
	case BudgetWarning:
		return "WARNING"
	case BudgetExceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// BudgetState is the persisted budget tracking state.
type BudgetState struct {
	HourlyTokensUsed int64     `json:"hourly_tokens_used"`
	HourlyCostUsed   float64   `json:"hourly_cost_used"`
	WindowStartTime  time.Time `json:"window_start_time"`

	// Per-run tracking (run ID -> tokens used)
	RunTokensUsed map[string]int64 `json:"run_tokens_used"`

	TotalTokensUsed int64   `json:"total_tokens_used"`
	TotalCostUsed   float64 `json:"total_cost_used"`

	LastUpdated time.Time `json:"last_updated"`
}

// Tracker tracks AI cost budgets and enforces limits.
type Tracker struct {
	config *Config
	state  *BudgetState
	mu     sync.RWMutex // Protects state

	warningLogged bool

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates a cost budget tracker, loading persisted state from
// disk when available.
func NewTracker(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Tracker{
		config: cfg,
		now:    time.Now,
		state: &BudgetState{
			WindowStartTime: time.Now(),
			RunTokensUsed:   make(map[string]int64),
			LastUpdated:     time.Now(),
		},
	}

	if cfg.PersistStatePath != "" {
		if err := t.loadState(); err != nil {
			if !os.IsNotExist(err) {
				fmt.Printf("Warning: failed to load cost state from %s: %v (starting fresh)\n",
					cfg.PersistStatePath, err)
			}
		}
	}

	t.mu.Lock()
	t.checkAndResetWindowLocked()
	t.mu.Unlock()

	return t, nil
}

// RecordUsage records token usage for a run and returns the budget status
// after recording.
func (t *Tracker) RecordUsage(runID string, inputTokens, outputTokens int64) (BudgetStatus, error) {
	if !t.config.Enabled {
		return BudgetHealthy, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	totalTokens := inputTokens + outputTokens
	cost := t.calculateCost(inputTokens, outputTokens)

	t.checkAndResetWindowLocked()

	t.state.HourlyTokensUsed += totalTokens
	t.state.HourlyCostUsed += cost
	t.state.TotalTokensUsed += totalTokens
	t.state.TotalCostUsed += cost
	t.state.LastUpdated = t.now()
	if runID != "" {
		t.state.RunTokensUsed[runID] += totalTokens
	}

	if err := t.persistStateLocked(); err != nil {
		fmt.Printf("Warning: failed to persist cost state: %v\n", err)
	}

	status := t.budgetStatusLocked("")
	if status == BudgetWarning && !t.warningLogged {
		t.warningLogged = true
		fmt.Printf("⚠️  AI budget at %.0f%%+ of hourly limit (%d tokens, $%.4f)\n",
			t.config.AlertThreshold*100, t.state.HourlyTokensUsed, t.state.HourlyCostUsed)
	}
	return status, nil
}

// CanProceed returns whether another AI call fits within the budget, and
// a reason when it does not.
func (t *Tracker) CanProceed(runID string) (bool, string) {
	if !t.config.Enabled {
		return true, ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindowLocked()

	if t.hourlyTokensExceededLocked() {
		return false, fmt.Sprintf("hourly token budget exceeded (%d/%d tokens used)",
			t.state.HourlyTokensUsed, t.config.MaxTokensPerHour)
	}
	if t.hourlyCostExceededLocked() {
		return false, fmt.Sprintf("hourly cost budget exceeded ($%.2f/$%.2f used)",
			t.state.HourlyCostUsed, t.config.MaxCostPerHour)
	}
	if runID != "" && t.runTokensExceededLocked(runID) {
		return false, fmt.Sprintf("run token budget exceeded for %s (%d/%d tokens used)",
			runID, t.state.RunTokensUsed[runID], t.config.MaxTokensPerRun)
	}
	return true, ""
}

// Stats contains budget statistics for display.
type Stats struct {
	Status           BudgetStatus `json:"status"`
	HourlyTokensUsed int64        `json:"hourly_tokens_used"`
	HourlyCostUsed   float64      `json:"hourly_cost_used"`
	TotalTokensUsed  int64        `json:"total_tokens_used"`
	TotalCostUsed    float64      `json:"total_cost_used"`
	WindowStartTime  time.Time    `json:"window_start_time"`
	LastUpdated      time.Time    `json:"last_updated"`
	Config           Config       `json:"config"`
}

// GetStats returns current budget statistics.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkAndResetWindowLocked()

	return Stats{
		Status:           t.budgetStatusLocked(""),
		HourlyTokensUsed: t.state.HourlyTokensUsed,
		HourlyCostUsed:   t.state.HourlyCostUsed,
		TotalTokensUsed:  t.state.TotalTokensUsed,
		TotalCostUsed:    t.state.TotalCostUsed,
		WindowStartTime:  t.state.WindowStartTime,
		LastUpdated:      t.state.LastUpdated,
		Config:           *t.config,
	}
}

// CostFor converts a token count pair to USD under the configured pricing.
func (t *Tracker) CostFor(inputTokens, outputTokens int64) float64 {
	return t.calculateCost(inputTokens, outputTokens)
}

// budgetStatusLocked computes the status. Must be called with lock held.
func (t *Tracker) budgetStatusLocked(runID string) BudgetStatus {
	if t.hourlyTokensExceededLocked() || t.hourlyCostExceededLocked() {
		return BudgetExceeded
	}
	if runID != "" && t.runTokensExceededLocked(runID) {
		return BudgetExceeded
	}

	if t.config.MaxTokensPerHour > 0 {
		pct := float64(t.state.HourlyTokensUsed) / float64(t.config.MaxTokensPerHour)
		if pct >= t.config.AlertThreshold {
			return BudgetWarning
		}
	}
	if t.config.MaxCostPerHour > 0 {
		pct := t.state.HourlyCostUsed / t.config.MaxCostPerHour
		if pct >= t.config.AlertThreshold {
			return BudgetWarning
		}
	}
	return BudgetHealthy
}

func (t *Tracker) hourlyTokensExceededLocked() bool {
	return t.config.MaxTokensPerHour > 0 && t.state.HourlyTokensUsed >= t.config.MaxTokensPerHour
}

func (t *Tracker) hourlyCostExceededLocked() bool {
	return t.config.MaxCostPerHour > 0 && t.state.HourlyCostUsed >= t.config.MaxCostPerHour
}

func (t *Tracker) runTokensExceededLocked(runID string) bool {
	return t.config.MaxTokensPerRun > 0 && t.state.RunTokensUsed[runID] >= t.config.MaxTokensPerRun
}

// checkAndResetWindowLocked resets the hourly window when it has expired.
// Must be called with lock held.
func (t *Tracker) checkAndResetWindowLocked() {
	if t.now().Sub(t.state.WindowStartTime) < t.config.BudgetResetInterval {
		return
	}
	t.state.HourlyTokensUsed = 0
	t.state.HourlyCostUsed = 0
	t.state.WindowStartTime = t.now()
	t.warningLogged = false
}

// calculateCost converts token counts to USD.
func (t *Tracker) calculateCost(inputTokens, outputTokens int64) float64 {
	return float64(inputTokens)/1_000_000*t.config.InputTokenCost +
		float64(outputTokens)/1_000_000*t.config.OutputTokenCost
}

// persistStateLocked writes state to PersistStatePath. Must be called
// with lock held.
func (t *Tracker) persistStateLocked() error {
	if t.config.PersistStatePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cost state: %w", err)
	}

	dir := filepath.Dir(t.config.PersistStatePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	// Write-then-rename so a crash cannot leave a torn state file.
	tmp := t.config.PersistStatePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cost state: %w", err)
	}
	return os.Rename(tmp, t.config.PersistStatePath)
}

// loadState reads persisted state from disk.
func (t *Tracker) loadState() error {
	data, err := os.ReadFile(t.config.PersistStatePath)
	if err != nil {
		return err
	}

	var state BudgetState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse cost state: %w", err)
	}
	if state.RunTokensUsed == nil {
		state.RunTokensUsed = make(map[string]int64)
	}

	t.mu.Lock()
	t.state = &state
	t.mu.Unlock()
	return nil
}
