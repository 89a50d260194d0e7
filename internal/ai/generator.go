// Package ai wraps the Anthropic API for documentation generation: prose
// for packages and repositories, Mermaid diagram proposals, and dependency
// risk assessment. All calls go through one retry/circuit-breaker/budget
// stack.
package ai

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Model tiers. Overviews and large packages need real reasoning; small
// packages and diagram sketches do not, and the cheap tier is roughly
// 80% cheaper.
//
// Environment overrides:
// - DOCGEN_MODEL_DEFAULT: override the default model
// - DOCGEN_MODEL_SIMPLE: override the simple-task model
const (
	// ModelDefault is the model for package docs, overviews, and audits.
	ModelDefault = "claude-sonnet-4-5-20250929"

	// ModelSimple is the cost-efficient model for simple tasks.
	ModelSimple = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, checking DOCGEN_MODEL_DEFAULT first.
func GetDefaultModel() string {
	if model := os.Getenv("DOCGEN_MODEL_DEFAULT"); model != "" {
		return model
	}
	return ModelDefault
}

// GetSimpleModel returns the simple-task model, checking DOCGEN_MODEL_SIMPLE first.
func GetSimpleModel() string {
	if model := os.Getenv("DOCGEN_MODEL_SIMPLE"); model != "" {
		return model
	}
	return ModelSimple
}

// CostTracker gates and records AI spend. Implemented by cost.Tracker;
// declared here so the generator can be tested with a fake.
type CostTracker interface {
	// RecordUsage records token usage attributed to a run.
	RecordUsage(runID string, inputTokens, outputTokens int64) error
	// CanProceed reports whether another AI call fits the budget, with a
	// reason when it does not.
	CanProceed(runID string) (bool, string)
}

// Generator makes documentation-producing AI calls.
//
// The Generator's responsibilities are split across files:
// - generator.go: core struct and constructor (this file)
// - retry.go: circuit breaker and retry logic
// - json_parser.go: resilient parsing of structured responses
// - package_docs.go: per-package documentation
// - overview.go: repository architecture overview
// - diagram.go: Mermaid diagram proposals
// - audit.go: dependency risk assessment
type Generator struct {
	client         *anthropic.Client
	model          string
	simpleModel    string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
	costTracker    CostTracker
	runID          string
}

// Config holds generator configuration.
type Config struct {
	APIKey      string      // Anthropic API key (empty reads ANTHROPIC_API_KEY)
	Model       string      // Default model ("" uses GetDefaultModel)
	SimpleModel string      // Simple-task model ("" uses GetSimpleModel)
	Retry       RetryConfig // Retry configuration (zero value uses defaults)
	CostTracker CostTracker // Optional budget enforcement
	RunID       string      // Run the spend is attributed to
}

// NewGenerator creates an AI documentation generator.
func NewGenerator(cfg *Config) (*Generator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}
	simpleModel := cfg.SimpleModel
	if simpleModel == "" {
		simpleModel = GetSimpleModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	var limiter *rate.Limiter
	if retry.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(retry.RequestsPerSecond), 1)
	}

	return &Generator{
		client:         &client,
		model:          model,
		simpleModel:    simpleModel,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
		limiter:        limiter,
		costTracker:    cfg.CostTracker,
		runID:          cfg.RunID,
	}, nil
}

// HealthCheck fails when the circuit breaker is open, so callers can stop
// a run before queueing more work behind a dead API.
func (g *Generator) HealthCheck() error {
	if g.circuitBreaker == nil {
		return nil
	}
	state, failures, _ := g.circuitBreaker.GetMetrics()
	if state == CircuitOpen {
		return fmt.Errorf("AI generator unavailable: %w (failures=%d, retry in %v)",
			ErrCircuitOpen, failures, g.retry.OpenTimeout)
	}
	return nil
}
