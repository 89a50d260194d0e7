package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

const auditMaxTokens = 2048

// AuditFinding is one flagged dependency from an audit run.
type AuditFinding struct {
	Name           string `json:"name"`
	Ecosystem      string `json:"ecosystem"`
	Severity       string `json:"severity"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

// AuditReport is the parsed result of a dependency assessment.
type AuditReport struct {
	Summary  string         `json:"summary"`
	Findings []AuditFinding `json:"findings"`

	Usage Usage  `json:"-"`
	Model string `json:"-"`
}

// AssessDependencies asks the model to review the dependency list for
// supply-chain concerns. Finding severities are normalized onto
// high/medium/low rather than dropped.
func (g *Generator) AssessDependencies(ctx context.Context, deps []types.Dependency) (*AuditReport, error) {
	if len(deps) == 0 {
		return &AuditReport{Summary: "No third-party dependencies found.", Model: g.model}, nil
	}

	prompt := buildAuditPrompt(deps)
	text, usage, err := g.call(ctx, "assess_dependencies", g.model, prompt, auditMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("assessing dependencies: %w", err)
	}

	result := Parse[AuditReport](text, ParseOptions{Context: "dependency audit"})
	if !result.Success {
		return nil, fmt.Errorf("parsing audit response: %s", result.Error)
	}
	report := &result.Data

	for i := range report.Findings {
		report.Findings[i].Severity = normalizeSeverity(report.Findings[i].Severity)
	}

	report.Usage = usage
	report.Model = g.model
	return report, nil
}

// normalizeSeverity maps whatever the model answered onto the three
// levels the report uses. Anything above "high" stays high; only truly
// unrecognized values fall to "low".
func normalizeSeverity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "blocker", "severe", "high":
		return "high"
	case "moderate", "medium":
		return "medium"
	case "low", "info", "informational", "none":
		return "low"
	default:
		return "low"
	}
}
