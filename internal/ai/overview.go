package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

// Overview generates the repository-level architecture overview. It always
// uses the default model tier: this is the page readers land on first.
func (g *Generator) Overview(ctx context.Context, name string, infos []*parser.PackageInfo, deps []types.Dependency) (*PackageDoc, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("overview: no packages to describe")
	}

	prompt := buildOverviewPrompt(name, infos, deps)
	text, usage, err := g.call(ctx, "overview", g.model, prompt, overviewMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating overview: %w", err)
	}

	md := strings.TrimSpace(text)
	if md == "" {
		return nil, fmt.Errorf("generating overview: model returned empty body")
	}

	return &PackageDoc{Markdown: md, Usage: usage, Model: g.model}, nil
}
