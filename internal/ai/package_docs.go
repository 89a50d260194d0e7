package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunprojectca/DocGen/internal/parser"
)

const (
	packageDocMaxTokens = 2048
	overviewMaxTokens   = 3072
)

// PackageDoc is the generated documentation body for one package.
type PackageDoc struct {
	Markdown string
	Usage    Usage
	Model    string
}

// DocumentPackage generates reference documentation for a single package.
// Small packages are routed to the cheaper model tier.
func (g *Generator) DocumentPackage(ctx context.Context, info *parser.PackageInfo) (*PackageDoc, error) {
	if info == nil || len(info.Files) == 0 {
		return nil, fmt.Errorf("documentPackage: empty package")
	}

	model := g.model
	if isSimplePackage(info) {
		model = g.simpleModel
	}

	prompt := buildPackagePrompt(info)
	text, usage, err := g.call(ctx, "document_package", model, prompt, packageDocMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("documenting %s: %w", info.Pkg.Path, err)
	}

	md := strings.TrimSpace(text)
	if md == "" {
		return nil, fmt.Errorf("documenting %s: model returned empty body", info.Pkg.Path)
	}

	return &PackageDoc{Markdown: md, Usage: usage, Model: model}, nil
}

// isSimplePackage decides whether a package is small enough for the cheap
// model tier: few files and a modest symbol count.
func isSimplePackage(info *parser.PackageInfo) bool {
	if len(info.Pkg.Files) > 3 {
		return false
	}
	symbols := 0
	for _, f := range info.Files {
		symbols += len(f.Symbols)
	}
	return symbols <= 15
}
