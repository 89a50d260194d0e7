package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunprojectca/DocGen/internal/mermaid"
	"github.com/sunprojectca/DocGen/internal/parser"
)

const diagramMaxTokens = 1024

// Diagram is the generated Mermaid source for one package, already
// validated by the sanitizer.
type Diagram struct {
	Source string
	Usage  Usage
	Model  string
}

// SuggestDiagram asks the model for a Mermaid diagram of the package's
// structure. Output that fails sanitization is rejected rather than
// rendered: diagrams are embedded in pages other people will open.
func (g *Generator) SuggestDiagram(ctx context.Context, info *parser.PackageInfo) (*Diagram, error) {
	if info == nil || len(info.Files) == 0 {
		return nil, fmt.Errorf("suggestDiagram: empty package")
	}

	prompt := buildDiagramPrompt(info)
	text, usage, err := g.call(ctx, "suggest_diagram", g.simpleModel, prompt, diagramMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("diagram for %s: %w", info.Pkg.Path, err)
	}

	src, err := mermaid.Sanitize(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("diagram for %s: %w", info.Pkg.Path, err)
	}

	return &Diagram{Source: src, Usage: usage, Model: g.simpleModel}, nil
}
