package ai

import (
	"fmt"
	"strings"

	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

// Prompt size caps. Symbol tables beyond these are truncated rather than
// blowing the context window on generated or machine-written files.
const (
	maxPromptSymbols   = 120
	maxPromptFiles     = 40
	maxPromptFileHead  = 400
	maxPromptDepsLines = 200
)

// buildPackagePrompt renders the prompt for documenting one package.
func buildPackagePrompt(info *parser.PackageInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a senior engineer writing reference documentation for a code package. Write clear, concrete Markdown documentation for the package described below.

Package: %s
Language: %s
Files: %d
`, info.Pkg.Path, info.Pkg.Language, len(info.Pkg.Files))

	if len(info.Imports) > 0 {
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(capStrings(info.Imports, 40), ", "))
	}

	var symbols []types.Symbol
	for _, f := range info.Files {
		symbols = append(symbols, f.Symbols...)
	}

	b.WriteString("\nDeclarations:\n")
	for i, sym := range symbols {
		if i >= maxPromptSymbols {
			b.WriteString("... (truncated)\n")
			break
		}
		line := sym.Signature
		if line == "" {
			line = fmt.Sprintf("%s %s", sym.Kind, sym.Name)
		}
		fmt.Fprintf(&b, "- %s", line)
		if sym.Doc != "" {
			fmt.Fprintf(&b, "  // %s", firstLine(sym.Doc))
		}
		b.WriteString("\n")
	}

	// For packages the extractor produced nothing from, fall back to raw
	// file heads so the model is not documenting a bare file list.
	if len(symbols) == 0 {
		b.WriteString("\nNo declarations were extracted. File excerpts:\n")
		for i, f := range info.Files {
			if i >= maxPromptFiles {
				break
			}
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", f.Path, truncate(f.Head, maxPromptFileHead))
		}
	}

	b.WriteString(`
Write the documentation with these sections:
1. A one-paragraph summary of what the package does and why it exists.
2. "Key types and functions": the most important declarations, each with one or two sentences. Skip trivial getters and private helpers.
3. "Usage notes": anything a caller must know (initialization order, error behavior, concurrency expectations) that is visible from the declarations.

RULES:
- Be specific. Name actual types and functions from the declarations above.
- Do not invent behavior that is not implied by the declarations.
- Do not include a top-level heading; the renderer adds it.
- Respond with ONLY the Markdown body. No preamble, no code fences around the whole answer.`)

	return b.String()
}

// buildOverviewPrompt renders the prompt for the repository overview.
func buildOverviewPrompt(name string, infos []*parser.PackageInfo, deps []types.Dependency) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a senior engineer writing the architecture overview for a repository's documentation site.

Repository: %s
Packages (%d):
`, name, len(infos))

	for i, info := range infos {
		if i >= maxPromptFiles {
			b.WriteString("... (truncated)\n")
			break
		}
		exported := 0
		for _, f := range info.Files {
			for _, s := range f.Symbols {
				if s.Exported {
					exported++
				}
			}
		}
		fmt.Fprintf(&b, "- %s (%s, %d files, %d exported symbols)\n",
			info.Pkg.Path, info.Pkg.Language, len(info.Pkg.Files), exported)
	}

	if len(deps) > 0 {
		fmt.Fprintf(&b, "\nThird-party dependencies (%d):\n", len(deps))
		for i, d := range deps {
			if i >= maxPromptDepsLines {
				b.WriteString("... (truncated)\n")
				break
			}
			if d.Indirect {
				continue
			}
			fmt.Fprintf(&b, "- %s %s (%s)\n", d.Name, d.Version, d.Ecosystem)
		}
	}

	b.WriteString(`
Write an architecture overview with these sections:
1. A two-or-three paragraph description of what this repository is and how it is organized.
2. "Component map": each significant package and its role, one line each.
3. "How the pieces fit": the main data/control flow between packages.

RULES:
- Infer roles from package names, sizes, and dependencies; say "appears to" when inferring.
- Do not list every package; group the trivial ones.
- Do not include a top-level heading; the renderer adds it.
- Respond with ONLY the Markdown body.`)

	return b.String()
}

// buildDiagramPrompt renders the prompt asking for a Mermaid diagram.
func buildDiagramPrompt(info *parser.PackageInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Draw a Mermaid diagram that explains the structure of the package %q to a new reader.

Declarations:
`, info.Pkg.Path)

	n := 0
	for _, f := range info.Files {
		for _, sym := range f.Symbols {
			if n >= maxPromptSymbols {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", sym.Kind, sym.Name)
			n++
		}
	}

	b.WriteString(`
RULES:
- Use one of: graph TD, graph LR, flowchart TD, classDiagram.
- At most 20 nodes. Prefer clarity over completeness.
- Node labels must be plain text: no HTML, no links.
- Respond with ONLY the Mermaid source. No prose, no code fences.`)

	return b.String()
}

// buildAuditPrompt renders the prompt for dependency risk assessment.
func buildAuditPrompt(deps []types.Dependency) string {
	var b strings.Builder

	b.WriteString(`You are a software supply-chain reviewer. Assess the third-party dependencies below and flag anything a maintainer should look at: abandoned or deprecated packages, known-risky version ranges, unusually heavy dependencies for their job, or packages that commonly appear in typosquatting campaigns.

Dependencies:
`)

	for i, d := range deps {
		if i >= maxPromptDepsLines {
			b.WriteString("... (truncated)\n")
			break
		}
		indirect := ""
		if d.Indirect {
			indirect = " (indirect/dev)"
		}
		fmt.Fprintf(&b, "- %s %s [%s]%s from %s\n", d.Name, d.Version, d.Ecosystem, indirect, d.Manifest)
	}

	b.WriteString(`
Provide your assessment as a JSON object:
{
  "summary": "Two or three sentences on the overall dependency health.",
  "findings": [
    {
      "name": "package name exactly as listed",
      "ecosystem": "go|npm|pypi",
      "severity": "high|medium|low",
      "reason": "What the concern is",
      "recommendation": "What the maintainer should do"
    }
  ]
}

RULES:
1. Only flag real concerns. An empty findings array is a fine answer.
2. Never invent CVE identifiers or version numbers.
3. severity reflects likelihood times impact, not vague unease.

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences. Just the JSON object.`)

	return b.String()
}

func capStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
