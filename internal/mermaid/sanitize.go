package mermaid

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedDirectives are the diagram types an AI-proposed diagram may use.
var allowedDirectives = []string{
	"graph TD",
	"graph LR",
	"graph RL",
	"graph BT",
	"flowchart TD",
	"flowchart LR",
	"classDiagram",
	"sequenceDiagram",
	"stateDiagram-v2",
	"erDiagram",
}

// maxDiagramBytes caps accepted diagram size.
const maxDiagramBytes = 16 * 1024

var fenceRegex = regexp.MustCompile("(?s)```(?:mermaid)?\\s*\\n(.*?)\\n?```")

// scriptRegex catches HTML/JS smuggled into node labels. Mermaid renders
// in the reader's browser, so AI output is treated as untrusted.
var scriptRegex = regexp.MustCompile(`(?i)<\s*script|javascript:|on\w+\s*=`)

// Sanitize validates an AI-proposed Mermaid diagram. It strips a wrapping
// code fence, verifies the first line is an allowed directive, rejects
// embedded HTML/script, and enforces the size cap. On error the caller
// falls back to a deterministic diagram.
func Sanitize(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("empty diagram")
	}

	// Strip a markdown fence if the model wrapped its answer.
	if m := fenceRegex.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if len(text) > maxDiagramBytes {
		return "", fmt.Errorf("diagram exceeds size limit (%d > %d bytes)", len(text), maxDiagramBytes)
	}

	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	ok := false
	for _, d := range allowedDirectives {
		if firstLine == d || strings.HasPrefix(firstLine, d+" ") {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("unsupported diagram directive %q", firstLine)
	}

	if scriptRegex.MatchString(text) {
		return "", fmt.Errorf("diagram contains embedded HTML or script")
	}

	return text, nil
}

// Fence wraps diagram text in a ```mermaid code fence for embedding in
// Markdown output.
func Fence(diagram string) string {
	return "```mermaid\n" + strings.TrimRight(diagram, "\n") + "\n```\n"
}
