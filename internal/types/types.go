// Package types defines the core domain types shared across docgen:
// scanned source files, parsed symbols, generated documentation sections,
// dependency records, and generation runs.
package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// Language identifies the programming language of a source file.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangMarkdown   Language = "markdown"
	LangYAML       Language = "yaml"
	LangJSON       Language = "json"
	LangUnknown    Language = "unknown"
)

// SourceFile is a single file discovered by the scanner.
type SourceFile struct {
	Path     string   `json:"path"`     // Path relative to the repo root
	Language Language `json:"language"` // Detected language
	Size     int64    `json:"size"`     // Size in bytes
	Hash     string   `json:"hash"`     // xxhash of the file contents (hex)
	Lines    int      `json:"lines"`    // Line count
}

// Package groups source files that are documented together.
// For Go this is a directory (one Go package); for other languages it is
// a directory treated as a module.
type Package struct {
	Path     string       `json:"path"`     // Directory relative to the repo root ("." for root)
	Name     string       `json:"name"`     // Short name (base of Path, or Go package name)
	Language Language     `json:"language"` // Dominant language
	Files    []SourceFile `json:"files"`
	Hash     string       `json:"hash"` // Combined hash of member file hashes
}

// TotalLines returns the sum of line counts across the package's files.
func (p *Package) TotalLines() int {
	total := 0
	for _, f := range p.Files {
		total += f.Lines
	}
	return total
}

// SymbolKind classifies a parsed symbol.
type SymbolKind string

const (
	SymbolFunc      SymbolKind = "func"
	SymbolMethod    SymbolKind = "method"
	SymbolType      SymbolKind = "type"
	SymbolClass     SymbolKind = "class"
	SymbolConst     SymbolKind = "const"
	SymbolVar       SymbolKind = "var"
	SymbolInterface SymbolKind = "interface"
)

// Symbol is a named declaration extracted from a source file.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Signature string     `json:"signature,omitempty"` // Full signature where available
	Doc       string     `json:"doc,omitempty"`       // Attached doc comment, if any
	Receiver  string     `json:"receiver,omitempty"`  // Method receiver type (Go)
	File      string     `json:"file"`                // Path relative to the repo root
	Line      int        `json:"line"`                // 1-based line number (0 if unknown)
	Exported  bool       `json:"exported"`
}

// Ecosystem identifies the package ecosystem a dependency belongs to.
type Ecosystem string

const (
	EcosystemGo   Ecosystem = "go"
	EcosystemNPM  Ecosystem = "npm"
	EcosystemPyPI Ecosystem = "pypi"
)

// Dependency is a third-party package declared in a manifest file.
type Dependency struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Ecosystem Ecosystem `json:"ecosystem"`
	Indirect  bool      `json:"indirect,omitempty"`
	Manifest  string    `json:"manifest"` // Manifest path relative to the repo root
}

// SectionKind classifies a generated documentation section.
type SectionKind string

const (
	SectionPackage  SectionKind = "package"  // Per-package documentation page body
	SectionOverview SectionKind = "overview" // Repository architecture overview
	SectionDiagram  SectionKind = "diagram"  // AI-proposed Mermaid diagram
	SectionAudit    SectionKind = "audit"    // Dependency audit narrative
)

// DocSection is one unit of generated documentation. Sections are cached
// by ContentHash: the hash of the inputs that produced them, so unchanged
// code never triggers a new AI call.
type DocSection struct {
	Kind         SectionKind `json:"kind"`
	Path         string      `json:"path"` // Package path (or "" for repo-level sections)
	Title        string      `json:"title"`
	Markdown     string      `json:"markdown"`
	ContentHash  string      `json:"content_hash"`
	Model        string      `json:"model,omitempty"` // Model that generated it ("" for cache hits carrying the original)
	InputTokens  int64       `json:"input_tokens"`
	OutputTokens int64       `json:"output_tokens"`
	FromCache    bool        `json:"from_cache"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RunStatus is the terminal state of a generation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// Run records one invocation of the generation pipeline.
type Run struct {
	ID            string     `json:"id"` // UUID
	RepoPath      string     `json:"repo_path"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Status        RunStatus  `json:"status"`
	FilesScanned  int        `json:"files_scanned"`
	Packages      int        `json:"packages"`
	SectionsNew   int        `json:"sections_new"`
	SectionsCache int        `json:"sections_cached"`
	InputTokens   int64      `json:"input_tokens"`
	OutputTokens  int64      `json:"output_tokens"`
	CostUSD       float64    `json:"cost_usd"`
	Error         string     `json:"error,omitempty"`
}

// Duration returns the run's elapsed time, or time since start if still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// RepoMeta is version-control metadata embedded in generated docs.
// All fields may be empty when the target is not a git repository.
type RepoMeta struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
	Remote string `json:"remote,omitempty"`
	Dirty  bool   `json:"dirty,omitempty"`
}

// ShortCommit returns the first 12 characters of the commit hash.
func (m RepoMeta) ShortCommit() string {
	if len(m.Commit) > 12 {
		return m.Commit[:12]
	}
	return m.Commit
}

// PageFilename returns the docs filename for a package path,
// e.g. "internal/scanner" -> "internal-scanner.md", "." -> "root.md".
func PageFilename(pkgPath string) string {
	if pkgPath == "" || pkgPath == "." {
		return "root.md"
	}
	name := filepath.ToSlash(pkgPath)
	out := make([]byte, 0, len(name)+3)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '/' || c == ' ':
			out = append(out, '-')
		case c == '.':
			// Collapse dots so "foo.bar" and hidden dirs stay filesystem-safe.
			out = append(out, '-')
		default:
			out = append(out, c)
		}
	}
	return fmt.Sprintf("%s.md", string(out))
}
