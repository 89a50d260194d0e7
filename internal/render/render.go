// Package render assembles the generated documentation tree: an index
// page with the architecture overview and package map, one page per
// package, a dependency inventory, and an optional audit page. Pages are
// plain Markdown so the output works on GitHub and in static site
// generators without further processing.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sunprojectca/DocGen/internal/ai"
	"github.com/sunprojectca/DocGen/internal/mermaid"
	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

// PackagePage is everything rendered onto one package's page.
type PackagePage struct {
	Info    *parser.PackageInfo
	Section *types.DocSection // AI-written body (nil when --no-ai)
	Diagram string            // Sanitized Mermaid source ("" for none)
}

// Site is the full input to a render pass.
type Site struct {
	RepoName    string
	Meta        types.RepoMeta
	GeneratedAt time.Time
	Model       string

	Overview    *types.DocSection // nil when --no-ai
	RepoDiagram string            // Repository-level package graph
	Packages    []PackagePage
	Deps        []types.Dependency
	Audit       *ai.AuditReport // nil unless an audit ran
}

// Renderer writes a Site to an output directory.
type Renderer struct {
	outputDir string
}

// New creates a renderer targeting outputDir.
func New(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

// WriteAll renders every page. It creates the output directory if needed
// and overwrites pages whose content changed; unchanged pages are left
// untouched. Returns the rendered page paths, relative to the output
// directory.
func (r *Renderer) WriteAll(site *Site) ([]string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var written []string
	write := func(name, content string) error {
		if err := r.writePage(name, content); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	}

	if err := write("README.md", r.indexPage(site)); err != nil {
		return written, err
	}

	for _, p := range site.Packages {
		name := types.PageFilename(p.Info.Pkg.Path)
		if err := write(name, r.packagePage(site, p)); err != nil {
			return written, err
		}
	}

	if len(site.Deps) > 0 {
		if err := write("dependencies.md", r.dependenciesPage(site)); err != nil {
			return written, err
		}
	}

	if site.Audit != nil {
		if err := write("audit.md", r.auditPage(site)); err != nil {
			return written, err
		}
	}

	return written, nil
}

// WriteAudit renders only the audit page, for `docgen audit --write`
// refreshing a standing docs tree without a full generation run.
func (r *Renderer) WriteAudit(site *Site) (string, error) {
	if site.Audit == nil {
		return "", fmt.Errorf("no audit report to render")
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	if err := r.writePage("audit.md", r.auditPage(site)); err != nil {
		return "", err
	}
	return filepath.Join(r.outputDir, "audit.md"), nil
}

// writePage writes atomically: a crash mid-write must not leave a
// truncated page behind. A page whose content is unchanged is left
// untouched, so cached reruns do not churn mtimes or diffs.
func (r *Renderer) writePage(name, content string) error {
	path := filepath.Join(r.outputDir, name)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (r *Renderer) indexPage(site *Site) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", site.RepoName)

	if site.Overview != nil && site.Overview.Markdown != "" {
		b.WriteString(site.Overview.Markdown)
		b.WriteString("\n\n")
	}

	if site.RepoDiagram != "" {
		b.WriteString("## Package graph\n\n")
		b.WriteString(mermaid.Fence(site.RepoDiagram))
		b.WriteString("\n")
	}

	b.WriteString("## Packages\n\n")
	pages := make([]PackagePage, len(site.Packages))
	copy(pages, site.Packages)
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Info.Pkg.Path < pages[j].Info.Pkg.Path
	})
	for _, p := range pages {
		fmt.Fprintf(&b, "- [%s](%s) — %s, %d files\n",
			p.Info.Pkg.Path, types.PageFilename(p.Info.Pkg.Path),
			p.Info.Pkg.Language, len(p.Info.Pkg.Files))
	}
	b.WriteString("\n")

	if len(site.Deps) > 0 {
		fmt.Fprintf(&b, "See also: [dependencies](dependencies.md) (%d packages)", len(site.Deps))
		if site.Audit != nil {
			b.WriteString(", [dependency audit](audit.md)")
		}
		b.WriteString(".\n")
	}

	b.WriteString(r.footer(site, sectionTime(site.Overview)))
	return b.String()
}

func (r *Renderer) packagePage(site *Site, p PackagePage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Package `%s`\n\n", p.Info.Pkg.Path)

	if p.Section != nil && p.Section.Markdown != "" {
		b.WriteString(p.Section.Markdown)
		b.WriteString("\n\n")
	}

	if p.Diagram != "" {
		b.WriteString("## Structure\n\n")
		b.WriteString(mermaid.Fence(p.Diagram))
		b.WriteString("\n")
	}

	if table := symbolTable(p.Info); table != "" {
		b.WriteString("## Declarations\n\n")
		b.WriteString(table)
		b.WriteString("\n")
	}

	b.WriteString("[Back to index](README.md)\n")
	b.WriteString(r.footer(site, sectionTime(p.Section)))
	return b.String()
}

// symbolTable renders exported declarations as a Markdown table. Unexported
// symbols are omitted: the page documents the package's surface, not its
// internals.
func symbolTable(info *parser.PackageInfo) string {
	var rows []types.Symbol
	for _, f := range info.Files {
		for _, s := range f.Symbols {
			if s.Exported {
				rows = append(rows, s)
			}
		}
	}
	if len(rows) == 0 {
		return ""
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].File != rows[j].File {
			return rows[i].File < rows[j].File
		}
		return rows[i].Line < rows[j].Line
	})

	var b strings.Builder
	b.WriteString("| Name | Kind | Defined in |\n")
	b.WriteString("|------|------|------------|\n")
	for _, s := range rows {
		name := s.Name
		if s.Receiver != "" {
			name = fmt.Sprintf("(%s).%s", s.Receiver, s.Name)
		}
		loc := filepath.Base(s.File)
		if s.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, s.Line)
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", escapeCell(name), s.Kind, loc)
	}
	return b.String()
}

func (r *Renderer) dependenciesPage(site *Site) string {
	var b strings.Builder

	b.WriteString("# Dependencies\n\n")

	byEco := map[types.Ecosystem][]types.Dependency{}
	for _, d := range site.Deps {
		byEco[d.Ecosystem] = append(byEco[d.Ecosystem], d)
	}

	ecosystems := make([]string, 0, len(byEco))
	for eco := range byEco {
		ecosystems = append(ecosystems, string(eco))
	}
	sort.Strings(ecosystems)

	for _, eco := range ecosystems {
		deps := byEco[types.Ecosystem(eco)]
		sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

		fmt.Fprintf(&b, "## %s (%d)\n\n", eco, len(deps))
		b.WriteString("| Package | Version | Scope | Manifest |\n")
		b.WriteString("|---------|---------|-------|----------|\n")
		for _, d := range deps {
			scope := "direct"
			if d.Indirect {
				scope = "indirect"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n",
				escapeCell(d.Name), escapeCell(d.Version), scope, d.Manifest)
		}
		b.WriteString("\n")
	}

	b.WriteString("[Back to index](README.md)\n")
	b.WriteString(r.footer(site, time.Time{}))
	return b.String()
}

func (r *Renderer) auditPage(site *Site) string {
	var b strings.Builder

	b.WriteString("# Dependency audit\n\n")
	if site.Audit.Summary != "" {
		b.WriteString(site.Audit.Summary)
		b.WriteString("\n\n")
	}

	if len(site.Audit.Findings) == 0 {
		b.WriteString("No findings.\n")
	} else {
		b.WriteString("| Severity | Package | Concern | Recommendation |\n")
		b.WriteString("|----------|---------|---------|----------------|\n")
		for _, f := range sortFindings(site.Audit.Findings) {
			fmt.Fprintf(&b, "| %s | `%s` (%s) | %s | %s |\n",
				f.Severity, escapeCell(f.Name), f.Ecosystem,
				escapeCell(f.Reason), escapeCell(f.Recommendation))
		}
	}

	b.WriteString("\nThis assessment was produced by a language model and is advisory, not a vulnerability scan.\n")
	b.WriteString("\n[Back to index](README.md)\n")
	b.WriteString(r.footer(site, site.GeneratedAt))
	return b.String()
}

// sortFindings orders findings by severity, high first.
func sortFindings(findings []ai.AuditFinding) []ai.AuditFinding {
	rank := map[string]int{"high": 0, "medium": 1, "low": 2}
	sorted := make([]ai.AuditFinding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].Severity] < rank[sorted[j].Severity]
	})
	return sorted
}

// footer renders the generation metadata trailer shared by every page.
// The timestamp is the page content's creation time, not the run time:
// a rerun that reuses cached sections must reproduce the page verbatim.
// Pages with no meaningful content time pass a zero at and carry none.
func (r *Renderer) footer(site *Site, at time.Time) string {
	var parts []string
	if !at.IsZero() {
		parts = append(parts, "generated "+at.UTC().Format("2006-01-02 15:04 MST"))
	}
	if site.Meta.Commit != "" {
		commit := site.Meta.ShortCommit()
		if site.Meta.Dirty {
			commit += "-dirty"
		}
		ref := commit
		if site.Meta.Branch != "" {
			ref = fmt.Sprintf("%s@%s", site.Meta.Branch, commit)
		}
		parts = append(parts, "from "+ref)
	}
	if site.Model != "" {
		parts = append(parts, "model "+site.Model)
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("\n---\n<sub>docgen: %s</sub>\n", strings.Join(parts, ", "))
}

// sectionTime is the footer timestamp for a page built from a section.
func sectionTime(s *types.DocSection) time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.CreatedAt
}

// escapeCell keeps Markdown table cells on one row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
