// Package generate orchestrates a documentation run: scan the repository,
// parse what the scanner found, reuse cached sections where the code is
// unchanged, call the AI for the rest, and render the docs tree. A run is
// recorded in the ledger whether it finishes, fails, or is canceled.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"github.com/sunprojectca/DocGen/internal/ai"
	"github.com/sunprojectca/DocGen/internal/cache"
	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/cost"
	"github.com/sunprojectca/DocGen/internal/deps"
	"github.com/sunprojectca/DocGen/internal/git"
	"github.com/sunprojectca/DocGen/internal/mermaid"
	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/render"
	"github.com/sunprojectca/DocGen/internal/scanner"
	"github.com/sunprojectca/DocGen/internal/types"
)

// Options controls a single run.
type Options struct {
	RepoPath string
	Packages []string // Glob filters on package paths; empty means all
	Force    bool     // Regenerate even when the cache has a current section
	DryRun   bool     // Scan and report only: no AI calls, no writes
	NoAI     bool     // Render from extracted symbols alone
}

// Result is what a run produced, for display by the CLI.
type Result struct {
	Run      *types.Run
	Written  []string // Pages written, relative to the output dir
	Skipped  int      // Files the scanner skipped
	Warnings []string
	Packages []*parser.PackageInfo
	Deps     []types.Dependency
}

// Pipeline wires the stages of a documentation run together.
type Pipeline struct {
	cfg     *config.Config
	store   *cache.Cache
	gen     *ai.Generator
	tracker *cost.Tracker
}

// BudgetGate narrows cost.Tracker to the generator's CostTracker
// interface. The budget status RecordUsage also returns is surfaced
// through the tracker's own logging, not through the generator.
type BudgetGate struct {
	Tracker *cost.Tracker
}

func (g BudgetGate) RecordUsage(runID string, inputTokens, outputTokens int64) error {
	_, err := g.Tracker.RecordUsage(runID, inputTokens, outputTokens)
	return err
}

func (g BudgetGate) CanProceed(runID string) (bool, string) {
	return g.Tracker.CanProceed(runID)
}

// NewBudgetGate builds a budget-gated cost tracker whose spend state
// persists under the repository's .docgen directory. One-shot AI
// commands share it with full generation runs so every call counts
// against the same budget.
func NewBudgetGate(repoPath string) (BudgetGate, error) {
	costCfg := cost.LoadFromEnv()
	costCfg.PersistStatePath = filepath.Join(repoPath, config.Dir, "cost_state.json")
	tracker, err := cost.NewTracker(costCfg)
	if err != nil {
		return BudgetGate{}, fmt.Errorf("initializing cost tracker: %w", err)
	}
	return BudgetGate{Tracker: tracker}, nil
}

// New builds a pipeline for repoPath. The AI generator is only
// constructed when the run will make AI calls, so --no-ai and --dry-run
// work without an API key.
func New(repoPath string, cfg *config.Config, opts Options) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg}

	if !opts.DryRun {
		store, err := cache.Open(filepath.Join(repoPath, cache.DefaultPath))
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		p.store = store
	}

	if !opts.DryRun && !opts.NoAI {
		gate, err := NewBudgetGate(repoPath)
		if err != nil {
			return nil, err
		}
		p.tracker = gate.Tracker
	}

	return p, nil
}

// Close releases the pipeline's cache handle.
func (p *Pipeline) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// Run executes the pipeline. The returned Result is valid even when err
// is non-nil: it carries whatever stages completed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	run := &types.Run{
		ID:        uuid.NewString(),
		RepoPath:  opts.RepoPath,
		StartedAt: time.Now().UTC(),
		Status:    types.RunRunning,
	}
	result := &Result{Run: run}

	// Scan.
	scanRes, err := scanner.New(p.cfg).Scan(opts.RepoPath)
	if err != nil {
		return result, fmt.Errorf("scanning %s: %w", opts.RepoPath, err)
	}
	run.FilesScanned = len(scanRes.Files)
	result.Skipped = scanRes.Skipped
	result.Warnings = scanRes.Warnings

	pkgs := filterPackages(scanRes.Packages, opts.Packages)
	run.Packages = len(pkgs)
	if len(pkgs) == 0 {
		if len(opts.Packages) > 0 {
			return result, fmt.Errorf("no packages match %v", opts.Packages)
		}
		return result, fmt.Errorf("no documentable source files under %s", opts.RepoPath)
	}

	// Parse.
	infos := make([]*parser.PackageInfo, 0, len(pkgs))
	for _, pkg := range pkgs {
		infos = append(infos, parser.ParsePackage(opts.RepoPath, pkg))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Pkg.Path < infos[j].Pkg.Path })
	result.Packages = infos

	// Dependencies. Discovery failures degrade to warnings: a repo with a
	// broken manifest still deserves docs.
	depList, depWarnings, err := deps.Discover(opts.RepoPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("dependency discovery: %v", err))
	}
	result.Warnings = append(result.Warnings, depWarnings...)
	result.Deps = depList

	if opts.DryRun {
		run.Status = types.RunCompleted
		finished := time.Now().UTC()
		run.FinishedAt = &finished
		return result, nil
	}

	if err := p.store.StartRun(ctx, run); err != nil {
		return result, fmt.Errorf("recording run: %w", err)
	}

	genErr := p.generate(ctx, opts, run, result, infos, depList)
	p.finishRun(ctx, run, genErr)
	return result, genErr
}

// generate runs the AI and render stages.
func (p *Pipeline) generate(ctx context.Context, opts Options, run *types.Run, result *Result, infos []*parser.PackageInfo, depList []types.Dependency) error {
	if !opts.NoAI {
		gen, err := ai.NewGenerator(&ai.Config{
			Model:       p.cfg.Model,
			SimpleModel: p.cfg.SimpleModel,
			CostTracker: BudgetGate{Tracker: p.tracker},
			RunID:       run.ID,
		})
		if err != nil {
			return err
		}
		p.gen = gen
	}

	modelLabel := ""
	if p.gen != nil {
		modelLabel = ai.GetDefaultModel()
		if p.cfg.Model != "" {
			modelLabel = p.cfg.Model
		}
	}

	pages, err := p.packagePages(ctx, opts, run, result, infos, modelLabel)
	if err != nil {
		return err
	}

	overview, err := p.overview(ctx, opts, run, infos, depList, modelLabel)
	if err != nil {
		// A failed overview degrades the index page, it does not waste
		// the package sections already generated.
		if ctx.Err() != nil {
			return err
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("overview: %v", err))
		overview = nil
	}

	meta := p.repoMeta(ctx, opts.RepoPath, result)

	site := &render.Site{
		RepoName:    RepoName(opts.RepoPath),
		Meta:        meta,
		GeneratedAt: time.Now().UTC(),
		Model:       modelLabel,
		Overview:    overview,
		RepoDiagram: mermaid.PackageGraph(ModuleName(opts.RepoPath), infos),
		Packages:    pages,
		Deps:        depList,
	}

	written, err := render.New(filepath.Join(opts.RepoPath, p.cfg.OutputDir)).WriteAll(site)
	result.Written = written
	if err != nil {
		return fmt.Errorf("rendering docs: %w", err)
	}
	return nil
}

// packagePages produces one page per package, in parallel up to the
// configured concurrency. A cache hit costs nothing; everything else is
// one AI call per package. A failed section degrades that page to
// structure-only with a warning; the run fails only when every section
// failed, or on cancellation.
func (p *Pipeline) packagePages(ctx context.Context, opts Options, run *types.Run, result *Result, infos []*parser.PackageInfo, modelLabel string) ([]render.PackagePage, error) {
	pages := make([]render.PackagePage, len(infos))
	var mu sync.Mutex
	failures := 0
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, info := range infos {
		g.Go(func() error {
			page := render.PackagePage{Info: info}
			if p.cfg.DiagramsEnabled {
				page.Diagram = mermaid.ClassDiagram(info)
			}

			if opts.NoAI {
				pages[i] = page
				return nil
			}

			section, err := p.packageSection(gctx, opts, run, info, modelLabel, &mu)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				mu.Lock()
				failures++
				lastErr = err
				result.Warnings = append(result.Warnings, fmt.Sprintf("package %s: %v", info.Pkg.Path, err))
				mu.Unlock()
				pages[i] = page
				return nil
			}
			page.Section = section
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !opts.NoAI && failures == len(infos) {
		return nil, fmt.Errorf("no sections could be generated: %w", lastErr)
	}
	return pages, nil
}

// cachedSection looks up hash in the section cache. It returns nil when
// caching is disabled, the run forces regeneration, or the lookup misses.
func (p *Pipeline) cachedSection(ctx context.Context, opts Options, hash string) *types.DocSection {
	if opts.Force || !p.cfg.CacheEnabled {
		return nil
	}
	cached, err := p.store.GetSection(ctx, hash)
	if err != nil {
		slog.Warn("cache lookup failed", "hash", hash, "error", err)
		return nil
	}
	return cached
}

// storeSection persists a freshly generated section unless caching is
// disabled. Store failures only cost a future cache hit.
func (p *Pipeline) storeSection(ctx context.Context, section *types.DocSection) {
	if !p.cfg.CacheEnabled {
		return
	}
	if err := p.store.PutSection(ctx, section); err != nil {
		slog.Warn("cache store failed", "path", section.Path, "error", err)
	}
}

func (p *Pipeline) packageSection(ctx context.Context, opts Options, run *types.Run, info *parser.PackageInfo, modelLabel string, mu *sync.Mutex) (*types.DocSection, error) {
	hash := sectionHash(types.SectionPackage, info.Pkg.Path, info.Pkg.Hash, modelLabel)

	if cached := p.cachedSection(ctx, opts, hash); cached != nil {
		mu.Lock()
		run.SectionsCache++
		mu.Unlock()
		slog.Debug("cache hit", "package", info.Pkg.Path, "hash", hash)
		return cached, nil
	}

	fmt.Printf("  documenting %s (%d files)...\n", info.Pkg.Path, len(info.Pkg.Files))
	doc, err := p.gen.DocumentPackage(ctx, info)
	if err != nil {
		return nil, err
	}

	section := &types.DocSection{
		Kind:         types.SectionPackage,
		Path:         info.Pkg.Path,
		Title:        info.Pkg.Path,
		Markdown:     doc.Markdown,
		ContentHash:  hash,
		Model:        doc.Model,
		InputTokens:  doc.Usage.InputTokens,
		OutputTokens: doc.Usage.OutputTokens,
		CreatedAt:    time.Now().UTC(),
	}
	p.storeSection(ctx, section)

	mu.Lock()
	run.SectionsNew++
	run.InputTokens += doc.Usage.InputTokens
	run.OutputTokens += doc.Usage.OutputTokens
	mu.Unlock()
	return section, nil
}

func (p *Pipeline) overview(ctx context.Context, opts Options, run *types.Run, infos []*parser.PackageInfo, depList []types.Dependency, modelLabel string) (*types.DocSection, error) {
	if opts.NoAI {
		return nil, nil
	}

	// The overview depends on every package, so its hash folds all of
	// their hashes together.
	combined := xxhash.New()
	for _, info := range infos {
		combined.WriteString(info.Pkg.Path)
		combined.WriteString(info.Pkg.Hash)
	}
	hash := sectionHash(types.SectionOverview, "", fmt.Sprintf("%016x", combined.Sum64()), modelLabel)

	if cached := p.cachedSection(ctx, opts, hash); cached != nil {
		run.SectionsCache++
		return cached, nil
	}

	fmt.Printf("  writing repository overview...\n")
	doc, err := p.gen.Overview(ctx, RepoName(opts.RepoPath), infos, depList)
	if err != nil {
		return nil, err
	}

	section := &types.DocSection{
		Kind:         types.SectionOverview,
		Title:        "Overview",
		Markdown:     doc.Markdown,
		ContentHash:  hash,
		Model:        doc.Model,
		InputTokens:  doc.Usage.InputTokens,
		OutputTokens: doc.Usage.OutputTokens,
		CreatedAt:    time.Now().UTC(),
	}
	p.storeSection(ctx, section)

	run.SectionsNew++
	run.InputTokens += doc.Usage.InputTokens
	run.OutputTokens += doc.Usage.OutputTokens
	return section, nil
}

// repoMeta fetches git metadata, degrading to empty on any failure.
func (p *Pipeline) repoMeta(ctx context.Context, repoPath string, result *Result) types.RepoMeta {
	gitClient, err := git.New(ctx)
	if err != nil {
		result.Warnings = append(result.Warnings, "git not available; pages carry no commit metadata")
		return types.RepoMeta{}
	}
	meta, err := gitClient.Meta(ctx, repoPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reading git metadata: %v", err))
		return types.RepoMeta{}
	}
	return meta
}

// finishRun closes out the ledger entry. Cancellation and failure are
// recorded distinctly so `docgen status` can tell them apart.
func (p *Pipeline) finishRun(ctx context.Context, run *types.Run, genErr error) {
	switch {
	case genErr == nil:
		run.Status = types.RunCompleted
	case ctx.Err() != nil:
		run.Status = types.RunCanceled
		run.Error = ctx.Err().Error()
	default:
		run.Status = types.RunFailed
		run.Error = genErr.Error()
	}
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if p.tracker != nil {
		run.CostUSD = p.tracker.CostFor(run.InputTokens, run.OutputTokens)
	}

	// Record with a fresh context: the run context may already be canceled.
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.FinishRun(recordCtx, run); err != nil {
		slog.Warn("failed to record run outcome", "run", run.ID, "error", err)
	}
}

// filterPackages keeps packages whose path matches any of the globs. A
// glob also matches everything under a directory it names, so
// "internal/*" and "internal" both select the internal tree.
func filterPackages(pkgs []*types.Package, globs []string) []*types.Package {
	if len(globs) == 0 {
		return pkgs
	}
	var kept []*types.Package
	for _, pkg := range pkgs {
		for _, glob := range globs {
			ok, err := filepath.Match(glob, pkg.Path)
			if err == nil && ok {
				kept = append(kept, pkg)
				break
			}
			if pkg.Path == glob || strings.HasPrefix(pkg.Path, glob+"/") {
				kept = append(kept, pkg)
				break
			}
		}
	}
	return kept
}

// sectionHash derives the cache key for a section from everything that
// influences its content: kind, path, the code's hash, and the model.
func sectionHash(kind types.SectionKind, path, codeHash, model string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(string(kind)+"|"+path+"|"+codeHash+"|"+model))
}

// ModuleName reads the Go module path for the repo-level package graph,
// falling back to the directory name for non-Go repositories.
func ModuleName(repoPath string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, "go.mod"))
	if err == nil {
		if name := modfile.ModulePath(data); name != "" {
			return name
		}
	}
	return RepoName(repoPath)
}

// RepoName is the display name for a repository path, its base directory.
func RepoName(repoPath string) string {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return filepath.Base(repoPath)
	}
	return filepath.Base(abs)
}
