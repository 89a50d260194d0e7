// Package scanner walks a repository, detects languages, fingerprints file
// contents, and groups source files into documentable packages.
package scanner

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/types"
)

// skipDirs are directory names never descended into, regardless of config.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".docgen":      true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
}

// Result is the outcome of scanning a repository.
type Result struct {
	Root     string             // Absolute repo root
	Files    []types.SourceFile // All scanned files, sorted by path
	Packages []*types.Package   // Documentable packages, sorted by path
	Skipped  int                // Files skipped (size, binary, excluded)
	Warnings []string           // Non-fatal problems encountered
}

// Scanner walks repositories according to a config.
type Scanner struct {
	cfg *config.Config
}

// New creates a Scanner.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Scanner{cfg: cfg}
}

// Scan walks the tree rooted at root. An empty repository yields an empty
// Result, not an error. Unreadable files are recorded as warnings and
// skipped.
func (s *Scanner) Scan(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	result := &Result{Root: absRoot}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", path, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDirs[d.Name()] || s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are not followed; a symlinked file is skipped entirely
		// so link cycles cannot trap the walk.
		if d.Type()&fs.ModeSymlink != 0 {
			result.Skipped++
			return nil
		}

		if s.excluded(rel) || !s.included(rel) {
			result.Skipped++
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", rel, err))
			return nil
		}
		if fi.Size() > s.cfg.MaxFileSize {
			slog.Debug("skipping oversized file", "path", rel, "size", fi.Size())
			result.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", rel, err))
			result.Skipped++
			return nil
		}
		if isBinary(data) {
			result.Skipped++
			return nil
		}

		lang := DetectLanguage(rel, head(data, 256))
		if !s.languageAllowed(lang) {
			result.Skipped++
			return nil
		}

		result.Files = append(result.Files, types.SourceFile{
			Path:     rel,
			Language: lang,
			Size:     fi.Size(),
			Hash:     fmt.Sprintf("%016x", xxhash.Sum64(data)),
			Lines:    countLines(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	result.Packages = groupPackages(result.Files)
	return result, nil
}

// excluded reports whether rel matches a configured exclude glob. Globs
// are matched against the full relative path and against the base name.
func (s *Scanner) excluded(rel string) bool {
	return matchAny(s.cfg.Exclude, rel)
}

// included reports whether rel passes the include filter (empty filter
// admits everything).
func (s *Scanner) included(rel string) bool {
	if len(s.cfg.Include) == 0 {
		return true
	}
	return matchAny(s.cfg.Include, rel)
}

func (s *Scanner) languageAllowed(lang types.Language) bool {
	if len(s.cfg.Languages) == 0 {
		return true
	}
	for _, l := range s.cfg.Languages {
		if types.Language(strings.ToLower(l)) == lang {
			return true
		}
	}
	return false
}

func matchAny(globs []string, rel string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
		// Directory prefix form: "testdata/*" should also exclude
		// deeper entries like testdata/a/b.go.
		if strings.HasSuffix(g, "/*") {
			if strings.HasPrefix(rel, strings.TrimSuffix(g, "*")) {
				return true
			}
		}
	}
	return false
}

// groupPackages buckets documentable files by directory and computes a
// combined content hash per package. Output is sorted by path.
func groupPackages(files []types.SourceFile) []*types.Package {
	byDir := make(map[string]*types.Package)

	for _, f := range files {
		if !documentable(f.Language) {
			continue
		}
		dir := filepath.ToSlash(filepath.Dir(f.Path))
		pkg, ok := byDir[dir]
		if !ok {
			name := filepath.Base(dir)
			if dir == "." {
				name = "root"
			}
			pkg = &types.Package{Path: dir, Name: name}
			byDir[dir] = pkg
		}
		pkg.Files = append(pkg.Files, f)
	}

	pkgs := make([]*types.Package, 0, len(byDir))
	for _, pkg := range byDir {
		pkg.Language = dominantLanguage(pkg.Files)

		// Combined hash: member hashes in path order, so the package hash
		// changes iff any member file changes.
		h := xxhash.New()
		for _, f := range pkg.Files {
			_, _ = h.WriteString(f.Path)
			_, _ = h.WriteString(f.Hash)
		}
		pkg.Hash = fmt.Sprintf("%016x", h.Sum64())
		pkgs = append(pkgs, pkg)
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Path < pkgs[j].Path })
	return pkgs
}

func dominantLanguage(files []types.SourceFile) types.Language {
	counts := make(map[types.Language]int)
	for _, f := range files {
		counts[f.Language]++
	}
	best := types.LangUnknown
	bestN := 0
	for lang, n := range counts {
		if n > bestN || (n == bestN && lang < best) {
			best, bestN = lang, n
		}
	}
	return best
}

// isBinary applies the classic NUL-byte heuristic to the first 8000 bytes.
func isBinary(data []byte) bool {
	return bytes.IndexByte(head(data, 8000), 0) >= 0
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
