// Package deps discovers and parses dependency manifests for the audit
// component: go.mod, package.json, requirements.txt, and pyproject.toml.
package deps

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sunprojectca/DocGen/internal/types"
)

// manifestParser parses one manifest format.
type manifestParser func(relPath string, data []byte) ([]types.Dependency, error)

// parsers maps manifest base names to their parser.
var parsers = map[string]manifestParser{
	"go.mod":           parseGoMod,
	"package.json":     parsePackageJSON,
	"requirements.txt": parseRequirements,
	"pyproject.toml":   parsePyProject,
}

// skipDirs mirrors the scanner's built-in skip list; manifests inside
// vendored trees describe someone else's dependencies.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// Discover walks root for known manifests and parses each. Per-manifest
// parse failures are collected as warnings; they never abort discovery.
func Discover(root string) ([]types.Dependency, []string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	var (
		deps     []types.Dependency
		warnings []string
	)

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		parse, ok := parsers[d.Name()]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", rel, err))
			return nil
		}

		parsed, err := parse(rel, data)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", rel, err))
			return nil
		}
		deps = append(deps, parsed...)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("manifest discovery failed: %w", err)
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Ecosystem != deps[j].Ecosystem {
			return deps[i].Ecosystem < deps[j].Ecosystem
		}
		return deps[i].Name < deps[j].Name
	})
	return deps, warnings, nil
}

// CountByEcosystem summarizes a dependency list for display.
func CountByEcosystem(deps []types.Dependency) map[types.Ecosystem]int {
	counts := make(map[types.Ecosystem]int)
	for _, d := range deps {
		counts[d.Ecosystem]++
	}
	return counts
}
