// Package parser extracts symbols and import edges from source files.
// Go files get full go/ast treatment; everything else goes through a
// line-oriented extractor driven by per-language regex tables.
package parser

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/sunprojectca/DocGen/internal/types"
)

// FileInfo is the parse result for a single file.
type FileInfo struct {
	Path    string         // Path relative to the repo root
	Symbols []types.Symbol // Extracted declarations (may be empty)
	Imports []string       // Imported modules/packages
	Head    string         // First few hundred chars of the file, for prompts
}

// PackageInfo aggregates parse results for a package.
type PackageInfo struct {
	Pkg     *types.Package
	Files   []FileInfo
	Imports []string // Union of file imports, sorted, deduplicated
}

// maxHeadChars bounds the raw source excerpt kept for prompt context.
const maxHeadChars = 600

// ParsePackage parses every file of pkg under root. Files that cannot be
// read or parsed degrade to an entry with no symbols; a malformed file
// never fails the package.
func ParsePackage(root string, pkg *types.Package) *PackageInfo {
	info := &PackageInfo{Pkg: pkg}
	seen := make(map[string]bool)

	for _, f := range pkg.Files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err != nil {
			info.Files = append(info.Files, FileInfo{Path: f.Path})
			continue
		}

		fi := ParseFile(f.Path, f.Language, data)
		info.Files = append(info.Files, fi)

		for _, imp := range fi.Imports {
			if !seen[imp] {
				seen[imp] = true
				info.Imports = append(info.Imports, imp)
			}
		}
	}

	sort.Strings(info.Imports)
	return info
}

// ParseFile extracts symbols from a single file's contents.
func ParseFile(path string, lang types.Language, data []byte) FileInfo {
	switch lang {
	case types.LangGo:
		return parseGoFile(path, data)
	default:
		return parseGenericFile(path, lang, data)
	}
}

func headString(data []byte) string {
	if len(data) > maxHeadChars {
		return string(data[:maxHeadChars])
	}
	return string(data)
}
