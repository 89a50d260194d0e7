package parser

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

// symbolPattern ties a regex to the kind of symbol its first capture
// group names.
type symbolPattern struct {
	re   *regexp.Regexp
	kind types.SymbolKind
}

// languagePatterns drives the generic extractor. Patterns are anchored to
// line starts (after indentation) and capture the symbol name in group 1.
var languagePatterns = map[types.Language][]symbolPattern{
	types.LangPython: {
		{regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`), types.SymbolFunc},
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[(:]`), types.SymbolClass},
	},
	types.LangJavaScript: {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`), types.SymbolFunc},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`), types.SymbolClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?const\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\(`), types.SymbolFunc},
	},
	types.LangTypeScript: {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*[(<]`), types.SymbolFunc},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`), types.SymbolClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_$][A-Za-z0-9_$]*)`), types.SymbolInterface},
		{regexp.MustCompile(`^\s*(?:export\s+)?type\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=`), types.SymbolType},
	},
	types.LangJava: {
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:abstract\s+|final\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`), types.SymbolClass},
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*interface\s+([A-Za-z_$][A-Za-z0-9_$]*)`), types.SymbolInterface},
	},
	types.LangRust: {
		{regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)`), types.SymbolFunc},
		{regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+)?struct\s+([A-Za-z_][A-Za-z0-9_]*)`), types.SymbolType},
		{regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+)?enum\s+([A-Za-z_][A-Za-z0-9_]*)`), types.SymbolType},
		{regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+)?trait\s+([A-Za-z_][A-Za-z0-9_]*)`), types.SymbolInterface},
	},
	types.LangRuby: {
		{regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_][A-Za-z0-9_?!]*)`), types.SymbolFunc},
		{regexp.MustCompile(`^\s*class\s+([A-Z][A-Za-z0-9_]*)`), types.SymbolClass},
		{regexp.MustCompile(`^\s*module\s+([A-Z][A-Za-z0-9_]*)`), types.SymbolClass},
	},
	types.LangC: {
		{regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_* ]*\s\*?([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*$`), types.SymbolFunc},
	},
	types.LangCPP: {
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`), types.SymbolClass},
		{regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:<>* ]*\s\*?([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*$`), types.SymbolFunc},
	},
	types.LangShell: {
		{regexp.MustCompile(`^\s*(?:function\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(\)\s*\{`), types.SymbolFunc},
	},
}

// importPatterns captures imported module names per language.
var importPatterns = map[types.Language][]*regexp.Regexp{
	types.LangPython: {
		regexp.MustCompile(`^\s*import\s+([A-Za-z_][A-Za-z0-9_.]*)`),
		regexp.MustCompile(`^\s*from\s+([A-Za-z_.][A-Za-z0-9_.]*)\s+import`),
	},
	types.LangJavaScript: {
		regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
	},
	types.LangTypeScript: {
		regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
	},
	types.LangJava: {
		regexp.MustCompile(`^\s*import\s+(?:static\s+)?([A-Za-z_][A-Za-z0-9_.]*);`),
	},
	types.LangRust: {
		regexp.MustCompile(`^\s*use\s+([A-Za-z_][A-Za-z0-9_]*)`),
	},
	types.LangRuby: {
		regexp.MustCompile(`^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`),
	},
	types.LangC: {
		regexp.MustCompile(`^\s*#include\s+[<"]([^>"]+)[>"]`),
	},
	types.LangCPP: {
		regexp.MustCompile(`^\s*#include\s+[<"]([^>"]+)[>"]`),
	},
}

// parseGenericFile runs the regex tables over the file line by line.
// Languages without a table yield no symbols, just the head excerpt.
func parseGenericFile(path string, lang types.Language, data []byte) FileInfo {
	info := FileInfo{Path: path, Head: headString(data)}

	patterns := languagePatterns[lang]
	imports := importPatterns[lang]
	if len(patterns) == 0 && len(imports) == 0 {
		return info
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := make(map[string]bool)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			key := string(p.kind) + ":" + name
			if seen[key] {
				continue
			}
			seen[key] = true
			info.Symbols = append(info.Symbols, types.Symbol{
				Name:      name,
				Kind:      p.kind,
				Signature: strings.TrimSpace(line),
				File:      path,
				Line:      lineNo,
				Exported:  isExportedName(lang, line, name),
			})
			break
		}

		for _, re := range imports {
			if m := re.FindStringSubmatch(line); m != nil {
				if !seen["import:"+m[1]] {
					seen["import:"+m[1]] = true
					info.Imports = append(info.Imports, m[1])
				}
				break
			}
		}
	}

	return info
}

// isExportedName applies per-language visibility conventions: leading
// underscore is private in Python/JS, `pub` gates Rust, everything else
// defaults to exported.
func isExportedName(lang types.Language, line, name string) bool {
	switch lang {
	case types.LangPython, types.LangJavaScript, types.LangTypeScript:
		return !strings.HasPrefix(name, "_")
	case types.LangRust:
		return strings.Contains(line, "pub ") || strings.Contains(line, "pub(")
	default:
		return true
	}
}
