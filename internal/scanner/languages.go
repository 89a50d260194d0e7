package scanner

import (
	"path/filepath"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

// extLanguages maps file extensions to languages.
var extLanguages = map[string]types.Language{
	".go":   types.LangGo,
	".py":   types.LangPython,
	".pyi":  types.LangPython,
	".js":   types.LangJavaScript,
	".mjs":  types.LangJavaScript,
	".cjs":  types.LangJavaScript,
	".jsx":  types.LangJavaScript,
	".ts":   types.LangTypeScript,
	".tsx":  types.LangTypeScript,
	".java": types.LangJava,
	".rs":   types.LangRust,
	".c":    types.LangC,
	".h":    types.LangC,
	".cc":   types.LangCPP,
	".cpp":  types.LangCPP,
	".cxx":  types.LangCPP,
	".hpp":  types.LangCPP,
	".rb":   types.LangRuby,
	".sh":   types.LangShell,
	".bash": types.LangShell,
	".md":   types.LangMarkdown,
	".yaml": types.LangYAML,
	".yml":  types.LangYAML,
	".json": types.LangJSON,
}

// shebangLanguages maps interpreter names (from #! lines) to languages.
var shebangLanguages = map[string]types.Language{
	"python":  types.LangPython,
	"python3": types.LangPython,
	"node":    types.LangJavaScript,
	"bash":    types.LangShell,
	"sh":      types.LangShell,
	"zsh":     types.LangShell,
	"ruby":    types.LangRuby,
}

// DetectLanguage determines the language of a file from its extension,
// falling back to the shebang line for extensionless scripts.
func DetectLanguage(path string, head []byte) types.Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}

	// Extensionless: check for a shebang.
	if ext == "" && len(head) > 2 && head[0] == '#' && head[1] == '!' {
		line := string(head)
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		// Interpreter is the last path element; "env python3" resolves to
		// the argument after env.
		fields := strings.Fields(strings.TrimPrefix(line, "#!"))
		for i := len(fields) - 1; i >= 0; i-- {
			name := filepath.Base(fields[i])
			if name == "env" {
				continue
			}
			if lang, ok := shebangLanguages[name]; ok {
				return lang
			}
			break
		}
	}

	return types.LangUnknown
}

// documentable reports whether a language produces documentation pages.
// Markup and data formats are scanned (they count toward repo stats) but
// never sent to the AI as code.
func documentable(lang types.Language) bool {
	switch lang {
	case types.LangMarkdown, types.LangYAML, types.LangJSON, types.LangUnknown:
		return false
	}
	return true
}
