// Package mermaid builds Mermaid diagrams deterministically from parsed
// repository structure, and sanitizes AI-proposed diagrams before they
// are embedded in generated docs.
package mermaid

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

// maxNodes caps diagram size; beyond this the diagram stops being a
// diagram and starts being a hairball.
const maxNodes = 60

// PackageGraph renders a `graph LR` of package-to-package import edges.
// Only edges between packages present in infos are drawn; external
// imports are not nodes. Output is sorted, so regeneration is diffable.
func PackageGraph(modulePath string, infos []*parser.PackageInfo) string {
	// Map import paths back to in-repo packages.
	byImport := make(map[string]string) // import path -> package path
	for _, info := range infos {
		byImport[moduleImport(modulePath, info.Pkg.Path)] = info.Pkg.Path
	}

	var edges []string
	seen := make(map[string]bool)
	nodes := make(map[string]bool)

	for _, info := range infos {
		for _, imp := range info.Imports {
			target, ok := byImport[imp]
			if !ok || target == info.Pkg.Path {
				continue
			}
			edge := fmt.Sprintf("    %s --> %s", NodeID(info.Pkg.Path), NodeID(target))
			if !seen[edge] {
				seen[edge] = true
				edges = append(edges, edge)
				nodes[info.Pkg.Path] = true
				nodes[target] = true
			}
		}
	}

	var b strings.Builder
	b.WriteString("graph LR\n")

	// Declare nodes with readable labels, sorted.
	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > maxNodes {
		names = names[:maxNodes]
	}
	for _, n := range names {
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", NodeID(n), escapeLabel(n))
	}

	sort.Strings(edges)
	for _, e := range edges {
		if connectsKnown(e, names) {
			b.WriteString(e + "\n")
		}
	}

	// No cross-package edges: still draw the package nodes themselves.
	if len(names) == 0 {
		for i, info := range infos {
			if i >= maxNodes {
				break
			}
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", NodeID(info.Pkg.Path), escapeLabel(info.Pkg.Path))
		}
	}

	return b.String()
}

// Layout renders a `graph TD` of where packages sit in the repository
// tree. Each package hangs off its nearest ancestor package, or off the
// repository root when it has none. Output is sorted, so regeneration
// is diffable.
func Layout(repoName string, infos []*parser.PackageInfo) string {
	paths := make([]string, 0, len(infos))
	inRepo := make(map[string]bool)
	for _, info := range infos {
		paths = append(paths, info.Pkg.Path)
		inRepo[info.Pkg.Path] = true
	}
	sort.Strings(paths)
	if len(paths) > maxNodes {
		paths = paths[:maxNodes]
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	fmt.Fprintf(&b, "    root[\"%s\"]\n", escapeLabel(repoName))
	for _, p := range paths {
		if p == "." {
			// The root package is the root node itself.
			continue
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", NodeID(p), escapeLabel(p))
	}
	for _, p := range paths {
		if p == "." {
			continue
		}
		parent := "root"
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			if inRepo[dir] {
				parent = NodeID(dir)
				break
			}
		}
		fmt.Fprintf(&b, "    %s --> %s\n", parent, NodeID(p))
	}
	return b.String()
}

// ClassDiagram renders a classDiagram for one package: types with their
// methods, interfaces with their doc'd role.
func ClassDiagram(info *parser.PackageInfo) string {
	// Collect types and attach methods by receiver.
	typeNames := make(map[string]types.SymbolKind)
	methods := make(map[string][]types.Symbol)
	var funcs []types.Symbol

	for _, f := range info.Files {
		for _, sym := range f.Symbols {
			switch sym.Kind {
			case types.SymbolType, types.SymbolClass, types.SymbolInterface:
				typeNames[sym.Name] = sym.Kind
			case types.SymbolMethod:
				methods[sym.Receiver] = append(methods[sym.Receiver], sym)
			case types.SymbolFunc:
				if sym.Exported {
					funcs = append(funcs, sym)
				}
			}
		}
	}

	if len(typeNames) == 0 && len(funcs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("classDiagram\n")

	names := make([]string, 0, len(typeNames))
	for n := range typeNames {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > maxNodes {
		names = names[:maxNodes]
	}

	for _, name := range names {
		fmt.Fprintf(&b, "    class %s {\n", sanitizeIdent(name))
		if typeNames[name] == types.SymbolInterface {
			b.WriteString("        <<interface>>\n")
		}
		ms := methods[name]
		sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
		for _, m := range ms {
			vis := "+"
			if !m.Exported {
				vis = "-"
			}
			fmt.Fprintf(&b, "        %s%s()\n", vis, sanitizeIdent(m.Name))
		}
		b.WriteString("    }\n")
	}

	return b.String()
}

// NodeID converts a package path into a Mermaid-safe node identifier.
func NodeID(pkgPath string) string {
	if pkgPath == "" || pkgPath == "." {
		return "root"
	}
	return sanitizeIdent(pkgPath)
}

func sanitizeIdent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	// Identifiers must not start with a digit.
	if out[0] >= '0' && out[0] <= '9' {
		out = append([]byte{'_'}, out...)
	}
	return string(out)
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "[", "(")
	s = strings.ReplaceAll(s, "]", ")")
	return s
}

// moduleImport maps a package path to its import path inside modulePath.
func moduleImport(modulePath, pkgPath string) string {
	if modulePath == "" {
		return pkgPath
	}
	if pkgPath == "." || pkgPath == "" {
		return modulePath
	}
	return modulePath + "/" + pkgPath
}

func connectsKnown(edge string, names []string) bool {
	ids := make(map[string]bool, len(names))
	for _, n := range names {
		ids[NodeID(n)] = true
	}
	parts := strings.Split(strings.TrimSpace(edge), " --> ")
	if len(parts) != 2 {
		return false
	}
	return ids[parts[0]] && ids[parts[1]]
}
