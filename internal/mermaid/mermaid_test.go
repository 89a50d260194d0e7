package mermaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/types"
)

func pkgInfo(path string, imports ...string) *parser.PackageInfo {
	return &parser.PackageInfo{
		Pkg:     &types.Package{Path: path, Name: path},
		Imports: imports,
	}
}

func TestPackageGraph(t *testing.T) {
	infos := []*parser.PackageInfo{
		pkgInfo("cmd/app", "example.com/demo/internal/core", "fmt"),
		pkgInfo("internal/core", "example.com/demo/internal/store"),
		pkgInfo("internal/store", "database/sql"),
	}

	out := PackageGraph("example.com/demo", infos)

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `cmd_app["cmd/app"]`)
	assert.Contains(t, out, "cmd_app --> internal_core")
	assert.Contains(t, out, "internal_core --> internal_store")
	// External imports are not nodes.
	assert.NotContains(t, out, "fmt")
	assert.NotContains(t, out, "database")
}

func TestPackageGraphDeterministic(t *testing.T) {
	infos := []*parser.PackageInfo{
		pkgInfo("b", "m/a"),
		pkgInfo("a"),
		pkgInfo("c", "m/a", "m/b"),
	}
	first := PackageGraph("m", infos)
	second := PackageGraph("m", infos)
	assert.Equal(t, first, second)
}

func TestPackageGraphNoEdges(t *testing.T) {
	infos := []*parser.PackageInfo{pkgInfo("solo")}
	out := PackageGraph("m", infos)
	assert.Contains(t, out, `solo["solo"]`)
}

func TestLayout(t *testing.T) {
	infos := []*parser.PackageInfo{
		pkgInfo("internal/core/worker"),
		pkgInfo("cmd/app"),
		pkgInfo("internal/core"),
		pkgInfo("."),
	}

	out := Layout("demo", infos)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `root["demo"]`)
	// Nested packages hang off their nearest ancestor package.
	assert.Contains(t, out, "internal_core --> internal_core_worker")
	// cmd/ has no in-repo ancestor, so it hangs off the root.
	assert.Contains(t, out, "root --> cmd_app")
	assert.Contains(t, out, "root --> internal_core")
	assert.NotContains(t, out, `.["`, "the root package is the root node, not a child")

	assert.Equal(t, out, Layout("demo", infos))
}

func TestClassDiagram(t *testing.T) {
	info := &parser.PackageInfo{
		Pkg: &types.Package{Path: "internal/store", Name: "store"},
		Files: []parser.FileInfo{
			{
				Path: "internal/store/store.go",
				Symbols: []types.Symbol{
					{Name: "Store", Kind: types.SymbolInterface, Exported: true},
					{Name: "SQLite", Kind: types.SymbolType, Exported: true},
					{Name: "Get", Kind: types.SymbolMethod, Receiver: "SQLite", Exported: true},
					{Name: "put", Kind: types.SymbolMethod, Receiver: "SQLite", Exported: false},
					{Name: "Open", Kind: types.SymbolFunc, Exported: true},
				},
			},
		},
	}

	out := ClassDiagram(info)

	assert.True(t, strings.HasPrefix(out, "classDiagram\n"))
	assert.Contains(t, out, "class SQLite {")
	assert.Contains(t, out, "+Get()")
	assert.Contains(t, out, "-put()")
	assert.Contains(t, out, "<<interface>>")
}

func TestClassDiagramEmpty(t *testing.T) {
	info := &parser.PackageInfo{Pkg: &types.Package{Path: "empty"}}
	assert.Equal(t, "", ClassDiagram(info))
}

func TestNodeID(t *testing.T) {
	assert.Equal(t, "root", NodeID("."))
	assert.Equal(t, "root", NodeID(""))
	assert.Equal(t, "internal_core", NodeID("internal/core"))
	assert.Equal(t, "_3rdparty", NodeID("3rdparty"))
}

func TestSanitizeAccepts(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"plain graph", "graph TD\n    a --> b"},
		{"fenced", "```mermaid\ngraph LR\n    a --> b\n```"},
		{"fenced no lang", "```\nclassDiagram\n    class A\n```"},
		{"sequence", "sequenceDiagram\n    A->>B: hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Sanitize(tt.in)
			require.NoError(t, err)
			assert.NotContains(t, out, "```")
		})
	}
}

func TestSanitizeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"prose", "Here is your diagram!"},
		{"bad directive", "pie\n    \"a\": 1"},
		{"script tag", "graph TD\n    a[\"<script>alert(1)</script>\"]"},
		{"event handler", "graph TD\n    a[\"x\" onclick=evil]"},
		{"oversized", "graph TD\n" + strings.Repeat("    a --> b\n", 4000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestFence(t *testing.T) {
	out := Fence("graph TD\n    a --> b\n")
	assert.Equal(t, "```mermaid\ngraph TD\n    a --> b\n```\n", out)
}
