package parser

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/sunprojectca/DocGen/internal/types"
)

// parseGoFile extracts declarations from a Go source file using go/ast.
// Parse errors degrade to the generic result rather than failing: a file
// mid-edit should not sink a documentation run.
func parseGoFile(path string, data []byte) FileInfo {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, data, parser.ParseComments)
	if err != nil {
		return FileInfo{Path: path, Head: headString(data)}
	}

	info := FileInfo{Path: path, Head: headString(data)}

	for _, imp := range file.Imports {
		info.Imports = append(info.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			info.Symbols = append(info.Symbols, goFuncSymbol(fset, path, d))
		case *ast.GenDecl:
			info.Symbols = append(info.Symbols, goGenSymbols(fset, path, d)...)
		}
	}

	return info
}

func goFuncSymbol(fset *token.FileSet, path string, d *ast.FuncDecl) types.Symbol {
	sym := types.Symbol{
		Name:     d.Name.Name,
		Kind:     types.SymbolFunc,
		File:     path,
		Line:     fset.Position(d.Pos()).Line,
		Exported: d.Name.IsExported(),
		Doc:      docText(d.Doc),
	}

	if d.Recv != nil && len(d.Recv.List) > 0 {
		sym.Kind = types.SymbolMethod
		sym.Receiver = receiverType(d.Recv.List[0].Type)
	}

	sym.Signature = funcSignature(d)
	return sym
}

func goGenSymbols(fset *token.FileSet, path string, d *ast.GenDecl) []types.Symbol {
	var syms []types.Symbol

	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			kind := types.SymbolType
			if _, ok := s.Type.(*ast.InterfaceType); ok {
				kind = types.SymbolInterface
			}
			doc := docText(s.Doc)
			if doc == "" {
				doc = docText(d.Doc)
			}
			syms = append(syms, types.Symbol{
				Name:     s.Name.Name,
				Kind:     kind,
				File:     path,
				Line:     fset.Position(s.Pos()).Line,
				Exported: s.Name.IsExported(),
				Doc:      doc,
			})
		case *ast.ValueSpec:
			kind := types.SymbolVar
			if d.Tok == token.CONST {
				kind = types.SymbolConst
			}
			for _, name := range s.Names {
				if name.Name == "_" {
					continue
				}
				syms = append(syms, types.Symbol{
					Name:     name.Name,
					Kind:     kind,
					File:     path,
					Line:     fset.Position(name.Pos()).Line,
					Exported: name.IsExported(),
					Doc:      docText(s.Doc),
				})
			}
		}
	}

	return syms
}

// funcSignature renders "func (r *T) Name(args) results" from the AST.
func funcSignature(d *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")

	if d.Recv != nil && len(d.Recv.List) > 0 {
		b.WriteString("(")
		b.WriteString(fieldString(d.Recv.List[0]))
		b.WriteString(") ")
	}

	b.WriteString(d.Name.Name)
	b.WriteString("(")
	for i, p := range d.Type.Params.List {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fieldString(p))
	}
	b.WriteString(")")

	if d.Type.Results != nil && len(d.Type.Results.List) > 0 {
		results := make([]string, 0, len(d.Type.Results.List))
		for _, r := range d.Type.Results.List {
			results = append(results, fieldString(r))
		}
		if len(results) == 1 && len(d.Type.Results.List[0].Names) == 0 {
			b.WriteString(" " + results[0])
		} else {
			b.WriteString(" (" + strings.Join(results, ", ") + ")")
		}
	}

	return b.String()
}

func fieldString(f *ast.Field) string {
	typ := exprString(f.Type)
	if len(f.Names) == 0 {
		return typ
	}
	names := make([]string, len(f.Names))
	for i, n := range f.Names {
		names[i] = n.Name
	}
	return strings.Join(names, ", ") + " " + typ
}

// exprString renders a type expression. Covers the forms that appear in
// signatures; anything exotic falls back to a placeholder.
func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.IndexExpr:
		return exprString(t.X) + "[" + exprString(t.Index) + "]"
	default:
		return "?"
	}
}

func receiverType(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverType(t.X)
	default:
		return exprString(e)
	}
}

func docText(g *ast.CommentGroup) string {
	if g == nil {
		return ""
	}
	return strings.TrimSpace(g.Text())
}
