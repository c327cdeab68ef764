package symbols

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/Paranoid-AF/codelet"
)

// Extract returns the declarations in src, choosing a parser by the
// extension of path. Unknown extensions yield no symbols.
func Extract(path string, src []byte) []codelet.Symbol {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return extractGo(path, src)
	case ".sh", ".bash", ".zsh":
		return extractShell(path, src)
	case ".py":
		return extractLines(path, src, pythonDecls)
	case ".js", ".ts":
		return extractLines(path, src, scriptDecls)
	case ".rs":
		return extractLines(path, src, rustDecls)
	case ".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx", ".java":
		return extractLines(path, src, cDecls)
	}
	return nil
}

func extractGo(path string, src []byte) []codelet.Symbol {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil && f == nil {
		return nil
	}
	var out []codelet.Symbol
	add := func(name, kind string, node ast.Node) {
		out = append(out, codelet.Symbol{
			Name:      name,
			Path:      path,
			Type:      kind,
			StartLine: fset.Position(node.Pos()).Line - 1,
			EndLine:   fset.Position(node.End()).Line - 1,
		})
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			kind := "function"
			if d.Recv != nil {
				kind = "method"
			}
			add(d.Name.Name, kind, d)
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					add(s.Name.Name, "type", s)
				case *ast.ValueSpec:
					kind := "variable"
					if d.Tok == token.CONST {
						kind = "constant"
					}
					for _, n := range s.Names {
						if n.Name != "_" {
							add(n.Name, kind, s)
						}
					}
				}
			}
		}
	}
	return out
}

func extractShell(path string, src []byte) []codelet.Symbol {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(bytes.NewReader(src), path)
	if err != nil {
		return nil
	}
	var out []codelet.Symbol
	syntax.Walk(file, func(node syntax.Node) bool {
		fn, ok := node.(*syntax.FuncDecl)
		if !ok || fn.Name == nil {
			return true
		}
		out = append(out, codelet.Symbol{
			Name:      fn.Name.Value,
			Path:      path,
			Type:      "function",
			StartLine: int(fn.Pos().Line()) - 1,
			EndLine:   int(fn.End().Line()) - 1,
		})
		return true
	})
	return out
}

// lineDecl matches a declaration on one line. The name is the last
// submatch group that matched.
type lineDecl struct {
	re   *regexp.Regexp
	kind string
}

var (
	pythonDecls = []lineDecl{
		{regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`), "function"},
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), "class"},
	}
	scriptDecls = []lineDecl{
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`), "function"},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), "class"},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:interface|type)\s+([A-Za-z_$][\w$]*)`), "type"},
		{regexp.MustCompile(`^\s*(?:export\s+)?const\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?\(`), "function"},
	}
	rustDecls = []lineDecl{
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_]\w*)`), "function"},
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_]\w*)`), "type"},
	}
	cDecls = []lineDecl{
		{regexp.MustCompile(`^\s*(?:typedef\s+)?(?:struct|class|union|enum|interface)\s+([A-Za-z_]\w*)\s*(?:[:{]|$)`), "type"},
		{regexp.MustCompile(`^\s*#define\s+([A-Za-z_]\w*)`), "macro"},
		{regexp.MustCompile(`^[A-Za-z_][\w\s\*&:<>,]*?[\s\*&]([A-Za-z_][\w:]*)\s*\([^;]*$`), "function"},
	}
)

// cKeywords never name a C-like function even when they precede "(".
var cKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"sizeof": true, "catch": true, "else": true, "do": true,
}

func extractLines(path string, src []byte, decls []lineDecl) []codelet.Symbol {
	var out []codelet.Symbol
	for i, line := range strings.Split(string(src), "\n") {
		for _, d := range decls {
			m := d.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[len(m)-1]
			if cKeywords[name] {
				continue
			}
			out = append(out, codelet.Symbol{Name: name, Path: path, Type: d.kind, StartLine: i, EndLine: i})
			break
		}
	}
	return out
}
