// Package facade is the Compiler Façade (C1): a thin, read-only adapter
// that exposes exactly the symbol/type queries the rest of the pipeline
// needs, without exposing the underlying tree-sitter parse tree machinery.
// The real TypeScript compiler/type-checker is explicitly out of scope
// (spec.md §1); Facade stands in for it with a minimal lexical binder
// (binder.go) — no type inference, only declaration and alias resolution.
package facade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
)

// SourceFile holds one parsed file's original text and syntax tree. Spans
// in internal/spantree borrow slices of Text by byte offset and must not
// outlive the Facade that owns it (spec.md §5).
type SourceFile struct {
	Path string
	Text []byte
	Tree *sitter.Tree

	exports     map[string]*binding // exported name -> binding
	exportOrder []string           // exported names, in declaration order
	top         map[string]*binding // every identifier-bindable top-level name
}

// Root returns the syntax root node of the file.
func (f *SourceFile) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// NodeText returns the literal source text of a node.
func (f *SourceFile) NodeText(n *sitter.Node) string {
	return n.Content(f.Text)
}

// Facade loads and binds a set of source files that together make up "the
// package" under review, and answers the symbol/type queries C3 needs.
type Facade struct {
	files     map[string]*SourceFile // absolute path -> file
	order     []string               // absolute paths in the order LoadFile first bound them
	externals map[string]*Symbol     // specifier#name -> shared Nominal symbol
}

// New creates an empty Facade.
func New() *Facade {
	return &Facade{files: make(map[string]*SourceFile)}
}

// LoadFile reads path, parses it with the grammar matching its extension,
// and binds its top-level declarations, imports, and exports. Returns an
// *diag-friendly error (wrapped by the caller into diag.InputError) if the
// file cannot be read or has no registered grammar.
func (fa *Facade) LoadFile(ctx context.Context, path string) (*SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if existing, ok := fa.files[abs]; ok {
		return existing, nil
	}

	lang, ok := defaultGrammars.forPath(abs)
	if !ok {
		return nil, fmt.Errorf("no grammar registered for %s", abs)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", abs, err)
	}

	sf := &SourceFile{
		Path: abs,
		Text: content,
		Tree: tree,
	}
	bind(sf)

	fa.files[abs] = sf
	fa.order = append(fa.order, abs)
	return sf, nil
}

// SourceText returns a file's original text by path, if loaded.
func (fa *Facade) SourceText(path string) ([]byte, bool) {
	abs, _ := filepath.Abs(path)
	sf, ok := fa.files[abs]
	if !ok {
		return nil, false
	}
	return sf.Text, true
}

// SyntaxRoot returns the syntax root of a loaded file.
func (fa *Facade) SyntaxRoot(path string) (*sitter.Node, bool) {
	abs, _ := filepath.Abs(path)
	sf, ok := fa.files[abs]
	if !ok {
		return nil, false
	}
	return sf.Root(), true
}

// ExportedSymbol pairs a resolved Symbol with the name it is exported under
// at this entry point. Name is taken from the export site (the key under
// which bindExportStatement registered it in sf.exports), not from
// Symbol.Name: Symbol.Name is the symbol's declaration-site name and stays
// fixed no matter how many different names re-export it, while an aliased
// named export ("export { Foo as Bar }") or a re-export chain that renames
// its target needs its own alias to win over whatever name the underlying
// declaration was given.
type ExportedSymbol struct {
	*Symbol
	Name string
}

// ExportedSymbols enumerates the symbols a loaded file exports, in the
// declaration order they appear in the entry module (spec.md §5 ordering
// guarantee: "entry exports first, in declaration order of the entry
// module"). Each entry's Name is the export-site name, which may differ
// from its Symbol's own declaration-site name under aliasing.
func (fa *Facade) ExportedSymbols(path string) []ExportedSymbol {
	abs, _ := filepath.Abs(path)
	sf, ok := fa.files[abs]
	if !ok {
		return nil
	}
	var out []ExportedSymbol
	seen := make(map[*Symbol]bool)
	for _, name := range sf.exportOrder {
		b, ok := sf.exports[name]
		if !ok {
			continue
		}
		sym := fa.resolveBinding(b, make(map[*binding]bool))
		if sym == nil || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, ExportedSymbol{Symbol: sym, Name: name})
	}
	return out
}

// SymbolAt resolves the identifier node n (found in file path) to its
// terminal Symbol, following any alias chain. Returns false if the
// identifier cannot be resolved — the caller drops the reference and
// attaches a diag.CodeUnresolvedReference warning, per spec.md §4.1's
// failure mode.
func (fa *Facade) SymbolAt(path string, n *sitter.Node) (*Symbol, bool) {
	abs, _ := filepath.Abs(path)
	sf, ok := fa.files[abs]
	if !ok {
		return nil, false
	}
	name := sf.NodeText(n)
	b, ok := lookupBinding(sf, name)
	if !ok {
		return nil, false
	}
	sym := fa.resolveBinding(b, make(map[*binding]bool))
	if sym == nil {
		return nil, false
	}
	return sym, true
}

// DeclarationsOf returns every declaration node merged into a symbol
// (multiple for overloaded functions or declaration-merged
// interfaces/namespaces), in source order.
func (fa *Facade) DeclarationsOf(sym *Symbol) []*sitter.Node {
	return sym.Declarations
}

// TypeAt returns the literal type-annotation text covering node n, if any.
// The façade performs no type inference of its own (spec.md Non-goals): the
// caller receives exactly the annotation span as written.
func TypeAt(sf *SourceFile, n *sitter.Node) (string, bool) {
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		return sf.NodeText(typeNode), true
	}
	if typeNode := n.ChildByFieldName("return_type"); typeNode != nil {
		return sf.NodeText(typeNode), true
	}
	return "", false
}
