// Package astgraph is the Ast Graph (C2): a deduplicated, arena-allocated
// graph of AstSymbol and AstDeclaration nodes. Per spec.md §9's design
// note on cyclic references ("a method's parent is its class; a class's
// members reference the class"), nodes live in flat arenas and reference
// each other by integer handle rather than by pointer, so cycles are just
// ordinary int fields rather than a memory-management concern.
package astgraph

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/facade"
)

// SymbolHandle identifies an AstSymbol within a Graph's arena.
type SymbolHandle int

// DeclHandle identifies an AstDeclaration within a Graph's arena.
type DeclHandle int

// NoDecl is the sentinel parent handle for a root-level declaration.
const NoDecl DeclHandle = -1

// AstSymbol is one per distinct logical named entity (spec.md §3).
type AstSymbol struct {
	LocalName string
	Nominal   bool
	Imported  bool
	Source    *facade.Symbol // the façade symbol this was ensured from

	declarations []DeclHandle
	analyzed     bool
}

// Declarations returns the symbol's declaration handles in the order they
// were attached.
func (s *AstSymbol) Declarations() []DeclHandle { return s.declarations }

// Analyzed reports the symbol's monotonic false→true analysis flag.
func (s *AstSymbol) Analyzed() bool { return s.analyzed }

// DeclKind classifies the syntactic shape of a declaration site. C3
// assigns it at construction time; C5/C6/C7 use it to decide
// documentation policy, span modifications, and api-model variant without
// re-inspecting syntax.
type DeclKind int

const (
	KindUnknown DeclKind = iota
	KindClass
	KindInterface
	KindEnum
	KindNamespace
	KindFunction
	KindTypeAlias
	KindVariable
	KindMethod
	KindConstructor
	KindProperty
	KindIndexSignature
	KindCallSignature
	KindEnumMember
)

// AstDeclaration is one per syntactic declaration site of an AstSymbol
// (spec.md §3). Parent/child relationships mirror nesting of
// isAstDeclaration-eligible syntax kinds only.
type AstDeclaration struct {
	Symbol SymbolHandle
	Kind   DeclKind
	Node   *sitter.Node
	File   *facade.SourceFile
	Parent DeclHandle

	children   []DeclHandle
	references []SymbolHandle
	refSet     map[SymbolHandle]bool
}

func (d *AstDeclaration) Children() []DeclHandle { return d.children }

func (d *AstDeclaration) ReferencedSymbols() []SymbolHandle { return d.references }

// Graph owns every AstSymbol and AstDeclaration for one analysis run.
type Graph struct {
	symbols []*AstSymbol
	decls   []*AstDeclaration

	bySource map[*facade.Symbol]SymbolHandle
	analyzed bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{bySource: make(map[*facade.Symbol]SymbolHandle)}
}

// EnsureSymbol returns the AstSymbol for a façade symbol, creating it on
// first encounter. The same façade symbol always maps to the same handle
// (spec.md §3 identity invariant).
func (g *Graph) EnsureSymbol(src *facade.Symbol) SymbolHandle {
	if h, ok := g.bySource[src]; ok {
		return h
	}
	h := SymbolHandle(len(g.symbols))
	g.symbols = append(g.symbols, &AstSymbol{
		LocalName: src.Name,
		Nominal:   src.Nominal,
		Imported:  src.Imported,
		Source:    src,
	})
	g.bySource[src] = h
	return h
}

// Symbol dereferences a SymbolHandle.
func (g *Graph) Symbol(h SymbolHandle) *AstSymbol {
	return g.symbols[h]
}

// Declaration dereferences a DeclHandle.
func (g *Graph) Declaration(h DeclHandle) *AstDeclaration {
	return g.decls[h]
}

// AllSymbols returns every AstSymbol handle in creation order.
func (g *Graph) AllSymbols() []SymbolHandle {
	out := make([]SymbolHandle, len(g.symbols))
	for i := range g.symbols {
		out[i] = SymbolHandle(i)
	}
	return out
}

// AddDeclaration attaches a new AstDeclaration for sym, under parent (or
// NoDecl for a root declaration). Panics with a *diag.Fault if the graph
// has already been marked analyzed — construction-time invariant per
// spec.md §4.2: "refuses attachment after analyzed".
func (g *Graph) AddDeclaration(sym SymbolHandle, kind DeclKind, node *sitter.Node, file *facade.SourceFile, parent DeclHandle) DeclHandle {
	if g.analyzed {
		panic(&diag.Fault{Invariant: "graph-frozen", Detail: "AddDeclaration called after MarkAnalyzed"})
	}
	if parent != NoDecl && (int(parent) < 0 || int(parent) >= len(g.decls)) {
		panic(&diag.Fault{Invariant: "dangling-parent", Detail: fmt.Sprintf("parent handle %d out of range", parent)})
	}

	h := DeclHandle(len(g.decls))
	d := &AstDeclaration{
		Symbol: sym,
		Kind:   kind,
		Node:   node,
		File:   file,
		Parent: parent,
		refSet: make(map[SymbolHandle]bool),
	}
	g.decls = append(g.decls, d)
	g.symbols[sym].declarations = append(g.symbols[sym].declarations, h)
	if parent != NoDecl {
		g.decls[parent].children = append(g.decls[parent].children, h)
	}
	return h
}

// IsAncestor reports whether anc is an ancestor declaration of d (or d
// itself).
func (g *Graph) IsAncestor(anc, d DeclHandle) bool {
	for cur := d; cur != NoDecl; cur = g.decls[cur].Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// AddReference records that declaration `from` references AstSymbol
// `target`. Per spec.md §3's referenced-symbol edge discipline: rejects a
// reference to the declaration's own symbol, rejects a reference to any
// ancestor declaration's symbol, and dedupes by identity. Returns false if
// the reference was rejected or was already present (no-op either way —
// callers don't need to branch on it, but tests assert minimality with it).
func (g *Graph) AddReference(from DeclHandle, target SymbolHandle) bool {
	if g.analyzed {
		panic(&diag.Fault{Invariant: "graph-frozen", Detail: "AddReference called after MarkAnalyzed"})
	}
	d := g.decls[from]
	if d.Symbol == target {
		return false
	}
	for cur := d.Parent; cur != NoDecl; cur = g.decls[cur].Parent {
		if g.decls[cur].Symbol == target {
			return false
		}
		if g.decls[cur].refSet[target] {
			return false
		}
	}
	if d.refSet[target] {
		return false
	}
	d.refSet[target] = true
	d.references = append(d.references, target)
	return true
}

// MarkAnalyzed freezes the graph: every AstSymbol's analyzed flag flips
// true and further mutation panics. Monotonic false→true per spec.md §3.
func (g *Graph) MarkAnalyzed() {
	g.analyzed = true
	for _, s := range g.symbols {
		s.analyzed = true
	}
}

// Analyzed reports whether MarkAnalyzed has been called.
func (g *Graph) Analyzed() bool { return g.analyzed }

// ForEachDeclarationRecursive visits root and every descendant declaration
// in pre-order.
func (g *Graph) ForEachDeclarationRecursive(root DeclHandle, fn func(DeclHandle)) {
	fn(root)
	for _, c := range g.decls[root].children {
		g.ForEachDeclarationRecursive(c, fn)
	}
}

// Dump renders a deterministic textual form of the graph for diagnostics
// and golden-file style tests.
func (g *Graph) Dump() string {
	var sb strings.Builder
	roots := make([]DeclHandle, 0)
	for i, d := range g.decls {
		if d.Parent == NoDecl {
			roots = append(roots, DeclHandle(i))
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	for _, r := range roots {
		g.dumpDecl(&sb, r, 0)
	}
	return sb.String()
}

func (g *Graph) dumpDecl(sb *strings.Builder, h DeclHandle, depth int) {
	d := g.decls[h]
	sym := g.symbols[d.Symbol]
	fmt.Fprintf(sb, "%s%s (refs=%d)\n", strings.Repeat("  ", depth), sym.LocalName, len(d.references))
	for _, c := range d.children {
		g.dumpDecl(sb, c, depth+1)
	}
}
