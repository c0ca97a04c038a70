// Package analyzer is the Symbol Analyzer (C3): it drives a traversal from
// the entry module's exported symbols, populating an astgraph.Graph with
// every AstSymbol/AstDeclaration reachable from the entry point, including
// symbols reachable only through a type reference ("forgotten exports").
package analyzer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/facade"
)

// Analyzer walks one entry module to completion and owns the resulting
// Graph. Grounded on processor/ast/ts/parser.go's walkNode tree-cursor
// recursion, repurposed from flat entity extraction into symbol-graph
// construction with parent AstDeclaration threading.
type Analyzer struct {
	fa     *facade.Facade
	g      *astgraph.Graph
	diags  *diag.Bag
	handle map[*facade.Symbol]astgraph.SymbolHandle

	// members memoizes per-(parent declaration, name) synthetic symbols for
	// nested declarations (class members, interface members, enum members),
	// which the façade's lexical binder does not track — it resolves only
	// file-scope bindings. Declaration merging (method overloads) reuses the
	// same entry.
	members map[astgraph.DeclHandle]map[string]*facade.Symbol
}

// New creates an Analyzer over an already-constructed Facade, collecting
// warnings into diags.
func New(fa *facade.Facade, diags *diag.Bag) *Analyzer {
	return &Analyzer{
		fa:      fa,
		g:       astgraph.New(),
		diags:   diags,
		handle:  make(map[*facade.Symbol]astgraph.SymbolHandle),
		members: make(map[astgraph.DeclHandle]map[string]*facade.Symbol),
	}
}

// Graph returns the graph under construction. Safe to call at any point,
// but not finalized (MarkAnalyzed) until Analyze returns.
func (a *Analyzer) Graph() *astgraph.Graph {
	return a.g
}

// Analyze loads entryPath, ensures every exported symbol (and everything
// transitively reachable from it) is represented in the graph, then freezes
// it. Returns the entry module's exported AstSymbol handles in declaration
// order — the seed set C4's Collector admits as "exported".
func (a *Analyzer) Analyze(ctx context.Context, entryPath string) ([]astgraph.SymbolHandle, error) {
	if _, err := a.fa.LoadFile(ctx, entryPath); err != nil {
		return nil, &diag.InputError{Path: entryPath, Err: err}
	}

	exported := a.fa.ExportedSymbols(entryPath)
	entry := make([]astgraph.SymbolHandle, 0, len(exported))
	for _, es := range exported {
		entry = append(entry, a.ensureSymbol(es.Symbol))
	}

	a.g.MarkAnalyzed()
	return entry, nil
}

// ensureSymbol returns the AstSymbol for a façade symbol, walking its
// declarations into the graph on first visit. Memoized so a symbol
// reachable via multiple paths (re-exports, multiple references) is only
// ever attached once — the dedup invariant spec.md §3 requires of C2.
func (a *Analyzer) ensureSymbol(sym *facade.Symbol) astgraph.SymbolHandle {
	if h, ok := a.handle[sym]; ok {
		return h
	}
	h := a.g.EnsureSymbol(sym)
	a.handle[sym] = h

	if sym.Nominal {
		return h
	}
	for _, node := range sym.Declarations {
		a.attach(sym, h, node, astgraph.NoDecl)
	}
	return h
}

// attach adds one declaration site for symHandle under parent, then
// recurses into nested member declarations and walks the declaration's
// signature for type references.
func (a *Analyzer) attach(sym *facade.Symbol, symHandle astgraph.SymbolHandle, node *sitter.Node, parent astgraph.DeclHandle) astgraph.DeclHandle {
	kind := classifyTop(node)
	if kind == astgraph.KindUnknown && parent != astgraph.NoDecl {
		kind = classifyMember(node, sym.File.Text)
	}

	declHandle := a.g.AddDeclaration(symHandle, kind, node, sym.File, parent)

	if hasBodyContainer(kind) {
		a.attachMembers(node, sym.File, declHandle)
	}

	a.walkReferences(node, sym.File, declHandle, kind)
	return declHandle
}

// attachMembers walks a container declaration's body (class_body,
// interface_body, enum_body) and attaches one child AstDeclaration per
// recognized member node. Grounded on extractClassMethods's
// ChildByFieldName("body") + filtered Child(i) iteration idiom.
func (a *Analyzer) attachMembers(container *sitter.Node, file *facade.SourceFile, parent astgraph.DeclHandle) {
	body := container.ChildByFieldName("body")
	if body == nil {
		return
	}
	if a.members[parent] == nil {
		a.members[parent] = make(map[string]*facade.Symbol)
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if classifyMember(child, file.Text) == astgraph.KindUnknown {
			continue
		}
		name := memberName(child, file.Text)
		if name == "" {
			continue
		}
		msym, ok := a.members[parent][name]
		if !ok {
			msym = &facade.Symbol{Name: name, File: file, Declarations: []*sitter.Node{child}}
			a.members[parent][name] = msym
		} else {
			msym.Declarations = append(msym.Declarations, child)
		}
		symHandle := a.ensureMemberSymbol(msym)
		a.attach(msym, symHandle, child, parent)
	}
}

// ensureMemberSymbol is EnsureSymbol for synthetic member symbols: the same
// *facade.Symbol pointer is reused across repeated visits (overloads), so
// astgraph.Graph.EnsureSymbol's pointer-identity dedup applies unchanged.
func (a *Analyzer) ensureMemberSymbol(sym *facade.Symbol) astgraph.SymbolHandle {
	if h, ok := a.handle[sym]; ok {
		return h
	}
	h := a.g.EnsureSymbol(sym)
	a.handle[sym] = h
	return h
}

// walkReferences scans a declaration's signature-relevant syntax — but not
// executable statement bodies, which fall outside the public API surface —
// for type_identifier references, resolves each through the façade, and
// records a reference edge for any that resolve to another tracked symbol.
// Unresolved identifiers are dropped with a diag.CodeUnresolvedReference
// warning, per spec.md §4.1's failure mode.
func (a *Analyzer) walkReferences(node *sitter.Node, file *facade.SourceFile, declHandle astgraph.DeclHandle, kind astgraph.DeclKind) {
	cursor := sitter.NewTreeCursor(node)
	defer cursor.Close()
	a.walkCursor(cursor, file, declHandle, node)
}

func (a *Analyzer) walkCursor(cursor *sitter.TreeCursor, file *facade.SourceFile, declHandle astgraph.DeclHandle, root *sitter.Node) {
	n := cursor.CurrentNode()

	switch n.Type() {
	case "statement_block":
		// Method/function bodies are implementation, not public surface.
		return
	case "type_identifier", "nested_type_identifier":
		a.resolveReference(n, file, declHandle)
	}

	if cursor.GoToFirstChild() {
		for {
			a.walkCursor(cursor, file, declHandle, root)
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}
}

func (a *Analyzer) resolveReference(n *sitter.Node, file *facade.SourceFile, declHandle astgraph.DeclHandle) {
	leaf := n
	if n.Type() == "nested_type_identifier" && n.NamedChildCount() > 0 {
		leaf = n.NamedChild(0)
	}
	sym, ok := a.fa.SymbolAt(file.Path, leaf)
	if !ok {
		a.diags.Warnf(diag.CodeUnresolvedReference, file.Path,
			int(leaf.StartPoint().Row)+1, int(leaf.StartPoint().Column)+1, "",
			"unresolved type reference %q", file.NodeText(leaf))
		return
	}
	target := a.ensureSymbol(sym)
	a.g.AddReference(declHandle, target)
}
