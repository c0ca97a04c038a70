package astgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/apisurface/internal/facade"
)

func TestEnsureSymbol_DedupesByFacadeIdentity(t *testing.T) {
	g := New()
	src := &facade.Symbol{Name: "Widget"}

	h1 := g.EnsureSymbol(src)
	h2 := g.EnsureSymbol(src)
	require.Equal(t, h1, h2)
	require.Len(t, g.AllSymbols(), 1)

	other := &facade.Symbol{Name: "Widget"}
	h3 := g.EnsureSymbol(other)
	require.NotEqual(t, h1, h3)
}

func TestAddDeclaration_ParentChildNesting(t *testing.T) {
	g := New()
	class := g.EnsureSymbol(&facade.Symbol{Name: "WidgetBox"})
	method := g.EnsureSymbol(&facade.Symbol{Name: "WidgetBox.render"})

	classDecl := g.AddDeclaration(class, KindUnknown, nil, nil, NoDecl)
	methodDecl := g.AddDeclaration(method, KindUnknown, nil, nil, classDecl)

	require.Equal(t, []DeclHandle{methodDecl}, g.Declaration(classDecl).Children())
	require.Equal(t, classDecl, g.Declaration(methodDecl).Parent)
	require.True(t, g.IsAncestor(classDecl, methodDecl))
	require.True(t, g.IsAncestor(classDecl, classDecl))
	require.False(t, g.IsAncestor(methodDecl, classDecl))
}

func TestAddReference_RejectsSelfReference(t *testing.T) {
	g := New()
	sym := g.EnsureSymbol(&facade.Symbol{Name: "Node"})
	decl := g.AddDeclaration(sym, KindUnknown, nil, nil, NoDecl)

	added := g.AddReference(decl, sym)
	require.False(t, added)
	require.Empty(t, g.Declaration(decl).ReferencedSymbols())
}

func TestAddReference_RejectsAncestorReference(t *testing.T) {
	g := New()
	class := g.EnsureSymbol(&facade.Symbol{Name: "WidgetBox"})
	classDecl := g.AddDeclaration(class, KindUnknown, nil, nil, NoDecl)
	method := g.EnsureSymbol(&facade.Symbol{Name: "WidgetBox.render"})
	methodDecl := g.AddDeclaration(method, KindUnknown, nil, nil, classDecl)

	// A member referencing its own enclosing class is not a new edge: the
	// containment edge already implies it.
	added := g.AddReference(methodDecl, class)
	require.False(t, added)
}

func TestAddReference_DedupesByIdentity(t *testing.T) {
	g := New()
	a := g.EnsureSymbol(&facade.Symbol{Name: "A"})
	b := g.EnsureSymbol(&facade.Symbol{Name: "B"})
	declA := g.AddDeclaration(a, KindUnknown, nil, nil, NoDecl)

	first := g.AddReference(declA, b)
	second := g.AddReference(declA, b)
	require.True(t, first)
	require.False(t, second)
	require.Equal(t, []SymbolHandle{b}, g.Declaration(declA).ReferencedSymbols())
}

func TestAddReference_AlreadyRecordedOnAncestorIsRedundant(t *testing.T) {
	g := New()
	outer := g.EnsureSymbol(&facade.Symbol{Name: "Outer"})
	inner := g.EnsureSymbol(&facade.Symbol{Name: "Outer.inner"})
	target := g.EnsureSymbol(&facade.Symbol{Name: "Target"})

	outerDecl := g.AddDeclaration(outer, KindUnknown, nil, nil, NoDecl)
	innerDecl := g.AddDeclaration(inner, KindUnknown, nil, nil, outerDecl)

	require.True(t, g.AddReference(outerDecl, target))
	require.False(t, g.AddReference(innerDecl, target))
}

func TestMarkAnalyzed_FreezesGraphAndSymbols(t *testing.T) {
	g := New()
	sym := g.EnsureSymbol(&facade.Symbol{Name: "A"})
	g.AddDeclaration(sym, KindUnknown, nil, nil, NoDecl)

	require.False(t, g.Symbol(sym).Analyzed())
	g.MarkAnalyzed()
	require.True(t, g.Analyzed())
	require.True(t, g.Symbol(sym).Analyzed())

	require.Panics(t, func() {
		g.AddDeclaration(sym, KindUnknown, nil, nil, NoDecl)
	})
}

func TestForEachDeclarationRecursive_VisitsPreOrder(t *testing.T) {
	g := New()
	root := g.EnsureSymbol(&facade.Symbol{Name: "Root"})
	child := g.EnsureSymbol(&facade.Symbol{Name: "Root.child"})
	grandchild := g.EnsureSymbol(&facade.Symbol{Name: "Root.child.grandchild"})

	rootDecl := g.AddDeclaration(root, KindUnknown, nil, nil, NoDecl)
	childDecl := g.AddDeclaration(child, KindUnknown, nil, nil, rootDecl)
	grandchildDecl := g.AddDeclaration(grandchild, KindUnknown, nil, nil, childDecl)

	var visited []DeclHandle
	g.ForEachDeclarationRecursive(rootDecl, func(h DeclHandle) {
		visited = append(visited, h)
	})
	require.Equal(t, []DeclHandle{rootDecl, childDecl, grandchildDecl}, visited)
}

func TestDump_IsDeterministic(t *testing.T) {
	g := New()
	a := g.EnsureSymbol(&facade.Symbol{Name: "A"})
	b := g.EnsureSymbol(&facade.Symbol{Name: "B"})
	declA := g.AddDeclaration(a, KindUnknown, nil, nil, NoDecl)
	g.AddDeclaration(b, KindUnknown, nil, nil, NoDecl)
	g.AddReference(declA, b)

	require.Equal(t, g.Dump(), g.Dump())
	require.Contains(t, g.Dump(), "A (refs=1)")
	require.Contains(t, g.Dump(), "B (refs=0)")
}
