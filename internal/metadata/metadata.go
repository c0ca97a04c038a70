// Package metadata is the Metadata Pass (C5): parses each declaration's
// leading doc comment against the recognized tag vocabulary, resolves each
// symbol's effective release tag with ancestor inheritance, and reports the
// semantic warnings spec.md §4.5 names. Computation is lazy and memoized
// per declaration/symbol handle (spec.md §9's "lazy memoized metadata"
// design note): value-typed records in a map keyed by handle, no hidden
// mutable fields on the graph nodes themselves.
package metadata

import (
	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/diag"
)

// DeclarationMetadata is the per-AstDeclaration record spec.md §3 defines.
type DeclarationMetadata struct {
	DocComment         string
	HasDocComment      bool
	IsSealed           bool
	IsVirtual          bool
	IsOverride         bool
	IsEventProperty    bool
	IsPreapproved      bool
	NeedsDocumentation bool
	ReleaseTag         ReleaseTag
	BlockTags          map[string][]string
}

// SymbolMetadata is the per-AstSymbol record spec.md §3 defines.
type SymbolMetadata struct {
	ReleaseTag             ReleaseTag
	ReleaseTagSameAsParent bool
}

// Pass computes and memoizes Declaration/SymbolMetadata, and reports
// warnings into a shared diag.Bag as a side effect of first computation.
// Grounded on config/config.go's Validate() shape: return a set of
// structured problems rather than the first error, applied here to
// semantic warnings instead of config validation.
type Pass struct {
	diags *diag.Bag

	decls map[astgraph.DeclHandle]*DeclarationMetadata
	syms  map[astgraph.SymbolHandle]*SymbolMetadata
}

// New creates a Pass reporting warnings into diags.
func New(diags *diag.Bag) *Pass {
	return &Pass{
		diags: diags,
		decls: make(map[astgraph.DeclHandle]*DeclarationMetadata),
		syms:  make(map[astgraph.SymbolHandle]*SymbolMetadata),
	}
}

// FetchDeclaration returns the memoized DeclarationMetadata for d,
// computing it on first access.
func (p *Pass) FetchDeclaration(g *astgraph.Graph, d astgraph.DeclHandle) *DeclarationMetadata {
	if m, ok := p.decls[d]; ok {
		return m
	}
	m := p.computeDeclaration(g, d)
	p.decls[d] = m
	return m
}

// FetchSymbol returns the memoized SymbolMetadata for sym, computing it
// (and every declaration's metadata that feeds it) on first access.
func (p *Pass) FetchSymbol(g *astgraph.Graph, sym astgraph.SymbolHandle) *SymbolMetadata {
	if m, ok := p.syms[sym]; ok {
		return m
	}
	m := p.computeSymbol(g, sym)
	p.syms[sym] = m
	return m
}

func (p *Pass) computeDeclaration(g *astgraph.Graph, d astgraph.DeclHandle) *DeclarationMetadata {
	decl := g.Declaration(d)
	m := &DeclarationMetadata{BlockTags: make(map[string][]string)}

	comment := leadingComment(decl.Node)
	var dc docComment
	if comment != nil {
		m.HasDocComment = true
		text := decl.File.NodeText(comment)
		m.DocComment = text
		dc = parseDocComment([]byte(text))
		m.BlockTags = dc.blocks
	}

	m.IsSealed = dc.modifiers["sealed"]
	m.IsVirtual = dc.modifiers["virtual"]
	m.IsOverride = dc.modifiers["override"]
	m.IsEventProperty = dc.modifiers["eventProperty"]
	m.IsPreapproved = dc.modifiers["preapproved"]

	if tag, ok := declaredReleaseTag(dc); ok {
		m.ReleaseTag = tag
	}

	if m.IsOverride && !overrideAllowed(decl.Kind) {
		p.warnf(decl, diag.CodeInvalidOverride, "@override is not valid on a %s declaration", kindLabel(decl.Kind))
	}
	if m.IsVirtual && !virtualAllowed(decl.Kind) {
		p.warnf(decl, diag.CodeInvalidVirtual, "@virtual is not valid on a %s declaration", kindLabel(decl.Kind))
	}

	m.NeedsDocumentation = !(undocumentedByPolicy(g, d) || dc.hasSummary || dc.modifiers["internal"])

	return m
}

// declaredReleaseTag returns the single release-tag modifier present on one
// declaration's doc comment, if exactly one appears.
func declaredReleaseTag(dc docComment) (ReleaseTag, bool) {
	found := TagNone
	count := 0
	for name, tag := range releaseTagModifiers {
		if dc.modifiers[name] {
			found = tag
			count++
		}
	}
	return found, count == 1
}

func (p *Pass) computeSymbol(g *astgraph.Graph, sym astgraph.SymbolHandle) *SymbolMetadata {
	decls := g.Symbol(sym).Declarations()

	tags := make(map[ReleaseTag]bool)
	anyDeclared := false
	for _, d := range decls {
		dm := p.FetchDeclaration(g, d)
		if dm.ReleaseTag != TagNone {
			tags[dm.ReleaseTag] = true
			anyDeclared = true
		}
	}

	m := &SymbolMetadata{}
	switch {
	case len(tags) == 1:
		for t := range tags {
			m.ReleaseTag = t
		}
	case len(tags) > 1:
		m.ReleaseTag = TagPublic
		if len(decls) > 0 {
			p.warnf(g.Declaration(decls[0]), diag.CodeIncompatibleReleaseTag,
				"declarations of %q carry inconsistent release tags", g.Symbol(sym).LocalName)
		}
	case !anyDeclared:
		if parent, ok := parentSymbolReleaseTag(g, p, sym); ok {
			m.ReleaseTag = parent.ReleaseTag
			m.ReleaseTagSameAsParent = true
		} else {
			m.ReleaseTag = TagNone
			if len(decls) > 0 {
				p.warnf(g.Declaration(decls[0]), diag.CodeMissingReleaseTag,
					"%q has no release tag and no enclosing declaration to inherit one from", g.Symbol(sym).LocalName)
			}
		}
	}

	p.checkTypeLeaks(g, sym, m.ReleaseTag, decls)
	return m
}

// parentSymbolReleaseTag resolves the release tag a symbol should inherit
// from its enclosing declaration's symbol, per spec.md §4.5's inheritance
// rule.
func parentSymbolReleaseTag(g *astgraph.Graph, p *Pass, sym astgraph.SymbolHandle) (*SymbolMetadata, bool) {
	decls := g.Symbol(sym).Declarations()
	if len(decls) == 0 {
		return nil, false
	}
	parentDecl := g.Declaration(decls[0]).Parent
	if parentDecl == astgraph.NoDecl {
		return nil, false
	}
	parentSym := g.Declaration(parentDecl).Symbol
	return p.FetchSymbol(g, parentSym), true
}

// checkTypeLeaks reports a type-leak warning for each referenced symbol
// whose release tag is strictly less public than the referencing
// declaration's own effective tag.
func (p *Pass) checkTypeLeaks(g *astgraph.Graph, sym astgraph.SymbolHandle, ownTag ReleaseTag, decls []astgraph.DeclHandle) {
	for _, d := range decls {
		decl := g.Declaration(d)
		for _, ref := range decl.ReferencedSymbols() {
			refMeta := p.FetchSymbol(g, ref)
			if ownTag.MorePublicThan(refMeta.ReleaseTag) {
				p.warnf(decl, diag.CodeTypeLeak,
					"%q (tag %s) references %q (tag %s), which is less public",
					g.Symbol(sym).LocalName, ownTag, g.Symbol(ref).LocalName, refMeta.ReleaseTag)
			}
		}
	}
}

func (p *Pass) warnf(decl *astgraph.AstDeclaration, code diag.Code, format string, args ...any) {
	file := ""
	line, col := 0, 0
	if decl.File != nil {
		file = decl.File.Path
	}
	if decl.Node != nil {
		line = int(decl.Node.StartPoint().Row) + 1
		col = int(decl.Node.StartPoint().Column) + 1
	}
	p.diags.Warnf(code, file, line, col, "", format, args...)
}

// undocumentedByPolicy implements spec.md §4.5's documentation-exemption
// list: constructors, enum members, non-first overload signatures, and
// merged-namespace re-declarations never require their own doc comment.
func undocumentedByPolicy(g *astgraph.Graph, d astgraph.DeclHandle) bool {
	decl := g.Declaration(d)
	switch decl.Kind {
	case astgraph.KindConstructor, astgraph.KindEnumMember:
		return true
	case astgraph.KindFunction, astgraph.KindNamespace:
		decls := g.Symbol(decl.Symbol).Declarations()
		for i, other := range decls {
			if other == d {
				return i > 0
			}
		}
	}
	return false
}

func overrideAllowed(k astgraph.DeclKind) bool {
	return k == astgraph.KindMethod || k == astgraph.KindProperty
}

func virtualAllowed(k astgraph.DeclKind) bool {
	return k == astgraph.KindMethod || k == astgraph.KindProperty
}

func kindLabel(k astgraph.DeclKind) string {
	switch k {
	case astgraph.KindClass:
		return "class"
	case astgraph.KindInterface:
		return "interface"
	case astgraph.KindEnum:
		return "enum"
	case astgraph.KindNamespace:
		return "namespace"
	case astgraph.KindFunction:
		return "function"
	case astgraph.KindTypeAlias:
		return "type alias"
	case astgraph.KindVariable:
		return "variable"
	case astgraph.KindMethod:
		return "method"
	case astgraph.KindConstructor:
		return "constructor"
	case astgraph.KindProperty:
		return "property"
	case astgraph.KindIndexSignature:
		return "index signature"
	case astgraph.KindCallSignature:
		return "call signature"
	case astgraph.KindEnumMember:
		return "enum member"
	default:
		return "declaration"
	}
}
