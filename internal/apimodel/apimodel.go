// Package apimodel is the Api Model Builder (C8): it walks collected
// entities and their declaration trees into a documented-item tree —
// Package at the root, one EntryPoint below it, then every admitted
// entity and its nested members — and serializes that tree as JSON for
// downstream documentation generators.
package apimodel

import (
	"encoding/json"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/collector"
	"github.com/c360studio/apisurface/internal/facade"
)

// Kind names one of the documented-item variants spec.md §4.8 lists.
// Variable is a supplement: the original api-extractor model carries an
// ApiVariable kind for top-level `export const`/`let` declarations that the
// distilled variant list omits (see DESIGN.md).
type Kind string

const (
	KindPackage              Kind = "package"
	KindEntryPoint           Kind = "entryPoint"
	KindClass                Kind = "class"
	KindInterface            Kind = "interface"
	KindNamespace            Kind = "namespace"
	KindMethod               Kind = "method"
	KindMethodSignature      Kind = "methodSignature"
	KindProperty             Kind = "property"
	KindPropertySignature    Kind = "propertySignature"
	KindFunction             Kind = "function"
	KindEnum                 Kind = "enum"
	KindEnumMember           Kind = "enumMember"
	KindConstructor          Kind = "constructor"
	KindConstructorSignature Kind = "constructorSignature"
	KindIndexSignature       Kind = "indexSignature"
	KindCallSignature        Kind = "callSignature"
	KindTypeAlias            Kind = "typeAlias"
	KindVariable             Kind = "variable"
)

// ExcerptToken is one ordered fragment of a declaration's rendered text —
// either a literal text run or a cross-reference to another item in the
// tree, per spec.md §6's "ordered span-derived fragments alternating
// literal text and canonical references" description.
type ExcerptToken struct {
	Kind               string `json:"kind"` // "text" or "reference"
	Text               string `json:"text"`
	CanonicalReference string `json:"canonicalReference,omitempty"`
}

// Item is one node of the documented-item tree. Container kinds
// (Package, EntryPoint, Class, Interface, Namespace, Enum) populate
// Members; every other kind leaves it nil.
type Item struct {
	Kind               Kind           `json:"kind"`
	Name               string         `json:"name"`
	CanonicalReference string         `json:"canonicalReference"`
	DocComment         string         `json:"docComment,omitempty"`
	ReleaseTag         string         `json:"releaseTag,omitempty"`
	ExcerptTokens      []ExcerptToken `json:"excerptTokens,omitempty"`
	Members            []*Item        `json:"members,omitempty"`
}

// MarshalIndent serializes the tree as indented JSON, the form the review
// file's companion api-model.json artifact is written in.
func (i *Item) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(i, "", "  ")
}

// Builder renders the Item tree for one analyzed package.
type Builder struct {
	fa *facade.Facade
	g  *astgraph.Graph
	c  *collector.Collector
}

// New creates a Builder over an analyzed Graph and a Collector that has
// already admitted every entity it will model.
func New(fa *facade.Facade, g *astgraph.Graph, c *collector.Collector) *Builder {
	return &Builder{fa: fa, g: g, c: c}
}

// Build renders the full tree: a root Package item named packageName,
// containing one EntryPoint item named entryPointName, containing one item
// per admitted entity in admission order (spec.md §5's ordering guarantee).
func (b *Builder) Build(packageName, entryPointName string) *Item {
	pkg := &Item{Kind: KindPackage, Name: packageName}
	pkg.CanonicalReference = containerReference("", packageName, KindPackage)

	entry := &Item{Kind: KindEntryPoint, Name: entryPointName}
	entry.CanonicalReference = containerReference(pkg.CanonicalReference, entryPointName, KindEntryPoint)
	pkg.Members = append(pkg.Members, entry)

	for _, e := range b.c.Entities() {
		entry.Members = append(entry.Members, b.buildEntityItem(e, entry.CanonicalReference)...)
	}
	return pkg
}

// buildEntityItem renders one admitted entity: one Item per declaration
// site (overloaded functions yield one Item per overload, sharing a name
// but distinguished by an overload index in their canonical reference).
func (b *Builder) buildEntityItem(e *collector.Entity, parentRef string) []*Item {
	sym := b.g.Symbol(e.Symbol)
	decls := sym.Declarations()
	items := make([]*Item, 0, len(decls))
	for i, d := range decls {
		kind := itemKind(b.g.Declaration(d).Kind)
		item := b.buildDeclItem(d, kind, e.NameForEmit, parentRef, i, len(decls))
		if i == 0 {
			b.c.SetCanonicalReference(e, item.CanonicalReference)
		}
		items = append(items, item)
	}
	return items
}

// buildDeclItem renders a single declaration site into an Item, recursing
// into its children when its kind is a container.
func (b *Builder) buildDeclItem(d astgraph.DeclHandle, kind Kind, name, parentRef string, overloadIndex, overloadCount int) *Item {
	decl := b.g.Declaration(d)
	dm := b.c.FetchDeclarationMetadata(d)
	sm := b.c.FetchSymbolMetadata(decl.Symbol)

	item := &Item{Kind: kind, Name: name}
	item.CanonicalReference = memberReference(parentRef, name, kind, overloadIndex, overloadCount)
	if dm.HasDocComment {
		item.DocComment = dm.DocComment
	}
	if tag := sm.ReleaseTag.String(); tag != "" {
		item.ReleaseTag = strings.TrimPrefix(tag, "@")
	}
	item.ExcerptTokens = b.excerptTokens(decl)

	if isContainerKind(kind) {
		item.Members = b.buildMemberItems(decl.Children(), item.CanonicalReference, kind)
	}
	return item
}

// buildMemberItems groups handles by symbol (first-occurrence order
// preserved, so overloaded signatures stay adjacent) and renders one Item
// group per symbol. parentKind decides whether a method/property/
// constructor member renders as its concrete variant (inside a class) or
// its Signature variant (inside an interface) — astgraph's DeclKind makes
// no such distinction itself, since the syntax node shape is identical
// either way.
func (b *Builder) buildMemberItems(handles []astgraph.DeclHandle, parentRef string, parentKind Kind) []*Item {
	order := make([]astgraph.SymbolHandle, 0, len(handles))
	groups := make(map[astgraph.SymbolHandle][]astgraph.DeclHandle)
	for _, h := range handles {
		sym := b.g.Declaration(h).Symbol
		if _, seen := groups[sym]; !seen {
			order = append(order, sym)
		}
		groups[sym] = append(groups[sym], h)
	}

	var items []*Item
	for _, sym := range order {
		group := groups[sym]
		name := b.g.Symbol(sym).LocalName
		for i, h := range group {
			kind := asSignatureIfInterface(itemKind(b.g.Declaration(h).Kind), parentKind)
			items = append(items, b.buildDeclItem(h, kind, name, parentRef, i, len(group)))
		}
	}
	return items
}

// asSignatureIfInterface converts a concrete member kind to its Signature
// counterpart when rendered inside an interface body.
func asSignatureIfInterface(kind, parentKind Kind) Kind {
	if parentKind != KindInterface {
		return kind
	}
	switch kind {
	case KindMethod:
		return KindMethodSignature
	case KindProperty:
		return KindPropertySignature
	case KindConstructor:
		return KindConstructorSignature
	default:
		return kind
	}
}

// excerptTokens walks decl's node in source order, splitting the text into
// literal runs and reference tokens wherever a type_identifier or
// nested_type_identifier resolves to another collected entity — the same
// resolution C7's renameTypeReferences performs, reused here to produce
// cross-links instead of rewritten text.
func (b *Builder) excerptTokens(decl *astgraph.AstDeclaration) []ExcerptToken {
	var tokens []ExcerptToken
	buf := decl.File.Text
	last := int(decl.Node.StartByte())

	flush := func(limit int) {
		if limit > last {
			tokens = append(tokens, ExcerptToken{Kind: "text", Text: string(buf[last:limit])})
			last = limit
		}
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "type_identifier", "nested_type_identifier":
			if ref, ok := b.resolveReference(decl, n); ok {
				flush(int(n.StartByte()))
				tokens = append(tokens, ExcerptToken{
					Kind:               "reference",
					Text:               decl.File.NodeText(n),
					CanonicalReference: ref,
				})
				last = int(n.EndByte())
				return
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(decl.Node)
	flush(int(decl.Node.EndByte()))
	return tokens
}

func (b *Builder) resolveReference(decl *astgraph.AstDeclaration, n *sitter.Node) (string, bool) {
	sym, ok := b.fa.SymbolAt(decl.File.Path, n)
	if !ok {
		return "", false
	}
	handle := b.g.EnsureSymbol(sym)
	e, ok := b.c.TryGetEntityBySymbol(handle)
	if !ok || e.CanonicalReference() == "" {
		return "", false
	}
	return e.CanonicalReference(), true
}

// containerReference composes the canonical reference for a container kind
// (Package, EntryPoint, Class, Interface, Namespace, Enum) — these carry
// their own kind tag rather than the generic "member" tag, per spec.md
// §4.8's `(scope/pkg:package).(name:namespace).(name:class)` example.
func containerReference(parentRef, name string, kind Kind) string {
	segment := fmt.Sprintf("(%s:%s)", name, kind)
	if parentRef == "" {
		return segment
	}
	return parentRef + "." + segment
}

// memberReference composes the canonical reference for any item directly
// contained in another item. Container kinds get their own kind tag;
// everything else gets the generic "member" tag, with an overload index
// suffix (api-extractor's own convention) when more than one declaration
// shares the name.
func memberReference(parentRef, name string, kind Kind, overloadIndex, overloadCount int) string {
	tag := "member"
	if isContainerKind(kind) {
		tag = string(kind)
	}
	segment := fmt.Sprintf("(%s:%s)", name, tag)
	if overloadCount > 1 {
		segment = fmt.Sprintf("(%s:%s(%d))", name, tag, overloadIndex+1)
	}
	return parentRef + "." + segment
}

func isContainerKind(k Kind) bool {
	switch k {
	case KindPackage, KindEntryPoint, KindClass, KindInterface, KindNamespace, KindEnum:
		return true
	default:
		return false
	}
}

// itemKind maps an astgraph.DeclKind onto its apimodel Kind. Members always
// map to the non-Signature variants (Method, Property, Constructor): the
// astgraph layer has no dedicated interface-member kinds, so
// asSignatureIfInterface switches interface members to the Signature
// variants based on the enclosing container's kind.
func itemKind(k astgraph.DeclKind) Kind {
	switch k {
	case astgraph.KindClass:
		return KindClass
	case astgraph.KindInterface:
		return KindInterface
	case astgraph.KindEnum:
		return KindEnum
	case astgraph.KindNamespace:
		return KindNamespace
	case astgraph.KindFunction:
		return KindFunction
	case astgraph.KindTypeAlias:
		return KindTypeAlias
	case astgraph.KindVariable:
		return KindVariable
	case astgraph.KindMethod:
		return KindMethod
	case astgraph.KindConstructor:
		return KindConstructor
	case astgraph.KindProperty:
		return KindProperty
	case astgraph.KindIndexSignature:
		return KindIndexSignature
	case astgraph.KindCallSignature:
		return KindCallSignature
	case astgraph.KindEnumMember:
		return KindEnumMember
	default:
		return KindVariable
	}
}
