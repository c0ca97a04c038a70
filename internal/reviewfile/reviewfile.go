// Package reviewfile is the Review File Generator (C7): it turns collected
// entities and their metadata into the canonical, human-reviewable review
// file — one AEDoc-commented block per exported declaration, span-rewritten
// from the original source rather than re-synthesized from scratch, so
// formatting stays close to what the author wrote.
package reviewfile

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/collector"
	"github.com/c360studio/apisurface/internal/facade"
	"github.com/c360studio/apisurface/internal/spantree"
)

// packageDocMarker is appended when the package carries no
// @packageDocumentation comment, per spec.md §4.7.
const packageDocMarker = "// (No @packageDocumentation comment for this package)"

// Generator renders the review file for one analyzed package.
type Generator struct {
	fa *facade.Facade
	g  *astgraph.Graph
	c  *collector.Collector
}

// New creates a Generator over an analyzed Graph and a Collector that has
// already admitted every entity it will render.
func New(fa *facade.Facade, g *astgraph.Graph, c *collector.Collector) *Generator {
	return &Generator{fa: fa, g: g, c: c}
}

// Generate renders the full review file text. hasPackageDocumentation
// reports whether the package's entry module carries a
// @packageDocumentation comment; when false, a trailing marker comment is
// appended.
func (r *Generator) Generate(hasPackageDocumentation bool) string {
	var blocks []string
	for _, e := range r.c.Entities() {
		if !e.Exported {
			continue
		}
		sym := r.g.Symbol(e.Symbol)
		for _, d := range sym.Declarations() {
			blocks = append(blocks, r.renderTopLevel(e, d))
		}
	}

	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(b)
	}
	if len(blocks) > 0 {
		sb.WriteString("\n\n")
	}
	if !hasPackageDocumentation {
		sb.WriteString(packageDocMarker + "\n")
	}
	return sb.String()
}

// RenderedBlockCount returns the number of top-level span-rewritten blocks
// Generate renders — one per declaration of each exported entity, matching
// Generate's own loop. Exposed so a caller can report span-rewrite volume
// (e.g. telemetry) without re-parsing Generate's output.
func (r *Generator) RenderedBlockCount() int {
	n := 0
	for _, e := range r.c.Entities() {
		if !e.Exported {
			continue
		}
		n += len(r.g.Symbol(e.Symbol).Declarations())
	}
	return n
}

// renderTopLevel renders one (entity, declaration) block: the AEDoc
// synopsis line followed by the declaration's span-rewritten text.
func (r *Generator) renderTopLevel(e *collector.Entity, d astgraph.DeclHandle) string {
	decl := r.g.Declaration(d)
	dm := r.c.FetchDeclarationMetadata(d)
	sm := r.c.FetchSymbolMetadata(e.Symbol)

	span := spantree.Build(decl.Node, decl.File.Text)
	r.applyModifications(span, d, e.NameForEmit)

	body := span.GetModifiedText()
	synopsis := Synopsis(dm, sm)
	if synopsis == "" {
		return body
	}
	return synopsis + "\n" + body
}

// applyModifications implements spec.md §4.7's kind-specific modification
// table against the span rooted at decl's own node, then recurses into
// nested API declarations to inject their own synopsis comments.
func (r *Generator) applyModifications(span *spantree.Span, d astgraph.DeclHandle, nameForEmit string) {
	decl := r.g.Declaration(d)

	r.renameDeclaredName(span, decl, nameForEmit)
	r.renameTypeReferences(span, decl)

	if decl.Kind == astgraph.KindVariable && decl.Parent == astgraph.NoDecl {
		applyVariableDeclarePrefix(span, decl)
	}

	if isContainerKind(decl.Kind) {
		r.sortAndInjectChildren(span, d)
	}
}

func isContainerKind(k astgraph.DeclKind) bool {
	switch k {
	case astgraph.KindClass, astgraph.KindInterface, astgraph.KindEnum, astgraph.KindNamespace:
		return true
	default:
		return false
	}
}

// renameDeclaredName replaces the declaration's own name token with
// nameForEmit, so a collision-suffixed entity (spec.md §4.4's "_2", "_3", …
// scheme) emits its resolved name rather than the literal source text.
func (r *Generator) renameDeclaredName(span *spantree.Span, decl *astgraph.AstDeclaration, nameForEmit string) {
	nameNode := decl.Node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	nameSpan := findSpanForNode(span, nameNode)
	if nameSpan == nil {
		return
	}
	override := nameForEmit
	nameSpan.Mod.PrefixOverride = &override
}

// renameTypeReferences walks every type_identifier / nested_type_identifier
// in span and, where it resolves to a collected entity, replaces it with
// that entity's nameForEmit — spec.md §4.7's "identifier that resolves to a
// known entity" rule.
func (r *Generator) renameTypeReferences(span *spantree.Span, decl *astgraph.AstDeclaration) {
	var walk func(*spantree.Span)
	walk = func(s *spantree.Span) {
		switch s.Node().Type() {
		case "type_identifier", "nested_type_identifier":
			if e := r.resolveEntity(decl, s.Node()); e != nil && e.NameForEmit != "" {
				override := e.NameForEmit
				s.Mod.PrefixOverride = &override
				return // do not descend into a span we just replaced wholesale
			}
		}
		for _, c := range s.Children() {
			walk(c)
		}
	}
	for _, c := range span.Children() {
		walk(c)
	}
}

func (r *Generator) resolveEntity(decl *astgraph.AstDeclaration, n *sitter.Node) *collector.Entity {
	sym, ok := r.fa.SymbolAt(decl.File.Path, n)
	if !ok {
		return nil
	}
	handle := r.g.EnsureSymbol(sym)
	e, ok := r.c.TryGetEntityBySymbol(handle)
	if !ok {
		return nil
	}
	return e
}

// sortAndInjectChildren applies sortChildren to the container's body block
// (keyed by getSortKeyIgnoringUnderscore on each nested declaration's
// localName) and injects a synopsis comment ahead of every nested API
// declaration, re-indented to the child's own source column.
func (r *Generator) sortAndInjectChildren(span *spantree.Span, d astgraph.DeclHandle) {
	decl := r.g.Declaration(d)
	body := decl.Node.ChildByFieldName("body")
	if body == nil {
		return
	}
	bodySpan := findSpanForNode(span, body)
	if bodySpan == nil {
		return
	}

	childByNode := make(map[*sitter.Node]astgraph.DeclHandle)
	for _, childHandle := range decl.Children() {
		childByNode[r.g.Declaration(childHandle).Node] = childHandle
	}

	for _, c := range bodySpan.Children() {
		childHandle, ok := childByNode[c.Node()]
		if !ok {
			continue
		}
		childDecl := r.g.Declaration(childHandle)
		sortKey := collector.GetSortKeyIgnoringUnderscore(r.g.Symbol(childDecl.Symbol).LocalName)
		c.Mod.SortKey = &sortKey

		r.injectChildSynopsis(c, childHandle)
		r.applyModifications(c, childHandle, r.childNameForEmit(childDecl))
	}
	bodySpan.Mod.SortChildren = true
}

func (r *Generator) childNameForEmit(decl *astgraph.AstDeclaration) string {
	if e, ok := r.c.TryGetEntityBySymbol(decl.Symbol); ok {
		return e.NameForEmit
	}
	return r.g.Symbol(decl.Symbol).LocalName
}

// injectChildSynopsis prepends a re-indented AEDoc synopsis line to a
// nested declaration's span by overriding its prefix (prefix text always
// prints before children, regardless of whether the span itself has any —
// spec.md §4.6 emission order).
func (r *Generator) injectChildSynopsis(span *spantree.Span, d astgraph.DeclHandle) {
	decl := r.g.Declaration(d)
	dm := r.c.FetchDeclarationMetadata(d)
	sm := r.c.FetchSymbolMetadata(decl.Symbol)
	synopsis := Synopsis(dm, sm)
	if synopsis == "" {
		return
	}

	indent := strings.Repeat(" ", int(decl.Node.StartPoint().Column))
	injected := synopsis + "\n" + indent
	span.Mod.PrefixOverride = prependPrefix(span, injected)
}

// prependPrefix returns a PrefixOverride value equal to extra followed by
// the span's own natural (unmodified) prefix text.
func prependPrefix(span *spantree.Span, extra string) *string {
	natural := span.NaturalPrefixText()
	combined := extra + natural
	return &combined
}

func findSpanForNode(s *spantree.Span, target *sitter.Node) *spantree.Span {
	if s.Node() == target {
		return s
	}
	for _, c := range s.Children() {
		if found := findSpanForNode(c, target); found != nil {
			return found
		}
	}
	return nil
}

// applyVariableDeclarePrefix implements spec.md §4.7's top-level
// VariableDeclaration row: a `declare <var|let|const> ` prefix literal from
// source, and a `;` suffix, applied only when the declaration isn't already
// written with `declare` (spec.md §9 open-question resolution, see
// DESIGN.md).
func applyVariableDeclarePrefix(span *spantree.Span, decl *astgraph.AstDeclaration) {
	if !hasDeclarationListKeyword(decl.Node) {
		return
	}
	// The node's own prefix is empty by construction (full child
	// enumeration: the keyword itself is the first child span, not part of
	// this node's prefix slot) — inject "declare " ahead of it without
	// touching the keyword child that renders naturally after.
	already := len(span.Children()) > 0 && strings.HasPrefix(span.Children()[0].GetText(), "declare")
	if already {
		return
	}
	prefix := "declare "
	span.Mod.PrefixOverride = &prefix

	suffix := ";"
	span.Mod.SuffixOverride = &suffix

	// Blank the source's own trailing semicolon child, if present, to avoid
	// emitting it twice now that the suffix override supplies one.
	children := span.Children()
	if len(children) > 0 {
		last := children[len(children)-1]
		if last.Node().Type() == ";" {
			blank := ""
			last.Mod.PrefixOverride = &blank
		}
	}
}

// hasDeclarationListKeyword reports whether n is a var/let/const
// declaration statement, unwrapping an ambient_declaration (`declare ...`)
// wrapper to the declaration it carries.
func hasDeclarationListKeyword(n *sitter.Node) bool {
	if n.Type() == "ambient_declaration" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if hasDeclarationListKeyword(n.NamedChild(i)) {
				return true
			}
		}
		return false
	}
	return n.Type() == "lexical_declaration" || n.Type() == "variable_declaration"
}

// AreEquivalentApiFileContents reports whether a and b are equivalent per
// spec.md §4.7: collapsing every run of whitespace (space, tab, CR, LF) to
// a single space and trimming leading and trailing whitespace yields
// identical strings.
func AreEquivalentApiFileContents(a, b string) bool {
	return collapseWhitespace(a) == collapseWhitespace(b)
}

func collapseWhitespace(s string) string {
	var sb strings.Builder
	inRun := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
			if !inRun {
				sb.WriteByte(' ')
				inRun = true
			}
		default:
			sb.WriteRune(r)
			inRun = false
		}
	}
	return strings.TrimSpace(sb.String())
}
