// Package spantree is the Span Tree & Rewriter (C6): a whitespace-preserving
// text-rewriting layer over a tree-sitter syntax node. Every character of
// the wrapped node's extent (plus trailing trivia) is accounted for exactly
// once across four segments — prefix, children, suffix, separator — so that
// targeted modifications (skip a node, rename an identifier, reorder
// children) can be applied without hand-rolling string surgery.
package spantree

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Span wraps one syntax node and the full set of its children (including
// anonymous/punctuation tokens — tree-sitter's node.Child, not
// node.NamedChild), so individual keywords like `export`/`default` can be
// independently targeted by a Modification.
type Span struct {
	node   *sitter.Node
	buffer []byte

	children []*Span

	prefixStart, prefixEnd int
	suffixStart, suffixEnd int
	sepStart, sepEnd       int

	Mod Modification
}

// Modification carries the mutable overrides spec.md §4.6 describes.
// SortKey == nil means "no key" — such children retain relative order and
// sort after every keyed child (spec.md §4.6 "entries with missing keys
// preserve order and are emitted last").
type Modification struct {
	PrefixOverride     *string
	SuffixOverride     *string
	SeparatorOverride  *string
	OmitChildren       bool
	OmitSeparatorAfter bool
	SortChildren       bool
	SortKey            *string
}

// Node returns the wrapped syntax node.
func (s *Span) Node() *sitter.Node { return s.node }

// Children returns the span's child spans, in original document order.
func (s *Span) Children() []*Span { return s.children }

// Start is the byte offset of the node's first token.
func (s *Span) Start() int { return int(s.node.StartByte()) }

// End is the byte offset one past the node's last token (before any
// trailing separator trivia).
func (s *Span) End() int { return int(s.node.EndByte()) }

// Build constructs a Span tree rooted at node, covering the node's own
// extent plus any trailing separator trivia pushed down from ancestors.
// Call Build once per top-level span you intend to rewrite (typically once
// per AstDeclaration's node); it does not walk outside node's own subtree.
func Build(node *sitter.Node, buffer []byte) *Span {
	root := build(node, buffer)
	assignSeparators(root)
	return root
}

func build(node *sitter.Node, buffer []byte) *Span {
	s := &Span{node: node, buffer: buffer}
	end := int(node.EndByte())
	// Default every span's separator to a zero-width slice at its own end;
	// assignSeparators overwrites this wherever a real trailing gap exists.
	s.sepStart, s.sepEnd = end, end

	n := int(node.ChildCount())
	if n == 0 {
		s.prefixStart, s.prefixEnd = int(node.StartByte()), end
		s.suffixStart, s.suffixEnd = end, end
		return s
	}

	s.prefixStart, s.prefixEnd = int(node.StartByte()), int(node.Child(0).StartByte())
	s.children = make([]*Span, 0, n)
	for i := 0; i < n; i++ {
		s.children = append(s.children, build(node.Child(i), buffer))
	}
	last := node.Child(n - 1)
	s.suffixStart, s.suffixEnd = int(last.EndByte()), end
	return s
}

// assignSeparators walks the tree once, assigning each inter-sibling gap to
// the deepest preceding span with no non-empty suffix — spec.md §4.6's
// construction rule for the separator segment.
func assignSeparators(s *Span) {
	for i := 0; i+1 < len(s.children); i++ {
		gapStart := s.children[i].End()
		gapEnd := s.children[i+1].Start()
		if gapEnd > gapStart {
			assignGap(s.children[i], gapStart, gapEnd)
		}
	}
	for _, c := range s.children {
		assignSeparators(c)
	}
}

func assignGap(s *Span, start, end int) {
	cur := s
	for len(cur.children) > 0 && cur.suffixStart == cur.suffixEnd {
		cur = cur.children[len(cur.children)-1]
	}
	cur.sepStart, cur.sepEnd = start, end
}

// SetTrailingSeparator assigns the gap between this span's own end and
// limit (typically the start of the next sibling one level up, or the end
// of the source buffer for a true document root) as this span's separator,
// pushed down the same way assignGap does. Callers building a Span for a
// single top-level declaration (not the whole file) call this once after
// Build to capture the trivia trailing that declaration.
func (s *Span) SetTrailingSeparator(limit int) {
	if limit > s.End() {
		assignGap(s, s.End(), limit)
	}
}

// NaturalPrefixText returns the span's unmodified prefix text, ignoring any
// PrefixOverride — callers compose a new override on top of the original
// text with this (e.g. prepending an injected comment line).
func (s *Span) NaturalPrefixText() string {
	return string(s.buffer[s.prefixStart:s.prefixEnd])
}

// GetText reproduces this span's exact original source text: prefix + every
// child's GetText + suffix + separator (spec.md §8 property 1).
func (s *Span) GetText() string {
	var sb strings.Builder
	s.writeText(&sb)
	return sb.String()
}

func (s *Span) writeText(sb *strings.Builder) {
	sb.Write(s.buffer[s.prefixStart:s.prefixEnd])
	for _, c := range s.children {
		c.writeText(sb)
	}
	sb.Write(s.buffer[s.suffixStart:s.suffixEnd])
	sb.Write(s.buffer[s.sepStart:s.sepEnd])
}

// Coverage returns the four (start, end) byte intervals this span accounts
// for, in emission order: prefix, the combined range spanned by all
// children, suffix, separator. Adjacent intervals are contiguous — each
// interval's end equals the next interval's start — used by tests asserting
// spec.md §8 property 2 (no gap, no overlap).
func (s *Span) Coverage() [4][2]int {
	childrenStart, childrenEnd := s.prefixEnd, s.prefixEnd
	if len(s.children) > 0 {
		childrenStart = s.children[0].prefixStart
		childrenEnd = s.children[len(s.children)-1].sepEnd
	}
	suffix := [2]int{s.suffixStart, s.suffixEnd}
	sep := [2]int{s.sepStart, s.sepEnd}
	if childrenEnd > suffix[0] {
		// A trailing gap pushed down into the last child already runs past
		// this span's end; its own suffix and separator are empty there.
		suffix = [2]int{childrenEnd, childrenEnd}
		sep = [2]int{childrenEnd, childrenEnd}
	}
	return [4][2]int{
		{s.prefixStart, s.prefixEnd},
		{childrenStart, childrenEnd},
		suffix,
		sep,
	}
}

// Extent returns [start, end) of the separator-inclusive range this span
// covers, including a trailing gap pushed down into its last descendant.
func (s *Span) Extent() (int, int) {
	cov := s.Coverage()
	return cov[0][0], cov[3][1]
}

// LastInnerSeparator returns this span's own separator text if non-empty,
// else recursively that of its last child (empty string if childless) —
// spec.md §4.6's definition used when sortChildren reassigns trailing
// separators after reordering.
func (s *Span) LastInnerSeparator() string {
	_, text := s.lastInnerSeparatorSpan()
	return text
}

// lastInnerSeparatorSpan returns the span that actually owns the "last
// inner separator" text (which may be a deeply nested descendant, not s
// itself) alongside that text, so callers can both read and suppress it.
func (s *Span) lastInnerSeparatorSpan() (*Span, string) {
	if s.sepEnd > s.sepStart {
		return s, string(s.buffer[s.sepStart:s.sepEnd])
	}
	if len(s.children) == 0 {
		return s, ""
	}
	return s.children[len(s.children)-1].lastInnerSeparatorSpan()
}
