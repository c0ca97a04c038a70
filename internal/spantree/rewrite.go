package spantree

import (
	"sort"
	"strings"
)

// GetModifiedText walks the span post-order, emitting prefix, then children
// (reordered if Mod.SortChildren is set, omitted entirely if
// Mod.OmitChildren is set), then suffix, then separator — applying each
// span's own Modification as it goes (spec.md §4.6).
func (s *Span) GetModifiedText() string {
	var sb strings.Builder
	s.writeModifiedText(&sb)
	return sb.String()
}

func (s *Span) writeModifiedText(sb *strings.Builder) {
	if s.Mod.PrefixOverride != nil {
		sb.WriteString(*s.Mod.PrefixOverride)
	} else {
		sb.Write(s.buffer[s.prefixStart:s.prefixEnd])
	}

	if !s.Mod.OmitChildren {
		s.writeChildren(sb)
	}

	if s.Mod.SuffixOverride != nil {
		sb.WriteString(*s.Mod.SuffixOverride)
	} else {
		sb.Write(s.buffer[s.suffixStart:s.suffixEnd])
	}

	if s.Mod.OmitSeparatorAfter {
		return
	}
	if s.Mod.SeparatorOverride != nil {
		sb.WriteString(*s.Mod.SeparatorOverride)
		return
	}
	sb.Write(s.buffer[s.sepStart:s.sepEnd])
}

func (s *Span) writeChildren(sb *strings.Builder) {
	children := s.children
	if s.Mod.SortChildren && len(children) >= 2 {
		children = sortedChildren(children)
	}
	for _, c := range children {
		c.writeModifiedText(sb)
	}
}

// sortedChildren stable-sorts by Mod.SortKey (children with no SortKey keep
// their relative order and sort after every keyed child), then reassigns
// trailing separators per spec.md §4.6: every span but the new last one
// gets the ORIGINAL first child's separator (the "ordinary" inter-item
// separator), and the new last one gets the original last child's
// separator (often different — e.g. no trailing comma, or a closing blank
// line) so reordering never changes the group's overall trailing
// whitespace.
func sortedChildren(children []*Span) []*Span {
	sorted := make([]*Span, len(children))
	copy(sorted, children)

	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sorted[i].Mod.SortKey, sorted[j].Mod.SortKey
		switch {
		case ki == nil && kj == nil:
			return false
		case ki == nil:
			return false
		case kj == nil:
			return true
		default:
			return *ki < *kj
		}
	})

	reassignTrailingSeparators(children, sorted)
	return sorted
}

func reassignTrailingSeparators(original, sorted []*Span) {
	if len(original) == 0 {
		return
	}
	_, ordinarySep := original[0].lastInnerSeparatorSpan()
	_, finalSep := original[len(original)-1].lastInnerSeparatorSpan()

	for i, c := range sorted {
		owner, _ := c.lastInnerSeparatorSpan()
		sep := ordinarySep
		if i == len(sorted)-1 {
			sep = finalSep
		}
		owner.Mod.SeparatorOverride = &sep
	}
}
