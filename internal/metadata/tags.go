package metadata

// Recognized tag sets, per spec.md §4.5. Process-wide shared immutable
// state, initialized once here and never mutated — the "global
// tag-definition table" design note.
var (
	modifierTags = map[string]bool{
		"public":              true,
		"beta":                true,
		"alpha":               true,
		"internal":            true,
		"sealed":              true,
		"virtual":             true,
		"override":            true,
		"eventProperty":       true,
		"readonly":            true,
		"packageDocumentation": true,
		"preapproved":         true,
		"betaDocumentation":   true,
	}

	blockTags = map[string]bool{
		"remarks":         true,
		"param":           true,
		"returns":         true,
		"example":         true,
		"deprecated":      true,
		"privateRemarks":  true,
		"internalRemarks": true,
		"defaultValue":    true,
		"link":            true,
		"inheritDoc":      true,
	}

	releaseTagModifiers = map[string]ReleaseTag{
		"public":   TagPublic,
		"beta":     TagBeta,
		"alpha":    TagAlpha,
		"internal": TagInternal,
	}
)

// ReleaseTag is the effective visibility classification of a symbol.
type ReleaseTag int

const (
	TagNone ReleaseTag = iota
	TagInternal
	TagAlpha
	TagBeta
	TagPublic
)

// String renders the tag the way it appears in doc comments and synopses.
func (t ReleaseTag) String() string {
	switch t {
	case TagPublic:
		return "@public"
	case TagBeta:
		return "@beta"
	case TagAlpha:
		return "@alpha"
	case TagInternal:
		return "@internal"
	default:
		return ""
	}
}

// MorePublicThan implements the ordering spec.md §4.5 requires for type-leak
// detection: Public > Beta > Alpha > Internal. TagNone is treated as the
// least public of all.
func (t ReleaseTag) MorePublicThan(other ReleaseTag) bool {
	return t > other
}
