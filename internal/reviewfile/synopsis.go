package reviewfile

import (
	"strings"

	"github.com/c360studio/apisurface/internal/metadata"
)

// Synopsis builds the AEDoc synopsis comment spec.md §4.7 describes: a
// single-line `// <tokens>` comment selecting, in order, the release tag
// (omitted when it was only inherited from an enclosing declaration),
// @sealed, @virtual, @override, @eventproperty, @deprecated, and
// (undocumented). Returns "" when no token applies — callers must not emit
// a blank comment line in that case.
func Synopsis(dm *metadata.DeclarationMetadata, sm *metadata.SymbolMetadata) string {
	var tokens []string

	if sm != nil && !sm.ReleaseTagSameAsParent {
		if tag := sm.ReleaseTag.String(); tag != "" {
			tokens = append(tokens, tag)
		}
	}
	if dm.IsSealed {
		tokens = append(tokens, "@sealed")
	}
	if dm.IsVirtual {
		tokens = append(tokens, "@virtual")
	}
	if dm.IsOverride {
		tokens = append(tokens, "@override")
	}
	if dm.IsEventProperty {
		tokens = append(tokens, "@eventproperty")
	}
	if len(dm.BlockTags["deprecated"]) > 0 {
		tokens = append(tokens, "@deprecated")
	}
	if dm.NeedsDocumentation {
		tokens = append(tokens, "(undocumented)")
	}

	if len(tokens) == 0 {
		return ""
	}
	return "// " + strings.Join(tokens, " ")
}
