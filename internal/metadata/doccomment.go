package metadata

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/facade"
)

// HasPackageDocumentation reports whether file's very first top-level node
// is a comment carrying an @packageDocumentation tag — spec.md §4.7's trailing
// "(No @packageDocumentation comment for this package)" marker depends on
// this at the whole-file level, not per-declaration.
func HasPackageDocumentation(file *facade.SourceFile) bool {
	root := file.Root()
	if root.ChildCount() == 0 {
		return false
	}
	first := root.Child(0)
	if first.Type() != "comment" {
		return false
	}
	dc := parseDocComment([]byte(file.NodeText(first)))
	return dc.modifiers["packageDocumentation"]
}

// docComment is the parsed shape of a leading JSDoc-style comment: the
// recognized modifier tags present, the block tags' raw text, and whether a
// free-text summary precedes the first tag.
type docComment struct {
	raw        string
	modifiers  map[string]bool
	blocks     map[string][]string
	hasSummary bool
}

// leadingComment finds the comment node immediately preceding decl in its
// parent's child list, if any — tree-sitter grammars expose comments as
// ordinary sibling nodes, not node-internal trivia. An exported declaration
// is bound as the inner node of an export_statement (facade/binder.go's
// bindExportStatement), so the doc comment actually precedes the wrapping
// export_statement, not the inner declaration node itself; walk up through
// it before checking for a preceding sibling comment.
func leadingComment(decl *sitter.Node) *sitter.Node {
	if decl == nil {
		return nil
	}
	n := decl
	if parent := n.Parent(); parent != nil && parent.Type() == "export_statement" {
		n = parent
	}
	prev := n.PrevSibling()
	if prev != nil && prev.Type() == "comment" {
		return prev
	}
	return nil
}

// parseDocComment parses the minimal recognized-tag subset of JSDoc/TSDoc
// spec.md §4.5 requires. The real TSDoc parser is an external black-box
// collaborator (spec.md §1); this stands in for it with exactly the tag
// vocabulary spec.md names, nothing more.
func parseDocComment(raw []byte) docComment {
	dc := docComment{
		raw:       string(raw),
		modifiers: make(map[string]bool),
		blocks:    make(map[string][]string),
	}

	body := stripCommentDelimiters(string(raw))
	currentBlock := ""

	for _, line := range strings.Split(body, "\n") {
		line = stripLinePrefix(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			tag, rest := splitTag(line[1:])
			switch {
			case modifierTags[tag]:
				dc.modifiers[tag] = true
			case blockTags[tag]:
				dc.blocks[tag] = append(dc.blocks[tag], rest)
				currentBlock = tag
			default:
				currentBlock = ""
			}
			continue
		}
		if currentBlock != "" {
			dc.blocks[currentBlock] = append(dc.blocks[currentBlock], line)
			continue
		}
		dc.hasSummary = true
	}
	return dc
}

func stripCommentDelimiters(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "/**")
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	return s
}

func stripLinePrefix(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "*")
	return strings.TrimSpace(line)
}

func splitTag(s string) (tag, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
