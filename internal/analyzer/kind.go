package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/c360studio/apisurface/internal/astgraph"
)

// classifyTop reports the kind of a top-level (or namespace-nested)
// declaration node, per the tree-sitter-typescript node kinds the teacher's
// parser switches on (processor/ast/ts/parser.go walkNode).
func classifyTop(n *sitter.Node) astgraph.DeclKind {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration":
		return astgraph.KindClass
	case "interface_declaration":
		return astgraph.KindInterface
	case "enum_declaration":
		return astgraph.KindEnum
	case "module", "internal_module", "module_declaration":
		return astgraph.KindNamespace
	case "function_declaration", "generator_function_declaration", "function_signature":
		return astgraph.KindFunction
	case "type_alias_declaration":
		return astgraph.KindTypeAlias
	case "lexical_declaration", "variable_declaration":
		return astgraph.KindVariable
	case "ambient_declaration":
		// `declare ...` wraps the real declaration as a child rather than
		// carrying a node type of its own; classify by what it wraps so an
		// ambient class/function/variable gets the same Kind as its
		// non-ambient form.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if k := classifyTop(n.NamedChild(i)); k != astgraph.KindUnknown {
				return k
			}
		}
		return astgraph.KindUnknown
	default:
		return astgraph.KindUnknown
	}
}

// classifyMember reports the kind of a node found inside a class/interface/
// enum body.
func classifyMember(n *sitter.Node, source []byte) astgraph.DeclKind {
	switch n.Type() {
	case "method_definition", "method_signature", "abstract_method_signature":
		if memberName(n, source) == "constructor" {
			return astgraph.KindConstructor
		}
		return astgraph.KindMethod
	case "public_field_definition", "property_signature":
		return astgraph.KindProperty
	case "index_signature":
		return astgraph.KindIndexSignature
	case "call_signature", "construct_signature":
		return astgraph.KindCallSignature
	case "property_identifier", "enum_assignment":
		return astgraph.KindEnumMember
	default:
		return astgraph.KindUnknown
	}
}

// hasBodyContainer reports whether decls of this kind carry further nested
// member declarations worth walking.
func hasBodyContainer(k astgraph.DeclKind) bool {
	switch k {
	case astgraph.KindClass, astgraph.KindInterface, astgraph.KindEnum, astgraph.KindNamespace:
		return true
	default:
		return false
	}
}

// memberName extracts a member node's identifying name, handling the
// constructor/property/enum-member node shapes uniformly.
func memberName(n *sitter.Node, source []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(source)
	}
	if n.Type() == "property_identifier" {
		return n.Content(source)
	}
	return ""
}
