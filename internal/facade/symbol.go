package facade

import sitter "github.com/smacker/go-tree-sitter"

// Symbol is the façade's projection of "one distinct logical named entity"
// onto the tree-sitter syntax forest — the input to C3's AstSymbol
// construction. Identity is the pointer: the same compiler symbol always
// resolves to the same *Symbol, which is what lets C2 key a deduplicated
// graph on it.
type Symbol struct {
	// Name is the symbol's local name, as it appears at its defining site.
	Name string

	// File is the SourceFile the symbol is declared in. Nil for Nominal
	// (external/ambient) symbols that have no declaration in the loaded set.
	File *SourceFile

	// Declarations holds every declaration-site node merged into this
	// symbol (multiple for overloads or declaration merging), in source
	// order.
	Declarations []*sitter.Node

	// Nominal is true when the symbol is external/ambient: it must not be
	// emitted, only referenced by name (spec.md §3).
	Nominal bool

	// Imported is true when the symbol entered this scope via an import
	// binding (directly or through a re-export chain).
	Imported bool
}
