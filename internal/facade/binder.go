package facade

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// bindingKind classifies how a name entered a file's scope.
type bindingKind int

const (
	bindingLocal bindingKind = iota
	bindingImport
	bindingReexport
)

// binding is one name→something edge in a file's module scope: either a
// local declaration (merges multiple declaration nodes for overloads and
// declaration merging) or an alias into another binding (import, or
// re-export), resolved lazily and memoized once resolved.
type binding struct {
	name   string
	kind   bindingKind
	file   *SourceFile
	decls  []*sitter.Node // bindingLocal only
	target *aliasTarget   // bindingImport / bindingReexport only
	sym    *Symbol        // memoized resolution
}

// aliasTarget names what an import or re-export binding points at: a
// module specifier (resolved relative to the importing file) plus the
// name exported under that specifier, or the empty name for `import * as
// ns` / `export * from`.
type aliasTarget struct {
	specifier string
	name      string // "" means "the whole namespace" (import * as ns)
	isDefault bool
}

// declarationNodeTypes are the top-level syntax kinds the binder treats as
// name-introducing declarations, matching spec.md §3's
// isAstDeclaration-eligible kinds narrowed to what can appear at module
// top level.
var declarationNodeTypes = map[string]bool{
	"class_declaration":      true,
	"interface_declaration":  true,
	"type_alias_declaration": true,
	"enum_declaration":       true,
	"function_declaration":   true,
	"function_signature":     true, // overload signature without a body
	"lexical_declaration":    true,
	"variable_declaration":   true,
	"abstract_class_declaration": true,
	"ambient_declaration":    true,
	"module":                 true, // namespace/module declaration
	"internal_module":        true, // `namespace X { ... }`
}

// bind walks sf's top-level syntax and populates sf.top / sf.exports /
// sf.exportOrder. It performs no cross-file resolution — that happens
// lazily in Facade.resolveBinding via aliasTarget specifiers.
func bind(sf *SourceFile) {
	sf.top = make(map[string]*binding)
	sf.exports = make(map[string]*binding)

	root := sf.Root()
	if root == nil {
		return
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		bindTopLevelStatement(sf, child)
	}
}

func bindTopLevelStatement(sf *SourceFile, node *sitter.Node) {
	switch node.Type() {
	case "export_statement":
		bindExportStatement(sf, node)
	case "import_statement":
		bindImportStatement(sf, node)
	default:
		if declarationNodeTypes[node.Type()] {
			bindDeclaration(sf, node, false, "")
		}
	}
}

// bindDeclaration registers every name introduced by a declaration node
// into sf.top, merging into an existing binding of the same name (overload
// sets, declaration-merged interfaces/namespaces). If exported is true the
// (possibly aliased) names are also recorded in sf.exports.
func bindDeclaration(sf *SourceFile, node *sitter.Node, exported bool, exportAs string) {
	names := declaredNames(sf, node)
	for _, name := range names {
		b, ok := sf.top[name]
		if !ok {
			b = &binding{name: name, kind: bindingLocal, file: sf}
			sf.top[name] = b
		}
		b.decls = append(b.decls, node)
		if exported {
			as := name
			if exportAs != "" {
				as = exportAs
			}
			registerExport(sf, as, b)
		}
	}
}

// declaredNames extracts the identifier(s) a declaration node introduces.
func declaredNames(sf *SourceFile, node *sitter.Node) []string {
	switch node.Type() {
	case "class_declaration", "abstract_class_declaration", "interface_declaration",
		"type_alias_declaration", "enum_declaration", "function_declaration", "function_signature",
		"module", "internal_module":
		if n := node.ChildByFieldName("name"); n != nil {
			return []string{sf.NodeText(n)}
		}
		return nil
	case "ambient_declaration":
		var names []string
		for i := 0; i < int(node.ChildCount()); i++ {
			names = append(names, declaredNames(sf, node.Child(i))...)
		}
		return names
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "variable_declarator" {
				continue
			}
			if n := child.ChildByFieldName("name"); n != nil {
				names = append(names, sf.NodeText(n))
			}
		}
		return names
	default:
		return nil
	}
}

func registerExport(sf *SourceFile, as string, b *binding) {
	if _, exists := sf.exports[as]; exists {
		return
	}
	sf.exports[as] = b
	sf.exportOrder = append(sf.exportOrder, as)
}

// bindExportStatement handles every `export ...` form: wrapping a
// declaration, a default export, a named export list, or a re-export.
func bindExportStatement(sf *SourceFile, node *sitter.Node) {
	isDefault := false
	var declChild *sitter.Node
	var exportClause *sitter.Node
	var isStar bool
	var starAlias string
	var source string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "default":
			isDefault = true
		case "export_clause":
			exportClause = child
		case "*":
			isStar = true
		case "namespace_export":
			// `* as ns`
			if n := child.ChildByFieldName("name"); n != nil {
				starAlias = sf.NodeText(n)
			}
		case "string":
			source = strings.Trim(sf.NodeText(child), `'"`)
		default:
			if declarationNodeTypes[child.Type()] {
				declChild = child
			} else if isIdentifierLike(child.Type()) && isDefault && declChild == nil {
				// `export default someIdentifier;`
				declChild = child
			}
		}
	}

	switch {
	case declChild != nil && declarationNodeTypes[declChild.Type()]:
		bindDeclaration(sf, declChild, true, "")
		if isDefault {
			names := declaredNames(sf, declChild)
			if len(names) > 0 {
				registerExport(sf, "default", sf.top[names[0]])
			}
		}
	case declChild != nil && isDefault:
		// export default <expr identifier>
		name := sf.NodeText(declChild)
		if b, ok := sf.top[name]; ok {
			registerExport(sf, "default", b)
		}
	case exportClause != nil:
		for i := 0; i < int(exportClause.ChildCount()); i++ {
			spec := exportClause.Child(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			local, alias := specifierNames(sf, spec)
			exportAs := local
			if alias != "" {
				exportAs = alias
			}
			if source != "" {
				b := &binding{name: exportAs, kind: bindingReexport, file: sf, target: &aliasTarget{specifier: source, name: local}}
				registerExport(sf, exportAs, b)
			} else if local, ok := sf.top[local]; ok {
				registerExport(sf, exportAs, local)
			}
		}
	case isStar && source != "":
		name := starAlias
		if name == "" {
			name = "*"
		}
		b := &binding{name: name, kind: bindingReexport, file: sf, target: &aliasTarget{specifier: source, name: ""}}
		registerExport(sf, name, b)
	}
}

// bindImportStatement binds every name an `import` statement introduces
// into sf.top as a bindingImport pointing at an unresolved aliasTarget; the
// target is resolved lazily by Facade.resolveBinding.
func bindImportStatement(sf *SourceFile, node *sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	specifier := strings.Trim(sf.NodeText(sourceNode), `'"`)

	var clause *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if t := node.Child(i).Type(); t == "import_clause" {
			clause = node.Child(i)
			break
		}
	}
	if clause == nil {
		return // side-effect-only import
	}

	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			// default import
			name := sf.NodeText(child)
			sf.top[name] = &binding{name: name, kind: bindingImport, file: sf,
				target: &aliasTarget{specifier: specifier, isDefault: true}}
		case "namespace_import":
			if n := namedChildOfType(child, "identifier"); n != nil {
				name := sf.NodeText(n)
				sf.top[name] = &binding{name: name, kind: bindingImport, file: sf,
					target: &aliasTarget{specifier: specifier, name: ""}}
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				local, alias := specifierNames(sf, spec)
				name := local
				if alias != "" {
					name = alias
				}
				sf.top[name] = &binding{name: name, kind: bindingImport, file: sf,
					target: &aliasTarget{specifier: specifier, name: local}}
			}
		}
	}
}

// specifierNames returns (name, alias) for an import_specifier /
// export_specifier node of the form `name` or `name as alias`.
func specifierNames(sf *SourceFile, spec *sitter.Node) (name, alias string) {
	if n := spec.ChildByFieldName("name"); n != nil {
		name = sf.NodeText(n)
	}
	if a := spec.ChildByFieldName("alias"); a != nil {
		alias = sf.NodeText(a)
	}
	if name == "" {
		// Fall back to positional children if field names differ by grammar
		// version: first identifier is the name, one after "as" is the alias.
		var afterAs bool
		for i := 0; i < int(spec.ChildCount()); i++ {
			c := spec.Child(i)
			if c.Type() == "as" {
				afterAs = true
				continue
			}
			if !isIdentifierLike(c.Type()) {
				continue
			}
			if afterAs {
				alias = sf.NodeText(c)
			} else if name == "" {
				name = sf.NodeText(c)
			}
		}
	}
	return name, alias
}

func namedChildOfType(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == kind {
			return c
		}
	}
	return nil
}

func isIdentifierLike(kind string) bool {
	switch kind {
	case "identifier", "type_identifier", "property_identifier":
		return true
	}
	return false
}

// lookupBinding finds a top-level binding by name within sf.
func lookupBinding(sf *SourceFile, name string) (*binding, bool) {
	b, ok := sf.top[name]
	return b, ok
}

// resolveBinding follows a binding to its terminal Symbol, creating local
// Symbols on first resolution and memoizing the result on the binding
// (spec.md §5: "Metadata resolution is idempotent"). seen guards against
// re-export cycles.
func (fa *Facade) resolveBinding(b *binding, seen map[*binding]bool) *Symbol {
	if b == nil || seen[b] {
		return nil
	}
	seen[b] = true
	if b.sym != nil {
		return b.sym
	}

	switch b.kind {
	case bindingLocal:
		sym := &Symbol{Name: b.name, File: b.file, Declarations: b.decls}
		b.sym = sym
		return sym
	case bindingImport, bindingReexport:
		target, ok := fa.resolveSpecifier(b.file, b.target.specifier)
		if !ok {
			sym := fa.externalSymbol(b.target.specifier, b.target.name, b.name)
			b.sym = sym
			return sym
		}
		if b.target.name == "" {
			// `import * as ns` / `export * from` — no single underlying
			// symbol; treat as a nominal namespace reference.
			sym := fa.externalSymbol(b.target.specifier, "*", b.name)
			b.sym = sym
			return sym
		}
		targetBinding, ok := target.exports[b.target.name]
		if !ok {
			sym := fa.externalSymbol(b.target.specifier, b.target.name, b.name)
			b.sym = sym
			return sym
		}
		sym := fa.resolveBinding(targetBinding, seen)
		if sym != nil {
			sym.Imported = true
		}
		b.sym = sym
		return sym
	}
	return nil
}

// resolveSpecifier resolves a relative module specifier against the
// importing file's directory to another loaded SourceFile. Bare
// specifiers (node_modules packages) are always unresolved, becoming
// Nominal external symbols.
func (fa *Facade) resolveSpecifier(from *SourceFile, specifier string) (*SourceFile, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return nil, false
	}
	base := filepath.Join(filepath.Dir(from.Path), specifier)
	candidates := []string{
		base + ".ts", base + ".tsx", base + ".d.ts", base + ".js", base + ".jsx",
		filepath.Join(base, "index.ts"), filepath.Join(base, "index.tsx"),
	}
	for _, c := range candidates {
		if sf, ok := fa.files[c]; ok {
			return sf, true
		}
	}
	return nil, false
}

// externalSymbol returns (creating if needed) the shared Nominal Symbol
// for a name imported from a specifier the façade could not resolve to a
// loaded file — an ambient/external entity per spec.md §3.
func (fa *Facade) externalSymbol(specifier, name, localName string) *Symbol {
	if fa.externals == nil {
		fa.externals = make(map[string]*Symbol)
	}
	key := specifier + "#" + name
	if sym, ok := fa.externals[key]; ok {
		return sym
	}
	display := name
	if display == "" || display == "*" {
		display = localName
	}
	sym := &Symbol{Name: display, Nominal: true, Imported: true}
	fa.externals[key] = sym
	return sym
}
