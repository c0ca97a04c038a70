// Package collector is the Collector (C4): it owns the ordered list of
// collected entities, resolves nameForEmit collisions, and orchestrates the
// lazy, memoized metadata pass (C5) on behalf of downstream consumers.
package collector

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/metadata"
)

// Entity is one per unique emitted API surface element (spec.md §3
// CollectorEntity).
type Entity struct {
	Symbol      astgraph.SymbolHandle
	Exported    bool
	DesiredName string
	NameForEmit string

	canonicalReference string
}

// CanonicalReference returns the entity's canonical reference string, once
// C8 has assigned one. Empty until then.
func (e *Entity) CanonicalReference() string { return e.canonicalReference }

// Collector owns entity admission, name-collision resolution, and the two
// lookup maps spec.md §4.4 requires: by AstSymbol and by canonical
// reference. Grounded on processor/ast/entities.go's NewCodeEntity /
// buildInstanceID identity-construction idiom, adapted from a single
// global-ID scheme into the admission-order collision scheme spec.md §4.4
// describes.
type Collector struct {
	g     *astgraph.Graph
	meta  *metadata.Pass
	diags *diag.Bag

	entities []*Entity
	bySymbol map[astgraph.SymbolHandle]*Entity
	byRef    map[string]*Entity
	names    map[string]bool

	// metaMu guards the memoization path into meta. Admission itself runs
	// single-threaded per spec.md §5, but fetchMetadata is re-entered by
	// concurrent downstream documentation-generator consumers sharing one
	// Collector, mirroring why the teacher's ParserRegistry guards a
	// single-writer map with sync.RWMutex regardless.
	metaMu sync.RWMutex
}

// New creates a Collector over an analyzed Graph. meta is consulted lazily
// by FetchDeclarationMetadata/FetchSymbolMetadata, never eagerly. diags
// receives forgotten-export warnings as reachable-only symbols are admitted.
func New(g *astgraph.Graph, meta *metadata.Pass, diags *diag.Bag) *Collector {
	return &Collector{
		g:        g,
		meta:     meta,
		diags:    diags,
		bySymbol: make(map[astgraph.SymbolHandle]*Entity),
		byRef:    make(map[string]*Entity),
		names:    make(map[string]bool),
	}
}

// AdmitEntry admits an entry-module export. name is the export name at the
// entry point, which may differ from the symbol's localName (a re-export
// alias). Idempotent: admitting the same symbol twice returns the existing
// entity.
func (c *Collector) AdmitEntry(sym astgraph.SymbolHandle, name string) *Entity {
	if e, ok := c.bySymbol[sym]; ok {
		return e
	}
	return c.admit(sym, true, name)
}

// AdmitReachable admits an AstSymbol reached only via reference (a
// forgotten export or an ambient type needing a name), using the symbol's
// own localName as the desired name. Non-nominal symbols (real local
// declarations, not external/ambient ones) raise a forgotten-export
// warning, per spec.md §4.3's "the Collector will later assign it a name"
// description.
func (c *Collector) AdmitReachable(sym astgraph.SymbolHandle) *Entity {
	if e, ok := c.bySymbol[sym]; ok {
		return e
	}
	astSym := c.g.Symbol(sym)
	if !astSym.Nominal && c.diags != nil {
		c.diags.Warnf(diag.CodeForgottenExport, "", 0, 0, astSym.LocalName,
			"%q is reachable from an exported API but is not itself exported", astSym.LocalName)
	}
	return c.admit(sym, false, astSym.LocalName)
}

func (c *Collector) admit(sym astgraph.SymbolHandle, exported bool, desired string) *Entity {
	e := &Entity{
		Symbol:      sym,
		Exported:    exported,
		DesiredName: desired,
		NameForEmit: c.resolveCollision(desired),
	}
	c.entities = append(c.entities, e)
	c.bySymbol[sym] = e
	c.names[e.NameForEmit] = true
	return e
}

// resolveCollision returns desired if free, else the first
// desired_2/_3/... not already taken — spec.md §4.4's admission-order
// suffixing scheme.
func (c *Collector) resolveCollision(desired string) string {
	if !c.names[desired] {
		return desired
	}
	for n := 2; ; n++ {
		candidate := desired + "_" + strconv.Itoa(n)
		if !c.names[candidate] {
			return candidate
		}
	}
}

// Entities returns every admitted entity, in admission order.
func (c *Collector) Entities() []*Entity {
	return c.entities
}

// TryGetEntityBySymbol looks up an entity by its AstSymbol.
func (c *Collector) TryGetEntityBySymbol(sym astgraph.SymbolHandle) (*Entity, bool) {
	e, ok := c.bySymbol[sym]
	return e, ok
}

// SetCanonicalReference registers (or updates) e's canonical reference, and
// indexes it in the by-canonical-reference lookup map. Called by C8 once
// the entity's kind (and therefore its reference grammar) is known.
func (c *Collector) SetCanonicalReference(e *Entity, ref string) {
	if e.canonicalReference != "" {
		delete(c.byRef, e.canonicalReference)
	}
	e.canonicalReference = ref
	c.byRef[ref] = e
}

// TryGetEntityByCanonicalReference looks up an entity by canonical
// reference string.
func (c *Collector) TryGetEntityByCanonicalReference(ref string) (*Entity, bool) {
	e, ok := c.byRef[ref]
	return e, ok
}

// FetchDeclarationMetadata returns the memoized DeclarationMetadata for d,
// computing it on first access (triggers C5). A second call for the same
// declaration returns the same object identity (spec.md §5).
func (c *Collector) FetchDeclarationMetadata(d astgraph.DeclHandle) *metadata.DeclarationMetadata {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	return c.meta.FetchDeclaration(c.g, d)
}

// FetchSymbolMetadata returns the memoized SymbolMetadata for sym,
// computing it on first access (triggers C5).
func (c *Collector) FetchSymbolMetadata(sym astgraph.SymbolHandle) *metadata.SymbolMetadata {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	return c.meta.FetchSymbol(c.g, sym)
}

// GetSortKeyIgnoringUnderscore strips a single leading underscore before
// comparison, so "_foo" sorts next to "foo" but after it on ties — used to
// alphabetize members in the review file (spec.md §4.4).
func GetSortKeyIgnoringUnderscore(name string) string {
	return strings.TrimPrefix(name, "_")
}

// SortEntitiesByNameIgnoringUnderscore is a small helper consumers (C6/C7)
// use to get a stably-sorted copy of a slice of entities by
// GetSortKeyIgnoringUnderscore(NameForEmit); ties retain input order.
func SortEntitiesByNameIgnoringUnderscore(entities []*Entity) []*Entity {
	out := make([]*Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		return GetSortKeyIgnoringUnderscore(out[i].NameForEmit) < GetSortKeyIgnoringUnderscore(out[j].NameForEmit)
	})
	return out
}
