package reviewfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/apisurface/internal/analyzer"
	"github.com/c360studio/apisurface/internal/collector"
	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/facade"
	"github.com/c360studio/apisurface/internal/metadata"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// build runs C1-C5 over source and returns a ready Generator plus the
// entry-module export handles, for tests to assert against Generate()'s
// output.
func build(t *testing.T, source string) (*Generator, *diag.Bag) {
	t.Helper()
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", source)

	fa := facade.New()
	diags := &diag.Bag{}
	a := analyzer.New(fa, diags)
	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)

	g := a.Graph()
	meta := metadata.New(diags)
	c := collector.New(g, meta, diags)
	for _, sym := range entrySymbols {
		c.AdmitEntry(sym, g.Symbol(sym).LocalName)
	}

	return New(fa, g, c), diags
}

func TestSynopsis_SelectsTokensInOrder(t *testing.T) {
	dm := &metadata.DeclarationMetadata{
		IsSealed:           true,
		IsOverride:         true,
		NeedsDocumentation: true,
		BlockTags:          map[string][]string{"deprecated": {"use Bar instead"}},
	}
	sm := &metadata.SymbolMetadata{ReleaseTag: metadata.TagBeta}

	got := Synopsis(dm, sm)
	require.Equal(t, "// @beta @sealed @override @deprecated (undocumented)", got)
}

func TestSynopsis_OmitsReleaseTagWhenInheritedFromParent(t *testing.T) {
	dm := &metadata.DeclarationMetadata{}
	sm := &metadata.SymbolMetadata{ReleaseTag: metadata.TagPublic, ReleaseTagSameAsParent: true}

	require.Equal(t, "", Synopsis(dm, sm))
}

func TestSynopsis_EmptyWhenNoTokensApply(t *testing.T) {
	dm := &metadata.DeclarationMetadata{}
	sm := &metadata.SymbolMetadata{}
	require.Equal(t, "", Synopsis(dm, sm))
}

func TestGenerate_OverloadedFunctionEmitsOneBlockPerOverload(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export function identify(x: number): number;
export function identify(x: string): string;
export function identify(x: unknown): unknown {
  return x;
}
`)
	out := g.Generate(true)
	require.Equal(t, 3, strings.Count(out, "identify("))
	require.Contains(t, out, "@public")
}

func TestGenerate_NameCollisionRendersSuffixedName(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `
/**
 * @public
 */
export interface Widget {
  id: string;
}
/**
 * @public
 */
export class Widget_2_source {
  w: Widget;
}
`)
	fa := facade.New()
	diags := &diag.Bag{}
	a := analyzer.New(fa, diags)
	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)

	g := a.Graph()
	meta := metadata.New(diags)
	c := collector.New(g, meta, diags)
	// Admit both entries under the SAME desired name "Widget" to force a
	// collision, mirroring spec.md §8 scenario S4 (two same-named imports).
	c.AdmitEntry(entrySymbols[0], "Widget")
	c.AdmitEntry(entrySymbols[1], "Widget")

	gen := New(fa, g, c)
	out := gen.Generate(true)
	require.Contains(t, out, "interface Widget")
	require.Contains(t, out, "class Widget_2")
}

func TestGenerate_SortsMembersIgnoringUnderscore(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export class Box {
  zebra: string;
  _alpha: string;
  mango: string;
}
`)
	out := g.Generate(true)
	ia := strings.Index(out, "_alpha")
	im := strings.Index(out, "mango")
	iz := strings.Index(out, "zebra")
	require.True(t, ia >= 0 && im >= 0 && iz >= 0)
	require.True(t, ia < im, "_alpha should sort before mango ignoring underscore")
	require.True(t, im < iz, "mango should sort before zebra")
}

func TestGenerate_NoPackageDocumentationAppendsMarker(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export class Box {}
`)
	out := g.Generate(false)
	require.Contains(t, out, packageDocMarker)
}

func TestGenerate_WithPackageDocumentationOmitsMarker(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export class Box {}
`)
	out := g.Generate(true)
	require.NotContains(t, out, packageDocMarker)
}

func TestGenerate_TopLevelVariableGetsDeclarePrefixAndSemicolon(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export const limit = 10;
`)
	out := g.Generate(true)
	require.Contains(t, out, "declare const limit")
	require.Equal(t, 1, strings.Count(out, ";"))
}

func TestGenerate_AlreadyDeclaredVariableIsNotDoublePrefixed(t *testing.T) {
	g, _ := build(t, `
/**
 * @public
 */
export declare const limit: number;
`)
	out := g.Generate(true)
	require.Contains(t, out, "declare const limit")
	require.NotContains(t, out, "declare declare")
	require.Equal(t, 1, strings.Count(out, ";"))
}

func TestAreEquivalentApiFileContents_CollapsesWhitespace(t *testing.T) {
	a := "export class Box {\n  id: string;\n}\n"
	b := "export   class Box {\tid: string;\n\n}"
	require.True(t, AreEquivalentApiFileContents(a, b))
}

func TestAreEquivalentApiFileContents_DetectsRealDifference(t *testing.T) {
	a := "export class Box {}"
	b := "export class Bin {}"
	require.False(t, AreEquivalentApiFileContents(a, b))
}
