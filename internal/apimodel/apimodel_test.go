package apimodel

import (
	"context"
	"os"
	"path/filepath"
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

func build(t *testing.T, source string) *Builder {
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

	return New(fa, g, c)
}

func findMember(items []*Item, name string) *Item {
	for _, it := range items {
		if it.Name == name {
			return it
		}
	}
	return nil
}

func TestBuild_RootIsPackageContainingOneEntryPoint(t *testing.T) {
	b := build(t, `
/**
 * @public
 */
export class Box {}
`)
	root := b.Build("my-scope/widgets", "index")
	require.Equal(t, KindPackage, root.Kind)
	require.Equal(t, "(my-scope/widgets:package)", root.CanonicalReference)
	require.Len(t, root.Members, 1)

	entry := root.Members[0]
	require.Equal(t, KindEntryPoint, entry.Kind)
	require.Equal(t, "(my-scope/widgets:package).(index:entryPoint)", entry.CanonicalReference)
}

func TestBuild_ClassMemberUsesConcreteKindAndMemberTag(t *testing.T) {
	b := build(t, `
/**
 * @public
 */
export class Box {
  id: string;
  resize(): void {}
}
`)
	root := b.Build("scope/pkg", "index")
	entry := root.Members[0]
	box := findMember(entry.Members, "Box")
	require.NotNil(t, box)
	require.Equal(t, KindClass, box.Kind)

	id := findMember(box.Members, "id")
	require.NotNil(t, id)
	require.Equal(t, KindProperty, id.Kind)
	require.Contains(t, id.CanonicalReference, "(id:member)")

	resize := findMember(box.Members, "resize")
	require.NotNil(t, resize)
	require.Equal(t, KindMethod, resize.Kind)
}

func TestBuild_InterfaceMemberUsesSignatureVariant(t *testing.T) {
	b := build(t, `
/**
 * @public
 */
export interface Widget {
  id: string;
  resize(): void;
}
`)
	root := b.Build("scope/pkg", "index")
	entry := root.Members[0]
	widget := findMember(entry.Members, "Widget")
	require.NotNil(t, widget)
	require.Equal(t, KindInterface, widget.Kind)

	id := findMember(widget.Members, "id")
	require.NotNil(t, id)
	require.Equal(t, KindPropertySignature, id.Kind)

	resize := findMember(widget.Members, "resize")
	require.NotNil(t, resize)
	require.Equal(t, KindMethodSignature, resize.Kind)
}

func TestBuild_OverloadedFunctionGetsOneItemPerDeclarationWithOverloadIndex(t *testing.T) {
	b := build(t, `
/**
 * @public
 */
export function identify(x: number): number;
export function identify(x: string): string;
export function identify(x: unknown): unknown {
  return x;
}
`)
	root := b.Build("scope/pkg", "index")
	entry := root.Members[0]

	var overloads []*Item
	for _, it := range entry.Members {
		if it.Name == "identify" {
			overloads = append(overloads, it)
		}
	}
	require.Len(t, overloads, 3)
	require.Contains(t, overloads[0].CanonicalReference, "(identify:member(1))")
	require.Contains(t, overloads[1].CanonicalReference, "(identify:member(2))")
	require.Contains(t, overloads[2].CanonicalReference, "(identify:member(3))")
}

func TestBuild_TypeReferenceBecomesReferenceExcerptToken(t *testing.T) {
	b := build(t, `
/**
 * @public
 */
export interface Id {
  value: string;
}
/**
 * @public
 */
export class Box {
  id: Id;
}
`)
	root := b.Build("scope/pkg", "index")
	entry := root.Members[0]
	box := findMember(entry.Members, "Box")
	require.NotNil(t, box)
	id := findMember(box.Members, "id")
	require.NotNil(t, id)

	var foundRef *ExcerptToken
	for i := range id.ExcerptTokens {
		if id.ExcerptTokens[i].Kind == "reference" {
			foundRef = &id.ExcerptTokens[i]
		}
	}
	require.NotNil(t, foundRef)
	require.Equal(t, "Id", foundRef.Text)
	require.Contains(t, foundRef.CanonicalReference, "(Id:interface)")
}

func TestBuild_DocCommentAndReleaseTagCarryThrough(t *testing.T) {
	b := build(t, `
/**
 * A box.
 * @beta
 */
export class Box {}
`)
	root := b.Build("scope/pkg", "index")
	entry := root.Members[0]
	box := findMember(entry.Members, "Box")
	require.NotNil(t, box)
	require.Equal(t, "beta", box.ReleaseTag)
	require.NotEmpty(t, box.DocComment)
}

func TestBuild_NameCollisionEntityGetsSuffixedCanonicalReference(t *testing.T) {
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
	c.AdmitEntry(entrySymbols[0], "Widget")
	c.AdmitEntry(entrySymbols[1], "Widget")

	b := New(fa, g, c)
	root := b.Build("scope/pkg", "index")
	entryItem := root.Members[0]

	iface := findMember(entryItem.Members, "Widget")
	class := findMember(entryItem.Members, "Widget_2")
	require.NotNil(t, iface)
	require.NotNil(t, class)
	require.Contains(t, iface.CanonicalReference, "(Widget:interface)")
	require.Contains(t, class.CanonicalReference, "(Widget_2:class)")
}
