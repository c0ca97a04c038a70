package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/facade"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_WalksClassMembers(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `
export interface Widget {
  id: string;
}

export class WidgetBox {
  widget: Widget;
  render(): void {
    console.log("not part of the public surface");
  }
}
`)

	fa := facade.New()
	diags := &diag.Bag{}
	a := New(fa, diags)

	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, entrySymbols, 2)

	g := a.Graph()
	widget := g.Symbol(entrySymbols[0])
	box := g.Symbol(entrySymbols[1])
	require.Equal(t, "Widget", widget.LocalName)
	require.Equal(t, "WidgetBox", box.LocalName)

	boxDecl := box.Declarations()[0]
	children := g.Declaration(boxDecl).Children()
	require.Len(t, children, 2, "class body should yield a property and a method declaration")

	var names []string
	for _, c := range children {
		names = append(names, g.Symbol(g.Declaration(c).Symbol).LocalName)
	}
	require.ElementsMatch(t, []string{"widget", "render"}, names)
}

func TestAnalyze_RecordsTypeReferenceAcrossSymbols(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `
export interface Widget {
  id: string;
}

export class WidgetBox {
  widget: Widget;
}
`)
	fa := facade.New()
	diags := &diag.Bag{}
	a := New(fa, diags)

	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)

	g := a.Graph()
	widgetHandle := entrySymbols[0]
	boxHandle := entrySymbols[1]
	boxDecl := g.Symbol(boxHandle).Declarations()[0]
	propertyDecl := g.Declaration(boxDecl).Children()[0]

	require.Contains(t, g.Declaration(propertyDecl).ReferencedSymbols(), widgetHandle)
}

func TestAnalyze_ForgottenExportIsStillWalked(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `
interface Hidden {
  value: number;
}

export class Box {
  hidden: Hidden;
}
`)
	fa := facade.New()
	diags := &diag.Bag{}
	a := New(fa, diags)

	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, entrySymbols, 1, "Hidden is not exported from the entry module")

	g := a.Graph()
	boxDecl := g.Symbol(entrySymbols[0]).Declarations()[0]
	propertyDecl := g.Declaration(boxDecl).Children()[0]
	refs := g.Declaration(propertyDecl).ReferencedSymbols()
	require.Len(t, refs, 1)
	require.Equal(t, "Hidden", g.Symbol(refs[0]).LocalName, "Hidden is reachable even though never exported")
}

func TestAnalyze_UnresolvedReferenceIsDiagnosedNotFatal(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `
export class Box {
  thing: TotallyUnknownType;
}
`)
	fa := facade.New()
	diags := &diag.Bag{}
	a := New(fa, diags)

	_, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, diags.HasWarnings())

	found := false
	for _, d := range diags.All() {
		if d.Code == diag.CodeUnresolvedReference {
			found = true
		}
	}
	require.True(t, found)
}

func TestAnalyze_FreezesGraphOnReturn(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `export function helper(): void {}`)
	fa := facade.New()
	a := New(fa, &diag.Bag{})

	_, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, a.Graph().Analyzed())
}

func TestAnalyze_AmbientVariableDeclarationClassifiesAsVariable(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "a.ts", `export declare const limit: number;`)
	fa := facade.New()
	a := New(fa, &diag.Bag{})

	entrySymbols, err := a.Analyze(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, entrySymbols, 1)

	decls := a.Graph().Symbol(entrySymbols[0]).Declarations()
	require.Len(t, decls, 1)
	require.Equal(t, astgraph.KindVariable, a.Graph().Declaration(decls[0]).Kind)
}
