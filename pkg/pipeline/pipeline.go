// Package pipeline wires the Compiler Façade, Symbol Analyzer, Collector,
// Metadata Pass, Span Tree, Review File Generator, and Api Model Builder
// into the single entry point the CLI and the watch loop both call: load
// one entry module, admit its exported and forgotten-export surface, and
// render both extraction artifacts.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/c360studio/apisurface/internal/analyzer"
	"github.com/c360studio/apisurface/internal/apimodel"
	"github.com/c360studio/apisurface/internal/astgraph"
	"github.com/c360studio/apisurface/internal/collector"
	"github.com/c360studio/apisurface/internal/diag"
	"github.com/c360studio/apisurface/internal/facade"
	"github.com/c360studio/apisurface/internal/metadata"
	"github.com/c360studio/apisurface/internal/reviewfile"
	"github.com/c360studio/apisurface/internal/telemetry"
	"github.com/c360studio/apisurface/pkg/config"
)

// Result summarizes one pipeline run. RunID correlates this run's log
// output with the notifier event published about it.
type Result struct {
	RunID        string
	ReviewFile   string
	ApiModel     *apimodel.Item
	Diagnostics  []diag.Diagnostic
	ErrorCount   int
	WarningCount int
}

// Run loads cfg.Entry.ModulePath, collects its public surface, and returns
// the rendered review file text and api model tree. metrics may be nil —
// counters are only incremented when a Metrics is supplied, so a one-shot
// `extract` invocation without --metrics-addr pays nothing for telemetry.
func Run(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(*diag.Fault)
			if !ok {
				panic(r)
			}
			res, err = nil, fault
		}
	}()

	entryPath := filepath.Join(cfg.Files.Root, cfg.Entry.ModulePath)

	diags := &diag.Bag{}
	fa := facade.New()
	a := analyzer.New(fa, diags)

	entrySymbols, err := a.Analyze(ctx, entryPath)
	if err != nil {
		return nil, err
	}
	g := a.Graph()

	if metrics != nil {
		metrics.DeclarationsAnalyzed.Add(float64(declarationCount(g)))
	}

	meta := metadata.New(diags)
	c := collector.New(g, meta, diags)

	entryFile, err := fa.LoadFile(ctx, entryPath)
	if err != nil {
		return nil, err
	}
	exportNames := fa.ExportedSymbols(entryFile.Path)
	for i, sym := range entrySymbols {
		c.AdmitEntry(sym, entryExportName(exportNames, g, sym, i))
	}
	admitForgottenExports(g, c)

	if metrics != nil {
		metrics.EntitiesCollected.Add(float64(len(c.Entities())))
	}

	// Force metadata resolution (and its warnings) for every admitted
	// entity before rendering, so the review file's AEDoc synopses and the
	// diagnostics returned alongside it are computed from a consistent
	// pass over the whole surface rather than incidentally as C6/C7 walk
	// declarations.
	for _, e := range c.Entities() {
		sym := g.Symbol(e.Symbol)
		c.FetchSymbolMetadata(e.Symbol)
		for _, d := range sym.Declarations() {
			c.FetchDeclarationMetadata(d)
		}
	}

	rf := reviewfile.New(fa, g, c)
	reviewText := rf.Generate(metadata.HasPackageDocumentation(entryFile))
	if metrics != nil {
		metrics.SpansRewritten.Add(float64(rf.RenderedBlockCount()))
	}

	mb := apimodel.New(fa, g, c)
	model := mb.Build(cfg.Entry.PackageName, cfg.Entry.ModulePath)

	warnCount := 0
	for _, d := range diags.All() {
		if d.Severity == diag.SeverityWarning {
			warnCount++
		}
	}
	if metrics != nil {
		metrics.WarningsEmitted.Add(float64(warnCount))
	}

	return &Result{
		RunID:        uuid.NewString(),
		ReviewFile:   reviewText,
		ApiModel:     model,
		Diagnostics:  diags.All(),
		ErrorCount:   errorCount(diags),
		WarningCount: warnCount,
	}, nil
}

// WriteArtifacts writes res's review file and api model JSON to the paths
// cfg names, creating their parent directories if needed.
func WriteArtifacts(cfg *config.Config, res *Result) error {
	if err := writeFile(cfg.Entry.ReviewFilePath, []byte(res.ReviewFile)); err != nil {
		return fmt.Errorf("write review file: %w", err)
	}
	modelJSON, err := res.ApiModel.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal api model: %w", err)
	}
	if err := writeFile(cfg.Entry.ApiModelPath, modelJSON); err != nil {
		return fmt.Errorf("write api model: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// admitForgottenExports closes the admission set under reference: every
// symbol reachable from an already-admitted entity's declarations, but not
// itself admitted, is pulled in via AdmitReachable. Since admission can
// itself surface new references (a forgotten export's own declarations may
// reference further symbols), this re-scans the (growing) entity slice by
// index rather than ranging over a snapshot.
func admitForgottenExports(g *astgraph.Graph, c *collector.Collector) {
	for i := 0; i < len(c.Entities()); i++ {
		sym := g.Symbol(c.Entities()[i].Symbol)
		for _, declHandle := range sym.Declarations() {
			for _, ref := range g.Declaration(declHandle).ReferencedSymbols() {
				if _, ok := c.TryGetEntityBySymbol(ref); !ok {
					c.AdmitReachable(ref)
				}
			}
		}
	}
}

// entryExportName resolves the export name the entry module uses for the
// i-th exported symbol (exportNames is in the same declaration order
// Analyzer.Analyze built entrySymbols from). exportNames[i].Name is the
// export-site name — it may be an alias that differs from the underlying
// symbol's own declaration-site name — falling back to the symbol's local
// name if the two lists ever disagree in length.
func entryExportName(exportNames []facade.ExportedSymbol, g *astgraph.Graph, sym astgraph.SymbolHandle, i int) string {
	if i < len(exportNames) {
		return exportNames[i].Name
	}
	return g.Symbol(sym).LocalName
}

func declarationCount(g *astgraph.Graph) int {
	n := 0
	for _, sym := range g.AllSymbols() {
		n += len(g.Symbol(sym).Declarations())
	}
	return n
}

func errorCount(diags *diag.Bag) int {
	n := 0
	for _, d := range diags.All() {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}
