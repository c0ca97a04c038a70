// Package main implements the apisurface CLI: extract a package's public
// API surface into a review file and JSON api model, optionally watching
// the source tree and re-extracting on change, and diffing two review
// files for semantic equivalence.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/apisurface/internal/notifier"
	"github.com/c360studio/apisurface/internal/reviewfile"
	"github.com/c360studio/apisurface/internal/telemetry"
	"github.com/c360studio/apisurface/internal/watch"
	"github.com/c360studio/apisurface/pkg/config"
	"github.com/c360studio/apisurface/pkg/pipeline"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:     "apisurface",
		Short:   "Extract and review a package's public API surface",
		Version: Version,
	}

	root.AddCommand(newExtractCmd(), newWatchCmd(), newDiffCmd())
	return root.ExecuteContext(ctx)
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// sharedFlags are the flags common to extract and watch. override() turns
// them into a config.Config suitable for config.Loader.Load's override
// layer — only the fields a flag actually set are non-zero, so Merge
// leaves everything else at its default/user/project value.
type sharedFlags struct {
	configPath  string
	entryPath   string
	localBuild  bool
	metricsAddr string
	natsURL     string
}

func (f *sharedFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to apisurface.yaml (defaults to the usual search path)")
	cmd.Flags().StringVar(&f.entryPath, "entry", "", "entry module path, relative to the project root")
	cmd.Flags().BoolVar(&f.localBuild, "local-build", false, "treat warnings as non-fatal (spec: local-build flag)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	cmd.Flags().StringVar(&f.natsURL, "nats-url", "", "NATS server URL for the extraction-completed notification")
}

func (f *sharedFlags) override() *config.Config {
	cfg := &config.Config{}
	cfg.Entry.ModulePath = f.entryPath
	cfg.Entry.LocalBuild = f.localBuild
	cfg.Telemetry.MetricsAddr = f.metricsAddr
	cfg.NATS.URL = f.natsURL
	return cfg
}

// load resolves configuration for one invocation. With --config set, that
// file is the base and flags override it directly; otherwise the normal
// default/user/project search runs and flags are passed through as the
// Loader's override layer.
func (f *sharedFlags) load(log *slog.Logger) (*config.Config, error) {
	flagOverride := f.override()
	if f.configPath != "" {
		cfg, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("load --config: %w", err)
		}
		cfg.Merge(flagOverride)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(log).Load(flagOverride)
}

func newExtractCmd() *cobra.Command {
	var flags sharedFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction pipeline once and write the review file and api model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractOnce(cmd.Context(), &flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runExtractOnce(ctx context.Context, flags *sharedFlags) error {
	log := logger()
	cfg, err := flags.load(log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics := startMetricsIfConfigured(ctx, cfg, log)

	nf, err := notifier.Connect(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		return fmt.Errorf("connect notifier: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg, metrics)
	if err != nil {
		nf.Close()
		return err
	}
	if err := pipeline.WriteArtifacts(cfg, res); err != nil {
		nf.Close()
		return err
	}
	publishResult(nf, cfg, res, log)
	logResult(log, res)
	nf.Close()

	if res.ErrorCount > 0 || (!cfg.Entry.LocalBuild && res.WarningCount > 0) {
		os.Exit(1)
	}
	return nil
}

func newWatchCmd() *cobra.Command {
	var flags sharedFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run extraction whenever a watched source file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), &flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runWatch(ctx context.Context, flags *sharedFlags) error {
	log := logger()
	cfg, err := flags.load(log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics := startMetricsIfConfigured(ctx, cfg, log)

	nf, err := notifier.Connect(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		return fmt.Errorf("connect notifier: %w", err)
	}
	defer nf.Close()

	extractOnce := func() {
		res, err := pipeline.Run(ctx, cfg, metrics)
		if err != nil {
			log.Error("extraction failed", slog.String("error", err.Error()))
			return
		}
		if err := pipeline.WriteArtifacts(cfg, res); err != nil {
			log.Error("failed to write artifacts", slog.String("error", err.Error()))
			return
		}
		publishResult(nf, cfg, res, log)
		logResult(log, res)
	}

	extractOnce()

	w, err := watch.New(watch.Config{Root: cfg.Files.Root, Logger: log})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			log.Info("source changed, re-extracting", slog.Int("changed_files", len(ev.Paths)))
			extractOnce()
		}
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a.api.md> <b.api.md>",
		Short: "Compare two review files for whitespace-insensitive equivalence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1])
		},
	}
}

func runDiff(aPath, bPath string) error {
	a, err := os.ReadFile(aPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", aPath, err)
	}
	b, err := os.ReadFile(bPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", bPath, err)
	}
	if reviewfile.AreEquivalentApiFileContents(string(a), string(b)) {
		fmt.Println("equivalent")
		return nil
	}
	fmt.Println("different")
	os.Exit(1)
	return nil
}

// startMetricsIfConfigured starts a Prometheus /metrics server in the
// background when cfg names an address; it shuts down when ctx is
// cancelled. Returns nil if telemetry wasn't requested.
func startMetricsIfConfigured(ctx context.Context, cfg *config.Config, log *slog.Logger) *telemetry.Metrics {
	if cfg.Telemetry.MetricsAddr == "" {
		return nil
	}
	metrics := telemetry.New()
	go func() {
		if err := metrics.Serve(ctx, cfg.Telemetry.MetricsAddr); err != nil {
			log.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	log.Info("serving metrics", slog.String("addr", cfg.Telemetry.MetricsAddr))
	return metrics
}

func publishResult(nf *notifier.Notifier, cfg *config.Config, res *pipeline.Result, log *slog.Logger) {
	ev := notifier.ExtractionCompleted{
		RunID:          res.RunID,
		PackageName:    cfg.Entry.PackageName,
		ReviewFilePath: cfg.Entry.ReviewFilePath,
		ApiModelPath:   cfg.Entry.ApiModelPath,
		ErrorCount:     res.ErrorCount,
		WarningCount:   res.WarningCount,
	}
	if err := nf.Publish(ev); err != nil {
		log.Warn("failed to publish extraction-completed event", slog.String("error", err.Error()))
	}
}

func logResult(log *slog.Logger, res *pipeline.Result) {
	log.Info("extraction complete",
		slog.String("run_id", res.RunID),
		slog.Int("errors", res.ErrorCount),
		slog.Int("warnings", res.WarningCount))
	for _, d := range res.Diagnostics {
		if d.Severity == "error" {
			log.Error(d.String())
		} else {
			log.Warn(d.String())
		}
	}
}
