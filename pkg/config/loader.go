package config

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "apisurface.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/apisurface"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader loads configuration with layered precedence: default, user,
// project, then an optional CLI override applied last.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// configLayer names one precedence layer Load may merge in, in the order
// layers are consulted (later layers are merged over earlier ones).
type configLayer struct {
	name     string
	path     string
	optional bool // missing file is expected, not worth a warning
}

// Load resolves configuration in precedence order:
//  1. DefaultConfig
//  2. User config (~/.config/apisurface/config.yaml)
//  3. Project config (apisurface.yaml in the current or an ancestor directory)
//  4. override, if non-nil (typically assembled from CLI flags)
//
// Once the layers are merged, Load also resolves cfg.Files.Include/Exclude
// against cfg.Files.Root and warns if the configured entry module falls
// outside that selection — a misconfigured glob would otherwise surface
// much later as a confusing "file not found" from the Compiler Façade.
func (l *Loader) Load(override *Config) (*Config, error) {
	cfg := DefaultConfig()

	for _, layer := range []configLayer{
		{name: "user", path: l.userConfigPath(), optional: true},
		{name: "project", path: l.findProjectConfig()},
	} {
		l.mergeLayer(cfg, layer)
	}

	cfg.Merge(override)

	if cfg.Files.Root == "." || cfg.Files.Root == "" {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			cfg.Files.Root = gitRoot
			l.logger.Debug("auto-detected git root", slog.String("path", gitRoot))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.warnIfEntryModuleNotSelected(cfg)

	return cfg, nil
}

// mergeLayer loads and merges one configLayer into cfg in place. A layer
// with an empty path (not found) is skipped; an optional layer's missing
// file is not logged, since the absence of a user config is the common
// case, while a project layer logs its absence at debug level.
func (l *Loader) mergeLayer(cfg *Config, layer configLayer) {
	if layer.path == "" {
		if !layer.optional {
			l.logger.Debug("no " + layer.name + " config found")
		}
		return
	}
	layerCfg, err := LoadFromFile(layer.path)
	if err != nil {
		if layer.optional && errors.Is(err, os.ErrNotExist) {
			return
		}
		l.logger.Warn("failed to load "+layer.name+" config",
			slog.String("path", layer.path), slog.String("error", err.Error()))
		return
	}
	l.logger.Debug("loaded "+layer.name+" config", slog.String("path", layer.path))
	cfg.Merge(layerCfg)
}

// warnIfEntryModuleNotSelected resolves the project's include/exclude globs
// and logs a warning when the configured entry module isn't among the
// matched files — it never fails Load, since the glob and the entry module
// path come from independent config sections that are each individually
// valid.
func (l *Loader) warnIfEntryModuleNotSelected(cfg *Config) {
	selected, err := cfg.SelectFiles()
	if err != nil {
		l.logger.Warn("failed to resolve files.include/files.exclude", slog.String("error", err.Error()))
		return
	}
	entryRel := filepath.ToSlash(cfg.Entry.ModulePath)
	for _, rel := range selected {
		if rel == entryRel {
			return
		}
	}
	l.logger.Warn("entry module is not matched by files.include/files.exclude",
		slog.String("entry", cfg.Entry.ModulePath),
		slog.Int("files_selected", len(selected)))
}

// EnsureUserConfig writes a default user config file if none exists yet.
func (l *Loader) EnsureUserConfig() error {
	userPath := l.userConfigPath()
	if userPath == "" {
		return nil
	}
	if _, err := os.Stat(userPath); err == nil {
		return nil
	}
	if err := DefaultConfig().SaveToFile(userPath); err != nil {
		return err
	}
	l.logger.Info("created default user config", slog.String("path", userPath))
	return nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir := cwd
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// SelectFiles walks root and returns every regular file matching at least
// one of cfg.Files.Include and none of cfg.Files.Exclude, as paths relative
// to root — the glob-filtered file set the Collector's input contract
// (spec.md §6) needs ahead of the entry module itself.
func (c *Config) SelectFiles() ([]string, error) {
	var matched []string
	err := filepath.WalkDir(c.Files.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.Files.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(c.Files.Include, rel) {
			return nil
		}
		if matchesAny(c.Files.Exclude, rel) {
			return nil
		}
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
