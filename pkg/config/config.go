// Package config provides configuration loading and management for
// apisurface: the Collector input contract spec.md §6 names (entry module
// path, allowed release tags, local-build flag, compiler options) plus the
// include/exclude file selection the CLI layers on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the complete apisurface configuration.
type Config struct {
	Entry     EntryConfig     `yaml:"entry"`
	Release   ReleaseConfig   `yaml:"release"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Files     FilesConfig     `yaml:"files"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	NATS      NATSConfig      `yaml:"nats"`
}

// EntryConfig locates the package's entry module and its review/model
// output paths.
type EntryConfig struct {
	// ModulePath is the entry module's file path, relative to Files.Root.
	ModulePath string `yaml:"modulePath"`
	// PackageName is emitted into the Api Model's root canonicalReference
	// segment (spec.md §4.8's "scope/pkg" example).
	PackageName string `yaml:"packageName"`
	// ReviewFilePath is where the review file is written/compared.
	ReviewFilePath string `yaml:"reviewFilePath"`
	// ApiModelPath is where the JSON api model is written.
	ApiModelPath string `yaml:"apiModelPath"`
	// LocalBuild affects which warnings escalate to errors (spec.md §6).
	LocalBuild bool `yaml:"localBuild"`
}

// ReleaseConfig names the release tags this package permits.
type ReleaseConfig struct {
	// Allowed lists the release tags the package permits; Validate rejects
	// any entry other than public, beta, alpha or internal. The extraction
	// pipeline does not read it: a declaration carrying a tag outside the
	// list is neither rejected nor reported.
	Allowed []string `yaml:"allowed"`
}

// CompilerConfig carries the façade's tunables.
type CompilerConfig struct {
	// SkipLibCheck mirrors the tsconfig option name; unused by the
	// façade's minimal binder today but threaded through so a config file
	// written against a real compiler's options doesn't need editing to
	// be accepted here.
	SkipLibCheck bool `yaml:"skipLibCheck"`
}

// FilesConfig selects which files under Root participate in analysis.
type FilesConfig struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// TelemetryConfig configures the metrics server.
type TelemetryConfig struct {
	MetricsAddr string `yaml:"metricsAddr"`
}

// NATSConfig configures the optional extraction-completed notifier.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Entry: EntryConfig{
			ModulePath:     "index.ts",
			ReviewFilePath: "etc/review.api.md",
			ApiModelPath:   "etc/api-model.json",
		},
		Release: ReleaseConfig{
			Allowed: []string{"public", "beta", "alpha", "internal"},
		},
		Files: FilesConfig{
			Root:    ".",
			Include: []string{"**/*.ts", "**/*.tsx"},
			Exclude: []string{"**/*.test.ts", "**/*.d.ts", "**/node_modules/**"},
		},
		Telemetry: TelemetryConfig{
			MetricsAddr: "",
		},
		NATS: NATSConfig{
			Subject: "apisurface.extraction.completed",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Entry.ModulePath == "" {
		return fmt.Errorf("entry.modulePath is required")
	}
	if c.Entry.ReviewFilePath == "" {
		return fmt.Errorf("entry.reviewFilePath is required")
	}
	if c.Entry.ApiModelPath == "" {
		return fmt.Errorf("entry.apiModelPath is required")
	}
	for _, tag := range c.Release.Allowed {
		if !isKnownReleaseTag(tag) {
			return fmt.Errorf("release.allowed: unknown release tag %q", tag)
		}
	}
	return nil
}

func isKnownReleaseTag(tag string) bool {
	switch tag {
	case "public", "beta", "alpha", "internal":
		return true
	default:
		return false
	}
}

// LoadFromFile loads configuration from a YAML file, layered onto the
// defaults — fields absent from the file keep their default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories
// as needed.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge overlays other onto c, in place; other's non-zero values win.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Entry.ModulePath != "" {
		c.Entry.ModulePath = other.Entry.ModulePath
	}
	if other.Entry.PackageName != "" {
		c.Entry.PackageName = other.Entry.PackageName
	}
	if other.Entry.ReviewFilePath != "" {
		c.Entry.ReviewFilePath = other.Entry.ReviewFilePath
	}
	if other.Entry.ApiModelPath != "" {
		c.Entry.ApiModelPath = other.Entry.ApiModelPath
	}
	if other.Entry.LocalBuild {
		c.Entry.LocalBuild = true
	}

	if len(other.Release.Allowed) > 0 {
		c.Release.Allowed = other.Release.Allowed
	}

	if other.Compiler.SkipLibCheck {
		c.Compiler.SkipLibCheck = true
	}

	if other.Files.Root != "" {
		c.Files.Root = other.Files.Root
	}
	if len(other.Files.Include) > 0 {
		c.Files.Include = other.Files.Include
	}
	if len(other.Files.Exclude) > 0 {
		c.Files.Exclude = other.Files.Exclude
	}

	if other.Telemetry.MetricsAddr != "" {
		c.Telemetry.MetricsAddr = other.Telemetry.MetricsAddr
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
}
