package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "index.ts", cfg.Entry.ModulePath)
	require.ElementsMatch(t, []string{"public", "beta", "alpha", "internal"}, cfg.Release.Allowed)
}

func TestValidate_RejectsMissingPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Entry.ModulePath = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownReleaseTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Release.Allowed = []string{"experimental"}
	require.Error(t, cfg.Validate())
}

func TestLoadFromFile_OverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, DefaultConfig().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Entry.ModulePath, cfg.Entry.ModulePath)
}

func TestLoadFromFile_PartialFileKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, writeString(path, "entry:\n  modulePath: src/index.ts\n"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "src/index.ts", cfg.Entry.ModulePath)
	require.Equal(t, DefaultConfig().Files.Include, cfg.Files.Include)
}

func TestMerge_OnlyOverridesNonZeroFields(t *testing.T) {
	base := DefaultConfig()
	override := &Config{Entry: EntryConfig{ModulePath: "lib/index.ts"}}
	base.Merge(override)

	require.Equal(t, "lib/index.ts", base.Entry.ModulePath)
	require.Equal(t, DefaultConfig().Entry.ReviewFilePath, base.Entry.ReviewFilePath)
}

func TestSelectFiles_MatchesIncludeAndRespectsExclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeString(filepath.Join(dir, "a.ts"), "export const a = 1;\n"))
	require.NoError(t, writeString(filepath.Join(dir, "a.test.ts"), "test('x', () => {});\n"))
	require.NoError(t, writeString(filepath.Join(dir, "a.d.ts"), "declare const a: number;\n"))

	cfg := DefaultConfig()
	cfg.Files.Root = dir

	files, err := cfg.SelectFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"a.ts"}, files)
}

func writeString(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
