package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// withHome points $HOME at an empty temp dir so userConfigPath resolves
// somewhere with no config.yaml, isolating the test from the real
// developer's machine.
func withHome(t *testing.T, home string) {
	t.Helper()
	orig, had := os.LookupEnv("HOME")
	require.NoError(t, os.Setenv("HOME", home))
	t.Cleanup(func() {
		if had {
			os.Setenv("HOME", orig)
		} else {
			os.Unsetenv("HOME")
		}
	})
}

func TestLoader_Load_NoFilesReturnsValidatedDefaults(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	projectDir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(projectDir))
	t.Cleanup(func() { os.Chdir(orig) })

	l := NewLoader(nil)
	cfg, err := l.Load(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Entry.ModulePath, cfg.Entry.ModulePath)
}

func TestLoader_Load_ProjectConfigOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, ProjectConfigFile),
		[]byte("entry:\n  modulePath: src/index.ts\n"),
		0o644,
	))
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(projectDir))
	t.Cleanup(func() { os.Chdir(orig) })

	l := NewLoader(nil)
	cfg, err := l.Load(nil)
	require.NoError(t, err)
	require.Equal(t, "src/index.ts", cfg.Entry.ModulePath)
}

func TestLoader_Load_OverrideWinsOverProjectConfig(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, ProjectConfigFile),
		[]byte("entry:\n  modulePath: src/index.ts\n"),
		0o644,
	))
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(projectDir))
	t.Cleanup(func() { os.Chdir(orig) })

	l := NewLoader(nil)
	override := &Config{Entry: EntryConfig{ModulePath: "cli/override.ts"}}
	cfg, err := l.Load(override)
	require.NoError(t, err)
	require.Equal(t, "cli/override.ts", cfg.Entry.ModulePath)
}

func TestLoader_EnsureUserConfig_WritesDefaultOnce(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	l := NewLoader(nil)
	require.NoError(t, l.EnsureUserConfig())

	path := filepath.Join(home, UserConfigDir, UserConfigFile)
	require.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	modTime := info.ModTime()

	require.NoError(t, l.EnsureUserConfig())
	info2, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, modTime, info2.ModTime())
}
