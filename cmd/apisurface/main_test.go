package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedFlagsOverride_OnlySetFlagsArePopulated(t *testing.T) {
	flags := sharedFlags{entryPath: "index.ts", localBuild: true}
	cfg := flags.override()

	require.Equal(t, "index.ts", cfg.Entry.ModulePath)
	require.True(t, cfg.Entry.LocalBuild)
	require.Equal(t, "", cfg.Telemetry.MetricsAddr)
	require.Equal(t, "", cfg.NATS.URL)
}

func TestRunDiff_EquivalentFilesPrintEquivalentAndReturnNil(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.api.md")
	b := filepath.Join(dir, "b.api.md")
	require.NoError(t, os.WriteFile(a, []byte("export class Box {}\n\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("export class Box {}\n"), 0o644))

	require.NoError(t, runDiff(a, b))
}
