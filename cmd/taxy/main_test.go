package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSucceedsOnFreshConfigRoot(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"validate", "--config-dir", dir})
	require.Equal(t, exitOK, code)
}

func TestValidateFailsWhenConfigRootIsARegularFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-directory")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	code := run([]string{"validate", "--config-dir", blocker})
	require.Equal(t, exitConfig, code)
}

func TestVersionSubcommandExitsOK(t *testing.T) {
	code := run([]string{"version"})
	require.Equal(t, exitOK, code)
}

func TestUnknownSubcommandReturnsUsageExitCode(t *testing.T) {
	code := run([]string{"bogus-command"})
	require.Equal(t, exitUsage, code)
}
