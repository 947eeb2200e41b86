package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"audit", "targets", "history", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "schema-audit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAuditCommand_Flags(t *testing.T) {
	for _, name := range []string{"from-registry", "dry-run", "targets"} {
		require.NotNil(t, auditCmd.Flags().Lookup(name), "audit command should have --%s flag", name)
	}
	assert.Equal(t, "false", auditCmd.Flags().Lookup("dry-run").DefValue)
}

func TestTargetsCommand_Flags(t *testing.T) {
	flag := targetsCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "4", flag.DefValue)
}

func TestHistoryCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range historyCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "check", "export", "stats"} {
		assert.True(t, names[name], "expected history subcommand %q not found", name)
	}
}

func TestHistoryExport_Flags(t *testing.T) {
	flag := historyExportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)

	stats := historyStatsCmd.Flags().Lookup("format")
	require.NotNil(t, stats)
	assert.Equal(t, "text", stats.DefValue)
}

func TestHistoryCheck_RequiresArg(t *testing.T) {
	assert.Error(t, historyCheckCmd.Args(historyCheckCmd, nil))
	assert.NoError(t, historyCheckCmd.Args(historyCheckCmd, []string{"https://example.com/a.csv"}))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
