package cmd

import (
	"encoding/json"
	"github.com/crytic/symheap/cmd/exitcodes"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/history"
	"github.com/crytic/symheap/scenario"
	"github.com/crytic/symheap/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitWritesConfig runs the init command and reads back the configuration it wrote.
func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symheap.toml")
	examplePath := filepath.Join(dir, "example.json")
	rootCmd.SetArgs([]string{"init", "--out", path, "--example", examplePath, "--ownership", "pure", "--report-format", "cbor"})
	require.NoError(t, rootCmd.Execute())

	projectConfig, err := config.ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.OwnershipPure, projectConfig.Engine.OwnershipMode)
	assert.Equal(t, config.ReportCBOR, projectConfig.Engine.ReportFormat)

	example, err := scenario.Load(examplePath, projectConfig.Engine.ScenarioFormat)
	require.NoError(t, err)
	assert.Equal(t, scenario.Example(), example)

	// Declining the overwrite prompt keeps the existing configuration
	rootCmd.SetIn(strings.NewReader("n\n"))
	defer rootCmd.SetIn(nil)
	rootCmd.SetArgs([]string{"init", "--out", path, "--example", "", "--ownership", "owned"})
	require.NoError(t, rootCmd.Execute())
	projectConfig, err = config.ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.OwnershipPure, projectConfig.Engine.OwnershipMode)
}

// TestRunReportsFailures runs a passing and a failing scenario and checks the exit code and report of the run.
func TestRunReportsFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Engine.Workers = 2
	projectConfig.Logging.EnableConsoleLogging = false
	projectConfig.Logging.LogDirectory = filepath.Join(dir, "logs")
	configPath := filepath.Join(dir, "symheap.json")
	require.NoError(t, projectConfig.WriteToFile(configPath))

	field := `{"kind": "field", "type": "Point", "field": "x", "sort": "bv32"}`
	passing := write("passing.json", `{"version": "1.0.0", "steps": [
		{"op": "alloc", "bind": "a"},
		{"op": "write", "region": `+field+`, "ref": "a", "value": "4"},
		{"op": "read", "region": `+field+`, "ref": "a", "expect": "4"}
	]}`)
	failing := write("failing.json", `{"version": "1.0.0", "steps": [
		{"op": "alloc", "bind": "a"},
		{"op": "read", "region": `+field+`, "ref": "a", "expect": "4"}
	]}`)
	reportPath := filepath.Join(dir, "report.json")
	historyPath := filepath.Join(dir, "history", "runs.db")

	rootCmd.SetArgs([]string{"run", "--config", configPath, "--report", reportPath, "--history", historyPath, passing, failing})
	err := rootCmd.Execute()
	_, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	assert.Equal(t, exitcodes.ExitCodeTestFailed, exitCode)

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	reports, err := scenario.DecodeReports(b, config.ReportJSON)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "passing", reports[0].Name)
	assert.False(t, reports[0].Failed())
	assert.Equal(t, "failing", reports[1].Name)
	assert.True(t, reports[1].Failed())

	store, err := history.Open(historyPath)
	require.NoError(t, err)
	s, err := scenario.Load(failing, projectConfig.Engine.ScenarioFormat)
	require.NoError(t, err)
	runs, err := store.Runs(s)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Report.Failed())
	require.NoError(t, store.Close())

	logs, err := os.ReadDir(projectConfig.Logging.LogDirectory)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	// A scenario in an unsupported format is rejected before anything runs
	future := write("future.json", `{"version": "9.0.0", "steps": []}`)
	rootCmd.SetArgs([]string{"run", "--config", configPath, future})
	err = rootCmd.Execute()
	_, exitCode = exitcodes.GetInnerErrorAndExitCode(err)
	assert.Equal(t, exitcodes.ExitCodeScenarioError, exitCode)
}

// TestCompletion generates the completion script of every supported shell and rejects unknown shells.
func TestCompletion(t *testing.T) {
	assert.Equal(t, []string{"bash", "fish", "powershell", "zsh"}, completionShells())

	for _, shell := range completionShells() {
		var out strings.Builder
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"completion", shell})
		require.NoError(t, rootCmd.Execute(), shell)
		assert.Contains(t, out.String(), "symheap", shell)
	}
	rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, rootCmd.Execute())
}

// TestVersionJSON prints the build information as JSON and decodes it back.
func TestVersionJSON(t *testing.T) {
	var out strings.Builder
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"version", "--json"})
	require.NoError(t, rootCmd.Execute())

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out.String()), &info))
	assert.Equal(t, version.GetInfo(), info)
}
