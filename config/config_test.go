package config

import (
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfigIsValid ensures the default configuration passes validation.
func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, GetDefaultProjectConfig().Validate())
}

// TestConfigRoundTrip writes a modified configuration in both supported formats and verifies reading it back yields
// the same configuration.
func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"symheap.json", "symheap.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := GetDefaultProjectConfig()
			cfg.Engine.Workers = 3
			cfg.Engine.OwnershipMode = OwnershipPure
			cfg.Engine.ReportFormat = ReportCBOR
			cfg.Engine.ReportPath = "report.cbor"
			cfg.Engine.StopOnFailure = true
			cfg.Engine.HistoryPath = "history/runs.db"
			cfg.Logging.Level = zerolog.DebugLevel
			cfg.Logging.LogDirectory = "logs"

			path := filepath.Join(dir, name)
			require.NoError(t, cfg.WriteToFile(path))

			read, err := ReadProjectConfigFromFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(cfg, read); diff != "" {
				t.Errorf("configuration mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestPartialConfigKeepsDefaults checks that fields missing from a configuration file keep their default values.
func TestPartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"engine": {"workers": 7}}`), 0644))
	tomlPath := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[engine]\nownershipMode = \"pure\"\n"), 0644))

	expected := GetDefaultProjectConfig()
	expected.Engine.Workers = 7
	read, err := ReadProjectConfigFromFile(jsonPath)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(expected, read))

	expected = GetDefaultProjectConfig()
	expected.Engine.OwnershipMode = OwnershipPure
	read, err = ReadProjectConfigFromFile(tomlPath)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(expected, read))
}

// TestReadInvalidConfig verifies that unreadable and malformed files are reported.
func TestReadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadProjectConfigFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = ReadProjectConfigFromFile(path)
	assert.Error(t, err)
}

// TestValidate checks every validation rule of the configuration.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ProjectConfig)
	}{
		{"no workers", func(c *ProjectConfig) { c.Engine.Workers = 0 }},
		{"unknown ownership mode", func(c *ProjectConfig) { c.Engine.OwnershipMode = "shared" }},
		{"bad scenario constraint", func(c *ProjectConfig) { c.Engine.ScenarioFormat = "not a version" }},
		{"unknown report format", func(c *ProjectConfig) { c.Engine.ReportFormat = "xml" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := GetDefaultProjectConfig()
			test.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
