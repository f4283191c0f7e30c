package version

import (
	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// TestInfoString checks the rendering of build information with and without VCS metadata.
func TestInfoString(t *testing.T) {
	info := Info{Version: "1.2.3", ScenarioFormat: "1.0.0", GoVersion: "go1.23.3"}
	assert.Equal(t, "1.2.3", info.Short())
	assert.Equal(t, "symheap version 1.2.3\n  Scenario format: 1.0.0\n  Go version:      go1.23.3\n", info.String())

	info.GitCommit = "0123456789abcdef"
	info.GitTreeDirty = true
	info.GitCommitTime = "2026-01-02T03:04:05Z"
	assert.Equal(t, "1.2.3+0123456-dirty", info.Short())
	assert.Contains(t, info.String(), "Commit:          0123456-dirty\n")
	assert.Contains(t, info.String(), "Built:           2026-01-02 03:04:05 UTC\n")
}

// TestVersionsAreSemantic ensures the build and scenario format versions parse as semantic versions.
func TestVersionsAreSemantic(t *testing.T) {
	_, err := semver.NewVersion(GetInfo().Version)
	require.NoError(t, err)
	_, err = semver.NewVersion(ScenarioFormat)
	require.NoError(t, err)
}
