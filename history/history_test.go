package history

import (
	"context"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/scenario"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
	"time"
)

// runScenario parses and runs a scenario reading the field x of a fresh object, expecting the given value.
func runScenario(t *testing.T, expect string) (*scenario.Scenario, *scenario.Report) {
	s, err := scenario.Parse([]byte(`{"version": "1.0.0", "name": "field", "steps": [
		{"op": "alloc", "bind": "a"},
		{"op": "read", "region": {"kind": "field", "type": "Point", "field": "x", "sort": "bv32"}, "ref": "a", "expect": "`+expect+`"}
	]}`), "field")
	require.NoError(t, err)
	report, err := scenario.Run(context.Background(), s, &config.GetDefaultProjectConfig().Engine)
	require.NoError(t, err)
	return s, report
}

// TestRecordAndReadBack records two runs of a scenario and reads them back after reopening the store.
func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "runs.db")
	store, err := Open(path)
	require.NoError(t, err)

	s, passing := runScenario(t, "0")
	latest, err := store.Latest(s)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Record(s, passing, first))
	require.NoError(t, store.Record(s, passing, first.Add(time.Minute)))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Runs(s)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].At.Equal(first))
	if diff := cmp.Diff(passing, runs[1].Report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	latest, err = store.Latest(s)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.At.Equal(first.Add(time.Minute)))
}

// TestRegressed checks that a failing run is a regression only after a passing one of the same scenario.
func TestRegressed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	s, passing := runScenario(t, "0")
	changed, failing := runScenario(t, "1")
	assert.False(t, Regressed(nil, failing))

	require.NoError(t, store.Record(s, passing, time.Now()))
	previous, err := store.Latest(s)
	require.NoError(t, err)
	assert.True(t, Regressed(previous, failing))
	assert.False(t, Regressed(previous, passing))

	// Editing a scenario starts a new history
	previous, err = store.Latest(changed)
	require.NoError(t, err)
	assert.Nil(t, previous)
}
