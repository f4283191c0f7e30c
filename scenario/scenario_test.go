package scenario

import (
	"context"
	"fmt"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/logging/colors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Region descriptions shared by the scenarios below.
const (
	intArray = `{"kind": "array", "type": "int[]", "sort": "bv32"}`
	pointX   = `{"kind": "field", "type": "Point", "field": "x", "sort": "bv32"}`
	intSet   = `{"kind": "set", "type": "IntSet", "keySort": "bv32"}`
	intMap   = `{"kind": "map", "type": "IntMap", "keySort": "bv32", "sort": "bv32"}`
)

// mustParse parses a scenario whose steps are formatted with the region descriptions above.
func mustParse(t *testing.T, format string, args ...any) *Scenario {
	t.Helper()
	s, err := Parse([]byte(fmt.Sprintf(format, args...)), t.Name())
	require.NoError(t, err)
	return s
}

// run runs the scenario with the default engine configuration.
func run(t *testing.T, s *Scenario) *Report {
	t.Helper()
	report, err := Run(context.Background(), s, &config.GetDefaultProjectConfig().Engine)
	require.NoError(t, err)
	return report
}

// requirePassed fails the test with the report summary unless every step passed.
func requirePassed(t *testing.T, report *Report) {
	t.Helper()
	require.False(t, report.Failed(), report.Summary().String())
}

// TestRunArrayCopy writes three elements to an array, copies them to a second array and reads them back.
func TestRunArrayCopy(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"name": "array copy",
		"steps": [
			{"op": "alloc", "bind": "a", "region": %[1]s, "length": "3"},
			{"op": "write", "region": %[1]s, "ref": "a", "key": "0", "value": "10"},
			{"op": "write", "region": %[1]s, "ref": "a", "key": "1", "value": "20"},
			{"op": "write", "region": %[1]s, "ref": "a", "key": "2", "value": "30"},
			{"op": "alloc", "bind": "b", "region": %[1]s, "length": "3"},
			{"op": "memcpy", "region": %[1]s, "src": "a", "dst": "b", "srcFrom": "0", "dstFrom": "0", "dstTo": "2"},
			{"op": "read", "region": %[1]s, "ref": "b", "key": "2", "expect": "30"},
			{"op": "read", "region": %[1]s, "ref": "b", "key": "5", "expect": "0"},
			{"op": "length", "region": %[1]s, "ref": "b", "expect": "3"}
		]
	}`, intArray)

	report := run(t, s)
	requirePassed(t, report)
	assert.Equal(t, "array copy", report.Name)
	assert.Len(t, report.Steps, 9)
	assert.Equal(t, "30", report.Steps[6].Result)
	assert.Equal(t, 1, report.Heaps)
}

// TestRunBranchingAndFork writes through a branching reference and checks that forked heaps are isolated.
func TestRunBranchingAndFork(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"steps": [
			{"op": "alloc", "bind": "a"},
			{"op": "alloc", "bind": "b"},
			{"op": "init", "region": %[1]s, "ref": "a", "values": ["1", "2"]},
			{"op": "write", "region": %[1]s, "ref": "(ite c a b)", "key": "0", "value": "5"},
			{"op": "read", "region": %[1]s, "ref": "a", "key": "0", "expect": "(ite c 5 1)"},
			{"op": "read", "region": %[1]s, "ref": "b", "key": "0", "expect": "(ite (not c) 5 0)"},
			{"op": "fork", "bind": "child"},
			{"op": "write", "heap": "child", "region": %[2]s, "ref": "a", "value": "7"},
			{"op": "read", "region": %[2]s, "ref": "a", "expect": "0"},
			{"op": "read", "heap": "child", "region": %[2]s, "ref": "a", "expect": "7"},
			{"op": "alloc", "heap": "child", "bind": "c2"},
			{"op": "read", "heap": "child", "region": %[2]s, "ref": "c2", "expect": "0"}
		]
	}`, intArray, pointX)

	report := run(t, s)
	requirePassed(t, report)
	assert.Equal(t, t.Name(), report.Name)
	assert.Equal(t, 2, report.Heaps)
	assert.Equal(t, "child", report.Steps[9].Heap)
}

// TestRunPureMode checks that scenarios give the same results when every update copies.
func TestRunPureMode(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"steps": [
			{"op": "alloc", "bind": "a"},
			{"op": "write", "region": %[1]s, "ref": "a", "value": "1"},
			{"op": "fork", "bind": "child"},
			{"op": "write", "region": %[1]s, "ref": "a", "value": "2"},
			{"op": "read", "heap": "child", "region": %[1]s, "ref": "a", "expect": "1"},
			{"op": "read", "region": %[1]s, "ref": "a", "expect": "2"}
		]
	}`, pointX)

	cfg := config.GetDefaultProjectConfig().Engine
	cfg.OwnershipMode = config.OwnershipPure
	report, err := Run(context.Background(), s, &cfg)
	require.NoError(t, err)
	requirePassed(t, report)
}

// TestRunSets checks set membership, unions under a guard, intersections and the completeness of element lists.
func TestRunSets(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"vars": {"g": "bool"},
		"steps": [
			{"op": "alloc", "bind": "s1"},
			{"op": "alloc", "bind": "s2"},
			{"op": "write", "region": %[1]s, "ref": "s1", "key": "1", "value": "true"},
			{"op": "write", "region": %[1]s, "ref": "s1", "key": "2", "value": "true"},
			{"op": "write", "region": %[1]s, "ref": "s1", "key": "3", "value": "true"},
			{"op": "write", "region": %[1]s, "ref": "s2", "key": "2", "value": "true"},
			{"op": "write", "region": %[1]s, "ref": "s2", "key": "3", "value": "true"},
			{"op": "write", "region": %[1]s, "ref": "s2", "key": "4", "value": "true"},
			{"op": "intersection", "region": %[1]s, "ref": "s1", "other": "s2", "expect": "2"},
			{"op": "alloc", "bind": "d"},
			{"op": "union", "region": %[1]s, "src": "s1", "dst": "d", "guard": "g"},
			{"op": "contains", "region": %[1]s, "ref": "d", "key": "1", "expect": "g"},
			{"op": "entries", "region": %[1]s, "ref": "s1", "values": ["3", "1", "2"], "expectComplete": true},
			{"op": "write", "region": %[1]s, "ref": "p", "key": "5", "value": "true"},
			{"op": "read", "region": %[1]s, "ref": "p", "key": "5", "expect": "true"},
			{"op": "entries", "region": %[1]s, "ref": "q", "values": ["5"], "expectComplete": false}
		]
	}`, intSet)

	report := run(t, s)
	requirePassed(t, report)
	assert.Equal(t, "[1 2 3]", report.Steps[12].Result)
}

// TestRunMaps checks map entries, lengths, removal and merging.
func TestRunMaps(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"steps": [
			{"op": "alloc", "bind": "m"},
			{"op": "write", "region": %[1]s, "ref": "m", "key": "1", "value": "10"},
			{"op": "write", "region": %[1]s, "ref": "m", "key": "2", "value": "20"},
			{"op": "length", "region": %[1]s, "ref": "m", "expect": "2"},
			{"op": "contains", "region": %[1]s, "ref": "m", "key": "1", "expect": "true"},
			{"op": "entries", "region": %[1]s, "ref": "m", "values": ["1", "2"], "expectComplete": true},
			{"op": "alloc", "bind": "m2"},
			{"op": "write", "region": %[1]s, "ref": "m2", "key": "3", "value": "30"},
			{"op": "merge", "region": %[1]s, "src": "m", "dst": "m2"},
			{"op": "read", "region": %[1]s, "ref": "m2", "key": "2", "expect": "20"},
			{"op": "read", "region": %[1]s, "ref": "m2", "key": "3", "expect": "30"},
			{"op": "contains", "region": %[1]s, "ref": "m2", "key": "2", "expect": "true"},
			{"op": "length", "region": %[1]s, "ref": "m2", "expect": "3"},
			{"op": "remove", "region": %[1]s, "ref": "m", "key": "1"},
			{"op": "contains", "region": %[1]s, "ref": "m", "key": "1", "expect": "false"},
			{"op": "length", "region": %[1]s, "ref": "m", "expect": "1"},
			{"op": "put", "region": %[1]s, "ref": "m", "key": "7", "value": "70"},
			{"op": "read", "region": %[1]s, "ref": "m", "key": "7", "expect": "70"},
			{"op": "length", "region": %[1]s, "ref": "m", "expect": "1"}
		]
	}`, intMap)

	report := run(t, s)
	requirePassed(t, report)
}

// TestRunFailuresAndViolations checks that unmet expectations and contract violations are reported, and that a heap
// is aborted after an unexpected violation.
func TestRunFailuresAndViolations(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"steps": [
			{"op": "alloc", "bind": "a"},
			{"op": "write", "region": %[1]s, "ref": "null", "key": "1", "value": "true", "expectViolation": true},
			{"op": "read", "region": %[2]s, "ref": "a", "expect": "1"},
			{"op": "read", "region": %[2]s, "ref": "a", "expectViolation": true},
			{"op": "read", "region": %[2]s, "ref": "#42"},
			{"op": "read", "region": %[2]s, "ref": "a", "expect": "0"}
		]
	}`, intSet, pointX)

	report := run(t, s)
	assert.True(t, report.Failed())
	assert.Equal(t, 4, report.Failures)
	assert.Equal(t, 2, report.Violations)

	passed := make([]bool, len(report.Steps))
	for i, step := range report.Steps {
		passed[i] = step.Passed
	}
	assert.Equal(t, []bool{true, true, false, false, false, false}, passed)
	assert.NotEmpty(t, report.Steps[1].Violation)
	assert.Equal(t, "expected 1, got 0", report.Steps[2].Failure)
	assert.Equal(t, "expected a contract violation", report.Steps[3].Failure)
	assert.Equal(t, "unexpected contract violation", report.Steps[4].Failure)
	assert.Equal(t, "heap aborted by an earlier contract violation", report.Steps[5].Failure)

	// The summary lists every failed step
	colors.DisableColor()
	defer colors.EnableColor()
	summary := report.Summary().String()
	assert.Contains(t, summary, "[FAILED]")
	assert.Contains(t, summary, "step 4 (read on main): unexpected contract violation")

	// Stopping at the first failure
	cfg := config.GetDefaultProjectConfig().Engine
	cfg.StopOnFailure = true
	report, err := Run(context.Background(), s, &cfg)
	require.NoError(t, err)
	assert.Len(t, report.Steps, 3)
}

// TestRunMalformedScenarios verifies that scenarios which cannot be run are reported as errors.
func TestRunMalformedScenarios(t *testing.T) {
	tests := map[string]string{
		"unknown operation": `{"op": "resize", "region": %[1]s, "ref": "a"}`,
		"unknown heap":      `{"op": "read", "heap": "other", "region": %[1]s, "ref": "a", "key": "0"}`,
		"missing region":    `{"op": "read", "ref": "a", "key": "0"}`,
		"missing key":       `{"op": "read", "region": %[1]s, "ref": "a"}`,
		"bad term":          `{"op": "read", "region": %[1]s, "ref": "(ite a", "key": "0"}`,
		"bad region":        `{"op": "read", "region": {"kind": "queue", "type": "Q"}, "ref": "a", "key": "0"}`,
		"unbound alloc":     `{"op": "alloc"}`,
		"duplicate fork":    `{"op": "fork", "bind": "main"}`,
		"ill-sorted expect": `{"op": "read", "region": %[1]s, "ref": "a", "key": "0", "expect": "true"}`,
	}
	for name, step := range tests {
		t.Run(name, func(t *testing.T) {
			step = strings.ReplaceAll(step, "%[1]s", intArray)
			s, err := Parse([]byte(`{"version": "1.0.0", "steps": [{"op": "alloc", "bind": "a"}, `+step+`]}`), name)
			require.NoError(t, err)
			_, err = Run(context.Background(), s, &config.GetDefaultProjectConfig().Engine)
			assert.Error(t, err)
		})
	}
}

// TestRunCancelled checks that a cancelled context stops the scenario.
func TestRunCancelled(t *testing.T) {
	s := mustParse(t, `{"version": "1.0.0", "steps": [{"op": "alloc", "bind": "a"}]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, s, &config.GetDefaultProjectConfig().Engine)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRunAllKeepsOrder runs several scenarios in parallel and checks the reports are returned in order.
func TestRunAllKeepsOrder(t *testing.T) {
	var scenarios []*Scenario
	for i := 0; i < 8; i++ {
		scenarios = append(scenarios, mustParse(t, `{
			"version": "1.0.0",
			"name": "scenario %d",
			"steps": [
				{"op": "alloc", "bind": "a"},
				{"op": "write", "region": %s, "ref": "a", "value": "%d"},
				{"op": "read", "region": %s, "ref": "a", "expect": "%d"}
			]
		}`, i, pointX, i, pointX, i))
	}

	cfg := config.GetDefaultProjectConfig().Engine
	cfg.Workers = 3
	reports, err := RunAll(context.Background(), scenarios, &cfg)
	require.NoError(t, err)
	require.Len(t, reports, len(scenarios))
	for i, report := range reports {
		assert.Equal(t, fmt.Sprintf("scenario %d", i), report.Name)
		assert.False(t, report.Failed())
	}

	// One malformed scenario fails the whole run
	scenarios = append(scenarios, mustParse(t, `{"version": "1.0.0", "steps": [{"op": "resize"}]}`))
	_, err = RunAll(context.Background(), scenarios, &cfg)
	assert.Error(t, err)
}

// TestLoadChecksVersion verifies that scenario files are named after their file and checked against the format
// constraint.
func TestLoadChecksVersion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	s, err := Load(write("copy.json", `{"version": "1.2.0", "steps": []}`), "^1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "copy", s.Name)

	_, err = Load(write("future.json", `{"version": "2.0.0", "steps": []}`), "^1.0.0")
	assert.Error(t, err)
	_, err = Load(write("unversioned.json", `{"steps": []}`), "^1.0.0")
	assert.Error(t, err)
	_, err = Load(write("broken.json", `{"steps": [`), "^1.0.0")
	assert.Error(t, err)
	_, err = Load(filepath.Join(dir, "missing.json"), "^1.0.0")
	assert.Error(t, err)
}

// TestWriteReports writes reports in both formats and reads them back.
func TestWriteReports(t *testing.T) {
	s := mustParse(t, `{
		"version": "1.0.0",
		"steps": [
			{"op": "alloc", "bind": "a"},
			{"op": "read", "region": %[1]s, "ref": "a", "expect": "3"},
			{"op": "read", "region": %[1]s, "ref": "#9"}
		]
	}`, pointX)
	reports := []*Report{run(t, s)}

	for _, format := range []config.ReportFormat{config.ReportJSON, config.ReportCBOR} {
		path := filepath.Join(t.TempDir(), "report."+string(format))
		require.NoError(t, WriteReports(path, reports, format))

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		decoded, err := DecodeReports(b, format)
		require.NoError(t, err)
		if diff := cmp.Diff(reports, decoded); diff != "" {
			t.Errorf("%s report mismatch (-want +got):\n%s", format, diff)
		}
	}

	_, err := EncodeReports(reports, "xml")
	assert.Error(t, err)
}

// TestDigestTracksContents verifies that the digest of a scenario changes with its contents but not its encoding.
func TestDigestTracksContents(t *testing.T) {
	first := mustParse(t, `{"version": "1.0.0", "name": "d", "steps": [{"op": "alloc", "bind": "a"}]}`)
	spaced := mustParse(t, `{
		"name": "d",
		"version": "1.0.0",
		"steps": [ {"bind": "a", "op": "alloc"} ]
	}`)
	edited := mustParse(t, `{"version": "1.0.0", "name": "d", "steps": [{"op": "alloc", "bind": "b"}]}`)

	digest, err := first.Digest()
	require.NoError(t, err)
	assert.Len(t, digest, 32)

	other, err := spaced.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, other)

	other, err = edited.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

// TestExampleScenarioPasses runs the scenario written by the init command.
func TestExampleScenarioPasses(t *testing.T) {
	report := run(t, Example())
	requirePassed(t, report)
	assert.Len(t, report.Steps, 7)
	assert.Equal(t, 2, report.Heaps)
}
