package logging

import (
	"bytes"
	"encoding/json"
	"github.com/crytic/symheap/logging/colors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

// TestAddAndRemoveWriter ensures that writers are added once and removed again.
func TestAddAndRemoveWriter(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel, false)

	var structured, unstructured bytes.Buffer
	logger.AddWriter(&structured, STRUCTURED)
	logger.AddWriter(&structured, STRUCTURED)
	logger.AddWriter(&unstructured, UNSTRUCTURED)
	assert.Equal(t, 2, logger.Writers())

	logger.RemoveWriter(&structured)
	assert.Equal(t, 1, logger.Writers())
	logger.RemoveWriter(&unstructured)
	assert.Equal(t, 0, logger.Writers())
	logger.AddWriter(&unstructured, UNSTRUCTURED)

	// Removing an unknown writer is a no-op
	logger.RemoveWriter(&bytes.Buffer{})
	assert.Equal(t, 1, logger.Writers())

	logger.Info("hello")
	assert.Empty(t, structured.String())
	assert.Contains(t, unstructured.String(), "hello")
}

// TestStructuredOutput checks that sub-logger context, structured info and errors reach structured writers.
func TestStructuredOutput(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel, false)
	var buf bytes.Buffer
	logger.AddWriter(&buf, STRUCTURED)

	sub := logger.NewSubLogger(SERVICE_KEY, HEAP_SERVICE)
	sub.Warn("forked ", 2, " heaps", StructuredLogInfo{"regions": 3}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "forked 2 heaps", entry["message"])
	assert.Equal(t, HEAP_SERVICE, entry[SERVICE_KEY])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, map[string]any{"regions": float64(3)}, entry["info"])

	// Messages below the level are dropped
	buf.Reset()
	sub.Debug("hidden")
	assert.Empty(t, buf.String())
}

// TestSubLoggerKeepsContextAcrossWriters checks that writers added after a sub-logger was derived still receive its
// context.
func TestSubLoggerKeepsContextAcrossWriters(t *testing.T) {
	sub := NewLogger(zerolog.InfoLevel, false).NewSubLogger(SCENARIO_KEY, "copy")
	var buf bytes.Buffer
	sub.AddWriter(&buf, STRUCTURED)
	sub.Info("done")
	assert.Contains(t, buf.String(), `"scenario":"copy"`)
}

// TestDisabledColors verifies that colorized messages are plain once colors are disabled.
func TestDisabledColors(t *testing.T) {
	colors.DisableColor()
	defer colors.EnableColor()

	buffer := NewLogBuffer()
	buffer.Append(colors.GreenBold, "passed", colors.Reset, " 3 steps")
	assert.Equal(t, "passed 3 steps", buffer.ColorString())
	assert.Equal(t, "passed 3 steps", buffer.String())
}

// TestLogBufferColors verifies that only the console rendering of a LogBuffer is colorized.
func TestLogBufferColors(t *testing.T) {
	colors.EnableColor()
	buffer := NewLogBuffer()
	buffer.Append(colors.Red, "failed")
	assert.Equal(t, "failed", buffer.String())
	assert.True(t, strings.HasPrefix(buffer.ColorString(), "\x1b["))
}
