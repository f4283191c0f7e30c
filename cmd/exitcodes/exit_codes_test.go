package exitcodes

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

// TestGetInnerErrorAndExitCode checks the exit codes derived from nil, generic and wrapped errors.
func TestGetInnerErrorAndExitCode(t *testing.T) {
	err, code := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, code)

	generic := errors.New("config not found")
	err, code = GetInnerErrorAndExitCode(generic)
	assert.Same(t, generic, err)
	assert.Equal(t, ExitCodeGeneralError, code)

	err, code = GetInnerErrorAndExitCode(NewErrorWithExitCode(generic, ExitCodeScenarioError))
	assert.Same(t, generic, err)
	assert.Equal(t, ExitCodeScenarioError, code)

	// Failed expectations carry no error of their own
	wrapped := NewErrorWithExitCode(nil, ExitCodeTestFailed)
	assert.Empty(t, wrapped.Error())
	err, code = GetInnerErrorAndExitCode(wrapped)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeTestFailed, code)
}

// TestExitCodeSurvivesWrapping checks that exit codes are found behind wrapping errors.
func TestExitCodeSurvivesWrapping(t *testing.T) {
	inner := errors.New("unknown region kind")
	err := errors.Wrap(NewErrorWithExitCode(inner, ExitCodeScenarioError), "scenario copy.json")

	unwrapped, code := GetInnerErrorAndExitCode(err)
	assert.Same(t, inner, unwrapped)
	assert.Equal(t, ExitCodeScenarioError, code)
	assert.ErrorIs(t, err, inner)
}
