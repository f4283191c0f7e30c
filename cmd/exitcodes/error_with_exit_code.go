package exitcodes

import "github.com/pkg/errors"

// ErrorWithExitCode pairs an error with the exit code the process should terminate with once the error reaches the
// top-level. The error may be nil when the exit code alone describes the outcome, as for failed scenarios.
type ErrorWithExitCode struct {
	err      error
	exitCode int
}

// NewErrorWithExitCode creates a new ErrorWithExitCode from the provided inner error and exit code.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
	}
}

// Error returns the message of the inner error, or the empty string if there is none.
func (e *ErrorWithExitCode) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Unwrap returns the inner error.
func (e *ErrorWithExitCode) Unwrap() error {
	return e.err
}

// GetInnerErrorAndExitCode returns the inner error and exit code carried by err: ExitCodeSuccess for a nil error,
// the attached code if an ErrorWithExitCode is found anywhere in the chain of err, and ExitCodeGeneralError
// otherwise.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	}
	var withCode *ErrorWithExitCode
	if errors.As(err, &withCode) {
		return withCode.err, withCode.exitCode
	}
	return err, ExitCodeGeneralError
}
