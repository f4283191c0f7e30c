package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeScenarioError indicates that a scenario could not be loaded or run. The error has already been logged
	// when it reaches the top-level. Note that an error with error code ExitCodeGeneralError and ExitCodeScenarioError
	// are mutually exclusive errors
	ExitCodeScenarioError = 6

	// ExitCodeTestFailed indicates an expectation of a scenario was not met.
	ExitCodeTestFailed = 7
)
