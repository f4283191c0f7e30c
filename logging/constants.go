package logging

// These constants are the keys of the context added to sub-loggers
const (
	// SERVICE_KEY is the key identifying the package which logs
	SERVICE_KEY = "module"
	// HEAP_KEY is the key identifying the heap a log relates to
	HEAP_KEY = "heap"
	// SCENARIO_KEY is the key identifying the scenario a log relates to
	SCENARIO_KEY = "scenario"
)

// These constants are used to identify the various services that may do some logging
const (
	// HEAP_SERVICE is the constant used to identify the heap package
	HEAP_SERVICE = "heap"
	// SCENARIO_SERVICE is the constant used to identify the scenario package
	SCENARIO_SERVICE = "scenario"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
