package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "symheap.json"

// DefaultLogFilePrefix describes the prefix of the structured log files written to the configured log directory.
const DefaultLogFilePrefix = "symheap-"
