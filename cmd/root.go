package cmd

import (
	"github.com/crytic/symheap/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger of the CLI. It always logs to console, regardless of the project configuration.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel, true).NewSubLogger(logging.SERVICE_KEY, logging.CLI_SERVICE)

var rootCmd = &cobra.Command{
	Use:   "symheap",
	Short: "A symbolic heap model for symbolic execution engines",
	Long:  "symheap runs scripted scenarios against a symbolic heap: allocated and input regions of arrays, fields, sets and maps, with copies, unions, merges and forks of execution states",
}

// Execute runs the root command with the arguments of the process.
func Execute() error {
	return rootCmd.Execute()
}
