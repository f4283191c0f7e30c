package main

import (
	"fmt"
	"github.com/crytic/symheap/cmd"
	"github.com/crytic/symheap/cmd/exitcodes"
	"os"
)

func main() {
	err, exitCode := exitcodes.GetInnerErrorAndExitCode(cmd.Execute())

	// Scenario errors were logged with their context by the run command
	if err != nil && exitCode != exitcodes.ExitCodeScenarioError {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode)
}
