package cmd

import (
	"fmt"
	"github.com/crytic/symheap/config"
	"github.com/spf13/cobra"
)

// addRunFlags adds the various flags for the run command
func addRunFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	runCmd.Flags().SortFlags = false

	// Config file
	runCmd.Flags().String("config", "", "path to config file")

	// Number of workers
	runCmd.Flags().Int("workers", 0,
		fmt.Sprintf("number of scenarios run in parallel (unless a config file is provided, default is %d)", defaultConfig.Engine.Workers))

	// Ownership mode
	runCmd.Flags().String("ownership", "",
		fmt.Sprintf("ownership mode of the heaps, owned or pure (unless a config file is provided, default is %q)", defaultConfig.Engine.OwnershipMode))

	// Report output
	runCmd.Flags().String("report", "", "path of the report file to write")
	runCmd.Flags().String("report-format", "",
		fmt.Sprintf("encoding of the report file, json or cbor (unless a config file is provided, default is %q)", defaultConfig.Engine.ReportFormat))

	// Run history
	runCmd.Flags().String("history", "", "path of the database recording the reports of every run")

	// Stop on failure
	runCmd.Flags().Bool("stop-on-failure", false,
		fmt.Sprintf("stop each scenario at its first failed step (unless a config file is provided, default is %t)", defaultConfig.Engine.StopOnFailure))
	return nil
}

// updateProjectConfigWithRunFlags will update the given projectConfig with any CLI arguments that were provided to the
// run command
func updateProjectConfigWithRunFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Engine.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update ownership mode
	if cmd.Flags().Changed("ownership") {
		mode, err := cmd.Flags().GetString("ownership")
		if err != nil {
			return err
		}
		projectConfig.Engine.OwnershipMode = config.OwnershipMode(mode)
	}

	// Update report output
	if cmd.Flags().Changed("report") {
		projectConfig.Engine.ReportPath, err = cmd.Flags().GetString("report")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("report-format") {
		format, err := cmd.Flags().GetString("report-format")
		if err != nil {
			return err
		}
		projectConfig.Engine.ReportFormat = config.ReportFormat(format)
	}

	// Update run history
	if cmd.Flags().Changed("history") {
		projectConfig.Engine.HistoryPath, err = cmd.Flags().GetString("history")
		if err != nil {
			return err
		}
	}

	// Update stop on failure
	if cmd.Flags().Changed("stop-on-failure") {
		projectConfig.Engine.StopOnFailure, err = cmd.Flags().GetBool("stop-on-failure")
		if err != nil {
			return err
		}
	}
	return nil
}
