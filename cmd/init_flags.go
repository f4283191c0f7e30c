package cmd

import (
	"github.com/crytic/symheap/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file (a .toml extension writes TOML)")

	// Output path for the example scenario
	initCmd.Flags().String("example", "", "output path for an example scenario (none is written if empty)")

	// Engine options stored in the new configuration
	initCmd.Flags().String("ownership", "", "ownership mode of the heaps (owned or pure)")
	initCmd.Flags().String("report-format", "", "encoding of scenario reports (json or cbor)")
	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to
// the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if cmd.Flags().Changed("ownership") {
		mode, err := cmd.Flags().GetString("ownership")
		if err != nil {
			return err
		}
		projectConfig.Engine.OwnershipMode = config.OwnershipMode(mode)
	}
	if cmd.Flags().Changed("report-format") {
		format, err := cmd.Flags().GetString("report-format")
		if err != nil {
			return err
		}
		projectConfig.Engine.ReportFormat = config.ReportFormat(format)
	}
	return projectConfig.Validate()
}
