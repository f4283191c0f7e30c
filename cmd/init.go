package cmd

import (
	"encoding/json"
	"fmt"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/logging/colors"
	"github.com/crytic/symheap/scenario"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"os"
	"path/filepath"
	"strings"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init",
	Short:             "Initializes a project configuration",
	Long:              `Initializes a project configuration, and optionally an example scenario to start from`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidInitArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	err := addInitFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the init command", err)
	}
	rootCmd.AddCommand(initCmd)
}

// cmdValidInitArgs will return which flags are valid for dynamic completion for the init command
func cmdValidInitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return cmdValidFlags(cmd), cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateInitArgs makes sure that there are no positional arguments provided to the init command
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("init does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}
	return nil
}

// confirmOverwrite asks the user whether the file at path may be overwritten. It returns true without asking if the
// file does not exist.
func confirmOverwrite(cmd *cobra.Command, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return true, nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "The file %s already exists. Overwrite? (y/n): ", path)
	var response string
	if _, err := fmt.Fscan(cmd.InOrStdin(), &response); err != nil {
		return false, errors.WithStack(err)
	}
	return strings.EqualFold(response, "y"), nil
}

// writeExampleScenario writes the example scenario as indented JSON to path.
func writeExampleScenario(path string) error {
	b, err := json.MarshalIndent(scenario.Example(), "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, b, 0644))
}

// cmdRunInit executes the init CLI command: it writes the default project configuration, updated with any flags, and
// the example scenario if requested. Existing files are only replaced once the user confirms.
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	// Without --out, the configuration is written to the working directory
	if !cmd.Flags().Changed("out") {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}
	examplePath, err := cmd.Flags().GetString("example")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	projectConfig := config.GetDefaultProjectConfig()
	err = updateProjectConfigWithInitFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	outputs := []struct {
		path  string
		what  string
		write func(string) error
	}{
		{outputPath, "Project configuration", projectConfig.WriteToFile},
		{examplePath, "Example scenario", writeExampleScenario},
	}
	for _, output := range outputs {
		if output.path == "" {
			continue
		}
		overwrite, err := confirmOverwrite(cmd, output.path)
		if err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}
		if !overwrite {
			cmdLogger.Info(output.what, " left unchanged at: ", colors.Bold, output.path, colors.Reset)
			continue
		}
		if err = output.write(output.path); err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		if absolutePath, err := filepath.Abs(output.path); err == nil {
			output.path = absolutePath
		}
		cmdLogger.Info(output.what, " successfully output to: ", colors.Bold, output.path, colors.Reset)
	}
	return nil
}
