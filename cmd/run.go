package cmd

import (
	"context"
	"fmt"
	"github.com/crytic/symheap/cmd/exitcodes"
	"github.com/crytic/symheap/history"
	"github.com/crytic/symheap/logging/colors"
	"github.com/crytic/symheap/scenario"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"time"
)

// runCmd represents the command provider for running scenarios
var runCmd = &cobra.Command{
	Use:               "run <scenario files...>",
	Short:             "Runs heap scenarios",
	Long:              `Runs heap scenarios and checks the expectations of their steps`,
	Args:              cmdValidateRunArgs,
	ValidArgsFunction: cmdValidRunArgs,
	RunE:              cmdRunRun,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the run command
	err := addRunFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the run command", err)
	}

	// Add the run command and its associated flags to the root command
	rootCmd.AddCommand(runCmd)
}

// cmdValidRunArgs will return which flags are valid for dynamic completion for the run command. Scenario files are
// completed by the shell.
func cmdValidRunArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return cmdValidFlags(cmd), cobra.ShellCompDirectiveDefault
}

// cmdValidateRunArgs makes sure that at least one scenario file is provided to the run command
func cmdValidateRunArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		err = fmt.Errorf("run requires at least one scenario file")
		cmdLogger.Error("Failed to validate args to the run command", err)
		return err
	}
	return nil
}

// cmdRunRun executes the CLI run command: it resolves the project configuration, loads every scenario, runs them and
// reports their outcome. Failed expectations result in the ExitCodeTestFailed exit code.
func cmdRunRun(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the run command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithRunFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the run command", err)
		return err
	}
	err = projectConfig.Validate()
	if err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return err
	}

	logFile, err := setupLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return err
	}
	defer logFile.Close()

	scenarios := make([]*scenario.Scenario, 0, len(args))
	for _, path := range args {
		s, err := scenario.Load(path, projectConfig.Engine.ScenarioFormat)
		if err != nil {
			cmdLogger.Error("Failed to load a scenario", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeScenarioError)
		}
		scenarios = append(scenarios, s)
	}

	// Stop running scenarios on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmdLogger.Info("Running ", colors.Bold, len(scenarios), colors.Reset, " scenarios on ", projectConfig.Engine.Workers, " workers")
	reports, err := scenario.RunAll(ctx, scenarios, &projectConfig.Engine)
	if err != nil {
		cmdLogger.Error("Failed to run the scenarios", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeScenarioError)
	}

	failed := 0
	for _, report := range reports {
		cmdLogger.Info(report.Summary().Args()...)
		if report.Failed() {
			failed++
		}
	}

	if projectConfig.Engine.HistoryPath != "" {
		err = recordHistory(projectConfig.Engine.HistoryPath, scenarios, reports)
		if err != nil {
			cmdLogger.Error("Failed to record the run history", err)
			return err
		}
	}

	if projectConfig.Engine.ReportPath != "" {
		err = scenario.WriteReports(projectConfig.Engine.ReportPath, reports, projectConfig.Engine.ReportFormat)
		if err != nil {
			cmdLogger.Error("Failed to write the report", err)
			return err
		}
		cmdLogger.Info("Report written to: ", colors.Bold, projectConfig.Engine.ReportPath, colors.Reset)
	}

	// If we have failed scenarios, we'll want to return a special exit code
	if failed > 0 {
		cmdLogger.Warn(failed, " of ", len(reports), " scenarios failed")
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeTestFailed)
	}
	return nil
}

// recordHistory records the reports in the history stored at path, warning about scenarios which passed on their
// previous run and fail now.
func recordHistory(path string, scenarios []*scenario.Scenario, reports []*scenario.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	for i, s := range scenarios {
		previous, err := store.Latest(s)
		if err != nil {
			return err
		}
		if history.Regressed(previous, reports[i]) {
			cmdLogger.Warn(colors.Bold, s.Name, colors.Reset, " regressed since its run at ", previous.At.Format(time.RFC3339))
		}
		if err = store.Record(s, reports[i], now); err != nil {
			return err
		}
	}
	return nil
}
