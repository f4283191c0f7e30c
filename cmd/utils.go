package cmd

import (
	"fmt"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/logging"
	"github.com/crytic/symheap/logging/colors"
	"github.com/crytic/symheap/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// cmdValidFlags returns the flags of the command which have not been used yet, for dynamic completion.
func cmdValidFlags(cmd *cobra.Command) []string {
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// The "--" prefix tells the shell that the suggestion is a flag and not a positional argument
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags
}

// loadProjectConfig resolves the project configuration of a command:
// #1: If the config file (given via --config, or DefaultProjectConfigFilename in the working directory) exists, it
// is read.
// #2: If --config was used and the file cannot be found, an error is returned.
// #3: Otherwise, the default project configuration is used.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	_, existenceError := os.Stat(configPath)
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}
	if configFlagUsed {
		return nil, errors.WithStack(existenceError)
	}

	cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
	return config.GetDefaultProjectConfig(), nil
}

// setupLogging replaces the global logger with one configured by the project configuration. If a log directory is
// configured, structured logs are written to a new file in it. The returned closer releases that file.
func setupLogging(loggingConfig config.LoggingConfig) (io.Closer, error) {
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, loggingConfig.EnableConsoleLogging)
	if loggingConfig.LogDirectory == "" {
		return io.NopCloser(nil), nil
	}

	filename := DefaultLogFilePrefix + strconv.FormatInt(time.Now().Unix(), 10) + ".log"
	file, err := utils.CreateFile(loggingConfig.LogDirectory, filename)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED)
	return file, nil
}
