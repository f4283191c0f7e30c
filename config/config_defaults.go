package config

import (
	"github.com/crytic/symheap/version"
	"github.com/rs/zerolog"
	"runtime"
)

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Engine: EngineConfig{
			Workers:        runtime.NumCPU(),
			OwnershipMode:  OwnershipOwned,
			ScenarioFormat: "^" + version.ScenarioFormat,
			ReportFormat:   ReportJSON,
			ReportPath:     "",
			StopOnFailure:  false,
			HistoryPath:    "",
		},
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
			LogDirectory:         "",
		},
	}
}
