// Package config defines the project configuration of the symheap CLI and its serialization.
package config

import (
	"encoding/json"
	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"os"
	"path/filepath"
	"strings"
)

// OwnershipMode describes how heaps update the structure they own.
type OwnershipMode string

const (
	// OwnershipOwned lets each heap update the structure created since its last fork in place.
	OwnershipOwned OwnershipMode = "owned"
	// OwnershipPure makes every heap update copy the structure it touches.
	OwnershipPure OwnershipMode = "pure"
)

// ReportFormat describes the encoding of scenario reports.
type ReportFormat string

const (
	// ReportJSON encodes reports as indented JSON.
	ReportJSON ReportFormat = "json"
	// ReportCBOR encodes reports as CBOR.
	ReportCBOR ReportFormat = "cbor"
)

// ProjectConfig describes the configuration of a symheap project.
type ProjectConfig struct {
	// Engine describes how scenarios are executed.
	Engine EngineConfig `json:"engine" toml:"engine"`

	// Logging describes the configuration used for logging to file and console
	Logging LoggingConfig `json:"logging" toml:"logging"`
}

// EngineConfig describes the configuration of the scenario runner.
type EngineConfig struct {
	// Workers describes the amount of scenarios executed in parallel.
	Workers int `json:"workers" toml:"workers"`

	// OwnershipMode describes whether heaps update owned structure in place or copy on every update.
	OwnershipMode OwnershipMode `json:"ownershipMode" toml:"ownershipMode"`

	// ScenarioFormat is a semantic version constraint every scenario's format version must satisfy.
	ScenarioFormat string `json:"scenarioFormat" toml:"scenarioFormat"`

	// ReportFormat describes the encoding of the report file.
	ReportFormat ReportFormat `json:"reportFormat" toml:"reportFormat"`

	// ReportPath describes where the report of a run is written. If empty, no report file is written.
	ReportPath string `json:"reportPath" toml:"reportPath"`

	// StopOnFailure describes whether a scenario stops at its first failed step.
	StopOnFailure bool `json:"stopOnFailure" toml:"stopOnFailure"`

	// HistoryPath describes the database where the reports of every run are recorded. If empty, no history is kept.
	HistoryPath string `json:"historyPath" toml:"historyPath"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level" toml:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging" toml:"enableConsoleLogging"`

	// LogDirectory describes the directory where structured log files will be written. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory" toml:"logDirectory"`
}

// isTOML indicates whether the path names a TOML file. Every other file is JSON.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ReadProjectConfigFromFile reads a ProjectConfig from a provided file path, on top of the default configuration.
// Files with a .toml extension are parsed as TOML, everything else as JSON.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	projectConfig := GetDefaultProjectConfig()
	if isTOML(path) {
		if _, err := toml.DecodeFile(path, projectConfig); err != nil {
			return nil, errors.Wrapf(err, "failed to parse TOML configuration %s", path)
		}
		return projectConfig, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err = json.Unmarshal(b, projectConfig); err != nil {
		return nil, errors.Wrapf(err, "failed to parse JSON configuration %s", path)
	}
	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path, as TOML if the path has a .toml extension and as
// JSON otherwise.
func (p *ProjectConfig) WriteToFile(path string) error {
	var b []byte
	if isTOML(path) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(p); err != nil {
			return errors.WithStack(err)
		}
		b = []byte(sb.String())
	} else {
		var err error
		b, err = json.MarshalIndent(p, "", "\t")
		if err != nil {
			return errors.WithStack(err)
		}
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if p.Engine.Workers <= 0 {
		return errors.Errorf("worker count must be a positive number")
	}
	if !slices.Contains([]OwnershipMode{OwnershipOwned, OwnershipPure}, p.Engine.OwnershipMode) {
		return errors.Errorf("unknown ownership mode %q (options: %s, %s)", p.Engine.OwnershipMode, OwnershipOwned, OwnershipPure)
	}
	if _, err := semver.NewConstraint(p.Engine.ScenarioFormat); err != nil {
		return errors.Wrapf(err, "invalid scenario format constraint %q", p.Engine.ScenarioFormat)
	}
	if !slices.Contains([]ReportFormat{ReportJSON, ReportCBOR}, p.Engine.ReportFormat) {
		return errors.Errorf("unknown report format %q (options: %s, %s)", p.Engine.ReportFormat, ReportJSON, ReportCBOR)
	}
	return nil
}
