// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guest

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// SetupStage is one step of the guest setup.
type SetupStage string

const (
	SetupStagePreArtifactInstallation             SetupStage = "pre-artifact-installation"
	SetupStagePreArtifactInstallationWorkarounds  SetupStage = "pre-artifact-installation-workarounds"
	SetupStageArtifactInstallation                SetupStage = "artifact-installation"
	SetupStagePostArtifactInstallationWorkarounds SetupStage = "post-artifact-installation-workarounds"
	SetupStagePostArtifactInstallation            SetupStage = "post-artifact-installation"
)

// SetupStages lists all guest setup stages in execution order.
var SetupStages = []SetupStage{
	SetupStagePreArtifactInstallation,
	SetupStagePreArtifactInstallationWorkarounds,
	SetupStageArtifactInstallation,
	SetupStagePostArtifactInstallationWorkarounds,
	SetupStagePostArtifactInstallation,
}

// ParseSetupStage returns the setup stage with the given name.
// Underscores and upper case letters are accepted.
func ParseSetupStage(name string) (SetupStage, error) {
	normalized := SetupStage(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	for _, stage := range SetupStages {
		if stage == normalized {
			return stage, nil
		}
	}
	return "", errors.Errorf("unknown guest setup stage %q", name)
}

// ParseSetupStages parses a list of stage names and removes duplicates.
func ParseSetupStages(names []string) (map[SetupStage]bool, error) {
	stages := make(map[SetupStage]bool, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		stage, err := ParseSetupStage(name)
		if err != nil {
			return nil, err
		}
		stages[stage] = true
	}
	return stages, nil
}

// SetupOutput describes one artifact of a guest setup stage, usually a log file.
type SetupOutput struct {
	Stage          SetupStage  `json:"stage"`
	Label          string      `json:"label"`
	LogPath        string      `json:"logPath"`
	AdditionalData interface{} `json:"additionalData,omitempty"`
}

// SetupOptions are passed to every guest setup stage.
type SetupOptions struct {
	// LogDir is the directory setup logs are written to.
	LogDir string
	// Environment is the testing environment of the entry the guest is set up for.
	Environment testingenvironment.TestingEnvironment
	// Variables are additional values available to setup templates.
	Variables map[string]string
}
