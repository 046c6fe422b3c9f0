// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guestsetup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	rendertemplate "github.com/testing-farm/schedule-runner/pkg/util/render-template"
)

// Command is a shell command that is run on a guest during a setup stage.
// The command is a go template that is rendered with the sprig functions.
type Command struct {
	Label   string `json:"label"`
	Command string `json:"command"`
	// IgnoreFailure continues with the next command if the command fails.
	IgnoreFailure bool `json:"ignoreFailure,omitempty"`
}

// Config lists the commands of every setup stage.
type Config struct {
	Stages map[guest.SetupStage][]Command `json:"stages"`
}

// LoadFile reads a guest setup configuration.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read guest setup file %s", path)
	}
	return Parse(data)
}

// Parse decodes a yaml guest setup configuration and validates the stage names.
func Parse(data []byte) (*Config, error) {
	raw := struct {
		Stages map[string][]Command `json:"stages"`
	}{}
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unable to decode guest setup configuration")
	}
	cfg := &Config{Stages: map[guest.SetupStage][]Command{}}
	for name, commands := range raw.Stages {
		stage, err := guest.ParseSetupStage(name)
		if err != nil {
			return nil, err
		}
		for i, cmd := range commands {
			if strings.TrimSpace(cmd.Command) == "" {
				return nil, errors.Errorf("stage %s: command %d is empty", stage, i)
			}
			if cmd.Label == "" {
				commands[i].Label = fmt.Sprintf("%s-%d", stage, i)
			}
		}
		cfg.Stages[stage] = append(cfg.Stages[stage], commands...)
	}
	return cfg, nil
}

// Runner executes the configured commands of a setup stage on a guest.
type Runner struct {
	log    logr.Logger
	config *Config
}

// NewRunner creates a new setup runner. A nil configuration runs nothing.
func NewRunner(log logr.Logger, config *Config) *Runner {
	if config == nil {
		config = &Config{}
	}
	return &Runner{
		log:    log.WithName("guest-setup"),
		config: config,
	}
}

// TemplateValues are available in setup command templates.
type TemplateValues struct {
	Stage       string
	Guest       string
	Arch        string
	Compose     string
	Artifacts   interface{}
	Variables   map[string]string
	Environment string
}

// Run executes all commands of the stage in order.
// Every command writes its own log file which is reported as setup output.
// The outputs of all commands that ran are returned, also if a command failed.
func (r *Runner) Run(ctx context.Context, exec guest.Executor, guestName string, stage guest.SetupStage, opts guest.SetupOptions) ([]guest.SetupOutput, error) {
	commands := r.config.Stages[stage]
	if len(commands) == 0 {
		r.log.V(5).Info("no commands configured", "stage", stage)
		return nil, nil
	}

	env := opts.Environment
	values := TemplateValues{
		Stage:       string(stage),
		Guest:       guestName,
		Arch:        env.Arch,
		Compose:     env.Compose,
		Artifacts:   env.Artifacts,
		Variables:   mergeVariables(env.Variables, opts.Variables),
		Environment: env.String(),
	}

	outputs := []guest.SetupOutput{}
	for i, cmd := range commands {
		rendered, err := rendertemplate.RenderString(cmd.Command, values)
		if err != nil {
			return outputs, errors.Wrapf(err, "unable to render command %s", cmd.Label)
		}
		logPath := ""
		if opts.LogDir != "" {
			logPath = filepath.Join(opts.LogDir, fmt.Sprintf("guest-setup-%s-%d-%s.log", stage, i, sanitize(cmd.Label)))
		}
		r.log.V(3).Info("running setup command", "stage", stage, "label", cmd.Label, "guest", guestName)
		res, err := exec.Execute(ctx, rendered, guest.ExecuteOptions{LogPath: logPath, Env: values.Variables})
		output := guest.SetupOutput{
			Stage:   stage,
			Label:   cmd.Label,
			LogPath: logPath,
		}
		if res != nil {
			output.AdditionalData = map[string]interface{}{"exitCode": res.ExitCode}
		}
		outputs = append(outputs, output)
		if err != nil {
			if cmd.IgnoreFailure {
				r.log.Info("ignoring failed setup command", "stage", stage, "label", cmd.Label, "error", err.Error())
				continue
			}
			return outputs, errors.Wrapf(err, "setup command %s failed", cmd.Label)
		}
	}
	return outputs, nil
}

func mergeVariables(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
