// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testrunner"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
	rendertemplate "github.com/testing-farm/schedule-runner/pkg/util/render-template"
)

// Capability is the runner capability served by the command plugin.
const Capability = "command"

const (
	// DefaultResultsFile is the file in the work directory test results are read from.
	DefaultResultsFile = "results.yaml"
	// LogFile is the file in the work directory the command output is written to.
	LogFile = "testrun.log"
)

// environment variables available to the test command
const (
	EnvEntryID     = "TESTING_FARM_ENTRY_ID"
	EnvPlan        = "TESTING_FARM_PLAN"
	EnvWorkDir     = "TESTING_FARM_WORKDIR"
	EnvResultsFile = "TESTING_FARM_RESULTS_FILE"
)

// Config configures the command plugin.
type Config struct {
	// Command is a template that renders to the shell command that runs the tests of an entry.
	Command string
	// OnHost runs the command on the runner host even if the guest can execute commands.
	OnHost bool
	// ResultsFile overrides the name of the results file.
	ResultsFile string
}

// TemplateValues are available in the command template.
type TemplateValues struct {
	ID            string
	Plan          string
	TestsuiteName string
	Arch          string
	Compose       string
	WorkDir       string
	Guest         string
	ResultsFile   string
	Variables     map[string]string
	Environment   string
}

// Plugin runs a shell command for every entry and derives the entry result from its exit code.
type Plugin struct {
	log    logr.Logger
	config Config
}

var _ testrunner.Plugin = &Plugin{}

// New creates a new command plugin.
func New(log logr.Logger, config Config) (*Plugin, error) {
	if config.Command == "" {
		return nil, errors.New("no test command defined")
	}
	if config.ResultsFile == "" {
		config.ResultsFile = DefaultResultsFile
	}
	return &Plugin{
		log:    log.WithName("command-runner"),
		config: config,
	}, nil
}

// RunTestScheduleEntry runs the test command of the entry.
// Exit code 0 passes the entry, 1 and 2 fail it and every other exit code sets the result to error.
// A results file written by the command adds test results, their most severe result wins over the exit code.
func (p *Plugin) RunTestScheduleEntry(ctx context.Context, e *testschedule.Entry) error {
	if e.WorkDir == "" {
		return errors.Errorf("entry %s has no work directory", e.ID)
	}
	if err := os.MkdirAll(e.WorkDir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "unable to create work directory %s", e.WorkDir)
	}
	resultsFile := filepath.Join(e.WorkDir, p.config.ResultsFile)

	values := TemplateValues{
		ID:            e.ID,
		Plan:          e.Plan(),
		TestsuiteName: e.TestsuiteName(),
		Arch:          e.TestingEnvironment.Arch,
		Compose:       e.TestingEnvironment.Compose,
		WorkDir:       e.WorkDir,
		ResultsFile:   resultsFile,
		Variables:     e.TestingEnvironment.Variables,
		Environment:   e.TestingEnvironment.String(),
	}
	var executor guest.Executor = &guest.LocalExecutor{Dir: e.WorkDir}
	if g := e.Guest(); g != nil {
		values.Guest = g.Name()
		if ex, ok := g.(guest.Executable); ok && !p.config.OnHost {
			executor = ex
		}
	}

	command, err := rendertemplate.RenderString(p.config.Command, values)
	if err != nil {
		return errors.Wrap(err, "unable to render test command")
	}

	env := map[string]string{}
	for k, v := range e.TestingEnvironment.Variables {
		env[k] = v
	}
	env[EnvEntryID] = e.ID
	env[EnvPlan] = e.Plan()
	env[EnvWorkDir] = e.WorkDir
	env[EnvResultsFile] = resultsFile

	logPath := filepath.Join(e.WorkDir, LogFile)
	e.Log.Info("running test command", "command", command, "log", logPath)
	res, err := executor.Execute(ctx, command, guest.ExecuteOptions{LogPath: logPath, Env: env})
	e.AddOutputs(testschedule.Output{Label: "testrun", LogPath: logPath})

	exitCode := 0
	if err != nil {
		cmdErr, ok := guest.IsCommandError(err)
		if !ok {
			return err
		}
		exitCode = cmdErr.Result.ExitCode
	} else if res != nil {
		exitCode = res.ExitCode
	}
	result := ResultForExitCode(exitCode)

	results, err := ReadResults(resultsFile)
	if err != nil {
		return err
	}
	if len(results) != 0 {
		e.AddResults(results...)
		for _, r := range results {
			if r.Result.MoreSevere(result) {
				result = r.Result
			}
		}
	}

	e.Log.Info("test command finished", "exitCode", exitCode, "result", result)
	e.SetResult(result)
	return nil
}

// ResultForExitCode maps the exit code of a test command to a result.
func ResultForExitCode(code int) testschedule.Result {
	switch code {
	case 0:
		return testschedule.ResultPassed
	case 1, 2:
		return testschedule.ResultFailed
	default:
		return testschedule.ResultError
	}
}

type resultSpec struct {
	Name     string `json:"name"`
	Result   string `json:"result"`
	Duration string `json:"duration,omitempty"`
	Log      string `json:"log,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ReadResults reads test results written by a test command.
// A missing file is not an error.
func ReadResults(path string) ([]testschedule.TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "unable to read results file %s", path)
	}
	specs := []resultSpec{}
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, errors.Wrapf(err, "unable to decode results file %s", path)
	}

	results := make([]testschedule.TestResult, 0, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, errors.Errorf("%s: result %d has no name", path, i)
		}
		result, err := testschedule.ParseResult(s.Result)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: result of %s", path, s.Name)
		}
		var duration time.Duration
		if s.Duration != "" {
			duration, err = time.ParseDuration(s.Duration)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: duration of %s", path, s.Name)
			}
		}
		logPath := s.Log
		if logPath != "" && !filepath.IsAbs(logPath) {
			logPath = filepath.Join(filepath.Dir(path), logPath)
		}
		results = append(results, testschedule.TestResult{
			Name:     s.Name,
			Result:   result,
			Duration: duration,
			LogPath:  logPath,
			Message:  s.Message,
		})
	}
	return results, nil
}
