// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package runcmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/runnerplugins/command"
	"github.com/testing-farm/schedule-runner/pkg/testrunner"
	"github.com/testing-farm/schedule-runner/pkg/util/s3"
)

type options struct {
	runnerConfig  testrunner.Config
	commandConfig command.Config

	schedulePath   string
	workDir        string
	guestsPath     string
	guestSetupPath string
	mode           string
	evalVars       []string

	attributeRuleFiles     []string
	overallResultRuleFiles []string

	xunitFile         string
	resultsFile       string
	s3Config          s3.Config
	s3Prefix          string
	githubStepSummary string

	fs *pflag.FlagSet
}

func NewOptions() *options {
	return &options{
		runnerConfig: testrunner.Config{},
	}
}

func (o *options) Validate() error {
	if len(o.schedulePath) == 0 {
		return errors.New("file is required")
	}
	if len(o.workDir) == 0 {
		return errors.New("work-dir is required")
	}
	if len(o.commandConfig.Command) == 0 {
		return errors.New("test-command is required")
	}
	mode := testrunner.Mode(o.mode)
	if mode != testrunner.ModeSingleHost && mode != testrunner.ModeMultiHost {
		return errors.Errorf("unknown mode %q, expected %q or %q", o.mode, testrunner.ModeSingleHost, testrunner.ModeMultiHost)
	}
	if mode == testrunner.ModeSingleHost && len(o.guestsPath) == 0 {
		return errors.New("guests is required in single host mode")
	}
	if o.runnerConfig.DestroyIfFail && !o.runnerConfig.ReuseGuests {
		return errors.New("--destroy-if-fail option works only together with the --reuse-guests")
	}
	if len(o.s3Config.Endpoint) != 0 {
		if err := o.s3Config.Validate(); err != nil {
			return err
		}
	}
	if _, err := rules.ParseVariables(o.evalVars); err != nil {
		return err
	}
	return nil
}

// Complete fills the runner configuration from the flag values.
func (o *options) Complete() error {
	vars, err := rules.ParseVariables(o.evalVars)
	if err != nil {
		return err
	}
	o.runnerConfig.EvalVariables = vars
	o.runnerConfig.Mode = testrunner.Mode(o.mode)
	return nil
}

func (o *options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}

	fs.StringVarP(&o.schedulePath, "file", "f", "", "Path to the test schedule yaml")
	fs.StringVar(&o.workDir, "work-dir", "./work", "Directory where the entries store their logs and results")
	fs.StringVar(&o.guestsPath, "guests", "", "Path to the yaml file with the pool of static guests")
	fs.StringVar(&o.guestSetupPath, "guest-setup", "", "Path to the yaml file with the guest setup commands of every stage")
	fs.StringVar(&o.mode, "mode", string(testrunner.ModeSingleHost), fmt.Sprintf("Execution mode, one of %q or %q", testrunner.ModeSingleHost, testrunner.ModeMultiHost))
	fs.StringArrayVar(&o.evalVars, "eval-var", nil, "Variable available to templates and rules in the form key=value. Can be defined multiple times")

	fs.StringVar(&o.commandConfig.Command, "test-command", "", "Template of the shell command that runs the tests of an entry")
	fs.BoolVar(&o.commandConfig.OnHost, "test-command-on-host", false, "Run the test command on the runner host instead of the guest")
	fs.StringVar(&o.commandConfig.ResultsFile, "test-results-file", command.DefaultResultsFile, "Name of the results file the test command may write into the work directory of the entry")

	fs.BoolVar(&o.runnerConfig.Parallelize, "parallelize", false, "Process the entries of the schedule in parallel")
	fs.StringVar(&o.runnerConfig.ParallelLimit, "parallel-limit", "", "Template that renders to the maximum number of entries processed in parallel")
	fs.IntVar(&o.runnerConfig.MaxParallelLimit, "max-parallel-limit", testrunner.DefaultMaxParallelLimit, "Upper bound of the rendered parallel limit")
	fs.BoolVar(&o.runnerConfig.ReuseGuests, "reuse-guests", false, "Reuse guests of finished entries for entries with the same environment")
	fs.BoolVar(&o.runnerConfig.DestroyIfFail, "destroy-if-fail", false, "Destroy guests of failed entries even if guests are reused")
	fs.StringSliceVar(&o.runnerConfig.SkipGuestSetupStages, "skip-guest-setup-stages", nil, "Guest setup stages that are not executed")

	fs.StringArrayVar(&o.attributeRuleFiles, "schedule-entry-attribute-map", nil, "Rule table that overrides attributes of entries. Can be defined multiple times")
	fs.StringArrayVar(&o.overallResultRuleFiles, "overall-result-map", nil, "Rule table that overrides the overall result. Can be defined multiple times")

	fs.StringVar(&o.xunitFile, "xunit-file", "", "Path where the xunit document is written to")
	fs.StringVar(&o.resultsFile, "results-file", "", "Path of the json results summary that is updated while the schedule runs")
	fs.StringVar(&o.s3Config.Endpoint, "s3-endpoint", os.Getenv("S3_ENDPOINT"), "S3 endpoint the work directory is uploaded to")
	fs.BoolVar(&o.s3Config.SSL, "s3-ssl", false, "S3 has SSL enabled")
	fs.StringVar(&o.s3Config.BucketName, "s3-bucket", "", "S3 bucket the work directory is uploaded to")
	fs.StringVar(&o.s3Config.AccessKey, "s3-access-key", os.Getenv("S3_ACCESS_KEY"), "S3 access key")
	fs.StringVar(&o.s3Config.SecretKey, "s3-secret-key", os.Getenv("S3_SECRET_KEY"), "S3 secret key")
	fs.StringVar(&o.s3Prefix, "s3-prefix", "", "Prefix of all uploaded objects. Defaults to the id of the run")
	fs.StringVar(&o.githubStepSummary, "github-step-summary", os.Getenv("GITHUB_STEP_SUMMARY"), "File the result table is appended to as GitHub step summary")

	o.fs = fs
}

// ruleOptions declares the eval variables so that rules can reference them by name.
func (o *options) ruleOptions(validator rules.Validator) rules.Options {
	return rules.Options{
		Variables: rules.VariableNames(o.runnerConfig.EvalVariables),
		Validator: validator,
	}
}
