// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package runcmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
	"github.com/testing-farm/schedule-runner/pkg/events"
	"github.com/testing-farm/schedule-runner/pkg/guestsetup"
	"github.com/testing-farm/schedule-runner/pkg/logger"
	"github.com/testing-farm/schedule-runner/pkg/provision"
	"github.com/testing-farm/schedule-runner/pkg/provision/static"
	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/runnerplugins/command"
	"github.com/testing-farm/schedule-runner/pkg/testrunner"
	"github.com/testing-farm/schedule-runner/pkg/testrunner/result"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// exit codes of the run command
const (
	ExitCodeCrashed   = 1
	ExitCodeNotPassed = 2
)

func NewRunCommand() *cobra.Command {
	opts := NewOptions()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all entries of a test schedule",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return opts.Complete()
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			code, err := opts.run(ctx, logger.Log)
			if err != nil {
				logger.Log.Error(err, "test schedule failed")
			}
			if code != 0 {
				cancel()
				os.Exit(code)
			}
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

func (o *options) run(ctx context.Context, log logr.Logger) (int, error) {
	token := cancellation.NewToken(ctx)
	stopSignals := cancelOnSignal(log, token)
	defer stopSignals()

	schedule, err := testschedule.LoadFile(log, o.schedulePath, o.workDir, command.Capability)
	if err != nil {
		return ExitCodeCrashed, err
	}
	attributeRules, err := rules.LoadFiles(o.ruleOptions(testschedule.ValidateAttribute), o.attributeRuleFiles...)
	if err != nil {
		return ExitCodeCrashed, err
	}
	overallResultRules, err := rules.LoadFiles(o.ruleOptions(result.ValidateOverallResultAttribute), o.overallResultRuleFiles...)
	if err != nil {
		return ExitCodeCrashed, err
	}

	var setupConfig *guestsetup.Config
	if o.guestSetupPath != "" {
		setupConfig, err = guestsetup.LoadFile(o.guestSetupPath)
		if err != nil {
			return ExitCodeCrashed, err
		}
	}
	setup := guestsetup.NewRunner(log, setupConfig)

	var provisioner provision.Provisioner
	if o.runnerConfig.Mode == testrunner.ModeSingleHost {
		guests, err := static.LoadFile(o.guestsPath)
		if err != nil {
			return ExitCodeCrashed, err
		}
		provisioner, err = static.New(log, token, guests, setup)
		if err != nil {
			return ExitCodeCrashed, err
		}
	}

	plugin, err := command.New(log, o.commandConfig)
	if err != nil {
		return ExitCodeCrashed, err
	}

	var runner *testrunner.Runner
	reporter := result.NewReporter(log, result.Config{
		XUnitFile:          o.xunitFile,
		ResultsFile:        o.resultsFile,
		OverallResultRules: overallResultRules,
		EvalContext: func(schedule *testschedule.Schedule) map[string]interface{} {
			return runner.EvalContext(schedule)
		},
	})

	runner, err = testrunner.New(log, o.runnerConfig, testrunner.Options{
		Provisioner:    provisioner,
		Plugins:        testrunner.Plugins{command.Capability: plugin},
		AttributeRules: attributeRules,
		Notifier:       events.Multi{events.NewLogNotifier(log), reporter},
		Token:          token,
	})
	if err != nil {
		return ExitCodeCrashed, err
	}

	if len(o.s3Config.Endpoint) != 0 {
		prefix := o.s3Prefix
		if prefix == "" {
			prefix = runner.RunID()
		}
		s3Config := o.s3Config
		reporter.EnableUpload(&s3Config, o.workDir, prefix)
	}

	execErr := runner.Execute(ctx, schedule)

	overall, reportErr := reporter.Report(ctx, schedule)
	if reportErr != nil {
		log.Error(reportErr, "unable to report results")
	}
	o.postStepSummary(log, schedule, overall)

	if execErr != nil {
		return ExitCodeCrashed, execErr
	}
	if token.Cancelled() {
		return ExitCodeCrashed, errors.New("test schedule was cancelled")
	}
	if overall != testschedule.ResultPassed {
		return ExitCodeNotPassed, nil
	}
	return 0, nil
}

func (o *options) postStepSummary(log logr.Logger, schedule *testschedule.Schedule, overall testschedule.Result) {
	if o.githubStepSummary == "" {
		return
	}
	var buf bytes.Buffer
	result.PrintResults(&buf, schedule, overall)
	message := fmt.Sprintf("## Result of testing: %s\n\n```\n%s```", overall, buf.String())
	if err := logger.NewStepSummary(o.githubStepSummary).Post(message, true); err != nil {
		log.Error(err, "unable to post step summary")
	}
}

// cancelOnSignal cancels the token on SIGINT or SIGTERM.
// Guests that are being acquired or released are handled before the token is cancelled.
func cancelOnSignal(log logr.Logger, token *cancellation.Token) func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signals:
			log.Info("received signal, cancelling test schedule", "signal", sig.String())
			token.Cancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}
