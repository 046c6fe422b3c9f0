// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package validatecmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/testing-farm/schedule-runner/pkg/guestsetup"
	"github.com/testing-farm/schedule-runner/pkg/logger"
	"github.com/testing-farm/schedule-runner/pkg/provision/static"
	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/runnerplugins/command"
	"github.com/testing-farm/schedule-runner/pkg/testrunner/result"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
	"github.com/testing-farm/schedule-runner/pkg/util/cmdutil"
)

type options struct {
	schedulePath           string
	guestsPath             string
	guestSetupPath         string
	evalVars               []string
	attributeRuleFiles     []string
	overallResultRuleFiles []string
}

func AddCommand(cmd *cobra.Command) {
	opts := &options{}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validates a test schedule and the rule tables without running anything",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.schedulePath == "" {
				return errors.New("file is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate(logger.Log, os.Stdout)
		},
	}

	fs := validateCmd.Flags()
	fs.StringVarP(&opts.schedulePath, "file", "f", "", "Path to the test schedule yaml")
	fs.StringVar(&opts.guestsPath, "guests", "", "Path to the yaml file with the pool of static guests")
	fs.StringVar(&opts.guestSetupPath, "guest-setup", "", "Path to the yaml file with the guest setup commands of every stage")
	fs.StringArrayVar(&opts.evalVars, "eval-var", nil, "Variable the rules may reference in the form key=value. Can be defined multiple times")
	fs.StringArrayVar(&opts.attributeRuleFiles, "schedule-entry-attribute-map", nil, "Rule table that overrides attributes of entries")
	fs.StringArrayVar(&opts.overallResultRuleFiles, "overall-result-map", nil, "Rule table that overrides the overall result")

	cmd.AddCommand(validateCmd)
}

func (o *options) validate(log logr.Logger, out io.Writer) error {
	schedule, err := testschedule.LoadFile(log, o.schedulePath, "", command.Capability)
	if err != nil {
		return err
	}
	vars, err := rules.ParseVariables(o.evalVars)
	if err != nil {
		return err
	}
	attributeRules, err := rules.LoadFiles(rules.Options{
		Variables: rules.VariableNames(vars),
		Validator: testschedule.ValidateAttribute,
	}, o.attributeRuleFiles...)
	if err != nil {
		return err
	}
	overallResultRules, err := rules.LoadFiles(rules.Options{
		Variables: rules.VariableNames(vars),
		Validator: result.ValidateOverallResultAttribute,
	}, o.overallResultRuleFiles...)
	if err != nil {
		return err
	}
	if o.guestsPath != "" {
		if _, err := static.LoadFile(o.guestsPath); err != nil {
			return err
		}
	}
	if o.guestSetupPath != "" {
		if _, err := guestsetup.LoadFile(o.guestSetupPath); err != nil {
			return err
		}
	}

	table := cmdutil.NewTable("SE", "Plan", "Runner", "Environment")
	for _, e := range schedule.Entries() {
		table.Append(e.ID, e.Plan(), e.RunnerCapability(), e.TestingEnvironment.String())
	}
	table.Print(out)
	_, err = fmt.Fprintf(out, "\n%d entries, %d attribute rules, %d overall result rules\n", schedule.Len(), attributeRules.Len(), overallResultRules.Len())
	return err
}
