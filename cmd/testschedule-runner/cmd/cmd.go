// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	runcmd "github.com/testing-farm/schedule-runner/cmd/testschedule-runner/cmd/run"
	validatecmd "github.com/testing-farm/schedule-runner/cmd/testschedule-runner/cmd/validate"
	versioncmd "github.com/testing-farm/schedule-runner/cmd/testschedule-runner/cmd/version"
	"github.com/testing-farm/schedule-runner/pkg/logger"
	"github.com/testing-farm/schedule-runner/pkg/util/cmdutil/viper"
)

var configHelper = viper.NewHelper(nil, "testschedule-runner", "$HOME/.testing-farm", ".")

var rootCmd = &cobra.Command{
	Use:   "testschedule-runner",
	Short: "Runs the entries of a test schedule on provisioned guests",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logger.NewCliLogger(); err != nil {
			return err
		}
		return configHelper.ReadInConfig()
	},
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the layout of the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(configHelper.Usage())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func init() {
	logger.InitFlags(rootCmd.PersistentFlags())
	configHelper.InitFlags(rootCmd.PersistentFlags())

	runCmd := runcmd.NewRunCommand()
	configHelper.BindPFlags(runCmd.Flags(), "")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	validatecmd.AddCommand(rootCmd)
	versioncmd.AddCommand(rootCmd)
}
