// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guest

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// Guest is a provisioned machine that is exclusively owned by one schedule entry at a time.
type Guest interface {
	// Name returns a human readable identifier of the guest.
	Name() string
	// Environment returns the testing environment the guest was provisioned for.
	Environment() testingenvironment.TestingEnvironment
	// Setup runs one guest setup stage.
	// Outputs collected before a failure are returned together with the error.
	Setup(ctx context.Context, stage SetupStage, opts SetupOptions) ([]SetupOutput, error)
	// WaitAlive checks that the guest is still reachable.
	WaitAlive(ctx context.Context) error
	// Destroy releases all resources of the guest.
	Destroy(ctx context.Context) error
}

// Executable is implemented by guests that can run arbitrary commands.
type Executable interface {
	Execute(ctx context.Context, command string, opts ExecuteOptions) (*ExecuteResult, error)
}

// Connectable is implemented by guests that are reachable via ssh.
type Connectable interface {
	ConnectionInfo() ConnectionInfo
}

// ConnectionInfo describes how to log into a guest.
type ConnectionInfo struct {
	Hostname string
	Port     int
	Username string
	KeyPath  string
}

// SSHCommand returns the command line a user can use to connect to the guest.
func (c ConnectionInfo) SSHCommand() string {
	args := []string{"ssh"}
	if c.Username != "" {
		args = append(args, "-l", c.Username)
	}
	if c.Port != 0 {
		args = append(args, "-p", fmt.Sprintf("%d", c.Port))
	}
	if c.KeyPath != "" {
		args = append(args, "-i", c.KeyPath)
	}
	return shellquote.Join(append(args, c.Hostname)...)
}
