// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guest

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// ExecuteOptions configures a single command execution.
type ExecuteOptions struct {
	// LogPath is the file stdout and stderr of the command are written to.
	// The output is discarded if empty.
	LogPath string
	// Env contains additional environment variables.
	Env map[string]string
	// Stdout receives a copy of the output if set.
	Stdout io.Writer
}

// ExecuteResult is the outcome of a finished command.
type ExecuteResult struct {
	Command  string
	ExitCode int
	LogPath  string
}

// CommandError is returned if a command exits with a non zero exit code.
type CommandError struct {
	Result *ExecuteResult
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", e.Result.Command, e.Result.ExitCode)
}

// IsCommandError determines if the error is caused by a non zero exit code.
func IsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

// Executor runs shell commands on a machine.
type Executor interface {
	Execute(ctx context.Context, command string, opts ExecuteOptions) (*ExecuteResult, error)
}

// LocalExecutor runs commands on the local machine using bash.
type LocalExecutor struct {
	Dir string
}

var _ Executor = &LocalExecutor{}

func (e *LocalExecutor) Execute(ctx context.Context, command string, opts ExecuteOptions) (*ExecuteResult, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = e.Dir
	return run(cmd, command, opts)
}

// SSHExecutor runs commands on a remote machine using the ssh client binary.
type SSHExecutor struct {
	Info    ConnectionInfo
	Options []string
}

var _ Executor = &SSHExecutor{}

// Args returns the ssh arguments that prefix every remote command.
func (e *SSHExecutor) Args() []string {
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "BatchMode=yes",
	}
	for _, opt := range e.Options {
		args = append(args, "-o", opt)
	}
	if e.Info.Port != 0 {
		args = append(args, "-p", strconv.Itoa(e.Info.Port))
	}
	if e.Info.KeyPath != "" {
		args = append(args, "-i", e.Info.KeyPath)
	}
	if e.Info.Username != "" {
		args = append(args, "-l", e.Info.Username)
	}
	return append(args, e.Info.Hostname)
}

func (e *SSHExecutor) Execute(ctx context.Context, command string, opts ExecuteOptions) (*ExecuteResult, error) {
	remote := command
	if len(opts.Env) != 0 {
		remote = envPrefix(opts.Env) + " " + command
	}
	args := append(e.Args(), "--", remote)
	cmd := exec.CommandContext(ctx, "ssh", args...)
	return run(cmd, shellquote.Join(append([]string{"ssh"}, args...)...), ExecuteOptions{LogPath: opts.LogPath, Stdout: opts.Stdout})
}

func run(cmd *exec.Cmd, command string, opts ExecuteOptions) (*ExecuteResult, error) {
	res := &ExecuteResult{Command: command, LogPath: opts.LogPath}
	if len(opts.Env) != 0 {
		cmd.Env = os.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	writers := []io.Writer{}
	if opts.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogPath), os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "unable to create log directory for %s", opts.LogPath)
		}
		file, err := os.Create(opts.LogPath)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create log file %s", opts.LogPath)
		}
		defer file.Close()
		writers = append(writers, file)
	}
	if opts.Stdout != nil {
		writers = append(writers, opts.Stdout)
	}
	out := io.MultiWriter(writers...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &CommandError{Result: res}
		}
		return res, errors.Wrapf(err, "unable to run %q", command)
	}
	return res, nil
}

// envPrefix renders environment variables as a quoted "env K=V" prefix for remote commands.
func envPrefix(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := []string{"env"}
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return shellquote.Join(args...)
}
