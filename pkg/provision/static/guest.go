// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package static

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// Guest is a leased machine of the static pool.
type Guest struct {
	spec        GuestSpec
	env         testingenvironment.TestingEnvironment
	executor    guest.Executor
	provisioner *Provisioner

	mut      sync.Mutex
	released bool
}

var _ guest.Guest = &Guest{}
var _ guest.Executable = &Guest{}

func (g *Guest) Name() string {
	return g.spec.Name
}

func (g *Guest) Environment() testingenvironment.TestingEnvironment {
	return g.env
}

func (g *Guest) Setup(ctx context.Context, stage guest.SetupStage, opts guest.SetupOptions) ([]guest.SetupOutput, error) {
	return g.provisioner.setup.Run(ctx, g.executor, g.spec.Name, stage, opts)
}

func (g *Guest) Execute(ctx context.Context, command string, opts guest.ExecuteOptions) (*guest.ExecuteResult, error) {
	if g.isReleased() {
		return nil, errors.Errorf("guest %s is already released", g.spec.Name)
	}
	return g.executor.Execute(ctx, command, opts)
}

// WaitAlive probes the guest until it runs a trivial command or the alive timeout is reached.
func (g *Guest) WaitAlive(ctx context.Context) error {
	if g.isReleased() {
		return errors.Errorf("guest %s is already released", g.spec.Name)
	}
	var lastErr error
	err := wait.PollUntilContextTimeout(ctx, g.provisioner.pollInterval, g.provisioner.aliveTimeout, true, func(ctx context.Context) (bool, error) {
		_, lastErr = g.executor.Execute(ctx, "true", guest.ExecuteOptions{})
		return lastErr == nil, nil
	})
	if err != nil {
		if lastErr != nil {
			return errors.Wrapf(lastErr, "guest %s is not alive", g.spec.Name)
		}
		return errors.Wrapf(err, "guest %s is not alive", g.spec.Name)
	}
	return nil
}

// Destroy releases the lease of the guest. Further calls are no-ops.
func (g *Guest) Destroy(_ context.Context) error {
	g.mut.Lock()
	defer g.mut.Unlock()
	if g.released {
		return nil
	}
	g.released = true
	g.provisioner.release(g.spec.Name)
	return nil
}

func (g *Guest) isReleased() bool {
	g.mut.Lock()
	defer g.mut.Unlock()
	return g.released
}

// SSHGuest is a static guest that is reachable via ssh.
type SSHGuest struct {
	*Guest
}

var _ guest.Connectable = &SSHGuest{}

func (g *SSHGuest) ConnectionInfo() guest.ConnectionInfo {
	return g.spec.ConnectionInfo()
}
