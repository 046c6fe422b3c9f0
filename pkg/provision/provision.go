// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:generate mockgen -destination=./mocks/provisioner.go github.com/testing-farm/schedule-runner/pkg/provision Provisioner

package provision

import (
	"context"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// Provisioner acquires guests for a testing environment.
// Implementations return cancellation.ErrPipelineCancelled if the pipeline was cancelled
// before or while the guests were acquired.
type Provisioner interface {
	Provision(ctx context.Context, env testingenvironment.TestingEnvironment, workDir string) ([]guest.Guest, error)
}

// ProvisionerFunc adapts a function to the Provisioner interface.
type ProvisionerFunc func(ctx context.Context, env testingenvironment.TestingEnvironment, workDir string) ([]guest.Guest, error)

func (f ProvisionerFunc) Provision(ctx context.Context, env testingenvironment.TestingEnvironment, workDir string) ([]guest.Guest, error) {
	return f(ctx, env, workDir)
}
