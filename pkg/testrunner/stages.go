// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
	"github.com/testing-farm/schedule-runner/pkg/guest"
	trerrors "github.com/testing-farm/schedule-runner/pkg/testrunner/error"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// getEntryReady looks up a reusable guest for the entry.
// The returned guest is assigned to the entry by the completion hook.
func (run *scheduleRun) getEntryReady(ctx context.Context, e *testschedule.Entry) (interface{}, error) {
	if !run.config.ReuseGuests || run.config.mode() != ModeSingleHost {
		return nil, nil
	}
	g := run.cache.Claim(ctx, e.TestingEnvironment)
	if g == nil {
		return nil, nil
	}
	return g, nil
}

func (run *scheduleRun) provisionGuest(ctx context.Context, e *testschedule.Entry) (interface{}, error) {
	if run.token.Cancelled() {
		return provisioningCancelled{}, nil
	}
	e.Log.Info("starting guest provisioning")
	guests, err := run.provisioner.Provision(ctx, e.TestingEnvironment, e.WorkDir)
	if err != nil {
		if cancellation.IsCancelled(err) {
			return provisioningCancelled{}, nil
		}
		return nil, trerrors.NewProvisioningError(err)
	}
	if len(guests) == 0 {
		return nil, trerrors.NewProvisioningError(errors.New("provisioner returned no guest"))
	}
	for _, extra := range guests[1:] {
		e.Log.Info("destroying additional guest", "guest", extra.Name())
		if err := run.destroy(ctx, extra); err != nil {
			e.Log.Error(err, "unable to destroy additional guest", "guest", extra.Name())
		}
	}
	return guests[:1], nil
}

// setupGuest runs all guest setup stages in order.
// The first failing stage stops the setup, the outputs of all executed stages are kept.
func (run *scheduleRun) setupGuest(ctx context.Context, e *testschedule.Entry) error {
	g := e.Guest()
	if g == nil {
		return trerrors.New(trerrors.TestrunnerReasonGuestSetup, "entry has no guest")
	}
	e.Log.Info("starting guest setup")

	for _, stage := range guest.SetupStages {
		if run.skipStages[stage] {
			e.Log.Info("skip stage on user request", "stage", stage)
			run.notifier.Results(string(stage), run.schedule)
			continue
		}

		outputs, err := g.Setup(ctx, stage, guest.SetupOptions{
			LogDir:      e.WorkDir,
			Environment: e.TestingEnvironment,
		})
		e.AddGuestSetupOutputs(stage, outputs...)
		for _, out := range outputs {
			e.Log.Info("guest setup output", "stage", stage, "label", out.Label, "log", out.LogPath)
		}
		if err != nil {
			return trerrors.NewGuestSetupError(err, string(stage))
		}
		run.notifier.Results(string(stage), run.schedule)
	}
	return nil
}

func (run *scheduleRun) runTests(ctx context.Context, e *testschedule.Entry) error {
	plugin, ok := run.plugins[e.RunnerCapability()]
	if !ok {
		return trerrors.NewTestExecutionError(errors.Errorf("no runner plugin for capability %q", e.RunnerCapability()))
	}
	e.Log.Info("starting tests execution")
	if err := plugin.RunTestScheduleEntry(ctx, e); err != nil {
		return trerrors.NewTestExecutionError(err)
	}
	return nil
}
