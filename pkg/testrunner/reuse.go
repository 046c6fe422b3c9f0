// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"context"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	trerrors "github.com/testing-farm/schedule-runner/pkg/testrunner/error"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// Cleanup releases the guest of the entry.
// The guest is returned to the reuse cache if guests are reused and the entry did not fail,
// otherwise it is destroyed. Entries without a guest are ignored, so cleanup can be called more than once.
func (r *Runner) Cleanup(ctx context.Context, e *testschedule.Entry) error {
	g := e.TakeGuest()
	if g == nil {
		return nil
	}
	if r.reusable(e) {
		e.Log.Info("returning guest to the cache", "guest", g.Name())
		r.cache.Put(g.Environment(), g)
		return nil
	}
	if r.config.ReuseGuests {
		e.Log.Info("The guest will be destroyed.", "guest", g.Name())
	}
	e.Log.Info("starting destroying guest", "guest", g.Name())
	if err := r.destroy(ctx, g); err != nil {
		return trerrors.NewCleanupError(err)
	}
	return nil
}

func (r *Runner) reusable(e *testschedule.Entry) bool {
	if !r.config.ReuseGuests || e.State() == testschedule.StateError {
		return false
	}
	if !r.config.DestroyIfFail {
		return true
	}
	switch e.Result() {
	case testschedule.ResultFailed, testschedule.ResultError:
		return false
	}
	return true
}

// destroy destroys the guest inside the critical section of the cancellation token,
// so that it never overlaps with a guest being created.
func (r *Runner) destroy(ctx context.Context, g guest.Guest) error {
	return r.token.Do(func() error {
		return g.Destroy(ctx)
	})
}
