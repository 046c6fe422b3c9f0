// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"context"

	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// Plugin runs the tests of a schedule entry.
// It is expected to set the result of the entry and may add test results and outputs.
// A returned error means the tests could not be executed, failing tests are reported via the entry result.
type Plugin interface {
	RunTestScheduleEntry(ctx context.Context, entry *testschedule.Entry) error
}

// PluginFunc is a function that implements Plugin.
type PluginFunc func(ctx context.Context, entry *testschedule.Entry) error

func (f PluginFunc) RunTestScheduleEntry(ctx context.Context, entry *testschedule.Entry) error {
	return f(ctx, entry)
}

// Plugins are runner plugins by the runner capability they serve.
type Plugins map[string]Plugin
