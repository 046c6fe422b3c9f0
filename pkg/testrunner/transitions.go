// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner

import (
	"github.com/testing-farm/schedule-runner/pkg/events"
	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// names of the jobs that move an entry forward
const (
	JobGetEntryReady = "get entry ready"
	JobProvisioning  = "provisioning"
	JobGuestSetup    = "guest setup"
	JobRunningTests  = "running tests"
	JobCleanup       = "cleanup"
)

// Transition describes how an entry moves on.
type Transition struct {
	// Next is the stage the entry is shifted to.
	Next testschedule.Stage
	// Job is the name of the job that is enqueued for the entry afterwards.
	Job string
	// Label of the results hook that is fired after the shift.
	Label string
	// Feed starts the next pending entry.
	Feed bool
	// Message is logged for the entry.
	Message string
}

// resolver may replace the default transition depending on the job result.
type resolver func(e *testschedule.Entry, result interface{}) (Transition, bool)

type completion struct {
	Transition
	resolve resolver
}

// provisioningCancelled is the result of a provisioning job that was stopped by the cancellation token.
type provisioningCancelled struct{}

// startTransitions are applied by the job start hook after the attribute rules.
var startTransitions = map[testschedule.Stage]Transition{
	testschedule.StageReady: {
		Next:    testschedule.StageGuestProvisioning,
		Message: "planning guest provisioning",
	},
	testschedule.StageGuestProvisioned: {
		Next:    testschedule.StageGuestSetup,
		Message: "planning guest setup",
	},
	testschedule.StagePrepared: {
		Next:    testschedule.StageRunning,
		Label:   events.LabelTestExecutionStarted,
		Message: "planning test execution",
	},
}

var reuseTransition = Transition{
	Next:    testschedule.StagePrepared,
	Job:     JobRunningTests,
	Message: "cached guest suitable to entry is found",
}

var cancelledTransition = Transition{
	Next:    testschedule.StageComplete,
	Feed:    true,
	Message: "guest provisioning cancelled",
}

var singleHostCompletions = map[testschedule.Stage]completion{
	testschedule.StageCreated: {
		Transition: Transition{Next: testschedule.StageReady, Job: JobProvisioning, Message: "entry is ready"},
		resolve: func(e *testschedule.Entry, result interface{}) (Transition, bool) {
			if g, ok := result.(guest.Guest); ok && g != nil {
				e.SetGuest(g)
				return reuseTransition, true
			}
			return Transition{}, false
		},
	},
	testschedule.StageGuestProvisioning: {
		Transition: Transition{Next: testschedule.StageGuestProvisioned, Job: JobGuestSetup, Message: "guest provisioning finished"},
		resolve: func(e *testschedule.Entry, result interface{}) (Transition, bool) {
			switch r := result.(type) {
			case provisioningCancelled:
				return cancelledTransition, true
			case []guest.Guest:
				e.SetGuest(r[0])
			}
			return Transition{}, false
		},
	},
	testschedule.StageGuestSetup: {
		Transition: Transition{Next: testschedule.StagePrepared, Job: JobRunningTests, Message: "guest setup finished"},
	},
	testschedule.StageRunning: {
		Transition: Transition{Next: testschedule.StageCleanup, Job: JobCleanup, Label: events.LabelTestExecutionFinished, Message: "test execution finished"},
	},
	testschedule.StageCleanup: {
		Transition: Transition{Next: testschedule.StageComplete, Feed: true, Message: "cleanup finished"},
	},
	testschedule.StageComplete: {
		Transition: Transition{Next: testschedule.StageComplete, Feed: true},
	},
}

var multiHostCompletions = map[testschedule.Stage]completion{
	testschedule.StageCreated: {
		Transition: Transition{Next: testschedule.StagePrepared, Job: JobRunningTests, Message: "entry is ready"},
	},
	testschedule.StageRunning: {
		Transition: Transition{Next: testschedule.StageComplete, Label: events.LabelTestExecutionFinished, Feed: true, Message: "test execution finished"},
	},
	testschedule.StageComplete: {
		Transition: Transition{Next: testschedule.StageComplete, Feed: true},
	},
}

func completions(mode Mode) map[testschedule.Stage]completion {
	if mode == ModeMultiHost {
		return multiHostCompletions
	}
	return singleHostCompletions
}

// Transitions returns the default transitions applied when a job of an entry in a stage completes.
func Transitions(mode Mode) map[testschedule.Stage]Transition {
	table := completions(mode)
	res := make(map[testschedule.Stage]Transition, len(table))
	for stage, c := range table {
		res[stage] = c.Transition
	}
	return res
}

// StartTransitions returns the shifts applied before a job of an entry in a stage starts.
func StartTransitions() map[testschedule.Stage]Transition {
	res := make(map[testschedule.Stage]Transition, len(startTransitions))
	for stage, t := range startTransitions {
		res[stage] = t
	}
	return res
}
