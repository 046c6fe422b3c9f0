// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"github.com/go-logr/logr"

	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// labels of the result hooks that are fired by the schedule runner
const (
	LabelTestExecutionStarted  = "test execution started"
	LabelTestExecutionFinished = "test execution finished"
	LabelEntryError            = "entry error"
)

// Notifier receives fire and forget notifications about the progress of a schedule.
type Notifier interface {
	ScheduleStarted(schedule *testschedule.Schedule)
	// Results is fired whenever results are worth to be regenerated, e.g. after a guest setup stage.
	Results(label string, schedule *testschedule.Schedule)
	EntryError(entry *testschedule.Entry, err error)
	ScheduleError(schedule *testschedule.Schedule, err error)
	ScheduleFinished(schedule *testschedule.Schedule)
}

// Multi forwards all notifications to every notifier in order.
type Multi []Notifier

var _ Notifier = Multi{}

func (m Multi) ScheduleStarted(schedule *testschedule.Schedule) {
	for _, n := range m {
		n.ScheduleStarted(schedule)
	}
}

func (m Multi) Results(label string, schedule *testschedule.Schedule) {
	for _, n := range m {
		n.Results(label, schedule)
	}
}

func (m Multi) EntryError(entry *testschedule.Entry, err error) {
	for _, n := range m {
		n.EntryError(entry, err)
	}
}

func (m Multi) ScheduleError(schedule *testschedule.Schedule, err error) {
	for _, n := range m {
		n.ScheduleError(schedule, err)
	}
}

func (m Multi) ScheduleFinished(schedule *testschedule.Schedule) {
	for _, n := range m {
		n.ScheduleFinished(schedule)
	}
}

type logNotifier struct {
	log logr.Logger
}

// NewLogNotifier returns a notifier that logs all notifications.
func NewLogNotifier(log logr.Logger) Notifier {
	return &logNotifier{log: log.WithName("events")}
}

func (l *logNotifier) ScheduleStarted(schedule *testschedule.Schedule) {
	l.log.Info("test schedule started", "entries", schedule.Len())
}

func (l *logNotifier) Results(label string, schedule *testschedule.Schedule) {
	l.log.V(3).Info("results updated", "label", label)
}

func (l *logNotifier) EntryError(entry *testschedule.Entry, err error) {
	l.log.Error(err, "schedule entry crashed", "entry", entry.ID, "stage", entry.Stage())
}

func (l *logNotifier) ScheduleError(schedule *testschedule.Schedule, err error) {
	l.log.Error(err, "test schedule failed")
}

func (l *logNotifier) ScheduleFinished(schedule *testschedule.Schedule) {
	l.log.Info("test schedule finished", "result", schedule.Result())
}
