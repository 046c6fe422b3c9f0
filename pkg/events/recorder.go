// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"

	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// event names recorded by the Recorder
const (
	EventScheduleStarted  = "test-schedule.start"
	EventResults          = "test-schedule.results"
	EventEntryError       = "test-schedule.entry-error"
	EventScheduleError    = "test-schedule.error"
	EventScheduleFinished = "test-schedule.finished"
)

// Event is a single recorded notification.
type Event struct {
	Name  string
	Label string
	Entry string
	Err   error
}

// Recorder keeps all notifications in memory.
type Recorder struct {
	mut    sync.Mutex
	events []Event
}

var _ Notifier = &Recorder{}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(e Event) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.events = append(r.events, e)
}

// Events returns all recorded events in order.
func (r *Recorder) Events() []Event {
	r.mut.Lock()
	defer r.mut.Unlock()
	return append([]Event{}, r.events...)
}

// Names returns the names of all recorded events in order.
func (r *Recorder) Names() []string {
	names := []string{}
	for _, e := range r.Events() {
		names = append(names, e.Name)
	}
	return names
}

// Labels returns the labels of all recorded result events in order.
func (r *Recorder) Labels() []string {
	labels := []string{}
	for _, e := range r.Events() {
		if e.Name == EventResults {
			labels = append(labels, e.Label)
		}
	}
	return labels
}

func (r *Recorder) ScheduleStarted(_ *testschedule.Schedule) {
	r.record(Event{Name: EventScheduleStarted})
}

func (r *Recorder) Results(label string, _ *testschedule.Schedule) {
	r.record(Event{Name: EventResults, Label: label})
}

func (r *Recorder) EntryError(entry *testschedule.Entry, err error) {
	r.record(Event{Name: EventEntryError, Entry: entry.ID, Err: err})
}

func (r *Recorder) ScheduleError(_ *testschedule.Schedule, err error) {
	r.record(Event{Name: EventScheduleError, Err: err})
}

func (r *Recorder) ScheduleFinished(_ *testschedule.Schedule) {
	r.record(Event{Name: EventScheduleFinished})
}
