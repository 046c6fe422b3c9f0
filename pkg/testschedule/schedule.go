// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"sync"
)

// Schedule is an ordered list of entries.
// The order of the entries defines the execution order in serial mode.
type Schedule struct {
	mut     sync.RWMutex
	entries []*Entry
}

// New creates a schedule that contains the given entries.
func New(entries ...*Entry) *Schedule {
	s := &Schedule{}
	for _, e := range entries {
		s.Append(e)
	}
	return s
}

// Append adds an entry to the end of the schedule.
func (s *Schedule) Append(e *Entry) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.entries = append(s.entries, e)
}

// Entries returns the entries in schedule order.
func (s *Schedule) Entries() []*Entry {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return append([]*Entry{}, s.entries...)
}

// Len returns the number of entries.
func (s *Schedule) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.entries)
}

// Get returns the entry with the given id.
func (s *Schedule) Get(id string) (*Entry, bool) {
	for _, e := range s.Entries() {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Complete returns true if all entries reached stage complete.
func (s *Schedule) Complete() bool {
	for _, e := range s.Entries() {
		if e.Stage() != StageComplete {
			return false
		}
	}
	return true
}

// Result computes the overall result of the schedule.
// Any incomplete entry makes the result undefined.
// Otherwise the most severe entry result wins and entries in state error count as error.
func (s *Schedule) Result() Result {
	entries := s.Entries()
	if len(entries) == 0 {
		return ResultUndefined
	}

	result := ResultUndefined
	for _, e := range entries {
		if e.Stage() != StageComplete {
			return ResultUndefined
		}
		r := e.Result()
		if e.State() == StateError {
			r = ResultError
		}
		if r.MoreSevere(result) {
			result = r
		}
	}
	return result
}

// Attributes returns a snapshot of the schedule as plain values for rule evaluation.
func (s *Schedule) Attributes() map[string]interface{} {
	entries := s.Entries()
	list := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.Attributes())
	}
	return map[string]interface{}{
		"entries":  list,
		"result":   string(s.Result()),
		"complete": s.Complete(),
		"len":      int64(len(entries)),
	}
}
