// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

// Output is a file produced while an entry was processed, e.g. a test log.
type Output struct {
	Label   string `json:"label"`
	LogPath string `json:"logPath"`
}

// TestResult is a single test case result reported by a runner plugin.
type TestResult struct {
	Name     string        `json:"name"`
	Result   Result        `json:"result"`
	Duration time.Duration `json:"duration"`
	LogPath  string        `json:"logPath,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// StageChange records when an entry entered a stage.
type StageChange struct {
	Stage Stage     `json:"stage"`
	Time  time.Time `json:"time"`
}

// Entry is one unit of work that pairs a testing environment with a test plan.
// The mutable fields are guarded by a mutex so that progress reporting can read them
// while a worker owns the entry.
type Entry struct {
	ID                 string
	TestingEnvironment testingenvironment.TestingEnvironment
	WorkDir            string

	Log logr.Logger

	mut               sync.RWMutex
	runnerCapability  string
	plan              string
	testsuiteName     string
	stage             Stage
	state             State
	result            Result
	guest             guest.Guest
	exceptions        []error
	guestSetupOutputs map[guest.SetupStage][]guest.SetupOutput
	outputs           []Output
	results           []TestResult
	history           []StageChange
}

// EntryID derives the identifier of an entry from its environment and plan.
func EntryID(env testingenvironment.TestingEnvironment, plan string) string {
	return fmt.Sprintf("%s:%s:%s", env.Compose, env.Arch, plan)
}

// NewEntry creates an entry in stage created.
func NewEntry(id, plan, runnerCapability string, env testingenvironment.TestingEnvironment) *Entry {
	if id == "" {
		id = EntryID(env, plan)
	}
	e := &Entry{
		ID:                 id,
		TestingEnvironment: env,
		Log:                logr.Discard(),
		runnerCapability:   runnerCapability,
		plan:               plan,
		testsuiteName:      plan,
		stage:              StageCreated,
		state:              StateOK,
		result:             ResultUndefined,
		guestSetupOutputs:  map[guest.SetupStage][]guest.SetupOutput{},
	}
	e.history = []StageChange{{Stage: StageCreated, Time: time.Now()}}
	return e
}

// WithLogger sets the logger of the entry and returns the entry.
func (e *Entry) WithLogger(log logr.Logger) *Entry {
	e.Log = log.WithValues("entry", e.ID)
	return e
}

func (e *Entry) String() string {
	return e.ID
}

// Plan returns the test plan of the entry.
func (e *Entry) Plan() string {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.plan
}

// TestsuiteName returns the name the entry is reported with.
func (e *Entry) TestsuiteName() string {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.testsuiteName
}

// RunnerCapability returns the capability of the runner plugin that executes the entry.
func (e *Entry) RunnerCapability() string {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.runnerCapability
}

// Stage returns the current stage.
func (e *Entry) Stage() Stage {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.stage
}

// SetStage moves the entry to the given stage.
func (e *Entry) SetStage(stage Stage) {
	e.mut.Lock()
	defer e.mut.Unlock()
	if e.stage == stage {
		return
	}
	e.Log.V(3).Info("stage change", "from", e.stage, "to", stage)
	e.stage = stage
	e.history = append(e.history, StageChange{Stage: stage, Time: time.Now()})
}

// State returns the current state.
func (e *Entry) State() State {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.state
}

// SetState sets the state of the entry.
// An entry in state error never returns to ok.
func (e *Entry) SetState(state State) {
	e.mut.Lock()
	defer e.mut.Unlock()
	if e.state == StateError {
		return
	}
	e.state = state
}

// Result returns the test verdict of the entry.
func (e *Entry) Result() Result {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.result
}

// SetResult sets the test verdict of the entry.
func (e *Entry) SetResult(result Result) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.result = result
}

// Guest returns the guest currently assigned to the entry.
func (e *Entry) Guest() guest.Guest {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return e.guest
}

// SetGuest assigns a guest to the entry.
func (e *Entry) SetGuest(g guest.Guest) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.guest = g
}

// TakeGuest removes the guest from the entry and returns it.
// Only the first caller receives the guest, later calls return nil.
func (e *Entry) TakeGuest() guest.Guest {
	e.mut.Lock()
	defer e.mut.Unlock()
	g := e.guest
	e.guest = nil
	return g
}

// Fail records the error and switches the entry to state error.
func (e *Entry) Fail(err error) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.state = StateError
	if err != nil {
		e.exceptions = append(e.exceptions, err)
	}
}

// Exceptions returns all errors recorded for the entry.
func (e *Entry) Exceptions() []error {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return append([]error{}, e.exceptions...)
}

// AddGuestSetupOutputs appends outputs of a guest setup stage.
func (e *Entry) AddGuestSetupOutputs(stage guest.SetupStage, outputs ...guest.SetupOutput) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.guestSetupOutputs[stage] = append(e.guestSetupOutputs[stage], outputs...)
}

// GuestSetupOutputs returns a copy of all guest setup outputs by stage.
func (e *Entry) GuestSetupOutputs() map[guest.SetupStage][]guest.SetupOutput {
	e.mut.RLock()
	defer e.mut.RUnlock()
	c := make(map[guest.SetupStage][]guest.SetupOutput, len(e.guestSetupOutputs))
	for stage, outputs := range e.guestSetupOutputs {
		c[stage] = append([]guest.SetupOutput{}, outputs...)
	}
	return c
}

// AddOutputs appends files produced by the entry.
func (e *Entry) AddOutputs(outputs ...Output) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.outputs = append(e.outputs, outputs...)
}

// Outputs returns all files produced by the entry.
func (e *Entry) Outputs() []Output {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return append([]Output{}, e.outputs...)
}

// AddResults appends test results reported by a runner plugin.
func (e *Entry) AddResults(results ...TestResult) {
	e.mut.Lock()
	defer e.mut.Unlock()
	e.results = append(e.results, results...)
}

// TestResults returns the test results reported by the runner plugin.
func (e *Entry) TestResults() []TestResult {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return append([]TestResult{}, e.results...)
}

// History returns all stage changes of the entry.
func (e *Entry) History() []StageChange {
	e.mut.RLock()
	defer e.mut.RUnlock()
	return append([]StageChange{}, e.history...)
}

// Duration returns the time between the creation of the entry and its last stage change.
func (e *Entry) Duration() time.Duration {
	e.mut.RLock()
	defer e.mut.RUnlock()
	if len(e.history) < 2 {
		return 0
	}
	return e.history[len(e.history)-1].Time.Sub(e.history[0].Time)
}
