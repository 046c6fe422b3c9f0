// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// Summary is the machine readable state of a schedule.
type Summary struct {
	// Label names the hook the summary was generated for.
	Label    string              `json:"label,omitempty"`
	Result   testschedule.Result `json:"result"`
	Complete bool                `json:"complete"`
	Entries  []EntrySummary      `json:"entries"`
}

// EntrySummary is the machine readable state of a single schedule entry.
type EntrySummary struct {
	ID                string                                   `json:"id"`
	Plan              string                                   `json:"plan"`
	TestsuiteName     string                                   `json:"testsuiteName"`
	RunnerCapability  string                                   `json:"runnerCapability"`
	Stage             testschedule.Stage                       `json:"stage"`
	State             testschedule.State                       `json:"state"`
	Result            testschedule.Result                      `json:"result"`
	Environment       json.RawMessage                          `json:"environment"`
	Guest             string                                   `json:"guest,omitempty"`
	Duration          string                                   `json:"duration"`
	Exceptions        []string                                 `json:"exceptions,omitempty"`
	GuestSetupOutputs map[guest.SetupStage][]guest.SetupOutput `json:"guestSetupOutputs,omitempty"`
	Outputs           []testschedule.Output                    `json:"outputs,omitempty"`
	Results           []testschedule.TestResult                `json:"results,omitempty"`
	History           []testschedule.StageChange               `json:"history"`
}

// Summarize takes a snapshot of the schedule.
// Secrets of the testing environments are hidden.
func Summarize(label string, schedule *testschedule.Schedule, overall testschedule.Result) (*Summary, error) {
	summary := &Summary{
		Label:    label,
		Result:   overall,
		Complete: schedule.Complete(),
		Entries:  []EntrySummary{},
	}
	for _, e := range schedule.Entries() {
		env, err := e.TestingEnvironment.SerializeToJSON(true)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to serialize environment of %s", e.ID)
		}
		es := EntrySummary{
			ID:                e.ID,
			Plan:              e.Plan(),
			TestsuiteName:     e.TestsuiteName(),
			RunnerCapability:  e.RunnerCapability(),
			Stage:             e.Stage(),
			State:             e.State(),
			Result:            e.Result(),
			Environment:       env,
			Duration:          e.Duration().String(),
			GuestSetupOutputs: e.GuestSetupOutputs(),
			Outputs:           e.Outputs(),
			Results:           e.TestResults(),
			History:           e.History(),
		}
		if g := e.Guest(); g != nil {
			es.Guest = g.Name()
		}
		for _, err := range e.Exceptions() {
			es.Exceptions = append(es.Exceptions, err.Error())
		}
		if len(es.GuestSetupOutputs) == 0 {
			es.GuestSetupOutputs = nil
		}
		summary.Entries = append(summary.Entries, es)
	}
	return summary, nil
}

// WriteSummary writes the summary as indented json to path.
func WriteSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to encode results summary")
	}
	return writeFile(path, data)
}
