// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

type xunitTestsuites struct {
	XMLName       xml.Name         `xml:"testsuites"`
	OverallResult string           `xml:"overall-result,attr"`
	Tests         int              `xml:"tests,attr"`
	Failures      int              `xml:"failures,attr"`
	Errors        int              `xml:"errors,attr"`
	Skipped       int              `xml:"skipped,attr"`
	Testsuites    []xunitTestsuite `xml:"testsuite"`
}

type xunitTestsuite struct {
	Name       string          `xml:"name,attr"`
	ID         string          `xml:"id,attr"`
	Result     string          `xml:"result,attr"`
	Stage      string          `xml:"stage,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       string          `xml:"time,attr"`
	Properties []xunitProperty `xml:"properties>property,omitempty"`
	Logs       []xunitLog      `xml:"logs>log,omitempty"`
	Testcases  []xunitTestcase `xml:"testcase"`
	SystemErr  string          `xml:"system-err,omitempty"`
}

type xunitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xunitLog struct {
	Name string `xml:"name,attr"`
	Href string `xml:"href,attr"`
}

type xunitTestcase struct {
	Name    string        `xml:"name,attr"`
	Result  string        `xml:"result,attr"`
	Time    string        `xml:"time,attr"`
	Logs    []xunitLog    `xml:"logs>log,omitempty"`
	Failure *xunitMessage `xml:"failure,omitempty"`
	Error   *xunitMessage `xml:"error,omitempty"`
	Skipped *xunitMessage `xml:"skipped,omitempty"`
}

type xunitMessage struct {
	Message string `xml:"message,attr,omitempty"`
	Text    string `xml:",chardata"`
}

// XUnit renders the schedule as xunit document with one testsuite per entry.
func XUnit(schedule *testschedule.Schedule, overall testschedule.Result) ([]byte, error) {
	doc := xunitTestsuites{OverallResult: string(overall)}
	for _, e := range schedule.Entries() {
		suite := entryTestsuite(e)
		doc.Tests += suite.Tests
		doc.Failures += suite.Failures
		doc.Errors += suite.Errors
		doc.Skipped += suite.Skipped
		doc.Testsuites = append(doc.Testsuites, suite)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode xunit document")
	}
	return append([]byte(xml.Header), data...), nil
}

// WriteXUnit writes the xunit document of the schedule to path.
func WriteXUnit(path string, schedule *testschedule.Schedule, overall testschedule.Result) error {
	data, err := XUnit(schedule, overall)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func entryTestsuite(e *testschedule.Entry) xunitTestsuite {
	result := entryResult(e)
	suite := xunitTestsuite{
		Name:   e.TestsuiteName(),
		ID:     e.ID,
		Result: string(result),
		Stage:  string(e.Stage()),
		Time:   seconds(e.Duration()),
		Properties: []xunitProperty{
			{Name: "arch", Value: e.TestingEnvironment.Arch},
			{Name: "compose", Value: e.TestingEnvironment.Compose},
			{Name: "runner-capability", Value: e.RunnerCapability()},
			{Name: "state", Value: string(e.State())},
		},
	}

	setupOutputs := e.GuestSetupOutputs()
	for _, stage := range guest.SetupStages {
		for _, output := range setupOutputs[stage] {
			suite.Logs = append(suite.Logs, xunitLog{Name: fmt.Sprintf("%s/%s", stage, output.Label), Href: output.LogPath})
		}
	}
	for _, output := range e.Outputs() {
		suite.Logs = append(suite.Logs, xunitLog{Name: output.Label, Href: output.LogPath})
	}

	exceptions := make([]string, 0)
	for _, err := range e.Exceptions() {
		exceptions = append(exceptions, err.Error())
	}
	suite.SystemErr = strings.Join(exceptions, "\n")

	results := e.TestResults()
	if len(results) == 0 {
		// entries without detailed results are reported as a single testcase of the plan
		results = []testschedule.TestResult{{Name: e.Plan(), Result: result, Duration: e.Duration()}}
	}
	for _, r := range results {
		tc := xunitTestcase{
			Name:   r.Name,
			Result: string(r.Result),
			Time:   seconds(r.Duration),
		}
		if r.LogPath != "" {
			tc.Logs = []xunitLog{{Name: "testrun", Href: r.LogPath}}
		}
		switch r.Result {
		case testschedule.ResultFailed:
			tc.Failure = &xunitMessage{Message: r.Message}
			suite.Failures++
		case testschedule.ResultError:
			msg := r.Message
			if msg == "" {
				msg = suite.SystemErr
			}
			tc.Error = &xunitMessage{Message: msg}
			suite.Errors++
		case testschedule.ResultSkipped, testschedule.ResultNotApplicable:
			tc.Skipped = &xunitMessage{Message: r.Message}
			suite.Skipped++
		}
		suite.Tests++
		suite.Testcases = append(suite.Testcases, tc)
	}
	return suite
}

// entryResult returns the result of an entry as it contributes to the overall result.
func entryResult(e *testschedule.Entry) testschedule.Result {
	if e.State() == testschedule.StateError {
		return testschedule.ResultError
	}
	return e.Result()
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// writeFile replaces the file at path so that readers never see a partially written file.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrapf(err, "unable to create directory for %s", path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "unable to write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	return nil
}
