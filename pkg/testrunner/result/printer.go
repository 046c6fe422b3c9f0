// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

// PrintResults prints a table with the test results of all entries.
// Entries without detailed test results are printed with their own result.
func PrintResults(w io.Writer, schedule *testschedule.Schedule, overall testschedule.Result) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"SE", "Test", "Result", "Duration"})

	for _, e := range schedule.Entries() {
		results := e.TestResults()
		if len(results) == 0 {
			table.Append([]string{e.ID, "-", string(entryResult(e)), e.Duration().Round(time.Second).String()})
			continue
		}
		for _, r := range results {
			table.Append([]string{e.ID, r.Name, string(r.Result), r.Duration.Round(time.Second).String()})
		}
	}
	table.SetFooter([]string{"", "Overall", string(overall), ""})
	table.Render()
}
