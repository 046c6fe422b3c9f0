// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testschedule

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/olekukonko/tablewriter"

	"github.com/testing-farm/schedule-runner/pkg/guest"
)

// LogOptions configures which tables are printed for a schedule.
type LogOptions struct {
	IncludeErrors         bool
	IncludeLogs           bool
	IncludeConnectionInfo bool
}

// LogTo renders the schedule tables and writes them as a single info message.
func (s *Schedule) LogTo(log logr.Logger, label string, opts LogOptions) {
	if !log.Enabled() {
		return
	}
	var buf bytes.Buffer
	s.Log(&buf, opts)
	log.Info(fmt.Sprintf("%s\n%s", label, buf.String()))
}

// Log writes a human readable summary of the schedule to w.
func (s *Schedule) Log(w io.Writer, opts LogOptions) {
	entries := s.Entries()

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"SE", "Stage", "State", "Result", "Environment", "Guest", "Runner"})
	for _, e := range entries {
		guestName := "<no guest>"
		if g := e.Guest(); g != nil {
			guestName = g.Name()
		}
		table.Append([]string{
			e.ID,
			string(e.Stage()),
			string(e.State()),
			string(e.Result()),
			e.TestingEnvironment.String(),
			guestName,
			e.RunnerCapability(),
		})
	}
	table.SetFooter([]string{"", "", "", string(s.Result()), "", "", fmt.Sprintf("%d entries", len(entries))})
	table.Render()

	if opts.IncludeErrors {
		logErrors(w, entries)
	}
	if opts.IncludeLogs {
		logOutputs(w, entries)
	}
	if opts.IncludeConnectionInfo {
		logConnectionInfo(w, entries)
	}
}

func logErrors(w io.Writer, entries []*Entry) {
	rows := [][]string{}
	for _, e := range entries {
		for _, err := range e.Exceptions() {
			rows = append(rows, []string{e.ID, err.Error()})
		}
	}
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"SE", "Error"})
	table.AppendBulk(rows)
	table.Render()
}

func logOutputs(w io.Writer, entries []*Entry) {
	rows := [][]string{}
	for _, e := range entries {
		outputs := e.GuestSetupOutputs()
		for _, stage := range guest.SetupStages {
			for _, out := range outputs[stage] {
				rows = append(rows, []string{e.ID, string(stage), out.Label, out.LogPath})
			}
		}
		for _, out := range e.Outputs() {
			rows = append(rows, []string{e.ID, string(StageRunning), out.Label, out.LogPath})
		}
	}
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"SE", "Stage", "Log", "Location"})
	table.AppendBulk(rows)
	table.Render()
}

func logConnectionInfo(w io.Writer, entries []*Entry) {
	rows := [][]string{}
	for _, e := range entries {
		g := e.Guest()
		if g == nil {
			continue
		}
		conn, ok := g.(guest.Connectable)
		if !ok {
			continue
		}
		rows = append(rows, []string{e.ID, g.Name(), conn.ConnectionInfo().SSHCommand()})
	}
	if len(rows) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return strings.Compare(rows[i][0], rows[j][0]) < 0 })
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"SE", "Guest", "SSH command"})
	table.AppendBulk(rows)
	table.Render()
}
