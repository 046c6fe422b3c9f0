// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmdutil

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table collects the rows of a borderless, left aligned table as printed by the cli commands.
type Table struct {
	Headers []string
	Rows    [][]string
	// Footer is optional. Short footers are padded to the number of headers.
	Footer []string
}

// NewTable creates an empty table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// Append adds a row. Missing cells are left empty.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, t.pad(cells))
}

func (t *Table) pad(cells []string) []string {
	if len(cells) >= len(t.Headers) {
		return cells
	}
	row := make([]string, len(t.Headers))
	copy(row, cells)
	return row
}

// Print renders the table to the writer.
func (t *Table) Print(output io.Writer) {
	table := tablewriter.NewWriter(output)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetFooterAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)

	table.SetHeader(t.Headers)
	table.AppendBulk(t.Rows)
	if len(t.Footer) != 0 {
		table.SetFooter(t.pad(t.Footer))
	}
	table.Render()
}
