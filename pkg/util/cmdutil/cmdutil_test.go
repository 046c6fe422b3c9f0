// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmdutil_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testing-farm/schedule-runner/pkg/util/cmdutil"
)

var _ = Describe("table", func() {
	It("should pad short rows and the footer", func() {
		t := cmdutil.NewTable("SE", "Plan", "Runner")
		t.Append("a", "/plans/smoke", "command")
		t.Append("b")
		t.Footer = []string{"2 entries"}
		Expect(t.Rows[1]).To(Equal([]string{"b", "", ""}))

		out := &bytes.Buffer{}
		t.Print(out)
		printed := out.String()
		Expect(printed).To(ContainSubstring("PLAN"))
		Expect(printed).To(ContainSubstring("/plans/smoke"))
		Expect(strings.Index(printed, "/plans/smoke")).To(BeNumerically("<", strings.Index(printed, "2 ENTRIES")))
	})
})
