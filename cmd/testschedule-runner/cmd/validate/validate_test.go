// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package validatecmd

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("validate command", func() {

	var dir string

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), os.ModePerm)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should print the entries of a valid schedule", func() {
		opts := &options{
			schedulePath: writeFile("schedule.yaml", `
entries:
- plan: /plans/smoke
  environment:
    arch: aarch64
    compose: Fedora-40
`),
			attributeRuleFiles: []string{writeFile("entry.yaml", `
- rule: ENTRY.testing_environment.arch == "aarch64"
  result: not_applicable
  stage: complete
`)},
		}
		out := &bytes.Buffer{}
		Expect(opts.validate(logr.Discard(), out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Fedora-40:aarch64:/plans/smoke"))
		Expect(out.String()).To(ContainSubstring("1 entries, 1 attribute rules, 0 overall result rules"))
	})

	It("should reject invalid rule tables", func() {
		opts := &options{
			schedulePath:           writeFile("schedule.yaml", "entries:\n- plan: /plans/smoke\n"),
			overallResultRuleFiles: []string{writeFile("overall.yaml", "- {rule: 'true', set-result: great}\n")},
		}
		Expect(opts.validate(logr.Discard(), &bytes.Buffer{})).To(MatchError(ContainSubstring("unknown result")))
	})

	It("should accept rules that reference eval variables", func() {
		opts := &options{
			schedulePath:           writeFile("schedule.yaml", "entries:\n- plan: /plans/smoke\n"),
			overallResultRuleFiles: []string{writeFile("overall.yaml", "- {rule: 'COMPOSE_FAMILY == \"fedora\"', set-result: passed}\n")},
		}
		Expect(opts.validate(logr.Discard(), &bytes.Buffer{})).To(MatchError(ContainSubstring("COMPOSE_FAMILY")))

		opts.evalVars = []string{"COMPOSE_FAMILY=fedora"}
		Expect(opts.validate(logr.Discard(), &bytes.Buffer{})).To(Succeed())
	})

	It("should reject an invalid guest pool", func() {
		opts := &options{
			schedulePath: writeFile("schedule.yaml", "entries:\n- plan: /plans/smoke\n"),
			guestsPath:   writeFile("guests.yaml", "guests: []\n"),
		}
		Expect(opts.validate(logr.Discard(), &bytes.Buffer{})).To(HaveOccurred())
	})
})
