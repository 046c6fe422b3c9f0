// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package result_test

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/rules"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
	"github.com/testing-farm/schedule-runner/pkg/testrunner/result"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
	mock_s3 "github.com/testing-farm/schedule-runner/pkg/util/s3/mocks"
)

func completedEntry(plan string, r testschedule.Result) *testschedule.Entry {
	e := testschedule.NewEntry("", plan, "command", testingenvironment.TestingEnvironment{Arch: "x86_64", Compose: "Fedora-40"})
	e.SetResult(r)
	e.SetStage(testschedule.StageComplete)
	return e
}

func overallRules(table string) *rules.RuleSet {
	rs, err := rules.Parse([]byte(table), "overall.yaml", rules.Options{Validator: result.ValidateOverallResultAttribute})
	Expect(err).ToNot(HaveOccurred())
	return rs
}

type xunitLog struct {
	Name string `xml:"name,attr"`
	Href string `xml:"href,attr"`
}

type xunitMessage struct {
	Message string `xml:"message,attr"`
}

type xunitTestcase struct {
	Name    string        `xml:"name,attr"`
	Failure *xunitMessage `xml:"failure"`
	Error   *xunitMessage `xml:"error"`
}

type xunitTestsuite struct {
	Name      string          `xml:"name,attr"`
	Result    string          `xml:"result,attr"`
	Logs      []xunitLog      `xml:"logs>log"`
	Testcases []xunitTestcase `xml:"testcase"`
}

type xunitDoc struct {
	OverallResult string           `xml:"overall-result,attr"`
	Tests         int              `xml:"tests,attr"`
	Failures      int              `xml:"failures,attr"`
	Errors        int              `xml:"errors,attr"`
	Testsuites    []xunitTestsuite `xml:"testsuite"`
}

var _ = Describe("result", func() {

	Context("overall result", func() {
		It("should return the computed result without rules", func() {
			s := testschedule.New(completedEntry("/plans/a", testschedule.ResultPassed), completedEntry("/plans/b", testschedule.ResultFailed))
			r, err := result.Overall(s, nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(r).To(Equal(testschedule.ResultFailed))
		})

		It("should apply the first matching rule", func() {
			s := testschedule.New(completedEntry("/plans/a", testschedule.ResultFailed))
			rs := overallRules(`
- rule: CURRENT_RESULT == "error"
  set-result: needs_inspection
- rule: CURRENT_RESULT == "failed" && EVAL.allow_failures == "yes"
  set-result: passed
- rule: CURRENT_RESULT == "failed"
  set-result: error
`)
			r, err := result.Overall(s, rs, map[string]interface{}{"EVAL": map[string]interface{}{"allow_failures": "yes"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(r).To(Equal(testschedule.ResultPassed))
		})

		It("should see the schedule in the rules", func() {
			s := testschedule.New(completedEntry("/plans/a", testschedule.ResultPassed))
			rs := overallRules(`
- rule: TEST_SCHEDULE.len == 1
  set-result: info
`)
			r, err := result.Overall(s, rs, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(r).To(Equal(testschedule.ResultInfo))
		})

		It("should keep the computed result if no rule matches", func() {
			s := testschedule.New(completedEntry("/plans/a", testschedule.ResultPassed))
			r, err := result.Overall(s, overallRules(`- {rule: "false", set-result: error}`), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(r).To(Equal(testschedule.ResultPassed))
		})

		It("should reject invalid rule tables", func() {
			_, err := rules.Parse([]byte(`- {rule: "true", result: passed}`), "overall.yaml", rules.Options{Validator: result.ValidateOverallResultAttribute})
			Expect(err).To(HaveOccurred())
			_, err = rules.Parse([]byte(`- {rule: "true", set-result: great}`), "overall.yaml", rules.Options{Validator: result.ValidateOverallResultAttribute})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("xunit", func() {
		It("should render one testsuite per entry", func() {
			passed := completedEntry("/plans/a", testschedule.ResultPassed)
			passed.AddGuestSetupOutputs(guest.SetupStagePreArtifactInstallation, guest.SetupOutput{
				Stage: guest.SetupStagePreArtifactInstallation, Label: "pre", LogPath: "/tmp/pre.log",
			})
			passed.AddOutputs(testschedule.Output{Label: "testrun", LogPath: "/tmp/testrun.log"})
			passed.AddResults(
				testschedule.TestResult{Name: "/tests/one", Result: testschedule.ResultPassed, Duration: time.Second},
				testschedule.TestResult{Name: "/tests/two", Result: testschedule.ResultFailed, Message: "assertion"},
			)
			crashed := completedEntry("/plans/b", testschedule.ResultUndefined)
			crashed.Fail(errors.New("provisioning failed"))

			data, err := result.XUnit(testschedule.New(passed, crashed), testschedule.ResultError)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(HavePrefix("<?xml"))

			doc := &xunitDoc{}
			Expect(xml.Unmarshal(data, doc)).To(Succeed())
			Expect(doc.OverallResult).To(Equal("error"))
			Expect(doc.Tests).To(Equal(3))
			Expect(doc.Failures).To(Equal(1))
			Expect(doc.Errors).To(Equal(1))
			Expect(doc.Testsuites).To(HaveLen(2))

			Expect(doc.Testsuites[0].Name).To(Equal("/plans/a"))
			Expect(doc.Testsuites[0].Logs).To(HaveLen(2))
			Expect(doc.Testsuites[0].Logs[0].Href).To(Equal("/tmp/pre.log"))
			Expect(doc.Testsuites[0].Testcases[1].Failure).ToNot(BeNil())

			Expect(doc.Testsuites[1].Result).To(Equal("error"))
			Expect(doc.Testsuites[1].Testcases).To(HaveLen(1))
			Expect(doc.Testsuites[1].Testcases[0].Name).To(Equal("/plans/b"))
			Expect(doc.Testsuites[1].Testcases[0].Error.Message).To(ContainSubstring("provisioning failed"))
		})
	})

	Context("reporter", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should regenerate the summary on every results hook", func() {
			resultsFile := filepath.Join(dir, "results.json")
			reporter := result.NewReporter(logr.Discard(), result.Config{ResultsFile: resultsFile})
			e := testschedule.NewEntry("", "/plans/a", "command", testingenvironment.TestingEnvironment{
				Arch:    "x86_64",
				Compose: "Fedora-40",
				Secrets: map[string]string{"token": "abc"},
			})
			s := testschedule.New(e)

			reporter.ScheduleStarted(s)
			summary := readSummary(resultsFile)
			Expect(summary.Label).To(Equal("schedule started"))
			Expect(summary.Complete).To(BeFalse())
			Expect(summary.Entries[0].Stage).To(Equal(testschedule.StageCreated))
			Expect(string(summary.Entries[0].Environment)).ToNot(ContainSubstring("abc"))

			e.SetStage(testschedule.StageRunning)
			reporter.Results("test execution started", s)
			summary = readSummary(resultsFile)
			Expect(summary.Label).To(Equal("test execution started"))
			Expect(summary.Entries[0].Stage).To(Equal(testschedule.StageRunning))
		})

		It("should not write anything without results file", func() {
			reporter := result.NewReporter(logr.Discard(), result.Config{})
			reporter.Results("test execution started", testschedule.New(completedEntry("/plans/a", testschedule.ResultPassed)))
			files, err := os.ReadDir(dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(BeEmpty())
		})

		It("should write all reports and upload the results", func(sCtx SpecContext) {
			ctrl := gomock.NewController(GinkgoT())
			client := mock_s3.NewMockClient(ctrl)
			client.EXPECT().FPutObject(gomock.Any(), "run-1/results.json", filepath.Join(dir, "results.json"), gomock.Any()).Return(nil)
			client.EXPECT().FPutObject(gomock.Any(), "run-1/xunit.xml", filepath.Join(dir, "xunit.xml"), gomock.Any()).Return(nil)

			out := &bytes.Buffer{}
			reporter := result.NewReporter(logr.Discard(), result.Config{
				XUnitFile:          filepath.Join(dir, "xunit.xml"),
				ResultsFile:        filepath.Join(dir, "results.json"),
				OverallResultRules: overallRules(`- {rule: 'CURRENT_RESULT == "failed"', set-result: needs-inspection}`),
				Out:                out,
				S3Client:           client,
				UploadDir:          dir,
				UploadPrefix:       "run-1",
			})
			s := testschedule.New(completedEntry("/plans/a", testschedule.ResultFailed))

			overall, err := reporter.Report(sCtx, s)
			Expect(err).ToNot(HaveOccurred())
			Expect(overall).To(Equal(testschedule.ResultNeedsInspection))

			Expect(readSummary(filepath.Join(dir, "results.json")).Result).To(Equal(testschedule.ResultNeedsInspection))
			Expect(filepath.Join(dir, "xunit.xml")).To(BeAnExistingFile())
			Expect(out.String()).To(ContainSubstring("Fedora-40:x86_64:/plans/a"))
			Expect(strings.ToLower(out.String())).To(ContainSubstring("needs-inspection"))
		}, NodeTimeout(20*time.Second))

		It("should return the overall result if the upload fails", func(sCtx SpecContext) {
			ctrl := gomock.NewController(GinkgoT())
			client := mock_s3.NewMockClient(ctrl)
			client.EXPECT().FPutObject(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("access denied"))

			reporter := result.NewReporter(logr.Discard(), result.Config{
				XUnitFile: filepath.Join(dir, "xunit.xml"),
				Out:       &bytes.Buffer{},
				S3Client:  client,
				UploadDir: dir,
			})
			overall, err := reporter.Report(sCtx, testschedule.New(completedEntry("/plans/a", testschedule.ResultPassed)))
			Expect(err).To(MatchError(ContainSubstring("access denied")))
			Expect(overall).To(Equal(testschedule.ResultPassed))
		}, NodeTimeout(20*time.Second))
	})
})

func readSummary(path string) *result.Summary {
	data, err := os.ReadFile(path)
	Expect(err).ToNot(HaveOccurred())
	summary := &result.Summary{}
	Expect(json.Unmarshal(data, summary)).To(Succeed())
	return summary
}
