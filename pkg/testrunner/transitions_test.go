// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testrunner_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testing-farm/schedule-runner/pkg/events"
	"github.com/testing-farm/schedule-runner/pkg/testrunner"
	"github.com/testing-farm/schedule-runner/pkg/testschedule"
)

var _ = Describe("transitions", func() {

	It("should shift entries before provisioning, setup and test execution", func() {
		start := testrunner.StartTransitions()
		Expect(start).To(HaveLen(3))
		Expect(start[testschedule.StageReady].Next).To(Equal(testschedule.StageGuestProvisioning))
		Expect(start[testschedule.StageGuestProvisioned].Next).To(Equal(testschedule.StageGuestSetup))
		Expect(start[testschedule.StagePrepared].Next).To(Equal(testschedule.StageRunning))
		Expect(start[testschedule.StagePrepared].Label).To(Equal(events.LabelTestExecutionStarted))
	})

	It("should walk through all stages in single host mode", func() {
		table := testrunner.Transitions(testrunner.ModeSingleHost)

		stage := testschedule.StageCreated
		visited := []testschedule.Stage{stage}
		jobs := []string{}
		for stage != testschedule.StageComplete {
			t, ok := table[stage]
			Expect(ok).To(BeTrue(), "no transition for %s", stage)
			stage = t.Next
			visited = append(visited, stage)
			if t.Job != "" {
				jobs = append(jobs, t.Job)
			}
			if s, ok := testrunner.StartTransitions()[stage]; ok {
				stage = s.Next
				visited = append(visited, stage)
			}
		}
		Expect(visited).To(Equal(testschedule.Stages))
		Expect(jobs).To(Equal([]string{
			testrunner.JobProvisioning,
			testrunner.JobGuestSetup,
			testrunner.JobRunningTests,
			testrunner.JobCleanup,
		}))
		Expect(table[testschedule.StageCleanup].Feed).To(BeTrue())
		Expect(table[testschedule.StageRunning].Label).To(Equal(events.LabelTestExecutionFinished))
	})

	It("should skip provisioning and setup in multihost mode", func() {
		table := testrunner.Transitions(testrunner.ModeMultiHost)
		Expect(table[testschedule.StageCreated].Next).To(Equal(testschedule.StagePrepared))
		Expect(table[testschedule.StageCreated].Job).To(Equal(testrunner.JobRunningTests))
		Expect(table[testschedule.StageRunning].Next).To(Equal(testschedule.StageComplete))
		Expect(table[testschedule.StageRunning].Feed).To(BeTrue())
		Expect(table).ToNot(HaveKey(testschedule.StageGuestProvisioning))
	})
})
