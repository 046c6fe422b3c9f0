// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package guestsetup_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/guestsetup"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

var _ = Describe("guest setup", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "guestsetup")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("should reject unknown stages", func() {
		_, err := guestsetup.Parse([]byte(`
stages:
  provisioning:
  - command: "true"
`))
		Expect(err).To(HaveOccurred())
	})

	It("should default labels", func() {
		cfg, err := guestsetup.Parse([]byte(`
stages:
  ARTIFACT_INSTALLATION:
  - command: "true"
`))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Stages[guest.SetupStageArtifactInstallation][0].Label).To(Equal("artifact-installation-0"))
	})

	It("should run rendered commands and report one output per command", func(sCtx SpecContext) {
		cfg, err := guestsetup.Parse([]byte(`
stages:
  pre-artifact-installation:
  - label: arch
    command: "echo {{ .Arch }} {{ .Variables.FOO | upper }}"
  - label: stage
    command: "echo {{ .Stage }}"
`))
		Expect(err).ToNot(HaveOccurred())
		r := guestsetup.NewRunner(logr.Discard(), cfg)

		outputs, err := r.Run(sCtx, &guest.LocalExecutor{Dir: dir}, "local", guest.SetupStagePreArtifactInstallation, guest.SetupOptions{
			LogDir:      dir,
			Environment: testingenvironment.TestingEnvironment{Arch: "x86_64", Variables: map[string]string{"FOO": "bar"}},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(outputs).To(HaveLen(2))
		Expect(outputs[0].Label).To(Equal("arch"))
		Expect(outputs[0].Stage).To(Equal(guest.SetupStagePreArtifactInstallation))

		data, err := os.ReadFile(outputs[0].LogPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("x86_64 BAR\n"))
		Expect(filepath.Dir(outputs[1].LogPath)).To(Equal(dir))
	}, NodeTimeout(20*time.Second))

	It("should stop at the first failing command and return partial outputs", func(sCtx SpecContext) {
		cfg, err := guestsetup.Parse([]byte(`
stages:
  artifact-installation:
  - label: tolerated
    command: "exit 4"
    ignoreFailure: true
  - label: install
    command: "exit 1"
  - label: never
    command: "true"
`))
		Expect(err).ToNot(HaveOccurred())
		r := guestsetup.NewRunner(logr.Discard(), cfg)

		outputs, err := r.Run(sCtx, &guest.LocalExecutor{Dir: dir}, "local", guest.SetupStageArtifactInstallation, guest.SetupOptions{LogDir: dir})
		Expect(err).To(MatchError(ContainSubstring("setup command install failed")))
		Expect(outputs).To(HaveLen(2))
		Expect(outputs[1].AdditionalData).To(HaveKeyWithValue("exitCode", 1))
	}, NodeTimeout(20*time.Second))

	It("should do nothing for stages without commands", func(sCtx SpecContext) {
		r := guestsetup.NewRunner(logr.Discard(), nil)
		outputs, err := r.Run(sCtx, &guest.LocalExecutor{Dir: dir}, "local", guest.SetupStagePostArtifactInstallation, guest.SetupOptions{})
		Expect(err).ToNot(HaveOccurred())
		Expect(outputs).To(BeEmpty())
	})
})
