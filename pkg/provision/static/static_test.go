// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package static_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
	"github.com/testing-farm/schedule-runner/pkg/guest"
	"github.com/testing-farm/schedule-runner/pkg/guestsetup"
	"github.com/testing-farm/schedule-runner/pkg/provision/static"
	"github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

var _ = Describe("static provisioner", func() {

	var (
		token *cancellation.Token
		env   testingenvironment.TestingEnvironment
	)

	BeforeEach(func() {
		token = cancellation.NewToken(context.Background())
		env = testingenvironment.TestingEnvironment{Arch: "x86_64", Compose: "Fedora-40"}
	})

	localPool := func(names ...string) *static.Config {
		cfg := &static.Config{
			WaitTimeout:  "5s",
			PollInterval: "10ms",
			AliveTimeout: "1s",
		}
		for _, name := range names {
			cfg.Guests = append(cfg.Guests, static.GuestSpec{Name: name, Local: true, Arch: "x86_64"})
		}
		return cfg
	}

	Context("config", func() {
		It("should parse a guest pool", func() {
			cfg, err := static.Parse([]byte(`
waitTimeout: 1m
guests:
- name: local
  local: true
- name: remote
  hostname: 10.0.0.1
  port: 22
  username: root
  arch: aarch64
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Guests).To(HaveLen(2))
			Expect(cfg.Guests[1].ConnectionInfo().SSHCommand()).To(Equal("ssh -l root -p 22 10.0.0.1"))
		})

		It("should reject invalid pools", func() {
			_, err := static.Parse([]byte(`guests: []`))
			Expect(err).To(HaveOccurred())

			_, err = static.Parse([]byte(`
guests:
- name: remote
`))
			Expect(err).To(HaveOccurred())

			_, err = static.Parse([]byte(`
guests:
- name: a
  local: true
- name: a
  local: true
`))
			Expect(err).To(HaveOccurred())

			_, err = static.Parse([]byte(`
waitTimeout: soon
guests:
- name: a
  local: true
`))
			Expect(err).To(HaveOccurred())
		})

		It("should match environments by arch and compose", func() {
			spec := static.GuestSpec{Name: "a", Arch: "x86_64"}
			Expect(spec.Matches(env)).To(BeTrue())
			Expect(spec.Matches(testingenvironment.TestingEnvironment{Arch: "s390x"})).To(BeFalse())
			spec.Compose = "RHEL-9"
			Expect(spec.Matches(env)).To(BeFalse())
		})
	})

	It("should lease a matching guest and release it on destroy", func(sCtx SpecContext) {
		p, err := static.New(logr.Discard(), token, localPool("a"), nil)
		Expect(err).ToNot(HaveOccurred())

		guests, err := p.Provision(sCtx, env, GinkgoT().TempDir())
		Expect(err).ToNot(HaveOccurred())
		Expect(guests).To(HaveLen(1))
		Expect(guests[0].Name()).To(Equal("a"))
		Expect(guests[0].Environment()).To(Equal(env))
		Expect(p.Leased()).To(Equal(1))

		Expect(guests[0].WaitAlive(sCtx)).To(Succeed())

		Expect(guests[0].Destroy(sCtx)).To(Succeed())
		Expect(guests[0].Destroy(sCtx)).To(Succeed())
		Expect(p.Leased()).To(Equal(0))
		Expect(guests[0].WaitAlive(sCtx)).To(HaveOccurred())
	}, NodeTimeout(20*time.Second))

	It("should fail immediately if no guest matches", func(sCtx SpecContext) {
		p, err := static.New(logr.Discard(), token, localPool("a"), nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = p.Provision(sCtx, testingenvironment.TestingEnvironment{Arch: "ppc64le"}, "")
		Expect(err).To(HaveOccurred())
		Expect(cancellation.IsCancelled(err)).To(BeFalse())
	}, NodeTimeout(20*time.Second))

	It("should wait until a leased guest is released", func(sCtx SpecContext) {
		p, err := static.New(logr.Discard(), token, localPool("a"), nil)
		Expect(err).ToNot(HaveOccurred())

		first, err := p.Provision(sCtx, env, "")
		Expect(err).ToNot(HaveOccurred())

		go func() {
			defer GinkgoRecover()
			time.Sleep(100 * time.Millisecond)
			Expect(first[0].Destroy(context.Background())).To(Succeed())
		}()

		second, err := p.Provision(sCtx, env, "")
		Expect(err).ToNot(HaveOccurred())
		Expect(second[0].Name()).To(Equal("a"))
	}, NodeTimeout(20*time.Second))

	It("should abort waiting when the pipeline is cancelled", func(sCtx SpecContext) {
		p, err := static.New(logr.Discard(), token, localPool("a"), nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = p.Provision(sCtx, env, "")
		Expect(err).ToNot(HaveOccurred())

		go func() {
			time.Sleep(100 * time.Millisecond)
			token.Cancel()
		}()

		_, err = p.Provision(sCtx, env, "")
		Expect(err).To(HaveOccurred())
		Expect(cancellation.IsCancelled(err)).To(BeTrue())

		_, err = p.Provision(sCtx, env, "")
		Expect(cancellation.IsCancelled(err)).To(BeTrue())
	}, NodeTimeout(20*time.Second))

	It("should run the configured setup commands on the guest", func(sCtx SpecContext) {
		setupCfg, err := guestsetup.Parse([]byte(`
stages:
  artifact-installation:
  - label: marker
    command: echo {{ .Guest }} > marker
`))
		Expect(err).ToNot(HaveOccurred())
		workDir := GinkgoT().TempDir()

		p, err := static.New(logr.Discard(), token, localPool("a"), guestsetup.NewRunner(logr.Discard(), setupCfg))
		Expect(err).ToNot(HaveOccurred())
		guests, err := p.Provision(sCtx, env, workDir)
		Expect(err).ToNot(HaveOccurred())

		outputs, err := guests[0].Setup(sCtx, guest.SetupStageArtifactInstallation, guest.SetupOptions{LogDir: workDir, Environment: env})
		Expect(err).ToNot(HaveOccurred())
		Expect(outputs).To(HaveLen(1))
		Expect(outputs[0].Label).To(Equal("marker"))

		data, err := os.ReadFile(filepath.Join(workDir, "marker"))
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("a\n"))
	}, NodeTimeout(20*time.Second))

	It("should expose connection information of remote guests", func(sCtx SpecContext) {
		cfg := &static.Config{Guests: []static.GuestSpec{{Name: "r", Hostname: "10.0.0.1", Username: "root"}}}
		p, err := static.New(logr.Discard(), token, cfg, nil)
		Expect(err).ToNot(HaveOccurred())

		guests, err := p.Provision(sCtx, env, "")
		Expect(err).ToNot(HaveOccurred())
		conn, ok := guests[0].(guest.Connectable)
		Expect(ok).To(BeTrue())
		Expect(conn.ConnectionInfo().Hostname).To(Equal("10.0.0.1"))
		_, ok = guests[0].(guest.Executable)
		Expect(ok).To(BeTrue())
	}, NodeTimeout(20*time.Second))
})
