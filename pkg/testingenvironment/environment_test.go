// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package testingenvironment_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	te "github.com/testing-farm/schedule-runner/pkg/testingenvironment"
)

func fedora() te.TestingEnvironment {
	return te.TestingEnvironment{
		Arch:      "x86_64",
		Compose:   "Fedora-40",
		Pool:      "aws",
		Variables: map[string]string{"FOO": "bar", "A": "b"},
		Secrets:   map[string]string{"TOKEN": "s3cr3t"},
		TMT: map[string]interface{}{
			"context":     map[string]interface{}{"distro": "fedora-40"},
			"environment": map[string]interface{}{"PASSWORD": "p4ss"},
		},
	}
}

var _ = Describe("testing environment", func() {

	Context("key", func() {
		It("should be equal for structurally equal environments", func() {
			a := fedora()
			b := fedora()
			b.Variables = map[string]string{"A": "b", "FOO": "bar"}
			Expect(a.Key()).To(Equal(b.Key()))
			Expect(a.Equal(b)).To(BeTrue())
		})

		It("should ignore secrets, pool and excluded packages", func() {
			a := fedora()
			b := fedora().CloneWith(func(env *te.TestingEnvironment) {
				env.Pool = "openstack"
				env.Secrets = nil
				env.ExcludedPackages = []string{"kernel"}
			})
			Expect(a.Key()).To(Equal(b.Key()))
		})

		It("should treat empty and nil maps the same", func() {
			a := te.TestingEnvironment{Arch: "aarch64"}
			b := te.TestingEnvironment{Arch: "aarch64", Variables: map[string]string{}, Hardware: map[string]interface{}{}}
			Expect(a.Key()).To(Equal(b.Key()))
		})

		It("should differ if the compose differs", func() {
			b := fedora().CloneWith(func(env *te.TestingEnvironment) { env.Compose = "Fedora-41" })
			Expect(fedora().Key()).ToNot(Equal(b.Key()))
		})

		It("should differ if the artifacts differ", func() {
			b := fedora().CloneWith(func(env *te.TestingEnvironment) {
				env.Artifacts = []te.Artifact{{ID: "123", Type: "fedora-koji-build"}}
			})
			Expect(fedora().Key()).ToNot(Equal(b.Key()))
		})
	})

	Context("clone", func() {
		It("should not share maps with the original", func() {
			a := fedora()
			b := a.Clone()
			b.Variables["FOO"] = "changed"
			b.TMT["context"].(map[string]interface{})["distro"] = "rhel-9"
			Expect(a.Variables["FOO"]).To(Equal("bar"))
			Expect(a.TMT["context"].(map[string]interface{})["distro"]).To(Equal("fedora-40"))
		})
	})

	Context("serialization", func() {
		It("should serialize sorted pairs and hide secrets", func() {
			s := fedora().SerializeToString(true, false)
			Expect(s).To(HavePrefix("arch=x86_64,compose=Fedora-40,pool=aws,secrets="))
			Expect(s).To(ContainSubstring(`secrets={"TOKEN":"hidden"}`))
			Expect(s).To(ContainSubstring(`"PASSWORD":"hidden"`))
			Expect(s).ToNot(ContainSubstring("s3cr3t"))
			Expect(s).ToNot(ContainSubstring("p4ss"))
			Expect(s).To(HaveSuffix(`variables={"A":"b","FOO":"bar"}`))
		})

		It("should show secrets when requested", func() {
			s := fedora().SerializeToString(false, false)
			Expect(s).To(ContainSubstring(`secrets={"TOKEN":"s3cr3t"}`))
		})

		It("should print empty fields when requested", func() {
			s := te.TestingEnvironment{Arch: "s390x"}.SerializeToString(true, true)
			Expect(s).To(ContainSubstring("compose=" + te.NotSet))
			Expect(s).To(ContainSubstring("arch=s390x"))
		})

		It("should unserialize its own string form", func() {
			orig := fedora()
			orig.Snapshots = true
			orig.Artifacts = []te.Artifact{{ID: "1", Type: "repository", Packages: []string{"a", "b"}}}
			env, err := te.UnserializeFromString(orig.SerializeToString(false, true))
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Key()).To(Equal(orig.Key()))
			Expect(env.Pool).To(Equal("aws"))
			Expect(env.Secrets).To(Equal(map[string]string{"TOKEN": "s3cr3t"}))
			Expect(env.Snapshots).To(BeTrue())
		})

		It("should reject unknown fields", func() {
			_, err := te.UnserializeFromString("arch=x86_64,color=blue")
			Expect(err).To(HaveOccurred())
		})

		It("should reject pairs without a value", func() {
			_, err := te.UnserializeFromString("arch")
			Expect(err).To(HaveOccurred())
		})

		It("should serialize to json with hidden secrets", func() {
			data, err := fedora().SerializeToJSON(true)
			Expect(err).ToNot(HaveOccurred())
			env, err := te.UnserializeFromJSON(data)
			Expect(err).ToNot(HaveOccurred())
			Expect(env.Secrets).To(Equal(map[string]string{"TOKEN": te.HiddenValue}))
			Expect(env.Compose).To(Equal("Fedora-40"))
		})
	})
})
