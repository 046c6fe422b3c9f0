// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package viper_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	flag "github.com/spf13/pflag"

	"github.com/testing-farm/schedule-runner/pkg/util/cmdutil/viper"
)

var _ = Describe("viper helper", func() {

	var (
		fs        *flag.FlagSet
		helper    *viper.Helper
		file      string
		parallel  bool
		limit     string
		ruleFiles []string
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		file = filepath.Join(dir, "runner.yaml")
		fs = flag.NewFlagSet("test", flag.ContinueOnError)
		helper = viper.NewHelper(nil, "runner", dir)
		helper.InitFlags(fs)
		fs.BoolVar(&parallel, "parallelize", false, "run entries in parallel")
		fs.StringVar(&limit, "parallel-limit", "", "limit of parallel entries")
		fs.StringArrayVar(&ruleFiles, "schedule-entry-attribute-map", nil, "rule tables")
		viper.AddCustomConfigForFlag(fs.Lookup("schedule-entry-attribute-map"), "rules.entry")
		helper.BindPFlags(fs, "")
	})

	It("should apply configured values to unchanged flags", func() {
		Expect(os.WriteFile(file, []byte(`
parallelize: true
parallel-limit: "4"
rules:
  entry:
  - a.yaml
  - b.yaml
`), os.ModePerm)).To(Succeed())
		Expect(fs.Parse([]string{"--parallel-limit", "2"})).To(Succeed())

		Expect(helper.ReadInConfig()).To(Succeed())
		Expect(parallel).To(BeTrue())
		Expect(limit).To(Equal("2"))
		Expect(ruleFiles).To(Equal([]string{"a.yaml", "b.yaml"}))
	})

	It("should read a custom config file", func() {
		custom := filepath.Join(GinkgoT().TempDir(), "custom.yaml")
		Expect(os.WriteFile(custom, []byte(`parallel-limit: "8"`), os.ModePerm)).To(Succeed())
		Expect(fs.Parse([]string{"--config", custom})).To(Succeed())

		Expect(helper.ReadInConfig()).To(Succeed())
		Expect(limit).To(Equal("8"))
	})

	It("should ignore a missing config file", func() {
		Expect(fs.Parse([]string{})).To(Succeed())
		Expect(helper.ReadInConfig()).To(Succeed())
		Expect(parallel).To(BeFalse())
	})

	It("should render the config file layout", func() {
		Expect(helper.Usage()).To(ContainSubstring("entry: rule tables"))
	})
})
