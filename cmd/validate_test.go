package cmd

import (
	. "github.com/0xERR0R/resolvd/helpertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate command", func() {
	var tmpDir *TmpFolder

	BeforeEach(func() {
		tmpDir = NewTmpFolder("ValidateCommand")
		Expect(tmpDir.Error).Should(Succeed())
		DeferCleanup(tmpDir.Clean)
	})

	When("the configuration is valid", func() {
		It("should succeed", func() {
			cfgFile := tmpDir.CreateStringFile("config.yml",
				"upstreams:",
				"  servers:",
				"    - 192.0.2.53",
				"ports:",
				"  dns: 127.0.0.53:5353",
			)
			Expect(cfgFile.Error).Should(Succeed())

			configPath = cfgFile.Path

			Expect(validateConfiguration(nil, nil)).Should(Succeed())
		})
	})

	When("the configuration path does not exist", func() {
		It("should fail", func() {
			configPath = tmpDir.JoinPath("missing.yml")

			err := validateConfiguration(nil, nil)
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("configuration path does not exist"))
		})
	})

	When("the configuration is invalid", func() {
		It("should fail", func() {
			cfgFile := tmpDir.CreateStringFile("config.yml",
				"ports:",
				"  dns: not-an-address",
			)
			Expect(cfgFile.Error).Should(Succeed())

			configPath = cfgFile.Path

			err := validateConfiguration(nil, nil)
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("invalid dns listen address"))
		})
	})
})
