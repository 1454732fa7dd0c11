package config

import (
	"github.com/creasty/defaults"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v2"
)

var _ = Describe("DnssecConfig", func() {
	var cfg DnssecConfig

	suiteBeforeEach()

	BeforeEach(func() {
		cfg = DnssecConfig{}
		Expect(defaults.Set(&cfg)).Should(Succeed())
	})

	Describe("IsEnabled", func() {
		It("should be false by default", func() {
			Expect(cfg.IsEnabled()).Should(BeFalse())
		})

		It("should be true for mode allow-downgrade", func() {
			cfg.Mode = DnssecModeAllowDowngrade
			Expect(cfg.IsEnabled()).Should(BeTrue())
		})

		It("should be true for mode strict", func() {
			cfg.Mode = DnssecModeStrict
			Expect(cfg.IsEnabled()).Should(BeTrue())
		})
	})

	Describe("LogConfig", func() {
		It("should log the mode", func() {
			cfg.Mode = DnssecModeStrict
			cfg.LogConfig(logger)

			Expect(hook.Calls).ShouldNot(BeEmpty())
			Expect(hook.Messages).Should(ContainElement(ContainSubstring("strict")))
		})

		It("should mention built-in anchors when none are configured", func() {
			cfg.LogConfig(logger)

			Expect(hook.Messages).Should(ContainElement(ContainSubstring("built-in")))
		})
	})

	Describe("DnssecMode", func() {
		It("should parse all known modes", func() {
			for _, name := range DnssecModeNames() {
				mode, err := ParseDnssecMode(name)
				Expect(err).Should(Succeed())
				Expect(mode.String()).Should(Equal(name))
			}
		})

		It("should fail for an unknown mode", func() {
			_, err := ParseDnssecMode("paranoid")
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("not a valid DnssecMode"))
		})

		It("should unmarshal from yaml", func() {
			c := struct {
				Mode DnssecMode `yaml:"mode"`
			}{}

			err := yaml.Unmarshal([]byte("mode: allow-downgrade"), &c)
			Expect(err).Should(Succeed())
			Expect(c.Mode).Should(Equal(DnssecModeAllowDowngrade))
		})

		It("should reject an unknown mode in yaml", func() {
			c := struct {
				Mode DnssecMode `yaml:"mode"`
			}{}

			err := yaml.Unmarshal([]byte("mode: paranoid"), &c)
			Expect(err).Should(HaveOccurred())
		})
	})
})
