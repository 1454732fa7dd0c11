package log

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	Describe("EscapeInput", func() {
		It("should remove line breaks", func() {
			Expect(EscapeInput("one\ntwo\rthree")).Should(Equal("onetwothree"))
		})
		It("should keep plain input untouched", func() {
			Expect(EscapeInput("example.com.")).Should(Equal("example.com."))
		})
	})

	Describe("PrefixedLog", func() {
		It("should attach the prefix field", func() {
			entry := PrefixedLog("transaction")
			Expect(entry.Data).Should(HaveKeyWithValue("prefix", "transaction"))
		})
	})

	Describe("Level parsing", func() {
		It("should parse all defined levels", func() {
			for _, name := range LevelNames() {
				_, err := ParseLevel(name)
				Expect(err).Should(Succeed())
			}
		})
		It("should fail on unknown levels", func() {
			_, err := ParseLevel("shouting")
			Expect(err).Should(HaveOccurred())
		})
	})

	Describe("MockEntry", func() {
		It("should record emitted messages", func() {
			entry, hook := NewMockEntry()

			entry.Info("first message")
			entry.Debugf("second %s", "message")

			Expect(hook.Messages).Should(HaveLen(2))
			Expect(hook.HasMessageContaining("second message")).Should(BeTrue())

			hook.Reset()
			Expect(hook.Messages).Should(BeEmpty())
		})
	})
})
