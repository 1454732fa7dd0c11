package trie

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Trie", func() {
	var sut *Trie

	BeforeEach(func() {
		sut = NewTrie(SplitTLD)
		Expect(sut.IsEmpty()).Should(BeTrue())
	})

	Describe("Insert and HasParentOf", func() {
		It("should find an exact entry", func() {
			sut.Insert("home.arpa")

			Expect(sut.HasParentOf("home.arpa")).Should(BeTrue())
		})

		It("should find names below an entry", func() {
			sut.Insert("corp.example.com")

			Expect(sut.HasParentOf("printer.corp.example.com")).Should(BeTrue())
			Expect(sut.HasParentOf("a.b.corp.example.com")).Should(BeTrue())
		})

		It("should not match siblings or ancestors", func() {
			sut.Insert("corp.example.com")

			Expect(sut.HasParentOf("example.com")).Should(BeFalse())
			Expect(sut.HasParentOf("lab.example.com")).Should(BeFalse())
		})

		It("should collapse children when an ancestor is inserted", func() {
			sut.Insert("a.example.org")
			sut.Insert("b.example.org")
			sut.Insert("example.org")

			Expect(sut.HasParentOf("a.example.org")).Should(BeTrue())
			Expect(sut.HasParentOf("c.example.org")).Should(BeTrue())
		})

		It("should ignore inserts below an existing entry", func() {
			sut.Insert("example.net")
			sut.Insert("deep.example.net")

			Expect(sut.HasParentOf("other.example.net")).Should(BeTrue())
		})

		It("should handle trailing dots", func() {
			sut.Insert("lan.")

			Expect(sut.HasParentOf("router.lan.")).Should(BeTrue())
			Expect(sut.HasParentOf("router.lan")).Should(BeTrue())
		})
	})

	Describe("SplitTLD", func() {
		It("should split the last label off", func() {
			label, rest := SplitTLD("www.example.com")
			Expect(label).Should(Equal("com"))
			Expect(rest).Should(Equal("www.example"))
		})

		It("should handle single labels", func() {
			label, rest := SplitTLD("lan")
			Expect(label).Should(Equal("lan"))
			Expect(rest).Should(BeEmpty())
		})
	})
})
