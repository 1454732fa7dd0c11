package dnssec

import (
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Anchors", func() {
	var rootDSKey model.Key

	BeforeEach(func() {
		rootDSKey = model.NewKey(dns.ClassINET, dns.TypeDS, ".")
	})

	Describe("built-in database", func() {
		var sut *Anchors

		BeforeEach(func() {
			var err error
			sut, err = NewAnchors(nil, nil)
			Expect(err).Should(Succeed())
		})

		It("anchors the root zone with both KSK digests", func() {
			answer := sut.Lookup(rootDSKey)

			Expect(answer).ShouldNot(BeNil())
			Expect(answer.Len()).Should(Equal(2))

			tags := make([]uint16, 0, answer.Len())
			for _, item := range answer.Items() {
				ds, ok := item.RR.(*dns.DS)
				Expect(ok).Should(BeTrue())

				tags = append(tags, ds.KeyTag)
			}

			Expect(tags).Should(ConsistOf(uint16(20326), uint16(38696)))
		})

		It("marks anchored answers authenticated but not cacheable", func() {
			answer := sut.Lookup(rootDSKey)

			flags, found := answer.KeyFlags(rootDSKey)
			Expect(found).Should(BeTrue())
			Expect(flags & model.AnswerAuthenticated).ShouldNot(BeZero())
			Expect(flags & model.AnswerCacheable).Should(BeZero())
		})

		It("returns nil for keys without an anchor", func() {
			Expect(sut.Lookup(rootDSKey.WithName("example.com."))).Should(BeNil())
			Expect(sut.Lookup(rootDSKey.WithType(dns.TypeDNSKEY))).Should(BeNil())
		})

		It("treats special-use and private suffixes as negative", func() {
			Expect(sut.IsNegative("local.")).Should(BeTrue())
			Expect(sut.IsNegative("foo.local.")).Should(BeTrue())
			Expect(sut.IsNegative("intranet")).Should(BeTrue())
			Expect(sut.IsNegative("1.10.in-addr.arpa.")).Should(BeTrue())
			Expect(sut.IsNegative("4.3.16.172.in-addr.arpa.")).Should(BeTrue())
		})

		It("leaves public names positive", func() {
			Expect(sut.IsNegative("example.com.")).Should(BeFalse())
			Expect(sut.IsNegative("arpa.")).Should(BeFalse())
			Expect(sut.IsNegative("32.172.in-addr.arpa.")).Should(BeFalse())
		})
	})

	Describe("custom anchors", func() {
		It("replaces the built-in root keys with a user supplied root anchor", func() {
			sut, err := NewAnchors([]string{
				". IN DS 12345 8 2 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			}, nil)
			Expect(err).Should(Succeed())

			answer := sut.Lookup(rootDSKey)
			Expect(answer.Len()).Should(Equal(1))
			Expect(answer.Items()[0].RR.(*dns.DS).KeyTag).Should(Equal(uint16(12345)))
		})

		It("keeps the built-in root keys next to anchors for other zones", func() {
			sut, err := NewAnchors([]string{
				"example.com. IN DS 12345 8 2 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			}, nil)
			Expect(err).Should(Succeed())

			Expect(sut.Lookup(rootDSKey).Len()).Should(Equal(2))
			Expect(sut.PositiveCount()).Should(Equal(2))
		})

		It("accepts DNSKEY anchors", func() {
			key, _ := newTestKey("example.com.")

			sut, err := NewAnchors([]string{key.String()}, nil)
			Expect(err).Should(Succeed())

			anchored := sut.Lookup(model.NewKey(dns.ClassINET, dns.TypeDNSKEY, "example.com."))
			Expect(anchored).ShouldNot(BeNil())
			Expect(anchored.Items()[0].RR.(*dns.DNSKEY).KeyTag()).Should(Equal(key.KeyTag()))
		})

		It("rejects records that are neither DS nor DNSKEY", func() {
			_, err := NewAnchors([]string{"example.com. IN A 192.0.2.1"}, nil)

			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("not a DS or DNSKEY"))
		})

		It("rejects unparseable anchors", func() {
			_, err := NewAnchors([]string{"not a resource record"}, nil)

			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("can't parse trust anchor"))
		})
	})

	Describe("custom negative anchors", func() {
		It("replaces the built-in suffix list", func() {
			sut, err := NewAnchors(nil, []string{"example.com"})
			Expect(err).Should(Succeed())

			Expect(sut.NegativeCount()).Should(Equal(1))
			Expect(sut.IsNegative("www.example.com.")).Should(BeTrue())
			Expect(sut.IsNegative("test.")).Should(BeFalse())
		})

		It("skips suffixes that carry a positive anchor", func() {
			sut, err := NewAnchors([]string{
				"example.com. IN DS 12345 8 2 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			}, []string{"example.com", "example.org"})
			Expect(err).Should(Succeed())

			Expect(sut.IsNegative("example.com.")).Should(BeFalse())
			Expect(sut.IsNegative("example.org.")).Should(BeTrue())
		})
	})
})
