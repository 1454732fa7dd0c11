package model

import (
	"net"

	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Key", func() {
	Describe("NewKey", func() {
		It("should canonicalize the owner name", func() {
			k := NewKey(dns.ClassINET, dns.TypeA, "WWW.Example.COM")

			Expect(k.Name()).Should(Equal("www.example.com."))
		})

		It("should compare equal regardless of spelling", func() {
			k1 := NewKey(dns.ClassINET, dns.TypeA, "example.com")
			k2 := NewKey(dns.ClassINET, dns.TypeA, "EXAMPLE.com.")

			Expect(k1).Should(Equal(k2))
		})

		It("should distinguish types and classes", func() {
			a := NewKey(dns.ClassINET, dns.TypeA, "example.com.")
			aaaa := NewKey(dns.ClassINET, dns.TypeAAAA, "example.com.")
			chaos := NewKey(dns.ClassCHAOS, dns.TypeA, "example.com.")

			Expect(a).ShouldNot(Equal(aaaa))
			Expect(a).ShouldNot(Equal(chaos))
		})
	})

	Describe("KeyOf", func() {
		It("should derive the key from a record header", func() {
			rr, err := dns.NewRR("Example.com. 300 IN A 192.0.2.1")
			Expect(err).Should(Succeed())

			k := KeyOf(rr)
			Expect(k.Name()).Should(Equal("example.com."))
			Expect(k.Type()).Should(Equal(dns.TypeA))
			Expect(k.Class()).Should(Equal(uint16(dns.ClassINET)))
		})
	})

	Describe("Matches", func() {
		It("should match identical keys", func() {
			q := NewKey(dns.ClassINET, dns.TypeA, "example.com.")
			r := NewKey(dns.ClassINET, dns.TypeA, "example.com.")

			Expect(q.Matches(r)).Should(BeTrue())
		})

		It("should honor ANY on the question side", func() {
			q := NewKey(dns.ClassINET, dns.TypeANY, "example.com.")
			r := NewKey(dns.ClassINET, dns.TypeTXT, "example.com.")

			Expect(q.Matches(r)).Should(BeTrue())
		})

		It("should not match different owners", func() {
			q := NewKey(dns.ClassINET, dns.TypeA, "example.com.")
			r := NewKey(dns.ClassINET, dns.TypeA, "example.org.")

			Expect(q.Matches(r)).Should(BeFalse())
		})
	})

	Describe("MatchesCnameOrDname", func() {
		q := NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")

		It("should match a CNAME at the same owner", func() {
			link := NewKey(dns.ClassINET, dns.TypeCNAME, "www.example.com.")
			Expect(q.MatchesCnameOrDname(link)).Should(BeTrue())
		})

		It("should match a DNAME above the owner", func() {
			link := NewKey(dns.ClassINET, dns.TypeDNAME, "example.com.")
			Expect(q.MatchesCnameOrDname(link)).Should(BeTrue())
		})

		It("should not match an unrelated DNAME", func() {
			link := NewKey(dns.ClassINET, dns.TypeDNAME, "example.org.")
			Expect(q.MatchesCnameOrDname(link)).Should(BeFalse())
		})

		It("should not match other record types", func() {
			link := NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")
			Expect(q.MatchesCnameOrDname(link)).Should(BeFalse())
		})
	})

	Describe("classification helpers", func() {
		It("should recognize address keys", func() {
			Expect(NewKey(dns.ClassINET, dns.TypeA, "x.").IsAddress()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeAAAA, "x.").IsAddress()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeTXT, "x.").IsAddress()).Should(BeFalse())
		})

		It("should recognize DNSSEC metadata keys", func() {
			Expect(NewKey(dns.ClassINET, dns.TypeDNSKEY, "x.").IsDnssec()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeNSEC3, "x.").IsDnssec()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeA, "x.").IsDnssec()).Should(BeFalse())
		})

		It("should recognize root and single-label names", func() {
			Expect(NewKey(dns.ClassINET, dns.TypeA, ".").IsRoot()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeA, "local.").SingleLabel()).Should(BeTrue())
			Expect(NewKey(dns.ClassINET, dns.TypeA, "a.local.").SingleLabel()).Should(BeFalse())
		})

		It("should refuse pseudo and transfer types as queries", func() {
			Expect(TypeIsValidQuery(dns.TypeOPT)).Should(BeFalse())
			Expect(TypeIsValidQuery(dns.TypeAXFR)).Should(BeFalse())
			Expect(TypeIsValidQuery(dns.TypeANY)).Should(BeTrue())
			Expect(TypeIsValidQuery(dns.TypeA)).Should(BeTrue())
		})
	})

	Describe("FamilyOf", func() {
		It("should map addresses to families", func() {
			Expect(FamilyOf(net.ParseIP("192.0.2.1"))).Should(Equal(FamilyIpv4))
			Expect(FamilyOf(net.ParseIP("fe80::1"))).Should(Equal(FamilyIpv6))
			Expect(FamilyOf(nil)).Should(Equal(FamilyUnspec))
		})
	})
})
