package dnssec

import (
	"crypto"
	"net"
	"time"

	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newTestKey(name string) (*dns.DNSKEY, crypto.Signer) {
	key := &dns.DNSKEY{
		Hdr: dns.RR_Header{
			Name:   name,
			Rrtype: dns.TypeDNSKEY,
			Class:  dns.ClassINET,
			Ttl:    3600,
		},
		Flags:     dns.ZONE | dns.SEP,
		Protocol:  3,
		Algorithm: dns.ECDSAP256SHA256,
	}

	priv, err := key.Generate(256)
	Expect(err).Should(Succeed())

	return key, priv.(crypto.Signer)
}

func signRRSet(key *dns.DNSKEY, priv crypto.Signer, rrs []dns.RR, inception, expiration time.Time) *dns.RRSIG {
	sig := &dns.RRSIG{
		Inception:  uint32(inception.Unix()),
		Expiration: uint32(expiration.Unix()),
		KeyTag:     key.KeyTag(),
		SignerName: key.Header().Name,
		Algorithm:  key.Algorithm,
	}

	Expect(sig.Sign(priv, rrs)).Should(Succeed())

	return sig
}

var _ = Describe("Verifier", func() {
	var (
		sut  *Verifier
		key  *dns.DNSKEY
		priv crypto.Signer
		rrs  []dns.RR
		sig  *dns.RRSIG
		now  time.Time
	)

	BeforeEach(func() {
		sut = NewVerifier()
		now = time.Now()
		key, priv = newTestKey("example.com.")

		rrs = []dns.RR{
			&dns.A{
				Hdr: dns.RR_Header{
					Name:   "www.example.com.",
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    300,
				},
				A: net.ParseIP("192.0.2.1"),
			},
		}

		sig = signRRSet(key, priv, rrs, now.Add(-time.Hour), now.Add(time.Hour))
	})

	Describe("VerifyRRSet", func() {
		When("the signature is genuine", func() {
			It("returns validated", func() {
				Expect(sut.VerifyRRSet(rrs, sig, key, now)).Should(Equal(ResultValidated))
			})
		})

		When("the record set was modified after signing", func() {
			It("returns invalid", func() {
				rrs[0].(*dns.A).A = net.ParseIP("192.0.2.99")

				Expect(sut.VerifyRRSet(rrs, sig, key, now)).Should(Equal(ResultInvalid))
			})
		})

		When("the record set is empty", func() {
			It("returns invalid", func() {
				Expect(sut.VerifyRRSet(nil, sig, key, now)).Should(Equal(ResultInvalid))
			})
		})

		When("the signature expired", func() {
			It("returns signature-expired", func() {
				later := now.Add(2 * time.Hour)

				Expect(sut.VerifyRRSet(rrs, sig, key, later)).Should(Equal(ResultSignatureExpired))
			})
		})

		When("the signature is not yet valid", func() {
			It("returns signature-expired", func() {
				earlier := now.Add(-2 * time.Hour)

				Expect(sut.VerifyRRSet(rrs, sig, key, earlier)).Should(Equal(ResultSignatureExpired))
			})
		})

		When("clock skew tolerance covers the overshoot", func() {
			It("returns validated", func() {
				sut = NewVerifier(WithClockSkew(time.Hour))
				later := now.Add(90 * time.Minute)

				Expect(sut.VerifyRRSet(rrs, sig, key, later)).Should(Equal(ResultValidated))
			})
		})

		When("no algorithm is supported", func() {
			It("returns unsupported-algorithm", func() {
				sut = NewVerifier(WithAlgorithms())

				Expect(sut.VerifyRRSet(rrs, sig, key, now)).Should(Equal(ResultUnsupportedAlgorithm))
			})
		})
	})

	Describe("Covers", func() {
		var rrsetKey model.Key

		BeforeEach(func() {
			rrsetKey = model.NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")
		})

		It("accepts the signature of the same record set", func() {
			Expect(Covers(sig, rrsetKey)).Should(BeTrue())
		})

		It("rejects a different covered type", func() {
			Expect(Covers(sig, rrsetKey.WithType(dns.TypeAAAA))).Should(BeFalse())
		})

		It("rejects a different owner", func() {
			Expect(Covers(sig, rrsetKey.WithName("mail.example.com."))).Should(BeFalse())
		})

		It("accepts a wildcard expansion with fewer labels", func() {
			sig.Labels = 2

			Expect(Covers(sig, rrsetKey)).Should(BeTrue())
		})

		It("rejects a label count above the owner's", func() {
			sig.Labels = 4

			Expect(Covers(sig, rrsetKey)).Should(BeFalse())
		})
	})

	Describe("MatchesKey", func() {
		It("accepts the signing key", func() {
			Expect(MatchesKey(sig, key)).Should(BeTrue())
		})

		It("matches the signer name case-insensitively", func() {
			sig.SignerName = "EXAMPLE.com."

			Expect(MatchesKey(sig, key)).Should(BeTrue())
		})

		It("rejects a key with another tag", func() {
			other, _ := newTestKey("example.com.")

			Expect(MatchesKey(sig, other)).Should(BeFalse())
		})

		It("rejects another algorithm", func() {
			sig.Algorithm = dns.ED25519

			Expect(MatchesKey(sig, key)).Should(BeFalse())
		})

		It("rejects a non-DNSSEC protocol value", func() {
			key.Protocol = 1

			Expect(MatchesKey(sig, key)).Should(BeFalse())
		})
	})

	Describe("VerifySearch", func() {
		var rrsetKey model.Key

		BeforeEach(func() {
			rrsetKey = model.NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")
		})

		When("a genuine signature and its key are present", func() {
			It("returns validated", func() {
				result := sut.VerifySearch(rrs, rrsetKey, []*dns.RRSIG{sig}, []*dns.DNSKEY{key}, now)

				Expect(result).Should(Equal(ResultValidated))
			})
		})

		When("no signature covers the record set", func() {
			It("returns no-signature", func() {
				result := sut.VerifySearch(rrs, rrsetKey, nil, []*dns.DNSKEY{key}, now)

				Expect(result).Should(Equal(ResultNoSignature))

				otherType := signRRSet(key, priv, []dns.RR{
					&dns.AAAA{
						Hdr: dns.RR_Header{
							Name:   "www.example.com.",
							Rrtype: dns.TypeAAAA,
							Class:  dns.ClassINET,
							Ttl:    300,
						},
						AAAA: net.ParseIP("2001:db8::1"),
					},
				}, now.Add(-time.Hour), now.Add(time.Hour))

				result = sut.VerifySearch(rrs, rrsetKey, []*dns.RRSIG{otherType}, []*dns.DNSKEY{key}, now)

				Expect(result).Should(Equal(ResultNoSignature))
			})
		})

		When("the signer's key is missing", func() {
			It("returns missing-key", func() {
				other, _ := newTestKey("example.com.")

				result := sut.VerifySearch(rrs, rrsetKey, []*dns.RRSIG{sig}, []*dns.DNSKEY{other}, now)

				Expect(result).Should(Equal(ResultMissingKey))
			})
		})

		When("an expired and a bogus signature are present", func() {
			It("prefers the expired verdict", func() {
				expired := signRRSet(key, priv, rrs, now.Add(-2*time.Hour), now.Add(-time.Hour))
				rrs[0].(*dns.A).A = net.ParseIP("192.0.2.99")

				result := sut.VerifySearch(rrs, rrsetKey, []*dns.RRSIG{sig, expired}, []*dns.DNSKEY{key}, now)

				Expect(result).Should(Equal(ResultSignatureExpired))
			})
		})

		When("only unsupported algorithms sign the record set", func() {
			It("returns unsupported-algorithm", func() {
				sut = NewVerifier(WithAlgorithms(dns.ED25519))

				result := sut.VerifySearch(rrs, rrsetKey, []*dns.RRSIG{sig}, []*dns.DNSKEY{key}, now)

				Expect(result).Should(Equal(ResultUnsupportedAlgorithm))
			})
		})
	})
})
