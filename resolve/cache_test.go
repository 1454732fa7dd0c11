package resolve

import (
	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cache", func() {
	var (
		sut *Cache
		cfg config.CachingConfig
		key model.Key
	)

	BeforeEach(func() {
		cfg = newTestConfig(nil).Caching
		key = model.NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")
	})

	JustBeforeEach(func() {
		sut = NewCache(cfg)
	})

	positiveAnswer := func(ttl uint32) *model.Answer {
		rr := aRecord("www.example.com.", "192.0.2.1")
		rr.Hdr.Ttl = ttl

		answer := model.NewAnswer()
		answer.Add(rr, 0, model.AnswerSectionAnswer)

		return answer
	}

	Describe("Put and Lookup", func() {
		It("returns the stored answer", func() {
			sut.Put(key, dns.RcodeSuccess, positiveAnswer(300), -1, false, "192.0.2.53:53")

			entry, ok := sut.Lookup(key)
			Expect(ok).Should(BeTrue())
			Expect(entry.Rcode).Should(Equal(dns.RcodeSuccess))
			Expect(entry.Answer.Len()).Should(Equal(1))
			Expect(entry.Server).Should(Equal("192.0.2.53:53"))
		})

		It("misses for unknown questions", func() {
			_, ok := sut.Lookup(key)
			Expect(ok).Should(BeFalse())
		})

		It("limits storage to the cacheable record count", func() {
			answer := positiveAnswer(300)
			answer.Add(aRecord("www.example.com.", "192.0.2.2"), 0, model.AnswerSectionAdditional)

			sut.Put(key, dns.RcodeSuccess, answer, 1, false, "")

			entry, _ := sut.Lookup(key)
			Expect(entry.Answer.Len()).Should(Equal(1))
		})

		It("drops unauthenticated zero TTL records", func() {
			sut.Put(key, dns.RcodeSuccess, positiveAnswer(0), -1, false, "")

			_, ok := sut.Lookup(key)
			Expect(ok).Should(BeFalse())
		})

		When("a minimum TTL is configured", func() {
			BeforeEach(func() {
				Expect(cfg.MinTTL.UnmarshalText([]byte("1m"))).Should(Succeed())
			})

			It("keeps authenticated zero TTL records resolvable", func() {
				sut.Put(key, dns.RcodeSuccess, positiveAnswer(0), -1, true, "")

				_, ok := sut.Lookup(key)
				Expect(ok).Should(BeTrue())
			})
		})
	})

	Describe("negative answers", func() {
		It("caches them with the negative TTL", func() {
			sut.Put(key, dns.RcodeNameError, model.NewAnswer(), -1, false, "")

			entry, ok := sut.Lookup(key)
			Expect(ok).Should(BeTrue())
			Expect(entry.Rcode).Should(Equal(dns.RcodeNameError))
		})
	})

	Describe("announcement records", func() {
		recordsOf := func(rrs ...dns.RR) *model.Answer {
			answer := model.NewAnswer()
			for _, rr := range rrs {
				flags := model.AnswerSectionAnswer
				if rr.Header().Ttl == 0 {
					flags |= model.AnswerGoodbye
				}

				answer.Add(rr, 0, flags)
			}

			return answer
		}

		It("merges shared records for the same key", func() {
			sut.PutRecords(recordsOf(aRecord("printer.local.", "192.0.2.7")))
			sut.PutRecords(recordsOf(aRecord("printer.local.", "192.0.2.8")))

			entry, ok := sut.Lookup(model.NewKey(dns.ClassINET, dns.TypeA, "printer.local."))
			Expect(ok).Should(BeTrue())
			Expect(entry.Answer.Len()).Should(Equal(2))
		})

		It("replaces records carrying the cache-flush flag", func() {
			sut.PutRecords(recordsOf(aRecord("printer.local.", "192.0.2.7")))

			flushed := model.NewAnswer()
			flushed.Add(aRecord("printer.local.", "192.0.2.8"), 0,
				model.AnswerSectionAnswer|model.AnswerCacheFlush)
			sut.PutRecords(flushed)

			entry, _ := sut.Lookup(model.NewKey(dns.ClassINET, dns.TypeA, "printer.local."))
			Expect(entry.Answer.Len()).Should(Equal(1))
		})

		It("evicts on a goodbye record", func() {
			sut.PutRecords(recordsOf(aRecord("printer.local.", "192.0.2.7")))

			goodbye := aRecord("printer.local.", "192.0.2.7")
			goodbye.Hdr.Ttl = 0
			sut.PutRecords(recordsOf(goodbye))

			_, ok := sut.Lookup(model.NewKey(dns.ClassINET, dns.TypeA, "printer.local."))
			Expect(ok).Should(BeFalse())
		})
	})

	Describe("Flush and RemoveName", func() {
		It("drops everything on flush", func() {
			sut.Put(key, dns.RcodeSuccess, positiveAnswer(300), -1, false, "")
			sut.Flush()

			Expect(sut.TotalCount()).Should(BeZero())
		})

		It("drops all types of one owner name", func() {
			sut.Put(key, dns.RcodeSuccess, positiveAnswer(300), -1, false, "")
			sut.Put(model.NewKey(dns.ClassINET, dns.TypeA, "other.example.com."),
				dns.RcodeSuccess, positiveAnswer(300), -1, false, "")

			sut.RemoveName("www.example.com.")

			_, ok := sut.Lookup(key)
			Expect(ok).Should(BeFalse())

			_, ok = sut.Lookup(model.NewKey(dns.ClassINET, dns.TypeA, "other.example.com."))
			Expect(ok).Should(BeTrue())
		})
	})

	When("caching is disabled", func() {
		BeforeEach(func() {
			cfg.MaxItemsCount = 0
		})

		It("stores nothing", func() {
			sut.Put(key, dns.RcodeSuccess, positiveAnswer(300), -1, false, "")

			_, ok := sut.Lookup(key)
			Expect(ok).Should(BeFalse())
			Expect(sut.TotalCount()).Should(BeZero())
		})
	})
})
