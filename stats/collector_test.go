package stats

import (
	"time"

	"github.com/0xERR0R/resolvd/evt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Collector", func() {
	var (
		sut      *Collector
		mockTime string
	)

	BeforeEach(func() {
		mockTime = "20200101_0101"
		now = func() time.Time {
			t, _ := time.Parse("20060102_1504", mockTime)

			return t
		}

		var err error
		sut, err = NewCollector()
		Expect(err).Should(Succeed())
	})

	It("counts finished resolutions by protocol and state", func() {
		evt.Bus().Publish(evt.ResolutionFinished, "dns", "success")
		evt.Bus().Publish(evt.ResolutionFinished, "dns", "success")
		evt.Bus().Publish(evt.ResolutionFinished, "mdns", "timeout")

		// advance to the next hour so staged counts aggregate
		mockTime = "20200101_0201"
		evt.Bus().Publish(evt.ResolutionFinished, "dns", "success")

		results := sut.AggregateResults()

		Expect(results["Resolutions per protocol"]).Should(HaveKeyWithValue("dns", 2))
		Expect(results["Resolutions per protocol"]).Should(HaveKeyWithValue("mdns", 1))
		Expect(results["Resolution outcomes"]).Should(HaveKeyWithValue("success", 2))
		Expect(results["Resolution outcomes"]).Should(HaveKeyWithValue("timeout", 1))
	})

	It("tracks cache usage and queried names", func() {
		evt.Bus().Publish(evt.CachingResultCacheMiss, "www.example.com.")
		evt.Bus().Publish(evt.CachingResultCacheHit, "www.example.com.")
		evt.Bus().Publish(evt.CachingResultCacheHit, "www.example.com.")

		mockTime = "20200101_0201"

		results := sut.AggregateResults()

		Expect(results["Cache usage"]).Should(HaveKeyWithValue("hit", 2))
		Expect(results["Cache usage"]).Should(HaveKeyWithValue("miss", 1))
		Expect(results["Top queried names"]).Should(HaveKeyWithValue("www.example.com.", 3))
	})

	It("records DNSSEC verdicts and zone conflicts", func() {
		evt.Bus().Publish(evt.ResolutionDnssecResult, "www.example.com.", "validated")
		evt.Bus().Publish(evt.ZoneConflictDetected, "myhost.local.")

		mockTime = "20200101_0201"

		results := sut.AggregateResults()

		Expect(results["DNSSEC verdicts"]).Should(HaveKeyWithValue("validated", 1))
		Expect(results["Zone conflicts"]).Should(HaveKeyWithValue("myhost.local.", 1))
	})
})
