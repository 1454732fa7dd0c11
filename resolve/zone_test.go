package resolve

import (
	"net"

	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Zone", func() {
	var (
		m     *Manager
		tr    *fakeTransport
		scope *Scope
		key   model.Key
	)

	BeforeEach(func() {
		m, tr = newTestManager(nil)
		scope = newScope(m, model.ProtocolLlmnr, model.FamilyIpv4, 0)
		key = model.NewKey(dns.ClassINET, dns.TypeA, "myhost.")
	})

	Describe("Put without probing", func() {
		It("answers queries immediately", func() {
			Expect(scope.zone.Put(aRecord("myhost.", "192.0.2.10"), false)).Should(Succeed())

			answer := scope.zone.Lookup(key)
			Expect(answer).ShouldNot(BeNil())
			Expect(answer.Len()).Should(Equal(1))

			flags, _ := answer.KeyFlags(key)
			Expect(flags & model.AnswerAuthenticated).ShouldNot(BeZero())
		})
	})

	Describe("Put with probing", func() {
		It("stays silent until the ownership probe finds no other claim", func() {
			Expect(scope.zone.Put(aRecord("myhost.", "192.0.2.10"), true)).Should(Succeed())

			// still probing, no answers yet
			Expect(scope.zone.Lookup(key)).Should(BeNil())

			probe := scope.findTransaction(model.NewKey(dns.ClassINET, dns.TypeANY, "myhost."))
			Expect(probe).ShouldNot(BeNil())
			Expect(probe.probing).Should(BeTrue())

			// drive past the jitter; the probe query goes out
			probe.onTimeout(probe.timerToken)
			Expect(tr.Multicast()).Should(HaveLen(1))

			// nobody answers: exhaust the retries
			for !probe.State().IsTerminal() {
				probe.onTimeout(probe.timerToken)
			}

			Expect(probe.State()).Should(Equal(TransactionStateAttemptsMaxReached))
			Expect(scope.zone.Lookup(key)).ShouldNot(BeNil())
		})

		It("withdraws the name when the probe finds an owner", func() {
			Expect(scope.zone.Put(aRecord("myhost.", "192.0.2.10"), true)).Should(Succeed())

			probe := scope.findTransaction(model.NewKey(dns.ClassINET, dns.TypeANY, "myhost."))

			// an extra subscriber keeps the probe observable after the
			// zone item lets go of it
			keeper := &recordingListener{unsubscribe: true}
			probe.Subscribe(keeper)

			probe.onTimeout(probe.timerToken)

			reply := new(dns.Msg)
			reply.SetReply(probe.sent)
			reply.Answer = []dns.RR{aRecord("myhost.", "192.0.2.99")}

			scope.ProcessPacket(reply, net.ParseIP("192.0.2.99"), 0, model.FamilyIpv4)

			Expect(probe.State()).Should(Equal(TransactionStateSuccess))
			Expect(scope.zone.Lookup(key)).Should(BeNil())
		})
	})

	Describe("CheckConflict", func() {
		BeforeEach(func() {
			Expect(scope.zone.Put(aRecord("myhost.", "192.0.2.10"), false)).Should(Succeed())
		})

		It("withdraws the name on a diverging remote claim", func() {
			Expect(scope.zone.CheckConflict(aRecord("myhost.", "192.0.2.99"))).Should(BeTrue())
			Expect(scope.zone.Lookup(key)).Should(BeNil())
		})

		It("ignores identical data", func() {
			Expect(scope.zone.CheckConflict(aRecord("myhost.", "192.0.2.10"))).Should(BeFalse())
			Expect(scope.zone.Lookup(key)).ShouldNot(BeNil())
		})

		It("ignores names the zone does not own", func() {
			Expect(scope.zone.CheckConflict(aRecord("otherhost.", "192.0.2.99"))).Should(BeFalse())
		})
	})

	Describe("ItemCount", func() {
		It("counts only non-withdrawn records", func() {
			Expect(scope.zone.Put(aRecord("myhost.", "192.0.2.10"), false)).Should(Succeed())
			Expect(scope.zone.Put(aRecord("otherhost.", "192.0.2.11"), false)).Should(Succeed())

			Expect(scope.zone.ItemCount()).Should(Equal(2))

			scope.zone.MarkConflict("myhost.")

			Expect(scope.zone.ItemCount()).Should(Equal(1))
		})
	})
})
