package resolve

import (
	"context"
	"net"
	"time"

	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager", func() {
	var (
		m  *Manager
		tr *fakeTransport
	)

	BeforeEach(func() {
		m, tr = newTestManager(func(cfg *config.Config) {
			cfg.Upstreams.Servers = []config.Upstream{{Host: "192.0.2.53", Port: 53}}
			cfg.MDNS.Enable = true
			cfg.Zone.Hostname = "myhost"
		})
	})

	Describe("scope routing", func() {
		It("routes global names to the unicast scope", func() {
			key := model.NewKey(dns.ClassINET, dns.TypeA, "www.example.com.")

			scope := m.scopeFor("www.example.com.", key)
			Expect(scope).ShouldNot(BeNil())
			Expect(scope.Protocol()).Should(Equal(model.ProtocolDns))
		})

		It("routes the local domain to the mDNS scope of the address family", func() {
			name := "printer.local."

			scope := m.scopeFor(name, model.NewKey(dns.ClassINET, dns.TypeA, name))
			Expect(scope).ShouldNot(BeNil())
			Expect(scope.Protocol()).Should(Equal(model.ProtocolMdns))
			Expect(scope.Family()).Should(Equal(model.FamilyIpv4))

			scope = m.scopeFor(name, model.NewKey(dns.ClassINET, dns.TypeAAAA, name))
			Expect(scope).ShouldNot(BeNil())
			Expect(scope.Family()).Should(Equal(model.FamilyIpv6))
		})

		It("claims nothing for names no scope may resolve", func() {
			names := []string{
				"localhost.",
				"foo.invalid.",
				"1.0.0.127.in-addr.arpa.",
				"127.in-addr.arpa.",
				"1.0.0.0.in-addr.arpa.",
				"255.255.255.255.in-addr.arpa.",
				"1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.ip6.arpa.",
			}

			for _, name := range names {
				Expect(m.scopeFor(name, model.NewKey(dns.ClassINET, dns.TypePTR, name))).Should(BeNil())
			}
		})
	})

	When("the event loop is running", func() {
		BeforeEach(func() {
			ctx, cancel := context.WithCancel(context.Background())
			DeferCleanup(cancel)

			go func() {
				defer GinkgoRecover()

				Expect(m.Run(ctx)).Should(Succeed())
			}()
		})

		resolveAsync := func(name string, qType uint16) chan *Result {
			resultCh := make(chan *Result, 1)

			go func() {
				defer GinkgoRecover()

				result, err := m.Resolve(context.Background(), name, qType)
				Expect(err).Should(Succeed())

				resultCh <- result
			}()

			return resultCh
		}

		answerQuery := func(ip string) {
			var query *dns.Msg

			Eventually(tr.Queries).Should(HaveLen(1))
			query = tr.Queries()[0]

			reply := new(dns.Msg)
			reply.SetReply(query)
			reply.Answer = []dns.RR{aRecord(query.Question[0].Name, ip)}

			m.deliver(model.ProtocolDns, reply, net.ParseIP("192.0.2.53"), 0, model.FamilyUnspec)
		}

		Describe("Resolve", func() {
			It("answers a question over the network", func() {
				resultCh := resolveAsync("www.example.com.", dns.TypeA)

				answerQuery("192.0.2.1")

				var result *Result
				Eventually(resultCh).Should(Receive(&result))

				Expect(result.State).Should(Equal(TransactionStateSuccess))
				Expect(result.Rcode).Should(Equal(dns.RcodeSuccess))
				Expect(result.Source).Should(Equal(TransactionSourceNetwork))
				Expect(result.Protocol).Should(Equal(model.ProtocolDns))
				Expect(result.Answer.Len()).Should(Equal(1))
			})

			It("serves the repeated question from the cache", func() {
				resultCh := resolveAsync("www.example.com.", dns.TypeA)
				answerQuery("192.0.2.1")
				Eventually(resultCh).Should(Receive())

				result, err := m.Resolve(context.Background(), "www.example.com.", dns.TypeA)
				Expect(err).Should(Succeed())

				Expect(result.State).Should(Equal(TransactionStateSuccess))
				Expect(result.Source).Should(Equal(TransactionSourceCache))
				Expect(tr.Queries()).Should(HaveLen(1))
			})

			It("reports no servers for a name nobody claims", func() {
				result, err := m.Resolve(context.Background(), "localhost.", dns.TypeA)
				Expect(err).Should(Succeed())

				Expect(result.State).Should(Equal(TransactionStateNoServers))
				Expect(result.Rcode).Should(Equal(dns.RcodeServerFailure))
			})

			It("gives up when the caller's context expires", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				result, err := m.Resolve(ctx, "www.example.com.", dns.TypeA)
				Expect(err).Should(Succeed())

				Expect(result.State).Should(Equal(TransactionStateTimeout))
			})
		})

		Describe("FlushCaches", func() {
			It("drops the cached answers of every scope", func() {
				resultCh := resolveAsync("www.example.com.", dns.TypeA)
				answerQuery("192.0.2.1")
				Eventually(resultCh).Should(Receive())

				m.FlushCaches()

				for _, s := range m.Statistics().Scopes {
					Expect(s.CacheEntries).Should(BeZero())
				}
			})
		})

		Describe("Statistics", func() {
			It("snapshots every scope", func() {
				stats := m.Statistics()

				Expect(stats.Scopes).Should(HaveLen(3))
				Expect(stats.Scopes[0].Protocol).Should(Equal("dns"))
				Expect(stats.Scopes[0].Servers).Should(HaveKey("192.0.2.53"))
				Expect(stats.Scopes[1].Protocol).Should(Equal("mdns"))
				Expect(stats.Scopes[1].Family).Should(Equal("ipv4"))
				Expect(stats.Scopes[2].Family).Should(Equal("ipv6"))
			})
		})
	})
})
