package resolve

import (
	"net"
	"sort"
	"strings"
	"time"

	"github.com/0xERR0R/resolvd/dnssec"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/0xERR0R/resolvd/trie"
	"github.com/0xERR0R/resolvd/util"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// top bit of the class field carries the mDNS cache-flush flag
const classCacheFlush = 1 << 15

// Scope binds questions to a protocol, an address family and optionally
// a single interface. It owns the in-flight transactions for its
// segment, the per-scope cache and zone, and the upstream server
// rotation for the classic DNS scope.
type Scope struct {
	protocol model.Protocol
	family   model.Family
	ifindex  int
	linkAddr net.IP

	manager *Manager
	log     *logrus.Entry

	cache   *Cache
	zone    *Zone
	anchors *dnssec.Anchors

	respond  bool
	hostname string

	searchDomains []string
	neverResolve  *trie.Trie

	servers []*Server
	current int

	transactions map[model.Key]*Transaction
	byID         map[uint16]*Transaction

	maxRTT        time.Duration
	resendTimeout time.Duration
}

func newScope(m *Manager, protocol model.Protocol, family model.Family, ifindex int) *Scope {
	s := &Scope{
		protocol: protocol,
		family:   family,
		ifindex:  ifindex,
		manager:  m,
		log: log.PrefixedLog("scope").WithFields(logrus.Fields{
			"protocol": protocol.String(),
			"family":   family.String(),
		}),
		anchors:       m.anchors,
		hostname:      m.hostname,
		transactions:  make(map[model.Key]*Transaction),
		byID:          make(map[uint16]*Transaction),
		resendTimeout: multicastResendMin,
	}

	s.cache = NewCache(m.cfg.Caching)

	switch protocol {
	case model.ProtocolDns:
		for _, upstream := range m.cfg.Upstreams.Servers {
			s.servers = append(s.servers, newServer(upstream, m.cfg.DNSSEC.Mode))
		}

		s.searchDomains = canonicalNames(m.cfg.Upstreams.SearchDomains)
		s.neverResolve = newNeverResolveTrie(m.cfg.MDNS.IsEnabled())
	case model.ProtocolLlmnr:
		s.zone = newZone(s)
		s.respond = m.cfg.LLMNR.Respond
	case model.ProtocolMdns:
		s.zone = newZone(s)
		s.respond = m.cfg.MDNS.Respond
	}

	return s
}

// newNeverResolveTrie collects name trees the unicast DNS scope must not
// forward upstream: loopback names, the invalid TLD, the link-local
// reverse trees owned by the multicast protocols and, when mDNS runs,
// the local domain.
func newNeverResolveTrie(mdnsEnabled bool) *trie.Trie {
	t := trie.NewTrie(trie.SplitTLD)

	names := []string{
		"localhost",
		"invalid",
		"127.in-addr.arpa",
		"0.in-addr.arpa",
		"255.255.255.255.in-addr.arpa",
		"254.169.in-addr.arpa",
		// the reverse names of :: and ::1
		"0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.ip6.arpa",
		"1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.ip6.arpa",
		"8.e.f.ip6.arpa",
		"9.e.f.ip6.arpa",
		"a.e.f.ip6.arpa",
		"b.e.f.ip6.arpa",
	}

	for _, name := range names {
		t.Insert(name)
	}

	if mdnsEnabled {
		t.Insert("local")
	}

	return t
}

func canonicalNames(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		result = append(result, dns.CanonicalName(name))
	}

	return result
}

// trieKey normalizes a name for trie lookups: lowercase, no final dot.
func trieKey(name string) string {
	return strings.TrimSuffix(dns.CanonicalName(name), ".")
}

func (s *Scope) Protocol() model.Protocol {
	return s.protocol
}

func (s *Scope) Family() model.Family {
	return s.family
}

func (s *Scope) Cache() *Cache {
	return s.cache
}

func (s *Scope) LocalZone() *Zone {
	return s.zone
}

func (s *Scope) maxAttempts() uint {
	switch s.protocol {
	case model.ProtocolLlmnr:
		return maxAttemptsLLMNR
	case model.ProtocolMdns:
		return maxAttemptsMDNS
	default:
		return maxAttemptsDNS
	}
}

// MatchDomain scores how well this scope suits a name. Negative scores
// refuse the name, zero accepts it as a fallback, positive scores claim
// it; the caller routes to the highest claim.
func (s *Scope) MatchDomain(name string) int {
	name = dns.CanonicalName(name)

	switch s.protocol {
	case model.ProtocolLlmnr:
		return s.matchDomainLLMNR(name)
	case model.ProtocolMdns:
		return s.matchDomainMDNS(name)
	default:
		return s.matchDomainDNS(name)
	}
}

func (s *Scope) matchDomainDNS(name string) int {
	if s.neverResolve.HasParentOf(trieKey(name)) {
		return matchNo
	}

	best := matchNo

	for _, domain := range s.searchDomains {
		if !dns.IsSubDomain(domain, name) {
			continue
		}

		if score := matchYes + dns.CountLabel(domain); score > best {
			best = score
		}
	}

	if best >= matchYes {
		return best
	}

	// single labels are completed via the search domains
	if dns.CountLabel(name) == 1 && len(s.searchDomains) > 0 {
		return matchYes
	}

	return matchMaybe
}

func (s *Scope) matchDomainLLMNR(name string) int {
	if s.linkLocalReverse(name) {
		return matchYes
	}

	if util.IsReverseDomain(name) {
		if !unresolvableReverse(name) && s.reverseTreeOfFamily(name) {
			return matchMaybe
		}

		return matchNo
	}

	if name == "local." {
		return matchNo
	}

	if dns.CountLabel(name) == 1 {
		return matchYes
	}

	return matchNo
}

func (s *Scope) matchDomainMDNS(name string) int {
	if s.linkLocalReverse(name) {
		// mDNS outranks LLMNR for link-local reverse lookups
		return matchYes + 1
	}

	if util.IsReverseDomain(name) {
		if !unresolvableReverse(name) && s.reverseTreeOfFamily(name) {
			return matchMaybe
		}

		return matchNo
	}

	if name != "local." && dns.IsSubDomain("local.", name) {
		return matchYes
	}

	return matchNo
}

// linkLocalReverse reports whether the name lies in the reverse tree of
// the link-local address range of this scope's family.
func (s *Scope) linkLocalReverse(name string) bool {
	switch s.family {
	case model.FamilyIpv4:
		return dns.IsSubDomain("254.169.in-addr.arpa.", name)
	case model.FamilyIpv6:
		return dns.IsSubDomain("8.e.f.ip6.arpa.", name) ||
			dns.IsSubDomain("9.e.f.ip6.arpa.", name) ||
			dns.IsSubDomain("a.e.f.ip6.arpa.", name) ||
			dns.IsSubDomain("b.e.f.ip6.arpa.", name)
	default:
		return false
	}
}

// unresolvableReverse reports whether the name lies in a reverse tree
// no host on the segment may legitimately own: loopback, the
// unspecified addresses and the IPv4 broadcast address.
func unresolvableReverse(name string) bool {
	if dns.IsSubDomain("127.in-addr.arpa.", name) ||
		dns.IsSubDomain("0.in-addr.arpa.", name) ||
		dns.IsSubDomain("255.255.255.255.in-addr.arpa.", name) {
		return true
	}

	if ip := util.IPFromReverseName(name); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}

	return false
}

func (s *Scope) reverseTreeOfFamily(name string) bool {
	switch s.family {
	case model.FamilyIpv4:
		return dns.IsSubDomain("in-addr.arpa.", name)
	case model.FamilyIpv6:
		return dns.IsSubDomain("ip6.arpa.", name)
	default:
		return util.IsReverseDomain(name)
	}
}

// goodKey reports whether this scope can carry the question at all.
func (s *Scope) goodKey(key model.Key) bool {
	if key.Class() != dns.ClassINET && key.Class() != dns.ClassANY {
		return false
	}

	if s.protocol == model.ProtocolDns {
		if !key.IsAddress() {
			return true
		}

		// single label and root addresses never resolve globally
		return !key.SingleLabel() && !key.IsRoot()
	}

	// the multicast protocols carry no DNSSEC material and only
	// address records of their own family
	if key.IsDnssec() {
		return false
	}

	switch key.Type() {
	case dns.TypeA:
		return s.family == model.FamilyIpv4
	case dns.TypeAAAA:
		return s.family == model.FamilyIpv6
	default:
		return true
	}
}

// CurrentServer returns the sticky current upstream server, skipping
// unusable ones. Nil means no server can serve this scope.
func (s *Scope) CurrentServer(now time.Time) *Server {
	if len(s.servers) == 0 {
		return nil
	}

	start := s.current

	for i := 0; i < len(s.servers); i++ {
		idx := (start + i) % len(s.servers)
		if s.servers[idx].Usable(now) {
			s.setCurrentServer(idx)

			return s.servers[idx]
		}
	}

	return nil
}

// NextServer rotates to the following upstream server.
func (s *Scope) NextServer(now time.Time) *Server {
	if len(s.servers) == 0 {
		return nil
	}

	s.setCurrentServer((s.current + 1) % len(s.servers))

	return s.CurrentServer(now)
}

func (s *Scope) setCurrentServer(idx int) {
	if s.current == idx {
		return
	}

	s.current = idx
	s.log.WithField("server", s.servers[idx].String()).Info("switched upstream server")

	// another server may serve another view of the tree
	s.cache.Flush()
}

func (s *Scope) Servers() []*Server {
	return s.servers
}

// PacketReceived feeds a multicast round trip sample into the shared
// resend timeout.
func (s *Scope) PacketReceived(rtt time.Duration) {
	if rtt > s.maxRTT {
		s.maxRTT = rtt
		s.resendTimeout = clampDuration(2*s.maxRTT, multicastResendMin, multicastResendMax)
	}
}

// PacketLost doubles the multicast resend timeout after a full timeout
// elapsed without a reply.
func (s *Scope) PacketLost(elapsed time.Duration) {
	if s.resendTimeout <= elapsed {
		s.resendTimeout = minDuration(s.resendTimeout*2, multicastResendMax)
	}
}

// findTransaction returns the in-flight or completed transaction for the
// exact question, if any.
func (s *Scope) findTransaction(key model.Key) *Transaction {
	return s.transactions[key]
}

// transactionFor finds or creates the transaction for a question, so
// identical in-flight questions are deduplicated.
func (s *Scope) transactionFor(key model.Key) (*Transaction, error) {
	if t := s.transactions[key]; t != nil {
		return t, nil
	}

	return newTransaction(s, key)
}

// removeTransaction drops the indexes pointing at t. The key index may
// already point at a newer transaction for the same question, then it
// stays.
func (s *Scope) removeTransaction(t *Transaction) {
	if s.transactions[t.key] == t {
		delete(s.transactions, t.key)
	}

	if s.byID[t.id] == t {
		delete(s.byID, t.id)
	}
}

func (s *Scope) transactionsSnapshot() []*Transaction {
	result := make([]*Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].key.String() < result[j].key.String()
	})

	return result
}

// ripeTransactions returns other pending transactions whose next attempt
// is due, candidates for coalescing into one mDNS packet.
func (s *Scope) ripeTransactions(now time.Time, exclude *Transaction) []*Transaction {
	var result []*Transaction

	for _, t := range s.transactionsSnapshot() {
		if t == exclude || t.state != TransactionStatePending {
			continue
		}

		if t.nextAttemptAfter.After(now) {
			continue
		}

		result = append(result, t)
	}

	return result
}

// abort completes every live transaction of the scope, used on shutdown.
func (s *Scope) abort() {
	for _, t := range s.transactionsSnapshot() {
		if !t.state.IsTerminal() {
			t.complete(TransactionStateAborted)
		}
	}
}

// ProcessPacket dispatches one received packet: replies go to the
// matching transaction, queries to the local zone responder.
func (s *Scope) ProcessPacket(msg *dns.Msg, from net.IP, ifindex int, family model.Family) {
	if !msg.Response {
		s.processQuery(msg, from, ifindex, family)

		return
	}

	if s.protocol.IsMulticast() {
		if s.family != model.FamilyUnspec && family != model.FamilyUnspec && family != s.family {
			return
		}

		if s.ifindex != 0 && ifindex != 0 && ifindex != s.ifindex {
			return
		}

		s.CheckConflicts(msg, from)
	}

	if s.protocol == model.ProtocolMdns {
		s.processMdnsReply(msg, from, ifindex, family)

		return
	}

	t := s.byID[msg.Id]
	if t == nil {
		s.log.WithField("id", msg.Id).Debug("reply for unknown transaction, ignoring")

		return
	}

	t.ProcessReply(msg, ifindex, family, from)
}

// processMdnsReply caches all announced records and hands the packet to
// every pending transaction it answers. mDNS replies carry no id, the
// answer content is the correlation.
func (s *Scope) processMdnsReply(msg *dns.Msg, from net.IP, ifindex int, family model.Family) {
	answer := answerFromPacket(msg, ifindex)

	s.cache.PutRecords(answer)

	for _, t := range s.transactionsSnapshot() {
		if t.state != TransactionStatePending {
			continue
		}

		if !answer.ContainsKey(t.key) {
			continue
		}

		t.ProcessReply(msg, ifindex, family, from)
	}
}

// processQuery answers multicast queries from the local zone.
func (s *Scope) processQuery(msg *dns.Msg, from net.IP, ifindex int, family model.Family) {
	if !s.respond || !s.protocol.IsMulticast() || s.zone == nil {
		return
	}

	answer := model.NewAnswer()

	for _, question := range msg.Question {
		if zoneAnswer := s.zone.Lookup(model.KeyOfQuestion(question)); zoneAnswer != nil {
			answer = answer.Union(zoneAnswer)
		}
	}

	if answer.IsEmpty() {
		return
	}

	switch s.protocol {
	case model.ProtocolLlmnr:
		reply := new(dns.Msg)
		reply.SetReply(msg)
		reply.Answer = answer.RRs()

		if err := s.manager.transport.SendTo(reply, s.protocol, ifindex, family, from); err != nil {
			s.log.WithError(err).Debug("can't answer query")
		}
	case model.ProtocolMdns:
		reply := new(dns.Msg)
		reply.Response = true
		reply.Authoritative = true
		reply.Answer = s.mdnsResponseRecords(msg, answer)

		if len(reply.Answer) == 0 {
			return
		}

		if err := s.manager.transport.SendMulticast(reply, s.protocol, ifindex, family); err != nil {
			s.log.WithError(err).Debug("can't answer query")
		}
	}
}

// mdnsResponseRecords applies known-answer suppression and marks unique
// records with the cache-flush bit.
func (s *Scope) mdnsResponseRecords(query *dns.Msg, answer *model.Answer) []dns.RR {
	var result []dns.RR

	for _, item := range answer.Items() {
		if mdnsKnownAnswerSuppresses(query.Answer, item.RR) {
			continue
		}

		rr := dns.Copy(item.RR)

		if rr.Header().Rrtype != dns.TypePTR {
			rr.Header().Class |= classCacheFlush
		}

		result = append(result, rr)
	}

	return result
}

// mdnsKnownAnswerSuppresses reports whether the querier already knows
// the record with at least half the lifetime left.
func mdnsKnownAnswerSuppresses(known []dns.RR, rr dns.RR) bool {
	for _, k := range known {
		normalized := dns.Copy(k)
		normalized.Header().Class &^= classCacheFlush

		if dns.IsDuplicate(normalized, rr) && normalized.Header().Ttl >= rr.Header().Ttl/2 {
			return true
		}
	}

	return false
}

// CheckConflicts scans a remote reply for claims on locally announced
// names. Packets flagged tentative or conflict and our own reflected
// packets are left to the transaction layer.
func (s *Scope) CheckConflicts(msg *dns.Msg, from net.IP) {
	if s.zone == nil || len(msg.Answer) == 0 {
		return
	}

	if from != nil && s.linkAddr != nil && from.Equal(s.linkAddr) {
		return
	}

	if s.protocol == model.ProtocolLlmnr && (msg.Authoritative || msg.RecursionDesired) {
		return
	}

	for _, rr := range msg.Answer {
		// service enumeration records are shared by design
		if rr.Header().Rrtype == dns.TypePTR &&
			strings.HasPrefix(rr.Header().Name, "_services._dns-sd._udp.") {
			continue
		}

		s.zone.CheckConflict(rr)
	}
}

// answerFromPacket converts the record sections of a packet into an
// answer set, decoding the mDNS class bits into flags.
func answerFromPacket(msg *dns.Msg, ifindex int) *model.Answer {
	answer := model.NewAnswer()

	addSection := func(rrs []dns.RR, section model.AnswerFlags) {
		for _, rr := range rrs {
			if rr.Header().Rrtype == dns.TypeOPT {
				continue
			}

			flags := section

			if rr.Header().Class&classCacheFlush != 0 {
				rr = dns.Copy(rr)
				rr.Header().Class &^= classCacheFlush
				flags |= model.AnswerCacheFlush
			}

			if rr.Header().Ttl == 0 {
				flags |= model.AnswerGoodbye
			}

			if rr.Header().Rrtype == dns.TypePTR {
				flags |= model.AnswerSharedOwner
			}

			answer.Add(rr, ifindex, flags)
		}
	}

	addSection(msg.Answer, model.AnswerSectionAnswer)
	addSection(msg.Ns, model.AnswerSectionAuthority)
	addSection(msg.Extra, model.AnswerSectionAdditional)

	return answer
}
