package resolve

import (
	"fmt"
	"net"
	"time"

	"github.com/0xERR0R/resolvd/dnssec"
	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/model"
	"github.com/0xERR0R/resolvd/util"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Listener is notified exactly once when a transaction it subscribed to
// reaches a terminal state. Notification happens on the engine loop;
// a listener may unsubscribe or drive other transactions from within
// the callback.
type Listener interface {
	TransactionCompleted(t *Transaction)
}

// Transaction drives a single question on a single scope to a terminal
// state: it performs the trust-anchor/zone/cache short circuits, emits
// queries over datagram and stream transports, handles retries and
// truncation, and spawns auxiliary transactions for DNSKEY/DS material
// while validating.
//
// A transaction has no owner. It lives as long as anything subscribes
// to it (callers, zone probes, dependent transactions) and is swept
// from the scope's index once the last subscriber is gone.
type Transaction struct {
	scope *Scope
	key   model.Key
	id    uint16
	log   *logrus.Entry

	state     TransactionState
	nAttempts uint

	// probing transactions verify zone ownership: they skip the local
	// zone and the cache, so a probe can never answer itself.
	probing bool

	sent     *dns.Msg
	received *dns.Msg

	answer         *model.Answer
	rcode          int
	cacheableCount int
	authenticated  bool
	source         TransactionSource
	dnssecResult   dnssec.Result

	// unicast attempt bookkeeping
	server       *Server
	currentLevel FeatureLevel

	usingStream bool

	// a stream exchange is outstanding; unlike the retry timer, its
	// completion callback is the only thing that may end the attempt
	streamPending bool

	receivedFrom string

	startStamp       time.Time
	nextAttemptAfter time.Time
	timerToken       uint64
	timerArmed       bool

	initialJitterScheduled bool
	initialJitterElapsed   bool

	// relationship sets: dependents wait on us, dependencies are the
	// auxiliary key material transactions we wait on. The two sides
	// are kept mutually consistent within one loop step.
	dependents   map[Listener]struct{}
	dependencies map[*Transaction]struct{}

	// key material collected for validation: trust anchor hits plus
	// the answers of completed dependencies.
	validatedKeys *model.Answer

	// guards against destruction while the completion fan-out still
	// walks the dependents.
	notifying bool
	destroyed bool
}

func newTransaction(s *Scope, key model.Key) (*Transaction, error) {
	if !model.TypeIsValidQuery(key.Type()) {
		return nil, fmt.Errorf("can't query pseudo type %s", dns.TypeToString[key.Type()])
	}

	if key.Class() != dns.ClassINET && key.Class() != dns.ClassANY {
		return nil, fmt.Errorf("unsupported query class %d", key.Class())
	}

	t := &Transaction{
		scope:          s,
		key:            key,
		state:          TransactionStateNull,
		dnssecResult:   dnssec.ResultUnchecked,
		cacheableCount: 0,
		dependents:     make(map[Listener]struct{}),
		dependencies:   make(map[*Transaction]struct{}),
		validatedKeys:  model.NewAnswer(),
	}

	// a fresh, unused wire id; zero is reserved
	for {
		id := uint16(s.manager.rnd.Intn(0xFFFF)) + 1
		if _, taken := s.byID[id]; !taken {
			t.id = id

			break
		}
	}

	t.log = s.log.WithFields(logrus.Fields{
		"id":       t.id,
		"question": key.String(),
	})

	s.transactions[key] = t
	s.byID[t.id] = t

	return t, nil
}

func (t *Transaction) Key() model.Key {
	return t.key
}

func (t *Transaction) ID() uint16 {
	return t.id
}

func (t *Transaction) Scope() *Scope {
	return t.scope
}

func (t *Transaction) State() TransactionState {
	return t.state
}

func (t *Transaction) Rcode() int {
	return t.rcode
}

func (t *Transaction) Answer() *model.Answer {
	return t.answer
}

func (t *Transaction) Source() TransactionSource {
	return t.source
}

func (t *Transaction) DnssecResult() dnssec.Result {
	return t.dnssecResult
}

// Authenticated reports whether the final answer is proven authentic,
// by DNSSEC validation or by coming from a trusted local source.
func (t *Transaction) Authenticated() bool {
	return t.authenticated
}

// Subscribe registers a listener for the completion notification.
func (t *Transaction) Subscribe(l Listener) {
	t.dependents[l] = struct{}{}
}

// Unsubscribe drops a listener. A transaction nobody waits for is swept
// away, together with the auxiliary transactions only it was holding.
func (t *Transaction) Unsubscribe(l Listener) {
	delete(t.dependents, l)
	t.gc()
}

// gc destroys the transaction once nothing depends on it any more.
// Destruction cascades into the dependencies: each loses a dependent
// and may become collectable itself. The notification guard defers the
// sweep while a completion fan-out is still walking the dependents.
func (t *Transaction) gc() {
	if t.notifying || t.destroyed {
		return
	}

	if len(t.dependents) > 0 {
		return
	}

	t.destroyed = true
	t.stopTimer()
	t.scope.removeTransaction(t)

	for dep := range t.dependencies {
		delete(t.dependencies, dep)
		delete(dep.dependents, t)
		dep.gc()
	}
}

// stopTimer invalidates the armed retry timer, if any.
func (t *Transaction) stopTimer() {
	t.timerToken++
	t.timerArmed = false
}

// armTimer schedules the next drive step after d.
func (t *Transaction) armTimer(d time.Duration, now time.Time) {
	t.timerToken++
	t.timerArmed = true
	t.nextAttemptAfter = now.Add(d)

	token := t.timerToken

	t.scope.manager.after(d, func() {
		t.onTimeout(token)
	})
}

// Go drives the transaction: short circuits, packet emission, timer
// arming. Safe to call repeatedly; while an attempt is in flight it
// does nothing. Returns true when the transaction is (still) pending,
// false when it completed synchronously.
func (t *Transaction) Go() bool {
	if t.state.IsTerminal() {
		return false
	}

	// an attempt is in flight: nothing to do until its timer fires, a
	// reply arrives or the pending stream exchange calls back
	if t.state == TransactionStatePending && (t.timerArmed || t.streamPending) {
		return true
	}

	now := t.scope.manager.now()

	if !t.prepare(now) {
		return false
	}

	// RFC 4795 §2.7: delay the first multicast transmission by a
	// random jitter, so hosts waking up together do not flood the
	// segment. The attempt counter is reset so the deferred re-entry
	// repeats the full drive step.
	if !t.initialJitterScheduled && t.scope.protocol.IsMulticast() {
		t.initialJitterScheduled = true
		t.nAttempts = 0
		t.state = TransactionStatePending

		jitter := t.jitter()
		t.armTimer(jitter, now)

		t.log.WithField("jitter", jitter).Debug("delaying initial multicast transmission")

		return true
	}

	if !t.scope.goodKey(t.key) {
		// not the right question for this network, e.g. an A record
		// on an IPv6-only multicast scope
		t.complete(TransactionStateNoServers)

		return false
	}

	if !t.emit(now) {
		return t.state == TransactionStatePending
	}

	t.state = TransactionStatePending
	t.armTimer(t.resendTimeout(), now)

	return true
}

func (t *Transaction) jitter() time.Duration {
	rnd := t.scope.manager.rnd

	if t.scope.protocol == model.ProtocolMdns {
		return mdnsJitterMin + time.Duration(rnd.Int63n(int64(mdnsJitterRange)))
	}

	return time.Duration(rnd.Int63n(int64(llmnrJitterInterval)))
}

// prepare runs the per-attempt bookkeeping and the short-circuit
// checks. It returns false when the transaction completed, either
// because a local source answered or because the retry budget is gone.
func (t *Transaction) prepare(now time.Time) bool {
	hadStream := t.usingStream

	t.stopTimer()
	t.usingStream = false

	if t.nAttempts >= t.scope.maxAttempts() {
		t.complete(TransactionStateAttemptsMaxReached)

		return false
	}

	// RFC 4795 §2.7: no retry once LLMNR fell back to a stream
	if t.scope.protocol == model.ProtocolLlmnr && hadStream {
		t.complete(TransactionStateAttemptsMaxReached)

		return false
	}

	t.nAttempts++
	t.startStamp = now
	t.received = nil
	t.answer = nil
	t.rcode = 0
	t.cacheableCount = 0
	t.authenticated = false

	// trust anchor, classic DNS only: DNSSEC material pinned in the
	// configuration answers without any network traffic
	if t.scope.protocol == model.ProtocolDns {
		if answer := t.scope.anchors.Lookup(t.key); answer != nil {
			t.answer = answer
			t.rcode = dns.RcodeSuccess
			t.source = TransactionSourceTrustAnchor
			t.authenticated = true
			t.dnssecResult = dnssec.ResultValidated
			t.complete(TransactionStateSuccess)

			return false
		}
	}

	// local zone, skipped for probes so a probe never answers itself
	if !t.probing && t.scope.zone != nil {
		if answer := t.scope.zone.Lookup(t.key); answer != nil {
			t.answer = answer
			t.rcode = dns.RcodeSuccess
			t.source = TransactionSourceZone
			t.authenticated = true
			t.complete(TransactionStateSuccess)

			return false
		}
	}

	// cache, also skipped for probes. Settle the server first: a
	// server switch flushes the cache, looking up before that would
	// serve another server's view.
	if !t.probing {
		if t.scope.protocol == model.ProtocolDns {
			t.scope.CurrentServer(now)
		}

		t.scope.cache.Prune()

		if entry, ok := t.scope.cache.Lookup(t.key); ok {
			t.answer = entry.Answer
			t.rcode = entry.Rcode
			t.authenticated = entry.Authenticated
			t.source = TransactionSourceCache

			if t.rcode == dns.RcodeSuccess {
				t.complete(TransactionStateSuccess)
			} else {
				t.complete(TransactionStateFailure)
			}

			return false
		}
	}

	return true
}

// emit builds and transmits the attempt's packet. It returns true when
// a packet went out and the retry timer should be armed; on false the
// transaction either completed or switched to the stream path, which
// has its own completion callback.
func (t *Transaction) emit(now time.Time) bool {
	switch t.scope.protocol {
	case model.ProtocolDns:
		return t.emitDNS(now)
	case model.ProtocolLlmnr:
		// RFC 4795 §2.4: reverse lookups always go over a stream,
		// directly to the owner of the address
		if util.IsReverseDomain(t.key.Name()) {
			t.openStream("")

			return false
		}

		t.sent = t.buildPacket(FeatureLevelUdp)

		return t.emitMulticast()
	case model.ProtocolMdns:
		t.sent = t.buildPacketMdns(now)

		return t.emitMulticast()
	default:
		t.complete(TransactionStateErrors)

		return false
	}
}

func (t *Transaction) emitDNS(now time.Time) bool {
	server := t.scope.CurrentServer(now)
	if server == nil {
		t.complete(TransactionStateNoServers)

		return false
	}

	t.server = server
	t.currentLevel = server.PossibleLevel(now)

	if t.currentLevel == FeatureLevelTcp {
		t.openStream(server.Address())

		return false
	}

	t.sent = t.buildPacket(t.currentLevel)

	if err := t.scope.manager.transport.SendQuery(t.sent, server); err != nil {
		t.log.WithError(err).Debug("can't send query, rotating server")

		// couldn't send? try immediately again, with a new server
		t.scope.NextServer(now)
		t.server = nil
		t.stopTimer()
		t.Go()

		return false
	}

	return true
}

func (t *Transaction) emitMulticast() bool {
	err := t.scope.manager.transport.SendMulticast(t.sent, t.scope.protocol, t.scope.ifindex, t.scope.family)
	if err != nil {
		t.log.WithError(err).Debug("can't send multicast query")
		t.complete(TransactionStateErrors)

		return false
	}

	return true
}

// buildPacket creates the outgoing query for unicast DNS and LLMNR. The
// feature level decides the EDNS(0) advertisement and the DO bit.
func (t *Transaction) buildPacket(level FeatureLevel) *dns.Msg {
	msg := new(dns.Msg)
	msg.Id = t.id
	msg.RecursionDesired = t.scope.protocol == model.ProtocolDns
	msg.Question = []dns.Question{t.key.Question()}

	if t.scope.protocol == model.ProtocolDns && level >= FeatureLevelEdns0 {
		size := uint16(udpSizeEdns0)
		if level >= FeatureLevelLarge {
			size = udpSizeDnssec
		}

		msg.SetEdns0(size, level >= FeatureLevelDo)
	}

	return msg
}

// buildPacketMdns creates the outgoing mDNS query, coalescing the other
// pending transactions of the scope whose retry is due into the same
// packet, up to the size budget. A known-answer section is appended
// when any coalesced question asks for a shared record.
func (t *Transaction) buildPacketMdns(now time.Time) *dns.Msg {
	msg := new(dns.Msg)
	msg.Question = []dns.Question{t.key.Question()}

	addKnownAnswers := keyIsShared(t.key)
	coalesced := []*Transaction{t}

	for _, other := range t.scope.ripeTransactions(now, t) {
		probe := msg.Copy()
		probe.Question = append(probe.Question, other.key.Question())

		// packet full; one of the others fires later and takes care
		// of the rest
		if probe.Len() > mdnsPacketBudget {
			break
		}

		// the short circuits may complete the other transaction
		// right here, then there is nothing to coalesce
		if !other.prepare(now) {
			continue
		}

		msg.Question = append(msg.Question, other.key.Question())

		other.sent = msg
		other.state = TransactionStatePending
		other.armTimer(other.resendTimeout(), now)

		if keyIsShared(other.key) {
			addKnownAnswers = true
		}

		coalesced = append(coalesced, other)
	}

	// RFC 6762 §7.1: tell the responders what we already know, with
	// the remaining lifetime, so they can stay silent
	if addKnownAnswers {
		for _, tx := range coalesced {
			msg.Answer = append(msg.Answer, t.scope.cache.KnownAnswers(tx.key)...)
		}
	}

	return msg
}

// keyIsShared reports whether records of the key's type have multiple
// legitimate owners on the segment, e.g. service enumeration pointers.
func keyIsShared(key model.Key) bool {
	return key.Type() == dns.TypePTR
}

// resendTimeout returns the per-attempt timeout: server-learned RTT for
// unicast, the scope's shared loss-adjusted timeout for LLMNR and the
// doubling retransmission interval for mDNS.
func (t *Transaction) resendTimeout() time.Duration {
	switch t.scope.protocol {
	case model.ProtocolDns:
		if t.server != nil {
			return t.server.ResendTimeout()
		}

		return unicastResendMin
	case model.ProtocolMdns:
		if t.nAttempts == 0 {
			return multicastResendMin
		}

		return (1 << (t.nAttempts - 1)) * time.Second
	default:
		return t.scope.resendTimeout
	}
}

// onTimeout is posted by the armed timer. A stale token means the
// attempt it was armed for is already over.
func (t *Transaction) onTimeout(token uint64) {
	if token != t.timerToken || !t.timerArmed {
		return
	}

	t.timerArmed = false

	if t.state != TransactionStatePending {
		return
	}

	now := t.scope.manager.now()

	if !t.initialJitterScheduled || t.initialJitterElapsed {
		// a real attempt timed out: feed the loss into the backoff
		switch t.scope.protocol {
		case model.ProtocolDns:
			if t.server != nil {
				t.server.PacketLost(t.usingStream, t.currentLevel)
			}
		default:
			t.scope.PacketLost(now.Sub(t.startStamp))
		}
	} else {
		t.initialJitterElapsed = true
	}

	// try again with the next server
	if t.scope.protocol == model.ProtocolDns {
		t.scope.NextServer(now)
		t.server = nil
	}

	t.Go()
}

// openStream falls back to the stream transport: after truncation, for
// TCP-only servers and for LLMNR reverse lookups. The reply arrives via
// a completion callback instead of the scope's packet path.
func (t *Transaction) openStream(address string) {
	if address == "" {
		switch {
		case t.scope.protocol == model.ProtocolDns && t.server != nil:
			address = t.server.Address()
		case t.scope.protocol == model.ProtocolLlmnr && t.receivedFrom != "":
			// a truncated reply arrived already, talk to its sender
			address = t.receivedFrom
		case t.scope.protocol == model.ProtocolLlmnr:
			// RFC 4795 §2.4: for a reverse lookup, the owner of the
			// address is the server
			ip := util.IPFromReverseName(t.key.Name())
			if ip == nil || model.FamilyOf(ip) != t.scope.family {
				t.complete(TransactionStateNoServers)

				return
			}

			address = fmt.Sprintf("%s:%d", ip, llmnrPort)
		default:
			t.complete(TransactionStateNoServers)

			return
		}
	}

	t.usingStream = true
	t.received = nil
	t.answer = nil
	t.rcode = 0
	t.cacheableCount = 0

	if t.sent == nil {
		t.sent = t.buildPacket(FeatureLevelTcp)
	}

	t.state = TransactionStatePending
	t.stopTimer()
	t.streamPending = true

	token := t.timerToken
	sent := t.sent

	t.scope.manager.transport.ExchangeStream(sent, address, func(reply *dns.Msg, rtt time.Duration, err error) {
		t.scope.manager.post(func() {
			t.onStreamDone(token, reply, rtt, err)
		})
	})
}

func (t *Transaction) onStreamDone(token uint64, reply *dns.Msg, rtt time.Duration, err error) {
	if token != t.timerToken || t.state != TransactionStatePending {
		return
	}

	t.streamPending = false

	if err != nil {
		t.log.WithError(err).Debug("stream exchange failed")
		t.complete(TransactionStateErrors)

		return
	}

	if !reply.Response || reply.Id != t.sent.Id {
		t.complete(TransactionStateInvalidReply)

		return
	}

	t.scope.CheckConflicts(reply, nil)

	t.processReply(reply, 0, t.scope.family, nil, rtt)

	// the reply wasn't useful and nothing else is going to happen on
	// this stream: fail now
	if t.state == TransactionStatePending {
		t.complete(TransactionStateInvalidReply)
	}
}

// ProcessReply feeds a datagram reply into the transaction. The scope
// already matched protocol, transaction id and, for the link-local
// protocols, interface and family.
func (t *Transaction) ProcessReply(msg *dns.Msg, ifindex int, family model.Family, from net.IP) {
	if t.state != TransactionStatePending {
		return
	}

	now := t.scope.manager.now()

	t.processReply(msg, ifindex, family, from, now.Sub(t.startStamp))
}

func (t *Transaction) processReply(msg *dns.Msg, ifindex int, family model.Family, from net.IP, rtt time.Duration) {
	if t.state != TransactionStatePending {
		return
	}

	// LLMNR tentative replies are not answers: they flag a uniqueness
	// conflict during probing. The miekg header exposes the bit the
	// LLMNR header defines as T as Zero.
	if t.scope.protocol == model.ProtocolLlmnr && msg.Zero {
		t.tentative(from)

		return
	}

	// truncation over a stream means tampering or breakage
	if t.usingStream && msg.Truncated {
		t.complete(TransactionStateInvalidReply)

		return
	}

	t.received = msg
	t.source = TransactionSourceNetwork

	if from != nil {
		t.receivedFrom = net.JoinHostPort(from.String(), fmt.Sprint(llmnrPort))
	}

	now := t.scope.manager.now()

	if t.scope.protocol == model.ProtocolDns {
		switch msg.Rcode {
		case dns.RcodeFormatError, dns.RcodeServerFailure, dns.RcodeNotImplemented:
			// the server choked on the request: downgrade its feature
			// level and immediately try again
			t.log.WithField("rcode", dns.RcodeToString[msg.Rcode]).Debug("server returned error, retrying downgraded")

			if t.server != nil {
				t.server.PacketFailed(t.currentLevel)
			}

			t.stopTimer()
			t.Go()

			return
		}

		if t.server != nil {
			t.server.PacketReceived(t.usingStream, t.currentLevel, rtt, now)
		}
	} else {
		t.scope.PacketReceived(rtt)
	}

	if msg.Truncated && !t.usingStream {
		// mDNS never follows up on truncation; everything else
		// retries over a stream
		if t.scope.protocol == model.ProtocolMdns {
			t.complete(TransactionStateInvalidReply)

			return
		}

		if t.server != nil {
			t.server.PacketTruncated(t.currentLevel)
		}

		t.openStream("")

		return
	}

	if t.scope.protocol != model.ProtocolMdns {
		// only consider replies with an equivalent question section
		if !isReplyFor(msg, t.key) {
			t.complete(TransactionStateInvalidReply)

			return
		}
	}

	if t.scope.protocol == model.ProtocolDns && t.server != nil {
		t.recordEdnsFeedback(msg)
	}

	t.answer = answerFromPacket(msg, ifindex)
	t.rcode = msg.Rcode

	// RFC 4795 §2.9: only the answer section is cacheable; a fully
	// validated answer later lifts this to the whole packet
	t.cacheableCount = len(msg.Answer)

	if t.requestDnssecKeys() {
		t.state = TransactionStateValidating

		return
	}

	t.processDnssec()
}

// recordEdnsFeedback updates the server's feature markers from the
// shape of the reply: a stripped OPT record, a cleared DO bit or
// missing signature material each invalidate a level.
func (t *Transaction) recordEdnsFeedback(msg *dns.Msg) {
	opt := msg.IsEdns0()

	if t.currentLevel >= FeatureLevelEdns0 && opt == nil {
		t.server.PacketBadOpt(t.currentLevel)
	}

	if t.currentLevel >= FeatureLevelDo && opt != nil && !opt.Do() {
		t.server.PacketDoOff(t.currentLevel)
	}

	if t.currentLevel >= FeatureLevelDo && len(msg.Answer) > 0 && !containsRRSIG(msg) {
		t.server.PacketRrsigMissing(t.currentLevel)
	}
}

func containsRRSIG(msg *dns.Msg) bool {
	for _, section := range [][]dns.RR{msg.Answer, msg.Ns} {
		for _, rr := range section {
			if rr.Header().Rrtype == dns.TypeRRSIG {
				return true
			}
		}
	}

	return false
}

// isReplyFor reports whether the reply's question section matches the
// transaction's question.
func isReplyFor(msg *dns.Msg, key model.Key) bool {
	if len(msg.Question) != 1 {
		return false
	}

	return model.KeyOfQuestion(msg.Question[0]) == key
}

// tentative handles an LLMNR conflict-probe reply. RFC 4795 §4.1: the
// peer with the lexicographically smaller IP address loses the name and
// must stop announcing it.
func (t *Transaction) tentative(from net.IP) {
	local := t.scope.linkAddr

	if local != nil && from != nil && util.CompareIP(from, local) >= 0 {
		t.log.Debug("peer has the larger address and lost the conflict")

		return
	}

	t.log.Debug("we have the smaller address and lost the conflict")

	if t.scope.zone != nil {
		t.scope.zone.MarkConflict(t.key.Name())
	}

	t.gc()
}

// complete moves the transaction into a terminal state and notifies
// every dependent exactly once. The fan-out runs under the notification
// guard: a dependent may synchronously unsubscribe or trigger further
// completions, but the transaction itself survives until the fan-out is
// over.
func (t *Transaction) complete(state TransactionState) {
	t.state = state
	t.stopTimer()
	t.streamPending = false

	t.log.WithFields(logrus.Fields{
		"state":  state.String(),
		"source": t.source.String(),
	}).Debug("transaction complete")

	t.notifying = true

	for _, l := range t.dependentsSnapshot() {
		if _, still := t.dependents[l]; still {
			l.TransactionCompleted(t)
		}
	}

	t.notifying = false

	evt.Bus().Publish(evt.ResolutionFinished, t.scope.protocol.String(), state.String())

	t.gc()
}

func (t *Transaction) dependentsSnapshot() []Listener {
	result := make([]Listener, 0, len(t.dependents))
	for l := range t.dependents {
		result = append(result, l)
	}

	return result
}

// cacheAnswer writes the processed answer back so the next identical
// question short-circuits. mDNS answers are cached per packet as they
// arrive on the scope, not per transaction.
func (t *Transaction) cacheAnswer() {
	if t.scope.protocol == model.ProtocolMdns {
		return
	}

	server := ""
	if t.server != nil {
		server = t.server.Address()
	}

	t.scope.cache.Put(t.key, t.rcode, t.answer, t.cacheableCount, t.authenticated, server)
}
