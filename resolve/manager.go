package resolve

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/dnssec"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const taskQueueSize = 256

// Result is what a caller gets back for one question.
type Result struct {
	State         TransactionState
	Rcode         int
	Answer        *model.Answer
	Source        TransactionSource
	Dnssec        dnssec.Result
	Protocol      model.Protocol
	Authenticated bool
}

// ScopeStatistics is a snapshot of one scope for the control surface.
type ScopeStatistics struct {
	Protocol     string            `json:"protocol"`
	Family       string            `json:"family"`
	Transactions int               `json:"transactions"`
	CacheEntries int               `json:"cacheEntries"`
	ZoneItems    int               `json:"zoneItems"`
	Servers      map[string]string `json:"servers,omitempty"`
}

// Statistics is the engine-wide snapshot.
type Statistics struct {
	Scopes []ScopeStatistics `json:"scopes"`
}

// Manager owns the scopes and the event loop goroutine. Every
// transaction transition happens on that goroutine: timers, socket
// readers and the public facade post closures into the task queue, so
// no state inside the engine is ever touched concurrently.
type Manager struct {
	cfg      *config.Config
	anchors  *dnssec.Anchors
	verifier *dnssec.Verifier

	hostname  string
	transport Transport
	scopes    []*Scope

	tasks chan func()
	rnd   *rand.Rand
	clock func() time.Time

	log *logrus.Entry
}

// ManagerOption adjusts a Manager under construction, mainly so suites
// can slide in a fake transport and a fixed clock.
type ManagerOption func(*Manager)

// WithTransport replaces the network transport.
func WithTransport(tr Transport) ManagerOption {
	return func(m *Manager) {
		m.transport = tr
	}
}

// WithClock replaces the time source.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithRandSeed makes id allocation and jitter deterministic.
func WithRandSeed(seed int64) ManagerOption {
	return func(m *Manager) {
		m.rnd = rand.New(rand.NewSource(seed)) //nolint:gosec
	}
}

// NewManager builds the engine from the configuration: trust anchors,
// verifier, one scope per enabled protocol and family, and the local
// zone records the multicast scopes announce.
func NewManager(cfg *config.Config, options ...ManagerOption) (*Manager, error) {
	anchors, err := dnssec.NewAnchors(cfg.DNSSEC.TrustAnchors, cfg.DNSSEC.NegativeAnchors)
	if err != nil {
		return nil, fmt.Errorf("can't build trust anchors: %w", err)
	}

	hostname := cfg.Zone.Hostname
	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("can't determine hostname: %w", err)
		}

		// only the first label is announced on the link
		hostname = strings.Split(hostname, ".")[0]
	}

	m := &Manager{
		cfg:      cfg,
		anchors:  anchors,
		verifier: dnssec.NewVerifier(dnssec.WithClockSkew(cfg.DNSSEC.ClockSkew.ToDuration())),
		hostname: strings.ToLower(hostname),
		tasks:    make(chan func(), taskQueueSize),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		clock:    time.Now,
		log:      log.PrefixedLog("manager"),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.transport == nil {
		tr, err := newNetTransport(m.deliver)
		if err != nil {
			return nil, fmt.Errorf("can't open transport: %w", err)
		}

		m.transport = tr
	}

	if cfg.Upstreams.IsEnabled() {
		m.scopes = append(m.scopes, newScope(m, model.ProtocolDns, model.FamilyUnspec, 0))
	}

	if cfg.LLMNR.IsEnabled() {
		m.scopes = append(m.scopes,
			newScope(m, model.ProtocolLlmnr, model.FamilyIpv4, 0),
			newScope(m, model.ProtocolLlmnr, model.FamilyIpv6, 0))
	}

	if cfg.MDNS.IsEnabled() {
		m.scopes = append(m.scopes,
			newScope(m, model.ProtocolMdns, model.FamilyIpv4, 0),
			newScope(m, model.ProtocolMdns, model.FamilyIpv6, 0))
	}

	if err := m.populateZones(); err != nil {
		return nil, err
	}

	return m, nil
}

// populateZones installs the hostname's address records and the
// configured extra records into the multicast scopes. LLMNR items are
// probed for uniqueness before they answer anything.
func (m *Manager) populateZones() error {
	records := make([]dns.RR, 0, len(m.cfg.Zone.Records))

	for _, s := range m.cfg.Zone.Records {
		rr, err := dns.NewRR(s)
		if err != nil {
			return fmt.Errorf("can't parse zone record '%s': %w", s, err)
		}

		records = append(records, rr)
	}

	for _, scope := range m.scopes {
		if scope.zone == nil {
			continue
		}

		owner := m.zoneOwnerName(scope.protocol)

		for _, addr := range m.linkAddresses(scope.family) {
			scope.zone.hostnameRecord(owner, addr)
		}

		for _, rr := range records {
			if !scope.goodKey(model.KeyOf(rr)) {
				continue
			}

			// only LLMNR names need a uniqueness probe; mDNS unique
			// records announce with the cache-flush bit instead
			probe := scope.protocol == model.ProtocolLlmnr

			if err := scope.zone.Put(rr, probe); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Manager) zoneOwnerName(protocol model.Protocol) string {
	if protocol == model.ProtocolMdns {
		return m.hostname + ".local."
	}

	return m.hostname + "."
}

// linkAddresses returns the non-loopback addresses of the host for one
// family, best effort.
func (m *Manager) linkAddresses(family model.Family) []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		m.log.WithError(err).Warn("can't enumerate interface addresses")

		return nil
	}

	var result []net.IP

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}

		if model.FamilyOf(ipNet.IP) == family {
			result = append(result, ipNet.IP)
		}
	}

	return result
}

// Run executes the event loop until the context is canceled. All
// engine state is confined to this goroutine.
func (m *Manager) Run(ctx context.Context) error {
	m.log.Info("resolution engine started")

	for {
		select {
		case task := <-m.tasks:
			task()
		case <-ctx.Done():
			m.shutdown()

			return nil
		}
	}
}

func (m *Manager) shutdown() {
	for _, scope := range m.scopes {
		scope.abort()
	}

	if err := m.transport.Close(); err != nil {
		m.log.WithError(err).Warn("transport close failed")
	}

	m.log.Info("resolution engine stopped")
}

// post queues a closure for the loop goroutine.
func (m *Manager) post(task func()) {
	m.tasks <- task
}

// after schedules a closure on the loop goroutine once d elapsed.
func (m *Manager) after(d time.Duration, task func()) {
	time.AfterFunc(d, func() {
		m.post(task)
	})
}

func (m *Manager) now() time.Time {
	return m.clock()
}

// deliver is the transport's receive callback: it hops onto the loop
// goroutine and routes the packet to the scopes of its protocol.
func (m *Manager) deliver(protocol model.Protocol, msg *dns.Msg, from net.IP, ifindex int, family model.Family) {
	m.post(func() {
		for _, scope := range m.scopes {
			if scope.protocol != protocol {
				continue
			}

			if scope.protocol.IsMulticast() && family != model.FamilyUnspec && scope.family != family {
				continue
			}

			scope.ProcessPacket(msg, from, ifindex, family)
		}
	})
}

// scopeFor picks the scope claiming the name: the highest positive
// match wins, a zero match is the fallback.
func (m *Manager) scopeFor(name string, key model.Key) *Scope {
	var (
		best      *Scope
		bestScore = matchNo
	)

	for _, scope := range m.scopes {
		if !scope.goodKey(key) {
			continue
		}

		if score := scope.MatchDomain(name); score > bestScore {
			best = scope
			bestScore = score
		}
	}

	if bestScore < matchMaybe {
		return nil
	}

	return best
}

// waiter adapts a channel to the Listener interface for Resolve.
type waiter struct {
	ch chan *Result
}

func (w *waiter) TransactionCompleted(t *Transaction) {
	result := &Result{
		State:         t.State(),
		Rcode:         t.Rcode(),
		Answer:        t.Answer(),
		Source:        t.Source(),
		Dnssec:        t.DnssecResult(),
		Protocol:      t.Scope().Protocol(),
		Authenticated: t.Authenticated(),
	}

	t.Unsubscribe(w)

	select {
	case w.ch <- result:
	default:
	}
}

// Resolve answers one question. It routes the name to a scope, joins
// the in-flight transaction for the question or starts a new one, and
// waits for its completion. Cancellation of the context drops the
// subscription; the transaction itself keeps running for other
// subscribers and is swept once nobody cares.
func (m *Manager) Resolve(ctx context.Context, name string, qType uint16) (*Result, error) {
	key := model.NewKey(dns.ClassINET, qType, name)
	w := &waiter{ch: make(chan *Result, 1)}

	errCh := make(chan error, 1)

	m.post(func() {
		scope := m.scopeFor(name, key)
		if scope == nil {
			w.ch <- &Result{State: TransactionStateNoServers, Rcode: dns.RcodeServerFailure}

			return
		}

		t, err := scope.transactionFor(key)
		if err != nil {
			errCh <- err

			return
		}

		t.Subscribe(w)
		t.Go()
	})

	select {
	case result := <-w.ch:
		return result, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		m.post(func() {
			if t := m.findTransaction(key); t != nil {
				t.Unsubscribe(w)
			}
		})

		return &Result{State: TransactionStateTimeout, Rcode: dns.RcodeServerFailure}, nil
	}
}

func (m *Manager) findTransaction(key model.Key) *Transaction {
	for _, scope := range m.scopes {
		if t := scope.findTransaction(key); t != nil {
			return t
		}
	}

	return nil
}

// FlushCaches drops every scope's answer cache.
func (m *Manager) FlushCaches() {
	done := make(chan struct{})

	m.post(func() {
		for _, scope := range m.scopes {
			scope.cache.Flush()
		}

		close(done)
	})

	<-done
}

// Statistics takes a consistent snapshot of the engine.
func (m *Manager) Statistics() Statistics {
	resultCh := make(chan Statistics, 1)

	m.post(func() {
		var result Statistics

		now := m.now()

		for _, scope := range m.scopes {
			s := ScopeStatistics{
				Protocol:     scope.protocol.String(),
				Family:       scope.family.String(),
				Transactions: len(scope.transactions),
				CacheEntries: scope.cache.TotalCount(),
			}

			if scope.zone != nil {
				s.ZoneItems = scope.zone.ItemCount()
			}

			if len(scope.servers) > 0 {
				s.Servers = make(map[string]string, len(scope.servers))
				for _, server := range scope.servers {
					s.Servers[server.String()] = server.PossibleLevel(now).String()
				}
			}

			result.Scopes = append(result.Scopes, s)
		}

		resultCh <- result
	})

	return <-resultCh
}
