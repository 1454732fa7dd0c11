// Package resolve implements the query transaction engine: per-protocol
// scopes owning in-flight transactions, the retry/timeout state machine
// driving each question to a terminal state, upstream server feature
// probing, the shared answer cache, the local multicast zone and the
// DNSSEC validation orchestration on top of package dnssec.
//
// All engine state is confined to the manager's event loop goroutine.
// Timers, socket readers and the public facade post closures into the
// loop; nothing inside the engine locks.
package resolve

import (
	"time"
)

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

// TransactionState is the lifecycle state of a transaction ENUM(
// null // created, never driven
// pending // query in flight or deliberately delayed
// validating // answer received, DNSSEC proof outstanding
// success // terminal, positive answer
// failure // terminal, rcode carrying negative answer
// no-servers // terminal, no usable server
// timeout // terminal, gave up waiting
// attempts-max-reached // terminal, retry budget exhausted
// invalid-reply // terminal, malformed or mismatched reply
// errors // terminal, local resource or IO failure
// aborted // terminal, scope shut down
// dnssec-failed // terminal, validation refused the answer
// )
type TransactionState int

// IsTerminal reports whether a transaction in this state is done.
func (x TransactionState) IsTerminal() bool {
	switch x {
	case TransactionStateNull, TransactionStatePending, TransactionStateValidating:
		return false
	default:
		return true
	}
}

// TransactionSource tells where a completed answer came from ENUM(
// network
// cache
// zone
// trust-anchor
// )
type TransactionSource int

// FeatureLevel is the upstream server capability ladder. Levels order
// from the most conservative transport to the most demanding one ENUM(
// tcp // stream only
// udp // plain datagram
// edns0 // EDNS(0) without DNSSEC
// do // EDNS(0) with the DO bit
// large // DO plus large datagram advertisement
// )
type FeatureLevel int

const (
	maxAttemptsDNS   = 24
	maxAttemptsLLMNR = 3
	maxAttemptsMDNS  = 3

	// initial multicast transmissions are delayed by a random jitter so
	// that hosts waking up together do not flood the segment
	llmnrJitterInterval = 100 * time.Millisecond
	mdnsJitterMin       = 20 * time.Millisecond
	mdnsJitterRange     = 100 * time.Millisecond

	multicastResendMin = 100 * time.Millisecond
	multicastResendMax = 1 * time.Second

	unicastResendMin = 500 * time.Millisecond
	unicastResendMax = 5 * time.Second

	featureGracePeriodMin = 5 * time.Second
	featureGracePeriodMax = 6 * time.Hour
	featureRetryAttempts  = 3

	// datagram payload sizes advertised via EDNS(0)
	udpSizeEdns0  = 1232
	udpSizeDnssec = 4096

	// upper bound for a coalesced mDNS query packet
	mdnsPacketBudget = 4096

	llmnrPort = 5355
	mdnsPort  = 5353
)

// match scores returned by Scope.MatchDomain. Positive scores claim the
// name, higher values win; zero accepts the name if nobody claims it.
const (
	matchNo    = -1
	matchMaybe = 0
	matchYes   = 1
)
