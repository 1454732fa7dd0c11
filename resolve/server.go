package resolve

import (
	"fmt"
	"time"

	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/log"
	"github.com/sirupsen/logrus"
)

// Server tracks one upstream unicast DNS server: the capability level we
// verified, the level we currently dare to use, failure counters per
// transport and a smoothed RTT which drives the per-attempt timeout.
//
// Levels only degrade on evidence (lost packets, stripped OPT records,
// missing RRSIG data, unparsable replies). A degraded server is probed
// upward again once its grace period expires; the grace period doubles
// on every expiry so a persistently broken server is not probed forever.
type Server struct {
	upstream   config.Upstream
	dnssecMode config.DnssecMode
	log        *logrus.Entry

	verifiedLevel FeatureLevel
	possibleLevel FeatureLevel
	verifiedAt    time.Time
	gracePeriod   time.Duration

	nFailedUDP int
	nFailedTCP int

	packetTruncated    bool
	packetInvalid      bool
	packetBadOpt       bool
	packetRrsigMissing bool
	packetDoOff        bool

	rtt           time.Duration
	resendTimeout time.Duration
}

func newServer(upstream config.Upstream, dnssecMode config.DnssecMode) *Server {
	return &Server{
		upstream:      upstream,
		dnssecMode:    dnssecMode,
		log:           log.PrefixedLog("server").WithField("server", upstream.String()),
		verifiedLevel: FeatureLevelTcp,
		possibleLevel: FeatureLevelLarge,
		gracePeriod:   featureGracePeriodMin,
		resendTimeout: unicastResendMin,
	}
}

func (s *Server) Upstream() config.Upstream {
	return s.upstream
}

// Address returns the host:port dial target.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.upstream.Host, s.upstream.Port)
}

func (s *Server) String() string {
	return s.upstream.String()
}

// VerifiedLevel returns the highest level a reply was received at.
func (s *Server) VerifiedLevel() FeatureLevel {
	return s.verifiedLevel
}

// ResendTimeout returns the per-attempt timeout learned from the
// server's round trip times.
func (s *Server) ResendTimeout() time.Duration {
	return s.resendTimeout
}

// bestLevel is the highest level worth probing. Without DNSSEC there is
// no point in asking for DO or large datagrams.
func (s *Server) bestLevel() FeatureLevel {
	if s.dnssecMode != config.DnssecModeOff {
		return FeatureLevelLarge
	}

	return FeatureLevelEdns0
}

// Usable reports whether the server may serve queries at all. Strict
// DNSSEC pins the minimum usable level to DO: a server that degraded
// below it cannot carry validatable answers.
func (s *Server) Usable(now time.Time) bool {
	if s.dnssecMode != config.DnssecModeStrict {
		return true
	}

	return s.PossibleLevel(now) >= FeatureLevelDo
}

// PossibleLevel decides the feature level for the next query. It applies
// the grace period, lifts the level back to the verified one after
// spurious downgrades and degrades it when the failure counters or
// malformed-reply markers demand it.
func (s *Server) PossibleLevel(now time.Time) FeatureLevel {
	best := s.bestLevel()

	if s.possibleLevel > best {
		s.possibleLevel = best
	}

	switch {
	case s.possibleLevel < best && s.graceExpired(now):
		s.setPossibleLevel(best, "grace period over, resuming full feature set")
		s.resetCounters()

		s.packetBadOpt = false
		s.packetRrsigMissing = false
	case s.possibleLevel <= s.verifiedLevel:
		s.possibleLevel = s.verifiedLevel
	default:
		s.degrade()
	}

	return s.possibleLevel
}

// degrade lowers the possible level when the counters demand it. Only
// one step happens per call, so repeated trouble walks the ladder down
// gradually.
func (s *Server) degrade() {
	strict := s.dnssecMode == config.DnssecModeStrict

	switch {
	case s.nFailedTCP >= featureRetryAttempts && s.possibleLevel == FeatureLevelTcp:
		// TCP is the floor. When even that fails repeatedly the net
		// itself is suspect, so try UDP again.
		s.setPossibleLevel(FeatureLevelUdp, "too many failed stream attempts, trying datagrams again")
		s.resetCounters()
	case s.packetInvalid && s.possibleLevel > FeatureLevelUdp:
		level := FeatureLevelUdp
		if s.possibleLevel >= FeatureLevelDo {
			level = FeatureLevelEdns0
		}

		s.setPossibleLevel(level, "got unparsable reply, downgrading")
		s.resetCounters()
	case s.packetBadOpt && s.possibleLevel >= FeatureLevelEdns0 && !strict:
		s.setPossibleLevel(FeatureLevelUdp, "server strips the OPT record, downgrading")
		s.resetCounters()
	case s.packetDoOff && s.possibleLevel >= FeatureLevelDo && !strict:
		s.setPossibleLevel(FeatureLevelEdns0, "server does not copy the DO bit, downgrading")
		s.resetCounters()
	case s.packetRrsigMissing && s.possibleLevel >= FeatureLevelDo && !strict:
		s.setPossibleLevel(FeatureLevelEdns0, "server omits RRSIG records, downgrading")
		s.resetCounters()
	case s.nFailedUDP >= featureRetryAttempts && s.possibleLevel >= FeatureLevelUdp &&
		(s.possibleLevel != FeatureLevelDo || !strict):
		s.setPossibleLevel(s.possibleLevel-1, "lost too many datagrams, downgrading")
		s.resetCounters()
	case s.nFailedTCP >= featureRetryAttempts && s.packetTruncated && s.possibleLevel > FeatureLevelUdp &&
		(s.possibleLevel < FeatureLevelDo || !strict):
		// stream fallback keeps failing while datagrams truncate:
		// shrink the queries instead
		level := FeatureLevelUdp
		if s.possibleLevel >= FeatureLevelDo {
			level = FeatureLevelEdns0
		}

		s.setPossibleLevel(level, "streams fail and datagrams truncate, downgrading")
		s.resetCounters()
	}
}

func (s *Server) setPossibleLevel(level FeatureLevel, reason string) {
	if s.possibleLevel == level {
		return
	}

	s.log.WithFields(logrus.Fields{
		"from": s.possibleLevel.String(),
		"to":   level.String(),
	}).Info(reason)

	s.possibleLevel = level

	evt.Bus().Publish(evt.ServerFeatureLevelChanged, s.upstream.String(), level)
}

// PacketReceived records a reply at the given level and updates the
// smoothed RTT. Stream replies only verify the TCP level; a reply to a
// large-size probe only proves DO, since receiving it says nothing about
// large datagrams actually passing.
func (s *Server) PacketReceived(stream bool, level FeatureLevel, rtt time.Duration, now time.Time) {
	if s.possibleLevel == level {
		if stream {
			s.nFailedTCP = 0
		} else {
			s.nFailedUDP = 0
		}
	}

	if stream {
		level = FeatureLevelTcp
	}

	if s.packetRrsigMissing && level >= FeatureLevelDo {
		level = FeatureLevelEdns0
	}

	if s.packetBadOpt && level >= FeatureLevelEdns0 {
		level = FeatureLevelUdp
	}

	if level == FeatureLevelLarge {
		level = FeatureLevelDo
	}

	s.verified(level, now)

	if rtt > 0 {
		if s.rtt == 0 {
			s.rtt = rtt
		} else {
			s.rtt = (s.rtt*7 + rtt) / 8
		}

		s.resendTimeout = clampDuration(2*s.rtt, unicastResendMin, unicastResendMax)
	}
}

func (s *Server) verified(level FeatureLevel, now time.Time) {
	if s.verifiedLevel > level {
		return
	}

	if s.verifiedLevel != level {
		s.log.Debugf("verified feature level %s", level)
		s.verifiedLevel = level
	}

	s.verifiedAt = now
}

// PacketLost counts a timeout of an attempt at the given level.
func (s *Server) PacketLost(stream bool, level FeatureLevel) {
	if s.possibleLevel != level {
		return
	}

	if stream {
		s.nFailedTCP++
	} else {
		s.nFailedUDP++
	}
}

// PacketTruncated records a reply with the TC bit at the given level.
func (s *Server) PacketTruncated(level FeatureLevel) {
	if s.possibleLevel != level {
		return
	}

	s.packetTruncated = true
}

// PacketFailed records a FORMERR/SERVFAIL/NOTIMP reply to a query at
// the given level. The next attempt goes out below EDNS0; if the error
// goes away there, PacketRcodeDowngrade pins the lower level.
func (s *Server) PacketFailed(level FeatureLevel) {
	if s.possibleLevel != level {
		return
	}

	if s.possibleLevel > FeatureLevelUdp && s.dnssecMode != config.DnssecModeStrict {
		s.setPossibleLevel(FeatureLevelUdp, "server replied with an error code, downgrading")
		s.resetCounters()
	}
}

// PacketInvalid records a reply which could not be parsed.
func (s *Server) PacketInvalid(level FeatureLevel) {
	if s.possibleLevel != level {
		return
	}

	s.packetInvalid = true
}

// PacketBadOpt records an EDNS(0) query whose reply carried no OPT
// record. The verified level falls below EDNS0: such a server may serve
// different data with and without OPT, so the old proof is void.
func (s *Server) PacketBadOpt(level FeatureLevel) {
	if level < FeatureLevelEdns0 {
		return
	}

	if s.verifiedLevel >= FeatureLevelEdns0 {
		s.verifiedLevel = FeatureLevelUdp
	}

	s.packetBadOpt = true
}

// PacketRrsigMissing records a DO query whose reply lacked signature
// material. The verified level falls to EDNS0.
func (s *Server) PacketRrsigMissing(level FeatureLevel) {
	if level < FeatureLevelDo {
		return
	}

	if s.verifiedLevel >= FeatureLevelDo {
		s.verifiedLevel = FeatureLevelEdns0
	}

	s.packetRrsigMissing = true
}

// PacketDoOff records a reply which did not copy the DO bit back.
func (s *Server) PacketDoOff(level FeatureLevel) {
	if s.possibleLevel != level {
		return
	}

	s.packetDoOff = true
}

// PacketRcodeDowngrade pins the server to the given level after a
// FORMERR/SERVFAIL/NOTIMP went away on a downgraded retry.
func (s *Server) PacketRcodeDowngrade(level FeatureLevel) {
	if s.verifiedLevel > level {
		s.verifiedLevel = level
	}

	if s.possibleLevel > level {
		s.setPossibleLevel(level, "downgrading fixed an rcode error, pinning level")
		s.resetCounters()
	}
}

func (s *Server) resetCounters() {
	s.nFailedUDP = 0
	s.nFailedTCP = 0
	s.packetTruncated = false
	s.packetInvalid = false
	s.packetDoOff = false
	s.verifiedAt = time.Time{}

	// packetBadOpt and packetRrsigMissing survive on purpose: a lower
	// level cannot make OPT records or signatures reappear, only the
	// grace period clears them.
}

func (s *Server) graceExpired(now time.Time) bool {
	if s.verifiedAt.IsZero() {
		return false
	}

	if now.Before(s.verifiedAt.Add(s.gracePeriod)) {
		return false
	}

	s.gracePeriod = minDuration(s.gracePeriod*2, featureGracePeriodMax)

	return true
}

func clampDuration(d, lower, upper time.Duration) time.Duration {
	if d < lower {
		return lower
	}

	if d > upper {
		return upper
	}

	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}

	return b
}
