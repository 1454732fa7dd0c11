// Package dnssec implements the validation primitives of the resolver:
// RRset signature verification per RFC 4034/4035, DS digest checking,
// NSEC3 owner name hashing per RFC 5155 and the static trust anchor
// database. Orchestration, requesting missing key material while a query
// is in flight, lives in the resolve package.
package dnssec

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

import (
	"strings"
	"time"

	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
)

// Result is the outcome of one validation attempt ENUM(
// unchecked // validation did not run yet
// validated // proven authentic against the trust chain
// invalid // proven bogus
// signature-expired // signature outside its validity period
// unsupported-algorithm // signature or digest algorithm not supported
// no-signature // no covering signature
// missing-key // the signer's key is not available
// insecure // proven unsigned, acceptable without validation
// failed-auxiliary // a key material sub query failed
// )
type Result int

// RFC 4034 §2.1.2: the protocol field must be 3.
const dnskeyProtocol = 3

// Verifier checks RRset signatures and key digests. The supported
// algorithm and digest sets are explicit; an empty set accepts nothing.
type Verifier struct {
	algorithms map[uint8]struct{}
	digests    map[uint8]struct{}
	clockSkew  time.Duration
}

type VerifierOption func(*Verifier)

// WithAlgorithms replaces the set of accepted signature algorithms.
func WithAlgorithms(algorithms ...uint8) VerifierOption {
	return func(v *Verifier) {
		v.algorithms = setOf(algorithms...)
	}
}

// WithDigests replaces the set of accepted DS digest types.
func WithDigests(digests ...uint8) VerifierOption {
	return func(v *Verifier) {
		v.digests = setOf(digests...)
	}
}

// WithClockSkew widens the signature validity window in both directions.
func WithClockSkew(skew time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.clockSkew = skew
	}
}

func NewVerifier(options ...VerifierOption) *Verifier {
	v := &Verifier{
		algorithms: setOf(
			dns.RSASHA1,
			dns.RSASHA1NSEC3SHA1,
			dns.RSASHA256,
			dns.RSASHA512,
			dns.ECDSAP256SHA256,
			dns.ECDSAP384SHA384,
			dns.ED25519,
		),
		digests: setOf(
			dns.SHA1,
			dns.SHA256,
			dns.SHA384,
		),
	}

	for _, opt := range options {
		opt(v)
	}

	return v
}

func setOf(values ...uint8) map[uint8]struct{} {
	set := make(map[uint8]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}

// SupportsAlgorithm returns true if signatures of this algorithm can be verified.
func (v *Verifier) SupportsAlgorithm(algorithm uint8) bool {
	_, ok := v.algorithms[algorithm]

	return ok
}

// SupportsDigest returns true if DS digests of this type can be checked.
func (v *Verifier) SupportsDigest(digest uint8) bool {
	_, ok := v.digests[digest]

	return ok
}

// Covers returns true if sig is a candidate signature for the RRset
// identified by key: same owner and class, type covered matches, and the
// label count permits the owner name (equal, or fewer for a wildcard
// expansion).
func Covers(sig *dns.RRSIG, key model.Key) bool {
	if sig.TypeCovered != key.Type() {
		return false
	}

	if sig.Header().Class != key.Class() {
		return false
	}

	if dns.CanonicalName(sig.Header().Name) != key.Name() {
		return false
	}

	return int(sig.Labels) <= dns.CountLabel(key.Name())
}

// MatchesKey returns true if sig claims to be provable with key: signer
// name, key tag and algorithm all line up. (RFC 4035 §5.3.1)
func MatchesKey(sig *dns.RRSIG, key *dns.DNSKEY) bool {
	if key.Protocol != dnskeyProtocol {
		return false
	}

	if sig.Algorithm != key.Algorithm {
		return false
	}

	if sig.KeyTag != key.KeyTag() {
		return false
	}

	return strings.EqualFold(dns.Fqdn(sig.SignerName), dns.Fqdn(key.Header().Name))
}

// VerifyRRSet checks a single candidate signature over the RRset with
// the given key. The caller is expected to have paired sig and key via
// MatchesKey.
func (v *Verifier) VerifyRRSet(rrs []dns.RR, sig *dns.RRSIG, key *dns.DNSKEY, now time.Time) Result {
	if len(rrs) == 0 {
		return ResultInvalid
	}

	if !v.SupportsAlgorithm(sig.Algorithm) {
		return ResultUnsupportedAlgorithm
	}

	if res := v.checkValidityPeriod(sig, now); res != ResultValidated {
		return res
	}

	if err := sig.Verify(key, rrs); err != nil {
		return ResultInvalid
	}

	return ResultValidated
}

func (v *Verifier) checkValidityPeriod(sig *dns.RRSIG, now time.Time) Result {
	utc := now.UTC().Unix()
	skew := int64(v.clockSkew.Seconds())

	if utc > int64(sig.Expiration)+skew {
		return ResultSignatureExpired
	}

	if utc < int64(sig.Inception)-skew {
		return ResultSignatureExpired
	}

	return ResultValidated
}

// VerifySearch tries every candidate signature against every matching
// key and reports the first proven result, otherwise the most telling
// failure: expired wins over unsupported algorithm, which wins over a
// bad signature, which wins over a missing key.
func (v *Verifier) VerifySearch(rrs []dns.RR, key model.Key,
	sigs []*dns.RRSIG, keys []*dns.DNSKEY, now time.Time,
) Result {
	var foundSig, foundExpired, foundUnsupported, foundInvalid bool

	for _, sig := range sigs {
		if !Covers(sig, key) {
			continue
		}

		foundSig = true

		if !v.SupportsAlgorithm(sig.Algorithm) {
			foundUnsupported = true

			continue
		}

		for _, dnskey := range keys {
			if !MatchesKey(sig, dnskey) {
				continue
			}

			switch v.VerifyRRSet(rrs, sig, dnskey, now) {
			case ResultValidated:
				return ResultValidated
			case ResultSignatureExpired:
				foundExpired = true
			case ResultUnsupportedAlgorithm:
				foundUnsupported = true
			default:
				foundInvalid = true
			}
		}
	}

	switch {
	case foundExpired:
		return ResultSignatureExpired
	case foundUnsupported:
		return ResultUnsupportedAlgorithm
	case foundInvalid:
		return ResultInvalid
	case foundSig:
		return ResultMissingKey
	default:
		return ResultNoSignature
	}
}
