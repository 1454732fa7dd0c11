package dnssec

import (
	"strings"

	"github.com/miekg/dns"
)

// MatchesDS returns true if ds claims to refer to key: owner name, key
// tag and algorithm all line up. (RFC 4035 §5.2)
func MatchesDS(ds *dns.DS, key *dns.DNSKEY) bool {
	if key.Protocol != dnskeyProtocol {
		return false
	}

	if ds.Algorithm != key.Algorithm {
		return false
	}

	if ds.KeyTag != key.KeyTag() {
		return false
	}

	return strings.EqualFold(dns.Fqdn(ds.Header().Name), dns.Fqdn(key.Header().Name))
}

// VerifyKeyByDS checks that the key hashes to the digest the DS record
// carries. The caller is expected to have paired ds and key via
// MatchesDS.
func (v *Verifier) VerifyKeyByDS(key *dns.DNSKEY, ds *dns.DS) Result {
	if !v.SupportsDigest(ds.DigestType) {
		return ResultUnsupportedAlgorithm
	}

	computed := key.ToDS(ds.DigestType)
	if computed == nil {
		return ResultUnsupportedAlgorithm
	}

	if strings.EqualFold(computed.Digest, ds.Digest) {
		return ResultValidated
	}

	return ResultInvalid
}

// VerifyKeySearch tries every DS record that refers to the key and
// reports the first proven digest, otherwise the most telling failure.
func (v *Verifier) VerifyKeySearch(key *dns.DNSKEY, dss []*dns.DS) Result {
	var foundUnsupported, foundInvalid bool

	for _, ds := range dss {
		if !MatchesDS(ds, key) {
			continue
		}

		switch v.VerifyKeyByDS(key, ds) {
		case ResultValidated:
			return ResultValidated
		case ResultUnsupportedAlgorithm:
			foundUnsupported = true
		default:
			foundInvalid = true
		}
	}

	switch {
	case foundUnsupported:
		return ResultUnsupportedAlgorithm
	case foundInvalid:
		return ResultInvalid
	default:
		return ResultMissingKey
	}
}
