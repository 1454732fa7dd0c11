package dnssec

import (
	"errors"
	"strings"

	"github.com/miekg/dns"
)

// MaxNsec3Iterations is the highest NSEC3 iteration count still
// processed. Higher counts only make the hash more expensive for the
// validator without adding security and are treated as unsupported.
const MaxNsec3Iterations = 2500

var (
	ErrNsec3Algorithm  = errors.New("nsec3: unsupported hash algorithm")
	ErrNsec3Iterations = errors.New("nsec3: too many iterations")
)

// Nsec3HashName computes the hashed owner name for name under the
// parameters of the NSEC3 record: an uppercase base32hex label, without
// the zone appended.
func Nsec3HashName(nsec3 *dns.NSEC3, name string) (string, error) {
	if nsec3.Hash != dns.SHA1 {
		return "", ErrNsec3Algorithm
	}

	if nsec3.Iterations > MaxNsec3Iterations {
		return "", ErrNsec3Iterations
	}

	hashed := dns.HashName(name, nsec3.Hash, nsec3.Iterations, nsec3.Salt)
	if hashed == "" {
		return "", ErrNsec3Algorithm
	}

	return hashed, nil
}

// Nsec3Matches returns true if the hashed owner name of the NSEC3
// record equals the hash of name under the record's own parameters.
func Nsec3Matches(nsec3 *dns.NSEC3, name string) (bool, error) {
	hashed, err := Nsec3HashName(nsec3, name)
	if err != nil {
		return false, err
	}

	label, _, _ := strings.Cut(nsec3.Header().Name, ".")

	return strings.EqualFold(label, hashed), nil
}

// Nsec3Covers returns true if the hash of name falls strictly between
// the record's hashed owner name and its next hashed owner, proving
// that no record with that name exists in the zone.
func Nsec3Covers(nsec3 *dns.NSEC3, name string) (bool, error) {
	hashed, err := Nsec3HashName(nsec3, name)
	if err != nil {
		return false, err
	}

	label, _, _ := strings.Cut(nsec3.Header().Name, ".")
	owner := strings.ToUpper(label)
	next := strings.ToUpper(nsec3.NextDomain)
	hashed = strings.ToUpper(hashed)

	// a single-record zone covers everything but its own hash
	if owner == next {
		return hashed != owner, nil
	}

	// the last interval of the hash ring wraps around past zero
	if owner > next {
		return hashed > owner || hashed < next, nil
	}

	return hashed > owner && hashed < next, nil
}
