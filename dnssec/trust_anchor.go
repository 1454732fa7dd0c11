package dnssec

import (
	"fmt"

	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
)

// Root KSK digests from https://data.iana.org/root-anchors/root-anchors.xml
var builtinPositiveAnchors = []string{
	".	0	IN	DS	20326 8 2 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D",
	".	0	IN	DS	38696 8 2 683D2D0ACB8C9B712A1948B27F741219298D0A450D612C483AF444A4C0FB2B16",
}

// Domain suffixes that cannot be installed in the root zone: special-use
// names (RFC 6761/6762/7686), private reverse trees (RFC 1918/4193) and
// well known private zone TLDs. Answers below them validate as insecure
// without any network traffic.
var builtinNegativeAnchors = []string{
	"home.arpa.",
	"10.in-addr.arpa.",
	"16.172.in-addr.arpa.",
	"17.172.in-addr.arpa.",
	"18.172.in-addr.arpa.",
	"19.172.in-addr.arpa.",
	"20.172.in-addr.arpa.",
	"21.172.in-addr.arpa.",
	"22.172.in-addr.arpa.",
	"23.172.in-addr.arpa.",
	"24.172.in-addr.arpa.",
	"25.172.in-addr.arpa.",
	"26.172.in-addr.arpa.",
	"27.172.in-addr.arpa.",
	"28.172.in-addr.arpa.",
	"29.172.in-addr.arpa.",
	"30.172.in-addr.arpa.",
	"31.172.in-addr.arpa.",
	"168.192.in-addr.arpa.",
	"d.f.ip6.arpa.",
	"corp.",
	"home.",
	"internal.",
	"intranet.",
	"invalid.",
	"lan.",
	"local.",
	"onion.",
	"private.",
	"test.",
}

// Anchors is the static trust anchor database: positive anchors seed the
// chain of trust with DS or DNSKEY material, negative anchors mark
// domain suffixes whose answers are accepted as insecure.
type Anchors struct {
	positive map[model.Key]*model.Answer
	negative []string
}

// NewAnchors builds the database from anchors in zone-file syntax. The
// built-in root keys are added unless a positive anchor for the root is
// supplied, the built-in negative list applies only when no negative
// anchors are supplied.
func NewAnchors(positive, negative []string) (*Anchors, error) {
	a := &Anchors{
		positive: make(map[model.Key]*model.Answer),
	}

	for _, s := range positive {
		if err := a.addPositive(s); err != nil {
			return nil, err
		}
	}

	if !a.hasPositiveName(".") {
		for _, s := range builtinPositiveAnchors {
			if err := a.addPositive(s); err != nil {
				return nil, err
			}
		}
	}

	if len(negative) == 0 {
		negative = builtinNegativeAnchors
	}

	for _, name := range negative {
		name = dns.CanonicalName(name)

		if a.hasPositiveName(name) {
			continue
		}

		a.negative = append(a.negative, name)
	}

	return a, nil
}

func (a *Anchors) addPositive(s string) error {
	rr, err := dns.NewRR(s)
	if err != nil {
		return fmt.Errorf("can't parse trust anchor '%s': %w", s, err)
	}

	switch rr.(type) {
	case *dns.DS, *dns.DNSKEY:
	default:
		return fmt.Errorf("trust anchor '%s' is not a DS or DNSKEY record", s)
	}

	key := model.KeyOf(rr)

	answer, ok := a.positive[key]
	if !ok {
		answer = model.NewAnswer()
		a.positive[key] = answer
	}

	answer.Add(rr, 0, model.AnswerAuthenticated|model.AnswerSectionAnswer)

	return nil
}

func (a *Anchors) hasPositiveName(name string) bool {
	name = dns.CanonicalName(name)

	for key := range a.positive {
		if key.Name() == name {
			return true
		}
	}

	return false
}

// Lookup returns the anchored answer for the exact key, or nil. The
// answer is authenticated but not cacheable.
func (a *Anchors) Lookup(key model.Key) *model.Answer {
	return a.positive[key]
}

// IsNegative reports whether name lies at or below a negative anchor.
func (a *Anchors) IsNegative(name string) bool {
	name = dns.CanonicalName(name)

	for _, negative := range a.negative {
		if dns.IsSubDomain(negative, name) {
			return true
		}
	}

	return false
}

// PositiveCount returns the number of anchored keys.
func (a *Anchors) PositiveCount() int {
	return len(a.positive)
}

// NegativeCount returns the number of negative anchor suffixes.
func (a *Anchors) NegativeCount() int {
	return len(a.negative)
}
