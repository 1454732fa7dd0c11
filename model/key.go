package model

import (
	"net"
	"sync"

	"github.com/miekg/dns"
)

// interned canonical names, so equal keys share a single string and
// name comparison degrades to pointer-equal string comparison.
// nolint:gochecknoglobals
var names sync.Map

func internName(name string) string {
	canonical := dns.CanonicalName(name)

	if v, ok := names.Load(canonical); ok {
		return v.(string)
	}

	v, _ := names.LoadOrStore(canonical, canonical)

	return v.(string)
}

// Key identifies an RRset: class, record type and owner name. The name
// is stored canonical (lowercase, fully qualified), so keys built from
// differently-cased spellings of the same name compare equal.
type Key struct {
	name  string
	class uint16
	typ   uint16
}

// NewKey builds an interned key for the given class, type and owner name.
func NewKey(class, rrType uint16, name string) Key {
	return Key{
		name:  internName(name),
		class: class,
		typ:   rrType,
	}
}

// KeyOf derives the key of a record.
func KeyOf(rr dns.RR) Key {
	hdr := rr.Header()

	return NewKey(hdr.Class, hdr.Rrtype, hdr.Name)
}

// KeyOfQuestion derives the key of a wire question.
func KeyOfQuestion(q dns.Question) Key {
	return NewKey(q.Qclass, q.Qtype, q.Name)
}

func (k Key) Name() string {
	return k.name
}

func (k Key) Class() uint16 {
	return k.class
}

func (k Key) Type() uint16 {
	return k.typ
}

// Question converts the key back into a wire question.
func (k Key) Question() dns.Question {
	return dns.Question{
		Name:   k.name,
		Qtype:  k.typ,
		Qclass: k.class,
	}
}

// WithType returns a key for the same owner and class but another type.
func (k Key) WithType(rrType uint16) Key {
	return Key{name: k.name, class: k.class, typ: rrType}
}

// WithName returns a key for the same class and type but another owner.
func (k Key) WithName(name string) Key {
	return Key{name: internName(name), class: k.class, typ: k.typ}
}

// IsZero reports whether the key was never initialized.
func (k Key) IsZero() bool {
	return k.name == "" && k.class == 0 && k.typ == 0
}

// IsAddress reports whether the key asks for address records.
func (k Key) IsAddress() bool {
	return k.typ == dns.TypeA || k.typ == dns.TypeAAAA
}

// IsDnssec reports whether the key asks for DNSSEC metadata, which the
// multicast protocols do not carry.
func (k Key) IsDnssec() bool {
	switch k.typ {
	case dns.TypeDNSKEY, dns.TypeDS, dns.TypeRRSIG,
		dns.TypeNSEC, dns.TypeNSEC3, dns.TypeNSEC3PARAM:
		return true
	default:
		return false
	}
}

// SingleLabel reports whether the owner name consists of one label only.
func (k Key) SingleLabel() bool {
	return dns.CountLabel(k.name) == 1
}

// IsRoot reports whether the owner name is the DNS root.
func (k Key) IsRoot() bool {
	return k.name == "."
}

// Matches reports whether a record with key rk answers this question
// key, honoring ANY class/type on the question side.
func (k Key) Matches(rk Key) bool {
	if k.class != rk.class && k.class != dns.ClassANY {
		return false
	}

	if k.typ != rk.typ && k.typ != dns.TypeANY {
		return false
	}

	return k.name == rk.name
}

// MatchesCnameOrDname reports whether a record with key rk is a
// CNAME/DNAME link on the resolution chain towards this question key.
func (k Key) MatchesCnameOrDname(rk Key) bool {
	if k.class != rk.class && k.class != dns.ClassANY {
		return false
	}

	switch rk.typ {
	case dns.TypeCNAME:
		return k.name == rk.name
	case dns.TypeDNAME:
		return k.name == rk.name || dns.IsSubDomain(rk.name, k.name)
	default:
		return false
	}
}

// String renders the key the way dig prints question sections.
func (k Key) String() string {
	class, ok := dns.ClassToString[k.class]
	if !ok {
		class = "CLASS?"
	}

	typ, ok := dns.TypeToString[k.typ]
	if !ok {
		typ = "TYPE?"
	}

	return k.name + " " + class + " " + typ
}

// TypeIsValidQuery reports whether records of this type may be asked
// for over the network. Pseudo and transfer types are refused.
func TypeIsValidQuery(rrType uint16) bool {
	switch rrType {
	case dns.TypeOPT, dns.TypeTSIG, dns.TypeTKEY, dns.TypeAXFR, dns.TypeIXFR:
		return false
	default:
		return true
	}
}

// FamilyOf maps an IP address to its address family.
func FamilyOf(ip net.IP) Family {
	if ip == nil {
		return FamilyUnspec
	}

	if ip.To4() != nil {
		return FamilyIpv4
	}

	return FamilyIpv6
}
