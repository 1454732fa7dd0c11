package util

import (
	"bytes"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// CompareIP orders two addresses lexicographically over their 16-byte
// forms. LLMNR conflict resolution uses this ordering: the numerically
// smaller address loses the name.
func CompareIP(a, b net.IP) int {
	return bytes.Compare(a.To16(), b.To16())
}

// IsReverseDomain reports whether the name lies in one of the reverse
// lookup trees.
func IsReverseDomain(name string) bool {
	canonical := strings.ToLower(dns.Fqdn(name))

	return dns.IsSubDomain("in-addr.arpa.", canonical) ||
		dns.IsSubDomain("ip6.arpa.", canonical)
}

// IPFromReverseName converts a reverse lookup name back into the
// address it stands for, or nil if the name is not a well formed
// reverse name.
func IPFromReverseName(name string) net.IP {
	canonical := strings.ToLower(dns.Fqdn(name))

	switch {
	case dns.IsSubDomain("in-addr.arpa.", canonical):
		labels := dns.SplitDomainName(strings.TrimSuffix(canonical, ".in-addr.arpa."))
		if len(labels) != net.IPv4len {
			return nil
		}

		octets := make([]byte, 0, net.IPv4len)

		// reverse names store the least significant octet first
		for i := len(labels) - 1; i >= 0; i-- {
			v, err := strconv.ParseUint(labels[i], 10, 8)
			if err != nil {
				return nil
			}

			octets = append(octets, byte(v))
		}

		return net.IPv4(octets[0], octets[1], octets[2], octets[3])
	case dns.IsSubDomain("ip6.arpa.", canonical):
		labels := dns.SplitDomainName(strings.TrimSuffix(canonical, ".ip6.arpa."))
		if len(labels) != net.IPv6len*2 {
			return nil
		}

		ip := make(net.IP, 0, net.IPv6len)

		// one hex nibble per label, least significant first
		for i := len(labels) - 1; i >= 0; i -= 2 {
			hi, err1 := strconv.ParseUint(labels[i], 16, 4)
			lo, err2 := strconv.ParseUint(labels[i-1], 16, 4)

			if err1 != nil || err2 != nil {
				return nil
			}

			ip = append(ip, byte(hi<<4|lo))
		}

		return ip
	default:
		return nil
	}
}
