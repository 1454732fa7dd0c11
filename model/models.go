// Package model contains the resource data model shared by the engine:
// interned resource keys, answer sets and the protocol/family tags.
package model

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

// Protocol is the resolution protocol a scope speaks ENUM(
// dns // classic unicast DNS
// llmnr // link-local multicast name resolution (RFC 4795)
// mdns // multicast DNS (RFC 6762)
// )
type Protocol uint8

// Family is the address family a scope is bound to ENUM(
// unspec
// ipv4
// ipv6
// )
type Family uint8

// IsMulticast returns true for the link-local multicast protocols.
func (p Protocol) IsMulticast() bool {
	return p == ProtocolLlmnr || p == ProtocolMdns
}
