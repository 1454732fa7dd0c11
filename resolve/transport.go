package resolve

import (
	"fmt"
	"net"
	"time"

	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/avast/retry-go/v4"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Transport abstracts the sockets away from the engine so suites can
// substitute a fake. Replies arrive asynchronously through the deliver
// callback handed to the constructor, except for streams which report
// through their own completion callback.
type Transport interface {
	// SendQuery sends a datagram query to an upstream server.
	SendQuery(msg *dns.Msg, server *Server) error

	// ExchangeStream performs a stream exchange with the given host:port
	// in the background and invokes done exactly once.
	ExchangeStream(msg *dns.Msg, address string, done func(reply *dns.Msg, rtt time.Duration, err error))

	// SendMulticast sends a packet to the protocol's multicast group.
	// A zero ifindex means the default interface.
	SendMulticast(msg *dns.Msg, protocol model.Protocol, ifindex int, family model.Family) error

	// SendTo sends a packet directly to one peer on the protocol's port.
	SendTo(msg *dns.Msg, protocol model.Protocol, ifindex int, family model.Family, addr net.IP) error

	Close() error
}

// deliverFunc is the receive path back into the engine.
type deliverFunc func(protocol model.Protocol, msg *dns.Msg, from net.IP, ifindex int, family model.Family)

const (
	streamTimeout       = 5 * time.Second
	streamRetryAttempts = 3

	packetBufferSize = 0xFFFF
)

var multicastGroups = map[model.Protocol]map[model.Family]*net.UDPAddr{
	model.ProtocolLlmnr: {
		model.FamilyIpv4: {IP: net.IPv4(224, 0, 0, 252), Port: llmnrPort},
		model.FamilyIpv6: {IP: net.ParseIP("ff02::1:3"), Port: llmnrPort},
	},
	model.ProtocolMdns: {
		model.FamilyIpv4: {IP: net.IPv4(224, 0, 0, 251), Port: mdnsPort},
		model.FamilyIpv6: {IP: net.ParseIP("ff02::fb"), Port: mdnsPort},
	},
}

// netTransport is the real socket implementation: one ephemeral UDP
// socket for upstream queries, a stream client for TCP fallback and one
// multicast socket per protocol and family.
type netTransport struct {
	deliver deliverFunc
	log     *logrus.Entry

	udp4      *net.UDPConn
	udp6      *net.UDPConn
	tcpClient *dns.Client

	multicast []*multicastConn

	closed chan struct{}
}

func newNetTransport(deliver deliverFunc) (*netTransport, error) {
	t := &netTransport{
		deliver: deliver,
		log:     log.PrefixedLog("transport"),
		tcpClient: &dns.Client{
			Net:     "tcp",
			Timeout: streamTimeout,
		},
		closed: make(chan struct{}),
	}

	var err error

	t.udp4, err = net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("can't open IPv4 query socket: %w", err)
	}

	t.udp6, err = net.ListenUDP("udp6", nil)
	if err != nil {
		// IPv6-less hosts still resolve over IPv4
		t.log.WithError(err).Debug("no IPv6 query socket")
	}

	go t.readUnicast(t.udp4)

	if t.udp6 != nil {
		go t.readUnicast(t.udp6)
	}

	for protocol, families := range multicastGroups {
		for family, group := range families {
			mc, err := newMulticastConn(protocol, family, group)
			if err != nil {
				t.log.WithError(err).WithFields(logrus.Fields{
					"protocol": protocol.String(),
					"family":   family.String(),
				}).Debug("can't open multicast socket")

				continue
			}

			t.multicast = append(t.multicast, mc)

			go t.readMulticast(mc)
		}
	}

	return t, nil
}

func (t *netTransport) SendQuery(msg *dns.Msg, server *Server) error {
	addr, err := net.ResolveUDPAddr("udp", server.Address())
	if err != nil {
		return fmt.Errorf("can't resolve upstream address: %w", err)
	}

	buf, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("can't pack query: %w", err)
	}

	conn := t.udp4
	if addr.IP.To4() == nil {
		conn = t.udp6
	}

	if conn == nil {
		return fmt.Errorf("no socket for address family of %s", server.Address())
	}

	_, err = conn.WriteToUDP(buf, addr)

	return err
}

func (t *netTransport) ExchangeStream(msg *dns.Msg, address string,
	done func(reply *dns.Msg, rtt time.Duration, err error),
) {
	go func() {
		var (
			reply *dns.Msg
			rtt   time.Duration
		)

		err := retry.Do(
			func() error {
				var err error
				reply, rtt, err = t.tcpClient.Exchange(msg, address)

				return err
			},
			retry.Attempts(streamRetryAttempts),
			retry.LastErrorOnly(true),
		)

		done(reply, rtt, err)
	}()
}

func (t *netTransport) SendMulticast(msg *dns.Msg, protocol model.Protocol, ifindex int, family model.Family) error {
	mc := t.multicastConnFor(protocol, family)
	if mc == nil {
		return fmt.Errorf("no multicast socket for %s/%s", protocol, family)
	}

	buf, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("can't pack packet: %w", err)
	}

	return mc.writeTo(buf, ifindex, mc.group)
}

func (t *netTransport) SendTo(msg *dns.Msg, protocol model.Protocol, ifindex int, family model.Family,
	addr net.IP,
) error {
	mc := t.multicastConnFor(protocol, family)
	if mc == nil {
		return fmt.Errorf("no multicast socket for %s/%s", protocol, family)
	}

	buf, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("can't pack packet: %w", err)
	}

	return mc.writeTo(buf, ifindex, &net.UDPAddr{IP: addr, Port: mc.group.Port})
}

func (t *netTransport) multicastConnFor(protocol model.Protocol, family model.Family) *multicastConn {
	for _, mc := range t.multicast {
		if mc.protocol == protocol && mc.family == family {
			return mc
		}
	}

	return nil
}

func (t *netTransport) Close() error {
	close(t.closed)

	_ = t.udp4.Close()

	if t.udp6 != nil {
		_ = t.udp6.Close()
	}

	for _, mc := range t.multicast {
		_ = mc.conn.Close()
	}

	return nil
}

func (t *netTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// readUnicast pumps upstream replies into the engine.
func (t *netTransport) readUnicast(conn *net.UDPConn) {
	buf := make([]byte, packetBufferSize)

	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !t.isClosed() {
				t.log.WithError(err).Debug("query socket read failed")
			}

			return
		}

		msg := new(dns.Msg)
		if err := msg.Unpack(buf[:n]); err != nil {
			// an unparsable packet still carries evidence, but without
			// an id there is nothing to route it to
			t.log.WithError(err).Debug("dropping unparsable datagram")

			continue
		}

		t.deliver(model.ProtocolDns, msg, from.IP, 0, model.FamilyUnspec)
	}
}

// readMulticast pumps group traffic into the engine, tagged with the
// receiving interface.
func (t *netTransport) readMulticast(mc *multicastConn) {
	buf := make([]byte, packetBufferSize)

	for {
		n, from, ifindex, err := mc.readFrom(buf)
		if err != nil {
			if !t.isClosed() {
				t.log.WithError(err).Debug("multicast socket read failed")
			}

			return
		}

		msg := new(dns.Msg)
		if err := msg.Unpack(buf[:n]); err != nil {
			t.log.WithError(err).Debug("dropping unparsable multicast packet")

			continue
		}

		t.deliver(mc.protocol, msg, from, ifindex, mc.family)
	}
}

// multicastConn is one group-joined socket. The packet connection keeps
// the per-packet interface index visible, which the engine needs to
// scope answers to their link.
type multicastConn struct {
	protocol model.Protocol
	family   model.Family
	group    *net.UDPAddr

	conn *net.UDPConn
	p4   *ipv4.PacketConn
	p6   *ipv6.PacketConn
}

func newMulticastConn(protocol model.Protocol, family model.Family, group *net.UDPAddr) (*multicastConn, error) {
	network := "udp4"
	if family == model.FamilyIpv6 {
		network = "udp6"
	}

	conn, err := net.ListenUDP(network, &net.UDPAddr{Port: group.Port})
	if err != nil {
		return nil, err
	}

	mc := &multicastConn{
		protocol: protocol,
		family:   family,
		group:    group,
		conn:     conn,
	}

	ifaces := multicastInterfaces()

	if family == model.FamilyIpv4 {
		mc.p4 = ipv4.NewPacketConn(conn)

		if err := mc.p4.SetControlMessage(ipv4.FlagInterface, true); err != nil {
			_ = conn.Close()

			return nil, err
		}

		// mDNS requires TTL 255 on the link (RFC 6762 section 11)
		_ = mc.p4.SetMulticastTTL(255)
		_ = mc.p4.SetMulticastLoopback(false)

		for _, iface := range ifaces {
			iface := iface
			if err := mc.p4.JoinGroup(&iface, &net.UDPAddr{IP: group.IP}); err != nil {
				log.PrefixedLog("transport").WithError(err).
					WithField("interface", iface.Name).Debug("can't join group")
			}
		}
	} else {
		mc.p6 = ipv6.NewPacketConn(conn)

		if err := mc.p6.SetControlMessage(ipv6.FlagInterface, true); err != nil {
			_ = conn.Close()

			return nil, err
		}

		_ = mc.p6.SetMulticastHopLimit(255)
		_ = mc.p6.SetMulticastLoopback(false)

		for _, iface := range ifaces {
			iface := iface
			if err := mc.p6.JoinGroup(&iface, &net.UDPAddr{IP: group.IP}); err != nil {
				log.PrefixedLog("transport").WithError(err).
					WithField("interface", iface.Name).Debug("can't join group")
			}
		}
	}

	return mc, nil
}

func (mc *multicastConn) readFrom(buf []byte) (n int, from net.IP, ifindex int, err error) {
	if mc.p4 != nil {
		n, cm, src, err := mc.p4.ReadFrom(buf)
		if err != nil {
			return 0, nil, 0, err
		}

		if cm != nil {
			ifindex = cm.IfIndex
		}

		if udpAddr, ok := src.(*net.UDPAddr); ok {
			from = udpAddr.IP
		}

		return n, from, ifindex, nil
	}

	n, cm, src, err := mc.p6.ReadFrom(buf)
	if err != nil {
		return 0, nil, 0, err
	}

	if cm != nil {
		ifindex = cm.IfIndex
	}

	if udpAddr, ok := src.(*net.UDPAddr); ok {
		from = udpAddr.IP
	}

	return n, from, ifindex, nil
}

func (mc *multicastConn) writeTo(buf []byte, ifindex int, dst *net.UDPAddr) error {
	if mc.p4 != nil {
		var cm *ipv4.ControlMessage
		if ifindex != 0 {
			cm = &ipv4.ControlMessage{IfIndex: ifindex}
		}

		_, err := mc.p4.WriteTo(buf, cm, dst)

		return err
	}

	var cm *ipv6.ControlMessage
	if ifindex != 0 {
		cm = &ipv6.ControlMessage{IfIndex: ifindex}
	}

	_, err := mc.p6.WriteTo(buf, cm, dst)

	return err
}

// multicastInterfaces lists the interfaces worth joining groups on.
func multicastInterfaces() []net.Interface {
	all, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var result []net.Interface

	for _, iface := range all {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		result = append(result, iface)
	}

	return result
}
