package resolve

import (
	"fmt"
	"net"

	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const (
	llmnrRecordTTL = 30
	mdnsRecordTTL  = 120
)

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

// ZoneItemState is the conflict-verification state of a local record ENUM(
// probing // ownership probe in flight
// established // probe done, the record answers queries
// verifying // re-probing after suspicious traffic
// withdrawn // lost a conflict, no longer announced
// )
type ZoneItemState int

// zoneItem is one locally announced record. An item answering remote
// queries must first survive an ownership probe; losing a conflict at
// any later time withdraws it.
type zoneItem struct {
	zone  *Zone
	rr    dns.RR
	state ZoneItemState
	probe *Transaction
}

// TransactionCompleted handles the outcome of the item's probe: a
// positive answer means somebody else already owns the name.
func (i *zoneItem) TransactionCompleted(t *Transaction) {
	if i.state != ZoneItemStateProbing && i.state != ZoneItemStateVerifying {
		return
	}

	i.probe = nil

	t.Unsubscribe(i)

	if t.State() == TransactionStateSuccess && !t.Answer().IsEmpty() {
		i.zone.MarkConflict(i.rr.Header().Name)

		return
	}

	i.setState(ZoneItemStateEstablished)
}

func (i *zoneItem) setState(state ZoneItemState) {
	if i.state == state {
		return
	}

	i.zone.log.WithFields(logrus.Fields{
		"name":  i.rr.Header().Name,
		"state": state.String(),
	}).Debug("zone item state changed")

	i.state = state
}

// Zone holds the records a scope announces and defends on its link.
type Zone struct {
	scope  *Scope
	byName map[string][]*zoneItem
	log    *logrus.Entry
}

func newZone(scope *Scope) *Zone {
	return &Zone{
		scope:  scope,
		byName: make(map[string][]*zoneItem),
		log:    scope.log.WithField("prefix", "zone"),
	}
}

// Put adds a record. With probe set the record starts in the probing
// state and a verification transaction must release it before it
// answers anything.
func (z *Zone) Put(rr dns.RR, probe bool) error {
	name := dns.CanonicalName(rr.Header().Name)

	item := &zoneItem{
		zone:  z,
		rr:    rr,
		state: ZoneItemStateEstablished,
	}

	z.byName[name] = append(z.byName[name], item)

	if !probe {
		return nil
	}

	item.state = ZoneItemStateProbing

	return z.startProbe(item)
}

// hostnameRecord announces one address of the host under the given
// owner name. LLMNR names are probed for uniqueness first.
func (z *Zone) hostnameRecord(owner string, addr net.IP) {
	ttl := uint32(mdnsRecordTTL)
	probe := false

	if z.scope.protocol == model.ProtocolLlmnr {
		ttl = llmnrRecordTTL
		probe = true
	}

	hdr := dns.RR_Header{Name: owner, Class: dns.ClassINET, Ttl: ttl}

	var rr dns.RR

	if v4 := addr.To4(); v4 != nil {
		hdr.Rrtype = dns.TypeA
		rr = &dns.A{Hdr: hdr, A: v4}
	} else {
		hdr.Rrtype = dns.TypeAAAA
		rr = &dns.AAAA{Hdr: hdr, AAAA: addr}
	}

	if err := z.Put(rr, probe); err != nil {
		z.log.WithError(err).Warn("can't announce hostname record")
	}
}

// startProbe spawns the ownership probe: an ANY question for the item's
// owner name, flagged so it skips the local zone and the cache.
func (z *Zone) startProbe(item *zoneItem) error {
	name := item.rr.Header().Name

	t, err := z.scope.transactionFor(model.NewKey(dns.ClassINET, dns.TypeANY, name))
	if err != nil {
		return fmt.Errorf("can't probe '%s': %w", name, err)
	}

	t.probing = true
	item.probe = t

	t.Subscribe(item)
	t.Go()

	return nil
}

// Lookup answers a question from the established local records. Items
// still probing or already withdrawn stay silent.
func (z *Zone) Lookup(key model.Key) *model.Answer {
	answer := model.NewAnswer()

	for _, item := range z.byName[key.Name()] {
		if item.state != ZoneItemStateEstablished && item.state != ZoneItemStateVerifying {
			continue
		}

		if !key.Matches(item.Key()) {
			continue
		}

		answer.Add(item.rr, z.scope.ifindex,
			model.AnswerAuthenticated|model.AnswerSectionAnswer)
	}

	if answer.IsEmpty() {
		return nil
	}

	return answer
}

func (i *zoneItem) Key() model.Key {
	return model.KeyOf(i.rr)
}

// CheckConflict inspects a remote record claiming one of our names. A
// claim with different data than ours is a conflict and withdraws the
// name. Identical data is somebody echoing our own announcement.
func (z *Zone) CheckConflict(rr dns.RR) bool {
	name := dns.CanonicalName(rr.Header().Name)

	items := z.byName[name]
	if len(items) == 0 {
		return false
	}

	for _, item := range items {
		if item.state == ZoneItemStateWithdrawn {
			continue
		}

		if item.Key() == model.KeyOf(rr) && dns.IsDuplicate(item.rr, rr) {
			return false
		}
	}

	z.MarkConflict(name)

	return true
}

// MarkConflict withdraws all items of the name and stops their probes.
func (z *Zone) MarkConflict(name string) {
	name = dns.CanonicalName(name)

	items := z.byName[name]
	if len(items) == 0 {
		return
	}

	conflicted := false

	for _, item := range items {
		if item.state == ZoneItemStateWithdrawn {
			continue
		}

		if item.probe != nil {
			item.probe.Unsubscribe(item)
			item.probe = nil
		}

		item.setState(ZoneItemStateWithdrawn)

		conflicted = true
	}

	if !conflicted {
		return
	}

	z.log.WithField("name", name).Warn("name conflict on the link, withdrawing local records")

	evt.Bus().Publish(evt.ZoneConflictDetected, name)
}

// Names returns all owner names with at least one non-withdrawn item.
func (z *Zone) Names() []string {
	var names []string

	for name, items := range z.byName {
		for _, item := range items {
			if item.state != ZoneItemStateWithdrawn {
				names = append(names, name)

				break
			}
		}
	}

	return names
}

// ItemCount returns the number of non-withdrawn records.
func (z *Zone) ItemCount() int {
	count := 0

	for _, items := range z.byName {
		for _, item := range items {
			if item.state != ZoneItemStateWithdrawn {
				count++
			}
		}
	}

	return count
}
