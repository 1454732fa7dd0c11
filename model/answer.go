package model

import (
	"github.com/miekg/dns"
)

// AnswerFlags describe how a single record of an answer may be used.
type AnswerFlags uint8

const (
	// AnswerAuthenticated marks records proven by DNSSEC or coming from
	// a trusted local source (zone, trust anchor).
	AnswerAuthenticated AnswerFlags = 1 << iota
	// AnswerCacheable marks records the cache may store.
	AnswerCacheable
	// AnswerSharedOwner marks mDNS records whose owner is not exclusive.
	AnswerSharedOwner
	// AnswerCacheFlush carries the mDNS cache-flush bit.
	AnswerCacheFlush
	// AnswerGoodbye marks an mDNS announcement with TTL zero.
	AnswerGoodbye
	// AnswerSectionAnswer marks records from the reply's answer section.
	AnswerSectionAnswer
	// AnswerSectionAuthority marks records from the authority section.
	AnswerSectionAuthority
	// AnswerSectionAdditional marks records from the additional section.
	AnswerSectionAdditional
)

// AnswerItem is one record of an answer together with the interface it
// was received on (0 = any) and its usage flags.
type AnswerItem struct {
	RR      dns.RR
	Ifindex int
	Flags   AnswerFlags
}

// Key returns the item's record key.
func (i AnswerItem) Key() Key {
	return KeyOf(i.RR)
}

// Answer is an ordered collection of records with per-record metadata.
// The zero value is ready to use.
type Answer struct {
	items []AnswerItem
}

func NewAnswer() *Answer {
	return &Answer{}
}

// Add appends a record. A record equal to an existing one (same key and
// rdata, TTL ignored) is merged instead: flags are combined, the larger
// TTL wins and differing interfaces collapse to "any".
func (a *Answer) Add(rr dns.RR, ifindex int, flags AnswerFlags) {
	for idx := range a.items {
		item := &a.items[idx]

		if !dns.IsDuplicate(item.RR, rr) {
			continue
		}

		if rr.Header().Ttl > item.RR.Header().Ttl {
			item.RR = rr
		}

		item.Flags |= flags

		if item.Ifindex != ifindex {
			item.Ifindex = 0
		}

		return
	}

	a.items = append(a.items, AnswerItem{RR: rr, Ifindex: ifindex, Flags: flags})
}

// AddItem appends an item, merging per Add semantics.
func (a *Answer) AddItem(item AnswerItem) {
	a.Add(item.RR, item.Ifindex, item.Flags)
}

// Union returns a new answer containing the records of both answers.
func (a *Answer) Union(other *Answer) *Answer {
	result := NewAnswer()

	for _, item := range a.Items() {
		result.AddItem(item)
	}

	for _, item := range other.Items() {
		result.AddItem(item)
	}

	return result
}

func (a *Answer) Len() int {
	if a == nil {
		return 0
	}

	return len(a.items)
}

func (a *Answer) IsEmpty() bool {
	return a.Len() == 0
}

// Items returns the records in insertion order.
func (a *Answer) Items() []AnswerItem {
	if a == nil {
		return nil
	}

	return a.items
}

// RRs returns the bare records in insertion order.
func (a *Answer) RRs() []dns.RR {
	if a == nil {
		return nil
	}

	rrs := make([]dns.RR, 0, len(a.items))
	for _, item := range a.items {
		rrs = append(rrs, item.RR)
	}

	return rrs
}

// FilterByKey returns a new answer holding the records matching the key
// (question semantics, so ANY class/type on the key side match all).
func (a *Answer) FilterByKey(key Key) *Answer {
	result := NewAnswer()

	for _, item := range a.Items() {
		if key.Matches(item.Key()) {
			result.AddItem(item)
		}
	}

	return result
}

// RemoveByKey returns a new answer without the records matching the key.
func (a *Answer) RemoveByKey(key Key) *Answer {
	result := NewAnswer()

	for _, item := range a.Items() {
		if !key.Matches(item.Key()) {
			result.AddItem(item)
		}
	}

	return result
}

// ContainsKey reports whether any record matches the key.
func (a *Answer) ContainsKey(key Key) bool {
	for _, item := range a.Items() {
		if key.Matches(item.Key()) {
			return true
		}
	}

	return false
}

// KeyFlags combines the flags of all records matching the key.
func (a *Answer) KeyFlags(key Key) (AnswerFlags, bool) {
	var (
		flags AnswerFlags
		found bool
	)

	for _, item := range a.Items() {
		if key.Matches(item.Key()) {
			flags |= item.Flags
			found = true
		}
	}

	return flags, found
}

// Keys returns the distinct record keys in insertion order.
func (a *Answer) Keys() []Key {
	var keys []Key

	seen := make(map[Key]struct{}, a.Len())

	for _, item := range a.Items() {
		k := item.Key()
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}

		keys = append(keys, k)
	}

	return keys
}

// FindSOA returns the first SOA record of the answer, if any.
func (a *Answer) FindSOA() (*dns.SOA, AnswerFlags, bool) {
	for _, item := range a.Items() {
		if soa, ok := item.RR.(*dns.SOA); ok {
			return soa, item.Flags, true
		}
	}

	return nil, 0, false
}

// Copy returns a shallow copy sharing the (immutable) records.
func (a *Answer) Copy() *Answer {
	result := NewAnswer()
	result.items = append(result.items, a.Items()...)

	return result
}
