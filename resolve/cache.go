package resolve

import (
	"strings"
	"time"

	"github.com/0xERR0R/resolvd/cache/expirationcache"
	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// CacheEntry is one cached answer, keyed by its question.
type CacheEntry struct {
	Key           model.Key
	Rcode         int
	Answer        *model.Answer
	Authenticated bool
	Server        string
}

// Cache stores processed answers per scope. Entries expire with the
// smallest record TTL, clamped by the configured bounds; negative
// answers use the negative TTL. Switching the upstream server flushes
// the cache, since different servers may serve different views.
type Cache struct {
	entries *expirationcache.ExpiringLRUCache[CacheEntry]

	minTTL      time.Duration
	maxTTL      time.Duration
	negativeTTL time.Duration
	enabled     bool

	log *logrus.Entry
}

func NewCache(cfg config.CachingConfig) *Cache {
	c := &Cache{
		minTTL:      cfg.MinTTL.ToDuration(),
		maxTTL:      cfg.MaxTTL.ToDuration(),
		negativeTTL: cfg.NegativeTTL.ToDuration(),
		enabled:     cfg.IsEnabled(),
		log:         log.PrefixedLog("cache"),
	}

	if c.enabled {
		c.entries = expirationcache.NewCache[CacheEntry](
			expirationcache.WithMaxSize[CacheEntry](uint(cfg.MaxItemsCount)),
		)
	}

	return c
}

// Put stores a processed answer. cacheableCount limits how many leading
// records of the answer are stored, -1 stores everything. Records which
// arrive with TTL zero are only kept when the answer is authenticated
// and a minimum TTL lifts them.
func (c *Cache) Put(key model.Key, rcode int, answer *model.Answer,
	cacheableCount int, authenticated bool, server string,
) {
	if !c.enabled {
		return
	}

	stored := model.NewAnswer()

	for i, item := range answer.Items() {
		if cacheableCount >= 0 && i >= cacheableCount {
			break
		}

		stored.AddItem(item)
	}

	ttl := c.entryTTL(rcode, stored, authenticated)
	if ttl <= 0 {
		return
	}

	entry := &CacheEntry{
		Key:           key,
		Rcode:         rcode,
		Answer:        stored,
		Authenticated: authenticated,
		Server:        server,
	}

	c.entries.Put(key.String(), entry, ttl)

	c.log.WithFields(logrus.Fields{
		"question": key.String(),
		"ttl":      ttl,
	}).Debug("cached answer")

	evt.Bus().Publish(evt.CachingResultCacheChanged, c.entries.TotalCount())
}

// entryTTL derives the entry lifetime: negative answers use the negative
// TTL, positive ones the smallest record TTL clamped by the bounds.
func (c *Cache) entryTTL(rcode int, stored *model.Answer, authenticated bool) time.Duration {
	if rcode != dns.RcodeSuccess || stored.IsEmpty() {
		return c.negativeTTL
	}

	minRecordTTL := time.Duration(-1)

	for _, item := range stored.Items() {
		recordTTL := time.Duration(item.RR.Header().Ttl) * time.Second
		if minRecordTTL < 0 || recordTTL < minRecordTTL {
			minRecordTTL = recordTTL
		}
	}

	ttl := minRecordTTL

	if authenticated && ttl < c.minTTL {
		ttl = c.minTTL
	}

	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	return ttl
}

// Lookup returns the cached entry for the question, with record TTLs
// reduced to the remaining lifetime.
func (c *Cache) Lookup(key model.Key) (*CacheEntry, bool) {
	if !c.enabled {
		return nil, false
	}

	entry, remaining := c.entries.Get(key.String())
	if entry == nil {
		evt.Bus().Publish(evt.CachingResultCacheMiss, key.Name())

		return nil, false
	}

	evt.Bus().Publish(evt.CachingResultCacheHit, key.Name())

	result := &CacheEntry{
		Key:           entry.Key,
		Rcode:         entry.Rcode,
		Answer:        answerWithRemainingTTL(entry.Answer, remaining),
		Authenticated: entry.Authenticated,
		Server:        entry.Server,
	}

	return result, true
}

// PutRecords caches announcement records as they arrive on an mDNS
// scope: goodbye records evict, cache-flush records replace and shared
// records merge with what is already known for their key.
func (c *Cache) PutRecords(answer *model.Answer) {
	if !c.enabled {
		return
	}

	for _, item := range answer.Items() {
		key := item.Key()

		if item.Flags&model.AnswerGoodbye != 0 || item.RR.Header().Ttl == 0 {
			c.entries.Remove(key.String())

			continue
		}

		stored := model.NewAnswer()

		if item.Flags&model.AnswerCacheFlush == 0 {
			if existing, _ := c.entries.Get(key.String()); existing != nil {
				stored = existing.Answer.Copy()
			}
		}

		stored.AddItem(item)

		ttl := c.entryTTL(dns.RcodeSuccess, stored, false)
		if ttl <= 0 {
			continue
		}

		c.entries.Put(key.String(), &CacheEntry{
			Key:    key,
			Rcode:  dns.RcodeSuccess,
			Answer: stored,
		}, ttl)
	}

	evt.Bus().Publish(evt.CachingResultCacheChanged, c.entries.TotalCount())
}

// KnownAnswers returns the cached records for a shared question, for the
// known-answer section of an outgoing mDNS query. Records past half of
// their original lifetime are omitted, the receiver would refresh them
// anyway.
func (c *Cache) KnownAnswers(key model.Key) []dns.RR {
	if !c.enabled {
		return nil
	}

	entry, remaining := c.entries.Get(key.String())
	if entry == nil {
		return nil
	}

	var result []dns.RR

	for _, item := range entry.Answer.Items() {
		originalTTL := time.Duration(item.RR.Header().Ttl) * time.Second
		if remaining <= originalTTL/2 {
			continue
		}

		result = append(result, rrWithTTL(item.RR, remaining))
	}

	return result
}

// Prune drops expired entries.
func (c *Cache) Prune() {
	if c.enabled {
		c.entries.Prune()
	}
}

// Flush drops all entries.
func (c *Cache) Flush() {
	if !c.enabled {
		return
	}

	c.entries.Clear()
	c.log.Debug("cache flushed")

	evt.Bus().Publish(evt.CachingResultCacheChanged, 0)
}

// RemoveName drops all entries for an owner name, any class and type.
func (c *Cache) RemoveName(name string) {
	if !c.enabled {
		return
	}

	prefix := dns.CanonicalName(name) + " "

	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}

// TotalCount returns the number of valid entries.
func (c *Cache) TotalCount() int {
	if !c.enabled {
		return 0
	}

	return c.entries.TotalCount()
}

func answerWithRemainingTTL(answer *model.Answer, remaining time.Duration) *model.Answer {
	result := model.NewAnswer()

	for _, item := range answer.Items() {
		result.Add(rrWithTTL(item.RR, remaining), item.Ifindex, item.Flags)
	}

	return result
}

// rrWithTTL copies a record with its TTL capped to the remaining
// lifetime. The stored record stays untouched, it may be shared.
func rrWithTTL(rr dns.RR, remaining time.Duration) dns.RR {
	remainingSeconds := uint32(remaining.Seconds())

	result := dns.Copy(rr)
	if result.Header().Ttl > remainingSeconds {
		result.Header().Ttl = remainingSeconds
	}

	return result
}
