package stats

import (
	"github.com/0xERR0R/resolvd/evt"
	"github.com/hashicorp/go-multierror"
)

const topNamesMax = 20

// Collector feeds the engine's events into hourly aggregators. It is
// created once on startup; the aggregators are safe for concurrent use.
type Collector struct {
	states    *Aggregator
	protocols *Aggregator
	dnssec    *Aggregator
	cache     *Aggregator
	names     *Aggregator
	conflicts *Aggregator
}

// NewCollector subscribes to the event bus and returns the collector.
func NewCollector() (*Collector, error) {
	c := &Collector{
		states:    NewAggregator("Resolution outcomes"),
		protocols: NewAggregator("Resolutions per protocol"),
		dnssec:    NewAggregator("DNSSEC verdicts"),
		cache:     NewAggregator("Cache usage"),
		names:     NewAggregatorWithMax("Top queried names", topNamesMax),
		conflicts: NewAggregator("Zone conflicts"),
	}

	bus := evt.Bus()

	err := multierror.Append(
		bus.Subscribe(evt.ResolutionFinished, func(protocol, state string) {
			c.protocols.Put(protocol)
			c.states.Put(state)
		}),
		bus.Subscribe(evt.ResolutionDnssecResult, func(_, result string) {
			c.dnssec.Put(result)
		}),
		bus.Subscribe(evt.CachingResultCacheHit, func(name string) {
			c.cache.Put("hit")
			c.names.Put(name)
		}),
		bus.Subscribe(evt.CachingResultCacheMiss, func(name string) {
			c.cache.Put("miss")
			c.names.Put(name)
		}),
		bus.Subscribe(evt.ZoneConflictDetected, func(name string) {
			c.conflicts.Put(name)
		}),
	)

	return c, err.ErrorOrNil()
}

func (c *Collector) aggregators() []*Aggregator {
	return []*Aggregator{c.states, c.protocols, c.dnssec, c.cache, c.names, c.conflicts}
}

// AggregateResults returns the aggregation of the completed hours of the
// last day, keyed by aggregator name.
func (c *Collector) AggregateResults() map[string]map[string]int {
	result := make(map[string]map[string]int)

	for _, a := range c.aggregators() {
		result[a.Name] = a.AggregateResult()
	}

	return result
}
