package evt

import (
	"github.com/asaskevich/EventBus"
)

const (
	// ApplicationStarted fires on start of the application. Parameter: version number, build time
	ApplicationStarted = "application:started"

	// ResolutionFinished fires if a query transaction reaches a final state. Parameter: protocol, state
	ResolutionFinished = "resolution:finished"

	// ResolutionDnssecResult fires if DNSSEC validation of a response concludes. Parameter: domain name, result
	ResolutionDnssecResult = "resolution:dnssecResult"

	// CachingResultCacheHit fires, if a query result was found in the cache, Parameter: domain name
	CachingResultCacheHit = "caching:cacheHit"

	// CachingResultCacheMiss fires, if a query result was not found in the cache, Parameter: domain name
	CachingResultCacheMiss = "caching:cacheMiss"

	// CachingResultCacheChanged fires if a result cache was changed, Parameter: new cache size
	CachingResultCacheChanged = "caching:resultCacheChanged"

	// ServerFeatureLevelChanged fires if the feature level of an upstream server was changed. Parameter: server
	// address, new level
	ServerFeatureLevelChanged = "server:featureLevelChanged"

	// ZoneConflictDetected fires if a probe for an own hostname detected a conflicting claim. Parameter: domain name
	ZoneConflictDetected = "zone:conflict"
)

// nolint
var evtBus = EventBus.New()

func Bus() EventBus.Bus {
	return evtBus
}
