package metrics

import (
	"fmt"

	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/resolve"
	"github.com/0xERR0R/resolvd/util"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterEventListeners registers all metric handlers by the event bus
func RegisterEventListeners() {
	registerApplicationEventListeners()
	registerResolutionEventListeners()
	registerCachingEventListeners()
	registerServerEventListeners()
	registerZoneEventListeners()
}

func registerApplicationEventListeners() {
	v := versionNumberGauge()
	RegisterMetric(v)

	subscribe(evt.ApplicationStarted, func(version, buildTime string) {
		v.WithLabelValues(version, buildTime).Set(1)
	})
}

func versionNumberGauge() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resolvd_build_info",
			Help: "Version number and build info",
		}, []string{"version", "build_time"},
	)
}

func registerResolutionEventListeners() {
	resolutionCnt := resolutionCounter()
	dnssecCnt := dnssecResultCounter()

	RegisterMetric(resolutionCnt)
	RegisterMetric(dnssecCnt)

	subscribe(evt.ResolutionFinished, func(protocol, state string) {
		resolutionCnt.WithLabelValues(protocol, state).Inc()
	})

	subscribe(evt.ResolutionDnssecResult, func(_, result string) {
		dnssecCnt.WithLabelValues(result).Inc()
	})
}

func resolutionCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolvd_resolution_total",
			Help: "Number of finished transactions per protocol and terminal state",
		}, []string{"protocol", "state"},
	)
}

func dnssecResultCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolvd_dnssec_result_total",
			Help: "Number of DNSSEC validations per result",
		}, []string{"result"},
	)
}

func registerCachingEventListeners() {
	entryCount := cacheEntryCount()
	hitCount := cacheHitCount()
	missCount := cacheMissCount()

	RegisterMetric(entryCount)
	RegisterMetric(hitCount)
	RegisterMetric(missCount)

	subscribe(evt.CachingResultCacheMiss, func(_ string) {
		missCount.Inc()
	})

	subscribe(evt.CachingResultCacheHit, func(_ string) {
		hitCount.Inc()
	})

	subscribe(evt.CachingResultCacheChanged, func(cnt int) {
		entryCount.Set(float64(cnt))
	})
}

func cacheHitCount() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_cache_hit_count",
			Help: "Cache hit counter",
		},
	)
}

func cacheMissCount() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_cache_miss_count",
			Help: "Cache miss counter",
		},
	)
}

func cacheEntryCount() prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolvd_cache_entry_count",
			Help: "Number of entries in the answer cache",
		},
	)
}

func registerServerEventListeners() {
	levelGauge := serverFeatureLevelGauge()
	RegisterMetric(levelGauge)

	subscribe(evt.ServerFeatureLevelChanged, func(server string, level resolve.FeatureLevel) {
		levelGauge.WithLabelValues(server).Set(float64(level))
	})
}

func serverFeatureLevelGauge() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resolvd_server_feature_level",
			Help: "Detected feature level per upstream server",
		}, []string{"server"},
	)
}

func registerZoneEventListeners() {
	conflictCnt := zoneConflictCount()
	RegisterMetric(conflictCnt)

	subscribe(evt.ZoneConflictDetected, func(_ string) {
		conflictCnt.Inc()
	})
}

func zoneConflictCount() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolvd_zone_conflict_count",
			Help: "Number of detected local name conflicts",
		},
	)
}

func subscribe(topic string, fn interface{}) {
	util.FatalOnError(fmt.Sprintf("can't subscribe topic '%s'", topic), evt.Bus().Subscribe(topic, fn))
}
