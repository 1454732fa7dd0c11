// Package metrics exposes the engine's event stream as prometheus
// metrics on the REST router.
package metrics

import (
	"github.com/0xERR0R/resolvd/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals
var reg = prometheus.NewRegistry()

// RegisterMetric registers prometheus collector
func RegisterMetric(c prometheus.Collector) {
	_ = reg.Register(c)
}

// Start registers the process collectors and the event listeners and
// mounts the scrape handler on the router.
func Start(router chi.Router, cfg config.MetricsConfig) {
	if !cfg.IsEnabled() {
		return
	}

	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = reg.Register(collectors.NewGoCollector())

	RegisterEventListeners()

	router.Handle(cfg.Path,
		promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
