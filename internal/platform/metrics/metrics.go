// Package metrics exposes the Prometheus registry over HTTP.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is where the scrape endpoint is mounted.
const Path = "/metrics"

// BuildInfo reports the running version as a constant gauge.
func BuildInfo(reg prometheus.Registerer, version string) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "roster_build_info",
		Help:        "Build information of the running binary",
		ConstLabels: prometheus.Labels{"version": version},
	}, func() float64 { return 1 }))
}

// Register mounts the scrape endpoint for gatherer.
func Register(r chi.Router, gatherer prometheus.Gatherer) {
	r.Method(http.MethodGet, Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
