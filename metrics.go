package saunasite

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// appMetrics holds the per-app Prometheus registry and domain counters.
type appMetrics struct {
	registry  *prometheus.Registry
	sitemaps  *prometheus.CounterVec
	suggests  *prometheus.CounterVec
	healthGap prometheus.Gauge
}

func newAppMetrics() *appMetrics {
	reg := prometheus.NewRegistry()
	m := &appMetrics{
		registry: reg,
		sitemaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saunasite",
			Name:      "sitemap_requests_total",
			Help:      "Sitemap documents served, by document and outcome.",
		}, []string{"document", "outcome"}),
		suggests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saunasite",
			Name:      "link_suggestions_total",
			Help:      "Internal link suggestion requests, by outcome.",
		}, []string{"outcome"}),
		healthGap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "saunasite",
			Name:      "content_health_issues",
			Help:      "Total issues in the most recent content health report.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sitemaps,
		m.suggests,
		m.healthGap,
	)
	return m
}

func (m *appMetrics) sitemapServed(document string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sitemaps.WithLabelValues(document, outcome).Inc()
}

func (a *App) metricsHandler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: a.metrics.registry,
	})
}
