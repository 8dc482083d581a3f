package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lcgani/agent-nexus/catalog"
	"github.com/lcgani/agent-nexus/model"
)

type PrometheusMetrics struct {
	discoveries       *prometheus.CounterVec
	discoveryDuration *prometheus.HistogramVec
	searches          *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResults     prometheus.Histogram
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		discoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentnexus_discoveries_total",
				Help: "Total number of discoveries by tier and resulting status",
			},
			[]string{"tier", "status"},
		),
		discoveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentnexus_discovery_duration_seconds",
				Help:    "Duration of API discoveries in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tier"},
		),
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentnexus_searches_total",
				Help: "Total number of catalog searches",
			},
			[]string{"mode"},
		),
		searchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentnexus_search_duration_seconds",
				Help:    "Duration of catalog searches in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"mode"},
		),
		searchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentnexus_search_results",
				Help:    "Number of results returned per search",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveDiscovery(tier string, status model.Status, elapsed time.Duration) {
	p.discoveries.WithLabelValues(tier, string(status)).Inc()
	p.discoveryDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func (p *PrometheusMetrics) ObserveSearch(mode string, results int, elapsed time.Duration) {
	p.searches.WithLabelValues(mode).Inc()
	p.searchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	p.searchResults.Observe(float64(results))
}

var _ catalog.Metrics = (*PrometheusMetrics)(nil)
