package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devfeed/backend/internal/recommend"
)

var (
	RecommendationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devfeed_recommendation_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"engine"},
	)

	RecommendationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfeed_recommendation_total",
			Help: "Total recommendation requests processed",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfeed_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devfeed_cache_misses_total",
			Help: "Total cache misses",
		},
	)

	EngineSelected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfeed_engine_selected_total",
			Help: "Scoring engine selected per request",
		},
		[]string{"engine"},
	)

	EnsembleDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devfeed_ensemble_degraded_total",
			Help: "Hybrid requests that fell back to a single engine",
		},
	)

	ResultCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devfeed_result_count",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	ContentIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devfeed_content_ingested_total",
			Help: "Total content items ingested",
		},
	)

	FeedbackReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfeed_feedback_total",
			Help: "Total feedback submissions",
		},
		[]string{"helpful"},
	)
)

func Init() {
	prometheus.MustRegister(RecommendationDuration)
	prometheus.MustRegister(RecommendationTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(EngineSelected)
	prometheus.MustRegister(EnsembleDegraded)
	prometheus.MustRegister(ResultCount)
	prometheus.MustRegister(ContentIngested)
	prometheus.MustRegister(FeedbackReceived)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Sink feeds core performance samples into the prometheus registry. It is
// the recommend.MetricsSink wired into the orchestrator's monitor.
type Sink struct{}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) Record(sample recommend.Sample) {
	engine := string(sample.Engine)
	if engine == "" {
		engine = "none"
	}
	RecommendationDuration.WithLabelValues(engine).Observe(sample.Latency.Seconds())

	status := "ok"
	if sample.Err {
		status = "error"
	}
	RecommendationTotal.WithLabelValues(status).Inc()

	if sample.CacheHit {
		CacheHits.WithLabelValues("layer").Inc()
	} else {
		CacheMisses.Inc()
	}
	if sample.Engine != "" {
		EngineSelected.WithLabelValues(engine).Inc()
	}
}
