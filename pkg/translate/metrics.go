package translate

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Model cache metrics
	modelCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dl_model_cache_hits_total",
			Help: "Total number of model cache hits",
		},
	)

	modelCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dl_model_cache_misses_total",
			Help: "Total number of model cache misses",
		},
	)

	modelsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dl_models_loaded",
			Help: "Number of translation models currently held in the cache",
		},
	)

	// Model load metrics
	modelLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dl_model_loads_total",
			Help: "Total number of model load attempts",
		},
		[]string{"status"},
	)

	modelLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dl_model_load_duration_seconds",
			Help:    "Duration of model loads in seconds",
			Buckets: []float64{0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0, 300.0, 600.0},
		},
	)

	// Translation request metrics
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dl_translation_requests_total",
			Help: "Total number of translation requests",
		},
		[]string{"status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dl_translation_request_duration_seconds",
			Help:    "Duration of translation requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"status"},
	)

	translationRequestSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dl_translation_request_size_bytes",
			Help:    "Size of translation request text in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)

	translationResponseSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dl_translation_response_size_bytes",
			Help:    "Size of translation response text in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)
)

func recordCacheHit()  { modelCacheHitsTotal.Inc() }
func recordCacheMiss() { modelCacheMissesTotal.Inc() }

func setModelsLoaded(n int) { modelsLoaded.Set(float64(n)) }

// recordModelLoad records one load attempt. Unavailable models are
// labelled separately from transport or runtime failures.
func recordModelLoad(duration time.Duration, err error) {
	status := "success"
	var unavailable *ModelUnavailableError
	switch {
	case err == nil:
	case errors.As(err, &unavailable):
		status = "unavailable"
	default:
		status = "error"
	}
	modelLoadsTotal.WithLabelValues(status).Inc()
	modelLoadDuration.Observe(duration.Seconds())
}

// RecordTranslationRequest records metrics for one translation request.
func RecordTranslationRequest(duration time.Duration, success bool, requestSize, responseSize int) {
	status := "success"
	if !success {
		status = "error"
	}
	translationRequestsTotal.WithLabelValues(status).Inc()
	translationRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
	translationRequestSize.Observe(float64(requestSize))
	translationResponseSize.Observe(float64(responseSize))
}
