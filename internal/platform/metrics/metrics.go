package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SightingsCreatedTotal cuenta sightings creados por estado final de Create.
	SightingsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawhub",
		Subsystem: "sightings",
		Name:      "created_total",
		Help:      "Sightings created, labeled by the state they were left in.",
	}, []string{"state"})

	// DegradedStepsTotal cuenta llamadas al servicio de modelos que fallaron.
	DegradedStepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawhub",
		Subsystem: "analysis",
		Name:      "degraded_steps_total",
		Help:      "Classifier sub-calls that failed or timed out, labeled by step.",
	}, []string{"step"})

	// AnalysisDurationSeconds mide classify+embed (en paralelo) end-to-end.
	AnalysisDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pawhub",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time spent waiting on the concurrent classify and embed calls.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 45},
	})

	// RankingWarningsTotal cuenta rankings degradados (GeoIndex/EmbeddingStore caídos).
	RankingWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawhub",
		Subsystem: "matching",
		Name:      "warnings_total",
		Help:      "Rankings that degraded to an empty candidate list, labeled by warning.",
	}, []string{"warning"})

	// ResolutionsTotal cuenta intentos de resolve por acción y resultado.
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawhub",
		Subsystem: "sightings",
		Name:      "resolutions_total",
		Help:      "Sighting resolutions, labeled by action and outcome.",
	}, []string{"action", "outcome"})
)

// Register registra los collectors en el registry por defecto (idempotente).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SightingsCreatedTotal,
			DegradedStepsTotal,
			AnalysisDurationSeconds,
			RankingWarningsTotal,
			ResolutionsTotal,
		)
	})
}
