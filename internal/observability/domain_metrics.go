package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	askQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_questions_total",
			Help: "Total number of questions asked, by terminal status.",
		},
		[]string{"status"},
	)
	askAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckask_attempts_total",
			Help: "Total number of generate/validate/execute attempts.",
		},
	)
	askRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_rejections_total",
			Help: "Total number of rejected candidate queries, by reason kind.",
		},
		[]string{"kind"},
	)
	generationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckask_generation_seconds",
			Help:    "Latency of language-model generation calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	executionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckask_execution_seconds",
			Help:    "Latency of database query execution.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(
		askQuestionsTotal,
		askAttemptsTotal,
		askRejectionsTotal,
		generationSeconds,
		executionSeconds,
	)
}

func RecordQuestion(status string) {
	askQuestionsTotal.WithLabelValues(status).Inc()
}

func RecordAttempt() {
	askAttemptsTotal.Inc()
}

func RecordRejection(kind string) {
	askRejectionsTotal.WithLabelValues(kind).Inc()
}

func ObserveGeneration(duration time.Duration) {
	generationSeconds.Observe(duration.Seconds())
}

func ObserveExecution(duration time.Duration) {
	executionSeconds.Observe(duration.Seconds())
}
