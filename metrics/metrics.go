package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var GenerationCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "ctfhost_generations_total",
		Help: "Number of task instances generated",
	},
)

var GenerationErrorCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "ctfhost_generation_errors_total",
		Help: "Number of failed task instance generations",
	},
)

var GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ctfhost_generation_duration_seconds",
	Help: "Duration of task instance generation",
	Buckets: []float64{
		0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30,
	},
})

var SubmissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ctfhost_submissions_total",
	Help: "The total number of flag submissions by outcome",
}, []string{"outcome"})

var HintPurchaseCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ctfhost_hint_purchases_total",
	Help: "The total number of hint purchases",
})

var ScoreboardConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ctfhost_scoreboard_ws_connections",
	Help: "Currently open scoreboard websocket connections",
})
