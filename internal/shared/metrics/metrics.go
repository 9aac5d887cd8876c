package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	analysisStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started",
	}, []string{"mode"})
	analysisCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed",
	}, []string{"mode"})
	analysisFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed",
	}, []string{"mode", "reason"})
	gateDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_denied_total",
		Help: "Analysis submissions blocked by validation",
	}, []string{"code"})

	analysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	}, []string{"mode"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		analysisStartedTotal,
		analysisCompletedTotal,
		analysisFailedTotal,
		gateDeniedTotal,
		analysisDuration,
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted(mode string) {
	analysisStartedTotal.WithLabelValues(mode).Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted(mode string) {
	analysisCompletedTotal.WithLabelValues(mode).Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed(mode, reason string) {
	analysisFailedTotal.WithLabelValues(mode, reason).Inc()
}

// IncGateDenied counts a submission rejected by the validation gate.
func IncGateDenied(code string) {
	gateDeniedTotal.WithLabelValues(code).Inc()
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(mode string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	analysisDuration.WithLabelValues(mode).Observe(ms)
}

// Registry exposes the registry backing Handler.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
