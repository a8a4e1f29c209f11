package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry         *prom.Registry
	syncResults      *prom.CounterVec
	publishOutcomes  *prom.CounterVec
	pushAttempts     *prom.CounterVec
	retriesExhausted *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.syncResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "subsync",
		Name:      "sync_results_total",
		Help:      "Subtree synchronization results by outcome",
	}, []string{"prefix", "result"})
	pr.publishOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "subsync",
		Name:      "publish_outcomes_total",
		Help:      "Publish outcomes by final status",
	}, []string{"prefix", "outcome"})
	pr.pushAttempts = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "subsync",
		Name:      "push_attempts_total",
		Help:      "Individual push attempts including retries",
	}, []string{"prefix"})
	pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "subsync",
		Name:      "push_retries_exhausted_total",
		Help:      "Publish operations that ran out of push attempts",
	}, []string{"prefix"})
	reg.MustRegister(pr.syncResults, pr.publishOutcomes, pr.pushAttempts, pr.retriesExhausted)
	return pr
}

func (pr *PrometheusRecorder) IncSyncResult(prefix string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	pr.syncResults.WithLabelValues(prefix, result).Inc()
}

func (pr *PrometheusRecorder) IncPublishOutcome(prefix string, outcome Outcome) {
	pr.publishOutcomes.WithLabelValues(prefix, string(outcome)).Inc()
}

func (pr *PrometheusRecorder) IncPushAttempt(prefix string) {
	pr.pushAttempts.WithLabelValues(prefix).Inc()
}

func (pr *PrometheusRecorder) IncRetriesExhausted(prefix string) {
	pr.retriesExhausted.WithLabelValues(prefix).Inc()
}

// Handler exposes the registry for the watch command's /metrics endpoint.
func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.registry, promhttp.HandlerOpts{})
}
