// Package metrics holds the controller's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glucoctl"

// #region collectors
var (
	// decodedTotal counts models built. Labels: kind, status (ok, error)
	decodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "decoded_total",
		Help:      "Models decoded from genomes",
	}, []string{"kind", "status"})

	// slotsTotal counts decoded slots by outcome. Labels: kind, outcome (produced, noop, failed)
	slotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "slots_total",
		Help:      "Genome slots decoded, by outcome",
	}, []string{"kind", "outcome"})

	// prunedTotal counts pruner rewrites. Labels: rewrite
	prunedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prune",
		Name:      "rewrites_total",
		Help:      "Rule rewrites performed by the pruner",
	}, []string{"rewrite"})

	// stepDuration measures one model evaluation. Labels: kind
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "step_duration_seconds",
		Help:      "Model step latency in seconds",
		Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
	}, []string{"kind"})

	// gateTotal counts gate decisions. Labels: action (pass, limit, suspend)
	gateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Safety gate decisions by action",
	}, []string{"action"})

	// vetoTotal counts individual vetoes. Labels: type
	vetoTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "vetoes_total",
		Help:      "Safety gate vetoes by type",
	}, []string{"type"})

	// evalTotal counts candidate evaluations. Labels: result (pass, fail)
	evalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eval",
		Name:      "runs_total",
		Help:      "Candidate model evaluations by result",
	}, []string{"result"})
)

// #endregion collectors

// #region record
// RecordDecode records a finished model construction.
func RecordDecode(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	decodedTotal.WithLabelValues(kind, status).Inc()
}

// RecordSlots records slot outcomes for one decode.
func RecordSlots(kind string, produced, noops, failed int) {
	slotsTotal.WithLabelValues(kind, "produced").Add(float64(produced))
	slotsTotal.WithLabelValues(kind, "noop").Add(float64(noops))
	slotsTotal.WithLabelValues(kind, "failed").Add(float64(failed))
}

// RecordPrune adds n rewrites of the named kind.
func RecordPrune(rewrite string, n int) {
	if n > 0 {
		prunedTotal.WithLabelValues(rewrite).Add(float64(n))
	}
}

// ObserveStep records the latency of one step.
func ObserveStep(kind string, seconds float64) {
	stepDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordGate records a gate decision and its vetoes.
func RecordGate(action string, vetoes []string) {
	gateTotal.WithLabelValues(action).Inc()
	for _, v := range vetoes {
		vetoTotal.WithLabelValues(v).Inc()
	}
}

// RecordEval records one candidate evaluation.
func RecordEval(passed bool) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	evalTotal.WithLabelValues(result).Inc()
}

// #endregion record
