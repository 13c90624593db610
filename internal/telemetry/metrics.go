package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeUnconverged = "unconverged"
)

var (
	evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_evaluations_total",
			Help: "Total evaluations by product type and outcome",
		},
		[]string{"product_type", "outcome"},
	)
	evalDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "configurator_evaluation_duration_seconds",
			Help:    "Evaluation duration in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"product_type"},
	)
	rulePasses = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "configurator_rule_passes",
		Help:    "Rule engine passes per evaluation (final run)",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
	nonConvergence = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "configurator_rule_nonconvergence_total",
		Help: "Evaluations whose rules hit the pass limit",
	})

	SnapshotOptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "configurator_snapshot_options",
		Help: "Number of options in the current catalog snapshot",
	})
)

// Init registers the collectors with reg, or with the default registerer when
// reg is nil. Registering twice with the same registerer panics.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(evaluations, evalDur, rulePasses, nonConvergence, SnapshotOptions)
}

// ObserveEvaluation records one finished evaluation.
func ObserveEvaluation(productType, outcome string, seconds float64, passes int) {
	evaluations.WithLabelValues(productType, outcome).Inc()
	if outcome == OutcomeNotFound {
		return
	}
	evalDur.WithLabelValues(productType).Observe(seconds)
	rulePasses.Observe(float64(passes))
	if outcome == OutcomeUnconverged {
		nonConvergence.Inc()
	}
}
