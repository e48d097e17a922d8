// Package telemetry records scoring and training metrics with Prometheus.
package telemetry

import (
	"fmt"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ contract.ScoreObserver = &Recorder{} // Compile-time check

// Recorder implements contract.ScoreObserver using Prometheus.
// Each recorder owns its registry so a process can write it out as a textfile.
type Recorder struct {
	registry      *prometheus.Registry
	scoresTotal   *prometheus.CounterVec
	scores        prometheus.Histogram
	confidence    prometheus.Histogram
	componentMean *prometheus.SummaryVec
	trainingRuns  *prometheus.CounterVec
	modelAUC      *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder with a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		scoresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "propensity",
				Name:      "scores_total",
				Help:      "Total number of property scores produced",
			},
			[]string{"label", "model"},
		),
		scores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "propensity",
				Name:      "score",
				Help:      "Distribution of final seller propensity scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 9),
			},
		),
		confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "propensity",
				Name:      "score_confidence",
				Help:      "Distribution of score confidence",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
			},
		),
		componentMean: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace: "propensity",
				Name:      "component_score",
				Help:      "Heuristic component scores",
			},
			[]string{"component"},
		),
		trainingRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "propensity",
				Name:      "training_runs_total",
				Help:      "Total number of completed model training runs",
			},
			[]string{"algorithm"},
		),
		modelAUC: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "propensity",
				Name:      "model_auc",
				Help:      "Validation AUC of the most recently trained model",
			},
			[]string{"algorithm"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "propensity",
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "propensity",
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// ObserveScore records one property score.
func (r *Recorder) ObserveScore(score schema.SellerPropensityScore) {
	model := "none"
	if score.Model != nil {
		model = string(score.Model.Algorithm)
	}
	r.scoresTotal.WithLabelValues(contract.GetPlainLabel(score.Score), model).Inc()
	r.scores.Observe(score.Score)
	r.confidence.Observe(score.Confidence)
	for key, c := range score.Components {
		r.componentMean.WithLabelValues(string(key)).Observe(c.Score)
	}
}

// RecordTraining records a completed training run.
func (r *Recorder) RecordTraining(model *schema.SellerModelWeights) {
	if model == nil {
		return
	}
	r.trainingRuns.WithLabelValues(string(model.Algorithm)).Inc()
	r.modelAUC.WithLabelValues(string(model.Algorithm)).Set(model.Metrics.AUC)
}

// RecordLatency records how long an operation took.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Registry returns the registry backing this recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	contract.LogDebug("wrote metrics textfile", "path", path)
	return nil
}
