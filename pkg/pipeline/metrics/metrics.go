// Package metrics exports the activity of a pipeline as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

const namespace = "dframe"

var durationBuckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Collector holds the pipeline metrics. It implements model.PipelineOption.
type Collector struct {
	Processed       *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	ProcessDuration *prometheus.HistogramVec
	QueueWait       *prometheus.HistogramVec
	Stages          prometheus.Gauge
}

// New registers the pipeline metrics on reg. Metrics are labelled by stage name, and by pipeline name when
// pipeline is not empty.
func New(reg prometheus.Registerer, pipeline string) *Collector {
	factory := promauto.With(reg)

	var constLabels prometheus.Labels
	if pipeline != "" {
		constLabels = prometheus.Labels{"pipeline": pipeline}
	}

	return &Collector{
		Processed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "processed_total",
				Help:        "Total number of packages processed by a stage",
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "failures_total",
				Help:        "Total number of failures reported by a stage, dropped packages included",
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),
		ProcessDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "process_duration_seconds",
				Help:        "Time spent by a stage processor on a package",
				Buckets:     durationBuckets,
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),
		QueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "queue_wait_seconds",
				Help:        "Time a stage worker waited for its next package",
				Buckets:     durationBuckets,
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),
		Stages: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "stages",
				Help:        "Number of stages in the pipeline",
				ConstLabels: constLabels,
			},
		),
	}
}

func (c *Collector) New() error {
	c.Stages.Set(0)

	return nil
}

func (c *Collector) PrepareStage(_, stage *model.StageInfo) error {
	if stage.Type == model.ResultsStageType {
		return nil
	}
	c.Stages.Inc()
	// initialise the series so that a stage that never processes anything is still exported
	c.Processed.WithLabelValues(stage.Name)
	c.Failures.WithLabelValues(stage.Name)

	return nil
}

func (c *Collector) OnStageOutput(_, stage *model.StageInfo, wait, process time.Duration) error {
	c.Processed.WithLabelValues(stage.Name).Inc()
	c.ProcessDuration.WithLabelValues(stage.Name).Observe(process.Seconds())
	c.QueueWait.WithLabelValues(stage.Name).Observe(wait.Seconds())

	return nil
}

func (c *Collector) OnStageFailure(stage *model.StageInfo, _ error) error {
	c.Failures.WithLabelValues(stage.Name).Inc()

	return nil
}

func (c *Collector) Finish() error {
	return nil
}

var _ model.PipelineOption = (*Collector)(nil)
