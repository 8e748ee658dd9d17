package measure

import "time"

// Measure collects the metrics of every stage of a pipeline.
type Measure interface {
	AddMetric(name string, queueSize int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric collects the durations and failures of one stage.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddTransportDuration(inputStageName string, elapsed time.Duration)
	AddFailure()
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]*TransportInfo
	Total() int64
	Failures() int64
	QueueSize() int
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
}
