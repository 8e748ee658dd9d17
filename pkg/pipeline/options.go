package pipeline

import (
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

type settings struct {
	logger    *zap.Logger
	restart   func() backoff.BackOff
	onFailure func(error)
	observers []model.PipelineOption
	queueSize int
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option configures a pipeline, a stage or a relay.
type Option func(s *settings)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueueSize bounds every stage queue. A relay pushing into a full queue blocks until the worker pops.
// 0, the default, means unbounded.
func WithQueueSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRestart lets a stage worker restart after a processing failure. newBackOff is called once per stage run; the
// worker waits NextBackOff before restarting and gives up when it returns backoff.Stop.
func WithRestart(newBackOff func() backoff.BackOff) Option {
	return func(s *settings) {
		s.restart = newBackOff
	}
}

// WithFailureHandler is called from the stage goroutine for every processing failure and every dropped package.
func WithFailureHandler(fn func(err error)) Option {
	return func(s *settings) {
		s.onFailure = fn
	}
}

// WithObservers attaches hooks notified of the pipeline construction, of every processed package and of failures.
func WithObservers(observers ...model.PipelineOption) Option {
	return func(s *settings) {
		s.observers = append(s.observers, observers...)
	}
}
