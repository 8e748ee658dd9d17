package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

// Stage runs a processor on the packages arriving on its inbound channel and forwards them, processed, on its
// outbound channel.
//
// A stage owns two goroutines: a relay draining the inbound channel into the stage queue, and a worker popping the
// queue. When the worker pops the shutdown signal it forwards it downstream and exits.
type Stage struct {
	info      *model.StageInfo
	parent    *model.StageInfo
	processor Processor
	out       chan<- Message
	queue     *Queue
	relay     *Relay
	settings  *settings
	logger    *zap.Logger
	failures  failureLog
	dead      atomic.Bool
	unit
}

// NewStage creates a standalone stage reading in and writing out.
//
// Closing in stops the relay but not the worker, which keeps waiting for queued messages: stop a standalone stage
// by sending Shutdown on in, or with Terminate.
func NewStage(name string, processor Processor, in <-chan Message, out chan<- Message, opts ...Option) *Stage {
	info := &model.StageInfo{Type: model.NormalStageType, Name: name}

	return newStage(info, model.StartStage, processor, in, out, newSettings(opts...))
}

func newStage(info, parent *model.StageInfo, processor Processor, in <-chan Message, out chan<- Message, s *settings) *Stage {
	info.QueueSize = s.queueSize
	queue := NewQueue(s.queueSize)

	return &Stage{
		info:      info,
		parent:    parent,
		processor: processor,
		out:       out,
		queue:     queue,
		relay:     newRelay(info.Name, in, queue, s),
		settings:  s,
		logger:    s.logger.With(zap.String("stage", info.Name)),
	}
}

// Name returns the stage name.
func (s *Stage) Name() string {
	return s.info.Name
}

// Start runs the relay, then the worker.
func (s *Stage) Start() error {
	if s.running() {
		return errors.Wrapf(ErrAlreadyStarted, "stage %s", s.info.Name)
	}
	err := s.relay.Start()
	if err != nil {
		return errors.Wrapf(err, "unable to start relay of stage %s", s.info.Name)
	}
	s.dead.Store(false)
	err = s.start(s.run)
	if err != nil {
		return errors.Wrapf(err, "unable to start stage %s", s.info.Name)
	}

	return nil
}

// Wait blocks until both the relay and the worker have stopped or ctx is done. The worker only stops on the
// shutdown signal or Terminate, so Wait does not return after in is merely closed.
func (s *Stage) Wait(ctx context.Context) error {
	err := s.relay.Wait(ctx)
	if err != nil {
		return err
	}

	return s.wait(ctx)
}

// Terminate stops the relay, waits for it, then stops the worker and waits for it. Packages in the queue are lost.
// A processor call in progress is cancelled through its context and waited for.
func (s *Stage) Terminate() {
	s.relay.terminate()
	s.queue.Close()
	_ = s.relay.wait(context.Background())
	s.terminate()
	_ = s.wait(context.Background())
}

// Alive reports whether the worker is running and processing packages.
func (s *Stage) Alive() bool {
	return s.running() && !s.dead.Load()
}

// Dead reports whether the worker died since the last Start and no restart was allowed.
func (s *Stage) Dead() bool {
	return s.dead.Load()
}

// QueueLen returns the number of messages waiting for the worker.
func (s *Stage) QueueLen() int {
	return s.queue.Len()
}

// Failures returns every failure reported by the stage, oldest first.
func (s *Stage) Failures() []error {
	return s.failures.all()
}

func (s *Stage) run(ctx context.Context) {
	s.logger.Debug("stage started")
	defer s.logger.Debug("stage stopped")

	var bo backoff.BackOff
	if s.settings.restart != nil {
		bo = s.settings.restart()
	}

	for {
		err := s.work(ctx)
		if err == nil {
			return
		}

		s.logger.Error("stage worker failed", zap.Error(err))
		s.report(err)

		wait := backoff.Stop
		if bo != nil {
			wait = bo.NextBackOff()
		}
		if wait == backoff.Stop {
			s.dead.Store(true)
			s.logger.Error("stage is dead, dropping packages until shutdown")
			s.drain(ctx)

			return
		}

		s.logger.Warn("restarting stage worker", zap.Duration("backoff", wait))
		if !sleep(ctx, wait) {
			return
		}
	}
}

// work processes packages until the shutdown signal, a closed queue or a processing failure.
func (s *Stage) work(ctx context.Context) error {
	for {
		startWait := time.Now()
		msg, ok := s.queue.Pop()
		if !ok {
			return nil
		}
		if msg.IsShutdown() {
			s.send(ctx, msg)

			return nil
		}
		waitDuration := time.Since(startWait)

		pkg, ok := msg.Package()
		if !ok {
			return s.stageError("", errors.Wrap(ErrTypeMismatch, "message carries no package"))
		}

		startFn := time.Now()
		err := s.process(ctx, pkg)
		if err != nil {
			return s.stageError(pkg.ID(), err)
		}
		processDuration := time.Since(startFn)

		if !s.send(ctx, msg) {
			return nil
		}
		s.notifyOutput(waitDuration, processDuration)
	}
}

func (s *Stage) process(ctx context.Context, pkg *Package) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("processor panicked: %v", r)
		}
	}()

	return s.processor.Process(ctx, pkg)
}

// drain drops every package until the shutdown signal, which is still forwarded.
func (s *Stage) drain(ctx context.Context) {
	for {
		msg, ok := s.queue.Pop()
		if !ok {
			return
		}
		if msg.IsShutdown() {
			s.send(ctx, msg)

			return
		}
		id := ""
		if pkg, ok := msg.Package(); ok {
			id = pkg.ID()
		}
		s.logger.Warn("dropping package", zap.String("package_id", id))
		s.report(s.stageError(id, ErrStageDead))
	}
}

// send forwards msg downstream. It gives up when the stage is terminated.
func (s *Stage) send(ctx context.Context, msg Message) bool {
	select {
	case <-ctx.Done():
		return false
	case s.out <- msg:
		return true
	}
}

func (s *Stage) stageError(packageID string, err error) *StageError {
	return &StageError{
		Stage:     s.info.Name,
		Index:     s.info.Index,
		PackageID: packageID,
		Err:       err,
	}
}

func (s *Stage) report(err error) {
	s.failures.add(err)
	if s.settings.onFailure != nil {
		s.settings.onFailure(err)
	}
	for _, obs := range s.settings.observers {
		obsErr := obs.OnStageFailure(s.info, err)
		if obsErr != nil {
			s.logger.Warn("observer failed on stage failure", zap.Error(obsErr))
		}
	}
}

func (s *Stage) notifyOutput(waitDuration, processDuration time.Duration) {
	for _, obs := range s.settings.observers {
		err := obs.OnStageOutput(s.parent, s.info, waitDuration, processDuration)
		if err != nil {
			s.logger.Warn("observer failed on stage output", zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
