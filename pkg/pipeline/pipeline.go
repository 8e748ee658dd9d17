package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

// Pipeline is a chain of stages, from a public inbound channel to a store of finished packages.
type Pipeline struct {
	mu            sync.RWMutex
	input         chan Message
	terminatedC   chan struct{}
	terminateOnce sync.Once
	stages        []*Stage
	results       *resultStore
	resultsRelay  *Relay
	topology      *topology
	settings      *settings
	logger        *zap.Logger
	started       bool
	terminated    bool
	// unfinished is set by Start and cleared by the first finish of the run.
	unfinished bool
}

// New builds a pipeline running the given stages in order. Every constructor is called once, here.
// The pipeline must be started before it accepts packages.
func New(stages []StageConfig, opts ...Option) (*Pipeline, error) {
	s := newSettings(opts...)

	for _, obs := range s.observers {
		err := obs.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	topo, err := newTopology()
	if err != nil {
		return nil, err
	}

	// pipes[i] feeds stage i, pipes[len(stages)] feeds the results relay.
	pipes := make([]chan Message, len(stages)+1)
	for i := range pipes {
		pipes[i] = make(chan Message)
	}

	pipe := &Pipeline{
		input:       pipes[0],
		terminatedC: make(chan struct{}),
		results:     newResultStore(),
		topology:    topo,
		settings:    s,
		logger:      s.logger,
	}

	parent := model.StartStage
	for i, cfg := range stages {
		info, processor, err := pipe.prepareStage(i, cfg, parent)
		if err != nil {
			return nil, err
		}
		pipe.stages = append(pipe.stages, newStage(info, parent, processor, pipes[i], pipes[i+1], s))
		parent = info
	}

	err = pipe.prepareEnd(parent)
	if err != nil {
		return nil, err
	}
	pipe.resultsRelay = newRelay("results", pipes[len(stages)], pipe.results, s)

	return pipe, nil
}

func (p *Pipeline) prepareStage(idx int, cfg StageConfig, parent *model.StageInfo) (*model.StageInfo, Processor, error) {
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("stage-%d", idx)
	}
	if name == model.StartStage.Name || name == model.EndStage.Name {
		return nil, nil, errors.Wrapf(ErrReservedStageName, "%q", name)
	}
	if cfg.Constructor == nil {
		return nil, nil, errors.Wrapf(ErrConstructorMustBeSet, "stage %s", name)
	}

	processor, err := cfg.Constructor(cfg.Params)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to construct the processor of stage %s", name)
	}
	if processor == nil {
		return nil, nil, errors.Wrapf(ErrConstructorMustBeSet, "constructor of stage %s returned no processor", name)
	}

	info := &model.StageInfo{
		Type:      model.NormalStageType,
		Name:      name,
		Processor: cfg.Processor,
		Index:     idx,
		QueueSize: p.settings.queueSize,
	}

	err = p.topology.addStage(name)
	if err != nil {
		return nil, nil, err
	}
	err = p.topology.addLink(parent.Name, name)
	if err != nil {
		return nil, nil, err
	}

	for _, obs := range p.settings.observers {
		err := obs.PrepareStage(parent, info)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to run prepare stage function")
		}
	}

	return info, processor, nil
}

func (p *Pipeline) prepareEnd(parent *model.StageInfo) error {
	err := p.topology.addStage(model.EndStage.Name)
	if err != nil {
		return err
	}
	err = p.topology.addLink(parent.Name, model.EndStage.Name)
	if err != nil {
		return err
	}

	for _, obs := range p.settings.observers {
		err := obs.PrepareStage(parent, model.EndStage)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare stage function")
		}
	}

	return nil
}

// Start starts every stage, in order, then the results relay. If a previous Stop is still draining the pipeline,
// Start first waits for it, giving up when ctx is done.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return errors.Wrap(ErrTerminated, "unable to start pipeline")
	}
	if p.started {
		return errors.Wrap(ErrAlreadyStarted, "unable to start pipeline")
	}

	for _, st := range p.stages {
		err := st.Wait(ctx)
		if err != nil {
			return errors.Wrapf(err, "stage %s is still stopping", st.Name())
		}
	}
	err := p.resultsRelay.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "results relay is still stopping")
	}

	for _, st := range p.stages {
		err := st.Start()
		if err != nil {
			return err
		}
	}
	err = p.resultsRelay.Start()
	if err != nil {
		return errors.Wrap(err, "unable to start results relay")
	}

	p.started = true
	p.unfinished = true
	p.logger.Info("pipeline started", zap.Int("stages", len(p.stages)))

	return nil
}

// ProcessPackage submits pkg to the first stage. It does not wait for the package to be processed: the finished
// package is taken with Result. The caller must not use pkg until then.
func (p *Pipeline) ProcessPackage(ctx context.Context, pkg *Package) error {
	if pkg == nil {
		return errors.Wrap(ErrTypeMismatch, "expected a package, got nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return errors.Wrapf(ErrNotReady, "unable to process package %s, call Start first", pkg.ID())
	}

	return errors.Wrapf(p.send(ctx, Deliver(pkg)), "unable to submit package %s", pkg.ID())
}

func (p *Pipeline) send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.terminatedC:
		return ErrTerminated
	case p.input <- msg:
		return nil
	}
}

// Result takes the finished package identified by id out of the pipeline. ok is false when the package is unknown,
// not finished yet, or already taken.
func (p *Pipeline) Result(id string) (*Package, bool) {
	return p.results.take(id)
}

// Pending returns the number of finished packages not taken yet.
func (p *Pipeline) Pending() int {
	return p.results.len()
}

// Stop sends the shutdown signal through the pipeline. Every package submitted before Stop goes through the whole
// chain first. If block is true, Stop waits, bounded by ctx, until the signal reaches the results store, then runs
// the observers Finish. The pipeline can be started again afterwards.
func (p *Pipeline) Stop(ctx context.Context, block bool) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()

		return errors.Wrap(ErrNotReady, "unable to stop pipeline")
	}
	err := p.send(ctx, Shutdown())
	if err != nil {
		p.mu.Unlock()

		return errors.Wrap(err, "unable to send the shutdown signal")
	}
	p.started = false
	p.mu.Unlock()

	if !block {
		return nil
	}

	err = p.resultsRelay.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to wait for the pipeline to stop")
	}
	p.logger.Info("pipeline stopped")

	return p.finish()
}

// Terminate stops every stage, in order, then the results relay, without draining them. Packages in flight are
// lost and the pipeline cannot be started again. The observers Finish runs unless a blocking Stop already ran it.
func (p *Pipeline) Terminate() {
	p.terminateOnce.Do(func() {
		close(p.terminatedC)

		for _, st := range p.stages {
			st.Terminate()
		}
		p.resultsRelay.Terminate()

		p.mu.Lock()
		p.started = false
		p.terminated = true
		p.mu.Unlock()

		p.logger.Warn("pipeline terminated")

		err := p.finish()
		if err != nil {
			p.logger.Warn("unable to finish pipeline", zap.Error(err))
		}
	})
}

// finish runs the observers Finish once per run.
func (p *Pipeline) finish() error {
	p.mu.Lock()
	if !p.unfinished {
		p.mu.Unlock()

		return nil
	}
	p.unfinished = false
	p.mu.Unlock()

	for _, obs := range p.settings.observers {
		err := obs.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

// Stages returns the stage names in processing order.
func (p *Pipeline) Stages() []string {
	names, err := p.topology.order()
	if err != nil {
		p.logger.Warn("unable to order stages", zap.Error(err))

		names = make([]string, len(p.stages))
		for i, st := range p.stages {
			names[i] = st.Name()
		}
	}

	return names
}

// DeadStages returns the names of the stages whose worker died and was not restarted.
func (p *Pipeline) DeadStages() []string {
	res := []string{}
	for _, st := range p.stages {
		if st.Dead() {
			res = append(res, st.Name())
		}
	}

	return res
}

// Failures returns the failures reported by every stage, in stage order.
func (p *Pipeline) Failures() []error {
	res := []error{}
	for _, st := range p.stages {
		res = append(res, st.Failures()...)
	}

	return res
}
