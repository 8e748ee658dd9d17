package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// Target receives the messages drained by a relay. Push returns false when the target no longer accepts messages.
type Target interface {
	Push(msg Message) bool
}

// Relay moves messages from a channel into a target in its own goroutine.
//
// It stops after pushing the shutdown signal, when its channel is closed, or when it is terminated. A closed
// channel is a silent stop: nothing more is pushed and nothing is reported.
type Relay struct {
	in     <-chan Message
	target Target
	logger *zap.Logger
	name   string
	unit
}

// NewRelay creates a relay draining in into target.
func NewRelay(name string, in <-chan Message, target Target, opts ...Option) *Relay {
	return newRelay(name, in, target, newSettings(opts...))
}

func newRelay(name string, in <-chan Message, target Target, s *settings) *Relay {
	return &Relay{
		name:   name,
		in:     in,
		target: target,
		logger: s.logger.With(zap.String("relay", name)),
	}
}

// Start runs the relay.
func (r *Relay) Start() error {
	return r.start(r.run)
}

func (r *Relay) run(ctx context.Context) {
	r.logger.Debug("relay started")
	defer r.logger.Debug("relay stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.in:
			if !ok {
				return
			}
			if !r.target.Push(msg) {
				return
			}
			if msg.IsShutdown() {
				return
			}
		}
	}
}

// Running reports whether the relay goroutine is alive.
func (r *Relay) Running() bool {
	return r.running()
}

// Wait blocks until the relay has stopped or ctx is done.
func (r *Relay) Wait(ctx context.Context) error {
	return r.wait(ctx)
}

// Terminate stops the relay without waiting for the shutdown signal and waits for it to exit. Messages still in
// the channel are left there. A terminated relay cannot be started again.
func (r *Relay) Terminate() {
	r.terminate()
	_ = r.wait(context.Background())
}
