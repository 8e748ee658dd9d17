package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// unit is the lifecycle shared by relays and stage workers: one goroutine per start, cancellable, joinable.
type unit struct {
	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	terminated bool
}

func (u *unit) runningLocked() bool {
	if u.done == nil {
		return false
	}
	select {
	case <-u.done:
		return false
	default:
		return true
	}
}

func (u *unit) running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.runningLocked()
}

func (u *unit) start(run func(ctx context.Context)) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.terminated {
		return ErrTerminated
	}
	if u.runningLocked() {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.cancel, u.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		run(ctx)
	}()

	return nil
}

// wait blocks until the current run, if any, has returned.
func (u *unit) wait(ctx context.Context) error {
	u.mu.Lock()
	done := u.done
	u.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "unable to wait for the unit to stop")
	case <-done:
		return nil
	}
}

// terminate cancels the current run and forbids any further start. It does not wait.
func (u *unit) terminate() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.terminated = true
	if u.cancel != nil {
		u.cancel()
	}
}
