package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dframe/pkg/pipeline"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestRelayMovesMessagesToTarget(t *testing.T) {
	t.Parallel()

	in := make(chan pipeline.Message)
	q := pipeline.NewQueue(0)
	relay := pipeline.NewRelay("relay", in, q)
	require.NoError(t, relay.Start())
	defer relay.Terminate()

	pkg := pipeline.NewPackage("a", "payload")
	in <- pipeline.Deliver(pkg)

	msg, ok := q.Pop()
	require.True(t, ok)
	got, ok := msg.Package()
	require.True(t, ok)
	assert.Same(t, pkg, got)
	assert.True(t, relay.Running())
}

func TestRelayStopsOnShutdown(t *testing.T) {
	t.Parallel()

	in := make(chan pipeline.Message)
	q := pipeline.NewQueue(0)
	relay := pipeline.NewRelay("relay", in, q)
	require.NoError(t, relay.Start())

	in <- pipeline.Deliver(pipeline.NewPackage("a"))
	in <- pipeline.Shutdown()
	require.NoError(t, relay.Wait(waitCtx(t)))
	assert.False(t, relay.Running())

	assert.Equal(t, 2, q.Len())
	_, _ = q.Pop()
	msg, _ := q.Pop()
	assert.True(t, msg.IsShutdown())

	// a stopped relay can run again
	require.NoError(t, relay.Start())
	in <- pipeline.Shutdown()
	require.NoError(t, relay.Wait(waitCtx(t)))
}

func TestRelayStopsOnClosedChannel(t *testing.T) {
	t.Parallel()

	in := make(chan pipeline.Message)
	q := pipeline.NewQueue(0)
	relay := pipeline.NewRelay("relay", in, q)
	require.NoError(t, relay.Start())

	close(in)
	require.NoError(t, relay.Wait(waitCtx(t)))
	assert.Equal(t, 0, q.Len())
}

func TestRelayStopsOnClosedTarget(t *testing.T) {
	t.Parallel()

	in := make(chan pipeline.Message)
	q := pipeline.NewQueue(0)
	q.Close()
	relay := pipeline.NewRelay("relay", in, q)
	require.NoError(t, relay.Start())

	in <- pipeline.Deliver(pipeline.NewPackage("a"))
	require.NoError(t, relay.Wait(waitCtx(t)))
}

func TestRelayLifecycle(t *testing.T) {
	t.Parallel()

	in := make(chan pipeline.Message)
	relay := pipeline.NewRelay("relay", in, pipeline.NewQueue(0))

	// never started
	require.NoError(t, relay.Wait(waitCtx(t)))
	assert.False(t, relay.Running())

	require.NoError(t, relay.Start())
	assert.ErrorIs(t, relay.Start(), pipeline.ErrAlreadyStarted)

	relay.Terminate()
	assert.False(t, relay.Running())
	assert.ErrorIs(t, relay.Start(), pipeline.ErrTerminated)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, relay.Wait(ctx))
}

func TestRelayWaitTimeout(t *testing.T) {
	t.Parallel()

	relay := pipeline.NewRelay("relay", make(chan pipeline.Message), pipeline.NewQueue(0))
	require.NoError(t, relay.Start())
	defer relay.Terminate()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, relay.Wait(ctx), context.DeadlineExceeded)
}
