package pipeline_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dframe/pkg/pipeline"
	"github.com/askiada/go-dframe/pkg/pipeline/model"
	"github.com/askiada/go-dframe/pkg/processors"
)

type recorder struct {
	mu       sync.Mutex
	calls    []string
	outputs  map[string]int
	failures map[string]int
	finished int
	fail     error
}

func newRecorder() *recorder {
	return &recorder{outputs: map[string]int{}, failures: map[string]int{}}
}

func (r *recorder) New() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "new")

	return nil
}

func (r *recorder) PrepareStage(parent, stage *model.StageInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, parent.Name+"->"+stage.Name)

	return nil
}

func (r *recorder) OnStageOutput(_, stage *model.StageInfo, _, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[stage.Name]++

	return r.fail
}

func (r *recorder) OnStageFailure(stage *model.StageInfo, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[stage.Name]++

	return r.fail
}

func (r *recorder) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++

	return nil
}

func TestObserverHooks(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := startPipeline(t, []pipeline.StageConfig{
		registryStage(t, "upper", processors.UppercaseName, nil),
		registryStage(t, "reverse", processors.ReverseName, nil),
	}, pipeline.WithObservers(rec))
	ctx := waitCtx(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage(id, id)))
	}
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("bad", 1)))
	require.NoError(t, p.Stop(ctx, true))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"new", "start->upper", "upper->reverse", "reverse->end"}, rec.calls)
	assert.Equal(t, map[string]int{"upper": 3, "reverse": 3}, rec.outputs)
	assert.Equal(t, map[string]int{"upper": 1}, rec.failures)
	assert.Equal(t, 1, rec.finished)
}

func TestObserverErrorsDoNotStopStages(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.fail = assert.AnError
	p := startPipeline(t, []pipeline.StageConfig{registryStage(t, "upper", processors.UppercaseName, nil)},
		pipeline.WithObservers(rec))
	ctx := waitCtx(t)

	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("a", "abc")))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("b", "abc")))
	require.NoError(t, p.Stop(ctx, true))

	_, ok := p.Result("a")
	assert.True(t, ok)
	_, ok = p.Result("b")
	assert.True(t, ok)
	assert.Empty(t, p.DeadStages())
}

type failingNew struct {
	*recorder
}

func (failingNew) New() error { return assert.AnError }

func TestObserverNewError(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(nil, pipeline.WithObservers(failingNew{newRecorder()}))
	assert.ErrorIs(t, err, assert.AnError)
}
