package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dframe/pkg/pipeline"
)

func TestParams(t *testing.T) {
	t.Parallel()

	params := pipeline.Params{
		"name":     "value",
		"int":      3,
		"int64":    int64(4),
		"float":    5.0,
		"fraction": 5.5,
		"duration": "1.5s",
		"typed":    2 * time.Second,
		"bad":      []string{},
	}

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		v, err := params.String("name", "def")
		require.NoError(t, err)
		assert.Equal(t, "value", v)
		v, err = params.String("missing", "def")
		require.NoError(t, err)
		assert.Equal(t, "def", v)
		_, err = params.String("int", "")
		assert.ErrorIs(t, err, pipeline.ErrInvalidParam)
	})

	t.Run("int", func(t *testing.T) {
		t.Parallel()
		for key, want := range map[string]int{"int": 3, "int64": 4, "float": 5, "missing": 9} {
			v, err := params.Int(key, 9)
			require.NoError(t, err, key)
			assert.Equal(t, want, v, key)
		}
		for _, key := range []string{"fraction", "name", "bad"} {
			_, err := params.Int(key, 0)
			assert.ErrorIs(t, err, pipeline.ErrInvalidParam, key)
		}
	})

	t.Run("duration", func(t *testing.T) {
		t.Parallel()
		for key, want := range map[string]time.Duration{"duration": 1500 * time.Millisecond, "typed": 2 * time.Second, "missing": time.Minute} {
			v, err := params.Duration(key, time.Minute)
			require.NoError(t, err, key)
			assert.Equal(t, want, v, key)
		}
		for _, key := range []string{"name", "int"} {
			_, err := params.Duration(key, 0)
			assert.ErrorIs(t, err, pipeline.ErrInvalidParam, key)
		}
	})
}

func noop(pipeline.Params) (pipeline.Processor, error) {
	return pipeline.ProcessorFunc(func(context.Context, *pipeline.Package) error { return nil }), nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	assert.Empty(t, reg.Names())

	reg.Register("b", noop)
	reg.Register("a", noop)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("c")
	assert.False(t, ok)

	cfg, err := reg.Stage("first", "a", pipeline.Params{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Name)
	assert.Equal(t, "a", cfg.Processor)
	assert.Equal(t, pipeline.Params{"k": "v"}, cfg.Params)
	assert.NotNil(t, cfg.Constructor)

	_, err = reg.Stage("first", "c", nil)
	assert.ErrorIs(t, err, pipeline.ErrUnknownProcessor)
}

func TestRegistryConcurrentUse(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Register("noop", noop)
		}()
		go func() {
			defer wg.Done()
			_ = reg.Names()
			_, _ = reg.Get("noop")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"noop"}, reg.Names())
}

func TestProcessorFuncNilPackage(t *testing.T) {
	t.Parallel()

	proc, err := noop(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, proc.Process(context.Background(), nil), pipeline.ErrTypeMismatch)
}

func TestTransform(t *testing.T) {
	t.Parallel()

	double := pipeline.Transform(func(_ context.Context, in int) (int, error) {
		return in * 2, nil
	})

	pkg := pipeline.NewPackage("a", 21)
	require.NoError(t, double.Process(context.Background(), pkg))
	assert.Equal(t, []any{21, 42}, pkg.Layers())

	err := double.Process(context.Background(), pipeline.NewPackage("b", "21"))
	assert.ErrorIs(t, err, pipeline.ErrTypeMismatch)

	err = double.Process(context.Background(), pipeline.NewPackage("c"))
	assert.ErrorIs(t, err, pipeline.ErrEmptyPackage)

	failing := pipeline.Transform(func(context.Context, int) (int, error) {
		return 0, assert.AnError
	})
	pkg = pipeline.NewPackage("d", 1)
	assert.ErrorIs(t, failing.Process(context.Background(), pkg), assert.AnError)
	assert.Equal(t, 1, pkg.LayerCount())
}
