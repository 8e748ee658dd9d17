package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dframe/pkg/pipeline"
	"github.com/askiada/go-dframe/pkg/pipeline/metrics"
	"github.com/askiada/go-dframe/pkg/processors"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	processors.Register(reg)
	mark, err := reg.Stage("mark", processors.MarkerName, pipeline.Params{"value": "x"})
	require.NoError(t, err)
	upper, err := reg.Stage("upper", processors.UppercaseName, nil)
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	collector := metrics.New(promReg, "test")
	p, err := pipeline.New([]pipeline.StageConfig{mark, upper}, pipeline.WithObservers(collector))
	require.NoError(t, err)
	defer p.Terminate()

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("a", "abc")))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("b", "abc")))
	require.NoError(t, p.Stop(ctx, true))

	assert.InDelta(t, 2, testutil.ToFloat64(collector.Stages), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.Processed.WithLabelValues("mark")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.Processed.WithLabelValues("upper")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(collector.Failures.WithLabelValues("upper")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(collector.ProcessDuration))

	families, err := promReg.Gather()
	require.NoError(t, err)
	names := []string{}
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"dframe_processed_total", "dframe_failures_total", "dframe_process_duration_seconds",
		"dframe_queue_wait_seconds", "dframe_stages",
	}, names)
}

func TestCollectorFailures(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	processors.Register(reg)
	mark, err := reg.Stage("mark", processors.MarkerName, pipeline.Params{"value": 1})
	require.NoError(t, err)
	upper, err := reg.Stage("upper", processors.UppercaseName, nil)
	require.NoError(t, err)

	collector := metrics.New(prometheus.NewRegistry(), "")
	p, err := pipeline.New([]pipeline.StageConfig{mark, upper}, pipeline.WithObservers(collector))
	require.NoError(t, err)
	defer p.Terminate()

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("a", "abc")))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("b", "abc")))
	require.NoError(t, p.Stop(ctx, true))

	// one processing failure, then one dropped package
	assert.InDelta(t, 2, testutil.ToFloat64(collector.Failures.WithLabelValues("upper")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(collector.Processed.WithLabelValues("upper")), 0)
}

func TestCollectorRegistersOnce(t *testing.T) {
	t.Parallel()

	promReg := prometheus.NewRegistry()
	metrics.New(promReg, "a")
	assert.Panics(t, func() { metrics.New(promReg, "a") })
}
