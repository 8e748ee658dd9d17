package drawer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dframe/pkg/pipeline"
	"github.com/askiada/go-dframe/pkg/pipeline/drawer"
	"github.com/askiada/go-dframe/pkg/pipeline/measure"
	"github.com/askiada/go-dframe/pkg/processors"
)

func TestDOTDrawer(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	d := drawer.NewDOTWriterDrawer(buf)
	require.NoError(t, d.AddStage("a"))
	require.NoError(t, d.AddStage("b"))
	require.NoError(t, d.AddLink("a", "b"))
	assert.Error(t, d.AddStage("a"))
	assert.Error(t, d.AddLink("a", "unknown"))
	require.NoError(t, d.SetTotalTime("b", time.Now()))
	assert.Error(t, d.SetTotalTime("unknown", time.Now()))

	require.NoError(t, d.Draw())
	out := buf.String()
	assert.Contains(t, out, "strict digraph {")
	assert.Contains(t, out, `rankdir="LR"`)
	assert.Contains(t, out, `"a" -> "b"`)
	assert.Contains(t, out, `<b <BR />`)
}

func TestDOTDrawerMeasure(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	d := drawer.NewDOTWriterDrawer(buf)
	for _, name := range []string{"start", "slow", "fast"} {
		require.NoError(t, d.AddStage(name))
	}
	require.NoError(t, d.AddLink("start", "slow"))
	require.NoError(t, d.AddLink("slow", "fast"))

	m := measure.NewDefaultMeasure()
	slow := m.AddMetric("slow", 0)
	slow.AddDuration(time.Second)
	slow.AddTransportDuration("start", 2*time.Second)
	slow.AddFailure()
	fast := m.AddMetric("fast", 3)
	fast.AddDuration(time.Millisecond)
	fast.AddTransportDuration("slow", time.Millisecond)
	m.AddMetric("not drawn", 0)

	require.NoError(t, d.AddMeasure(m))
	require.NoError(t, d.Draw())
	out := buf.String()

	// the longest wait is red, the shortest blue
	assert.Contains(t, strings.ToLower(out), `color="#f00000"`)
	assert.Contains(t, strings.ToLower(out), `color="#0000f0"`)
	assert.Contains(t, out, `label="2s"`)
	assert.Contains(t, out, "failures: 1")
	assert.Contains(t, out, "queue: 3")
	assert.NotContains(t, out, "not drawn")
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	processors.Register(reg)
	upper, err := reg.Stage("upper", processors.UppercaseName, nil)
	require.NoError(t, err)
	suffix, err := reg.Stage("exclaim", processors.SuffixName, pipeline.Params{"value": "!"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	m := measure.NewDefaultMeasure()
	p, err := pipeline.New([]pipeline.StageConfig{upper, suffix}, pipeline.WithObservers(
		measure.PipelineMeasure(m),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(path), m),
	))
	require.NoError(t, err)
	defer p.Terminate()

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.ProcessPackage(ctx, pipeline.NewPackage("a", "abc")))
	require.NoError(t, p.Stop(ctx, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	for _, edge := range []string{`"start" -> "upper"`, `"upper" -> "exclaim"`, `"exclaim" -> "end"`} {
		assert.Contains(t, out, edge)
	}
	assert.Contains(t, out, "end: ")
}
