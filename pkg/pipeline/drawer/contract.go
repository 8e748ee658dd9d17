// Package drawer renders the stage chain of a pipeline as a Graphviz DOT graph, annotated with the measured
// durations of every stage.
package drawer

import (
	"time"

	"github.com/askiada/go-dframe/pkg/pipeline/measure"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStage adds a stage to the pipeline drawer.
	AddStage(stageName string) error
	// AddLink adds a link between parent and child stages.
	AddLink(parentStageName, childStageName string) error
	// Draw writes the pipeline graph.
	Draw() error
	// SetTotalTime sets the time elapsed since startTime on the stage.
	SetTotalTime(stageName string, startTime time.Time) error
	// AddMeasure annotates the graph with the metrics of measure.
	AddMeasure(measure measure.Measure) error
}
