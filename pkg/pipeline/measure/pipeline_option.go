package measure

import (
	"time"

	"github.com/askiada/go-dframe/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStage.Name, 0)
	pm.AddMetric(model.EndStage.Name, 0)
	pm.startTime = time.Now()

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *model.StageInfo) error {
	if stage.Type == model.ResultsStageType {
		return nil
	}
	pm.AddMetric(stage.Name, stage.QueueSize)

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(parentStage, stage *model.StageInfo, waitDuration, processDuration time.Duration) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		return nil
	}
	mt.AddDuration(processDuration)
	mt.AddTransportDuration(parentStage.Name, waitDuration)

	return nil
}

func (pm *pipelineMeasure) OnStageFailure(stage *model.StageInfo, _ error) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		return nil
	}
	mt.AddFailure()

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure returns an observer recording the metrics of every stage into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
