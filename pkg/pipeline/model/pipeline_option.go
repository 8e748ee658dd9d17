package model

import "time"

// PipelineOption defines the interface for pipeline observers.
//
// OnStageOutput and OnStageFailure are called from the stage goroutines, concurrently across stages.
type PipelineOption interface {
	// New initialises the observer when the pipeline is created.
	New() error
	// PrepareStage runs once per stage while the pipeline is created, in chain order. The last call links the
	// last stage to EndStage.
	PrepareStage(parentStage, stage *StageInfo) error
	// OnStageOutput runs every time a stage forwards a processed package. waitDuration is the time spent waiting
	// for the package in the stage queue, processDuration the time spent in the processor.
	OnStageOutput(parentStage, stage *StageInfo, waitDuration, processDuration time.Duration) error
	// OnStageFailure runs every time a stage worker fails or drops a package.
	OnStageFailure(stage *StageInfo, err error) error
	// Finish runs after the pipeline is stopped with blocking or terminated.
	Finish() error
}
