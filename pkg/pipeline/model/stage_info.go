package model

type stageType string

const (
	RootStageType    stageType = "root"
	NormalStageType  stageType = "stage"
	ResultsStageType stageType = "results"
)

// StageInfo describes a stage of a pipeline.
type StageInfo struct {
	Type      stageType
	Name      string
	Processor string
	Index     int
	QueueSize int
}

var (
	// StartStage is the parent of the first stage: the caller submitting packages.
	StartStage = &StageInfo{Type: RootStageType, Name: "start", Index: -1}
	// EndStage is the results store fed by the last stage.
	EndStage = &StageInfo{Type: ResultsStageType, Name: "end", Index: -1}
)
