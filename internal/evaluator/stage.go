package evaluator

import "callqa/internal/verdict"

// Stage names one step of the evaluation pipeline
type Stage string

const (
	StageValidate Stage = "validate"
	StageFormat   Stage = "format"
	StageSilence  Stage = "silence"
	StagePII      Stage = "pii"
	StageJudge    Stage = "judge"
)

// Status is what happened at a stage
type Status string

const (
	// StatusRan means the stage executed; it may or may not have contributed verdicts
	StatusRan Status = "ran"
	// StatusSkipped means the stage was disabled or failed without stopping the pipeline
	StatusSkipped Status = "skipped"
	// StatusTerminal means the stage rejected the record and ended the pipeline
	StatusTerminal Status = "terminal"
)

// StageResult is the outcome of one stage and the verdicts it contributed
type StageResult struct {
	Stage    Stage
	Status   Status
	Verdicts verdict.Set
	Reason   string
}

func terminal(stage Stage, reason string) StageResult {
	return StageResult{
		Stage:    stage,
		Status:   StatusTerminal,
		Verdicts: verdict.Set{verdict.SystemKey: verdict.System(reason)},
		Reason:   reason,
	}
}

// Evaluation is the merged verdict set for one call plus the trail of stages that produced it
type Evaluation struct {
	CallID   string
	Verdicts verdict.Set
	Stages   []StageResult
}

// record appends the stage and merges its verdicts; later stages overwrite earlier keys
func (e *Evaluation) record(result StageResult) {
	e.Stages = append(e.Stages, result)
	e.Verdicts.Merge(result.Verdicts)
}

// Stage returns the result for the named stage, if it was reached
func (e Evaluation) Stage(name Stage) (StageResult, bool) {
	for _, s := range e.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Terminated reports whether the record was rejected before metrics were computed
func (e Evaluation) Terminated() bool {
	return len(e.Stages) > 0 && e.Stages[len(e.Stages)-1].Status == StatusTerminal
}

// Judged reports whether the delegated judgment contributed verdicts
func (e Evaluation) Judged() bool {
	s, ok := e.Stage(StageJudge)
	return ok && s.Status == StatusRan
}
