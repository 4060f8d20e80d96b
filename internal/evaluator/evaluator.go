// Package evaluator runs the per-call evaluation pipeline: integrity validation,
// formatting, deterministic metrics, and the optional delegated judgment.
package evaluator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"callqa/internal/judge"
	"callqa/internal/rules"
	"callqa/internal/transcript"
	"callqa/internal/verdict"
)

const (
	emptyAfterCleaning = "Transcript empty after cleaning"
	silenceReasoning   = "Total silence between segments (seconds)"
)

// Settings wires the collaborators of an Evaluator
type Settings struct {
	// Rules runs the deterministic checks; nil gets a default engine
	Rules *rules.Engine

	// Judge delegates rubric scoring; nil disables delegation
	Judge *judge.Adapter

	// CriteriaText is passed verbatim to the judge; blank disables delegation
	CriteriaText string

	PIIEnabled bool
}

// Evaluator turns one transcript record into a verdict set. It holds no
// per-record state and is safe for concurrent use.
type Evaluator struct {
	rules        *rules.Engine
	judge        *judge.Adapter
	criteriaText string
	piiEnabled   bool
	logger       *zap.Logger
}

// NewEvaluator creates an Evaluator without logging
func NewEvaluator(settings Settings) *Evaluator {
	return NewEvaluatorWithLogger(settings, zap.NewNop())
}

// NewEvaluatorWithLogger creates an Evaluator with the given logger
func NewEvaluatorWithLogger(settings Settings, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := settings.Rules
	if engine == nil {
		engine = rules.NewEngineWithLogger(rules.DefaultMinDurationSec, logger)
	}
	return &Evaluator{
		rules:        engine,
		judge:        settings.Judge,
		criteriaText: settings.CriteriaText,
		piiEnabled:   settings.PIIEnabled,
		logger:       logger.With(zap.String("component", "evaluator")),
	}
}

// JudgmentEnabled reports whether records will be sent to the judge
func (e *Evaluator) JudgmentEnabled() bool {
	return e.judge != nil && strings.TrimSpace(e.criteriaText) != ""
}

// Evaluate runs the pipeline stages in order and stops at the first terminal stage.
// It never fails: malformed input yields a SYSTEM verdict and judgment failures
// contribute nothing.
func (e *Evaluator) Evaluate(ctx context.Context, rec transcript.Record) Evaluation {
	eval := Evaluation{CallID: rec.CallID, Verdicts: verdict.Set{}}
	logger := e.logger.With(zap.String("call_id", rec.CallID))

	integrity := e.rules.CheckIntegrity(rec.Segments)
	if !integrity.Valid {
		eval.record(terminal(StageValidate, integrity.Reason))
		logger.Info("transcript rejected", zap.String("reason", integrity.Reason))
		return eval
	}
	eval.record(StageResult{Stage: StageValidate, Status: StatusRan})

	text := transcript.Format(rec.Segments)
	if strings.TrimSpace(text) == "" {
		eval.record(terminal(StageFormat, emptyAfterCleaning))
		logger.Info("transcript rejected", zap.String("reason", emptyAfterCleaning))
		return eval
	}
	eval.record(StageResult{Stage: StageFormat, Status: StatusRan})

	eval.record(e.silenceStage(rec.Segments, logger))

	pii, findings := e.piiStage(text)
	eval.record(pii)

	eval.record(e.judgeStage(ctx, rec.CallID, text, findings))

	logger.Debug("evaluation complete", zap.Strings("keys", eval.Verdicts.Keys()))
	return eval
}

func (e *Evaluator) silenceStage(segments []transcript.Segment, logger *zap.Logger) StageResult {
	silence, err := e.rules.CalculateSilence(segments)
	if err != nil {
		logger.Warn("silence metric omitted", zap.Error(err))
		return StageResult{Stage: StageSilence, Status: StatusSkipped, Reason: err.Error()}
	}
	return StageResult{
		Stage:  StageSilence,
		Status: StatusRan,
		Verdicts: verdict.Set{
			verdict.SilenceKey: {
				Score:       rules.RoundSeconds(silence),
				Reasoning:   silenceReasoning,
				Probability: verdict.High,
			},
		},
	}
}

func (e *Evaluator) piiStage(text string) (StageResult, []string) {
	if !e.piiEnabled {
		return StageResult{Stage: StagePII, Status: StatusSkipped, Reason: "disabled"}, nil
	}

	leaks := e.rules.DetectPII(text)
	if len(leaks) == 0 {
		return StageResult{Stage: StagePII, Status: StatusRan}, nil
	}
	return StageResult{
		Stage:  StagePII,
		Status: StatusRan,
		Verdicts: verdict.Set{
			verdict.PIIKey: {
				Score:       float64(len(leaks)),
				Reasoning:   strings.Join(leaks, "; "),
				Probability: verdict.High,
			},
		},
	}, leaks
}

func (e *Evaluator) judgeStage(ctx context.Context, callID, text string, findings []string) StageResult {
	if !e.JudgmentEnabled() {
		return StageResult{Stage: StageJudge, Status: StatusSkipped, Reason: "disabled"}
	}

	outcome := e.judge.Evaluate(ctx, callID, text, e.criteriaText, findings)
	if !outcome.OK() {
		return StageResult{Stage: StageJudge, Status: StatusSkipped, Reason: outcome.Skipped.Error()}
	}
	return StageResult{Stage: StageJudge, Status: StatusRan, Verdicts: outcome.Verdicts}
}
