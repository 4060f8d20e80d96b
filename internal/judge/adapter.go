package judge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"callqa/internal/performance"
	"callqa/internal/verdict"
)

// Outcome is the result of one delegated judgment. Verdicts is never nil;
// when the call failed it is empty and Skipped holds the reason.
type Outcome struct {
	Verdicts verdict.Set
	Skipped  error
}

// OK reports whether the provider produced verdicts
func (o Outcome) OK() bool {
	return o.Skipped == nil
}

// Adapter wraps a Provider with prompt composition, response parsing and failure isolation
type Adapter struct {
	provider Provider
	opts     PromptOptions
	logger   *zap.Logger
	monitor  *performance.PerformanceMonitor
}

// NewAdapter creates an Adapter. A nil monitor gets a fresh one.
func NewAdapter(provider Provider, opts PromptOptions, logger *zap.Logger, monitor *performance.PerformanceMonitor) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("judgment provider cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if monitor == nil {
		monitor = performance.NewPerformanceMonitor(logger)
	}
	return &Adapter{
		provider: provider,
		opts:     opts,
		logger:   logger.With(zap.String("component", "judge"), zap.String("provider", provider.Name())),
		monitor:  monitor,
	}, nil
}

// Monitor returns the performance monitor recording provider calls
func (a *Adapter) Monitor() *performance.PerformanceMonitor {
	return a.monitor
}

// Evaluate asks the provider to score the transcript against the criteria.
// It makes exactly one provider call and never returns an error: failures are
// logged and reported through Outcome.Skipped with an empty verdict set.
func (a *Adapter) Evaluate(ctx context.Context, callID, transcriptText, criteriaText string, findings []string) Outcome {
	prompt := BuildPrompt(transcriptText, criteriaText, findings, a.opts)

	timer := a.monitor.StartJudgment(callID, prompt.Size())
	content, err := a.complete(ctx, prompt)
	if err == nil {
		var set verdict.Set
		var dropped map[string]error
		set, dropped, err = parseReply(content)
		if err == nil {
			for key, reason := range dropped {
				a.logger.Warn("dropping unreadable verdict",
					zap.String("call_id", callID),
					zap.String("criterion", key),
					zap.Error(reason))
			}
			a.monitor.EndJudgment(timer, true)
			a.logger.Debug("judgment received",
				zap.String("call_id", callID),
				zap.Strings("keys", set.Keys()))
			return Outcome{Verdicts: set}
		}
		err = fmt.Errorf("failed to parse judgment response: %w", err)
	}

	a.monitor.EndJudgment(timer, false)
	a.logger.Error("judgment failed, continuing with rule verdicts only",
		zap.String("call_id", callID),
		zap.Error(err))
	return Outcome{Verdicts: verdict.Set{}, Skipped: err}
}

// complete calls the provider, converting a panic into an error
func (a *Adapter) complete(ctx context.Context, prompt Prompt) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("judgment provider panicked: %v", r)
		}
	}()

	content, err = a.provider.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("judgment provider call failed: %w", err)
	}
	return content, nil
}
