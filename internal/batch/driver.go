// Package batch evaluates a sequence of transcript records and accumulates their
// verdict sets into one ordered result.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callqa/internal/evaluator"
	"callqa/internal/transcript"
	"callqa/internal/verdict"
)

// DuplicatePolicy decides what happens when two records share a call id
type DuplicatePolicy string

const (
	// DuplicateSuffix keeps both entries, renaming later ones to "<id>#2", "<id>#3", ...
	DuplicateSuffix DuplicatePolicy = "suffix"
	// DuplicateOverwrite keeps only the last entry for an id, at the position of the first
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// ParseDuplicatePolicy maps a configuration value onto a policy; blank selects DuplicateSuffix
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateSuffix:
		return DuplicateSuffix, nil
	case DuplicateOverwrite:
		return DuplicateOverwrite, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Evaluator is the per-record evaluation the driver runs
type Evaluator interface {
	Evaluate(ctx context.Context, rec transcript.Record) evaluator.Evaluation
}

// Recorder observes each completed evaluation
type Recorder interface {
	ObserveEvaluation(eval evaluator.Evaluation, elapsed time.Duration)
}

// Options controls a Driver
type Options struct {
	// Concurrency caps in-flight evaluations; values below 2 evaluate sequentially
	Concurrency     int
	DuplicatePolicy DuplicatePolicy
	// Recorder is optional
	Recorder Recorder
}

// Run is the outcome of one batch
type Run struct {
	ID       string
	Result   *verdict.Result
	Started  time.Time
	Finished time.Time

	// Evaluations holds the per-record outcomes in input order, keyed by their final output id
	Evaluations []evaluator.Evaluation

	// Renamed maps each suffixed output id to the call id it was derived from
	Renamed map[string]string
	// Overwritten counts records whose entry replaced an earlier one
	Overwritten int
}

// Driver evaluates records in input order
type Driver struct {
	evaluator Evaluator
	opts      Options
	logger    *zap.Logger
}

// NewDriver creates a Driver without logging
func NewDriver(ev Evaluator, opts Options) (*Driver, error) {
	return NewDriverWithLogger(ev, opts, zap.NewNop())
}

// NewDriverWithLogger creates a Driver with the given logger
func NewDriverWithLogger(ev Evaluator, opts Options, logger *zap.Logger) (*Driver, error) {
	if ev == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	policy, err := ParseDuplicatePolicy(string(opts.DuplicatePolicy))
	if err != nil {
		return nil, err
	}
	opts.DuplicatePolicy = policy
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		evaluator: ev,
		opts:      opts,
		logger:    logger.With(zap.String("component", "batch")),
	}, nil
}

type slot struct {
	eval    evaluator.Evaluation
	elapsed time.Duration
	done    bool
}

// Run evaluates every record and accumulates the verdict sets in input order.
// Every evaluated record yields exactly one entry. When ctx is cancelled the run
// stops between records and returns the entries accumulated so far with ctx's error.
func (d *Driver) Run(ctx context.Context, records []transcript.Record) (*Run, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Result:  verdict.NewResult(),
		Started: time.Now(),
		Renamed: make(map[string]string),
	}
	logger := d.logger.With(zap.String("run_id", run.ID))
	logger.Info("batch started",
		zap.Int("records", len(records)),
		zap.Int("concurrency", d.opts.Concurrency),
		zap.String("duplicate_policy", string(d.opts.DuplicatePolicy)))

	slots := make([]slot, len(records))
	evaluate := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		slots[i] = slot{
			eval:    d.evaluator.Evaluate(ctx, records[i]),
			elapsed: time.Since(start),
			done:    true,
		}
		return nil
	}

	if d.opts.Concurrency > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.Concurrency)
		for i := range records {
			i := i
			g.Go(func() error {
				return evaluate(gCtx, i)
			})
		}
		// Only cancellation fails a slot; ctx.Err below reports it.
		if err := g.Wait(); err != nil {
			logger.Debug("batch workers stopped", zap.Error(err))
		}
	} else {
		for i := range records {
			if evaluate(ctx, i) != nil {
				break
			}
		}
	}

	seen := make(map[string]int)
	for i := range slots {
		if !slots[i].done {
			break
		}
		d.accumulate(run, seen, slots[i], logger)
	}
	run.Finished = time.Now()

	if err := ctx.Err(); err != nil {
		logger.Warn("batch cancelled",
			zap.Int("evaluated", run.Result.Len()),
			zap.Int("records", len(records)),
			zap.Error(err))
		return run, fmt.Errorf("batch cancelled after %d of %d records: %w", len(run.Evaluations), len(records), err)
	}

	logger.Info("batch finished",
		zap.Int("calls", run.Result.Len()),
		zap.Int("renamed", len(run.Renamed)),
		zap.Int("overwritten", run.Overwritten),
		zap.Duration("elapsed", run.Finished.Sub(run.Started)))
	return run, nil
}

func (d *Driver) accumulate(run *Run, seen map[string]int, s slot, logger *zap.Logger) {
	eval := s.eval
	id := eval.CallID

	if run.Result.Has(id) {
		switch d.opts.DuplicatePolicy {
		case DuplicateOverwrite:
			run.Overwritten++
			logger.Warn("duplicate call id, overwriting earlier entry", zap.String("call_id", id))
		default:
			unique := nextID(run.Result, seen, id)
			run.Renamed[unique] = id
			logger.Warn("duplicate call id, storing under suffixed id",
				zap.String("call_id", id),
				zap.String("stored_as", unique))
			id = unique
		}
	}

	run.Result.Put(id, eval.Verdicts)
	eval.CallID = id
	run.Evaluations = append(run.Evaluations, eval)

	if d.opts.Recorder != nil {
		d.opts.Recorder.ObserveEvaluation(eval, s.elapsed)
	}
}

// nextID returns the first "<id>#n" (n >= 2) not already in result
func nextID(result *verdict.Result, seen map[string]int, id string) string {
	n := seen[id]
	if n < 2 {
		n = 2
	}
	for {
		candidate := fmt.Sprintf("%s#%d", id, n)
		if !result.Has(candidate) {
			seen[id] = n + 1
			return candidate
		}
		n++
	}
}
