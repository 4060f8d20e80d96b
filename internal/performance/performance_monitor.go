package performance

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JudgmentMetrics tracks latency and failure counts of judgment provider calls
type JudgmentMetrics struct {
	TotalJudgments      int64
	FailedJudgments     int64
	TotalPromptBytes    int64
	TotalProcessingTime time.Duration
	AvgJudgmentTime     time.Duration
	MinJudgmentTime     time.Duration
	MaxJudgmentTime     time.Duration
	LastCallID          string
	LastSucceeded       bool
	LastProcessingTime  time.Duration
	LastPromptBytes     int64
	LastTimestamp       time.Time
}

// JudgmentTimer tracks timing for an individual provider call
type JudgmentTimer struct {
	StartTime      time.Time
	CallID         string
	PromptBytes    int64
	ProcessingTime time.Duration
}

// PerformanceMonitor handles performance tracking and reporting
type PerformanceMonitor struct {
	logger    *zap.Logger
	metrics   JudgmentMetrics
	mu        sync.RWMutex
	benchmark bool
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor(logger *zap.Logger) *PerformanceMonitor {
	return NewPerformanceMonitorWithBenchmark(logger, false)
}

// NewPerformanceMonitorWithBenchmark creates a performance monitor with benchmarking enabled
func NewPerformanceMonitorWithBenchmark(logger *zap.Logger, benchmark bool) *PerformanceMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceMonitor{
		logger: logger,
		metrics: JudgmentMetrics{
			MinJudgmentTime: time.Hour, // Initialize to large value
			LastTimestamp:   time.Now(),
		},
		benchmark: benchmark,
	}
}

// StartJudgment begins timing a provider call
func (pm *PerformanceMonitor) StartJudgment(callID string, promptBytes int64) *JudgmentTimer {
	return &JudgmentTimer{
		StartTime:   time.Now(),
		CallID:      callID,
		PromptBytes: promptBytes,
	}
}

// EndJudgment completes timing and updates metrics
func (pm *PerformanceMonitor) EndJudgment(timer *JudgmentTimer, succeeded bool) {
	timer.ProcessingTime = time.Since(timer.StartTime)

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.metrics.TotalJudgments++
	pm.metrics.TotalPromptBytes += timer.PromptBytes
	pm.metrics.TotalProcessingTime += timer.ProcessingTime
	pm.metrics.LastCallID = timer.CallID
	pm.metrics.LastSucceeded = succeeded
	pm.metrics.LastProcessingTime = timer.ProcessingTime
	pm.metrics.LastPromptBytes = timer.PromptBytes
	pm.metrics.LastTimestamp = time.Now()

	if !succeeded {
		pm.metrics.FailedJudgments++
	}

	if timer.ProcessingTime < pm.metrics.MinJudgmentTime {
		pm.metrics.MinJudgmentTime = timer.ProcessingTime
	}
	if timer.ProcessingTime > pm.metrics.MaxJudgmentTime {
		pm.metrics.MaxJudgmentTime = timer.ProcessingTime
	}

	pm.metrics.AvgJudgmentTime = time.Duration(
		int64(pm.metrics.TotalProcessingTime) / pm.metrics.TotalJudgments,
	)

	if pm.benchmark {
		pm.logger.Info("judgment performance",
			zap.String("call_id", timer.CallID),
			zap.Bool("succeeded", succeeded),
			zap.Int64("prompt_bytes", timer.PromptBytes),
			zap.Duration("processing_time", timer.ProcessingTime),
		)
	}
}

// GetMetrics returns a copy of current metrics
func (pm *PerformanceMonitor) GetMetrics() JudgmentMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.metrics
}

// GetPerformanceSummary returns a formatted summary of performance metrics
func (pm *PerformanceMonitor) GetPerformanceSummary() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if pm.metrics.TotalJudgments == 0 {
		return "No judgment metrics available"
	}

	failurePercent := float64(pm.metrics.FailedJudgments) / float64(pm.metrics.TotalJudgments) * 100

	return fmt.Sprintf(
		"Performance Summary:\n"+
			"  Total Judgments: %d\n"+
			"  Failures: %.1f%% (%d of %d)\n"+
			"  Avg Processing Time: %v\n"+
			"  Min/Max Processing Time: %v / %v\n"+
			"  Total Prompt Size: %.2f KB\n",
		pm.metrics.TotalJudgments,
		failurePercent,
		pm.metrics.FailedJudgments,
		pm.metrics.TotalJudgments,
		pm.metrics.AvgJudgmentTime,
		pm.metrics.MinJudgmentTime,
		pm.metrics.MaxJudgmentTime,
		float64(pm.metrics.TotalPromptBytes)/1024,
	)
}

// ResetMetrics clears all accumulated metrics
func (pm *PerformanceMonitor) ResetMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.metrics = JudgmentMetrics{
		MinJudgmentTime: time.Hour,
		LastTimestamp:   time.Now(),
	}

	pm.logger.Info("performance metrics reset")
}

// BenchmarkMode enables or disables detailed benchmark logging
func (pm *PerformanceMonitor) BenchmarkMode(enabled bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.benchmark = enabled
	pm.logger.Info("benchmark mode", zap.Bool("enabled", enabled))
}

// LogCurrentMetrics logs the current performance metrics
func (pm *PerformanceMonitor) LogCurrentMetrics() {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	pm.logger.Info("current judgment metrics",
		zap.Int64("total_judgments", pm.metrics.TotalJudgments),
		zap.Int64("failed_judgments", pm.metrics.FailedJudgments),
		zap.Duration("avg_processing_time", pm.metrics.AvgJudgmentTime),
		zap.Duration("last_processing_time", pm.metrics.LastProcessingTime),
		zap.String("last_call_id", pm.metrics.LastCallID),
		zap.Bool("last_succeeded", pm.metrics.LastSucceeded),
	)
}
