package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"callqa/internal/batch"
	"callqa/internal/config"
	"callqa/internal/criteria"
	"callqa/internal/dataset"
	"callqa/internal/evaluator"
	"callqa/internal/judge"
	"callqa/internal/metrics"
	"callqa/internal/output"
	"callqa/internal/performance"
	"callqa/internal/rules"
	"callqa/internal/store"
)

// LoadConfiguration reads configuration from configPath, or from CONFIG_PATH when
// configPath is empty, falling back to environment variables.
func LoadConfiguration(configPath string) (*config.Configuration, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath != "" {
		cfg, err := config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.NewConfigurationFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	return cfg, nil
}

// Application wires the evaluation pipeline from configuration
type Application struct {
	config    *config.Configuration
	zapLogger *zap.Logger
	evaluator *evaluator.Evaluator
	driver    *batch.Driver
	metrics   *metrics.Metrics
	// monitor is nil when delegated judgment is disabled
	monitor *performance.PerformanceMonitor
	// store is nil when no database path is configured
	store *store.Store
}

// NewApplication creates an application with all components initialized.
// Configuration problems such as a missing provider credential are returned here,
// before any record is processed.
func NewApplication(cfg *config.Configuration, zapLogger *zap.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	criteriaText, err := criteria.Resolve(cfg.GetCriteriaPath(), cfg.HasExplicitCriteriaPath(), zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}

	var adapter *judge.Adapter
	var monitor *performance.PerformanceMonitor
	if cfg.IsJudgeEnabled() {
		adapter, err = newJudgeAdapter(cfg, zapLogger)
		if err != nil {
			return nil, err
		}
		monitor = adapter.Monitor()
	} else {
		zapLogger.Info("delegated judgment disabled, running rule checks only")
	}

	ev := evaluator.NewEvaluatorWithLogger(evaluator.Settings{
		Rules:        rules.NewEngineWithLogger(cfg.GetMinDurationSec(), zapLogger),
		Judge:        adapter,
		CriteriaText: criteriaText,
		PIIEnabled:   cfg.IsPIIEnabled(),
	}, zapLogger)

	runMetrics := metrics.NewMetrics()
	driver, err := batch.NewDriverWithLogger(ev, batch.Options{
		Concurrency:     cfg.GetConcurrency(),
		DuplicatePolicy: batch.DuplicatePolicy(cfg.GetDuplicatePolicy()),
		Recorder:        runMetrics,
	}, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch driver: %w", err)
	}

	var resultStore *store.Store
	if path := cfg.GetSQLitePath(); path != "" {
		resultStore, err = store.Open(path, zapLogger)
		if err != nil {
			return nil, err
		}
	}

	return &Application{
		config:    cfg,
		zapLogger: zapLogger,
		evaluator: ev,
		driver:    driver,
		metrics:   runMetrics,
		monitor:   monitor,
		store:     resultStore,
	}, nil
}

func newJudgeAdapter(cfg *config.Configuration, zapLogger *zap.Logger) (*judge.Adapter, error) {
	provider, err := judge.NewProvider(judge.ProviderSettings{
		Name: cfg.GetJudgeProvider(),
		OpenAI: judge.OpenAIConfig{
			APIKey:    cfg.GetJudgeAPIKey(),
			Model:     cfg.GetJudgeModel(),
			BaseURL:   cfg.GetJudgeBaseURL(),
			MaxTokens: cfg.GetJudgeMaxTokens(),
			Timeout:   cfg.GetJudgeTimeout(),
		},
		CriteriaKeys: cfg.GetJudgeCriteriaKeys(),
	}, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create judgment provider: %w", err)
	}

	opts := judge.DefaultPromptOptions()
	opts.Language = cfg.GetJudgeLanguage()
	opts.CriteriaKeys = cfg.GetJudgeCriteriaKeys()
	opts.SafetyKey = cfg.GetJudgeSafetyKey()

	adapter, err := judge.NewAdapter(provider, opts, zapLogger, performance.NewPerformanceMonitor(zapLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create judgment adapter: %w", err)
	}
	return adapter, nil
}

// Run evaluates the configured dataset and writes every configured output.
// A cancelled run still writes the records evaluated so far.
func (app *Application) Run(ctx context.Context) (*batch.Run, error) {
	app.zapLogger.Info("starting call QA evaluation",
		zap.String("dataset", app.config.GetDatasetPath()),
		zap.Bool("judgment_enabled", app.evaluator.JudgmentEnabled()))

	records, err := dataset.Load(app.config.GetDatasetPath(), app.zapLogger)
	if err != nil {
		return nil, err
	}

	run, runErr := app.driver.Run(ctx, records)
	if run == nil {
		return nil, runErr
	}
	app.metrics.MarkRunFinished(run.Finished)

	if err := output.WriteFile(app.config.GetOutputPath(), run.Result, app.zapLogger); err != nil {
		return run, err
	}
	app.zapLogger.Info("results written",
		zap.String("path", app.config.GetOutputPath()),
		zap.Int("calls", run.Result.Len()))

	if app.store != nil {
		// The run is persisted even when ctx was cancelled mid-batch
		if err := app.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			return run, fmt.Errorf("failed to store run: %w", err)
		}
	}

	if path := app.config.GetMetricsTextfilePath(); path != "" {
		if err := app.metrics.WriteTextfile(path); err != nil {
			app.zapLogger.Warn("failed to export metrics", zap.Error(err))
		}
	}

	if app.monitor != nil {
		app.monitor.LogCurrentMetrics()
		app.zapLogger.Info("judgment performance", zap.String("summary", app.monitor.GetPerformanceSummary()))
	}

	return run, runErr
}

// Metrics returns the run metrics
func (app *Application) Metrics() *metrics.Metrics {
	return app.metrics
}

// Shutdown releases resources held by the application
func (app *Application) Shutdown() error {
	app.zapLogger.Info("shutting down application components")

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.zapLogger.Error("error closing results store", zap.Error(err))
		}
	}

	app.zapLogger.Info("application shutdown completed")
	return nil
}
