// callqa scores customer-service call transcripts against a QA rubric.
//
// Usage:
//
//	callqa [--dataset=<path>] [--criteria=<path>] [--out=<path>] [--no-llm] [--log-level=<level>]
//	callqa runs --db=<path>
//	callqa version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"callqa/internal/app"
	"callqa/internal/config"
	"callqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath  string
	dataset     string
	criteria    string
	out         string
	db          string
	logLevel    string
	provider    string
	noLLM       bool
	concurrency int
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "callqa",
		Short: "Run QA evaluation on a transcript dataset",
		Long: "callqa validates call transcripts, computes deterministic metrics such as silence\n" +
			"and card-number leaks, and asks a judgment provider to score the rubric criteria.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfiguration(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, flags)
			return runApplication(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "Path to a YAML config file (default: $CONFIG_PATH)")
	f.StringVar(&flags.dataset, "dataset", "", "Path to evaluation dataset JSON")
	f.StringVar(&flags.criteria, "criteria", "", "Path to criteria file (txt/yaml)")
	f.StringVar(&flags.out, "out", "", "Where to write output JSON")
	f.StringVar(&flags.db, "db", "", "SQLite database to store the run in")
	f.StringVar(&flags.logLevel, "log-level", "", "Logging level (debug, info, warn, error)")
	f.StringVar(&flags.provider, "provider", "", "Judgment provider (openai, mock)")
	f.BoolVar(&flags.noLLM, "no-llm", false, "Run rule-only mode")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Number of records evaluated at once")

	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.Version = version
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command, cfg *config.Configuration, flags rootFlags) {
	changed := cmd.Flags().Changed
	if changed("dataset") {
		cfg.Set(config.KeyDatasetPath, flags.dataset)
	}
	if changed("criteria") {
		cfg.Set(config.KeyCriteriaPath, flags.criteria)
	}
	if changed("out") {
		cfg.Set(config.KeyOutputPath, flags.out)
	}
	if changed("db") {
		cfg.Set(config.KeySQLitePath, flags.db)
	}
	if changed("log-level") {
		cfg.Set(config.KeyLogLevel, flags.logLevel)
	}
	if changed("provider") {
		cfg.Set(config.KeyJudgeProvider, flags.provider)
	}
	if changed("no-llm") && flags.noLLM {
		cfg.Set(config.KeyJudgeEnabled, false)
	}
	if changed("concurrency") {
		cfg.Set(config.KeyConcurrency, flags.concurrency)
	}
}

// runApplication contains the core application logic that can be tested
func runApplication(ctx context.Context, cfg *config.Configuration, out io.Writer) error {
	zapLogger, err := logger.NewLoggerWithLevel(cfg.GetLogLevel())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("callqa starting up",
		zap.String("component", "main"),
		zap.String("version", version))

	application, err := app.NewApplication(cfg, zapLogger)
	if err != nil {
		zapLogger.Error("failed to create application", zap.Error(err), zap.String("component", "main"))
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Shutdown()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := application.Run(ctx)
	if err != nil {
		zapLogger.Error("application runtime error", zap.Error(err), zap.String("component", "main"))
		return fmt.Errorf("application runtime error: %w", err)
	}

	fmt.Fprintf(out, "Done. Saved: %s (%d calls, run %s)\n", cfg.GetOutputPath(), run.Result.Len(), run.ID)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// printVersion displays version and build information
func printVersion(out io.Writer) {
	fmt.Fprintln(out, "callqa - call transcript QA evaluation")
	fmt.Fprintf(out, "Version: %s\n", version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
