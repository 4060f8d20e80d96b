package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys
const (
	KeyDatasetPath      = "dataset.path"
	KeyCriteriaPath     = "criteria.path"
	KeyOutputPath       = "output.path"
	KeySQLitePath       = "output.sqlite_path"
	KeyLogLevel         = "log.level"
	KeyJudgeEnabled     = "judge.enabled"
	KeyJudgeProvider    = "judge.provider"
	KeyJudgeModel       = "judge.model"
	KeyJudgeBaseURL     = "judge.base_url"
	KeyJudgeAPIKey      = "judge.api_key"
	KeyJudgeTimeout     = "judge.timeout"
	KeyJudgeMaxTokens   = "judge.max_tokens"
	KeyJudgeLanguage    = "judge.language"
	KeyJudgeCriteria    = "judge.criteria_keys"
	KeyJudgeSafetyKey   = "judge.safety_key"
	KeyMinDurationSec   = "rules.min_duration_sec"
	KeyPIIEnabled       = "rules.pii_enabled"
	KeyConcurrency      = "batch.concurrency"
	KeyDuplicatePolicy  = "batch.duplicate_policy"
	KeyMetricsTextfile  = "metrics.textfile_path"
	envPrefix           = "CALLQA"
	defaultCriteriaPath = "prompts/criteria_definitions.yaml"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatasetPath, "data/dataset.json")
	v.SetDefault(KeyCriteriaPath, "")
	v.SetDefault(KeyOutputPath, "evaluation_results.json")
	v.SetDefault(KeySQLitePath, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyJudgeEnabled, true)
	v.SetDefault(KeyJudgeProvider, "openai")
	v.SetDefault(KeyJudgeModel, "gpt-4o-mini")
	v.SetDefault(KeyJudgeBaseURL, "https://api.openai.com")
	v.SetDefault(KeyJudgeAPIKey, "")
	v.SetDefault(KeyJudgeTimeout, 60*time.Second)
	v.SetDefault(KeyJudgeMaxTokens, 1200)
	v.SetDefault(KeyJudgeLanguage, "Azerbaijani")
	v.SetDefault(KeyJudgeCriteria, []string{"KR2.1", "KR2.2", "KR2.3", "KR2.4", "KR2.5"})
	v.SetDefault(KeyJudgeSafetyKey, "KR2.5")
	v.SetDefault(KeyMinDurationSec, 0.1)
	v.SetDefault(KeyPIIEnabled, true)
	v.SetDefault(KeyConcurrency, 1)
	v.SetDefault(KeyDuplicatePolicy, "suffix")
	v.SetDefault(KeyMetricsTextfile, "")
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file.
// Environment variables still override file values.
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return &Configuration{viper: v}, nil
}

func bindEnv(v *viper.Viper) {
	// CALLQA_JUDGE_MODEL -> judge.model
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map specific environment variables
	_ = v.BindEnv(KeyJudgeAPIKey, envPrefix+"_JUDGE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv(KeyJudgeModel, envPrefix+"_JUDGE_MODEL", "OPENAI_MODEL")
	_ = v.BindEnv(KeyJudgeBaseURL, envPrefix+"_JUDGE_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv(KeyDatasetPath, envPrefix+"_DATASET_PATH", "DATASET_PATH")
	_ = v.BindEnv(KeyCriteriaPath, envPrefix+"_CRITERIA_PATH", "CRITERIA_PATH")
	_ = v.BindEnv(KeyOutputPath, envPrefix+"_OUTPUT_PATH", "OUTPUT_PATH")
	_ = v.BindEnv(KeyLogLevel, envPrefix+"_LOG_LEVEL", "LOG_LEVEL")
}

// Set overrides a single key, used for command-line flags
func (c *Configuration) Set(key string, value interface{}) {
	c.viper.Set(key, value)
}

// GetDatasetPath returns the path of the JSON dataset to evaluate
func (c *Configuration) GetDatasetPath() string {
	return c.viper.GetString(KeyDatasetPath)
}

// GetCriteriaPath returns the configured criteria file, falling back to the
// conventional location when none is set.
func (c *Configuration) GetCriteriaPath() string {
	if p := strings.TrimSpace(c.viper.GetString(KeyCriteriaPath)); p != "" {
		return p
	}
	return defaultCriteriaPath
}

// HasExplicitCriteriaPath reports whether a criteria path was configured rather than defaulted
func (c *Configuration) HasExplicitCriteriaPath() bool {
	return strings.TrimSpace(c.viper.GetString(KeyCriteriaPath)) != ""
}

// GetOutputPath returns the JSON results path
func (c *Configuration) GetOutputPath() string {
	return c.viper.GetString(KeyOutputPath)
}

// GetSQLitePath returns the results database path; empty disables the store
func (c *Configuration) GetSQLitePath() string {
	return c.viper.GetString(KeySQLitePath)
}

// GetLogLevel returns the configured log level
func (c *Configuration) GetLogLevel() string {
	return c.viper.GetString(KeyLogLevel)
}

// IsJudgeEnabled reports whether delegated judgment should run
func (c *Configuration) IsJudgeEnabled() bool {
	return c.viper.GetBool(KeyJudgeEnabled)
}

// GetJudgeProvider returns the provider name
func (c *Configuration) GetJudgeProvider() string {
	return c.viper.GetString(KeyJudgeProvider)
}

// GetJudgeModel returns the model identifier sent to the provider
func (c *Configuration) GetJudgeModel() string {
	return c.viper.GetString(KeyJudgeModel)
}

// GetJudgeBaseURL returns the provider base URL
func (c *Configuration) GetJudgeBaseURL() string {
	return c.viper.GetString(KeyJudgeBaseURL)
}

// GetJudgeAPIKey returns the provider credential
func (c *Configuration) GetJudgeAPIKey() string {
	return c.viper.GetString(KeyJudgeAPIKey)
}

// GetJudgeTimeout returns the per-call HTTP timeout
func (c *Configuration) GetJudgeTimeout() time.Duration {
	return c.viper.GetDuration(KeyJudgeTimeout)
}

// GetJudgeMaxTokens returns the completion token limit
func (c *Configuration) GetJudgeMaxTokens() int {
	return c.viper.GetInt(KeyJudgeMaxTokens)
}

// GetJudgeLanguage returns the language requested for reasoning text
func (c *Configuration) GetJudgeLanguage() string {
	return c.viper.GetString(KeyJudgeLanguage)
}

// GetJudgeCriteriaKeys returns the verdict keys the provider must produce
func (c *Configuration) GetJudgeCriteriaKeys() []string {
	return c.viper.GetStringSlice(KeyJudgeCriteria)
}

// GetJudgeSafetyKey returns the criterion zeroed when PII sharing is not stopped
func (c *Configuration) GetJudgeSafetyKey() string {
	return c.viper.GetString(KeyJudgeSafetyKey)
}

// GetMinDurationSec returns the shortest call accepted for evaluation
func (c *Configuration) GetMinDurationSec() float64 {
	return c.viper.GetFloat64(KeyMinDurationSec)
}

// IsPIIEnabled reports whether the PII detector runs
func (c *Configuration) IsPIIEnabled() bool {
	return c.viper.GetBool(KeyPIIEnabled)
}

// GetConcurrency returns the maximum number of records evaluated at once
func (c *Configuration) GetConcurrency() int {
	n := c.viper.GetInt(KeyConcurrency)
	if n < 1 {
		return 1
	}
	return n
}

// GetDuplicatePolicy returns how repeated call ids are stored
func (c *Configuration) GetDuplicatePolicy() string {
	return c.viper.GetString(KeyDuplicatePolicy)
}

// GetMetricsTextfilePath returns where run metrics are exported; empty disables export
func (c *Configuration) GetMetricsTextfilePath() string {
	return c.viper.GetString(KeyMetricsTextfile)
}
