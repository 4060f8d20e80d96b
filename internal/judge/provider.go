// Package judge delegates rubric scoring to an external natural-language judgment provider.
// The Adapter composes the instructions, calls the provider once, and turns the reply into
// verdicts; a failing provider yields no verdicts rather than an error.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Supported provider names
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

var (
	// ErrMissingAPIKey is returned when a remote provider is configured without a credential
	ErrMissingAPIKey = errors.New("judgment provider API key is missing")

	// ErrEmptyResponse is returned when the provider answers without content
	ErrEmptyResponse = errors.New("judgment provider returned an empty response")
)

// Prompt is the request sent to a provider
type Prompt struct {
	System string
	User   string
}

// Size returns the prompt length in bytes
func (p Prompt) Size() int64 {
	return int64(len(p.System) + len(p.User))
}

// Provider is a single blocking call from prompt to raw model text
type Provider interface {
	// Name identifies the provider in logs
	Name() string

	// Complete sends the prompt and returns the provider's raw reply
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, prompt Prompt) (string, error)

// Name implements Provider
func (f ProviderFunc) Name() string { return "func" }

// Complete implements Provider
func (f ProviderFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// UnknownProviderError reports a provider name that is not supported
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown judgment provider %q", e.Name)
}

// ProviderSettings selects and configures a provider
type ProviderSettings struct {
	Name         string
	OpenAI       OpenAIConfig
	CriteriaKeys []string
}

// NewProvider builds the provider named in settings
func NewProvider(settings ProviderSettings, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Name)) {
	case "", ProviderOpenAI:
		p, err := NewOpenAIProvider(settings.OpenAI, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", ProviderOpenAI, err)
		}
		return p, nil
	case ProviderMock:
		return NewMockProvider(settings.CriteriaKeys, 2), nil
	default:
		return nil, &UnknownProviderError{Name: settings.Name}
	}
}
