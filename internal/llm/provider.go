// Package llm is the AI-suggestion collaborator: it asks a text-completion
// model for object and column descriptions.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tordrt/schemadoc/internal/retry"
)

// Provider produces a description for a request
type Provider interface {
	Suggest(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, req Request) (string, error)

// Suggest calls f
func (f ProviderFunc) Suggest(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config selects and configures a provider
type Config struct {
	Provider   string // openai or anthropic
	BaseURL    string
	Model      string
	APIKey     string
	Language   string
	Timeout    time.Duration
	MaxRetries int
}

// New creates the configured provider wrapped with retries
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Language == "" {
		cfg.Language = "Brazilian Portuguese"
	}

	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for the openai provider")
		}
		p = NewOpenAIProvider(cfg, logger)
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for the anthropic provider")
		}
		p = NewAnthropicProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: openai, anthropic)", cfg.Provider)
	}

	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.MaxRetries
	return WithRetry(p, rc, cfg.Timeout), nil
}

// WithRetry retries retryable failures of p. A positive timeout bounds each attempt.
func WithRetry(p Provider, cfg *retry.Config, timeout time.Duration) Provider {
	return ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		return retry.DoWithResult(ctx, cfg, func() (string, error) {
			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			text, err := p.Suggest(callCtx, req)
			if err != nil {
				return "", classify(req, err)
			}
			return text, nil
		})
	})
}
