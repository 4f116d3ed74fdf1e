package llm

import (
	"context"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 300

// AnthropicProvider asks Claude models through the Messages API
type AnthropicProvider struct {
	client   *anthropic.Client
	model    string
	language string
	logger   *zap.Logger
}

// NewAnthropicProvider creates a provider. cfg.BaseURL is only used when it
// does not point at the default local OpenAI-compatible endpoint.
func NewAnthropicProvider(cfg Config, logger *zap.Logger) *AnthropicProvider {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" && cfg.BaseURL != DefaultBaseURL {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		model:    cfg.Model,
		language: cfg.Language,
		logger:   logger.Named("llm"),
	}
}

// DefaultBaseURL is the local Ollama OpenAI-compatible endpoint
const DefaultBaseURL = "http://localhost:11434/v1"

// Suggest implements Provider
func (p *AnthropicProvider) Suggest(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req, p.language)
	start := time.Now()

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		p.logger.Warn("LLM request failed",
			zap.String("target", req.Target()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text = cleanResponse(*block.Text)
			break
		}
	}
	if text == "" {
		return "", classify(req, ErrEmptyResponse)
	}

	p.logger.Debug("LLM request completed",
		zap.String("target", req.Target()),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}
