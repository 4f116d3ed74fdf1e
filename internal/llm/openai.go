package llm

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, Ollama, vLLM).
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

// NewOpenAIProvider creates a provider for cfg.BaseURL
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		language: cfg.Language,
		logger:   logger.Named("llm"),
	}
}

// Suggest implements Provider
func (p *OpenAIProvider) Suggest(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req, p.language)
	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		p.logger.Warn("LLM request failed",
			zap.String("target", req.Target()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", classify(req, ErrEmptyResponse)
	}

	text := cleanResponse(resp.Choices[0].Message.Content)
	if text == "" {
		return "", classify(req, ErrEmptyResponse)
	}

	p.logger.Debug("LLM request completed",
		zap.String("target", req.Target()),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}
