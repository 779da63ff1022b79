package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"learningfun/internal/config"
)

// NewProvider builds the configured provider wrapped with logging. An empty
// provider name returns ErrNotConfigured.
func NewProvider(ctx context.Context, cfg config.LLM, log *zap.Logger) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "":
		return nil, ErrNotConfigured
	case "anthropic":
		p, err = NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case "openai":
		p, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case "gemini":
		p, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "mock":
		p = NewMock()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithLogging(p, log.Named("llm"), cfg.Timeout), nil
}

// NewImageReader returns an OpenAI image reader when an OpenAI key is set,
// regardless of which provider generates text.
func NewImageReader(cfg config.LLM, log *zap.Logger) (ImageReader, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrNotConfigured
	}
	o, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}
	return WithLogging(o, log.Named("llm"), cfg.Timeout).(ImageReader), nil
}
