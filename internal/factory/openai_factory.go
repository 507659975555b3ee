package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/llm"
	"github.com/mikey/mailpilot/internal/adapters/openai"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/utils"
)

// OpenAIFactory creates OpenAI providers
type OpenAIFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates an OpenAI provider. An API key is optional only for custom base URLs.
func (f *OpenAIFactory) CreateProvider() (core.Provider, error) {
	pc := f.cfg.GetProvider("openai")
	if pc.APIKey == "" && pc.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	completer := openai.NewOpenAIClient(
		openai.NewClient(pc.APIKey, pc.BaseURL),
		pc.Model,
		pc.MaxTokens,
		pc.Temperature,
		pc.TopP,
		pc.JSONMode,
		f.logger,
	)
	return llm.NewAdapter("openai", completer, pc.MaxBodySize, f.textProcessor, f.logger), nil
}
