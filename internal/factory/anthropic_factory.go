package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/anthropic"
	"github.com/mikey/mailpilot/internal/adapters/llm"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/utils"
)

// AnthropicFactory creates Anthropic providers
type AnthropicFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAnthropicFactory creates a new Anthropic factory
func NewAnthropicFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AnthropicFactory {
	return &AnthropicFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates an Anthropic provider
func (f *AnthropicFactory) CreateProvider() (core.Provider, error) {
	pc := f.cfg.GetProvider("anthropic")
	if pc.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	completer := anthropic.NewAnthropicClient(
		pc.APIKey,
		pc.BaseURL,
		pc.Model,
		pc.MaxTokens,
		pc.Temperature,
		pc.Timeout,
		f.logger,
	)
	return llm.NewAdapter("anthropic", completer, pc.MaxBodySize, f.textProcessor, f.logger), nil
}
