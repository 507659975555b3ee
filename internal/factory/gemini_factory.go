package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/gemini"
	"github.com/mikey/mailpilot/internal/adapters/llm"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/utils"
)

// GeminiFactory creates Gemini providers
type GeminiFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *GeminiFactory {
	return &GeminiFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates a Gemini provider and the client that must be closed on shutdown
func (f *GeminiFactory) CreateProvider(ctx context.Context) (core.Provider, *gemini.GeminiClient, error) {
	pc := f.cfg.GetProvider("gemini")
	if pc.APIKey == "" {
		return nil, nil, fmt.Errorf("gemini API key is required")
	}

	client, err := gemini.NewGeminiClient(
		ctx,
		pc.APIKey,
		pc.Model,
		pc.MaxTokens,
		pc.Temperature,
		pc.TopP,
		f.logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return llm.NewAdapter("gemini", client, pc.MaxBodySize, f.textProcessor, f.logger), client, nil
}
