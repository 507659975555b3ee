package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/bedrock"
	"github.com/mikey/mailpilot/internal/adapters/llm"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/utils"
)

// BedrockFactory creates Bedrock providers
type BedrockFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *BedrockFactory {
	return &BedrockFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProvider creates a Bedrock provider using the default AWS credential chain
func (f *BedrockFactory) CreateProvider(ctx context.Context) (core.Provider, error) {
	pc := f.cfg.GetProvider("bedrock")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(pc.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	completer := bedrock.NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		pc.Model,
		pc.MaxTokens,
		pc.Temperature,
		pc.TopP,
		f.logger,
	)
	return llm.NewAdapter("bedrock", completer, pc.MaxBodySize, f.textProcessor, f.logger), nil
}
