package factory

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/service"
	"github.com/mikey/mailpilot/internal/utils"
)

// ProviderFactory builds the ordered provider list from providers.order
type ProviderFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	closers       []io.Closer
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ProviderFactory {
	return &ProviderFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateProviders returns every enabled provider in configured order.
// Unknown names and duplicates are rejected; a misconfigured enabled provider is an error.
func (f *ProviderFactory) CreateProviders(ctx context.Context) ([]service.ProviderConfig, error) {
	seen := make(map[string]bool)
	var providers []service.ProviderConfig

	for _, name := range f.cfg.GetProviderOrder() {
		if seen[name] {
			return nil, fmt.Errorf("provider %s listed more than once", name)
		}
		seen[name] = true

		pc := f.cfg.GetProvider(name)
		if !pc.Enabled {
			f.logger.Debug("Provider disabled", zap.String("provider", name))
			continue
		}

		provider, err := f.create(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
		}
		providers = append(providers, service.ProviderConfig{Provider: provider, Timeout: pc.Timeout})
		f.logger.Info("Provider enabled",
			zap.String("provider", name),
			zap.String("model", pc.Model),
			zap.Duration("timeout", pc.Timeout))
	}

	if len(providers) == 0 {
		f.logger.Warn("No remote providers enabled, all requests use the local engine")
	}
	return providers, nil
}

func (f *ProviderFactory) create(ctx context.Context, name string) (core.Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger, f.textProcessor).CreateProvider()
	case "anthropic":
		return NewAnthropicFactory(f.cfg, f.logger, f.textProcessor).CreateProvider()
	case "gemini":
		provider, client, err := NewGeminiFactory(f.cfg, f.logger, f.textProcessor).CreateProvider(ctx)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, client)
		return provider, nil
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateProvider(ctx)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// Breaker returns the circuit breaker settings, or nil when breaking is disabled
func (f *ProviderFactory) Breaker() *service.BreakerSettings {
	b := f.cfg.GetBreaker()
	if !b.Enabled {
		return nil
	}
	return &service.BreakerSettings{MaxFailures: b.MaxFailures, OpenTimeout: b.OpenTimeout}
}

// Close releases vendor clients that hold connections
func (f *ProviderFactory) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}
