package di

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/api"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/factory"
	"github.com/mikey/mailpilot/internal/heuristics"
	"github.com/mikey/mailpilot/internal/logging"
	"github.com/mikey/mailpilot/internal/metrics"
	"github.com/mikey/mailpilot/internal/service"
	"github.com/mikey/mailpilot/internal/utils"
	"github.com/mikey/mailpilot/internal/whitelist"
)

// BuildContainer creates and configures the dependency injection container for the server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register prometheus registry and collectors
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return reg
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Metrics {
		return metrics.New(reg)
	}); err != nil {
		return nil, err
	}

	if err := provideVerification(container); err != nil {
		return nil, err
	}

	// Register HTTP handlers
	if err := container.Provide(func(
		orch *service.Orchestrator,
		verifier *service.Verifier,
		reg *prometheus.Registry,
		logger *zap.Logger,
	) *api.Handlers {
		return api.New(orch, verifier, metrics.Handler(reg), logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers the analysis stack shared by the server and the CLI
func provideCommon(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(factory.NewProviderFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}

	// Register provider cascade
	if err := container.Provide(func(f *factory.ProviderFactory) ([]service.ProviderConfig, error) {
		return f.CreateProviders(context.Background())
	}); err != nil {
		return err
	}

	// Register cache repository; nil when caching is disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository(context.Background())
	}); err != nil {
		return err
	}

	// Register local engine
	if err := container.Provide(heuristics.NewEngine); err != nil {
		return err
	}

	// Register orchestrator
	return container.Provide(func(
		providers []service.ProviderConfig,
		local *heuristics.Engine,
		cache core.CacheRepository,
		pf *factory.ProviderFactory,
		cf *factory.CacheFactory,
		m *metrics.Metrics,
		logger *zap.Logger,
	) *service.Orchestrator {
		var ttl time.Duration
		if cache != nil {
			ttl = cf.GetCacheTTL()
		}
		return service.NewOrchestrator(providers, local, logger, service.OrchestratorOptions{
			Cache:    cache,
			CacheTTL: ttl,
			Breaker:  pf.Breaker(),
			Metrics:  m,
		})
	})
}

// provideVerification registers the mailbox, browser and verification workflow
func provideVerification(container *dig.Container) error {
	// Register mailbox and browser
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.MailboxFactory) (core.Mailbox, error) {
		return f.CreateMailbox()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.MailboxFactory) core.Browser {
		return f.CreateBrowser()
	}); err != nil {
		return err
	}

	// Register sender whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetVerification().AllowedSenderDomains, logger)
	}); err != nil {
		return err
	}

	// Register verifier
	return container.Provide(func(
		cfg *config.Config,
		mailbox core.Mailbox,
		browser core.Browser,
		allow *whitelist.Checker,
		m *metrics.Metrics,
		logger *zap.Logger,
	) *service.Verifier {
		vc := cfg.GetVerification()
		return service.NewVerifier(mailbox, browser, allow, service.VerificationConfig{
			PollInterval:      vc.PollInterval,
			FreshnessWindow:   vc.FreshnessWindow,
			DefaultTimeout:    vc.DefaultTimeout,
			CompletionTimeout: vc.CompletionTimeout,
			SearchLimit:       vc.SearchLimit,
		}, m, logger)
	})
}
