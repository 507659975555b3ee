package di

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/logging"
	"github.com/mikey/mailpilot/internal/metrics"
)

// CLIFlags contains the global command line flags of the CLI application
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Providers overrides providers.order and enables each named provider
	Providers []string
	// Offline disables every remote provider so only the local engine answers
	Offline bool
	// Cache keeps the configured analysis cache; the CLI runs without one by default
	Cache bool
}

// RegisterFlags binds the global flags to cmd's persistent flag set
func RegisterFlags(cmd *cobra.Command) *CLIFlags {
	flags := &CLIFlags{}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.StringSliceVar(&flags.Providers, "providers", nil, "Provider cascade, e.g. openai,anthropic (overrides config)")
	pf.BoolVar(&flags.Offline, "offline", false, "Use only the local inference engine")
	pf.BoolVar(&flags.Cache, "cache", false, "Use the configured analysis cache")
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// No metrics for one-shot commands
	if err := container.Provide(func() *metrics.Metrics { return nil }); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}
	if err := provideVerification(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags layers the command line overrides on top of the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	if !flags.Cache {
		v.Set("cache.enabled", false)
	}

	if flags.Offline {
		v.Set("providers.order", []string{})
		return
	}

	if len(flags.Providers) > 0 {
		order := make([]string, 0, len(flags.Providers))
		for _, name := range flags.Providers {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			order = append(order, name)
			v.Set(name+".enabled", true)
		}
		v.Set("providers.order", order)
	}
}
