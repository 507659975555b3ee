// Package cli implements the mailpilot-cli commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/di"
	"github.com/mikey/mailpilot/internal/factory"
)

// app carries the global flags to every subcommand
type app struct {
	flags   *di.CLIFlags
	jsonOut bool
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "mailpilot-cli",
		Short: "Analyze email and complete verification flows from the command line",
		Long: `mailpilot-cli runs the mailpilot analysis cascade and verification workflow
against a single message without starting the HTTP server.

Messages are read as RFC 5322 files (.eml) from --file or stdin, or given
inline with --text. Remote providers come from the configuration file;
use --offline to answer with the local engine only.`,
		SilenceUsage: true,
	}
	a.flags = di.RegisterFlags(root)
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newAnalyzeCmd(a),
		newRespondCmd(a),
		newActionsCmd(a),
		newSummarizeCmd(a),
		newExtractCmd(a),
		newVerifyCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// invoke builds the CLI container and runs fn with its dependencies injected
func (a *app) invoke(fn interface{}) error {
	container, err := di.BuildCLIContainer(a.flags)
	if err != nil {
		return err
	}
	defer closeProviders(container)
	return container.Invoke(fn)
}

func closeProviders(container *dig.Container) {
	_ = container.Invoke(func(pf *factory.ProviderFactory, logger *zap.Logger) {
		if err := pf.Close(); err != nil {
			logger.Warn("Failed to close provider clients", zap.Error(err))
		}
		_ = logger.Sync()
	})
}
