package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/extract"
	"github.com/mikey/mailpilot/internal/ports"
	"github.com/mikey/mailpilot/internal/service"
	"github.com/mikey/mailpilot/internal/utils"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify a message",
		Long: `Classify a message by category, priority, sentiment and urgency.

Examples:
  mailpilot-cli analyze -f message.eml
  mailpilot-cli analyze --text "Can we meet tomorrow?" --offline
  mailpilot-cli analyze -f suspicious.eml --depth security --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd)
			if err != nil {
				return err
			}
			depth, _ := cmd.Flags().GetString("depth")

			return a.invoke(func(orch *service.Orchestrator, tp *utils.TextProcessor) error {
				result, err := orch.Analyze(cmd.Context(), &core.AnalysisRequest{
					Text:    tp.BodyText(msg.Text, msg.HTML),
					Sender:  msg.From,
					Subject: msg.Subject,
					Depth:   core.AnalysisDepth(depth),
				})
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), result, func(p *printer) { p.analysis(result) })
			})
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("depth", string(core.DepthComprehensive), "analysis depth: quick, comprehensive, security")
	return cmd
}

func newRespondCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Draft a reply to a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd)
			if err != nil {
				return err
			}
			tone, _ := cmd.Flags().GetString("tone")
			extra, _ := cmd.Flags().GetString("context")

			return a.invoke(func(orch *service.Orchestrator, tp *utils.TextProcessor) error {
				reply, err := orch.GenerateResponse(cmd.Context(), &core.ResponseRequest{
					OriginalText: tp.BodyText(msg.Text, msg.HTML),
					Context:      extra,
					Tone:         core.Tone(tone),
				})
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), reply, func(p *printer) { p.response(reply) })
			})
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("tone", string(core.ToneProfessional), "reply tone: professional, friendly, formal, casual")
	cmd.Flags().String("context", "", "additional context for the reply")
	return cmd
}

func newActionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the action items in a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd)
			if err != nil {
				return err
			}

			return a.invoke(func(orch *service.Orchestrator, tp *utils.TextProcessor) error {
				result, err := orch.ExtractActions(cmd.Context(), tp.BodyText(msg.Text, msg.HTML))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), result, func(p *printer) { p.actions(result) })
			})
		},
	}
	addInputFlags(cmd)
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <message.eml>...",
		Short: "Summarize a thread given as message files in order",
		Long: `Summarize a thread. Each argument is one message of the thread, oldest first.
Summaries need at least one remote provider; there is no local fallback.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(func(orch *service.Orchestrator, tp *utils.TextProcessor) error {
				thread := make([]core.ThreadMessage, 0, len(args))
				for _, path := range args {
					msg, err := loadMessage(path, cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					thread = append(thread, core.ThreadMessage{
						From:    msg.From,
						Subject: msg.Subject,
						Date:    msg.Date,
						Text:    tp.BodyText(msg.Text, msg.HTML),
					})
				}

				summary, err := orch.SummarizeThread(cmd.Context(), thread)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), summary, func(p *printer) { p.summary(summary) })
			})
		},
	}
}

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the verification links and code found in a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd)
			if err != nil {
				return err
			}
			artifact := extract.Artifacts(msg.Content())
			return a.print(cmd.OutOrStdout(), artifact, func(p *printer) { p.artifact(artifact) })
		},
	}
	addInputFlags(cmd)
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <sender>",
		Short: "Wait for a verification email from sender and follow its link",
		Long: `Poll the configured mailbox for a fresh message from sender, open the
verification link in a headless browser and wait for the completion signal.

The exit status is non-zero when the task times out, no link is found,
the mailbox is unreachable or the browser step fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			return a.invoke(func(verifier *service.Verifier, mailbox core.Mailbox) error {
				if svc, ok := mailbox.(ports.Service); ok {
					if err := svc.Start(); err != nil {
						return err
					}
					defer svc.Stop()
				}

				outcome, err := verifier.Execute(cmd.Context(), verifier.NewTask(args[0], timeout))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), outcome, func(p *printer) { p.outcome(outcome) })
			})
		},
	}
	cmd.Flags().Duration("timeout", time.Duration(0), "how long to wait (0 uses verification.default_timeout)")
	return cmd
}
