package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/mailpilot/internal/adapters/mailparse"
	"github.com/mikey/mailpilot/internal/core"
)

// addInputFlags registers the flags every message-reading command shares
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "message file in RFC 5322 format (stdin if not specified)")
	cmd.Flags().String("text", "", "message body given inline instead of a file")
	cmd.Flags().String("subject", "", "subject to use with --text")
}

// readMessage loads the message named by the input flags
func readMessage(cmd *cobra.Command) (*core.Message, error) {
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		subject, _ := cmd.Flags().GetString("subject")
		return &core.Message{Subject: subject, Text: text}, nil
	}

	path, _ := cmd.Flags().GetString("file")
	return loadMessage(path, cmd.InOrStdin())
}

// loadMessage parses the file at path, or stdin when path is empty or "-"
func loadMessage(path string, stdin io.Reader) (*core.Message, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening message: %w", err)
		}
		defer f.Close()
		r = f
	}

	msg, err := mailparse.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" && msg.Subject == "" {
		return nil, fmt.Errorf("%w: message has no subject or body", core.ErrInvalidInput)
	}
	return msg, nil
}
