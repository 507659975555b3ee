package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/browser"
	"github.com/mikey/mailpilot/internal/adapters/imap"
	"github.com/mikey/mailpilot/internal/adapters/inbox"
	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
)

// MailboxFactory creates the mailbox and browser collaborators of the verification workflow
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailbox creates the configured mailbox. The smtp inbox also implements ports.Service
// and must be started before it can be searched.
func (f *MailboxFactory) CreateMailbox() (core.Mailbox, error) {
	mailboxType := f.cfg.GetMailboxType()

	switch mailboxType {
	case "imap":
		ic := f.cfg.GetIMAP()
		if ic.Host == "" {
			f.logger.Warn("imap.host is not set, verification will report the mailbox as unavailable")
		}
		return imap.NewMailbox(imap.Config{
			Host:           ic.Host,
			Port:           ic.Port,
			Username:       ic.Username,
			Password:       ic.Password,
			Folder:         ic.Folder,
			TLS:            ic.TLS,
			ConnectRetries: ic.ConnectRetries,
			SearchWindow:   ic.SearchWindow,
			Timeout:        ic.Timeout,
		}, f.logger), nil
	case "smtp":
		ib := f.cfg.GetInbox()
		return inbox.NewInbox(inbox.Config{
			ListenAddress: ib.ListenAddress,
			Domain:        ib.Domain,
			MaxMessages:   ib.MaxMessages,
			RelayAddress:  ib.RelayAddress,
		}, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mailbox type: %s", mailboxType)
	}
}

// CreateBrowser creates the headless browser collaborator
func (f *MailboxFactory) CreateBrowser() core.Browser {
	bc := f.cfg.GetBrowser()
	return browser.NewBrowser(browser.Config{
		Headless:           bc.Headless,
		CompletionSelector: bc.CompletionSelector,
		UserAgent:          bc.UserAgent,
		ExecPath:           bc.ExecPath,
	}, f.logger)
}
