// Package imap implements the mailbox collaborator over IMAP4rev1.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/mailparse"
	"github.com/mikey/mailpilot/internal/core"
)

// Config holds the connection settings for a single IMAP account
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Folder         string
	TLS            bool
	ConnectRetries int
	// SearchWindow limits searches to messages received within the window; zero disables the limit
	SearchWindow time.Duration
	Timeout      time.Duration
}

// Mailbox opens IMAP sessions
type Mailbox struct {
	cfg    Config
	logger *zap.Logger
}

// NewMailbox creates a new IMAP mailbox
func NewMailbox(cfg Config, logger *zap.Logger) *Mailbox {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.ConnectRetries < 0 {
		cfg.ConnectRetries = 0
	}
	return &Mailbox{cfg: cfg, logger: logger}
}

// Connect dials, logs in and selects the folder read-only, retrying with exponential backoff
func (m *Mailbox) Connect(ctx context.Context) (core.MailboxSession, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var c *client.Client
	attempt := 0
	operation := func() error {
		attempt++
		conn, err := m.dial(addr)
		if err != nil {
			m.logger.Warn("IMAP dial failed",
				zap.String("address", addr),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		if err := conn.Login(m.cfg.Username, m.cfg.Password); err != nil {
			m.logger.Warn("IMAP login failed",
				zap.String("address", addr),
				zap.Int("attempt", attempt),
				zap.Error(err))
			_ = conn.Logout()
			return err
		}
		c = conn
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(m.cfg.ConnectRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", core.ErrMailboxUnavailable, addr, err)
	}

	if _, err := c.Select(m.cfg.Folder, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: select %s: %w", core.ErrMailboxUnavailable, m.cfg.Folder, err)
	}

	m.logger.Debug("IMAP session opened",
		zap.String("address", addr),
		zap.String("folder", m.cfg.Folder))

	return &session{
		client: c,
		window: m.cfg.SearchWindow,
		logger: m.logger,
	}, nil
}

func (m *Mailbox) dial(addr string) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}

	var (
		c   *client.Client
		err error
	)
	if m.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: m.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, err
	}
	if m.cfg.Timeout > 0 {
		c.Timeout = m.cfg.Timeout
	}
	return c, nil
}

type session struct {
	client *client.Client
	window time.Duration
	logger *zap.Logger
}

// SearchRecentFrom fetches the newest messages whose From header matches sender
func (s *session) SearchRecentFrom(ctx context.Context, sender string, limit int) ([]core.Message, error) {
	// go-imap v1 has no context support; drop the connection when ctx ends
	stop := context.AfterFunc(ctx, func() { _ = s.client.Terminate() })
	defer stop()

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", sender)
	if s.window > 0 {
		criteria.Since = time.Now().Add(-s.window)
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages from %s: %w", sender, err)
	}
	if len(uids) == 0 {
		return []core.Message{}, nil
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	fetched := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, fetched)
	}()

	messages := make([]core.Message, 0, len(uids))
	for msg := range fetched {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		parsed, err := mailparse.Parse(body)
		if err != nil {
			s.logger.Warn("Failed to parse fetched message",
				zap.Uint32("uid", msg.Uid),
				zap.Error(err))
			continue
		}
		if parsed.ID == "" {
			parsed.ID = strconv.FormatUint(uint64(msg.Uid), 10)
		}
		if parsed.Date.IsZero() {
			parsed.Date = msg.InternalDate
		}
		messages = append(messages, *parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages from %s: %w", sender, err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Date.After(messages[j].Date)
	})
	return messages, nil
}

// Disconnect logs out and closes the connection
func (s *session) Disconnect() error {
	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}
