// Package inbox implements a mailbox collaborator fed by an embedded SMTP receiver.
package inbox

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/mailparse"
	"github.com/mikey/mailpilot/internal/core"
)

// DefaultMaxMessages is the ring size used when none is configured
const DefaultMaxMessages = 500

// Config holds the receiver settings
type Config struct {
	ListenAddress string
	Domain        string
	MaxMessages   int
	// RelayAddress, when set, receives a copy of every accepted message
	RelayAddress string
}

type storedMessage struct {
	msg          core.Message
	envelopeFrom string
}

// Inbox accepts mail for any recipient and keeps the newest messages in memory
type Inbox struct {
	cfg    Config
	logger *zap.Logger
	server *smtp.Server
	addr   net.Addr
	now    func() time.Time

	mu    sync.RWMutex
	ring  []storedMessage
	next  int
	count int
}

// NewInbox creates a new SMTP inbox
func NewInbox(cfg Config, logger *zap.Logger) *Inbox {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}
	return &Inbox{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		ring:   make([]storedMessage, cfg.MaxMessages),
	}
}

// Start binds the listen address and serves SMTP in the background
func (b *Inbox) Start() error {
	l, err := net.Listen("tcp", b.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.cfg.ListenAddress, err)
	}

	b.server = smtp.NewServer(&smtpBackend{inbox: b})
	b.server.Addr = b.cfg.ListenAddress
	b.server.Domain = b.cfg.Domain
	b.server.ReadTimeout = 30 * time.Second
	b.server.WriteTimeout = 30 * time.Second
	b.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	b.server.MaxRecipients = 50

	b.mu.Lock()
	b.addr = l.Addr()
	b.mu.Unlock()

	b.logger.Info("SMTP inbox starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := b.server.Serve(l); err != nil && err != smtp.ErrServerClosed {
			b.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop closes the listener and all open SMTP connections
func (b *Inbox) Stop() error {
	if b.server != nil {
		return b.server.Close()
	}
	return nil
}

// Addr returns the bound address, or an empty string before Start
func (b *Inbox) Addr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.addr == nil {
		return ""
	}
	return b.addr.String()
}

// Store parses raw and adds it to the ring, evicting the oldest message when full
func (b *Inbox) Store(raw []byte, envelopeFrom string) (*core.Message, error) {
	msg, err := mailparse.ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	if msg.Date.IsZero() {
		msg.Date = b.now()
	}
	if msg.From == "" {
		msg.From = envelopeFrom
	}

	b.mu.Lock()
	b.ring[b.next] = storedMessage{msg: *msg, envelopeFrom: envelopeFrom}
	b.next = (b.next + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}
	b.mu.Unlock()

	return msg, nil
}

// Len returns the number of messages held
func (b *Inbox) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Connect returns a session over the in-memory store. The receiver must be running.
func (b *Inbox) Connect(ctx context.Context) (core.MailboxSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMailboxUnavailable, err)
	}
	if b.Addr() == "" {
		return nil, fmt.Errorf("%w: smtp inbox is not running", core.ErrMailboxUnavailable)
	}
	return &session{inbox: b}, nil
}

func (b *Inbox) search(sender string, limit int) []core.Message {
	b.mu.RLock()
	matches := make([]core.Message, 0)
	for i := 0; i < b.count; i++ {
		stored := b.ring[i]
		if strings.EqualFold(stored.msg.From, sender) || strings.EqualFold(stored.envelopeFrom, sender) {
			matches = append(matches, stored.msg)
		}
	}
	b.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date.After(matches[j].Date)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

type session struct {
	inbox *Inbox
}

// SearchRecentFrom returns the newest stored messages from sender
func (s *session) SearchRecentFrom(ctx context.Context, sender string, limit int) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inbox.search(sender, limit), nil
}

// Disconnect is a no-op; messages stay in the inbox
func (s *session) Disconnect() error {
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	inbox *Inbox
}

// NewSession creates a new SMTP session
func (be *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{inbox: be.inbox, recipients: make([]string, 0)}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	inbox      *Inbox
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data stores the message and relays it when a relay is configured
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.inbox.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := s.inbox.Store(raw, s.sender)
	if err != nil {
		s.inbox.logger.Error("Failed to parse email message",
			zap.String("sender", s.sender),
			zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	s.inbox.logger.Info("Received email",
		zap.String("from", msg.From),
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(s.recipients)))

	if s.inbox.cfg.RelayAddress != "" {
		if err := relay(s.inbox.cfg.RelayAddress, s.sender, s.recipients, raw); err != nil {
			s.inbox.logger.Error("Failed to relay email",
				zap.String("relay", s.inbox.cfg.RelayAddress),
				zap.String("sender", s.sender),
				zap.Error(err))
		}
	}
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
