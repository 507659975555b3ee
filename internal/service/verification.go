package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/extract"
	"github.com/mikey/mailpilot/internal/metrics"
	"github.com/mikey/mailpilot/internal/whitelist"
)

// Verification defaults
const (
	DefaultPollInterval      = 5 * time.Second
	DefaultFreshnessWindow   = 5 * time.Minute
	DefaultVerifyTimeout     = 2 * time.Minute
	DefaultCompletionTimeout = 30 * time.Second
	DefaultSearchLimit       = 5
)

// VerificationConfig tunes the polling loop
type VerificationConfig struct {
	PollInterval      time.Duration
	FreshnessWindow   time.Duration
	DefaultTimeout    time.Duration
	CompletionTimeout time.Duration
	SearchLimit       int
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = DefaultFreshnessWindow
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultVerifyTimeout
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = DefaultCompletionTimeout
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	return c
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// VerifierOption customises a Verifier
type VerifierOption func(*Verifier)

// WithClock replaces the wall clock and sleeper
func WithClock(now func() time.Time, sleep SleepFunc) VerifierOption {
	return func(v *Verifier) {
		v.now = now
		v.sleep = sleep
	}
}

// WithTaskIDs replaces the task id generator
func WithTaskIDs(newID func() string) VerifierOption {
	return func(v *Verifier) {
		v.newID = newID
	}
}

// Verifier waits for a verification email and follows its link in a browser
type Verifier struct {
	mailbox core.Mailbox
	browser core.Browser
	allow   *whitelist.Checker
	cfg     VerificationConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
	sleep   SleepFunc
	newID   func() string
}

// NewVerifier creates a verification workflow runner
func NewVerifier(
	mailbox core.Mailbox,
	browser core.Browser,
	allow *whitelist.Checker,
	cfg VerificationConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...VerifierOption,
) *Verifier {
	v := &Verifier{
		mailbox: mailbox,
		browser: browser,
		allow:   allow,
		cfg:     cfg.withDefaults(),
		metrics: m,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewTask creates a task for sender. A non-positive timeout uses the configured default.
func (v *Verifier) NewTask(sender string, timeout time.Duration) core.VerificationTask {
	if timeout <= 0 {
		timeout = v.cfg.DefaultTimeout
	}
	return core.VerificationTask{
		ID:              v.newID(),
		Sender:          strings.TrimSpace(sender),
		Deadline:        v.now().Add(timeout),
		FreshnessWindow: v.cfg.FreshnessWindow,
	}
}

// Run waits for a message from sender until deadline and completes its verification link
func (v *Verifier) Run(ctx context.Context, sender string, deadline time.Time) (*core.VerificationOutcome, error) {
	task := core.VerificationTask{
		ID:              v.newID(),
		Sender:          strings.TrimSpace(sender),
		Deadline:        deadline,
		FreshnessWindow: v.cfg.FreshnessWindow,
	}
	return v.Execute(ctx, task)
}

// Execute drives task through the verification state machine. A task past its
// deadline times out before any session is opened. The browser is launched only
// once a link has been found, and navigation is bounded by the completion timeout.
func (v *Verifier) Execute(ctx context.Context, task core.VerificationTask) (*core.VerificationOutcome, error) {
	if task.Sender == "" {
		return nil, fmt.Errorf("%w: sender is required", core.ErrInvalidInput)
	}
	if !v.allow.Allows(task.Sender) {
		return nil, fmt.Errorf("%w: sender %q is not in the allowed domains", core.ErrInvalidInput, task.Sender)
	}
	if task.FreshnessWindow <= 0 {
		task.FreshnessWindow = v.cfg.FreshnessWindow
	}
	if task.ID == "" {
		task.ID = v.newID()
	}

	logger := v.logger.With(zap.String("task_id", task.ID), zap.String("sender", task.Sender))
	logger.Info("Verification task started",
		zap.String("state", string(core.StateIdle)),
		zap.Time("deadline", task.Deadline))

	if !v.now().Before(task.Deadline) {
		return nil, v.fail(logger, core.StateTimedOut, core.NewVerificationError(core.ErrVerificationTimedOut, task.ID,
			fmt.Errorf("deadline %s already passed", task.Deadline.Format(time.RFC3339))))
	}

	mailSession, err := v.mailbox.Connect(ctx)
	if err != nil {
		return nil, v.fail(logger, core.StateVerificationFailed, core.NewVerificationError(core.ErrMailboxUnavailable, task.ID, err))
	}
	defer release(logger, "mailbox", mailSession.Disconnect)

	msg, polls, err := v.poll(ctx, logger, task, mailSession)
	if err != nil {
		state := core.StateVerificationFailed
		if errors.Is(err, core.ErrVerificationTimedOut) {
			state = core.StateTimedOut
		}
		return nil, v.fail(logger, state, err)
	}
	logger.Info("Verification message found",
		zap.String("state", string(core.StateMatchFound)),
		zap.String("subject", msg.Subject),
		zap.Time("date", msg.Date),
		zap.Int("polls", polls))

	artifact := extract.Artifacts(msg.Content())
	link := artifact.Link()
	if link == "" {
		return nil, v.fail(logger, core.StateVerificationFailed,
			core.NewVerificationError(core.ErrNoVerificationLinkFound, task.ID, fmt.Errorf("message %q has no verification link", msg.Subject)))
	}

	logger.Info("Following verification link",
		zap.String("state", string(core.StateVerifying)),
		zap.String("link", link))

	browserSession, err := v.browser.NewSession(ctx)
	if err != nil {
		return nil, v.fail(logger, core.StateVerificationFailed, core.NewVerificationError(core.ErrAutomationFailed, task.ID, err))
	}
	defer release(logger, "browser", browserSession.Close)

	navCtx, cancel := context.WithTimeout(ctx, v.cfg.CompletionTimeout)
	page, err := browserSession.Navigate(navCtx, link)
	cancel()
	if err != nil {
		return nil, v.fail(logger, core.StateVerificationFailed, core.NewVerificationError(core.ErrAutomationFailed, task.ID, err))
	}
	completion, err := browserSession.WaitForCompletionSignal(ctx, page, v.cfg.CompletionTimeout)
	if err != nil {
		return nil, v.fail(logger, core.StateVerificationFailed, core.NewVerificationError(core.ErrAutomationFailed, task.ID, err))
	}

	outcome := &core.VerificationOutcome{
		TaskID:         task.ID,
		Sender:         task.Sender,
		State:          core.StateCompleted,
		Link:           link,
		Code:           artifact.Code,
		CompletionText: completion,
		MessageSubject: msg.Subject,
		MessageDate:    msg.Date,
		Polls:          polls,
		CompletedAt:    v.now(),
	}
	v.metrics.VerificationOutcome(string(core.StateCompleted))
	logger.Info("Verification completed", zap.String("state", string(core.StateCompleted)))
	return outcome, nil
}

// poll searches the mailbox at a fixed interval until a fresh message arrives or the deadline passes
func (v *Verifier) poll(
	ctx context.Context,
	logger *zap.Logger,
	task core.VerificationTask,
	session core.MailboxSession,
) (*core.Message, int, error) {
	polls := 0
	for {
		now := v.now()
		if !now.Before(task.Deadline) {
			return nil, polls, core.NewVerificationError(core.ErrVerificationTimedOut, task.ID,
				fmt.Errorf("no fresh message from %s after %d polls", task.Sender, polls))
		}

		logger.Debug("Polling mailbox", zap.String("state", string(core.StatePolling)), zap.Int("poll", polls+1))
		messages, err := searchRecent(ctx, session, task.Sender, v.cfg.SearchLimit)
		polls++
		if err != nil {
			if ctx.Err() != nil {
				return nil, polls, core.NewVerificationError(core.ErrVerificationTimedOut, task.ID, ctx.Err())
			}
			return nil, polls, core.NewVerificationError(core.ErrMailboxUnavailable, task.ID, err)
		}

		if msg := freshest(messages, v.now(), task.FreshnessWindow); msg != nil {
			return msg, polls, nil
		}

		wait := v.cfg.PollInterval
		if remaining := task.Deadline.Sub(v.now()); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			if err := v.sleep(ctx, wait); err != nil {
				return nil, polls, core.NewVerificationError(core.ErrVerificationTimedOut, task.ID, err)
			}
		}
	}
}

// searchRecent turns a panicking mailbox into an error so the caller's cleanup still runs
func searchRecent(ctx context.Context, session core.MailboxSession, sender string, limit int) (messages []core.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailbox search panicked: %v", r)
		}
	}()
	return session.SearchRecentFrom(ctx, sender, limit)
}

// freshest returns the newest message no older than window, or nil
func freshest(messages []core.Message, now time.Time, window time.Duration) *core.Message {
	var best *core.Message
	for i := range messages {
		m := &messages[i]
		if now.Sub(m.Date) > window {
			continue
		}
		if best == nil || m.Date.After(best.Date) {
			best = m
		}
	}
	return best
}

func (v *Verifier) fail(logger *zap.Logger, state core.VerificationState, err error) error {
	v.metrics.VerificationOutcome(string(state))
	logger.Warn("Verification failed", zap.String("state", string(state)), zap.Error(err))
	return err
}

// release runs closeFn and logs its error
func release(logger *zap.Logger, resource string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("Failed to release resource", zap.String("resource", resource), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
