// Package browser implements the browser-automation collaborator on go-rod.
package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
)

// DefaultCompletionSelector is waited on when no selector is configured
const DefaultCompletionSelector = "body"

// Config controls how browsers are launched
type Config struct {
	Headless           bool
	CompletionSelector string
	UserAgent          string
	// ExecPath points at a Chrome/Chromium binary; empty lets rod find or fetch one
	ExecPath string
}

// Browser launches one sandboxed headless browser per session
type Browser struct {
	cfg    Config
	logger *zap.Logger
}

// NewBrowser creates a new browser collaborator
func NewBrowser(cfg Config, logger *zap.Logger) *Browser {
	if cfg.CompletionSelector == "" {
		cfg.CompletionSelector = DefaultCompletionSelector
	}
	return &Browser{cfg: cfg, logger: logger}
}

// NewSession launches a browser with a throwaway profile and opens a blank page
func (b *Browser) NewSession(ctx context.Context) (core.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userDir, err := os.MkdirTemp("", "mailpilot-browser-")
	if err != nil {
		return nil, fmt.Errorf("failed to create browser profile: %w", err)
	}

	l := launcher.New().
		Headless(b.cfg.Headless).
		UserDataDir(userDir).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage")
	if b.cfg.ExecPath != "" {
		l = l.Bin(b.cfg.ExecPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		_ = os.RemoveAll(userDir)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &session{
		launcher: l,
		userDir:  userDir,
		selector: b.cfg.CompletionSelector,
		logger:   b.logger,
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if b.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	s.page = page

	b.logger.Debug("Browser session started", zap.String("profile", userDir))
	return s, nil
}

type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	userDir  string
	selector string
	logger   *zap.Logger
}

// Navigate loads url and waits for the load event
func (s *session) Navigate(ctx context.Context, url string) (*core.Page, error) {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}
	return &core.Page{URL: info.URL, Title: info.Title}, nil
}

// WaitForCompletionSignal waits for the completion selector to become visible and returns its text
func (s *session) WaitForCompletionSignal(ctx context.Context, _ *core.Page, timeout time.Duration) (string, error) {
	page := s.page.Context(ctx).Timeout(timeout)

	el, err := page.Element(s.selector)
	if err != nil {
		return "", fmt.Errorf("completion signal %q not found: %w", s.selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return "", fmt.Errorf("completion signal %q not visible: %w", s.selector, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read completion signal: %w", err)
	}
	return text, nil
}

// Close shuts the browser down and removes its profile
func (s *session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	if rmErr := os.RemoveAll(s.userDir); rmErr != nil && err == nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
