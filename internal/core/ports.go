package core

import (
	"context"
	"time"
)

// Provider is the capability interface implemented once per remote AI vendor
type Provider interface {
	// Name identifies the provider in results, logs and metrics
	Name() string

	// Analyze classifies a message
	Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error)

	// GenerateResponse drafts a reply to a message
	GenerateResponse(ctx context.Context, req *ResponseRequest) (string, error)

	// ExtractActions pulls tasks out of a message
	ExtractActions(ctx context.Context, text string) (*ActionItemsResult, error)

	// SummarizeThread condenses a conversation
	SummarizeThread(ctx context.Context, messages []ThreadMessage) (*ThreadSummary, error)
}

// CacheRepository stores analysis results keyed by a request fingerprint
type CacheRepository interface {
	// Get retrieves a cached result, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) (*AnalysisResult, error)

	// Set stores a result for the given duration
	Set(ctx context.Context, key string, result *AnalysisResult, ttl time.Duration) error

	// Delete removes a cached result
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// Mailbox opens sessions against a remote mail store
type Mailbox interface {
	Connect(ctx context.Context) (MailboxSession, error)
}

// MailboxSession is a connected mailbox owned by a single caller
type MailboxSession interface {
	// SearchRecentFrom returns up to limit of the newest messages from sender, newest first
	SearchRecentFrom(ctx context.Context, sender string, limit int) ([]Message, error)

	// Disconnect releases the connection
	Disconnect() error
}

// Browser opens headless browser sessions
type Browser interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is a browser context owned by a single caller
type BrowserSession interface {
	// Navigate loads url and returns the resulting page
	Navigate(ctx context.Context, url string) (*Page, error)

	// WaitForCompletionSignal blocks until the page reports completion or timeout elapses
	WaitForCompletionSignal(ctx context.Context, page *Page, timeout time.Duration) (string, error)

	// Close releases the session
	Close() error
}
