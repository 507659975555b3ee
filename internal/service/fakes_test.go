package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/mailpilot/internal/core"
)

// callLog records provider attempts in order across providers
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeProvider struct {
	name     string
	log      *callLog
	err      error
	delay    time.Duration
	panicMsg string

	result  *core.AnalysisResult
	reply   string
	actions *core.ActionItemsResult
	summary *core.ThreadSummary
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) enter() error {
	if p.log != nil {
		p.log.add(p.name)
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.delay > 0 {
		// Ignores cancellation on purpose
		time.Sleep(p.delay)
	}
	return p.err
}

func (p *fakeProvider) Analyze(_ context.Context, _ *core.AnalysisRequest) (*core.AnalysisResult, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	if p.result == nil {
		return nil, nil
	}
	copied := *p.result
	return &copied, nil
}

func (p *fakeProvider) GenerateResponse(_ context.Context, _ *core.ResponseRequest) (string, error) {
	if err := p.enter(); err != nil {
		return "", err
	}
	return p.reply, nil
}

func (p *fakeProvider) ExtractActions(_ context.Context, _ string) (*core.ActionItemsResult, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	return p.actions, nil
}

func (p *fakeProvider) SummarizeThread(_ context.Context, _ []core.ThreadMessage) (*core.ThreadSummary, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	return p.summary, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]core.AnalysisResult
	getErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]core.AnalysisResult)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*core.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	r, ok := c.entries[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return &r, nil
}

func (c *fakeCache) Set(_ context.Context, key string, result *core.AnalysisResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = *result
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Cleanup(context.Context) error { return nil }

var errProvider = errors.New("provider exploded")
