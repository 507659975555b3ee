// Package service holds the cascading analysis orchestrator and the email
// verification workflow.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/heuristics"
	"github.com/mikey/mailpilot/internal/metrics"
)

// Operation names used in logs and metrics
const (
	OpAnalyze   = "analyze"
	OpRespond   = "respond"
	OpActions   = "actions"
	OpSummarize = "summarize"
)

// DefaultProviderTimeout applies when a ProviderConfig has no timeout
const DefaultProviderTimeout = 30 * time.Second

// ProviderConfig is one entry of the ordered provider list
type ProviderConfig struct {
	Provider core.Provider
	Timeout  time.Duration
}

// BreakerSettings enables a circuit breaker per provider
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// OrchestratorOptions are the optional collaborators of an Orchestrator
type OrchestratorOptions struct {
	Cache    core.CacheRepository
	CacheTTL time.Duration
	Breaker  *BreakerSettings
	Metrics  *metrics.Metrics
	Now      func() time.Time
	NewID    func() string
}

type providerEntry struct {
	provider core.Provider
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// Orchestrator tries providers strictly in order and falls back to the local engine
type Orchestrator struct {
	providers []providerEntry
	local     *heuristics.Engine
	cache     core.CacheRepository
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewOrchestrator creates an orchestrator over providers, which are never reordered
func NewOrchestrator(
	providers []ProviderConfig,
	local *heuristics.Engine,
	logger *zap.Logger,
	opts OrchestratorOptions,
) *Orchestrator {
	o := &Orchestrator{
		local:    local,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if o.local == nil {
		o.local = heuristics.NewEngine()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}

	for _, pc := range providers {
		if pc.Provider == nil {
			continue
		}
		entry := providerEntry{provider: pc.Provider, timeout: pc.Timeout}
		if entry.timeout <= 0 {
			entry.timeout = DefaultProviderTimeout
		}
		if opts.Breaker != nil {
			entry.breaker = newBreaker(pc.Provider.Name(), *opts.Breaker, logger)
		}
		o.providers = append(o.providers, entry)
	}

	names := o.Providers()
	logger.Info("Initialized orchestrator",
		zap.Strings("providers", names),
		zap.Bool("cache", o.cache != nil),
		zap.Bool("circuit_breaker", opts.Breaker != nil))
	return o
}

func newBreaker(name string, s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Providers lists the configured provider names in attempt order
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for _, e := range o.providers {
		names = append(names, e.provider.Name())
	}
	return names
}

// Analyze returns a result from the first provider that answers, or from the local engine.
// Only invalid input produces an error.
func (o *Orchestrator) Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := CacheKey(req)
	if cached := o.cachedResult(ctx, key); cached != nil {
		cached.RequestID = o.newID()
		return cached, nil
	}

	result, name, _ := cascade(ctx, o, OpAnalyze, func(ctx context.Context, p core.Provider) (*core.AnalysisResult, error) {
		res, err := p.Analyze(ctx, req)
		if err == nil && res == nil {
			err = errors.New("provider returned no result")
		}
		return res, err
	})

	if name == "" {
		o.fallback(OpAnalyze)
		result = o.local.Analyze(req)
	} else {
		result.EnforceInvariants()
		if result.ProviderUsed == "" {
			result.ProviderUsed = name
		}
		if req.Depth != core.DepthSecurity {
			result.SecurityFlags = nil
		}
	}

	result.RequestID = o.newID()
	result.AnalyzedAt = o.now()

	if name != "" {
		o.storeResult(ctx, key, result)
	}
	return result, nil
}

// GenerateResponse drafts a reply, falling back to the local templates
func (o *Orchestrator) GenerateResponse(ctx context.Context, req *core.ResponseRequest) (*core.GeneratedResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reply, name, _ := cascade(ctx, o, OpRespond, func(ctx context.Context, p core.Provider) (string, error) {
		out, err := p.GenerateResponse(ctx, req)
		if err == nil && strings.TrimSpace(out) == "" {
			err = errors.New("provider returned an empty response")
		}
		return out, err
	})

	if name == "" {
		o.fallback(OpRespond)
		return &core.GeneratedResponse{
			Response:     o.local.GenerateResponse(req.OriginalText, req.Tone),
			ProviderUsed: core.ProviderLocal,
		}, nil
	}
	return &core.GeneratedResponse{Response: reply, ProviderUsed: name}, nil
}

// ExtractActions lists the tasks in text, falling back to the local engine
func (o *Orchestrator) ExtractActions(ctx context.Context, text string) (*core.ActionItemsResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", core.ErrInvalidInput)
	}

	result, name, _ := cascade(ctx, o, OpActions, func(ctx context.Context, p core.Provider) (*core.ActionItemsResult, error) {
		res, err := p.ExtractActions(ctx, text)
		if err == nil && res == nil {
			err = errors.New("provider returned no result")
		}
		return res, err
	})

	if name == "" {
		o.fallback(OpActions)
		return o.local.ExtractActions(text), nil
	}

	if len(result.ActionItems) > core.MaxActionItems {
		result.ActionItems = result.ActionItems[:core.MaxActionItems]
	}
	if result.ActionItems == nil {
		result.ActionItems = []string{}
	}
	if result.UrgentItems == nil {
		result.UrgentItems = []string{}
	}
	if result.ProviderUsed == "" {
		result.ProviderUsed = name
	}
	return result, nil
}

// SummarizeThread has no local equivalent: when every provider fails the
// joined provider errors are returned under core.ErrAllProvidersFailed
func (o *Orchestrator) SummarizeThread(ctx context.Context, messages []core.ThreadMessage) (*core.ThreadSummary, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: at least one message is required", core.ErrInvalidInput)
	}

	result, name, errs := cascade(ctx, o, OpSummarize, func(ctx context.Context, p core.Provider) (*core.ThreadSummary, error) {
		res, err := p.SummarizeThread(ctx, messages)
		if err == nil && res == nil {
			err = errors.New("provider returned no result")
		}
		return res, err
	})

	if name == "" {
		o.logger.Error("Thread summary failed on every provider", zap.Int("providers", len(o.providers)))
		return nil, errors.Join(append([]error{core.ErrAllProvidersFailed}, errs...)...)
	}
	if result.ProviderUsed == "" {
		result.ProviderUsed = name
	}
	return result, nil
}

func (o *Orchestrator) fallback(op string) {
	o.metrics.LocalFallback(op)
	o.logger.Info("Falling back to local inference engine", zap.String("operation", op))
}

// cascade attempts each provider in order and returns the first success with its
// provider name. An empty name means every provider failed; errs holds one error per attempt.
func cascade[T any](
	ctx context.Context,
	o *Orchestrator,
	op string,
	call func(ctx context.Context, p core.Provider) (T, error),
) (T, string, []error) {
	var zero T
	var errs []error

	for i, entry := range o.providers {
		name := entry.provider.Name()
		start := time.Now()

		out, err := attempt(ctx, entry, call)
		elapsed := time.Since(start)

		if err == nil {
			o.metrics.ObserveProvider(name, op, metrics.OutcomeSuccess, elapsed)
			o.logger.Debug("Provider succeeded",
				zap.String("provider", name),
				zap.String("operation", op),
				zap.Duration("elapsed", elapsed))
			return out, name, errs
		}

		outcome := metrics.OutcomeFailure
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		o.metrics.ObserveProvider(name, op, outcome, elapsed)
		o.logger.Warn("Provider failed",
			zap.String("provider", name),
			zap.String("operation", op),
			zap.Int("attempt", i+1),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return zero, "", errs
}

type callResult[T any] struct {
	out T
	err error
}

// attempt runs one provider call under its own timeout. A provider that ignores
// cancellation is abandoned once the timeout fires.
func attempt[T any](
	ctx context.Context,
	entry providerEntry,
	call func(ctx context.Context, p core.Provider) (T, error),
) (T, error) {
	run := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, entry.timeout)
		defer cancel()

		done := make(chan callResult[T], 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					var zero T
					done <- callResult[T]{out: zero, err: fmt.Errorf("provider panicked: %v", r)}
				}
			}()
			out, err := call(callCtx, entry.provider)
			done <- callResult[T]{out: out, err: err}
		}()

		select {
		case res := <-done:
			return res.out, res.err
		case <-callCtx.Done():
			var zero T
			return zero, fmt.Errorf("provider call abandoned: %w", callCtx.Err())
		}
	}

	if entry.breaker == nil {
		return run()
	}

	out, err := entry.breaker.Execute(func() (interface{}, error) {
		return run()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// CacheKey fingerprints the fields that determine an analysis result
func CacheKey(req *core.AnalysisRequest) string {
	h := sha256.New()
	for _, part := range []string{string(req.Depth), req.Subject, req.Sender, req.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (o *Orchestrator) cachedResult(ctx context.Context, key string) *core.AnalysisResult {
	if o.cache == nil {
		return nil
	}

	result, err := o.cache.Get(ctx, key)
	switch {
	case err == nil && result != nil:
		o.metrics.CacheLookup(metrics.CacheHit)
		result.EnforceInvariants()
		o.logger.Debug("Analysis served from cache", zap.String("key", key))
		return result
	case err == nil || errors.Is(err, core.ErrCacheMiss):
		o.metrics.CacheLookup(metrics.CacheMiss)
	default:
		o.metrics.CacheLookup(metrics.CacheError)
		o.logger.Warn("Cache lookup failed", zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) storeResult(ctx context.Context, key string, result *core.AnalysisResult) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, key, result, o.cacheTTL); err != nil {
		o.logger.Warn("Failed to cache analysis result", zap.Error(err))
	}
}
