package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/heuristics"
	"github.com/mikey/mailpilot/internal/metrics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(providers []core.Provider, opts OrchestratorOptions) *Orchestrator {
	configs := make([]ProviderConfig, len(providers))
	for i, p := range providers {
		configs[i] = ProviderConfig{Provider: p, Timeout: time.Second}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "req-1" }
	}
	return NewOrchestrator(configs, heuristics.NewEngine(), zap.NewNop(), opts)
}

func okResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		Category:         core.CategorySales,
		Priority:         core.PriorityLow,
		Sentiment:        core.SentimentPositive,
		UrgencyScore:     3,
		Summary:          "Pricing question",
		DetectedLanguage: "en",
		Confidence:       0.8,
	}
}

var analyzeReq = core.AnalysisRequest{Subject: "Hello", Text: "Could you send the pricing sheet?"}

func TestAnalyze_FallsBackToLocalWhenEveryProviderFails(t *testing.T) {
	log := &callLog{}
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", log: log, err: errProvider},
		&fakeProvider{name: "b", log: log, err: errProvider},
	}, OrchestratorOptions{})

	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)
	assert.Equal(t, core.LocalConfidence, res.Confidence)
	assert.Equal(t, []string{"a", "b"}, log.list())
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, fixedNow, res.AnalyzedAt)
}

func TestAnalyze_NoProvidersUsesLocal(t *testing.T) {
	o := newTestOrchestrator(nil, OrchestratorOptions{})
	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)
}

func TestAnalyze_AttemptsProvidersStrictlyInOrder(t *testing.T) {
	log := &callLog{}
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", log: log, err: errProvider},
		&fakeProvider{name: "b", log: log, result: okResult()},
		&fakeProvider{name: "c", log: log, result: okResult()},
	}, OrchestratorOptions{})

	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, "b", res.ProviderUsed)
	assert.Equal(t, []string{"a", "b"}, log.list())
	assert.Equal(t, []string{"a", "b", "c"}, o.Providers())
}

func TestAnalyze_SlowProviderCountsAsFailure(t *testing.T) {
	log := &callLog{}
	slow := &fakeProvider{name: "slow", log: log, delay: 2 * time.Second, result: okResult()}
	o := NewOrchestrator([]ProviderConfig{
		{Provider: slow, Timeout: 20 * time.Millisecond},
		{Provider: &fakeProvider{name: "fast", log: log, result: okResult()}, Timeout: time.Second},
	}, heuristics.NewEngine(), zap.NewNop(), OrchestratorOptions{})

	start := time.Now()
	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, "fast", res.ProviderUsed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAnalyze_PanickingProviderCountsAsFailure(t *testing.T) {
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "bad", panicMsg: "nil map"},
		&fakeProvider{name: "good", result: okResult()},
	}, OrchestratorOptions{})

	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "good", res.ProviderUsed)
}

func TestAnalyze_NilResultCountsAsFailure(t *testing.T) {
	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "empty"}}, OrchestratorOptions{})
	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)
}

func TestAnalyze_EnforcesInvariantOnProviderResults(t *testing.T) {
	raw := okResult()
	raw.Priority = core.PriorityHigh
	raw.RequiresHumanReview = false
	raw.UrgencyScore = 42
	raw.SecurityFlags = []string{"credential_request"}

	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", result: raw}}, OrchestratorOptions{})

	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.True(t, res.RequiresHumanReview)
	assert.Equal(t, 10, res.UrgencyScore)
	assert.Nil(t, res.SecurityFlags)
	assert.Equal(t, "a", res.ProviderUsed)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	log := &callLog{}
	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", log: log}}, OrchestratorOptions{})

	_, err := o.Analyze(context.Background(), &core.AnalysisRequest{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = o.Analyze(context.Background(), &core.AnalysisRequest{Text: "x", Depth: "deep"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, log.list())
}

func TestAnalyze_CachesProviderResults(t *testing.T) {
	log := &callLog{}
	cache := newFakeCache()
	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", log: log, result: okResult()}},
		OrchestratorOptions{Cache: cache, CacheTTL: time.Hour})

	req := analyzeReq
	first, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, log.list())
	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, "a", second.ProviderUsed)
	assert.Equal(t, 1, cache.sets)
}

func TestAnalyze_LocalResultsAreNotCached(t *testing.T) {
	cache := newFakeCache()
	o := newTestOrchestrator(nil, OrchestratorOptions{Cache: cache})

	req := analyzeReq
	_, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	assert.Zero(t, cache.sets)
}

func TestAnalyze_CacheErrorsAreIgnored(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", result: okResult()}},
		OrchestratorOptions{Cache: cache})

	req := analyzeReq
	res, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "a", res.ProviderUsed)
}

func TestCacheKey(t *testing.T) {
	a := &core.AnalysisRequest{Text: "ab", Subject: "c", Depth: core.DepthQuick}
	b := &core.AnalysisRequest{Text: "b", Subject: "ca", Depth: core.DepthQuick}
	c := &core.AnalysisRequest{Text: "ab", Subject: "c", Depth: core.DepthSecurity}

	assert.NotEqual(t, CacheKey(a), CacheKey(b))
	assert.NotEqual(t, CacheKey(a), CacheKey(c))
	assert.Equal(t, CacheKey(a), CacheKey(&core.AnalysisRequest{Text: "ab", Subject: "c", Depth: core.DepthQuick}))
	assert.Len(t, CacheKey(a), 64)
}

func TestAnalyze_CircuitBreakerSkipsTrippedProvider(t *testing.T) {
	log := &callLog{}
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", log: log, err: errProvider},
		&fakeProvider{name: "b", log: log, result: okResult()},
	}, OrchestratorOptions{Breaker: &BreakerSettings{MaxFailures: 1, OpenTimeout: time.Minute}})

	for i := 0; i < 3; i++ {
		req := analyzeReq
		res, err := o.Analyze(context.Background(), &req)
		require.NoError(t, err)
		assert.Equal(t, "b", res.ProviderUsed)
	}
	assert.Equal(t, []string{"a", "b", "b", "b"}, log.list())
}

func TestAnalyze_RecordsMetricsAndLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	obsCore, logs := observer.New(zapcore.DebugLevel)

	o := NewOrchestrator(
		[]ProviderConfig{{Provider: &fakeProvider{name: "a", err: errProvider}, Timeout: time.Second}},
		heuristics.NewEngine(), zap.New(obsCore), OrchestratorOptions{Metrics: m})

	req := analyzeReq
	_, err := o.Analyze(context.Background(), &req)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LocalFallbacks.WithLabelValues(OpAnalyze)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("a", OpAnalyze, metrics.OutcomeFailure)))

	warn := logs.FilterMessage("Provider failed").All()
	require.Len(t, warn, 1)
	fields := warn[0].ContextMap()
	assert.Equal(t, "a", fields["provider"])
	assert.Equal(t, OpAnalyze, fields["operation"])
	assert.Equal(t, int64(1), fields["attempt"])
	assert.Equal(t, 1, logs.FilterMessage("Falling back to local inference engine").Len())
}

func TestGenerateResponse(t *testing.T) {
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", reply: "  "},
		&fakeProvider{name: "b", reply: "See you then."},
	}, OrchestratorOptions{})

	out, err := o.GenerateResponse(context.Background(), &core.ResponseRequest{OriginalText: "Meeting at 3?"})
	require.NoError(t, err)
	assert.Equal(t, "See you then.", out.Response)
	assert.Equal(t, "b", out.ProviderUsed)

	local := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", err: errProvider}}, OrchestratorOptions{})
	out, err = local.GenerateResponse(context.Background(), &core.ResponseRequest{OriginalText: "Thank you!", Tone: core.ToneFormal})
	require.NoError(t, err)
	assert.Equal(t, core.ProviderLocal, out.ProviderUsed)
	assert.Equal(t, heuristics.NewEngine().GenerateResponse("Thank you!", core.ToneFormal), out.Response)

	_, err = local.GenerateResponse(context.Background(), &core.ResponseRequest{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestExtractActions(t *testing.T) {
	o := newTestOrchestrator([]core.Provider{&fakeProvider{name: "a", actions: &core.ActionItemsResult{
		ActionItems: []string{"1", "2", "3", "4"},
	}}}, OrchestratorOptions{})

	res, err := o.ExtractActions(context.Background(), "do it")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, res.ActionItems)
	assert.Equal(t, []string{}, res.UrgentItems)
	assert.Equal(t, "a", res.ProviderUsed)

	local := newTestOrchestrator(nil, OrchestratorOptions{})
	res, err = local.ExtractActions(context.Background(), "Please send the report by Friday.")
	require.NoError(t, err)
	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)
	assert.True(t, res.HasDeadlines)

	_, err = local.ExtractActions(context.Background(), " ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSummarizeThread(t *testing.T) {
	msgs := []core.ThreadMessage{{From: "a@x.test", Text: "hi"}}

	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", err: errProvider},
		&fakeProvider{name: "b", summary: &core.ThreadSummary{Summary: "short"}},
	}, OrchestratorOptions{})
	res, err := o.SummarizeThread(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "b", res.ProviderUsed)

	_, err = o.SummarizeThread(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSummarizeThread_ExhaustionHasNoLocalFallback(t *testing.T) {
	second := errors.New("quota exceeded")
	o := newTestOrchestrator([]core.Provider{
		&fakeProvider{name: "a", err: errProvider},
		&fakeProvider{name: "b", err: second},
	}, OrchestratorOptions{})

	_, err := o.SummarizeThread(context.Background(), []core.ThreadMessage{{Text: "hi"}})
	assert.ErrorIs(t, err, core.ErrAllProvidersFailed)
	assert.ErrorIs(t, err, errProvider)
	assert.ErrorIs(t, err, second)

	none := newTestOrchestrator(nil, OrchestratorOptions{})
	_, err = none.SummarizeThread(context.Background(), []core.ThreadMessage{{Text: "hi"}})
	assert.ErrorIs(t, err, core.ErrAllProvidersFailed)
}
