// Package api exposes the analysis and verification capabilities over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/mailparse"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/extract"
)

// MaxBodyBytes bounds every request body
const MaxBodyBytes = 1 << 20

// Analyzer is the capability interface served under /api/v1
type Analyzer interface {
	Providers() []string
	Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.AnalysisResult, error)
	GenerateResponse(ctx context.Context, req *core.ResponseRequest) (*core.GeneratedResponse, error)
	ExtractActions(ctx context.Context, text string) (*core.ActionItemsResult, error)
	SummarizeThread(ctx context.Context, messages []core.ThreadMessage) (*core.ThreadSummary, error)
}

// Verifier runs verification tasks
type Verifier interface {
	NewTask(sender string, timeout time.Duration) core.VerificationTask
	Execute(ctx context.Context, task core.VerificationTask) (*core.VerificationOutcome, error)
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	analyzer Analyzer
	verifier Verifier
	metrics  http.Handler
	logger   *zap.Logger
}

// New creates a new Handlers instance. metricsHandler may be nil.
func New(analyzer Analyzer, verifier Verifier, metricsHandler http.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		analyzer: analyzer,
		verifier: verifier,
		metrics:  metricsHandler,
		logger:   logger,
	}
}

// Routes builds the router
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(MaxBodyBytes))

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/respond", h.Respond)
		r.Post("/actions", h.Actions)
		r.Post("/summarize", h.Summarize)
		r.Post("/extract", h.Extract)
		r.Post("/verify", h.Verify)
	})

	return r
}

// Health reports liveness and the provider cascade
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"providers": h.analyzer.Providers(),
	})
}

// Analyze classifies a message
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req core.AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.analyzer.Analyze(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Respond drafts a reply
func (h *Handlers) Respond(w http.ResponseWriter, r *http.Request) {
	var req core.ResponseRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.analyzer.GenerateResponse(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type actionsRequest struct {
	Text string `json:"text"`
}

// Actions extracts action items
func (h *Handlers) Actions(w http.ResponseWriter, r *http.Request) {
	var req actionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.analyzer.ExtractActions(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type summarizeRequest struct {
	Messages []core.ThreadMessage `json:"messages"`
}

// Summarize condenses a thread
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.analyzer.SummarizeThread(r.Context(), req.Messages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type extractRequest struct {
	Text string `json:"text"`
	HTML string `json:"html"`
	// Raw is a complete RFC 5322 message; when set, text and html are taken from it
	Raw string `json:"raw"`
}

// Extract pulls verification links and codes out of message content
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !h.decode(w, r, &req) {
		return
	}

	content := core.MessageContent{Text: req.Text, HTML: req.HTML}
	if req.Raw != "" {
		msg, err := mailparse.Parse(strings.NewReader(req.Raw))
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
			return
		}
		content = msg.Content()
	}
	h.writeJSON(w, http.StatusOK, extract.Artifacts(content))
}

type verifyRequest struct {
	Sender string `json:"sender"`
	// Timeout is a Go duration string such as "90s"; empty uses the configured default
	Timeout string `json:"timeout"`
}

// Verify waits for a verification email from sender and follows its link
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	var timeout time.Duration
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d < 0 {
			h.writeError(w, r, fmt.Errorf("%w: invalid timeout %q", core.ErrInvalidInput, req.Timeout))
			return
		}
		timeout = d
	}

	outcome, err := h.verifier.Execute(r.Context(), h.verifier.NewTask(req.Sender, timeout))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return false
		}
		h.writeError(w, r, fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidInput, err))
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
