package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/utils"
)

// Adapter implements core.Provider on top of a vendor Completer
type Adapter struct {
	name          string
	completer     Completer
	maxBodySize   int
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewAdapter creates a provider named name backed by completer
func NewAdapter(
	name string,
	completer Completer,
	maxBodySize int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) *Adapter {
	return &Adapter{
		name:          name,
		completer:     completer,
		maxBodySize:   maxBodySize,
		textProcessor: textProcessor,
		logger:        logger.With(zap.String("provider", name)),
	}
}

// Name returns the provider identifier reported in results
func (a *Adapter) Name() string {
	return a.name
}

// Analyze classifies a message
func (a *Adapter) Analyze(ctx context.Context, req *core.AnalysisRequest) (*core.AnalysisResult, error) {
	prompt := AnalysisPrompt(req, a.textProcessor.ProcessText(req.Text, a.maxBodySize))

	raw, err := a.completer.Complete(ctx, CompletionRequest{
		System: analysisSystemPrompt,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s analyze: %w", a.name, err)
	}

	parsed := ParseAnalysis(raw)
	switch parsed.Stage {
	case Parsed:
	case PartiallyRecovered:
		a.logger.Warn("Analysis response was not structured, recovered labels from text",
			zap.String("stage", parsed.Stage.String()))
	default:
		return nil, fmt.Errorf("%s analyze: %w", a.name, parsed.Err)
	}

	result := parsed.Result
	result.ProviderUsed = a.name
	if req.Depth != core.DepthSecurity {
		result.SecurityFlags = nil
	}
	return result, nil
}

// GenerateResponse drafts a reply in the requested tone
func (a *Adapter) GenerateResponse(ctx context.Context, req *core.ResponseRequest) (string, error) {
	prompt := ResponsePrompt(req, a.textProcessor.ProcessText(req.OriginalText, a.maxBodySize))

	raw, err := a.completer.Complete(ctx, CompletionRequest{
		System: responseSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%s respond: %w", a.name, err)
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", fmt.Errorf("%s respond: empty response", a.name)
	}
	return reply, nil
}

type actionsPayload struct {
	ActionItems  []string `json:"action_items"`
	HasDeadlines bool     `json:"has_deadlines"`
	UrgentItems  []string `json:"urgent_items"`
}

// ExtractActions lists the tasks requested in text
func (a *Adapter) ExtractActions(ctx context.Context, text string) (*core.ActionItemsResult, error) {
	raw, err := a.completer.Complete(ctx, CompletionRequest{
		System: analysisSystemPrompt,
		Prompt: ActionsPrompt(a.textProcessor.ProcessText(text, a.maxBodySize)),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s actions: %w", a.name, err)
	}

	var payload actionsPayload
	if err := DecodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("%s actions: %w", a.name, errors.Join(ErrUnparseable, err))
	}

	items := cleanList(payload.ActionItems)
	if len(items) > core.MaxActionItems {
		items = items[:core.MaxActionItems]
	}
	return &core.ActionItemsResult{
		ActionItems:  items,
		HasDeadlines: payload.HasDeadlines,
		UrgentItems:  cleanList(payload.UrgentItems),
		ProviderUsed: a.name,
	}, nil
}

type summaryPayload struct {
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"key_points"`
	Participants []string `json:"participants"`
	ActionItems  []string `json:"action_items"`
}

// SummarizeThread condenses a conversation
func (a *Adapter) SummarizeThread(ctx context.Context, messages []core.ThreadMessage) (*core.ThreadSummary, error) {
	// Share the body budget between messages so long threads still fit
	budget := a.maxBodySize
	if budget > 0 && len(messages) > 0 {
		budget = max(budget/len(messages), 1)
	}
	bodies := make([]string, len(messages))
	for i, m := range messages {
		bodies[i] = a.textProcessor.ProcessText(m.Text, budget)
	}

	raw, err := a.completer.Complete(ctx, CompletionRequest{
		System: analysisSystemPrompt,
		Prompt: ThreadPrompt(messages, bodies),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s summarize: %w", a.name, err)
	}

	var payload summaryPayload
	if err := DecodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("%s summarize: %w", a.name, errors.Join(ErrUnparseable, err))
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, fmt.Errorf("%s summarize: %w: missing summary", a.name, ErrUnparseable)
	}

	participants := cleanList(payload.Participants)
	if len(participants) == 0 {
		participants = threadParticipants(messages)
	}
	return &core.ThreadSummary{
		Summary:      strings.TrimSpace(payload.Summary),
		KeyPoints:    cleanList(payload.KeyPoints),
		Participants: participants,
		ActionItems:  cleanList(payload.ActionItems),
		ProviderUsed: a.name,
	}, nil
}

func threadParticipants(messages []core.ThreadMessage) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range messages {
		from := strings.TrimSpace(m.From)
		if from == "" || seen[strings.ToLower(from)] {
			continue
		}
		seen[strings.ToLower(from)] = true
		out = append(out, from)
	}
	return out
}

var _ core.Provider = (*Adapter)(nil)
