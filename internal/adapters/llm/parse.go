package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mailpilot/internal/core"
)

// ParseStage records how much structure could be recovered from a raw reply
type ParseStage int

const (
	// Unparseable replies carry no usable signal
	Unparseable ParseStage = iota
	// Parsed replies contained a structured payload
	Parsed
	// PartiallyRecovered replies had no usable payload but named some labels
	PartiallyRecovered
)

func (s ParseStage) String() string {
	switch s {
	case Parsed:
		return "parsed"
	case PartiallyRecovered:
		return "partially_recovered"
	default:
		return "unparseable"
	}
}

const (
	// DefaultConfidence is used when a structured reply omits confidence
	DefaultConfidence = 0.9
	// RecoveredConfidence marks results built from keyword recovery
	RecoveredConfidence = 0.5

	defaultUrgency      = 5
	recoveredSummaryLen = 200
)

// ErrUnparseable is returned when a reply has neither structure nor recognisable labels
var ErrUnparseable = errors.New("unparseable provider response")

// AnalysisParse is the outcome of ParseAnalysis
type AnalysisParse struct {
	Stage  ParseStage
	Result *core.AnalysisResult
	Err    error
}

type analysisPayload struct {
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	Sentiment        string   `json:"sentiment"`
	UrgencyScore     *float64 `json:"urgency_score"`
	KeyTopics        []string `json:"key_topics"`
	ActionItems      []string `json:"action_items"`
	Summary          string   `json:"summary"`
	DetectedLanguage string   `json:"detected_language"`
	Confidence       *float64 `json:"confidence"`
	SecurityFlags    []string `json:"security_flags"`
}

// ParseAnalysis applies the structured parse, then keyword recovery, to a raw analysis reply
func ParseAnalysis(raw string) AnalysisParse {
	var payload analysisPayload
	if err := DecodeJSON(raw, &payload); err == nil && payload.hasLabels() {
		return AnalysisParse{Stage: Parsed, Result: payload.toResult()}
	}

	if result, ok := recoverAnalysis(raw); ok {
		return AnalysisParse{Stage: PartiallyRecovered, Result: result}
	}

	return AnalysisParse{Stage: Unparseable, Err: fmt.Errorf("%w: %s", ErrUnparseable, preview(raw))}
}

func (p *analysisPayload) hasLabels() bool {
	return p.Category != "" || p.Priority != "" || p.Sentiment != ""
}

func (p *analysisPayload) toResult() *core.AnalysisResult {
	category, _ := core.ParseCategory(p.Category)
	priority, _ := core.ParsePriority(p.Priority)
	sentiment, _ := core.ParseSentiment(p.Sentiment)

	urgency := defaultUrgency
	if p.UrgencyScore != nil {
		// bound the float first; converting an out-of-range float to int is undefined
		urgency = int(math.Round(math.Max(1, math.Min(10, *p.UrgencyScore))))
	}
	confidence := DefaultConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
	}

	result := &core.AnalysisResult{
		Category:         category,
		Priority:         priority,
		Sentiment:        sentiment,
		UrgencyScore:     urgency,
		KeyTopics:        cleanList(p.KeyTopics),
		ActionItems:      cleanList(p.ActionItems),
		Summary:          strings.TrimSpace(p.Summary),
		DetectedLanguage: p.DetectedLanguage,
		Confidence:       confidence,
		SecurityFlags:    cleanList(p.SecurityFlags),
	}
	result.EnforceInvariants()
	return result
}

var (
	labelledCategory  = regexp.MustCompile(`category["'\s]*[:=]\s*["']?([a-z]+)`)
	labelledPriority  = regexp.MustCompile(`priority["'\s]*[:=]\s*["']?(high|medium|low)`)
	labelledSentiment = regexp.MustCompile(`sentiment["'\s]*[:=]\s*["']?(positive|neutral|negative)`)
)

// recoverAnalysis looks for label words in a reply that is not valid JSON
func recoverAnalysis(raw string) (*core.AnalysisResult, bool) {
	lower := strings.ToLower(raw)
	found := false

	category := core.CategoryGeneral
	if m := labelledCategory.FindStringSubmatch(lower); m != nil {
		if c, ok := core.ParseCategory(m[1]); ok {
			category, found = c, true
		}
	}

	priority := core.PriorityMedium
	if m := labelledPriority.FindStringSubmatch(lower); m != nil {
		priority, _ = core.ParsePriority(m[1])
		found = true
	} else if strings.Contains(lower, "high priority") {
		priority, found = core.PriorityHigh, true
	} else if strings.Contains(lower, "low priority") {
		priority, found = core.PriorityLow, true
	}

	sentiment := core.SentimentNeutral
	if m := labelledSentiment.FindStringSubmatch(lower); m != nil {
		sentiment, _ = core.ParseSentiment(m[1])
		found = true
	} else if strings.Contains(lower, "negative") {
		sentiment, found = core.SentimentNegative, true
	} else if strings.Contains(lower, "positive") {
		sentiment, found = core.SentimentPositive, true
	}

	if !found {
		return nil, false
	}

	result := &core.AnalysisResult{
		Category:     category,
		Priority:     priority,
		Sentiment:    sentiment,
		UrgencyScore: defaultUrgency,
		Summary:      firstRunes(strings.TrimSpace(raw), recoveredSummaryLen),
		Confidence:   RecoveredConfidence,
	}
	result.EnforceInvariants()
	return result, true
}

// DecodeJSON unmarshals raw into v, falling back to the outermost {...} span when
// the reply wraps the object in prose or code fences
func DecodeJSON(raw string, v any) error {
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("failed to extract JSON from response: %w", err)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func preview(raw string) string {
	return fmt.Sprintf("%q", firstRunes(raw, 80))
}
