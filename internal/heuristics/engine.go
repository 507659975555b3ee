// Package heuristics is the network-free analysis engine used when no remote
// provider can answer. Every function is total and deterministic.
package heuristics

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/mailpilot/internal/core"
)

// Engine is the local inference engine
type Engine struct{}

// NewEngine creates a local inference engine
func NewEngine() *Engine {
	return &Engine{}
}

// Analyze builds a complete result from the request text alone
func (e *Engine) Analyze(req *core.AnalysisRequest) *core.AnalysisResult {
	text := req.Content()
	category := Categorize(text)
	priority := PriorityOf(text)

	result := &core.AnalysisResult{
		Category:         category,
		Priority:         priority,
		Sentiment:        SentimentOf(text),
		UrgencyScore:     UrgencyScore(text),
		KeyTopics:        KeyTopics(text),
		ActionItems:      ActionItems(text),
		Summary:          Summary(text, category, priority),
		DetectedLanguage: DetectLanguage(text),
		Confidence:       core.LocalConfidence,
		ProviderUsed:     core.ProviderLocal,
	}
	if req.Depth == core.DepthSecurity {
		result.SecurityFlags = SecurityFlags(text)
	}
	result.EnforceInvariants()
	return result
}

// ExtractActions returns action items plus deadline and urgency markers
func (e *Engine) ExtractActions(text string) *core.ActionItemsResult {
	items := ActionItems(text)
	lower := strings.ToLower(text)

	urgent := []string{}
	for _, item := range items {
		if containsAny(strings.ToLower(item), urgentItemKeywords) {
			urgent = append(urgent, item)
		}
	}

	return &core.ActionItemsResult{
		ActionItems:  items,
		HasDeadlines: containsAny(lower, deadlinePhrases),
		UrgentItems:  urgent,
		ProviderUsed: core.ProviderLocal,
	}
}

// Categorize scores each category by keyword occurrences; ties and zero scores yield general
func Categorize(text string) core.Category {
	lower := strings.ToLower(text)
	best := core.CategoryGeneral
	bestScore := 0
	tied := false

	for _, category := range core.Categories {
		keywords, ok := categoryKeywords[category]
		if !ok {
			continue
		}
		score := countKeywords(lower, keywords)
		switch {
		case score > bestScore:
			best, bestScore, tied = category, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if bestScore == 0 || tied {
		return core.CategoryGeneral
	}
	return best
}

// PriorityOf is high on two or more high keywords or a shout, low on low keywords without any high signal
func PriorityOf(text string) core.Priority {
	lower := strings.ToLower(text)
	high := countKeywords(lower, highPriorityKeywords)
	low := countKeywords(lower, lowPriorityKeywords)

	if high >= highKeywordThreshold || hasShout(text) {
		return core.PriorityHigh
	}
	if low > 0 && high == 0 {
		return core.PriorityLow
	}
	return core.PriorityMedium
}

// hasShout reports more than two exclamation marks or an all-caps word longer than three letters
func hasShout(text string) bool {
	if strings.Count(text, "!") > shoutExclamations {
		return true
	}
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool { return !unicode.IsLetter(r) })
		if utf8.RuneCountInString(word) < shoutMinWordLength {
			continue
		}
		if isUpperWord(word) {
			return true
		}
	}
	return false
}

func isUpperWord(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) || !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// SentimentOf compares positive and negative keyword counts
func SentimentOf(text string) core.Sentiment {
	lower := strings.ToLower(text)
	pos := countKeywords(lower, positiveKeywords)
	neg := countKeywords(lower, negativeKeywords)

	switch {
	case pos > neg:
		return core.SentimentPositive
	case neg > pos:
		return core.SentimentNegative
	default:
		return core.SentimentNeutral
	}
}

// UrgencyScore starts at 5 and adds keyword bonuses, clamped to 1..10
func UrgencyScore(text string) int {
	lower := strings.ToLower(text)
	score := baseUrgency
	for _, b := range urgencyBonuses {
		if strings.Contains(lower, b.keyword) {
			score += b.bonus
		}
	}
	if strings.Count(text, "!") > 1 {
		score += exclamationBonus
	}
	return core.ClampUrgency(score)
}

// KeyTopics returns up to five distinct content words in order of first appearance
func KeyTopics(text string) []string {
	candidates := make([]string, 0, maxTopicCandidates)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if len(candidates) == maxTopicCandidates {
			break
		}
		token := strings.TrimFunc(field, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if !isAlphabetic(token) || stopWords[token] || utf8.RuneCountInString(token) < minTopicLength {
			continue
		}
		candidates = append(candidates, token)
	}

	seen := make(map[string]bool, len(candidates))
	topics := []string{}
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		topics = append(topics, c)
		if len(topics) == core.MaxKeyTopics {
			break
		}
	}
	return topics
}

func isAlphabetic(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

// ActionItems returns the first three sentences containing an action verb, in document order
func ActionItems(text string) []string {
	items := []string{}
	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if !containsAny(strings.ToLower(sentence), actionVerbs) {
			continue
		}
		items = append(items, truncate(sentence, maxActionItemLength))
		if len(items) == core.MaxActionItems {
			break
		}
	}
	return items
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// DetectLanguage counts stop-word hits per supported language and defaults to en
func DetectLanguage(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })

	best := "en"
	bestCount := 0
	for _, lang := range languages {
		count := 0
		for _, tok := range tokens {
			if lang.words[tok] {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = lang.code, count
		}
	}
	return best
}

// Summary selects the fixed template for the category, filled with the priority
func Summary(text string, category core.Category, priority core.Priority) string {
	tmpl, ok := summaryTemplates[category]
	if !ok {
		tmpl = summaryTemplates[core.CategoryGeneral]
	}
	return fmt.Sprintf(tmpl, priority)
}

// SecurityFlags lists the phishing indicators found in text
func SecurityFlags(text string) []string {
	lower := strings.ToLower(text)
	flags := []string{}
	for _, rule := range securityRules {
		if containsAny(lower, rule.phrases) {
			flags = append(flags, rule.flag)
		}
	}
	if strings.Contains(lower, "http") && UrgencyScore(text) >= 8 {
		flags = append(flags, "urgent_link")
	}
	return flags
}

func countKeywords(lower string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		total += strings.Count(lower, kw)
	}
	return total
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
