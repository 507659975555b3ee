package core

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisDepth controls how much a provider is asked to produce
type AnalysisDepth string

const (
	DepthQuick         AnalysisDepth = "quick"
	DepthComprehensive AnalysisDepth = "comprehensive"
	DepthSecurity      AnalysisDepth = "security"
)

// ParseDepth maps a user supplied value onto a known depth, defaulting to comprehensive
func ParseDepth(s string) (AnalysisDepth, error) {
	switch AnalysisDepth(strings.ToLower(strings.TrimSpace(s))) {
	case "", DepthComprehensive:
		return DepthComprehensive, nil
	case DepthQuick:
		return DepthQuick, nil
	case DepthSecurity:
		return DepthSecurity, nil
	default:
		return "", fmt.Errorf("%w: unknown analysis depth %q", ErrInvalidInput, s)
	}
}

// Category is the coarse classification of a message
type Category string

const (
	CategoryUrgent    Category = "urgent"
	CategorySupport   Category = "support"
	CategorySales     Category = "sales"
	CategoryMeeting   Category = "meeting"
	CategoryReport    Category = "report"
	CategoryComplaint Category = "complaint"
	CategoryGeneral   Category = "general"
)

// Categories lists every category in scoring order
var Categories = []Category{
	CategoryUrgent,
	CategorySupport,
	CategorySales,
	CategoryMeeting,
	CategoryReport,
	CategoryComplaint,
	CategoryGeneral,
}

// Priority of a message
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Sentiment of a message
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Tone requested for a drafted response
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
)

// ProviderLocal identifies results produced by the local inference engine
const ProviderLocal = "local"

// LocalConfidence is the fixed confidence reported by the local inference engine
const LocalConfidence = 0.85

// Result size limits shared by every producer
const (
	MaxKeyTopics   = 5
	MaxActionItems = 3
)

// AnalysisRequest is a single analysis call
type AnalysisRequest struct {
	Text    string        `json:"text"`
	Sender  string        `json:"sender,omitempty"`
	Subject string        `json:"subject,omitempty"`
	Depth   AnalysisDepth `json:"depth,omitempty"`
}

// Validate checks the fields a caller must supply
func (r *AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" && strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: text or subject is required", ErrInvalidInput)
	}
	if r.Depth == "" {
		r.Depth = DepthComprehensive
	}
	if _, err := ParseDepth(string(r.Depth)); err != nil {
		return err
	}
	return nil
}

// Content returns the text an analyzer should look at: subject followed by body
func (r *AnalysisRequest) Content() string {
	if r.Subject == "" {
		return r.Text
	}
	if r.Text == "" {
		return r.Subject
	}
	return r.Subject + "\n\n" + r.Text
}

// AnalysisResult is the output of any analysis producer
type AnalysisResult struct {
	Category            Category  `json:"category"`
	Priority            Priority  `json:"priority"`
	Sentiment           Sentiment `json:"sentiment"`
	UrgencyScore        int       `json:"urgency_score"`
	KeyTopics           []string  `json:"key_topics"`
	ActionItems         []string  `json:"action_items"`
	Summary             string    `json:"summary"`
	RequiresHumanReview bool      `json:"requires_human_review"`
	DetectedLanguage    string    `json:"detected_language"`
	Confidence          float64   `json:"confidence"`
	ProviderUsed        string    `json:"provider_used"`
	SecurityFlags       []string  `json:"security_flags,omitempty"`
	RequestID           string    `json:"request_id,omitempty"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// NeedsHumanReview reports whether the given classification must be reviewed by a person
func NeedsHumanReview(category Category, priority Priority, sentiment Sentiment) bool {
	return priority == PriorityHigh || category == CategoryUrgent || sentiment == SentimentNegative
}

// EnforceInvariants recomputes derived fields and clamps values into their declared ranges.
// It is applied to every result regardless of which producer built it.
func (r *AnalysisResult) EnforceInvariants() {
	if !validCategory(r.Category) {
		r.Category = CategoryGeneral
	}
	if !validPriority(r.Priority) {
		r.Priority = PriorityMedium
	}
	if !validSentiment(r.Sentiment) {
		r.Sentiment = SentimentNeutral
	}
	r.UrgencyScore = ClampUrgency(r.UrgencyScore)
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	if len(r.KeyTopics) > MaxKeyTopics {
		r.KeyTopics = r.KeyTopics[:MaxKeyTopics]
	}
	if len(r.ActionItems) > MaxActionItems {
		r.ActionItems = r.ActionItems[:MaxActionItems]
	}
	if r.KeyTopics == nil {
		r.KeyTopics = []string{}
	}
	if r.ActionItems == nil {
		r.ActionItems = []string{}
	}
	lang := strings.ToLower(strings.TrimSpace(r.DetectedLanguage))
	if len(lang) != 2 {
		lang = "en"
	}
	r.DetectedLanguage = lang
	r.RequiresHumanReview = NeedsHumanReview(r.Category, r.Priority, r.Sentiment)
}

// ClampUrgency bounds an urgency score to 1..10
func ClampUrgency(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// ParseCategory normalises a category label, reporting whether it was recognised
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, validCategory(c)
}

// ParsePriority normalises a priority label, reporting whether it was recognised
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, validPriority(p)
}

// ParseSentiment normalises a sentiment label, reporting whether it was recognised
func ParseSentiment(s string) (Sentiment, bool) {
	v := Sentiment(strings.ToLower(strings.TrimSpace(s)))
	return v, validSentiment(v)
}

func validCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func validPriority(p Priority) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

func validSentiment(s Sentiment) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// ResponseRequest asks for a drafted reply
type ResponseRequest struct {
	OriginalText string `json:"original_text"`
	Context      string `json:"context,omitempty"`
	Tone         Tone   `json:"tone,omitempty"`
}

// Validate checks the fields a caller must supply
func (r *ResponseRequest) Validate() error {
	if strings.TrimSpace(r.OriginalText) == "" {
		return fmt.Errorf("%w: original_text is required", ErrInvalidInput)
	}
	if r.Tone == "" {
		r.Tone = ToneProfessional
	}
	return nil
}

// GeneratedResponse is a drafted reply and the producer that wrote it
type GeneratedResponse struct {
	Response     string `json:"response"`
	ProviderUsed string `json:"provider_used"`
}

// ActionItemsResult is the output of action item extraction
type ActionItemsResult struct {
	ActionItems  []string `json:"action_items"`
	HasDeadlines bool     `json:"has_deadlines"`
	UrgentItems  []string `json:"urgent_items"`
	ProviderUsed string   `json:"provider_used"`
}

// ThreadMessage is one message of a conversation to summarise
type ThreadMessage struct {
	From    string    `json:"from"`
	Subject string    `json:"subject,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Text    string    `json:"text"`
}

// ThreadSummary is the output of thread summarisation
type ThreadSummary struct {
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"key_points"`
	Participants []string `json:"participants"`
	ActionItems  []string `json:"action_items"`
	ProviderUsed string   `json:"provider_used"`
}

// Message is a mail message as returned by a mailbox collaborator
type Message struct {
	ID      string    `json:"id,omitempty"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
	Text    string    `json:"text"`
	HTML    string    `json:"html"`
}

// Content returns the extractable parts of the message
func (m *Message) Content() MessageContent {
	return MessageContent{Text: m.Text, HTML: m.HTML}
}

// MessageContent is the raw text/markup extraction works on
type MessageContent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// ExtractedArtifact holds what could be pulled out of a message
type ExtractedArtifact struct {
	Links []string `json:"links"`
	Code  string   `json:"code,omitempty"`
}

// Link returns the first verification link, if any
func (a ExtractedArtifact) Link() string {
	if len(a.Links) == 0 {
		return ""
	}
	return a.Links[0]
}

// VerificationTask is one invocation of the verification workflow
type VerificationTask struct {
	ID              string
	Sender          string
	Deadline        time.Time
	FreshnessWindow time.Duration
}

// VerificationState is a node of the verification state machine
type VerificationState string

const (
	StateIdle               VerificationState = "idle"
	StatePolling            VerificationState = "polling"
	StateMatchFound         VerificationState = "match_found"
	StateVerifying          VerificationState = "verifying"
	StateCompleted          VerificationState = "completed"
	StateVerificationFailed VerificationState = "verification_failed"
	StateTimedOut           VerificationState = "timed_out"
)

// VerificationOutcome is returned when verification completes
type VerificationOutcome struct {
	TaskID         string            `json:"task_id"`
	Sender         string            `json:"sender"`
	State          VerificationState `json:"state"`
	Link           string            `json:"link"`
	Code           string            `json:"code,omitempty"`
	CompletionText string            `json:"completion_text"`
	MessageSubject string            `json:"message_subject"`
	MessageDate    time.Time         `json:"message_date"`
	Polls          int               `json:"polls"`
	CompletedAt    time.Time         `json:"completed_at"`
}

// Page is the browser-side handle for a navigated URL
type Page struct {
	URL   string
	Title string
}
