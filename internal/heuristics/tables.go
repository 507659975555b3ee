package heuristics

import "github.com/mikey/mailpilot/internal/core"

// categoryKeywords are scored in core.Categories order; general has no keywords and only wins by default
var categoryKeywords = map[core.Category][]string{
	core.CategoryUrgent:    {"urgent", "asap", "immediately", "emergency", "critical", "right away"},
	core.CategorySupport:   {"help", "issue", "problem", "error", "bug", "support", "not working", "broken", "fix"},
	core.CategorySales:     {"price", "pricing", "quote", "purchase", "buy", "discount", "offer", "proposal", "deal"},
	core.CategoryMeeting:   {"meeting", "schedule", "calendar", "appointment", "availability", "agenda", "call"},
	core.CategoryReport:    {"report", "summary", "analytics", "metrics", "quarterly", "statistics", "results"},
	core.CategoryComplaint: {"complaint", "disappointed", "unhappy", "terrible", "refund", "unacceptable", "frustrated"},
}

var highPriorityKeywords = []string{
	"urgent", "asap", "immediately", "critical", "emergency", "important", "deadline", "high priority",
}

var lowPriorityKeywords = []string{
	"fyi", "no rush", "when you get a chance", "low priority", "newsletter", "whenever",
}

var positiveKeywords = []string{
	"thank", "great", "excellent", "happy", "appreciate", "love", "wonderful", "pleased", "good", "awesome",
}

var negativeKeywords = []string{
	"disappointed", "angry", "terrible", "bad", "unhappy", "frustrated", "problem", "issue", "poor",
	"unacceptable", "hate", "awful",
}

type urgencyBonus struct {
	keyword string
	bonus   int
}

var urgencyBonuses = []urgencyBonus{
	{"urgent", 3},
	{"asap", 3},
	{"immediate", 2},
	{"deadline", 2},
	{"today", 1},
}

const (
	baseUrgency          = 5
	exclamationBonus     = 1
	maxTopicCandidates   = 8
	minTopicLength       = 4
	maxActionItemLength  = 80
	shoutExclamations    = 2
	shoutMinWordLength   = 4
	highKeywordThreshold = 2
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true, "you": true,
	"all": true, "any": true, "can": true, "had": true, "her": true, "was": true, "one": true,
	"our": true, "out": true, "this": true, "that": true, "with": true, "have": true, "from": true,
	"they": true, "will": true, "would": true, "there": true, "their": true, "what": true,
	"about": true, "which": true, "when": true, "your": true, "said": true, "each": true,
	"them": true, "been": true, "into": true, "more": true, "some": true, "could": true,
	"other": true, "than": true, "then": true, "these": true, "also": true, "just": true,
	"only": true, "very": true, "please": true, "thanks": true, "hello": true, "dear": true,
	"regards": true, "best": true, "here": true, "were": true, "should": true, "like": true,
}

var actionVerbs = []string{
	"please", "need to", "needs to", "should", "must", "could you", "can you", "review", "send",
	"schedule", "confirm", "complete", "submit", "update", "prepare", "follow up", "let me know",
}

var deadlinePhrases = []string{
	"deadline", "due", "by end of", "eod", "end of day", "tomorrow", "by monday", "by tuesday",
	"by wednesday", "by thursday", "by friday", "this week",
}

var urgentItemKeywords = []string{"urgent", "asap", "immediately", "critical", "today"}

type languageStopWords struct {
	code  string
	words map[string]bool
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// languages are checked in this order; the first language with the highest count wins
var languages = []languageStopWords{
	{"es", wordSet("el", "la", "los", "las", "que", "por", "para", "una", "gracias", "hola", "usted", "pero", "muy", "está", "del")},
	{"fr", wordSet("le", "les", "des", "est", "pour", "avec", "une", "merci", "bonjour", "vous", "nous", "pas", "très", "dans")},
	{"de", wordSet("der", "das", "und", "ist", "nicht", "mit", "sie", "ich", "danke", "bitte", "für", "auf", "eine", "wir")},
	{"it", wordSet("il", "gli", "che", "sono", "una", "grazie", "ciao", "questo", "della", "non", "molto")},
	{"pt", wordSet("os", "que", "para", "com", "uma", "obrigado", "olá", "você", "não", "muito", "está", "isso")},
}

var summaryTemplates = map[core.Category]string{
	core.CategoryUrgent:    "Urgent message that needs immediate attention (%s priority).",
	core.CategorySupport:   "Support request describing an issue that needs assistance (%s priority).",
	core.CategorySales:     "Sales-related message about pricing, offers or purchasing (%s priority).",
	core.CategoryMeeting:   "Meeting or scheduling request that needs a calendar response (%s priority).",
	core.CategoryReport:    "Report or status update sharing information (%s priority).",
	core.CategoryComplaint: "Complaint expressing dissatisfaction that should be addressed (%s priority).",
	core.CategoryGeneral:   "General correspondence with no specific request detected (%s priority).",
}

type securityRule struct {
	flag    string
	phrases []string
}

var securityRules = []securityRule{
	{"credential_request", []string{"verify your account", "confirm your password", "password", "login credentials", "social security"}},
	{"account_threat", []string{"will be suspended", "account suspended", "account locked", "unusual activity", "will be closed"}},
	{"payment_request", []string{"gift card", "wire transfer", "bitcoin", "bank details", "payment details"}},
	{"prize_bait", []string{"you have won", "you've won", "claim your prize", "lottery"}},
}
