package heuristics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mailpilot/internal/core"
)

var totalityInputs = []string{
	"",
	" ",
	"!!!",
	"?",
	"日本語のテキストです",
	"URGENT URGENT URGENT",
	"a.b.c.d.e.f",
	strings.Repeat("please review this deadline today! ", 200),
	"\n\n\t",
}

func TestTotality_ValuesStayInDeclaredRanges(t *testing.T) {
	for _, in := range totalityInputs {
		assert.Contains(t, core.Categories, Categorize(in))
		assert.Contains(t, []core.Priority{core.PriorityHigh, core.PriorityMedium, core.PriorityLow}, PriorityOf(in))
		assert.Contains(t, []core.Sentiment{core.SentimentPositive, core.SentimentNeutral, core.SentimentNegative}, SentimentOf(in))
		score := UrgencyScore(in)
		assert.GreaterOrEqual(t, score, 1)
		assert.LessOrEqual(t, score, 10)
		assert.Len(t, DetectLanguage(in), 2)
		assert.LessOrEqual(t, len(KeyTopics(in)), core.MaxKeyTopics)
		assert.LessOrEqual(t, len(ActionItems(in)), core.MaxActionItems)
	}
}

func TestEmptyInputUsesBaselines(t *testing.T) {
	assert.Equal(t, core.CategoryGeneral, Categorize(""))
	assert.Equal(t, core.PriorityMedium, PriorityOf(""))
	assert.Equal(t, core.SentimentNeutral, SentimentOf(""))
	assert.Equal(t, 5, UrgencyScore(""))
	assert.Equal(t, "en", DetectLanguage(""))
	assert.Empty(t, KeyTopics(""))
	assert.Empty(t, ActionItems(""))
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		text string
		want core.Category
	}{
		{"Can we schedule a meeting next week?", core.CategoryMeeting},
		{"The server is broken and I need help", core.CategorySupport},
		{"refund", core.CategoryComplaint},
		{"urgent: please send the price", core.CategoryGeneral},
		{"Hello there", core.CategoryGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Categorize(tc.text))
		})
	}
}

func TestPriorityOf(t *testing.T) {
	cases := []struct {
		name string
		text string
		want core.Priority
	}{
		{"all caps word", "URGENT request", core.PriorityHigh},
		{"two high keywords", "This is urgent and critical", core.PriorityHigh},
		{"many exclamations", "Wow!!!", core.PriorityHigh},
		{"low keywords only", "FYI, the newsletter is out", core.PriorityLow},
		{"mixed signals", "important fyi", core.PriorityMedium},
		{"short caps ignored", "FYI OK", core.PriorityLow},
		{"plain", "Hi team", core.PriorityMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PriorityOf(tc.text))
		})
	}
}

func TestSentimentOf(t *testing.T) {
	assert.Equal(t, core.SentimentPositive, SentimentOf("Thank you, this is great"))
	assert.Equal(t, core.SentimentNegative, SentimentOf("I am disappointed, this is terrible"))
	assert.Equal(t, core.SentimentNeutral, SentimentOf("thanks but there is a problem"))
}

func TestUrgencyScore(t *testing.T) {
	assert.Equal(t, 5, UrgencyScore("Hello"))
	assert.Equal(t, 7, UrgencyScore("immediate attention needed"))
	assert.Equal(t, 6, UrgencyScore("done today"))
	assert.Equal(t, 6, UrgencyScore("hi!!"))
	assert.Equal(t, 10, UrgencyScore("urgent asap deadline today!!"))
}

func TestKeyTopics(t *testing.T) {
	got := KeyTopics("The quarterly budget review meeting covers budget forecasts and hiring plans")
	assert.Equal(t, []string{"quarterly", "budget", "review", "meeting", "covers"}, got)

	got = KeyTopics("API v2 is 100% ready, go team")
	assert.Equal(t, []string{"ready", "team"}, got)
}

func TestActionItems(t *testing.T) {
	got := ActionItems("Hi Bob. Please review the attached contract. The weather is nice. Can you send the invoice by Friday? Thanks!")
	assert.Equal(t, []string{"Please review the attached contract", "Can you send the invoice by Friday"}, got)

	got = ActionItems("Please a. Please b. Please c. Please d.")
	assert.Equal(t, []string{"Please a", "Please b", "Please c"}, got)

	long := "Please " + strings.Repeat("x", 100)
	got = ActionItems(long)
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], "..."))
	assert.Equal(t, maxActionItemLength+3, len([]rune(got[0])))
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"Hola, gracias por su ayuda con el proyecto":           "es",
		"Bonjour, merci pour votre aide avec le projet":        "fr",
		"Danke für die schnelle Antwort, ich bin nicht sicher": "de",
		"Ciao, grazie per il messaggio, sono molto contento":   "it",
		"Olá, obrigado pela ajuda, você é muito gentil":        "pt",
		"Thanks for the update on the project":                 "en",
		"As per our call, please send the report":              "en",
		"Con artists are a problem, per the latest report":     "en",
	}
	for text, want := range cases {
		assert.Equal(t, want, DetectLanguage(text), text)
	}
}

func TestSummaryUsesFixedTemplate(t *testing.T) {
	assert.Equal(t,
		"Meeting or scheduling request that needs a calendar response (high priority).",
		Summary("ignored", core.CategoryMeeting, core.PriorityHigh))
	assert.Equal(t, Summary("a", core.CategoryGeneral, core.PriorityLow), Summary("b", core.CategoryGeneral, core.PriorityLow))
}

func TestEngineAnalyze_UrgentMessage(t *testing.T) {
	e := NewEngine()
	res := e.Analyze(&core.AnalysisRequest{
		Subject: "URGENT: server down",
		Text:    "The production server is down and customers are angry. Please fix this immediately!",
	})

	assert.Equal(t, core.CategoryUrgent, res.Category)
	assert.Equal(t, core.PriorityHigh, res.Priority)
	assert.Equal(t, core.SentimentNegative, res.Sentiment)
	assert.Equal(t, 10, res.UrgencyScore)
	assert.True(t, res.RequiresHumanReview)
	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)
	assert.Equal(t, core.LocalConfidence, res.Confidence)
	assert.Nil(t, res.SecurityFlags)
}

func TestEngineAnalyze_RoutineMessage(t *testing.T) {
	res := NewEngine().Analyze(&core.AnalysisRequest{Text: "Thanks for the great quarterly report, see you soon"})

	assert.Equal(t, core.CategoryReport, res.Category)
	assert.Equal(t, core.PriorityMedium, res.Priority)
	assert.Equal(t, core.SentimentPositive, res.Sentiment)
	assert.False(t, res.RequiresHumanReview)
	assert.Equal(t, "en", res.DetectedLanguage)
}

func TestEngineAnalyze_Deterministic(t *testing.T) {
	e := NewEngine()
	req := &core.AnalysisRequest{Text: "Please review the pricing proposal before the deadline."}
	assert.Equal(t, e.Analyze(req), e.Analyze(req))
}

func TestEngineAnalyze_SecurityDepth(t *testing.T) {
	text := "Your account will be suspended. Verify your account password at http://x.test urgently!"
	e := NewEngine()

	res := e.Analyze(&core.AnalysisRequest{Text: text, Depth: core.DepthSecurity})
	assert.Equal(t, []string{"credential_request", "account_threat", "urgent_link"}, res.SecurityFlags)

	res = e.Analyze(&core.AnalysisRequest{Text: text, Depth: core.DepthQuick})
	assert.Nil(t, res.SecurityFlags)
}

func TestEngineExtractActions(t *testing.T) {
	res := NewEngine().ExtractActions("Please send the report by Friday. This is urgent: update the dashboard today.")

	assert.Equal(t, []string{"Please send the report by Friday", "This is urgent: update the dashboard today"}, res.ActionItems)
	assert.True(t, res.HasDeadlines)
	assert.Equal(t, []string{"This is urgent: update the dashboard today"}, res.UrgentItems)
	assert.Equal(t, core.ProviderLocal, res.ProviderUsed)

	empty := NewEngine().ExtractActions("")
	assert.Empty(t, empty.ActionItems)
	assert.False(t, empty.HasDeadlines)
	assert.Empty(t, empty.UrgentItems)
}
