package llm

import (
	"fmt"
	"strings"

	"github.com/mikey/mailpilot/internal/core"
)

const analysisSystemPrompt = "You are an email triage assistant. Respond only with a single JSON object."

const analysisPromptFormat = `Analyze the following email.
Respond with a JSON object containing:
- category: one of urgent, support, sales, meeting, report, complaint, general
- priority: one of high, medium, low
- sentiment: one of positive, neutral, negative
- urgency_score: integer from 1 to 10
- summary: one short paragraph
%s- confidence: number between 0 and 1 (how confident you are in your assessment)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

const comprehensiveFields = `- key_topics: up to 5 short topic strings
- action_items: up to 3 tasks the recipient is asked to do
- detected_language: two-letter ISO 639-1 code of the email language
`

const securityFields = comprehensiveFields + `- security_flags: list of phishing indicators found, using any of credential_request, account_threat, payment_request, prize_bait, urgent_link, spoofed_sender, suspicious_attachment (empty list if none)
`

// AnalysisPrompt builds the analysis prompt for the requested depth
func AnalysisPrompt(req *core.AnalysisRequest, body string) string {
	var fields string
	switch req.Depth {
	case core.DepthQuick:
		fields = ""
	case core.DepthSecurity:
		fields = securityFields
	default:
		fields = comprehensiveFields
	}
	return fmt.Sprintf(analysisPromptFormat, fields, orUnknown(req.Sender), orUnknown(req.Subject), body)
}

const responseSystemPrompt = "You are an assistant that drafts email replies. Respond with the reply body only, without a subject line or commentary."

const responsePromptFormat = `Draft a reply to the email below using a %s tone.
%s
Original email:
%s`

// ResponsePrompt builds the reply drafting prompt
func ResponsePrompt(req *core.ResponseRequest, body string) string {
	extra := ""
	if strings.TrimSpace(req.Context) != "" {
		extra = "Additional context for the reply:\n" + req.Context + "\n"
	}
	return fmt.Sprintf(responsePromptFormat, req.Tone, extra, body)
}

const actionsPromptFormat = `Extract the action items from the email below.
Respond with a JSON object containing:
- action_items: list of at most 3 tasks the recipient is asked to do
- has_deadlines: boolean, true if any task has a date or deadline
- urgent_items: the subset of action_items that are urgent

Email:
%s

Respond only with the JSON object and nothing else.`

// ActionsPrompt builds the action item extraction prompt
func ActionsPrompt(body string) string {
	return fmt.Sprintf(actionsPromptFormat, body)
}

const summaryPromptFormat = `Summarize the email thread below.
Respond with a JSON object containing:
- summary: one paragraph describing the conversation
- key_points: list of the most important points
- participants: list of the people taking part
- action_items: list of open tasks

Thread:
%s
Respond only with the JSON object and nothing else.`

// ThreadPrompt builds the thread summary prompt from messages already cut to size
func ThreadPrompt(messages []core.ThreadMessage, bodies []string) string {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "--- Message %d\nFrom: %s\n", i+1, orUnknown(m.From))
		if m.Subject != "" {
			fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
		}
		if !m.Date.IsZero() {
			fmt.Fprintf(&b, "Date: %s\n", m.Date.Format("2006-01-02 15:04 MST"))
		}
		b.WriteString(bodies[i])
		b.WriteString("\n")
	}
	return fmt.Sprintf(summaryPromptFormat, b.String())
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}
