package heuristics

import (
	"strings"

	"github.com/mikey/mailpilot/internal/core"
)

// Intent is the reason a message was written, as far as a reply is concerned
type Intent string

const (
	IntentMeeting   Intent = "meeting"
	IntentThanks    Intent = "thanks"
	IntentQuestion  Intent = "question"
	IntentRequest   Intent = "request"
	IntentComplaint Intent = "complaint"
	IntentGeneral   Intent = "general"
)

type intentRule struct {
	intent   Intent
	keywords []string
}

// intentRules are checked in order; the first match wins
var intentRules = []intentRule{
	{IntentMeeting, []string{"meeting", "schedule", "calendar", "appointment", "call"}},
	{IntentThanks, []string{"thank", "appreciate", "grateful"}},
	{IntentQuestion, []string{"?", "how do", "what is", "could you tell", "wondering"}},
	{IntentRequest, []string{"please", "request", "need", "would you", "can you"}},
	{IntentComplaint, []string{"disappointed", "unhappy", "complaint", "frustrated", "unacceptable", "problem"}},
}

var responseTemplates = map[Intent]map[core.Tone]string{
	IntentMeeting: {
		core.ToneProfessional: "Thank you for reaching out about the meeting. I will review my calendar and confirm a suitable time shortly.",
		core.ToneFriendly:     "Thanks for setting this up! Let me check my calendar and I'll get back to you with a time that works.",
		core.ToneFormal:       "Thank you for your invitation. I shall review my schedule and confirm my availability at the earliest opportunity.",
		core.ToneCasual:       "Sounds good! Let me check my calendar and get back to you.",
	},
	IntentThanks: {
		core.ToneProfessional: "You're welcome. I'm glad I could help, and please let me know if there is anything else you need.",
		core.ToneFriendly:     "You're very welcome! Happy to help anytime.",
		core.ToneFormal:       "You are most welcome. It was a pleasure to be of assistance.",
	},
	IntentQuestion: {
		core.ToneProfessional: "Thank you for your question. I am looking into it and will follow up with a detailed answer soon.",
		core.ToneFriendly:     "Great question! Let me look into it and I'll get back to you soon.",
		core.ToneFormal:       "Thank you for your enquiry. I will investigate the matter and respond in full shortly.",
	},
	IntentRequest: {
		core.ToneProfessional: "Thank you for your request. I have noted it and will get back to you once it has been handled.",
		core.ToneFriendly:     "Got it, thanks! I'll take care of this and let you know when it's done.",
		core.ToneFormal:       "I acknowledge receipt of your request and will inform you once it has been completed.",
	},
	IntentComplaint: {
		core.ToneProfessional: "I'm sorry to hear about your experience. I have escalated this and will follow up with a resolution as soon as possible.",
		core.ToneFormal:       "Please accept our apologies for the inconvenience. The matter has been escalated and we will respond with a resolution promptly.",
	},
	IntentGeneral: {
		core.ToneProfessional: "Thank you for your message. I have received it and will respond in more detail shortly.",
		core.ToneFriendly:     "Thanks for your message! I'll get back to you soon.",
	},
}

// ClassifyIntent picks the first intent whose keywords appear in text
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords) {
			return rule.intent
		}
	}
	return IntentGeneral
}

// GenerateResponse selects the template for the message intent and tone,
// falling back to the general professional template when the tone has none
func (e *Engine) GenerateResponse(originalText string, tone core.Tone) string {
	intent := ClassifyIntent(originalText)
	if tmpl, ok := responseTemplates[intent][normaliseTone(tone)]; ok {
		return tmpl
	}
	return responseTemplates[IntentGeneral][core.ToneProfessional]
}

func normaliseTone(tone core.Tone) core.Tone {
	t := core.Tone(strings.ToLower(strings.TrimSpace(string(tone))))
	if t == "" {
		return core.ToneProfessional
	}
	return t
}
