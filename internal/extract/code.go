package extract

import (
	"html"
	"regexp"

	"github.com/mikey/mailpilot/internal/core"
)

var (
	codePattern = regexp.MustCompile(`\b(?i:code|token|otp)\b(?:\s+(?i:is))?\s*:?\s*([A-Z0-9]{4,8})\b`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// VerificationCode returns the first code found in the text part, then the HTML part.
// The boolean is false when neither contains one.
func VerificationCode(content core.MessageContent) (string, bool) {
	if code, ok := findCode(content.Text); ok {
		return code, true
	}
	if content.HTML == "" {
		return "", false
	}
	return findCode(html.UnescapeString(tagPattern.ReplaceAllString(content.HTML, " ")))
}

func findCode(s string) (string, bool) {
	m := codePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Artifacts runs both extractors over content
func Artifacts(content core.MessageContent) core.ExtractedArtifact {
	code, _ := VerificationCode(content)
	return core.ExtractedArtifact{
		Links: VerificationLinks(content),
		Code:  code,
	}
}
