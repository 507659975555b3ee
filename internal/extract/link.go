// Package extract pulls verification links and codes out of message content.
// All functions are pure.
package extract

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/mikey/mailpilot/internal/core"
)

// LinkMarkers must appear in the path or query of a verification link
var LinkMarkers = []string{"verify", "confirm", "activate"}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>` + "`" + `]+`)

const trailingPunctuation = ".,;:!?)]}"

// VerificationLinks scans the HTML part, falling back to the text part, and returns
// every verification link in document order without duplicates
func VerificationLinks(content core.MessageContent) []string {
	if content.HTML != "" {
		if links := scanLinks(html.UnescapeString(content.HTML)); len(links) > 0 {
			return links
		}
	}
	return scanLinks(content.Text)
}

func scanLinks(s string) []string {
	links := []string{}
	seen := make(map[string]bool)
	for _, raw := range urlPattern.FindAllString(s, -1) {
		candidate := strings.TrimRight(raw, trailingPunctuation)
		if seen[candidate] || !hasMarker(candidate) {
			continue
		}
		seen[candidate] = true
		links = append(links, candidate)
	}
	return links
}

// hasMarker ignores the host so that e.g. verify.example.com/news does not count
func hasMarker(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	target := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, m := range LinkMarkers {
		if strings.Contains(target, m) {
			return true
		}
	}
	return false
}
