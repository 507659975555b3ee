package utils

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// TruncationMarker is appended to text cut by TruncateText
const TruncationMarker = "\n[... Content truncated due to size limits ...]"

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
	markupTag    = regexp.MustCompile(`<[^>]*>`)
)

// TextProcessor prepares message text before it is sent to a provider
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Drop the partial rune left at the cut
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText sanitizes, normalises whitespace and truncates in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(NormalizeWhitespace(tp.SanitizeUTF8(text)), maxSize)
}

// HTMLToText extracts the readable text of an HTML body. Markup that readability
// cannot make sense of is stripped of tags instead.
func (tp *TextProcessor) HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(html), &url.URL{})
	if err == nil {
		if text := NormalizeWhitespace(article.TextContent); text != "" {
			return text
		}
	} else {
		tp.logger.Debug("Readability extraction failed, stripping tags", zap.Error(err))
	}

	return NormalizeWhitespace(markupTag.ReplaceAllString(html, " "))
}

// BodyText prefers the plain text part and falls back to the HTML part
func (tp *TextProcessor) BodyText(text, html string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	return tp.HTMLToText(html)
}

// NormalizeWhitespace collapses runs of blanks and limits blank lines to one
func NormalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
