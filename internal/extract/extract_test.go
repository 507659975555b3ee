package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikey/mailpilot/internal/core"
)

func TestVerificationLinks(t *testing.T) {
	cases := []struct {
		name    string
		content core.MessageContent
		want    []string
	}{
		{
			name:    "anchor in html",
			content: core.MessageContent{HTML: `<a href="https://x.test/verify?t=1">go</a>`},
			want:    []string{"https://x.test/verify?t=1"},
		},
		{
			name:    "no marker",
			content: core.MessageContent{HTML: `<a href="https://x.test/news">read</a>`, Text: "see https://x.test/about"},
			want:    []string{},
		},
		{
			name:    "marker only in host",
			content: core.MessageContent{Text: "https://verify.x.test/home"},
			want:    []string{},
		},
		{
			name:    "marker in query",
			content: core.MessageContent{Text: "Open https://x.test/a?action=Confirm&id=9."},
			want:    []string{"https://x.test/a?action=Confirm&id=9"},
		},
		{
			name: "document order and dedupe",
			content: core.MessageContent{HTML: `<p><a href="https://x.test/activate/1">a</a>
				<a href="https://x.test/confirm/2">b</a> https://x.test/activate/1</p>`},
			want: []string{"https://x.test/activate/1", "https://x.test/confirm/2"},
		},
		{
			name:    "entities are unescaped",
			content: core.MessageContent{HTML: `<a href="https://x.test/verify?a=1&amp;b=2">go</a>`},
			want:    []string{"https://x.test/verify?a=1&b=2"},
		},
		{
			name:    "falls back to text when html has no match",
			content: core.MessageContent{HTML: "<p>Welcome</p>", Text: "Click https://x.test/verify/abc"},
			want:    []string{"https://x.test/verify/abc"},
		},
		{
			name:    "empty",
			content: core.MessageContent{},
			want:    []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerificationLinks(tc.content))
		})
	}
}

func TestVerificationCode(t *testing.T) {
	cases := []struct {
		name    string
		content core.MessageContent
		want    string
		found   bool
	}{
		{"code is colon", core.MessageContent{Text: "Your code is: AB12CD"}, "AB12CD", true},
		{"no code", core.MessageContent{Text: "no code here"}, "", false},
		{"otp without colon", core.MessageContent{Text: "OTP 482913 expires soon"}, "482913", true},
		{"token with colon", core.MessageContent{Text: "token:ZX81"}, "ZX81", true},
		{"too short", core.MessageContent{Text: "code: AB1"}, "", false},
		{"too long", core.MessageContent{Text: "code: ABCDEFGHIJ"}, "", false},
		{"html fallback", core.MessageContent{HTML: "<p>Your code is <b>9F3K2L</b></p>"}, "9F3K2L", true},
		{"text wins over html", core.MessageContent{Text: "code 1111", HTML: "code 2222"}, "1111", true},
		{"keyword inside a word", core.MessageContent{Text: "Scan the barcode 4411 at the desk. Your code is: ZX81QQ"}, "ZX81QQ", true},
		{"only embedded keyword", core.MessageContent{Text: "barcode 4411 and autotoken 9999"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, ok := VerificationCode(tc.content)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestArtifacts(t *testing.T) {
	a := Artifacts(core.MessageContent{
		Text: "Your code is: QW12 or visit https://x.test/confirm?u=1",
	})
	assert.Equal(t, []string{"https://x.test/confirm?u=1"}, a.Links)
	assert.Equal(t, "QW12", a.Code)
	assert.Equal(t, "https://x.test/confirm?u=1", a.Link())
}
