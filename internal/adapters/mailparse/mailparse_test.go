package mailparse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParse_MultipartAlternative(t *testing.T) {
	raw := crlf(`From: "Acme Accounts" <no-reply@acme.test>
To: user@example.test
Subject: Confirm your email
Date: Mon, 02 Jan 2006 15:04:05 +0000
Message-Id: <abc123@acme.test>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain; charset=utf-8

Your code is: AB12CD
--BOUNDARY
Content-Type: text/html; charset=utf-8

<a href="https://acme.test/verify?t=1">Verify</a>
--BOUNDARY--
`)

	msg, err := ParseBytes([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "abc123@acme.test", msg.ID)
	assert.Equal(t, "no-reply@acme.test", msg.From)
	assert.Equal(t, "Confirm your email", msg.Subject)
	assert.True(t, msg.Date.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))
	assert.Equal(t, "Your code is: AB12CD", msg.Text)
	assert.Equal(t, `<a href="https://acme.test/verify?t=1">Verify</a>`, msg.HTML)
}

func TestParse_SinglePartWithoutDate(t *testing.T) {
	raw := crlf(`From: alice@example.test
Subject: Hello

Just a plain body.
`)

	msg, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "alice@example.test", msg.From)
	assert.Equal(t, "Just a plain body.", msg.Text)
	assert.Empty(t, msg.HTML)
	assert.True(t, msg.Date.IsZero())
}

func TestParse_DecodesCharsetsAndEncodedWords(t *testing.T) {
	raw := crlf(`From: bob@example.test
Subject: =?UTF-8?Q?Invitaci=C3=B3n?=
Content-Type: text/plain; charset=windows-1252
Content-Transfer-Encoding: quoted-printable

Caf=E9 at noon
`)

	msg, err := ParseBytes([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Invitación", msg.Subject)
	assert.Equal(t, "Café at noon", msg.Text)
}

func TestParse_SkipsAttachments(t *testing.T) {
	raw := crlf(`From: carol@example.test
Subject: Report
Content-Type: multipart/mixed; boundary="X"

--X
Content-Type: text/plain

See attached.
--X
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

secret attachment text
--X--
`)

	msg, err := ParseBytes([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "See attached.", msg.Text)
	assert.NotContains(t, msg.Text, "secret")
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := ParseBytes([]byte("not a header line without colon\r\n\r\nbody"))
	assert.Error(t, err)
}
