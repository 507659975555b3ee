// Package mailparse turns raw RFC 5322 messages into core.Message values.
package mailparse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/mikey/mailpilot/internal/core"
)

// maxPartSize bounds how much of a single body part is read
const maxPartSize = 1 << 20

func init() {
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ParseBytes parses a raw message held in memory
func ParseBytes(raw []byte) (*core.Message, error) {
	return Parse(bytes.NewReader(raw))
}

// Parse reads a message and keeps its text/plain and text/html bodies.
// Attachments are skipped. A missing Date header leaves Date zero.
func Parse(r io.Reader) (*core.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	msg := &core.Message{}
	header := mr.Header

	if id, err := header.MessageID(); err == nil {
		msg.ID = id
	}
	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = header.Get("Subject")
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	} else {
		msg.From = strings.TrimSpace(header.Get("From"))
	}
	if date, err := header.Date(); err == nil {
		msg.Date = date
	}

	var text, html []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				continue
			}
			// Keep whatever bodies were read before the broken part
			if len(text) > 0 || len(html) > 0 {
				break
			}
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil {
			contentType = "text/plain"
		}

		body, err := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			text = append(text, string(body))
		case strings.HasPrefix(contentType, "text/html"):
			html = append(html, string(body))
		}
	}

	msg.Text = strings.TrimSpace(strings.Join(text, "\n"))
	msg.HTML = strings.TrimSpace(strings.Join(html, "\n"))
	return msg, nil
}
