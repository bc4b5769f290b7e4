package gmail

import (
	"encoding/base64"
	"mime"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mailsweep/mailsweep-service/internal/htmltext"
)

// MaxBodyChars is the fixed truncation limit for decoded bodies. It
// bounds classification-request payload size and render cost.
const MaxBodyChars = 500

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// Normalize flattens a validated provider message into an Email.
func Normalize(msg *Message) Email {
	payload := msg.Payload
	return Email{
		ID:      msg.ID,
		Sender:  headerText(payload, "From"),
		Subject: headerText(payload, "Subject"),
		Date:    headerValue(payload, "Date"),
		Body:    truncate(bodyText(payload), MaxBodyChars),
	}
}

// headerValue returns the first top-level header with the given name.
// The match is case-sensitive; an absent header yields "".
func headerValue(payload *MessagePart, name string) string {
	for _, h := range payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// headerText is headerValue with RFC 2047 encoded words decoded and
// the result normalized to NFC. The provider usually delivers headers
// already decoded; this covers the messages where it does not.
func headerText(payload *MessagePart, name string) string {
	value := headerValue(payload, name)
	if value == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		decoded = value
	}
	return norm.NFC.String(strings.TrimSpace(decoded))
}

// bodyText extracts the message body. Precedence: first text/plain
// part, then first text/html part (reduced to plain text), then the
// payload's own inline data. Anything else yields "".
func bodyText(payload *MessagePart) string {
	if len(payload.Parts) > 0 {
		if part := findPart(payload.Parts, mimeTextPlain); part != nil {
			return decodeBody(part.Body.Data)
		}
		if part := findPart(payload.Parts, mimeTextHTML); part != nil {
			return htmltext.Extract(decodeBody(part.Body.Data))
		}
	}
	if payload.Body.Data != "" {
		text := decodeBody(payload.Body.Data)
		if strings.EqualFold(payload.MimeType, mimeTextHTML) {
			return htmltext.Extract(text)
		}
		return text
	}
	return ""
}

// findPart returns the first direct child with the given MIME type and
// non-empty body data, or nil.
func findPart(parts []MessagePart, mimeType string) *MessagePart {
	for i := range parts {
		if parts[i].MimeType == mimeType && parts[i].Body.Data != "" {
			return &parts[i]
		}
	}
	return nil
}

// decodeBody decodes provider body data. The provider emits URL-safe
// base64; standard-alphabet data is accepted too. Undecodable data
// yields "" rather than an error, matching the absent-header policy.
func decodeBody(data string) string {
	trimmed := strings.TrimRight(data, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return string(b)
	}
	if b, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil {
		return string(b)
	}
	return ""
}

// truncate returns the first max characters of s. Counting is by rune
// so a multi-byte character is never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
