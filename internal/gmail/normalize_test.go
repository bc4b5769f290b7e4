package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestNormalize_HeaderExtraction(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers: []Header{
				{Name: "From", Value: "alice@example.com"},
				{Name: "From", Value: "second@example.com"},
				{Name: "Subject", Value: "Hello"},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
			},
			Body: PartBody{Data: b64("hi")},
		},
	}

	email := Normalize(msg)
	if email.ID != "m1" {
		t.Errorf("id = %q, want m1", email.ID)
	}
	if email.Sender != "alice@example.com" {
		t.Errorf("sender = %q, want first From header", email.Sender)
	}
	if email.Subject != "Hello" {
		t.Errorf("subject = %q, want Hello", email.Subject)
	}
	if email.Date != "Mon, 02 Jan 2006 15:04:05 -0700" {
		t.Errorf("date = %q", email.Date)
	}
	if email.Body != "hi" {
		t.Errorf("body = %q, want hi", email.Body)
	}
}

func TestNormalize_HeaderMatchIsCaseSensitive(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers:  []Header{{Name: "from", Value: "lower@example.com"}},
			Body:     PartBody{},
		},
	}

	email := Normalize(msg)
	if email.Sender != "" {
		t.Errorf("sender = %q, want empty for lowercase header name", email.Sender)
	}
}

func TestNormalize_AbsentHeadersYieldEmptyStrings(t *testing.T) {
	msg := &Message{
		ID:      "m1",
		Payload: &MessagePart{MimeType: "text/plain"},
	}

	email := Normalize(msg)
	if email.Sender != "" || email.Subject != "" || email.Date != "" {
		t.Errorf("absent headers should yield empty fields, got %+v", email)
	}
}

func TestNormalize_DecodesEncodedWordHeaders(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers: []Header{
				{Name: "Subject", Value: "=?UTF-8?B?SMOpbGxv?="},
			},
		},
	}

	email := Normalize(msg)
	if email.Subject != "Héllo" {
		t.Errorf("subject = %q, want decoded Héllo", email.Subject)
	}
}

func TestNormalize_PrefersPlainTextPart(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/alternative",
			Parts: []MessagePart{
				{MimeType: "text/html", Body: PartBody{Data: b64("<p>html body</p>")}},
				{MimeType: "text/plain", Body: PartBody{Data: b64("plain body")}},
			},
		},
	}

	email := Normalize(msg)
	if email.Body != "plain body" {
		t.Errorf("body = %q, want the plain text part", email.Body)
	}
}

func TestNormalize_FallsBackToHTMLPart(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/alternative",
			Parts: []MessagePart{
				{MimeType: "image/png", Body: PartBody{AttachmentID: "att1"}},
				{MimeType: "text/html", Body: PartBody{Data: b64("<p>Hello <b>world</b></p><script>x()</script>")}},
			},
		},
	}

	email := Normalize(msg)
	if email.Body != "Hello world" {
		t.Errorf("body = %q, want stripped HTML text", email.Body)
	}
}

func TestNormalize_UsesInlineBodyWhenNoParts(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Body:     PartBody{Data: b64("inline content")},
		},
	}

	email := Normalize(msg)
	if email.Body != "inline content" {
		t.Errorf("body = %q, want inline content", email.Body)
	}
}

func TestNormalize_EmptyBodyWhenNothingDecodable(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "multipart/mixed",
			Parts: []MessagePart{
				{MimeType: "image/png", Body: PartBody{AttachmentID: "att1"}},
			},
		},
	}

	email := Normalize(msg)
	if email.Body != "" {
		t.Errorf("body = %q, want empty", email.Body)
	}
}

func TestNormalize_TruncatesBodyTo500Chars(t *testing.T) {
	long := strings.Repeat("a", 600)
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Body:     PartBody{Data: b64(long)},
		},
	}

	email := Normalize(msg)
	if len(email.Body) != 500 {
		t.Fatalf("body length = %d, want 500", len(email.Body))
	}
	if email.Body != long[:500] {
		t.Error("body should be the first 500 characters")
	}
}

func TestNormalize_TruncationRespectsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", 600)
	msg := &Message{
		ID: "m1",
		Payload: &MessagePart{
			MimeType: "text/plain",
			Body:     PartBody{Data: b64(long)},
		},
	}

	email := Normalize(msg)
	runes := []rune(email.Body)
	if len(runes) != 500 {
		t.Fatalf("body runes = %d, want 500", len(runes))
	}
	for _, r := range runes {
		if r != 'é' {
			t.Fatalf("found mangled rune %q", r)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "url-safe alphabet",
			data: base64.RawURLEncoding.EncodeToString([]byte("a?b>c")),
			want: "a?b>c",
		},
		{
			name: "standard alphabet with padding",
			data: base64.StdEncoding.EncodeToString([]byte("a?b>c")),
			want: "a?b>c",
		},
		{
			name: "undecodable",
			data: "!!!not base64!!!",
			want: "",
		},
		{
			name: "empty",
			data: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeBody(tt.data); got != tt.want {
				t.Errorf("decodeBody(%q) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}
