// Package htmltext reduces an HTML document to its readable text.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// discardContent marks elements whose text must not appear in output.
var discardContent = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"template": true,
}

// Extract tokenizes src and returns its text content with runs of
// whitespace collapsed to single spaces. Text from sibling elements is
// separated by a single space. Malformed markup is handled the way
// browsers handle it: the tokenizer never fails, it just stops at end
// of input.
func Extract(src string) string {
	tz := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	discard := 0

	for {
		switch tz.Next() {
		case html.ErrorToken:
			return b.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tz.TagName()
			tag := string(name)
			if discardContent[tag] {
				discard++
			}
			if tag == "img" && hasAttr && discard == 0 {
				writeWords(&b, altText(tz))
			}

		case html.EndTagToken:
			name, _ := tz.TagName()
			if discardContent[string(name)] && discard > 0 {
				discard--
			}

		case html.TextToken:
			if discard == 0 {
				writeWords(&b, string(tz.Text()))
			}
		}
	}
}

// writeWords appends the whitespace-collapsed words of text to b,
// separated from previous output by a single space.
func writeWords(b *strings.Builder, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(fields, " "))
}

// altText returns the alt attribute of the tag under the tokenizer.
func altText(tz *html.Tokenizer) string {
	for {
		key, val, more := tz.TagAttr()
		if string(key) == "alt" {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}
