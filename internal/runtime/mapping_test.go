package runtime

import (
	"encoding/base64"
	"testing"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestExtractBodyPrefersFirstOfEachKind(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain body")}},
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html body</p>")}},
		},
	}
	text, html := extractBody(payload)
	if text != "plain body" {
		t.Fatalf("text = %q", text)
	}
	if html != "<p>html body</p>" {
		t.Fatalf("html = %q", html)
	}
}

func TestExtractBodyNestedMultipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("nested plain")}},
				},
			},
			{MimeType: "application/pdf", Filename: "a.pdf", Body: &gmailapi.MessagePartBody{}},
		},
	}
	text, html := extractBody(payload)
	if text != "nested plain" {
		t.Fatalf("text = %q", text)
	}
	if html != "" {
		t.Fatalf("html = %q, want empty", html)
	}
}

func TestExtractBodySinglePart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "text/html",
		Body:     &gmailapi.MessagePartBody{Data: b64("<b>only html</b>")},
	}
	text, html := extractBody(payload)
	if text != "" || html != "<b>only html</b>" {
		t.Fatalf("got text=%q html=%q", text, html)
	}
}

func TestDecodeBase64URLPaddedInput(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("padded"))
	if got := decodeBase64URL(padded); got != "padded" {
		t.Fatalf("got %q", got)
	}
	if got := decodeBase64URL("!!not base64!!"); got != "" {
		t.Fatalf("expected empty result for garbage, got %q", got)
	}
}

func TestInternalDate(t *testing.T) {
	msg := &gmailapi.Message{InternalDate: 1703980800000} // 2023-12-31T00:00:00Z
	got := internalDate(msg)
	want := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if !internalDate(&gmailapi.Message{}).IsZero() {
		t.Fatal("zero InternalDate should map to zero time")
	}
}

func TestHeaderMap(t *testing.T) {
	payload := &gmailapi.MessagePart{
		Headers: []*gmailapi.MessagePartHeader{
			{Name: "From", Value: "a@x.com"},
			{Name: "Subject", Value: "hi"},
		},
	}
	h := headerMap(payload)
	if h["From"] != "a@x.com" || h["Subject"] != "hi" {
		t.Fatalf("unexpected map: %v", h)
	}
	if len(headerMap(nil)) != 0 {
		t.Fatal("nil payload should yield empty map")
	}
}
