package archive

import (
	"strings"
	"testing"

	"github.com/calebdoyle/mailsift/internal/gmail"
)

func TestFormatBlock(t *testing.T) {
	msg := gmail.Message{
		ID: "abc123",
		Headers: map[string]string{
			"From":    "News <news@x.com>",
			"To":      "me@example.com",
			"Subject": "Weekly digest",
			"Date":    "Sun, 31 Dec 2023 23:59:59 +0000",
		},
		BodyText: "hello world\n",
	}
	got := FormatBlock(msg)
	want := BlockStart + "\n" +
		"Message-ID: abc123\n" +
		"From: News <news@x.com>\n" +
		"To: me@example.com\n" +
		"Subject: Weekly digest\n" +
		"Date: Sun, 31 Dec 2023 23:59:59 +0000\n" +
		"\n" +
		"hello world\n" +
		BlockEnd + "\n\n"
	if got != want {
		t.Fatalf("block mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatBlockMissingHeaders(t *testing.T) {
	got := FormatBlock(gmail.Message{ID: "x", BodyText: "b"})
	for _, line := range []string{"From: N/A", "To: N/A", "Subject: N/A", "Date: N/A"} {
		if !strings.Contains(got, line) {
			t.Fatalf("block missing %q:\n%s", line, got)
		}
	}
}

func TestBodyTextPrefersPlain(t *testing.T) {
	msg := gmail.Message{BodyText: "plain", BodyHTML: "<p>html</p>"}
	if got := bodyText(msg); got != "plain" {
		t.Fatalf("bodyText = %q, want plain part", got)
	}
}

func TestBodyTextConvertsHTMLOnly(t *testing.T) {
	msg := gmail.Message{BodyHTML: "<p>converted <b>content</b></p>"}
	got := bodyText(msg)
	if strings.Contains(got, "<p>") {
		t.Fatalf("HTML tags survived conversion: %q", got)
	}
	if !strings.Contains(got, "converted") {
		t.Fatalf("converted text lost content: %q", got)
	}
}
