package archive

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
)

// Block delimiters; the analyzer splits archives at BlockStart, so these are
// part of the file format, not just decoration.
const (
	BlockStart = "--- MESSAGE START ---"
	BlockEnd   = "--- MESSAGE END ---"
)

const missingHeader = "N/A"

// FormatBlock serializes one message: delimiter, header lines, blank line,
// body, delimiter, trailing blank line.
func FormatBlock(msg gc.Message) string {
	var b strings.Builder
	b.WriteString(BlockStart)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Message-ID: %s\n", msg.ID)
	fmt.Fprintf(&b, "From: %s\n", headerOr(msg.Headers, "From"))
	fmt.Fprintf(&b, "To: %s\n", headerOr(msg.Headers, "To"))
	fmt.Fprintf(&b, "Subject: %s\n", headerOr(msg.Headers, "Subject"))
	fmt.Fprintf(&b, "Date: %s\n", headerOr(msg.Headers, "Date"))
	b.WriteByte('\n')
	b.WriteString(bodyText(msg))
	b.WriteByte('\n')
	b.WriteString(BlockEnd)
	b.WriteString("\n\n")
	return b.String()
}

// bodyText prefers the plain part; HTML-only messages are converted to text.
func bodyText(msg gc.Message) string {
	if msg.BodyText != "" {
		return strings.TrimRight(msg.BodyText, "\n")
	}
	if msg.BodyHTML == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(msg.BodyHTML)
	if err != nil {
		// Unconvertible HTML is still better archived raw than dropped.
		return strings.TrimRight(msg.BodyHTML, "\n")
	}
	return strings.TrimSpace(md)
}

func headerOr(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return missingHeader
}
