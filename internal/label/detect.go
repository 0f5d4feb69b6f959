package label

import (
	"regexp"
	"strings"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
)

// Marker phrases senders use around their opt-out links. Kept short on
// purpose: a false negative just leaves a message unlabeled, while a false
// positive files personal mail under the unsubscribe tree.
var markerPhrases = []string{
	"unsubscribe",
	"opt out",
	"opt-out",
	"manage preferences",
	"email preferences",
}

// Links whose path names the opt-out mechanism even when the visible text
// does not.
var unsubscribeLinkRe = regexp.MustCompile(
	`(?i)https?://[^\s"'<>]*(?:unsubscribe|opt[-_]?out|email[-_]?pref)[^\s"'<>]*`,
)

// DetectUnsubscribe reports whether the message carries an unsubscribe
// signal. The List-Unsubscribe header alone is sufficient; without it the
// plain and HTML bodies are scanned case-insensitively for marker phrases or
// opt-out links. No network or state side effects.
func DetectUnsubscribe(msg gc.Message) bool {
	if strings.TrimSpace(headerValue(msg.Headers, "List-Unsubscribe")) != "" {
		return true
	}
	for _, body := range []string{msg.BodyText, msg.BodyHTML} {
		if body == "" {
			continue
		}
		lower := strings.ToLower(body)
		for _, phrase := range markerPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		if unsubscribeLinkRe.MatchString(body) {
			return true
		}
	}
	return false
}

// headerValue looks up a header case-insensitively; Gmail preserves the
// sender's casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
