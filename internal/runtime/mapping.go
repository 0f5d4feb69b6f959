package runtime

import (
	"encoding/base64"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

func headerMap(payload *gmailapi.MessagePart) map[string]string {
	h := map[string]string{}
	if payload == nil {
		return h
	}
	for _, hd := range payload.Headers {
		h[hd.Name] = hd.Value
	}
	return h
}

func internalDate(msg *gmailapi.Message) time.Time {
	if msg.InternalDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(msg.InternalDate).UTC()
}

// extractBody walks the MIME tree and returns the first text/plain and
// text/html parts it finds, decoded.
func extractBody(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}
	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			t, h := extractBody(part)
			if text == "" && t != "" {
				text = t
			}
			if html == "" && h != "" {
				html = h
			}
		}
		return text, html
	}

	data := ""
	if payload.Body != nil {
		data = decodeBase64URL(payload.Body.Data)
	}
	switch payload.MimeType {
	case "text/plain":
		return data, ""
	case "text/html":
		return "", data
	}
	return "", ""
}

// decodeBase64URL decodes Gmail's URL-safe base64 body data, padded or not.
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	if data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s); err == nil {
		return string(data)
	}
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return string(data)
	}
	return ""
}
