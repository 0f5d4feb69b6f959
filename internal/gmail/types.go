package gmail

import "time"

type MessageID string
type LabelID string

// MessageMeta is the header-only view returned by metadata fetches.
type MessageMeta struct {
	ID       MessageID
	LabelIDs []LabelID
	Headers  map[string]string // From, To, Subject, Date, List-Unsubscribe, etc.
	Date     time.Time         // internal date, not the Date header
}

// Message is the full view including decoded bodies.
type Message struct {
	ID       MessageID
	Headers  map[string]string
	BodyText string // decoded text/plain part, may be empty
	BodyHTML string // decoded text/html part, may be empty
	Date     time.Time
}

// ListPage is one page of a paginated message listing.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

type Query struct {
	Raw string // Gmail query string, already formed (e.g. `after:2023/01/01 before:2024/01/01`)
}
