package gmail

import "time"

type MessageID string
type LabelID string

// MessageMeta is the raw per-message metadata pulled from the API.
type MessageMeta struct {
	ID       MessageID
	ThreadID string
	LabelIDs []LabelID
	Headers  map[string]string // From, Subject, Date, List-Unsubscribe, etc.
	Snippet  string
	// Received is the server-side receipt time (internalDate).
	Received time.Time
	// Multipart reports whether the payload is multipart/mixed, the
	// closest attachment signal the metadata format exposes.
	Multipart bool
}

// Label mirrors the Gmail label resource fields we use.
type Label struct {
	ID            LabelID
	Name          string
	Type          string // "system" or "user"
	MessagesTotal int64
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

// ModifyOps describes a batch label mutation.
type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

type Query struct {
	Raw string // Gmail query string, already formed (e.g., `newer_than:90d -in:chats`)
}
