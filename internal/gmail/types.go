// Package gmail provides a client for the Gmail-shaped mail provider
// REST API: paginated message listing, full message retrieval, and
// batch deletion, plus normalization of raw messages into flat records.
package gmail

// Header is a single message header as returned by the provider.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody holds the (base64-encoded) content of a message part.
type PartBody struct {
	Size         int64  `json:"size"`
	Data         string `json:"data,omitempty"`
	AttachmentID string `json:"attachmentId,omitempty"`
}

// MessagePart is one node of the recursive MIME part tree. A part may
// carry its own body data and any number of child parts.
type MessagePart struct {
	PartID   string        `json:"partId"`
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []Header      `json:"headers"`
	Body     PartBody      `json:"body"`
	Parts    []MessagePart `json:"parts,omitempty"`
}

// Message is the provider's full message detail response.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId"`
	HistoryID    string       `json:"historyId"`
	InternalDate string       `json:"internalDate"`
	SizeEstimate int64        `json:"sizeEstimate"`
	Snippet      string       `json:"snippet"`
	LabelIDs     []string     `json:"labelIds"`
	Payload      *MessagePart `json:"payload"`
}

// MessageRef is one entry of the provider's list response.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// ListResponse is the provider's paged message-list response. A nil
// Messages slice means an empty inbox or exhausted pagination, not an
// error. NextPageToken is an opaque continuation cursor; empty means
// no further pages.
type ListResponse struct {
	Messages           []MessageRef `json:"messages,omitempty"`
	NextPageToken      string       `json:"nextPageToken,omitempty"`
	ResultSizeEstimate int64        `json:"resultSizeEstimate"`
}

// Email is one normalized mail item: header fields extracted, body
// decoded and truncated. Immutable after creation.
type Email struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date"`
}

// Page is the result of fetching one page of the inbox: the normalized
// emails that were retrieved successfully, plus the continuation token
// for the next page (empty when the listing is exhausted).
type Page struct {
	Emails        []Email `json:"emails"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// DeleteResult is the outcome of a batch delete. DeletedCount is only
// meaningful when Success is true, in which case it equals the number
// of ids submitted.
type DeleteResult struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deletedCount"`
}
