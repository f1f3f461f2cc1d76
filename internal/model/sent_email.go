package model

import "time"

const (
	StatusNormal = "normal"
	StatusFailed = "failed"
)

// SentEmail is one persisted snapshot of a send attempt. Rows are written
// exactly once and never updated; retention pruning is the only mutation.
type SentEmail struct {
	ID           int64     `json:"id"`
	SiteID       int       `json:"site_id"`
	Title        string    `json:"title"`
	EmailSubject string    `json:"email_subject"`
	FromEmail    string    `json:"from_email"`
	FromName     string    `json:"from_name"`
	ToEmail      string    `json:"to_email"`
	Body         string    `json:"body"`
	HTMLBody     string    `json:"html_body"`
	Info         string    `json:"info"`
	Status       string    `json:"status"`
	DateCreated  time.Time `json:"date_created"`
	DateUpdated  time.Time `json:"date_updated"`
}

// Address is one entry of a message's From or To header, in header order.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// MessagePart is a single MIME child part of a multipart message.
type MessagePart struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// OutgoingMessage is the normalized form of an outbound email as carried on
// a mail event. Body is set for single-part messages; multipart messages
// carry their children in Parts instead.
type OutgoingMessage struct {
	Subject string
	From    []Address
	To      []Address
	Body    string
	Parts   []MessagePart
}

// FirstFrom returns the first From entry, or a zero Address.
func (m *OutgoingMessage) FirstFrom() Address {
	if len(m.From) > 0 {
		return m.From[0]
	}
	return Address{}
}

// FirstTo returns the first To entry, or a zero Address. Only the first
// recipient is denormalized onto the snapshot, even for multi-recipient
// messages.
func (m *OutgoingMessage) FirstTo() Address {
	if len(m.To) > 0 {
		return m.To[0]
	}
	return Address{}
}
