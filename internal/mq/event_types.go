package mq

import (
	"time"

	"mailledger/internal/model"
)

// Routing keys consumed and published by this service.
const (
	RoutingKeyMailSent       = "email.sent"
	RoutingKeyCampaignSent   = "campaign.sent"
	RoutingKeySentEmailSaved = "sentemail.logged"
)

// MessageKeyTestEmail marks a system test message. Test sends get recorded
// with a Test delivery type.
const MessageKeyTestEmail = "test_email"

// MailSentPayload is published by the sending application once a system
// message has been handed to its transport, successfully or not.
type MailSentPayload struct {
	MessageID     string              `json:"message_id"`
	Key           string              `json:"key,omitempty"`
	From          []model.Address     `json:"from"`
	To            []model.Address     `json:"to"`
	Subject       string              `json:"subject"`
	Body          string              `json:"body,omitempty"`
	Parts         []model.MessagePart `json:"parts,omitempty"`
	Success       bool                `json:"success"`
	Mailer        string              `json:"mailer,omitempty"`
	IPAddress     string              `json:"ip_address,omitempty"`
	UserAgent     string              `json:"user_agent,omitempty"`
	Source        string              `json:"source,omitempty"`
	SourceVersion string              `json:"source_version,omitempty"`
	SentAt        time.Time           `json:"sent_at"`
}

// CampaignEmail is the email model attached to a campaign send event.
type CampaignEmail struct {
	FromName  string              `json:"from_name"`
	FromEmail string              `json:"from_email"`
	To        []model.Address     `json:"to"`
	Subject   string              `json:"subject"`
	Body      string              `json:"body,omitempty"`
	Parts     []model.MessagePart `json:"parts,omitempty"`
}

// CampaignDescriptor names the campaign mailer that performed the send.
type CampaignDescriptor struct {
	Mailer string `json:"mailer"`
}

// CampaignSentPayload is published after a campaign mailer dispatches a
// campaign email.
type CampaignSentPayload struct {
	MessageID string             `json:"message_id"`
	Email     CampaignEmail      `json:"email"`
	Campaign  CampaignDescriptor `json:"campaign"`
	SentAt    time.Time          `json:"sent_at"`
}

// SentEmailLoggedPayload is published after a snapshot row is written, for
// downstream consumers (notifications, audit).
type SentEmailLoggedPayload struct {
	SentEmailID int64     `json:"sent_email_id"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
	LoggedAt    time.Time `json:"logged_at"`
}
