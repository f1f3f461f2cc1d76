package model

import "encoding/json"

// Email types.
const (
	EmailTypeSystem   = "System"
	EmailTypeCampaign = "Campaign"
	EmailTypeResent   = "Resent"
)

// Delivery types.
const (
	DeliveryTypeLive = "Live"
	DeliveryTypeTest = "Test"
)

// Delivery statuses. Only used transiently to derive SentEmail.Status; the
// field is stripped before the info table is stored.
const (
	DeliveryStatusSent  = "Sent"
	DeliveryStatusError = "Error"
)

// InfoTable classifies a single send attempt. It is built fresh per event,
// serialized into SentEmail.Info, and discarded.
type InfoTable struct {
	EmailType      string `json:"emailType,omitempty"`
	DeliveryType   string `json:"deliveryType,omitempty"`
	DeliveryStatus string `json:"deliveryStatus,omitempty"`

	SenderName  string `json:"senderName,omitempty"`
	SenderEmail string `json:"senderEmail,omitempty"`
	IPAddress   string `json:"ipAddress,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`

	// Transport settings, populated only when the active transport is SMTP.
	TransportType    string `json:"transportType,omitempty"`
	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	Username         string `json:"username,omitempty"`
	EncryptionMethod string `json:"encryptionMethod,omitempty"`
	Timeout          int    `json:"timeout,omitempty"`

	Source        string `json:"source,omitempty"`
	SourceVersion string `json:"sourceVersion,omitempty"`
	CraftVersion  string `json:"craftVersion,omitempty"`
	Mailer        string `json:"mailer,omitempty"`
	Message       string `json:"message,omitempty"`
}

// EncodeInfo serializes the info table for storage. DeliveryStatus is
// removed first: it is derivable from the snapshot's status column.
func (t *InfoTable) EncodeInfo() (string, error) {
	stored := *t
	stored.DeliveryStatus = ""

	b, err := json.Marshal(&stored)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
