package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mailledger/config"
	"mailledger/internal/model"
	"mailledger/internal/mq"
)

// Classifier normalizes inbound mail events into InfoTable metadata records.
// It is the only component that knows how to map an event's shape onto the
// stored classification fields.
type Classifier struct {
	smtp          config.SMTPConfig
	source        string
	sourceVersion string
}

func NewClassifier(smtp config.SMTPConfig, source, sourceVersion string) *Classifier {
	return &Classifier{
		smtp:          smtp,
		source:        source,
		sourceVersion: sourceVersion,
	}
}

// ClassifyMailSent builds the info table for a system mail event.
func (c *Classifier) ClassifyMailSent(p *mq.MailSentPayload) *model.InfoTable {
	info := &model.InfoTable{
		EmailType:    model.EmailTypeSystem,
		DeliveryType: model.DeliveryTypeLive,
	}

	if p.Key == mq.MessageKeyTestEmail {
		info.DeliveryType = model.DeliveryTypeTest
	}

	if len(p.From) > 0 {
		info.SenderEmail = p.From[0].Email
		info.SenderName = p.From[0].Name
	}

	// Events raised outside a web request carry no client info.
	info.IPAddress = p.IPAddress
	info.UserAgent = p.UserAgent
	if info.IPAddress == "" {
		info.IPAddress = "Console Request"
	}
	if info.UserAgent == "" {
		info.UserAgent = "Console Request"
	}

	c.applyTransport(info)

	if p.Success {
		info.DeliveryStatus = model.DeliveryStatusSent
	} else {
		info.DeliveryStatus = model.DeliveryStatusError
		info.Message = "Unable to send message."
	}

	info.Mailer = p.Mailer
	if info.Mailer == "" {
		info.Mailer = "System Mailer"
	}

	info.Source = p.Source
	info.SourceVersion = p.SourceVersion
	if info.Source == "" {
		info.Source = c.source
	}
	if info.SourceVersion == "" {
		info.SourceVersion = c.sourceVersion
	}

	return info
}

// ClassifyCampaignSent builds the info table for a campaign mail event. The
// campaign path carries no delivery outcome, so no delivery status is set
// and the snapshot stays on its normal status.
func (c *Classifier) ClassifyCampaignSent(p *mq.CampaignSentPayload) *model.InfoTable {
	return &model.InfoTable{
		EmailType:     model.EmailTypeCampaign,
		SenderName:    p.Email.FromName,
		SenderEmail:   p.Email.FromEmail,
		Mailer:        titleWords(p.Campaign.Mailer),
		Source:        c.source,
		SourceVersion: c.sourceVersion,
	}
}

// ResendInfo builds the info table attached to user-initiated resends.
func (c *Classifier) ResendInfo() *model.InfoTable {
	return &model.InfoTable{
		EmailType:     model.EmailTypeResent,
		DeliveryType:  model.DeliveryTypeLive,
		Source:        c.source,
		SourceVersion: c.sourceVersion,
	}
}

// applyTransport records the active transport parameters when the resend
// transport is SMTP-like.
func (c *Classifier) applyTransport(info *model.InfoTable) {
	if c.smtp.Host == "" {
		return
	}

	info.TransportType = "SMTP"
	info.Host = c.smtp.Host
	info.Port = c.smtp.Port
	info.Username = c.smtp.Username
	info.EncryptionMethod = c.smtp.Encryption
	info.Timeout = c.smtp.Timeout
}

// titleWords upper-cases the first letter of each space-separated word,
// matching how campaign mailer names are displayed.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
