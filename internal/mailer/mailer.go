package mailer

import (
	"context"
	"crypto/tls"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"mailledger/config"
	"mailledger/internal/model"
	"mailledger/pkg/metrics"
)

// Message is one outbound email for a single recipient.
type Message struct {
	Subject   string
	FromEmail string
	FromName  string
	To        string
	TextBody  string
	HTMLBody  string
	Info      *model.InfoTable
}

// Sender delivers a message to its recipient, or fails.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type smtpSender struct {
	dialer     *gomail.Dialer
	send       func(m *gomail.Message) error
	retryCount int
	logger     *zap.Logger
}

// NewSMTPSender builds an SMTP-backed sender with a small retry budget.
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	switch cfg.Encryption {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}

	logger.Info("Initializing SMTP sender",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("retry_count", retryCount),
	)

	return &smtpSender{
		dialer: d,
		send: func(m *gomail.Message) error {
			return d.DialAndSend(m)
		},
		retryCount: retryCount,
		logger:     logger,
	}
}

func (s *smtpSender) Send(ctx context.Context, msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.Info != nil {
		if msg.Info.EmailType != "" {
			m.SetHeader("X-Email-Type", msg.Info.EmailType)
		}
		if msg.Info.DeliveryType != "" {
			m.SetHeader("X-Delivery-Type", msg.Info.DeliveryType)
		}
	}

	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	var lastErr error
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.send(m)
		if err == nil {
			metrics.MailSendSuccess.WithLabelValues(s.dialer.Host).Inc()
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.logger.Warn("Send attempt failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			// The backoff wait must honor cancellation, not just the check at
			// the top of the loop.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 32*time.Second {
				backoff = 32 * time.Second
			}
		}
	}

	s.logger.Error("Failed to send mail",
		zap.String("to", msg.To),
		zap.Int("attempts", s.retryCount+1),
		zap.Error(lastErr),
	)
	metrics.MailSendFailure.WithLabelValues(s.dialer.Host).Inc()
	return lastErr
}
