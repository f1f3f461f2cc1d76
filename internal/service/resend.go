package service

import (
	"context"

	"go.uber.org/zap"

	"mailledger/internal/mailer"
	"mailledger/internal/model"
	"mailledger/pkg/metrics"
)

// ResendResult lists the recipients of one resend batch by outcome.
type ResendResult struct {
	Sent   []string `json:"sent"`
	Failed []string `json:"failed"`
}

// ResendCoordinator re-dispatches a stored snapshot to a fresh recipient
// list. Resends are not themselves snapshotted.
type ResendCoordinator struct {
	sender     mailer.Sender
	classifier *Classifier
	logger     *zap.Logger
}

func NewResendCoordinator(sender mailer.Sender, classifier *Classifier, logger *zap.Logger) *ResendCoordinator {
	return &ResendCoordinator{
		sender:     sender,
		classifier: classifier,
		logger:     logger,
	}
}

// Resend validates the raw recipient string, rebuilds a message per valid
// recipient from the stored snapshot, and sends them sequentially. Any
// invalid address rejects the whole batch before a single send is attempted.
// A batch with any transport failure returns *ResendFailure naming every
// failed address, alongside the result.
func (c *ResendCoordinator) Resend(ctx context.Context, email *model.SentEmail, rawRecipients string) (*ResendResult, error) {
	list, err := ParseRecipients(rawRecipients)
	if err != nil {
		return nil, err
	}

	if len(list.Invalid) > 0 {
		return nil, &ValidationError{
			Reason:  ReasonInvalidAddresses,
			Invalid: list.InvalidEmails(),
		}
	}

	if len(list.Valid) == 0 {
		return nil, &ValidationError{Reason: ReasonNoValidRecipients}
	}

	info := c.classifier.ResendInfo()
	result := &ResendResult{}

	for _, recipient := range list.Valid {
		msg := &mailer.Message{
			Subject:   email.Title,
			FromEmail: email.FromEmail,
			FromName:  email.FromName,
			To:        recipient.Email,
			TextBody:  email.Body,
			HTMLBody:  email.HTMLBody,
			Info:      info,
		}

		if err := c.sender.Send(ctx, msg); err != nil {
			c.logger.Error("Failed to resend email",
				zap.Int64("sent_email_id", email.ID),
				zap.String("recipient", recipient.Email),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, recipient.Email)
			metrics.IncrementResendRecipient("failed")
			continue
		}

		result.Sent = append(result.Sent, recipient.Email)
		metrics.IncrementResendRecipient("sent")
	}

	if len(result.Failed) > 0 {
		return result, &ResendFailure{
			Sent:   result.Sent,
			Failed: result.Failed,
		}
	}

	return result, nil
}
