package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailledger/internal/model"
	"mailledger/internal/mq"
	"mailledger/internal/service"
)

// MailSentHandler snapshots system mail events from the `email.sent` queue.
type MailSentHandler struct {
	writer     *service.SnapshotWriter
	classifier *service.Classifier
	deduper    Deduper
	producer   Publisher
	logger     *zap.Logger
}

func NewMailSentHandler(writer *service.SnapshotWriter, classifier *service.Classifier, deduper Deduper, producer Publisher, logger *zap.Logger) *MailSentHandler {
	return &MailSentHandler{
		writer:     writer,
		classifier: classifier,
		deduper:    deduper,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMailSent classifies the event and writes one snapshot. Duplicated
// deliveries are dropped on the message id. A failed snapshot insert is
// logged and acked: the send itself already succeeded or failed
// independently of logging. Retention storage failures requeue the message,
// and the dedup lock is released first so the redelivery is not dropped as a
// duplicate.
func (h *MailSentHandler) HandleMailSent(ctx context.Context, raw json.RawMessage) error {
	var p mq.MailSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// A malformed payload never becomes parseable on redelivery. Log and
		// ack instead of requeueing a poison message forever.
		h.logger.Error("Dropping malformed mail sent payload", zap.Error(err))
		return nil
	}

	if p.MessageID != "" && !h.deduper.AcquireOnce(ctx, "mail_sent", p.MessageID) {
		h.logger.Info("Skipping duplicate mail sent event",
			zap.String("message_id", p.MessageID),
		)
		return nil
	}

	msg := &model.OutgoingMessage{
		Subject: p.Subject,
		From:    p.From,
		To:      p.To,
		Body:    p.Body,
		Parts:   p.Parts,
	}

	info := h.classifier.ClassifyMailSent(&p)

	sentEmail, err := h.writer.Write(ctx, msg, info)
	if err != nil {
		if errors.Is(err, service.ErrRecordingDisabled) {
			return nil
		}

		var persistErr *service.PersistError
		if errors.As(err, &persistErr) {
			// Already logged by the writer. Nothing to retry: requeueing
			// would double-log once storage recovers.
			return nil
		}

		// The delivery gets requeued. The dedup lock must not outlive it or
		// the redelivery would be acked unwritten.
		if p.MessageID != "" {
			h.deduper.Release(ctx, "mail_sent", p.MessageID)
		}
		return err
	}

	h.publishLogged(sentEmail)

	return nil
}

// publishLogged fans out a best-effort notification for downstream
// consumers. A publish failure never fails the handler.
func (h *MailSentHandler) publishLogged(sentEmail *model.SentEmail) {
	payload := mq.SentEmailLoggedPayload{
		SentEmailID: sentEmail.ID,
		Subject:     sentEmail.EmailSubject,
		Status:      sentEmail.Status,
		LoggedAt:    time.Now(),
	}

	if err := h.producer.Publish(mq.RoutingKeySentEmailSaved, payload); err != nil {
		h.logger.Error("Failed to publish sentemail.logged event",
			zap.Int64("sent_email_id", sentEmail.ID),
			zap.Error(err),
		)
	}
}
