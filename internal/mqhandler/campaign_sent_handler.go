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

// CampaignSentHandler snapshots campaign mail events from the
// `campaign.sent` queue.
type CampaignSentHandler struct {
	writer     *service.SnapshotWriter
	classifier *service.Classifier
	deduper    Deduper
	producer   Publisher
	logger     *zap.Logger
}

func NewCampaignSentHandler(writer *service.SnapshotWriter, classifier *service.Classifier, deduper Deduper, producer Publisher, logger *zap.Logger) *CampaignSentHandler {
	return &CampaignSentHandler{
		writer:     writer,
		classifier: classifier,
		deduper:    deduper,
		producer:   producer,
		logger:     logger,
	}
}

func (h *CampaignSentHandler) HandleCampaignSent(ctx context.Context, raw json.RawMessage) error {
	var p mq.CampaignSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Malformed payloads are poison: ack them instead of requeueing.
		h.logger.Error("Dropping malformed campaign sent payload", zap.Error(err))
		return nil
	}

	if p.MessageID != "" && !h.deduper.AcquireOnce(ctx, "campaign_sent", p.MessageID) {
		h.logger.Info("Skipping duplicate campaign sent event",
			zap.String("message_id", p.MessageID),
		)
		return nil
	}

	msg := &model.OutgoingMessage{
		Subject: p.Email.Subject,
		From: []model.Address{
			{Email: p.Email.FromEmail, Name: p.Email.FromName},
		},
		To:    p.Email.To,
		Body:  p.Email.Body,
		Parts: p.Email.Parts,
	}

	info := h.classifier.ClassifyCampaignSent(&p)

	sentEmail, err := h.writer.Write(ctx, msg, info)
	if err != nil {
		if errors.Is(err, service.ErrRecordingDisabled) {
			return nil
		}

		var persistErr *service.PersistError
		if errors.As(err, &persistErr) {
			return nil
		}

		// Requeue path: release the dedup lock so the redelivery is
		// processed instead of dropped as a duplicate.
		if p.MessageID != "" {
			h.deduper.Release(ctx, "campaign_sent", p.MessageID)
		}
		return err
	}

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

	return nil
}
