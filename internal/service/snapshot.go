package service

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mailledger/config"
	"mailledger/internal/model"
	"mailledger/pkg/metrics"
)

// encodedWordPattern matches the MIME base64 encoded-word form of a subject
// header, e.g. "=?UTF-8?B?SGVsbG8=?=".
var encodedWordPattern = regexp.MustCompile(`=\?UTF-8\?B\?(.*)\?=`)

// SnapshotStore is the persistence surface the snapshot writer needs.
type SnapshotStore interface {
	Insert(ctx context.Context, e *model.SentEmail) (int64, error)
}

// SnapshotWriter persists one SentEmail record per logged send attempt.
type SnapshotWriter struct {
	store     SnapshotStore
	retention *RetentionManager
	cfg       config.SentEmailsConfig
	siteID    int
	logger    *zap.Logger
}

func NewSnapshotWriter(store SnapshotStore, retention *RetentionManager, cfg config.SentEmailsConfig, siteID int, logger *zap.Logger) *SnapshotWriter {
	return &SnapshotWriter{
		store:     store,
		retention: retention,
		cfg:       cfg,
		siteID:    siteID,
		logger:    logger,
	}
}

// Write normalizes an outgoing message plus its info table into a SentEmail
// row and inserts it. Returns ErrRecordingDisabled when snapshotting is off,
// and *PersistError when the insert fails; the insert failure is logged here
// and must not fail the triggering send. Retention storage failures
// propagate as-is.
func (w *SnapshotWriter) Write(ctx context.Context, msg *model.OutgoingMessage, info *model.InfoTable) (*model.SentEmail, error) {
	if !w.cfg.Enabled {
		return nil, ErrRecordingDisabled
	}

	// Trimming happens lazily on the write path, not on a timer.
	if _, err := w.retention.MaybePrune(ctx, false); err != nil {
		return nil, err
	}

	subject := DecodeSubject(msg.Subject)
	from := msg.FirstFrom()
	to := msg.FirstTo()

	email := &model.SentEmail{
		SiteID:       w.siteID,
		Title:        subject,
		EmailSubject: subject,
		FromEmail:    from.Email,
		FromName:     from.Name,
		ToEmail:      to.Email,
		Status:       model.StatusNormal,
	}

	if msg.Body != "" {
		// A single combined body populates both fields.
		email.Body = msg.Body
		email.HTMLBody = msg.Body
	} else {
		for _, part := range msg.Parts {
			switch partContentType(part) {
			case "text/html":
				email.HTMLBody = part.Content
			case "text/plain":
				email.Body = part.Content
			}
		}
	}

	if info.DeliveryStatus == model.DeliveryStatusError {
		email.Status = model.StatusFailed
	}

	encoded, err := info.EncodeInfo()
	if err != nil {
		w.logger.Error("Failed to encode info table", zap.Error(err))
		return nil, &PersistError{Err: err}
	}
	email.Info = encoded

	if _, err := w.store.Insert(ctx, email); err != nil {
		w.logger.Error("Failed to save sent email snapshot",
			zap.String("subject", subject),
			zap.String("to", email.ToEmail),
			zap.Error(err),
		)
		return nil, &PersistError{Err: err}
	}

	metrics.IncrementSentEmailLogged(email.Status)

	w.logger.Info("Sent email snapshot saved",
		zap.Int64("sent_email_id", email.ID),
		zap.String("status", email.Status),
	)

	return email, nil
}

// DecodeSubject decodes a base64 MIME encoded-word subject to plain text.
// Anything else, including a malformed payload, is returned verbatim.
func DecodeSubject(subject string) string {
	m := encodedWordPattern.FindStringSubmatch(subject)
	if m == nil {
		return subject
	}

	decoded, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return subject
	}
	return string(decoded)
}

// partContentType strips any media type parameters, so "text/html;
// charset=utf-8" matches as "text/html".
func partContentType(part model.MessagePart) string {
	mediaType, _, _ := strings.Cut(part.ContentType, ";")
	return strings.TrimSpace(strings.ToLower(mediaType))
}
