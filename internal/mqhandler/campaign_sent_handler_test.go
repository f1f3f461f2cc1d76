package mqhandler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailledger/config"
	"mailledger/internal/model"
	"mailledger/internal/mq"
	"mailledger/internal/service"
)

func newCampaignSentHandler(t *testing.T, fx *handlerFixture) *CampaignSentHandler {
	t.Helper()

	cfg := config.SentEmailsConfig{Enabled: true, CleanupProbability: 1}
	alwaysFire := service.RandIntn(func(n int) int { return 0 })
	retention := service.NewRetentionManager(fx.retention, cfg, 1, zap.NewNop(), alwaysFire)
	writer := service.NewSnapshotWriter(fx.store, retention, cfg, 1, zap.NewNop())
	classifier := service.NewClassifier(config.SMTPConfig{}, "mailledger", "mailledger 1.0.0")

	return NewCampaignSentHandler(writer, classifier, fx.deduper, fx.publisher, zap.NewNop())
}

func campaignSentRaw(t *testing.T, messageID string) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(mq.CampaignSentPayload{
		MessageID: messageID,
		Email: mq.CampaignEmail{
			FromName:  "Campaign Sender",
			FromEmail: "campaign@x.com",
			To:        []model.Address{{Email: "to@x.com"}},
			Subject:   "Newsletter",
			Body:      "hi",
		},
		Campaign: mq.CampaignDescriptor{Mailer: "awesome mailer"},
	})
	require.NoError(t, err)
	return raw
}

func TestHandleCampaignSentWritesSnapshotAndPublishes(t *testing.T) {
	fx := newFixture()
	h := newCampaignSentHandler(t, fx)

	err := h.HandleCampaignSent(context.Background(), campaignSentRaw(t, "c-1"))
	require.NoError(t, err)

	require.Len(t, fx.store.inserted, 1)
	assert.Equal(t, "campaign@x.com", fx.store.inserted[0].FromEmail)
	assert.Equal(t, model.StatusNormal, fx.store.inserted[0].Status)
	assert.Equal(t, []string{mq.RoutingKeySentEmailSaved}, fx.publisher.routingKeys)
}

func TestHandleCampaignSentDuplicateDeliverySkipped(t *testing.T) {
	fx := newFixture()
	h := newCampaignSentHandler(t, fx)

	require.NoError(t, h.HandleCampaignSent(context.Background(), campaignSentRaw(t, "c-1")))
	require.NoError(t, h.HandleCampaignSent(context.Background(), campaignSentRaw(t, "c-1")))

	assert.Len(t, fx.store.inserted, 1)
}

func TestHandleCampaignSentRetentionErrorReleasesDedupLock(t *testing.T) {
	fx := newFixture()
	fx.retention.failures = 1
	h := newCampaignSentHandler(t, fx)

	raw := campaignSentRaw(t, "c-1")

	err := h.HandleCampaignSent(context.Background(), raw)
	require.Error(t, err)
	require.Empty(t, fx.store.inserted)

	// Redelivery after the storage outage must still produce the snapshot.
	err = h.HandleCampaignSent(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, fx.store.inserted, 1)
}

func TestHandleCampaignSentMalformedPayloadIsAcked(t *testing.T) {
	fx := newFixture()
	h := newCampaignSentHandler(t, fx)

	err := h.HandleCampaignSent(context.Background(), json.RawMessage(`not json`))
	require.NoError(t, err)

	assert.Empty(t, fx.store.inserted)
}
