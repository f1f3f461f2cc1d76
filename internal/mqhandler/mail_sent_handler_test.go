package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailledger/config"
	"mailledger/internal/model"
	"mailledger/internal/mq"
	"mailledger/internal/service"
)

type fakeStore struct {
	inserted  []*model.SentEmail
	insertErr error
	nextID    int64
}

func (s *fakeStore) Insert(ctx context.Context, e *model.SentEmail) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.nextID++
	e.ID = s.nextID
	s.inserted = append(s.inserted, e)
	return e.ID, nil
}

// flakyRetentionStore fails its first query, then recovers. Mirrors a
// transient storage outage across a requeue cycle.
type flakyRetentionStore struct {
	failures int
}

func (s *flakyRetentionStore) IDsOverLimit(ctx context.Context, siteID, keep int) ([]int64, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("connection reset")
	}
	return nil, nil
}

func (s *flakyRetentionStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	return 0, nil
}

type fakeDeduper struct {
	acquired map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{acquired: map[string]bool{}}
}

func (d *fakeDeduper) AcquireOnce(ctx context.Context, handler, messageID string) bool {
	key := handler + ":" + messageID
	if d.acquired[key] {
		return false
	}
	d.acquired[key] = true
	return true
}

func (d *fakeDeduper) Release(ctx context.Context, handler, messageID string) {
	delete(d.acquired, handler+":"+messageID)
}

type fakePublisher struct {
	routingKeys []string
	payloads    []any
	err         error
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.routingKeys = append(p.routingKeys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

type handlerFixture struct {
	store     *fakeStore
	retention *flakyRetentionStore
	deduper   *fakeDeduper
	publisher *fakePublisher
}

func newMailSentHandler(t *testing.T, fx *handlerFixture, enabled bool) *MailSentHandler {
	t.Helper()

	cfg := config.SentEmailsConfig{Enabled: enabled, CleanupProbability: 1}
	// The draw always lands below the threshold so the prune pass runs on
	// every write.
	alwaysFire := service.RandIntn(func(n int) int { return 0 })
	retention := service.NewRetentionManager(fx.retention, cfg, 1, zap.NewNop(), alwaysFire)
	writer := service.NewSnapshotWriter(fx.store, retention, cfg, 1, zap.NewNop())
	classifier := service.NewClassifier(config.SMTPConfig{}, "mailledger", "mailledger 1.0.0")

	return NewMailSentHandler(writer, classifier, fx.deduper, fx.publisher, zap.NewNop())
}

func newFixture() *handlerFixture {
	return &handlerFixture{
		store:     &fakeStore{},
		retention: &flakyRetentionStore{},
		deduper:   newFakeDeduper(),
		publisher: &fakePublisher{},
	}
}

func mailSentRaw(t *testing.T, messageID string) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(mq.MailSentPayload{
		MessageID: messageID,
		From:      []model.Address{{Email: "from@x.com", Name: "From Name"}},
		To:        []model.Address{{Email: "to@x.com"}},
		Subject:   "Hello",
		Body:      "hi",
		Success:   true,
	})
	require.NoError(t, err)
	return raw
}

func TestHandleMailSentWritesSnapshotAndPublishes(t *testing.T) {
	fx := newFixture()
	h := newMailSentHandler(t, fx, true)

	err := h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1"))
	require.NoError(t, err)

	require.Len(t, fx.store.inserted, 1)
	assert.Equal(t, "Hello", fx.store.inserted[0].EmailSubject)

	require.Equal(t, []string{mq.RoutingKeySentEmailSaved}, fx.publisher.routingKeys)
	logged, ok := fx.publisher.payloads[0].(mq.SentEmailLoggedPayload)
	require.True(t, ok)
	assert.Equal(t, fx.store.inserted[0].ID, logged.SentEmailID)
}

func TestHandleMailSentDuplicateDeliverySkipped(t *testing.T) {
	fx := newFixture()
	h := newMailSentHandler(t, fx, true)

	require.NoError(t, h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1")))
	require.NoError(t, h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1")))

	assert.Len(t, fx.store.inserted, 1)
}

func TestHandleMailSentRetentionErrorReleasesDedupLock(t *testing.T) {
	fx := newFixture()
	fx.retention.failures = 1
	h := newMailSentHandler(t, fx, true)

	raw := mailSentRaw(t, "m-1")

	// First delivery hits the storage outage and must error so the consumer
	// requeues it. Nothing may be written.
	err := h.HandleMailSent(context.Background(), raw)
	require.Error(t, err)
	require.Empty(t, fx.store.inserted)

	// The redelivery must not be dropped as a duplicate: the snapshot has to
	// land once storage recovers.
	err = h.HandleMailSent(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, fx.store.inserted, 1)
}

func TestHandleMailSentPersistErrorIsAcked(t *testing.T) {
	fx := newFixture()
	fx.store.insertErr = errors.New("disk full")
	h := newMailSentHandler(t, fx, true)

	// Insert failures are logged and acked; requeueing would double-log once
	// storage recovers.
	err := h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1"))
	require.NoError(t, err)

	assert.Empty(t, fx.publisher.routingKeys)
}

func TestHandleMailSentRecordingDisabledIsAcked(t *testing.T) {
	fx := newFixture()
	h := newMailSentHandler(t, fx, false)

	err := h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1"))
	require.NoError(t, err)

	assert.Empty(t, fx.store.inserted)
	assert.Empty(t, fx.publisher.routingKeys)
}

func TestHandleMailSentMalformedPayloadIsAcked(t *testing.T) {
	fx := newFixture()
	h := newMailSentHandler(t, fx, true)

	// A payload that can never be parsed must be dropped, not redelivered
	// forever.
	err := h.HandleMailSent(context.Background(), json.RawMessage(`{"subject":`))
	require.NoError(t, err)

	assert.Empty(t, fx.store.inserted)
}

func TestHandleMailSentPublishFailureDoesNotFailHandler(t *testing.T) {
	fx := newFixture()
	fx.publisher.err = errors.New("channel closed")
	h := newMailSentHandler(t, fx, true)

	err := h.HandleMailSent(context.Background(), mailSentRaw(t, "m-1"))
	require.NoError(t, err)

	assert.Len(t, fx.store.inserted, 1)
}
