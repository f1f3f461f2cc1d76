package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailledger/config"
)

// fakeRetentionStore holds snapshot ids newest-first, mirroring the
// repository's date_created DESC ordering.
type fakeRetentionStore struct {
	ids       []int64
	deleted   []int64
	queryErr  error
	deleteErr error
}

func (s *fakeRetentionStore) IDsOverLimit(ctx context.Context, siteID, keep int) ([]int64, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if keep >= len(s.ids) {
		return nil, nil
	}
	return append([]int64{}, s.ids[keep:]...), nil
}

func (s *fakeRetentionStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deleted = append(s.deleted, ids...)
	return int64(len(ids)), nil
}

func intPtr(n int) *int { return &n }

func retentionConfig(limit *int, probability int) config.SentEmailsConfig {
	return config.SentEmailsConfig{
		Enabled:            true,
		CleanupProbability: probability,
		Limit:              limit,
	}
}

func TestMaybePruneForcedDeletesOldestExcess(t *testing.T) {
	// Ten rows, newest first. With a limit of 3 the seven oldest go.
	store := &fakeRetentionStore{ids: []int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}}

	// The random source always draws above any threshold; force must still
	// run the pass.
	neverFire := func(n int) int { return n - 1 }
	m := NewRetentionManager(store, retentionConfig(intPtr(3), 0), 1, zap.NewNop(), neverFire)

	ran, err := m.MaybePrune(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []int64{7, 6, 5, 4, 3, 2, 1}, store.deleted)
}

func TestMaybePruneRunsWithinLimitWithoutDeleting(t *testing.T) {
	store := &fakeRetentionStore{ids: []int64{2, 1}}
	m := NewRetentionManager(store, retentionConfig(intPtr(5), 0), 1, zap.NewNop(), nil)

	ran, err := m.MaybePrune(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, store.deleted)
}

func TestMaybePruneProbabilityGate(t *testing.T) {
	tests := []struct {
		name        string
		draw        int
		probability int
		wantRan     bool
	}{
		{"draw below threshold runs", 5, 6, true},
		{"draw at threshold skips", 5, 5, false},
		{"zero probability never runs", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRetentionStore{ids: []int64{3, 2, 1}}
			fixedDraw := func(n int) int { return tt.draw }
			m := NewRetentionManager(store, retentionConfig(intPtr(1), tt.probability), 1, zap.NewNop(), fixedDraw)

			ran, err := m.MaybePrune(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRan, ran)
		})
	}
}

func TestMaybePruneNonPositiveLimitIsNoOp(t *testing.T) {
	for _, limit := range []int{0, -5} {
		store := &fakeRetentionStore{ids: []int64{3, 2, 1}}
		m := NewRetentionManager(store, retentionConfig(intPtr(limit), 0), 1, zap.NewNop(), nil)

		ran, err := m.MaybePrune(context.Background(), true)
		require.NoError(t, err)
		assert.False(t, ran, "limit %d", limit)
		assert.Empty(t, store.deleted, "limit %d", limit)
	}
}

func TestMaybePruneUnsetLimitDefaultsTo5000(t *testing.T) {
	store := &fakeRetentionStore{ids: []int64{2, 1}}
	m := NewRetentionManager(store, retentionConfig(nil, 0), 1, zap.NewNop(), nil)

	ran, err := m.MaybePrune(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, store.deleted)
}

func TestMaybePruneDisabledRecording(t *testing.T) {
	store := &fakeRetentionStore{ids: []int64{3, 2, 1}}
	cfg := retentionConfig(intPtr(1), 0)
	cfg.Enabled = false
	m := NewRetentionManager(store, cfg, 1, zap.NewNop(), nil)

	ran, err := m.MaybePrune(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, store.deleted)
}

func TestMaybePruneStorageErrorsPropagate(t *testing.T) {
	store := &fakeRetentionStore{
		ids:       []int64{3, 2, 1},
		deleteErr: errors.New("connection reset"),
	}
	m := NewRetentionManager(store, retentionConfig(intPtr(1), 0), 1, zap.NewNop(), nil)

	_, err := m.MaybePrune(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge sent emails")
}
