package service

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"mailledger/config"
	"mailledger/pkg/metrics"
)

// CleanupProbabilityScale is the upper bound of the probability draw. A
// configured cleanup_probability of 10_000 means roughly one prune pass per
// hundred writes.
const CleanupProbabilityScale = 1_000_000

// RetentionStore is the persistence surface the retention manager needs.
type RetentionStore interface {
	IDsOverLimit(ctx context.Context, siteID, keep int) ([]int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// RandIntn returns a uniform random int in [0, n). Injected so tests can pin
// the probability gate exactly.
type RandIntn func(n int) int

// RetentionManager enforces the at-most-N bound on stored snapshots. Pruning
// is triggered lazily on the write path, gated by a probability draw instead
// of a schedule. The bound is soft: a concurrent insert may briefly leave
// the table slightly over the limit.
type RetentionManager struct {
	store    RetentionStore
	cfg      config.SentEmailsConfig
	siteID   int
	logger   *zap.Logger
	randIntn RandIntn
}

// NewRetentionManager builds a retention manager. A nil randIntn falls back
// to math/rand.
func NewRetentionManager(store RetentionStore, cfg config.SentEmailsConfig, siteID int, logger *zap.Logger, randIntn RandIntn) *RetentionManager {
	if randIntn == nil {
		randIntn = rand.Intn
	}
	return &RetentionManager{
		store:    store,
		cfg:      cfg,
		siteID:   siteID,
		logger:   logger,
		randIntn: randIntn,
	}
}

// MaybePrune runs a prune pass when the probability draw allows it, or
// always when forced. It reports whether a pass ran, regardless of how many
// rows were deleted. Storage failures propagate: a purge that cannot read or
// delete rows indicates a problem worth surfacing.
func (m *RetentionManager) MaybePrune(ctx context.Context, force bool) (bool, error) {
	if !m.cfg.Enabled {
		return false, nil
	}

	if !force && m.randIntn(CleanupProbabilityScale) >= m.cfg.CleanupProbability {
		return false, nil
	}

	limit := m.cfg.ResolvedLimit()
	if limit <= 0 {
		// A non-positive limit disables retention. It must never be read as
		// "keep nothing".
		return false, nil
	}

	ids, err := m.store.IDsOverLimit(ctx, m.siteID, limit)
	if err != nil {
		return false, fmt.Errorf("failed to query retention excess: %w", err)
	}

	deleted, err := m.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return false, fmt.Errorf("failed to purge sent emails: %w", err)
	}

	metrics.RecordRetentionRun(deleted)

	if deleted > 0 {
		m.logger.Info("Pruned sent email snapshots",
			zap.Int64("deleted", deleted),
			zap.Int("limit", limit),
		)
	}

	return true, nil
}
