package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

// CacheRepository stores JSON payloads under a key with a TTL.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TallyCache keeps computed results of closed elections. Results of a
// closed election never change, so entries are only dropped by TTL or Forget.
// A nil or disabled cache misses every lookup.
type TallyCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewTallyCache wraps repo. ttl defaults to one day.
func NewTallyCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *TallyCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TallyCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups can ever hit.
func (c *TallyCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

func tallyKey(electionID string) string {
	return "tally:" + electionID
}

// Lookup returns the cached tally of electionID. Backend failures count as
// misses and are logged.
func (c *TallyCache) Lookup(ctx context.Context, electionID string) (*models.Tally, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var tally models.Tally
	err := c.repo.Get(ctx, tallyKey(electionID), &tally)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("tally cache read failed", zap.String("election_id", electionID), zap.Error(err))
		}
		return nil, false
	}
	return &tally, true
}

// Store caches tally under its election.
func (c *TallyCache) Store(ctx context.Context, tally *models.Tally) error {
	if !c.Enabled() || tally == nil {
		return nil
	}
	start := time.Now()
	err := c.repo.Set(ctx, tallyKey(tally.ElectionID), tally, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("tally cache write failed", zap.String("election_id", tally.ElectionID), zap.Error(err))
	}
	return err
}

// Forget drops the cached tally of electionID.
func (c *TallyCache) Forget(ctx context.Context, electionID string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.repo.Delete(ctx, tallyKey(electionID)); err != nil {
		c.logger.Warn("tally cache delete failed", zap.String("election_id", electionID), zap.Error(err))
		return err
	}
	return nil
}
