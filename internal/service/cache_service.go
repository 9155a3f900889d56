package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

// Every cached popularity result lives under statsNamespace, so statsPattern
// clears all of them at once.
const (
	statsNamespace         = "stats:"
	statsPattern           = statsNamespace + "*"
	popularClassesKind     = "popular_classes"
	popularInstructorsKind = "popular_instructors"
)

func statsKey(kind string, limit int) string {
	return fmt.Sprintf("%s%s:%d", statsNamespace, kind, limit)
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// statsInvalidator is implemented by CacheService. Writers that change
// rankings or the users behind them depend on it.
type statsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// CacheService fronts Redis for the popularity queries. A nil or disabled
// service misses every lookup and drops every write.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. ttl applies to writes that do
// not carry their own.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups reach Redis.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the value stored at key into dest and reports a hit. A read
// failure counts as a miss and is returned for the caller to log.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	}
	s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	return false, err
}

// Set stores value at key. A zero ttl uses the service default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidateStats drops every cached ranking.
func (s *CacheService) InvalidateStats(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, statsPattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
		return err
	}
	return nil
}

// invalidateStats clears cached rankings after a write. Failures are logged
// and never fail the write itself.
func invalidateStats(ctx context.Context, cache statsInvalidator, log *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateStats(ctx); err != nil {
		log.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
