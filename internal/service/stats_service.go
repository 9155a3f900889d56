package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

const (
	defaultPopularLimit = 2
	maxPopularLimit     = 50
)

type rankingRepository interface {
	TopApproved(ctx context.Context, limit int) ([]models.Class, error)
}

type instructorLookup interface {
	FindByEmails(ctx context.Context, emails []string) ([]models.User, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StatsService answers the popular class and instructor queries.
type StatsService struct {
	classes rankingRepository
	users   instructorLookup
	cache   statsCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs a StatsService. cache may be nil.
func NewStatsService(classes rankingRepository, users instructorLookup, cache statsCache, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{classes: classes, users: users, cache: cache, ttl: ttl, logger: logger}
}

// PopularClasses returns approved classes ranked by enrolled students. Order
// among classes with equal counts is not defined. The bool reports a cache hit.
func (s *StatsService) PopularClasses(ctx context.Context, limit int) ([]models.Class, bool, error) {
	limit = clampLimit(limit)
	key := statsKey(popularClassesKind, limit)

	var classes []models.Class
	if s.cached(ctx, key, &classes) {
		return classes, true, nil
	}

	classes, err := s.classes.TopApproved(ctx, limit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to rank classes")
	}
	s.store(ctx, key, classes)
	return classes, false, nil
}

// PopularInstructors returns the owners of the top ranked classes in rank
// order. An instructor owning several top classes appears once, so fewer
// than limit users may come back.
func (s *StatsService) PopularInstructors(ctx context.Context, limit int) ([]models.User, bool, error) {
	limit = clampLimit(limit)
	key := statsKey(popularInstructorsKind, limit)

	var users []models.User
	if s.cached(ctx, key, &users) {
		return users, true, nil
	}

	classes, err := s.classes.TopApproved(ctx, limit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to rank classes")
	}

	emails := make([]string, 0, len(classes))
	seen := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		if _, ok := seen[class.InstructorEmail]; ok || class.InstructorEmail == "" {
			continue
		}
		seen[class.InstructorEmail] = struct{}{}
		emails = append(emails, class.InstructorEmail)
	}

	found, err := s.users.FindByEmails(ctx, emails)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load instructors")
	}
	byEmail := make(map[string]models.User, len(found))
	for _, user := range found {
		byEmail[user.Email] = user
	}

	users = make([]models.User, 0, len(emails))
	for _, email := range emails {
		if user, ok := byEmail[email]; ok {
			users = append(users, user)
		}
	}
	s.store(ctx, key, users)
	return users, false, nil
}

func (s *StatsService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *StatsService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPopularLimit
	}
	if limit > maxPopularLimit {
		return maxPopularLimit
	}
	return limit
}
