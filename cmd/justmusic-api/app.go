package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/repository"
	"github.com/justmusic/justmusic-api/internal/service"
	"github.com/justmusic/justmusic-api/pkg/cache"
	"github.com/justmusic/justmusic-api/pkg/config"
	"github.com/justmusic/justmusic-api/pkg/database"
	"github.com/justmusic/justmusic-api/pkg/logger"
)

const cachePrefix = "justmusic:"

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	mongo   *database.Mongo
	redis   *redis.Client
	metrics *service.MetricsService

	users      *repository.UserRepository
	classes    *repository.ClassRepository
	selections *repository.SelectionRepository
	cache      *service.CacheService
}

// bootstrap loads configuration and opens the store connections.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	mongo, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	a := &app{
		cfg:        cfg,
		log:        logr,
		mongo:      mongo,
		redis:      redisClient,
		metrics:    metrics,
		users:      repository.NewUserRepository(mongo.Users(), metrics),
		classes:    repository.NewClassRepository(mongo.Classes(), metrics),
		selections: repository.NewSelectionRepository(mongo.Selections(), metrics),
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cachePrefix)
	a.cache = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, redisClient != nil)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.mongo.Close(ctx); err != nil {
		a.log.Warn("close mongo", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) reconcileService() *service.ReconcileService {
	return service.NewReconcileService(a.classes, a.selections, a.cache, a.log)
}
