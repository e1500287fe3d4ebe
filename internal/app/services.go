package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/domain/catalogue"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	Users          services.UserDirectory
	Goals          services.GoalService
	Sessions       services.SessionService
	Stats          services.StatsService
	Recommendation services.RecommendationService

	Cache   *cache.Cache
	Sweeper *cache.Sweeper
}

func wireCacheStore(cfg Config, reposet Repos, clients Clients) (cache.Store, error) {
	switch cfg.CacheBackend {
	case CacheBackendRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("redis cache backend without a redis client")
		}
		return cache.NewRedisStore(clients.Redis), nil
	case CacheBackendDB:
		return cache.NewDBStore(reposet.CacheEntry), nil
	default:
		return cache.NewMemoryStore(cache.DefaultCleanupInterval), nil
	}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	cat, err := catalogue.Default()
	if err != nil {
		return Services{}, fmt.Errorf("load goal catalogue: %w", err)
	}

	users := services.NewUserDirectory(log, reposet.User, cfg.UserCacheTTL)
	auth := services.NewAuthService(log, users, cfg.JWTSecretKey)
	goals := services.NewGoalService(db, log, reposet.Goal, reposet.Session, cat)
	sessions := services.NewSessionService(db, log, goals, reposet.Session)
	stats := services.NewStatsService(log, reposet.Session)

	store, err := wireCacheStore(cfg, reposet, clients)
	if err != nil {
		return Services{}, err
	}
	recCache := cache.New(store, log, cache.Options{
		TTL:            cfg.CacheTTL,
		ComputeTimeout: cfg.RecommendTimeout,
		Recorder:       stats,
	})

	var sweeper *cache.Sweeper
	if cfg.SweepSchedule != "" {
		sweeper, err = cache.NewSweeper(recCache, cfg.SweepSchedule, observability.Current(), log)
		if err != nil {
			return Services{}, fmt.Errorf("init cache sweeper: %w", err)
		}
	}

	ai := recommend.NewClient(clients.OpenAI, cfg.RecommendTimeout, log)
	rec := services.NewRecommendationService(log, goals, ai, recCache, stats)

	log.Info("Recommendation cache ready",
		"backend", cfg.CacheBackend,
		"ttl", cfg.CacheTTL.String(),
		"sweep", cfg.SweepSchedule,
	)

	return Services{
		Auth:           auth,
		Users:          users,
		Goals:          goals,
		Sessions:       sessions,
		Stats:          stats,
		Recommendation: rec,
		Cache:          recCache,
		Sweeper:        sweeper,
	}, nil
}
