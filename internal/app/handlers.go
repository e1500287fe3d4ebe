package app

import (
	"github.com/yungbote/stepwise-backend/internal/http"
	httpH "github.com/yungbote/stepwise-backend/internal/http/handlers"
	httpMW "github.com/yungbote/stepwise-backend/internal/http/middleware"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimiter
}

type Handlers struct {
	Health         *httpH.HealthHandler
	Goal           *httpH.GoalHandler
	Recommendation *httpH.RecommendationHandler
	Session        *httpH.SessionHandler
	Stats          *httpH.StatsHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:         httpH.NewHealthHandler(),
		Goal:           httpH.NewGoalHandler(log, services.Goals),
		Recommendation: httpH.NewRecommendationHandler(log, services.Recommendation),
		Session:        httpH.NewSessionHandler(log, services.Sessions),
		Stats:          httpH.NewStatsHandler(log, services.Stats),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      httpMW.NewAuthMiddleware(log, services.Auth),
		RateLimit: httpMW.NewRateLimiter(log, cfg.RateLimit),
	}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) http.RouterConfig {
	return http.RouterConfig{
		Log:                   log,
		ServiceName:           cfg.Otel.ServiceName,
		TracingEnabled:        cfg.Otel.Enabled,
		Metrics:               metrics,
		AllowedOrigins:        cfg.AllowedOrigins,
		DefaultLanguage:       cfg.DefaultLanguage,
		AuthMiddleware:        middleware.Auth,
		RateLimiter:           middleware.RateLimit,
		GoalHandler:           handlers.Goal,
		RecommendationHandler: handlers.Recommendation,
		SessionHandler:        handlers.Session,
		StatsHandler:          handlers.Stats,
		HealthHandler:         handlers.Health,
	}
}
