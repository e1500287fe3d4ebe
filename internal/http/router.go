package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	httpH "github.com/yungbote/stepwise-backend/internal/http/handlers"
	httpMW "github.com/yungbote/stepwise-backend/internal/http/middleware"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	TracingEnabled  bool
	Metrics         *observability.Metrics
	AllowedOrigins  []string
	DefaultLanguage types.Language

	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter

	GoalHandler           *httpH.GoalHandler
	RecommendationHandler *httpH.RecommendationHandler
	SessionHandler        *httpH.SessionHandler
	StatsHandler          *httpH.StatsHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Language(cfg.DefaultLanguage))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Goals
		if cfg.GoalHandler != nil {
			api.GET("/goals", cfg.GoalHandler.ListGoals)
			api.POST("/goals", cfg.GoalHandler.CreateGoal)
			api.PATCH("/goals/:id", cfg.GoalHandler.RenameGoal)
			api.DELETE("/goals/:id", cfg.GoalHandler.DeleteGoal)
		}

		// Recommendations
		if cfg.RecommendationHandler != nil {
			recommend := []gin.HandlerFunc{}
			if cfg.RateLimiter != nil {
				recommend = append(recommend, cfg.RateLimiter.Limit())
			}
			recommend = append(recommend, cfg.RecommendationHandler.RecommendSteps)
			api.POST("/recommend-steps", recommend...)
			api.GET("/goals/:id/last-recommended-steps", cfg.RecommendationHandler.LastRecommendedSteps)
		}

		// Sessions
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.StartSession)
			api.PATCH("/sessions/:id", cfg.SessionHandler.CompleteSession)
			api.GET("/sessions", cfg.SessionHandler.ListSessions)
		}

		// Stats
		if cfg.StatsHandler != nil {
			api.GET("/stats", cfg.StatsHandler.GetStats)
			api.POST("/stats/reset", httpMW.RequireOperator(), cfg.StatsHandler.ResetStats)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"kind": "not_found", "code": "not_found", "message": "route not found", "retriable": false}})
	})
	return r
}
