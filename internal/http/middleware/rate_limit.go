package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/yungbote/stepwise-backend/internal/http/response"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

const (
	tierFree    = "free"
	tierPremium = "premium"

	limiterIdleTTL = 15 * time.Minute
)

type RateLimitConfig struct {
	FreePerMinute    int
	PremiumPerMinute int
}

// RateLimiter keeps one token bucket per user; idle buckets are evicted.
type RateLimiter struct {
	log      *logger.Logger
	cfg      RateLimitConfig
	mu       sync.Mutex
	limiters *gocache.Cache
}

func NewRateLimiter(log *logger.Logger, cfg RateLimitConfig) *RateLimiter {
	if cfg.FreePerMinute <= 0 {
		cfg.FreePerMinute = 6
	}
	if cfg.PremiumPerMinute <= 0 {
		cfg.PremiumPerMinute = 60
	}
	return &RateLimiter{
		log:      log.With("middleware", "RateLimiter"),
		cfg:      cfg,
		limiters: gocache.New(limiterIdleTTL, limiterIdleTTL),
	}
}

func (rl *RateLimiter) perMinute(tier string) int {
	if tier == tierPremium {
		return rl.cfg.PremiumPerMinute
	}
	return rl.cfg.FreePerMinute
}

func (rl *RateLimiter) limiter(key, tier string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	// The tier is part of the key so an upgrade takes effect immediately.
	k := tier + ":" + key
	if v, ok := rl.limiters.Get(k); ok {
		rl.limiters.SetDefault(k, v)
		return v.(*rate.Limiter)
	}
	n := rl.perMinute(tier)
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	rl.limiters.SetDefault(k, lim)
	return lim
}

// Limit rejects callers that exhausted their bucket with 429 rate_limited.
// It must run after RequireAuth.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		key := c.ClientIP()
		tier := tierFree
		if rd != nil {
			key = rd.UserID.String()
			if rd.IsPremium {
				tier = tierPremium
			}
		}
		lim := rl.limiter(key, tier)
		if lim.Allow() {
			c.Next()
			return
		}
		observability.Current().IncRateLimited(tier)
		retry := int(math.Ceil(time.Minute.Seconds() / float64(rl.perMinute(tier))))
		c.Header("Retry-After", strconv.Itoa(retry))
		rl.log.Debug("rate limited", "key", key, "tier", tier)
		response.RespondError(c, apierr.New(apierr.KindRateLimited, "recommend", "too many recommendation requests", nil))
	}
}
