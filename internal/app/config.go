package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/stepwise-backend/internal/data/db"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	httpMW "github.com/yungbote/stepwise-backend/internal/http/middleware"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/envutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/platform/openai"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendDB     = "db"
)

type Config struct {
	Port string
	DB   db.Config

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	SweepSchedule string

	RecommendTimeout time.Duration
	OpenAI           openai.Config

	JWTSecretKey    string
	UserCacheTTL    time.Duration
	DefaultLanguage types.Language
	RateLimit       httpMW.RateLimitConfig
	AllowedOrigins  []string

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port: envutil.String("PORT", "8080"),
		DB: db.Config{
			Driver:           strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "stepwise"),
			SQLitePath:       envutil.String("SQLITE_PATH", "stepwise.db"),
		},

		CacheBackend:  strings.ToLower(envutil.String("CACHE_BACKEND", CacheBackendMemory)),
		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		CacheTTL:      envutil.Duration("RECOMMEND_CACHE_TTL_HOURS", 24, time.Hour),
		SweepSchedule: envutil.String("RECOMMEND_CACHE_SWEEP_CRON", "@every 30m"),

		RecommendTimeout: envutil.Duration("RECOMMEND_TIMEOUT_SECONDS", 30, time.Second),
		OpenAI: openai.Config{
			APIKey:              envutil.String("OPENAI_API_KEY", ""),
			BaseURL:             envutil.String("OPENAI_BASE_URL", ""),
			Model:               envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
			TimeoutSeconds:      envutil.Int("OPENAI_TIMEOUT_SECONDS", 60),
			MaxRetries:          envutil.Int("OPENAI_MAX_RETRIES", 2),
			NoTemperatureModels: envutil.String("OPENAI_NO_TEMPERATURE_MODELS", ""),
		},

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		UserCacheTTL:    envutil.Duration("USER_DIRECTORY_CACHE_SECONDS", 30, time.Second),
		DefaultLanguage: types.LanguageOrDefault(envutil.String("DEFAULT_LANGUAGE", "ko"), types.LanguageKorean),
		RateLimit: httpMW.RateLimitConfig{
			FreePerMinute:    envutil.Int("RATE_LIMIT_FREE_PER_MINUTE", 6),
			PremiumPerMinute: envutil.Int("RATE_LIMIT_PREMIUM_PER_MINUTE", 60),
		},
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "stepwise-api"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},
	}
	if raw := envutil.String("OPENAI_TEMPERATURE", ""); raw != "" {
		t := envutil.Float("OPENAI_TEMPERATURE", 0.7)
		cfg.OpenAI.Temperature = &t
	}
	if cfg.JWTSecretKey == "defaultsecret" && log != nil {
		log.Warn("JWT_SECRET_KEY not set; using the insecure default")
	}
	return cfg
}

// Validate rejects combinations the app cannot start with.
func (c Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendDB:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL_HOURS must be positive")
	}
	if c.RecommendTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_TIMEOUT_SECONDS must be positive")
	}
	if c.SweepSchedule != "" {
		if err := cache.ValidateSchedule(c.SweepSchedule); err != nil {
			return err
		}
	}
	return nil
}
