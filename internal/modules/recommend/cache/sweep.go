package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

// SweepObserver is told how many entries each sweep removed.
type SweepObserver interface {
	AddCacheSwept(n int64)
}

// Sweeper periodically reclaims expired entries. Cache behavior never
// depends on it running.
type Sweeper struct {
	cache     *Cache
	scheduler gocron.Scheduler
	schedule  string
	obs       SweepObserver
	log       *logger.Logger
}

// ValidateSchedule checks a standard 5-field cron expression or a descriptor
// such as "@every 30m".
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(strings.TrimSpace(schedule)); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return nil
}

func NewSweeper(c *Cache, schedule string, obs SweepObserver, baseLog *logger.Logger) (*Sweeper, error) {
	schedule = strings.TrimSpace(schedule)
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Sweeper{
		cache:     c,
		scheduler: scheduler,
		schedule:  schedule,
		obs:       obs,
		log:       baseLog.With("component", "RecommendationCacheSweeper"),
	}, nil
}

func (s *Sweeper) jobDefinition() gocron.JobDefinition {
	if d, ok := strings.CutPrefix(s.schedule, "@every "); ok {
		if every, err := time.ParseDuration(strings.TrimSpace(d)); err == nil && every > 0 {
			return gocron.DurationJob(every)
		}
	}
	return gocron.CronJob(s.schedule, false)
}

func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		s.jobDefinition(),
		gocron.NewTask(func() { s.RunOnce(ctx) }),
		gocron.WithName("recommend_cache_sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	s.scheduler.Start()
	s.log.Info("cache sweeper started", "schedule", s.schedule)
	return nil
}

// RunOnce performs one sweep.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.cache.Sweep(ctx)
	if err != nil {
		s.log.Warn("cache sweep failed", "error", err)
		return 0
	}
	if s.obs != nil {
		s.obs.AddCacheSwept(n)
	}
	if n > 0 {
		s.log.Debug("cache sweep removed expired entries", "count", n)
	}
	return n
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
