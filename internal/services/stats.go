package services

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type Stats struct {
	CacheHits      int64
	CacheMisses    int64
	AIFailures     int64
	FallbackReuses int64
	CoalescedWaits int64

	TotalSessions     int64
	CompletedSessions int64
	CompletionRate    float64
}

// StatsService collects volatile, process-scoped cache counters and derives
// the completion rate from durable session rows. Reset clears only the
// volatile counters.
type StatsService interface {
	cache.Recorder
	RecordFallbackReuse()
	// Snapshot reports counters plus completion for userID, or for all
	// users when userID is uuid.Nil.
	Snapshot(dbc dbctx.Context, userID uuid.UUID) (*Stats, error)
	Reset()
}

type statsService struct {
	log      *logger.Logger
	sessions repos.SessionRepo

	hits      atomic.Int64
	misses    atomic.Int64
	failures  atomic.Int64
	fallbacks atomic.Int64
	coalesced atomic.Int64
}

func NewStatsService(log *logger.Logger, sessions repos.SessionRepo) StatsService {
	return &statsService{
		log:      log.With("service", "StatsService"),
		sessions: sessions,
	}
}

func (s *statsService) CacheHit() {
	s.hits.Add(1)
	observability.Current().CacheHit()
}

func (s *statsService) CacheMiss() {
	s.misses.Add(1)
	observability.Current().CacheMiss()
}

func (s *statsService) CacheCoalesced() {
	s.coalesced.Add(1)
	observability.Current().CacheCoalesced()
}

func (s *statsService) CacheFailure() {
	s.failures.Add(1)
	observability.Current().CacheFailure()
}

func (s *statsService) CacheStoreError() {
	observability.Current().CacheStoreError()
}

func (s *statsService) RecordFallbackReuse() {
	s.fallbacks.Add(1)
	observability.Current().IncFallbackReuse()
}

func (s *statsService) Snapshot(dbc dbctx.Context, userID uuid.UUID) (*Stats, error) {
	var (
		counts repos.SessionCounts
		err    error
	)
	if userID == uuid.Nil {
		counts, err = s.sessions.CountAll(dbc)
	} else {
		counts, err = s.sessions.CountByUserID(dbc, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	out := &Stats{
		CacheHits:         s.hits.Load(),
		CacheMisses:       s.misses.Load(),
		AIFailures:        s.failures.Load(),
		FallbackReuses:    s.fallbacks.Load(),
		CoalescedWaits:    s.coalesced.Load(),
		TotalSessions:     counts.Total,
		CompletedSessions: counts.Completed,
	}
	if counts.Total > 0 {
		out.CompletionRate = float64(counts.Completed) / float64(counts.Total)
	}
	return out, nil
}

func (s *statsService) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.failures.Store(0)
	s.fallbacks.Store(0)
	s.coalesced.Store(0)
	s.log.Info("volatile stats reset")
}
