package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend"
	"github.com/yungbote/stepwise-backend/internal/modules/recommend/cache"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/yungbote/stepwise-backend/internal/services")

type Recommendation struct {
	Steps                  []types.RecommendedStep
	TotalSteps             int
	TotalAllocatedDuration int
	Message                string
}

// LastRecommendation is the cached entry for a goal, or IsExpired when no
// live entry exists.
type LastRecommendation struct {
	IsExpired            bool
	Steps                []types.RecommendedStep
	TotalDurationSeconds int
	CreatedAt            time.Time
	ExpiresAt            time.Time
}

type RecommendationService interface {
	RecommendSteps(dbc dbctx.Context, userID, goalID uuid.UUID, totalDurationSeconds int, lang types.Language) (*Recommendation, error)
	LastRecommendedSteps(dbc dbctx.Context, userID, goalID uuid.UUID, lang types.Language) (*LastRecommendation, error)
}

type recommendationService struct {
	log   *logger.Logger
	goals GoalService
	ai    recommend.Client
	cache *cache.Cache
	stats StatsService
}

func NewRecommendationService(log *logger.Logger, goals GoalService, ai recommend.Client, c *cache.Cache, stats StatsService) RecommendationService {
	return &recommendationService{
		log:   log.With("service", "RecommendationService"),
		goals: goals,
		ai:    ai,
		cache: c,
		stats: stats,
	}
}

func recommendationMessage(lang types.Language, steps, total int) string {
	if lang == types.LanguageEnglish {
		return fmt.Sprintf("Recommended %d steps for %d seconds.", steps, total)
	}
	return fmt.Sprintf("%d초 동안 할 수 있는 %d개의 단계를 추천했어요.", total, steps)
}

func (s *recommendationService) RecommendSteps(dbc dbctx.Context, userID, goalID uuid.UUID, total int, lang types.Language) (*Recommendation, error) {
	const op = "recommend.Steps"
	if total <= 0 {
		return nil, apierr.Validation(op, "totalDurationSeconds must be positive")
	}
	if total > maxTotalDuration {
		return nil, apierr.Validation(op, "totalDurationSeconds must be at most one day")
	}
	if !lang.Valid() {
		return nil, apierr.Validation(op, "unsupported language")
	}
	goal, err := s.goals.GetOwnedGoal(dbc, userID, goalID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(dbc.Ctx, "recommend.steps")
	defer span.End()
	span.SetAttributes(
		attribute.String("goal.id", goal.ID.String()),
		attribute.String("recommend.language", lang.String()),
		attribute.Int("recommend.total_seconds", total),
	)

	name := s.goals.DisplayName(goal, lang)
	key := cache.Key{GoalID: goal.ID, Language: lang}
	entry, err := s.cache.GetOrCompute(ctx, key, func(cctx context.Context) ([]types.RecommendedStep, error) {
		return s.ai.Recommend(cctx, name, total, lang)
	})
	if err != nil {
		observability.Current().IncRecommendation(string(apierr.KindOf(err)))
		span.RecordError(err)
		return nil, err
	}

	steps := entry.Steps
	if entry.TotalDurationSeconds != total {
		// Cached under a different total; rescale without regenerating content.
		steps, err = recommend.Normalize(entry.Steps, total)
		if err != nil {
			return nil, err
		}
	}
	observability.Current().IncRecommendation("ok")
	return &Recommendation{
		Steps:                  steps,
		TotalSteps:             len(steps),
		TotalAllocatedDuration: types.SumDurations(steps),
		Message:                recommendationMessage(lang, len(steps), total),
	}, nil
}

func (s *recommendationService) LastRecommendedSteps(dbc dbctx.Context, userID, goalID uuid.UUID, lang types.Language) (*LastRecommendation, error) {
	goal, err := s.goals.GetOwnedGoal(dbc, userID, goalID)
	if err != nil {
		return nil, err
	}
	entry, ok := s.cache.Get(dbc.Ctx, cache.Key{GoalID: goal.ID, Language: lang})
	if !ok {
		return &LastRecommendation{IsExpired: true}, nil
	}
	s.stats.RecordFallbackReuse()
	return &LastRecommendation{
		Steps:                entry.Steps,
		TotalDurationSeconds: entry.TotalDurationSeconds,
		CreatedAt:            entry.CreatedAt,
		ExpiresAt:            entry.ExpiresAt,
	}, nil
}
