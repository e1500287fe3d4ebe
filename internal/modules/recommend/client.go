package recommend

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
	"github.com/yungbote/stepwise-backend/internal/platform/openai"
)

var tracer = otel.Tracer("github.com/yungbote/stepwise-backend/internal/modules/recommend")

const defaultTimeout = 30 * time.Second

// Generator is the model call the client depends on; openai.Client satisfies it.
type Generator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error)
}

var _ Generator = (openai.Client)(nil)

type Client interface {
	// Recommend returns steps for goalName whose durations sum to exactly
	// totalSeconds. Errors are apierr upstream, parse or validation kinds.
	Recommend(ctx context.Context, goalName string, totalSeconds int, lang types.Language) ([]types.RecommendedStep, error)
}

type aiClient struct {
	gen     Generator
	timeout time.Duration
	log     *logger.Logger
}

func NewClient(gen Generator, timeout time.Duration, baseLog *logger.Logger) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &aiClient{gen: gen, timeout: timeout, log: baseLog.With("client", "AIRecommendationClient")}
}

func (c *aiClient) Recommend(ctx context.Context, goalName string, totalSeconds int, lang types.Language) ([]types.RecommendedStep, error) {
	const op = "recommend.Recommend"
	goalName = strings.TrimSpace(goalName)
	if goalName == "" {
		return nil, apierr.Validation(op, "goal name is required")
	}
	if totalSeconds <= 0 {
		return nil, apierr.Validation(op, "totalDurationSeconds must be positive")
	}
	if !lang.Valid() {
		lang = types.LanguageKorean
	}

	ctx, span := tracer.Start(ctx, "recommend.ai_call")
	defer span.End()
	span.SetAttributes(
		attribute.Int("recommend.total_seconds", totalSeconds),
		attribute.String("recommend.language", lang.String()),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	system, user := promptRecommendSteps(goalName, totalSeconds, lang)
	start := time.Now()
	text, err := c.gen.GenerateJSON(ctx, system, user, "recommended_steps", schemaRecommendSteps())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream")
		c.log.Warn("recommendation call failed",
			"goal", goalName,
			"lang", lang.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		if errors.Is(err, openai.ErrEmptyOutput) {
			return nil, apierr.Parse(op, "empty recommendation response", err)
		}
		return nil, apierr.Upstream(op, err)
	}

	raw, err := ParseSteps(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		c.log.Warn("recommendation response malformed", "goal", goalName, "error", err)
		return nil, err
	}
	steps, err := Normalize(raw, totalSeconds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("recommend.steps", len(steps)),
		attribute.Int("recommend.raw_total", types.SumDurations(raw)),
	)
	c.log.Debug("recommendation generated",
		"goal", goalName,
		"lang", lang.String(),
		"steps", len(steps),
		"raw_total", types.SumDurations(raw),
		"total", totalSeconds,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return steps, nil
}
