package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
)

type dbStore struct {
	rows repos.CacheEntryRepo
}

// NewDBStore keeps entries in the recommendation_cache_entry table.
func NewDBStore(rows repos.CacheEntryRepo) Store {
	return &dbStore{rows: rows}
}

func (s *dbStore) Get(ctx context.Context, key Key) (*Entry, error) {
	row, err := s.rows.Get(dbctx.Context{Ctx: ctx}, key.GoalID, key.Language.String())
	if err != nil {
		return nil, fmt.Errorf("cache row get: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	var steps []types.RecommendedStep
	if err := json.Unmarshal(row.Steps, &steps); err != nil {
		return nil, nil
	}
	return &Entry{
		Steps:                steps,
		TotalDurationSeconds: row.TotalDurationSeconds,
		CreatedAt:            row.CreatedAt,
		ExpiresAt:            row.ExpiresAt,
	}, nil
}

func (s *dbStore) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return nil
	}
	raw, err := json.Marshal(entry.Steps)
	if err != nil {
		return fmt.Errorf("cache row encode: %w", err)
	}
	return s.rows.Upsert(dbctx.Context{Ctx: ctx}, &types.RecommendationCacheEntry{
		GoalID:               key.GoalID,
		Language:             key.Language.String(),
		TotalDurationSeconds: entry.TotalDurationSeconds,
		Steps:                datatypes.JSON(raw),
		CreatedAt:            entry.CreatedAt,
		ExpiresAt:            entry.ExpiresAt,
	})
}

func (s *dbStore) Delete(ctx context.Context, key Key) error {
	return s.rows.Delete(dbctx.Context{Ctx: ctx}, key.GoalID, key.Language.String())
}

func (s *dbStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.rows.DeleteExpired(dbctx.Context{Ctx: ctx}, now)
}
