package recommend

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type CacheEntryRepo interface {
	Get(dbc dbctx.Context, goalID uuid.UUID, lang string) (*types.RecommendationCacheEntry, error)
	// Upsert replaces the entry for (goal_id, language).
	Upsert(dbc dbctx.Context, row *types.RecommendationCacheEntry) error
	Delete(dbc dbctx.Context, goalID uuid.UUID, lang string) error
	DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error)
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{db: db, log: baseLog.With("repo", "CacheEntryRepo")}
}

func (r *cacheEntryRepo) Get(dbc dbctx.Context, goalID uuid.UUID, lang string) (*types.RecommendationCacheEntry, error) {
	if goalID == uuid.Nil || lang == "" {
		return nil, nil
	}
	var row types.RecommendationCacheEntry
	if err := dbc.DB(r.db).
		Where("goal_id = ? AND language = ?", goalID, lang).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *cacheEntryRepo) Upsert(dbc dbctx.Context, row *types.RecommendationCacheEntry) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "goal_id"}, {Name: "language"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_duration_seconds", "steps", "created_at", "expires_at"}),
		}).
		Create(row).Error
}

func (r *cacheEntryRepo) Delete(dbc dbctx.Context, goalID uuid.UUID, lang string) error {
	return dbc.DB(r.db).
		Where("goal_id = ? AND language = ?", goalID, lang).
		Delete(&types.RecommendationCacheEntry{}).Error
}

func (r *cacheEntryRepo) DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("expires_at <= ?", now).
		Delete(&types.RecommendationCacheEntry{})
	return res.RowsAffected, res.Error
}
