package planning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type GoalRepo interface {
	Create(dbc dbctx.Context, goal *types.Goal) error
	// CreatePredefinedIgnoreConflicts inserts goals in one batch, skipping
	// rows that collide with the (user_id, catalogue_key) predefined index.
	CreatePredefinedIgnoreConflicts(dbc dbctx.Context, goals []*types.Goal) (int64, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Goal, error)
	// GetByIDForUpdate loads the goal and row-locks it for the rest of dbc.Tx.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Goal, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Goal, error)
	PredefinedKeysByUserID(dbc dbctx.Context, userID uuid.UUID) ([]string, error)
	ExistsCustomName(dbc dbctx.Context, userID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	UpdateName(dbc dbctx.Context, id uuid.UUID, name string) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return &goalRepo{db: db, log: baseLog.With("repo", "GoalRepo")}
}

func (r *goalRepo) Create(dbc dbctx.Context, goal *types.Goal) error {
	if goal == nil {
		return nil
	}
	return dbc.DB(r.db).Create(goal).Error
}

func (r *goalRepo) CreatePredefinedIgnoreConflicts(dbc dbctx.Context, goals []*types.Goal) (int64, error) {
	if len(goals) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&goals)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *goalRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Goal, error) {
	return r.get(dbc.DB(r.db), id)
}

func (r *goalRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Goal, error) {
	q := dbc.DB(r.db)
	// sqlite has no row locks; its single writer already serializes the transaction.
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r *goalRepo) get(q *gorm.DB, id uuid.UUID) (*types.Goal, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var goal types.Goal
	err := q.Where("id = ?", id).Limit(1).Find(&goal).Error
	if err != nil {
		return nil, err
	}
	if goal.ID == uuid.Nil {
		return nil, nil
	}
	return &goal, nil
}

func (r *goalRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Goal, error) {
	var out []*types.Goal
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("is_predefined DESC").
		Order("created_at ASC").
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *goalRepo) PredefinedKeysByUserID(dbc dbctx.Context, userID uuid.UUID) ([]string, error) {
	var keys []string
	if userID == uuid.Nil {
		return keys, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.Goal{}).
		Where("user_id = ? AND is_predefined = ?", userID, true).
		Pluck("catalogue_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *goalRepo) ExistsCustomName(dbc dbctx.Context, userID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).
		Model(&types.Goal{}).
		Where("user_id = ? AND is_predefined = ? AND name_key = ?", userID, false, types.GoalNameKey(name))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *goalRepo) UpdateName(dbc dbctx.Context, id uuid.UUID, name string) error {
	return dbc.DB(r.db).
		Model(&types.Goal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":     name,
			"name_key": types.GoalNameKey(name),
		}).Error
}

func (r *goalRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.Goal{})
	return res.RowsAffected, res.Error
}
