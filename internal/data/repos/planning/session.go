package planning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type SessionCounts struct {
	Total     int64
	Completed int64
}

type SessionRepo interface {
	// CreateWithSteps writes the session row and every step row atomically.
	CreateWithSteps(dbc dbctx.Context, session *types.Session, steps []*types.Step) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error)
	UpdateCompleted(dbc dbctx.Context, id uuid.UUID, isCompleted bool) error
	ListByUserID(dbc dbctx.Context, userID uuid.UUID, offset, limit int) ([]*types.Session, error)
	CountByUserID(dbc dbctx.Context, userID uuid.UUID) (SessionCounts, error)
	CountAll(dbc dbctx.Context) (SessionCounts, error)
	ExistsForGoal(dbc dbctx.Context, goalID uuid.UUID) (bool, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) CreateWithSteps(dbc dbctx.Context, session *types.Session, steps []*types.Step) error {
	write := func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(session).Error; err != nil {
			return err
		}
		for _, s := range steps {
			s.SessionID = session.ID
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	}
	if dbc.Tx != nil {
		return write(dbc.DB(r.db))
	}
	return dbc.DB(r.db).Transaction(write)
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Session
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) UpdateCompleted(dbc dbctx.Context, id uuid.UUID, isCompleted bool) error {
	return dbc.DB(r.db).
		Model(&types.Session{}).
		Where("id = ?", id).
		Update("is_completed", isCompleted).Error
}

func (r *sessionRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID, offset, limit int) ([]*types.Session, error) {
	var out []*types.Session
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Order("created_at DESC").
		Order("id ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) CountByUserID(dbc dbctx.Context, userID uuid.UUID) (SessionCounts, error) {
	return r.count(dbc.DB(r.db).Model(&types.Session{}).Where("user_id = ?", userID))
}

func (r *sessionRepo) CountAll(dbc dbctx.Context) (SessionCounts, error) {
	return r.count(dbc.DB(r.db).Model(&types.Session{}))
}

func (r *sessionRepo) count(q *gorm.DB) (SessionCounts, error) {
	var row struct {
		Total     int64
		Completed int64
	}
	err := q.Select(
		"COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0) AS completed",
	).Scan(&row).Error
	if err != nil {
		return SessionCounts{}, err
	}
	return SessionCounts{Total: row.Total, Completed: row.Completed}, nil
}

func (r *sessionRepo) ExistsForGoal(dbc dbctx.Context, goalID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Session{}).
		Where("goal_id = ?", goalID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}
