package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos/planning"
	"github.com/yungbote/stepwise-backend/internal/data/repos/recommend"
	"github.com/yungbote/stepwise-backend/internal/data/repos/user"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type GoalRepo = planning.GoalRepo
type SessionRepo = planning.SessionRepo
type SessionCounts = planning.SessionCounts

type CacheEntryRepo = recommend.CacheEntryRepo

// IsForeignKeyViolation reports a write rejected by a goal or session foreign key.
func IsForeignKeyViolation(err error) bool { return planning.IsForeignKeyViolation(err) }

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return planning.NewGoalRepo(db, baseLog)
}
func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return planning.NewSessionRepo(db, baseLog)
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return recommend.NewCacheEntryRepo(db, baseLog)
}
