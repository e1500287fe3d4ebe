package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

type Repos struct {
	User       repos.UserRepo
	Goal       repos.GoalRepo
	Session    repos.SessionRepo
	CacheEntry repos.CacheEntryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		Goal:       repos.NewGoalRepo(db, log),
		Session:    repos.NewSessionRepo(db, log),
		CacheEntry: repos.NewCacheEntryRepo(db, log),
	}
}
