package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

// UserDirectory resolves an authenticated identity to the user record and
// premium flag. Users are provisioned by the identity service.
type UserDirectory interface {
	Lookup(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type userDirectory struct {
	log    *logger.Logger
	users  repos.UserRepo
	recent *gocache.Cache
}

// NewUserDirectory caches lookups for ttl; ttl <= 0 disables caching.
func NewUserDirectory(log *logger.Logger, users repos.UserRepo, ttl time.Duration) UserDirectory {
	d := &userDirectory{
		log:   log.With("service", "UserDirectory"),
		users: users,
	}
	if ttl > 0 {
		d.recent = gocache.New(ttl, 2*ttl)
	}
	return d
}

func (d *userDirectory) Lookup(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	const op = "users.Lookup"
	if userID == uuid.Nil {
		return nil, apierr.New(apierr.KindUnauthorized, op, "unknown user", nil)
	}
	if d.recent != nil {
		if v, ok := d.recent.Get(userID.String()); ok {
			u := *v.(*types.User)
			return &u, nil
		}
	}
	u, err := d.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, apierr.New(apierr.KindUnauthorized, op, "unknown user", nil)
	}
	if d.recent != nil {
		cp := *u
		d.recent.SetDefault(userID.String(), &cp)
	}
	return u, nil
}
