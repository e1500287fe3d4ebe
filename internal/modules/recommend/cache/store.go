package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/stepwise-backend/internal/domain"
)

// Key identifies one cached recommendation.
type Key struct {
	GoalID   uuid.UUID
	Language types.Language
}

func (k Key) String() string {
	return k.GoalID.String() + ":" + k.Language.String()
}

type Entry struct {
	Steps                []types.RecommendedStep `json:"steps"`
	TotalDurationSeconds int                     `json:"totalDurationSeconds"`
	CreatedAt            time.Time               `json:"createdAt"`
	ExpiresAt            time.Time               `json:"expiresAt"`
}

func (e *Entry) ExpiredAt(now time.Time) bool {
	return e == nil || !now.Before(e.ExpiresAt)
}

func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Steps = types.CloneSteps(e.Steps)
	return &cp
}

// Store is the keyed backing map behind Cache. Implementations return
// (nil, nil) for an absent key and need not check expiry.
type Store interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, entry *Entry) error
	Delete(ctx context.Context, key Key) error
	// DeleteExpired removes entries whose ExpiresAt is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
