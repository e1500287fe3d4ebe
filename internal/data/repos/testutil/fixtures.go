package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/stepwise-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, premium bool) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		IsPremium: premium,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCustomGoal(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, name string) *types.Goal {
	tb.Helper()
	g := &types.Goal{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed goal: %v", err)
	}
	return g
}

func SeedPredefinedGoal(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, key, name string) *types.Goal {
	tb.Helper()
	g := &types.Goal{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		IsPredefined: true,
		CatalogueKey: key,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed predefined goal: %v", err)
	}
	return g
}

// SeedSession writes a session with one step per duration.
func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID, completed bool, durations ...int) *types.Session {
	tb.Helper()
	total := 0
	for _, d := range durations {
		total += d
	}
	s := &types.Session{
		ID:                   uuid.New(),
		UserID:               userID,
		GoalID:               goalID,
		TotalDurationSeconds: total,
		IsCompleted:          completed,
	}
	if err := tx.WithContext(ctx).Omit("Steps").Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	for i, d := range durations {
		step := &types.Step{
			ID:              uuid.New(),
			SessionID:       s.ID,
			Order:           i + 1,
			Content:         "step",
			DurationSeconds: d,
		}
		if err := tx.WithContext(ctx).Create(step).Error; err != nil {
			tb.Fatalf("seed step: %v", err)
		}
	}
	return s
}
