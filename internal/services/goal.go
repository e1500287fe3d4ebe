package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/domain/catalogue"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

const MaxGoalNameLength = 50

type GoalService interface {
	// EnsurePredefinedGoals inserts the catalogue goals the user is missing
	// and returns how many were inserted. Safe to call concurrently.
	EnsurePredefinedGoals(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	// ListGoals reconciles first, then lists with predefined names localized.
	ListGoals(dbc dbctx.Context, userID uuid.UUID, lang types.Language) ([]*types.Goal, error)
	GetOwnedGoal(dbc dbctx.Context, userID, goalID uuid.UUID) (*types.Goal, error)
	// LockOwnedGoal is GetOwnedGoal holding a row lock until dbc.Tx ends.
	LockOwnedGoal(dbc dbctx.Context, userID, goalID uuid.UUID) (*types.Goal, error)
	// DisplayName is the name used for prompts and listings in lang.
	DisplayName(goal *types.Goal, lang types.Language) string
	CreateCustomGoal(dbc dbctx.Context, userID uuid.UUID, name string) (*types.Goal, error)
	RenameCustomGoal(dbc dbctx.Context, userID, goalID uuid.UUID, name string) (*types.Goal, error)
	DeleteGoal(dbc dbctx.Context, userID, goalID uuid.UUID) error
}

type goalService struct {
	db       *gorm.DB
	log      *logger.Logger
	goals    repos.GoalRepo
	sessions repos.SessionRepo
	cat      *catalogue.Catalogue
}

func NewGoalService(db *gorm.DB, log *logger.Logger, goals repos.GoalRepo, sessions repos.SessionRepo, cat *catalogue.Catalogue) GoalService {
	return &goalService{
		db:       db,
		log:      log.With("service", "GoalService"),
		goals:    goals,
		sessions: sessions,
		cat:      cat,
	}
}

func (s *goalService) EnsurePredefinedGoals(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apierr.Validation("goals.EnsurePredefined", "user id is required")
	}
	existing, err := s.goals.PredefinedKeysByUserID(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("load predefined keys: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		have[k] = struct{}{}
	}
	var missing []*types.Goal
	for _, e := range s.cat.Entries() {
		if _, ok := have[e.Key]; ok {
			continue
		}
		missing = append(missing, &types.Goal{
			UserID:       userID,
			Name:         e.Name,
			IsPredefined: true,
			CatalogueKey: e.Key,
		})
	}
	if len(missing) == 0 {
		return 0, nil
	}
	// Conflicts mean a concurrent reconciliation already inserted the row.
	n, err := s.goals.CreatePredefinedIgnoreConflicts(dbc, missing)
	if err != nil {
		return 0, fmt.Errorf("insert predefined goals: %w", err)
	}
	if n > 0 {
		observability.Current().AddGoalsReconciled(n)
		s.log.Info("predefined goals reconciled", "user_id", userID, "inserted", n)
	}
	return n, nil
}

func (s *goalService) DisplayName(goal *types.Goal, lang types.Language) string {
	if goal == nil {
		return ""
	}
	if goal.IsPredefined {
		if name, ok := s.cat.DisplayName(goal.CatalogueKey, lang); ok {
			return name
		}
	}
	return goal.Name
}

func (s *goalService) ListGoals(dbc dbctx.Context, userID uuid.UUID, lang types.Language) ([]*types.Goal, error) {
	if _, err := s.EnsurePredefinedGoals(dbc, userID); err != nil {
		return nil, err
	}
	goals, err := s.goals.ListByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	for _, g := range goals {
		g.Name = s.DisplayName(g, lang)
	}
	return goals, nil
}

func (s *goalService) GetOwnedGoal(dbc dbctx.Context, userID, goalID uuid.UUID) (*types.Goal, error) {
	return s.ownedGoal(dbc, userID, goalID, s.goals.GetByID)
}

func (s *goalService) LockOwnedGoal(dbc dbctx.Context, userID, goalID uuid.UUID) (*types.Goal, error) {
	return s.ownedGoal(dbc, userID, goalID, s.goals.GetByIDForUpdate)
}

func (s *goalService) ownedGoal(
	dbc dbctx.Context,
	userID, goalID uuid.UUID,
	load func(dbctx.Context, uuid.UUID) (*types.Goal, error),
) (*types.Goal, error) {
	const op = "goals.Get"
	g, err := load(dbc, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if g == nil {
		return nil, apierr.NotFound(op, "goal not found")
	}
	if g.UserID != userID {
		return nil, apierr.Ownership(op, "goal belongs to another user")
	}
	return g, nil
}

func normalizeGoalName(op, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apierr.Validation(op, "goal name is required")
	}
	if utf8.RuneCountInString(name) > MaxGoalNameLength {
		return "", apierr.Validation(op, fmt.Sprintf("goal name must be at most %d characters", MaxGoalNameLength))
	}
	return name, nil
}

func (s *goalService) CreateCustomGoal(dbc dbctx.Context, userID uuid.UUID, rawName string) (*types.Goal, error) {
	const op = "goals.Create"
	name, err := normalizeGoalName(op, rawName)
	if err != nil {
		return nil, err
	}
	taken, err := s.goals.ExistsCustomName(dbc, userID, name, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check goal name: %w", err)
	}
	if taken {
		return nil, apierr.Conflict(op, "a goal with this name already exists")
	}
	g := &types.Goal{UserID: userID, Name: name}
	if err := s.goals.Create(dbc, g); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict(op, "a goal with this name already exists")
		}
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *goalService) RenameCustomGoal(dbc dbctx.Context, userID, goalID uuid.UUID, rawName string) (*types.Goal, error) {
	const op = "goals.Rename"
	g, err := s.GetOwnedGoal(dbc, userID, goalID)
	if err != nil {
		return nil, err
	}
	if g.IsPredefined {
		return nil, apierr.Conflict(op, "predefined goals cannot be renamed")
	}
	name, err := normalizeGoalName(op, rawName)
	if err != nil {
		return nil, err
	}
	taken, err := s.goals.ExistsCustomName(dbc, userID, name, g.ID)
	if err != nil {
		return nil, fmt.Errorf("check goal name: %w", err)
	}
	if taken {
		return nil, apierr.Conflict(op, "a goal with this name already exists")
	}
	if err := s.goals.UpdateName(dbc, g.ID, name); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict(op, "a goal with this name already exists")
		}
		return nil, fmt.Errorf("rename goal: %w", err)
	}
	g.Name = name
	return g, nil
}

func (s *goalService) DeleteGoal(dbc dbctx.Context, userID, goalID uuid.UUID) error {
	const op = "goals.Delete"
	del := func(dbc dbctx.Context) error {
		g, err := s.LockOwnedGoal(dbc, userID, goalID)
		if err != nil {
			return err
		}
		if g.IsPredefined {
			return apierr.Conflict(op, "predefined goals cannot be deleted")
		}
		used, err := s.sessions.ExistsForGoal(dbc, g.ID)
		if err != nil {
			return fmt.Errorf("check goal sessions: %w", err)
		}
		if used {
			return apierr.Conflict(op, "goal is referenced by existing sessions")
		}
		if _, err := s.goals.DeleteByID(dbc, g.ID); err != nil {
			if repos.IsForeignKeyViolation(err) {
				return apierr.Conflict(op, "goal is referenced by existing sessions")
			}
			return fmt.Errorf("delete goal: %w", err)
		}
		return nil
	}
	if dbc.Tx != nil {
		return del(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return del(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
