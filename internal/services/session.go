package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/observability"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/dbctx"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

const (
	MaxSessionSteps  = 100
	DefaultPageSize  = 20
	MaxPageSize      = 100
	maxPageOffset    = math.MaxInt32
	maxStepContent   = 500
	maxTotalDuration = 24 * 60 * 60
)

// StepInput is one submitted step. Its position in the list is its order.
type StepInput struct {
	Content         string
	DurationSeconds int
}

type SessionPage struct {
	Sessions       []*types.Session
	TotalCount     int64
	CompletedCount int64
	Page           int
	Size           int
}

type SessionService interface {
	StartSession(dbc dbctx.Context, userID, goalID uuid.UUID, totalDurationSeconds int, steps []StepInput) (*types.Session, error)
	CompleteSession(dbc dbctx.Context, userID, sessionID uuid.UUID, isCompleted bool) error
	ListSessions(dbc dbctx.Context, userID uuid.UUID, page, size int) (*SessionPage, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	goals    GoalService
	sessions repos.SessionRepo
}

func NewSessionService(db *gorm.DB, log *logger.Logger, goals GoalService, sessions repos.SessionRepo) SessionService {
	return &sessionService{
		db:       db,
		log:      log.With("service", "SessionService"),
		goals:    goals,
		sessions: sessions,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// buildSteps validates the submitted steps and assigns 1-based order.
func buildSteps(op string, total int, in []StepInput) ([]*types.Step, error) {
	if total <= 0 {
		return nil, apierr.Validation(op, "totalDurationSeconds must be positive")
	}
	if total > maxTotalDuration {
		return nil, apierr.Validation(op, "totalDurationSeconds must be at most one day")
	}
	if len(in) == 0 {
		return nil, apierr.Validation(op, "steps must not be empty")
	}
	if len(in) > MaxSessionSteps {
		return nil, apierr.Validation(op, fmt.Sprintf("at most %d steps are allowed", MaxSessionSteps))
	}
	out := make([]*types.Step, 0, len(in))
	sum := 0
	for i, s := range in {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			return nil, apierr.Validation(op, fmt.Sprintf("step %d has no content", i+1))
		}
		if len([]rune(content)) > maxStepContent {
			return nil, apierr.Validation(op, fmt.Sprintf("step %d content is too long", i+1))
		}
		if s.DurationSeconds <= 0 {
			return nil, apierr.Validation(op, fmt.Sprintf("step %d duration must be positive", i+1))
		}
		sum += s.DurationSeconds
		out = append(out, &types.Step{
			Order:           i + 1,
			Content:         content,
			DurationSeconds: s.DurationSeconds,
		})
	}
	if abs(sum-total) > types.DurationToleranceSeconds {
		return nil, apierr.Validation(op, fmt.Sprintf(
			"step durations sum to %d seconds, which differs from totalDurationSeconds %d by more than %d seconds",
			sum, total, types.DurationToleranceSeconds,
		))
	}
	return out, nil
}

// StartSession locks the goal, validates the steps and writes the session in
// one transaction, so a concurrent DeleteGoal either sees the session or
// removes the goal before the session can reference it.
func (s *sessionService) StartSession(dbc dbctx.Context, userID, goalID uuid.UUID, total int, in []StepInput) (*types.Session, error) {
	const op = "sessions.Start"
	var session *types.Session
	start := func(dbc dbctx.Context) error {
		goal, err := s.goals.LockOwnedGoal(dbc, userID, goalID)
		if err != nil {
			return err
		}
		steps, err := buildSteps(op, total, in)
		if err != nil {
			return err
		}
		session = &types.Session{
			UserID:               userID,
			GoalID:               goal.ID,
			TotalDurationSeconds: total,
		}
		if err := s.sessions.CreateWithSteps(dbc, session, steps); err != nil {
			if repos.IsForeignKeyViolation(err) {
				return apierr.Conflict(op, "goal was deleted")
			}
			s.log.Error("session create failed", "user_id", userID, "goal_id", goalID, "error", err)
			return fmt.Errorf("create session: %w", err)
		}
		session.Steps = steps
		return nil
	}

	var err error
	if dbc.Tx != nil {
		err = start(dbc)
	} else {
		err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
			return start(dbc.WithTx(tx))
		})
	}
	if err != nil {
		return nil, err
	}

	observability.Current().IncSessionStarted()
	s.log.Info("session started",
		"session_id", session.ID,
		"user_id", userID,
		"goal_id", session.GoalID,
		"steps", len(session.Steps),
		"total_seconds", total,
	)
	return session, nil
}

func (s *sessionService) CompleteSession(dbc dbctx.Context, userID, sessionID uuid.UUID, isCompleted bool) error {
	const op = "sessions.Complete"
	session, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return apierr.NotFound(op, "session not found")
	}
	if session.UserID != userID {
		return apierr.Ownership(op, "session belongs to another user")
	}
	if session.IsCompleted == isCompleted {
		return nil
	}
	if err := s.sessions.UpdateCompleted(dbc, session.ID, isCompleted); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if isCompleted {
		observability.Current().IncSessionCompleted()
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > maxPageOffset/size {
		page = maxPageOffset / size
	}
	return page, size
}

func (s *sessionService) ListSessions(dbc dbctx.Context, userID uuid.UUID, page, size int) (*SessionPage, error) {
	page, size = normalizePage(page, size)
	list, err := s.sessions.ListByUserID(dbc, userID, page*size, size)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	counts, err := s.sessions.CountByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return &SessionPage{
		Sessions:       list,
		TotalCount:     counts.Total,
		CompletedCount: counts.Completed,
		Page:           page,
		Size:           size,
	}, nil
}
