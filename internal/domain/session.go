package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DurationToleranceSeconds bounds |sum(step durations) - session total| at creation.
const DurationToleranceSeconds = 60

// Session is written once together with its steps. Only IsCompleted changes afterwards.
type Session struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	GoalID               uuid.UUID `gorm:"type:uuid;not null;index" json:"goal_id"`
	TotalDurationSeconds int       `gorm:"column:total_duration_seconds;not null" json:"total_duration_seconds"`
	IsCompleted          bool      `gorm:"column:is_completed;not null;default:false;index" json:"is_completed"`
	CreatedAt            time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Goal  *Goal   `gorm:"foreignKey:GoalID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
	Steps []*Step `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

func (Session) TableName() string { return "session" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Step struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_step_session_order,priority:1" json:"session_id"`
	Order           int       `gorm:"column:step_order;not null;uniqueIndex:idx_step_session_order,priority:2" json:"order"`
	Content         string    `gorm:"column:content;type:text;not null" json:"content"`
	DurationSeconds int       `gorm:"column:duration_seconds;not null" json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Step) TableName() string { return "step" }

func (s *Step) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
