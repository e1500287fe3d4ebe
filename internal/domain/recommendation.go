package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecommendedStep is one AI-proposed step. Order is 1-based.
type RecommendedStep struct {
	Content         string `json:"content"`
	DurationSeconds int    `json:"durationSeconds"`
	Order           int    `json:"order"`
}

// CloneSteps returns a deep copy so cached slices are never shared with callers.
func CloneSteps(in []RecommendedStep) []RecommendedStep {
	if in == nil {
		return nil
	}
	out := make([]RecommendedStep, len(in))
	copy(out, in)
	return out
}

func SumDurations(steps []RecommendedStep) int {
	total := 0
	for _, s := range steps {
		total += s.DurationSeconds
	}
	return total
}

// RecommendationCacheEntry is the durable row behind CACHE_BACKEND=db.
type RecommendationCacheEntry struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID               uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_rec_cache_goal_lang,priority:1" json:"goal_id"`
	Language             string         `gorm:"column:language;size:8;not null;uniqueIndex:idx_rec_cache_goal_lang,priority:2" json:"language"`
	TotalDurationSeconds int            `gorm:"column:total_duration_seconds;not null" json:"total_duration_seconds"`
	Steps                datatypes.JSON `gorm:"column:steps;not null" json:"steps"`
	CreatedAt            time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	ExpiresAt            time.Time      `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

func (RecommendationCacheEntry) TableName() string { return "recommendation_cache_entry" }

func (e *RecommendationCacheEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
