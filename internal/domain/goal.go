package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Goal is either a predefined catalogue goal (CatalogueKey set) or a
// user-created custom goal.
type Goal struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	NameKey      string    `gorm:"column:name_key;not null;default:''" json:"-"`
	IsPredefined bool      `gorm:"column:is_predefined;not null;default:false" json:"is_predefined"`
	CatalogueKey string    `gorm:"column:catalogue_key;not null;default:''" json:"catalogue_key,omitempty"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Goal) TableName() string { return "goal" }

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.NameKey = GoalNameKey(g.Name)
	return nil
}

// GoalNameKey is the case-folded form custom-goal uniqueness is checked on.
// Folding happens here rather than in SQL so every database agrees on it.
func GoalNameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
