package domain

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the subset of the identity service's user record this service reads.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	IsPremium  bool      `gorm:"column:is_premium;not null;default:false" json:"is_premium"`
	IsOperator bool      `gorm:"column:is_operator;not null;default:false" json:"is_operator"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "user" }
