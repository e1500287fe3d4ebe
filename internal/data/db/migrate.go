package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/stepwise-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Identity (owned by the external user directory)
		&types.User{},

		// Goals + sessions
		&types.Goal{},
		&types.Session{},
		&types.Step{},

		// Durable recommendation cache
		&types.RecommendationCacheEntry{},
	); err != nil {
		return err
	}
	return EnsureGoalIndexes(db)
}

// EnsureGoalIndexes installs the partial unique indexes that make predefined
// reconciliation and custom-name uniqueness race-safe. The syntax is shared
// by postgres and sqlite. Custom names are unique on the Go-folded name_key.
func EnsureGoalIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_goal_user_catalogue_key
		ON goal (user_id, catalogue_key)
		WHERE is_predefined = true;
	`).Error; err != nil {
		return fmt.Errorf("create idx_goal_user_catalogue_key: %w", err)
	}
	// Rows written before name_key existed get a best-effort key so the index can be built.
	if err := db.Exec(`UPDATE goal SET name_key = lower(name) WHERE name_key = '';`).Error; err != nil {
		return fmt.Errorf("backfill goal name_key: %w", err)
	}
	if err := db.Exec(`DROP INDEX IF EXISTS idx_goal_user_custom_name;`).Error; err != nil {
		return fmt.Errorf("drop idx_goal_user_custom_name: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_goal_user_custom_name_key
		ON goal (user_id, name_key)
		WHERE is_predefined = false;
	`).Error; err != nil {
		return fmt.Errorf("create idx_goal_user_custom_name_key: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_session_user_created
		ON session (user_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_session_user_created: %w", err)
	}
	return nil
}
