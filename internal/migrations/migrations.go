// Package migrations creates and evolves the deploy center schema.
package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/brandhub/deploycenter/internal/models"
)

// Models returns every model the schema is built from.
func Models() []any {
	return []any{
		// Targets
		&models.Tenant{},
		&models.Store{},
		&models.Branch{},

		// Deployment ledger
		&models.Commit{},
		&models.DeploymentSession{},
		&models.SessionCommit{},
		&models.Release{},
		&models.DeploymentStatus{},

		// Brand catalog
		&models.Supplier{},
		&models.Product{},
		&models.Category{},
	}
}

// Run executes all migrations. It is safe to run repeatedly.
func Run(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"latest commit index", addLatestCommitIndex},
		{"session counter check", addSessionCounterCheck},
		{"pending units index", addPendingUnitsIndex},
	}
	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addLatestCommitIndex serves the newest non-archived commit per tool.
func addLatestCommitIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_commits_tool_latest
		ON deploy_commits(tool, created_at DESC)
		WHERE status <> 'archived'
	`).Error
}

func addSessionCounterCheck(db *gorm.DB) error {
	return db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sessions_counters') THEN
				ALTER TABLE deploy_sessions ADD CONSTRAINT chk_sessions_counters
				CHECK (completed_branches >= 0 AND failed_branches >= 0
					AND completed_branches + failed_branches <= total_branches);
			END IF;
		END $$
	`).Error
}

func addPendingUnitsIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_session_units_open
		ON deploy_session_commits(deployment_session_id, seq)
		WHERE status IN ('ready', 'in_progress')
	`).Error
}
