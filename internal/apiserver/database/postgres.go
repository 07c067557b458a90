package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/condoflow/condoflow/internal/common/config"
)

// NewPostgres opens a PostgreSQL-backed store
func NewPostgres(cfg *config.DatabaseConfig) (Database, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := newStore(gormDB)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Partial unique indexes are the durable backstop behind the row locks:
	// at most one active residency per (user, unit), one active owner per
	// unit, and one grant row per (user, role, scope) even if a future code
	// path skips the lock. The grant indexes are split per scope shape
	// because NULL scope columns compare distinct in a plain unique index.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_residents_active_user_unit
			ON residents (user_id, unit_id) WHERE is_active AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_residents_active_owner
			ON residents (unit_id) WHERE is_owner AND is_active AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_condo_scope
			ON user_roles (user_id, role, condo_id)
			WHERE company_id IS NULL AND condo_id IS NOT NULL AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_company_scope
			ON user_roles (user_id, role, company_id)
			WHERE condo_id IS NULL AND company_id IS NOT NULL AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_global_scope
			ON user_roles (user_id, role)
			WHERE company_id IS NULL AND condo_id IS NULL AND deleted_at IS NULL`,
	} {
		if err := gormDB.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return store, nil
}
