package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/condoflow/condoflow/internal/common/config"
)

// NewSQLite opens a SQLite-backed store. DBName is the database file path;
// ":memory:" style DSNs are accepted for tests.
func NewSQLite(cfg *config.DatabaseConfig) (Database, error) {
	if dir := filepath.Dir(cfg.DBName); !strings.Contains(cfg.DBName, ":memory:") && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(cfg.GetDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway; a single pooled connection keeps
	// concurrent transactions queued instead of failing with a busy error,
	// and keeps ":memory:" databases on one connection.
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	store, err := newStore(gormDB)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_residents_active_user_unit
			ON residents (user_id, unit_id) WHERE is_active = 1 AND deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_residents_active_owner
			ON residents (unit_id) WHERE is_owner = 1 AND is_active = 1 AND deleted_at IS NULL`,
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
