package database

import (
	"context"

	"github.com/condoflow/condoflow/internal/common/cnst"
)

// ListActiveUserRoles returns the user's active, non-deleted role grants.
func (s *Store) ListActiveUserRoles(ctx context.Context, userID uint) ([]*UserRole, error) {
	var grants []*UserRole
	err := s.conn(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&grants).Error
	return grants, translate(err)
}

// FindUserRole locates a grant at an exact scope, active or not. A nil
// companyID/condoID matches only rows where that scope column is NULL, so a
// global grant is never confused with a scoped one.
func (s *Store) FindUserRole(ctx context.Context, userID uint, role cnst.Role, companyID, condoID *uint) (*UserRole, error) {
	db := s.conn(ctx).
		Where("user_id = ? AND role = ?", userID, role)

	if companyID != nil {
		db = db.Where("company_id = ?", *companyID)
	} else {
		db = db.Where("company_id IS NULL")
	}
	if condoID != nil {
		db = db.Where("condo_id = ?", *condoID)
	} else {
		db = db.Where("condo_id IS NULL")
	}

	var grant UserRole
	if err := db.First(&grant).Error; err != nil {
		return nil, translate(err)
	}
	return &grant, nil
}

// CreateUserRole creates a new role grant
func (s *Store) CreateUserRole(ctx context.Context, grant *UserRole) error {
	return translate(s.conn(ctx).Create(grant).Error)
}

// UpdateUserRole updates an existing role grant
func (s *Store) UpdateUserRole(ctx context.Context, grant *UserRole) error {
	return translate(s.conn(ctx).Save(grant).Error)
}
