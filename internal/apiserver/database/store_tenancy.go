package database

import (
	"context"

	"github.com/condoflow/condoflow/internal/common/errorx"
)

// CreateUser creates a new user
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	return translate(s.conn(ctx).Create(user).Error)
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.conn(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateUser updates an existing user
func (s *Store) UpdateUser(ctx context.Context, user *User) error {
	return translate(s.conn(ctx).Save(user).Error)
}

// ListUsers retrieves all users
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.conn(ctx).Order("created_at desc").Find(&users).Error
	return users, translate(err)
}

// CreateCompany creates a new company
func (s *Store) CreateCompany(ctx context.Context, company *Company) error {
	return translate(s.conn(ctx).Create(company).Error)
}

// GetCompany retrieves a company by ID
func (s *Store) GetCompany(ctx context.Context, id uint) (*Company, error) {
	var company Company
	if err := s.conn(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

// ListCompanies retrieves all companies
func (s *Store) ListCompanies(ctx context.Context) ([]*Company, error) {
	var companies []*Company
	err := s.conn(ctx).Order("created_at desc").Find(&companies).Error
	return companies, translate(err)
}

// UpdateCompany updates an existing company
func (s *Store) UpdateCompany(ctx context.Context, company *Company) error {
	return translate(s.conn(ctx).Save(company).Error)
}

// DeleteCompany soft-deletes a company. Companies are never removed while
// condos still reference them.
func (s *Store) DeleteCompany(ctx context.Context, id uint) error {
	db := s.conn(ctx)

	var count int64
	if err := db.Model(&Condo{}).Where("company_id = ?", id).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count > 0 {
		return errorx.ErrConflict.WithMessage("company still owns %d condos", count)
	}

	res := db.Delete(&Company{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errorx.ErrNotFound
	}
	return nil
}

// CreateCondo creates a new condo
func (s *Store) CreateCondo(ctx context.Context, condo *Condo) error {
	return translate(s.conn(ctx).Create(condo).Error)
}

// GetCondo retrieves a condo by ID
func (s *Store) GetCondo(ctx context.Context, id uint) (*Condo, error) {
	var condo Condo
	if err := s.conn(ctx).First(&condo, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &condo, nil
}

// ListCondosByCompany retrieves all condos owned by a company
func (s *Store) ListCondosByCompany(ctx context.Context, companyID uint) ([]*Condo, error) {
	var condos []*Condo
	err := s.conn(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Find(&condos).Error
	return condos, translate(err)
}

// UpdateCondo updates an existing condo
func (s *Store) UpdateCondo(ctx context.Context, condo *Condo) error {
	return translate(s.conn(ctx).Save(condo).Error)
}

// DeleteCondo soft-deletes a condo
func (s *Store) DeleteCondo(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&Condo{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errorx.ErrNotFound
	}
	return nil
}

// CreateUnit creates a new unit
func (s *Store) CreateUnit(ctx context.Context, unit *Unit) error {
	return translate(s.conn(ctx).Create(unit).Error)
}

// GetUnit retrieves a unit by ID
func (s *Store) GetUnit(ctx context.Context, id uint) (*Unit, error) {
	var unit Unit
	if err := s.conn(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &unit, nil
}

// ListUnitsByCondo retrieves all units in a condo
func (s *Store) ListUnitsByCondo(ctx context.Context, condoID uint) ([]*Unit, error) {
	var units []*Unit
	err := s.conn(ctx).
		Where("condo_id = ?", condoID).
		Order("number asc").
		Find(&units).Error
	return units, translate(err)
}

// UpdateUnit updates an existing unit
func (s *Store) UpdateUnit(ctx context.Context, unit *Unit) error {
	return translate(s.conn(ctx).Save(unit).Error)
}

// DeleteUnit soft-deletes a unit
func (s *Store) DeleteUnit(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&Unit{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errorx.ErrNotFound
	}
	return nil
}
