package database

import (
	"context"

	"github.com/condoflow/condoflow/internal/common/cnst"
)

// Database defines the methods for database operations.
//
// Methods return errorx.ErrNotFound when the target row is absent and
// errorx.ErrConflict when a uniqueness constraint rejects a write; raw
// storage errors are wrapped as errorx.ErrInternal.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Transaction runs fn inside a single transaction with a bounded
	// timeout. The transaction travels in the context, so every Database
	// call made with the derived context joins it. Nested calls reuse the
	// ambient transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Users

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	ListUsers(ctx context.Context) ([]*User, error)

	// Companies

	CreateCompany(ctx context.Context, company *Company) error
	GetCompany(ctx context.Context, id uint) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
	UpdateCompany(ctx context.Context, company *Company) error
	// DeleteCompany soft-deletes a company. It fails with ErrConflict while
	// condos still reference it.
	DeleteCompany(ctx context.Context, id uint) error

	// Condos

	CreateCondo(ctx context.Context, condo *Condo) error
	GetCondo(ctx context.Context, id uint) (*Condo, error)
	ListCondosByCompany(ctx context.Context, companyID uint) ([]*Condo, error)
	UpdateCondo(ctx context.Context, condo *Condo) error
	DeleteCondo(ctx context.Context, id uint) error

	// Units

	CreateUnit(ctx context.Context, unit *Unit) error
	GetUnit(ctx context.Context, id uint) (*Unit, error)
	ListUnitsByCondo(ctx context.Context, condoID uint) ([]*Unit, error)
	UpdateUnit(ctx context.Context, unit *Unit) error
	DeleteUnit(ctx context.Context, id uint) error

	// Role grants

	// ListActiveUserRoles returns the user's active, non-deleted grants.
	ListActiveUserRoles(ctx context.Context, userID uint) ([]*UserRole, error)
	// FindUserRole locates a grant at an exact scope, active or not.
	FindUserRole(ctx context.Context, userID uint, role cnst.Role, companyID, condoID *uint) (*UserRole, error)
	CreateUserRole(ctx context.Context, grant *UserRole) error
	UpdateUserRole(ctx context.Context, grant *UserRole) error

	// Residents

	CreateResident(ctx context.Context, resident *Resident) error
	GetResident(ctx context.Context, id uint) (*Resident, error)
	// GetActiveResident returns the active residency for (user, unit).
	GetActiveResident(ctx context.Context, userID, unitID uint) (*Resident, error)
	// GetActiveResidentForUpdate is GetActiveResident under a row lock; it
	// must be called inside a Transaction.
	GetActiveResidentForUpdate(ctx context.Context, userID, unitID uint) (*Resident, error)
	// GetActiveOwnerForUpdate locks and returns the unit's active owner.
	GetActiveOwnerForUpdate(ctx context.Context, unitID uint) (*Resident, error)
	ListResidentsByUnit(ctx context.Context, unitID uint) ([]*Resident, error)
	ListActiveResidentsByUser(ctx context.Context, userID uint) ([]*Resident, error)
	// CountOtherActiveResidencies counts the user's active residencies in
	// units of the given condo, excluding one resident row.
	CountOtherActiveResidencies(ctx context.Context, userID, condoID, excludeResidentID uint) (int64, error)
	UpdateResident(ctx context.Context, resident *Resident) error
	DeleteResident(ctx context.Context, id uint) error
	// ListUnitsByUser returns the units the user actively occupies.
	ListUnitsByUser(ctx context.Context, userID uint) ([]*Unit, error)

	// Invites

	CreateInvite(ctx context.Context, invite *Invite) error
	GetInvite(ctx context.Context, id string) (*Invite, error)
	GetInviteByToken(ctx context.Context, token string) (*Invite, error)
	// GetInviteByTokenForUpdate locks the invite row for redemption; it
	// must be called inside a Transaction.
	GetInviteByTokenForUpdate(ctx context.Context, token string) (*Invite, error)
	UpdateInvite(ctx context.Context, invite *Invite) error
	ListInvitesByUnit(ctx context.Context, unitID uint) ([]*Invite, error)
	DeleteInvite(ctx context.Context, id string) error
}
