package dto

import (
	"time"

	"github.com/condoflow/condoflow/internal/common/cnst"
)

// UserInfo is the identity payload returned after authentication.
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// CreateCompanyRequest creates a company.
type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCompanyRequest patches a company.
type UpdateCompanyRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"isActive"`
}

// CreateCondoRequest creates a condo under a company.
type CreateCondoRequest struct {
	CompanyID uint   `json:"companyId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Address   string `json:"address"`
}

// UpdateCondoRequest patches a condo.
type UpdateCondoRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	IsActive *bool  `json:"isActive"`
}

// CreateUnitRequest creates a unit inside a condo.
type CreateUnitRequest struct {
	CondoID uint    `json:"condoId" binding:"required"`
	Number  string  `json:"number" binding:"required"`
	Floor   int     `json:"floor"`
	Area    float64 `json:"area" binding:"omitempty,gt=0"`
}

// UpdateUnitRequest patches a unit.
type UpdateUnitRequest struct {
	Number string  `json:"number"`
	Floor  *int    `json:"floor"`
	Area   float64 `json:"area" binding:"omitempty,gt=0"`
}

// GrantRoleRequest assigns a scoped role to a user. Exactly one scope level
// applies: global (neither id set), company, or condo.
type GrantRoleRequest struct {
	UserID    uint      `json:"userId" binding:"required"`
	Role      cnst.Role `json:"role" binding:"required"`
	CompanyID *uint     `json:"companyId"`
	CondoID   *uint     `json:"condoId"`
}

// CreateResidentRequest registers a residency directly (admin-initiated).
type CreateResidentRequest struct {
	UserID    uint       `json:"userId" binding:"required"`
	UnitID    uint       `json:"unitId" binding:"required"`
	IsOwner   bool       `json:"isOwner"`
	MovedInAt *time.Time `json:"movedInAt"`
}

// UpdateResidentRequest patches a residency. Nil fields are untouched.
type UpdateResidentRequest struct {
	IsOwner    *bool      `json:"isOwner"`
	IsActive   *bool      `json:"isActive"`
	MovedInAt  *time.Time `json:"movedInAt"`
	MovedOutAt *time.Time `json:"movedOutAt"`
}

// CreateInviteRequest issues an invite for a unit. TTLSeconds of zero means
// the server default (7 days); MaxUses nil means unlimited until expiry.
type CreateInviteRequest struct {
	UnitID     uint      `json:"unitId" binding:"required"`
	Email      string    `json:"email" binding:"omitempty,email"`
	Phone      string    `json:"phone"`
	Role       cnst.Role `json:"role"`
	TTLSeconds int64     `json:"ttlSeconds" binding:"omitempty,gt=0"`
	MaxUses    *int      `json:"maxUses"`
}

// AcceptInviteRequest redeems an invite token for the authenticated caller.
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}
