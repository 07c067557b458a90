package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/condoflow/condoflow/internal/common/cnst"
)

// User represents a platform account.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string         `json:"username" gorm:"type:varchar(50);uniqueIndex"`
	Email     string         `json:"email" gorm:"type:varchar(255);index"`
	Phone     string         `json:"phone" gorm:"type:varchar(32);index"`
	Password  string         `json:"-" gorm:"not null"` // Password is not exposed in JSON
	IsActive  bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Company is the root of tenancy; it owns condos.
type Company struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	IsActive  bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Condo is a managed residential complex belonging to exactly one company.
type Condo struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CompanyID uint           `json:"companyId" gorm:"not null;index"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Address   string         `json:"address" gorm:"type:text"`
	IsActive  bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Unit is an individually owned or rented space within a condo.
type Unit struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CondoID   uint           `json:"condoId" gorm:"not null;index"`
	Number    string         `json:"number" gorm:"type:varchar(32);not null"`
	Floor     int            `json:"floor"`
	Area      float64        `json:"area"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserRole is a scoped capability grant. Exactly one scope level applies:
// global (no company/condo), company-wide, or condo-wide. At most one row
// exists per (user, role, scope); activation toggles is_active in place.
type UserRole struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint           `json:"userId" gorm:"not null;index"`
	Role      cnst.Role      `json:"role" gorm:"type:varchar(32);not null"`
	CompanyID *uint          `json:"companyId,omitempty" gorm:"index"`
	CondoID   *uint          `json:"condoId,omitempty" gorm:"index"`
	IsActive  bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Resident links a user to a unit they occupy. At most one active row per
// (user, unit), and at most one active owner per unit.
type Resident struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     uint           `json:"userId" gorm:"not null;index:idx_resident_user_unit"`
	UnitID     uint           `json:"unitId" gorm:"not null;index:idx_resident_user_unit;index"`
	IsOwner    bool           `json:"isOwner" gorm:"not null;default:false"`
	IsActive   bool           `json:"isActive" gorm:"not null;default:true"`
	MovedInAt  time.Time      `json:"movedInAt"`
	MovedOutAt *time.Time     `json:"movedOutAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Invite is a redeemable, expiring, usage-bounded token targeting a unit.
// MaxUses nil means unlimited redemption until expiry.
type Invite struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UnitID    uint           `json:"unitId" gorm:"not null;index"`
	Token     string         `json:"-" gorm:"type:varchar(128);uniqueIndex"`
	Email     string         `json:"email,omitempty" gorm:"type:varchar(255)"`
	Phone     string         `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Role      cnst.Role      `json:"role" gorm:"type:varchar(32);not null;default:'resident'"`
	ExpiresAt time.Time      `json:"expiresAt" gorm:"not null;index"`
	MaxUses   *int           `json:"maxUses,omitempty"`
	UsedCount int            `json:"usedCount" gorm:"not null;default:0"`
	IsActive  bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedBy uint           `json:"createdBy" gorm:"not null"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
