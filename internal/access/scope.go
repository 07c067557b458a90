package access

import (
	"fmt"

	"github.com/condoflow/condoflow/internal/common/cnst"
)

// Scope names a single node in the company > condo > unit hierarchy.
type Scope struct {
	Kind cnst.ScopeKind
	ID   uint
}

// CompanyScope targets a company and everything under it.
func CompanyScope(id uint) Scope { return Scope{Kind: cnst.ScopeCompany, ID: id} }

// CondoScope targets a condo and its units.
func CondoScope(id uint) Scope { return Scope{Kind: cnst.ScopeCondo, ID: id} }

// UnitScope targets a single unit.
func UnitScope(id uint) Scope { return Scope{Kind: cnst.ScopeUnit, ID: id} }

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// chain is the resolved ownership path from the target up to its company.
// Zero values mean the level is above the target.
type chain struct {
	companyID uint
	condoID   uint
	unitID    uint
}
