package access

import (
	"context"

	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/errorx"
)

// Evaluator decides whether a user's role set grants access to a target in
// the company > condo > unit hierarchy. It is a pure reader: every call is a
// point-in-time decision against the role store, with no caching.
type Evaluator struct {
	db     database.Database
	logger *zap.Logger
}

// NewEvaluator creates a new access evaluator
func NewEvaluator(db database.Database, logger *zap.Logger) *Evaluator {
	return &Evaluator{db: db, logger: logger.Named("access")}
}

// CanAccess reports whether userID may act on the target scope. When
// requiredRoles is empty, any role at or above the target scope qualifies.
// Ordinary denial returns (false, nil); a missing target resource returns
// ErrNotFound so handlers can refuse before leaking authorization state.
func (e *Evaluator) CanAccess(ctx context.Context, userID uint, scope Scope, requiredRoles ...cnst.Role) (bool, error) {
	ch, err := e.resolveChain(ctx, scope)
	if err != nil {
		return false, err
	}

	grants, err := e.db.ListActiveUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		if g.Role == cnst.RoleSuperAdmin && g.CompanyID == nil && g.CondoID == nil {
			return true, nil
		}
	}

	for _, g := range grants {
		// The condo-scoped resident grant tracks membership, not authority.
		// Residency-based access is decided below against the exact unit, so
		// a resident of one unit never reaches its siblings through the grant.
		if g.Role == cnst.RoleResident {
			continue
		}
		if !grantCovers(g, ch) {
			continue
		}
		if roleMatches(g.Role, requiredRoles) {
			return true, nil
		}
	}

	// Unit-level self-access: an active resident may act on their own unit
	// even without an administrative grant.
	if scope.Kind == cnst.ScopeUnit {
		if _, err := e.db.GetActiveResident(ctx, userID, ch.unitID); err == nil {
			if roleMatches(cnst.RoleResident, requiredRoles) {
				return true, nil
			}
		} else if !errorx.IsCategory(err, errorx.CategoryNotFound) {
			return false, err
		}
	}

	e.logger.Debug("access denied",
		zap.Uint("user_id", userID),
		zap.String("scope", scope.String()))
	return false, nil
}

// IsSuperAdmin reports whether userID holds the active global superadmin
// grant. Used for operations with no scoped target, such as creating a
// company.
func (e *Evaluator) IsSuperAdmin(ctx context.Context, userID uint) (bool, error) {
	grants, err := e.db.ListActiveUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.Role == cnst.RoleSuperAdmin && g.CompanyID == nil && g.CondoID == nil {
			return true, nil
		}
	}
	return false, nil
}

// HasCompanyRole reports whether userID holds one of the roles at company
// level over companyID. Condo-scoped grants never satisfy this; superadmin
// always does. Used for operations reserved to company administration, such
// as ownership changes.
func (e *Evaluator) HasCompanyRole(ctx context.Context, userID, companyID uint, roles ...cnst.Role) (bool, error) {
	grants, err := e.db.ListActiveUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.Role == cnst.RoleSuperAdmin && g.CompanyID == nil && g.CondoID == nil {
			return true, nil
		}
		if g.CondoID != nil || g.CompanyID == nil || *g.CompanyID != companyID {
			continue
		}
		if roleMatches(g.Role, roles) {
			return true, nil
		}
	}
	return false, nil
}

// resolveChain walks the target's ownership path up to its company. Each
// lookup returns ErrNotFound when the resource is absent.
func (e *Evaluator) resolveChain(ctx context.Context, scope Scope) (chain, error) {
	var ch chain
	switch scope.Kind {
	case cnst.ScopeCompany:
		if _, err := e.db.GetCompany(ctx, scope.ID); err != nil {
			return ch, err
		}
		ch.companyID = scope.ID
	case cnst.ScopeCondo:
		condo, err := e.db.GetCondo(ctx, scope.ID)
		if err != nil {
			return ch, err
		}
		ch.condoID = condo.ID
		ch.companyID = condo.CompanyID
	case cnst.ScopeUnit:
		unit, err := e.db.GetUnit(ctx, scope.ID)
		if err != nil {
			return ch, err
		}
		condo, err := e.db.GetCondo(ctx, unit.CondoID)
		if err != nil {
			return ch, err
		}
		ch.unitID = unit.ID
		ch.condoID = condo.ID
		ch.companyID = condo.CompanyID
	default:
		return ch, errorx.ErrInvalidInput.WithMessage("unknown scope kind %q", scope.Kind)
	}
	return ch, nil
}

// grantCovers reports whether the grant's scope sits at or above the target
// chain. Company grants cover every condo and unit under the company; condo
// grants cover only that condo and its units.
func grantCovers(g *database.UserRole, ch chain) bool {
	switch {
	case g.CondoID != nil:
		return ch.condoID != 0 && *g.CondoID == ch.condoID
	case g.CompanyID != nil:
		return ch.companyID != 0 && *g.CompanyID == ch.companyID
	default:
		// Global grant
		return true
	}
}

func roleMatches(role cnst.Role, required []cnst.Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
