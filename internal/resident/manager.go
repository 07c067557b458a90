package resident

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/errorx"
	"github.com/condoflow/condoflow/internal/notify"
)

// earliestMoveDate is the historical floor for move dates.
var earliestMoveDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Manager drives the resident lifecycle: creation, updates, move-out and the
// role-grant sync that keeps the "resident" grant aligned with residency
// existence. Cross-instance invariants (one active residency per user/unit,
// one active owner per unit) are enforced with row locks inside a single
// transaction, backed by partial unique indexes.
type Manager struct {
	db        database.Database
	evaluator *access.Evaluator
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewManager creates a resident lifecycle manager
func NewManager(db database.Database, evaluator *access.Evaluator, notifier notify.Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		db:        db,
		evaluator: evaluator,
		notifier:  notifier,
		logger:    logger.Named("resident"),
	}
}

// CreateParams carries the inputs for Create.
type CreateParams struct {
	UserID    uint
	UnitID    uint
	IsOwner   bool
	MovedInAt time.Time
	// ActorID is the caller; ownership may only be assigned by someone with
	// a company-level role over the unit's company.
	ActorID uint
}

// Create registers an active residency for (user, unit) and ensures the
// condo-scoped "resident" grant exists and is active. The create-create race
// is closed by locking the existing active row before inserting.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*database.Resident, error) {
	if p.MovedInAt.IsZero() {
		p.MovedInAt = time.Now()
	}
	if err := validateMoveDates(p.MovedInAt, nil); err != nil {
		return nil, err
	}

	if _, err := m.db.GetUser(ctx, p.UserID); err != nil {
		return nil, err
	}
	unit, err := m.db.GetUnit(ctx, p.UnitID)
	if err != nil {
		return nil, err
	}
	condo, err := m.db.GetCondo(ctx, unit.CondoID)
	if err != nil {
		return nil, err
	}

	if p.IsOwner {
		ok, err := m.evaluator.HasCompanyRole(ctx, p.ActorID, condo.CompanyID, cnst.RoleCompanyAdmin)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errorx.ErrForbidden.WithMessage("assigning ownership requires a company-level role")
		}
	}

	var created *database.Resident
	err = m.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := m.db.GetActiveResidentForUpdate(ctx, p.UserID, p.UnitID); err == nil {
			return errorx.ErrConflict.WithMessage("user is already an active resident of this unit")
		} else if !errorx.IsCategory(err, errorx.CategoryNotFound) {
			return err
		}

		if p.IsOwner {
			if _, err := m.db.GetActiveOwnerForUpdate(ctx, p.UnitID); err == nil {
				return errorx.ErrConflict.WithMessage("unit already has an active owner")
			} else if !errorx.IsCategory(err, errorx.CategoryNotFound) {
				return err
			}
		}

		resident := &database.Resident{
			UserID:    p.UserID,
			UnitID:    p.UnitID,
			IsOwner:   p.IsOwner,
			IsActive:  true,
			MovedInAt: p.MovedInAt,
		}
		if err := m.db.CreateResident(ctx, resident); err != nil {
			// A concurrent insert winning before our lock was observed hits
			// the partial unique index; surface it as the same conflict.
			if database.IsDuplicateKey(err) {
				return errorx.ErrConflict.WithMessage("user is already an active resident of this unit")
			}
			return err
		}

		if err := m.ensureResidentGrant(ctx, p.UserID, condo.ID); err != nil {
			return err
		}

		created = resident
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("resident created",
		zap.Uint("resident_id", created.ID),
		zap.Uint("user_id", p.UserID),
		zap.Uint("unit_id", p.UnitID),
		zap.Bool("is_owner", p.IsOwner))

	// Inside an ambient transaction the commit is not ours; the outer caller
	// emits the event once it has committed. A rollback upstream must not
	// have notified anyone.
	if !database.InTransaction(ctx) {
		event := notify.NewEvent(notify.EventResidentAdded, p.UnitID)
		go m.notifier.Notify(context.WithoutCancel(ctx), event)
	}

	return created, nil
}

// ensureResidentGrant inserts or reactivates the condo-scoped resident grant.
// An insert racing a concurrent identical insert is treated as success: the
// duplicate-key violation means the grant exists, so it is reactivated
// instead of erroring.
func (m *Manager) ensureResidentGrant(ctx context.Context, userID, condoID uint) error {
	grant, err := m.db.FindUserRole(ctx, userID, cnst.RoleResident, nil, &condoID)
	switch {
	case err == nil:
		if grant.IsActive {
			return nil
		}
		grant.IsActive = true
		return m.db.UpdateUserRole(ctx, grant)
	case errorx.IsCategory(err, errorx.CategoryNotFound):
		newGrant := &database.UserRole{
			UserID:   userID,
			Role:     cnst.RoleResident,
			CondoID:  &condoID,
			IsActive: true,
		}
		if createErr := m.db.CreateUserRole(ctx, newGrant); createErr != nil {
			if !database.IsDuplicateKey(createErr) {
				return createErr
			}
			existing, findErr := m.db.FindUserRole(ctx, userID, cnst.RoleResident, nil, &condoID)
			if findErr != nil {
				return findErr
			}
			if existing.IsActive {
				return nil
			}
			existing.IsActive = true
			return m.db.UpdateUserRole(ctx, existing)
		}
		return nil
	default:
		return err
	}
}

// MoveOut retires a residency. The condo-scoped resident grant is
// deactivated only when the user holds no other active residency in the same
// condo, so occupying several units in one condo survives a single move-out.
func (m *Manager) MoveOut(ctx context.Context, residentID uint) (*database.Resident, error) {
	var movedOut *database.Resident
	err := m.db.Transaction(ctx, func(ctx context.Context) error {
		resident, err := m.db.GetResident(ctx, residentID)
		if err != nil {
			return err
		}
		if !resident.IsActive {
			return errorx.ErrConflict.WithMessage("resident already moved out")
		}

		unit, err := m.db.GetUnit(ctx, resident.UnitID)
		if err != nil {
			return err
		}

		now := time.Now()
		resident.IsActive = false
		resident.MovedOutAt = &now
		if err := m.db.UpdateResident(ctx, resident); err != nil {
			return err
		}

		if err := m.retireGrantIfLastResidency(ctx, resident, unit.CondoID); err != nil {
			return err
		}

		movedOut = resident
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("resident moved out",
		zap.Uint("resident_id", movedOut.ID),
		zap.Uint("user_id", movedOut.UserID),
		zap.Uint("unit_id", movedOut.UnitID))
	return movedOut, nil
}

func (m *Manager) retireGrantIfLastResidency(ctx context.Context, resident *database.Resident, condoID uint) error {
	count, err := m.db.CountOtherActiveResidencies(ctx, resident.UserID, condoID, resident.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	grant, err := m.db.FindUserRole(ctx, resident.UserID, cnst.RoleResident, nil, &condoID)
	if err != nil {
		if errorx.IsCategory(err, errorx.CategoryNotFound) {
			return nil
		}
		return err
	}
	if !grant.IsActive {
		return nil
	}
	grant.IsActive = false
	return m.db.UpdateUserRole(ctx, grant)
}

// UpdateParams carries a partial resident update. Nil fields are untouched.
type UpdateParams struct {
	IsOwner    *bool
	IsActive   *bool
	MovedInAt  *time.Time
	MovedOutAt *time.Time
	ActorID    uint
}

// Update applies partial changes to a resident row under the same
// owner-uniqueness and company-admin-only-for-ownership rules as creation.
func (m *Manager) Update(ctx context.Context, residentID uint, p UpdateParams) (*database.Resident, error) {
	var updated *database.Resident
	err := m.db.Transaction(ctx, func(ctx context.Context) error {
		resident, err := m.db.GetResident(ctx, residentID)
		if err != nil {
			return err
		}
		unit, err := m.db.GetUnit(ctx, resident.UnitID)
		if err != nil {
			return err
		}
		condo, err := m.db.GetCondo(ctx, unit.CondoID)
		if err != nil {
			return err
		}

		if p.IsOwner != nil && *p.IsOwner != resident.IsOwner {
			ok, err := m.evaluator.HasCompanyRole(ctx, p.ActorID, condo.CompanyID, cnst.RoleCompanyAdmin)
			if err != nil {
				return err
			}
			if !ok {
				return errorx.ErrForbidden.WithMessage("changing ownership requires a company-level role")
			}
			if *p.IsOwner {
				if other, err := m.db.GetActiveOwnerForUpdate(ctx, resident.UnitID); err == nil && other.ID != resident.ID {
					return errorx.ErrConflict.WithMessage("unit already has an active owner")
				} else if err != nil && !errorx.IsCategory(err, errorx.CategoryNotFound) {
					return err
				}
			}
			resident.IsOwner = *p.IsOwner
		}

		if p.MovedInAt != nil {
			resident.MovedInAt = *p.MovedInAt
		}
		if p.MovedOutAt != nil {
			resident.MovedOutAt = p.MovedOutAt
		}
		if err := validateMoveDates(resident.MovedInAt, resident.MovedOutAt); err != nil {
			return err
		}

		if p.IsActive != nil && *p.IsActive != resident.IsActive {
			if *p.IsActive {
				// Reactivation must not create a second active residency.
				if _, err := m.db.GetActiveResidentForUpdate(ctx, resident.UserID, resident.UnitID); err == nil {
					return errorx.ErrConflict.WithMessage("user is already an active resident of this unit")
				} else if !errorx.IsCategory(err, errorx.CategoryNotFound) {
					return err
				}
				resident.IsActive = true
				resident.MovedOutAt = nil
				if err := m.ensureResidentGrant(ctx, resident.UserID, condo.ID); err != nil {
					return err
				}
			} else {
				now := time.Now()
				resident.IsActive = false
				resident.MovedOutAt = &now
				if err := m.retireGrantIfLastResidency(ctx, resident, condo.ID); err != nil {
					return err
				}
			}
		}

		if err := m.db.UpdateResident(ctx, resident); err != nil {
			if database.IsDuplicateKey(err) {
				return errorx.ErrConflict.WithMessage("user is already an active resident of this unit")
			}
			return err
		}
		updated = resident
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete retires the residency if still active, then soft-deletes the row.
func (m *Manager) Delete(ctx context.Context, residentID uint) error {
	return m.db.Transaction(ctx, func(ctx context.Context) error {
		resident, err := m.db.GetResident(ctx, residentID)
		if err != nil {
			return err
		}
		if resident.IsActive {
			unit, err := m.db.GetUnit(ctx, resident.UnitID)
			if err != nil {
				return err
			}
			now := time.Now()
			resident.IsActive = false
			resident.MovedOutAt = &now
			if err := m.db.UpdateResident(ctx, resident); err != nil {
				return err
			}
			if err := m.retireGrantIfLastResidency(ctx, resident, unit.CondoID); err != nil {
				return err
			}
		}
		return m.db.DeleteResident(ctx, residentID)
	})
}

// ListByUnit returns the unit's resident rows, active and historical.
func (m *Manager) ListByUnit(ctx context.Context, unitID uint) ([]*database.Resident, error) {
	if _, err := m.db.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	return m.db.ListResidentsByUnit(ctx, unitID)
}

// ListUnitsByUser returns the units the user actively occupies.
func (m *Manager) ListUnitsByUser(ctx context.Context, userID uint) ([]*database.Unit, error) {
	return m.db.ListUnitsByUser(ctx, userID)
}

// validateMoveDates enforces moved_in < moved_out when both are set; dates
// may not be in the future or before the year 1900.
func validateMoveDates(movedIn time.Time, movedOut *time.Time) error {
	now := time.Now()
	if movedIn.Before(earliestMoveDate) {
		return errorx.ErrInvalidInput.WithMessage("moved_in_at before year 1900")
	}
	if movedIn.After(now) {
		return errorx.ErrInvalidInput.WithMessage("moved_in_at in the future")
	}
	if movedOut != nil {
		if movedOut.After(now) {
			return errorx.ErrInvalidInput.WithMessage("moved_out_at in the future")
		}
		if !movedIn.Before(*movedOut) {
			return errorx.ErrInvalidInput.WithMessage("moved_in_at must precede moved_out_at")
		}
	}
	return nil
}
