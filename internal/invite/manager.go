package invite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/errorx"
	"github.com/condoflow/condoflow/internal/notify"
	"github.com/condoflow/condoflow/internal/resident"
)

// Manager drives the invite lifecycle: issuance, public validation and
// atomic redemption into a residency plus role grant. Redemption locks the
// invite row so concurrent accepts of the same token serialize and the
// max-use bound holds across service instances.
type Manager struct {
	db         database.Database
	evaluator  *access.Evaluator
	residents  *resident.Manager
	notifier   notify.Notifier
	logger     *zap.Logger
	defaultTTL time.Duration
	maxTTL     time.Duration
}

// NewManager creates an invite lifecycle manager
func NewManager(
	db database.Database,
	evaluator *access.Evaluator,
	residents *resident.Manager,
	notifier notify.Notifier,
	logger *zap.Logger,
	defaultTTL, maxTTL time.Duration,
) *Manager {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	if maxTTL <= 0 {
		maxTTL = 90 * 24 * time.Hour
	}
	return &Manager{
		db:         db,
		evaluator:  evaluator,
		residents:  residents,
		notifier:   notifier,
		logger:     logger.Named("invite"),
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
	}
}

// CreateParams carries the inputs for Create.
type CreateParams struct {
	UnitID    uint
	Email     string
	Phone     string
	Role      cnst.Role
	TTL       time.Duration
	MaxUses   *int
	CreatedBy uint
}

// Create issues a new invite targeting a unit. The caller must hold an
// administrative role over the unit's condo.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*database.Invite, error) {
	if p.Email == "" && p.Phone == "" {
		return nil, errorx.ErrInvalidInput.WithMessage("at least one of email or phone is required")
	}
	if p.MaxUses != nil && *p.MaxUses <= 0 {
		return nil, errorx.ErrInvalidInput.WithMessage("max_uses must be positive")
	}
	if p.TTL < 0 || p.TTL > m.maxTTL {
		return nil, errorx.ErrInvalidInput.WithMessage("ttl out of range")
	}
	if p.TTL == 0 {
		p.TTL = m.defaultTTL
	}
	if p.Role == "" {
		p.Role = cnst.RoleResident
	}
	// Redemption provisions a residency, so that is the only role an invite
	// can carry. Staff roles are granted explicitly, never through a token.
	if p.Role != cnst.RoleResident {
		return nil, errorx.ErrInvalidInput.WithMessage("invites can only provision the %q role", cnst.RoleResident)
	}

	unit, err := m.db.GetUnit(ctx, p.UnitID)
	if err != nil {
		return nil, err
	}
	ok, err := m.evaluator.CanAccess(ctx, p.CreatedBy, access.CondoScope(unit.CondoID), cnst.AdminRoles...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.ErrForbidden.WithMessage("creating invites requires an administrative role over the condo")
	}

	token, err := generateToken()
	if err != nil {
		return nil, errorx.Internal(err)
	}

	inv := &database.Invite{
		ID:        uuid.NewString(),
		UnitID:    p.UnitID,
		Token:     token,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      p.Role,
		ExpiresAt: time.Now().Add(p.TTL),
		MaxUses:   p.MaxUses,
		IsActive:  true,
		CreatedBy: p.CreatedBy,
	}
	if err := m.db.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}

	m.logger.Info("invite created",
		zap.String("invite_id", inv.ID),
		zap.Uint("unit_id", inv.UnitID),
		zap.Time("expires_at", inv.ExpiresAt))

	event := notify.NewEvent(notify.EventInviteCreated, inv.UnitID)
	event.Email = inv.Email
	event.Phone = inv.Phone
	go m.notifier.Notify(context.WithoutCancel(ctx), event)

	return inv, nil
}

// Validation is the public answer to "is this token redeemable". All failure
// causes collapse into Valid=false with no distinguishing shape, so external
// callers cannot tell unknown tokens from expired ones. The precise reason
// is logged internally.
type Validation struct {
	Valid bool `json:"valid"`
	// UnitNumber is the only preview disclosed for a valid token; resident
	// PII is never included.
	UnitNumber string `json:"unitNumber,omitempty"`
}

// Validate checks a token read-only. It never mutates and is safe to call
// any number of times.
func (m *Manager) Validate(ctx context.Context, token string) (*Validation, error) {
	if !validTokenFormat(token) {
		m.logger.Debug("invite validation failed", zap.String("reason", "malformed token"))
		return &Validation{Valid: false}, nil
	}

	inv, err := m.db.GetInviteByToken(ctx, token)
	if err != nil {
		if errorx.IsCategory(err, errorx.CategoryNotFound) {
			m.logger.Debug("invite validation failed", zap.String("reason", "unknown token"))
			return &Validation{Valid: false}, nil
		}
		return nil, err
	}

	if reason := redeemableReason(inv, time.Now()); reason != "" {
		m.logger.Debug("invite validation failed",
			zap.String("invite_id", inv.ID),
			zap.String("reason", reason))
		return &Validation{Valid: false}, nil
	}

	unit, err := m.db.GetUnit(ctx, inv.UnitID)
	if err != nil {
		return nil, err
	}
	return &Validation{Valid: true, UnitNumber: unit.Number}, nil
}

// Accept atomically redeems a token into a residency. The invite row lock
// makes concurrent accepts of the same token serialize: once the use limit
// is reached, later callers observe the incremented count and fail without
// mutation.
func (m *Manager) Accept(ctx context.Context, token string, userID uint) (*database.Resident, *database.Unit, error) {
	if !validTokenFormat(token) {
		return nil, nil, errorx.ErrInvalidInput.WithMessage("malformed invite token")
	}

	var (
		newResident *database.Resident
		unit        *database.Unit
	)
	err := m.db.Transaction(ctx, func(ctx context.Context) error {
		inv, err := m.db.GetInviteByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}
		if reason := redeemableReason(inv, time.Now()); reason != "" {
			return errorx.ErrConflict.WithMessage("invite is %s", reason)
		}

		newResident, err = m.residents.Create(ctx, resident.CreateParams{
			UserID:  userID,
			UnitID:  inv.UnitID,
			ActorID: userID,
		})
		if err != nil {
			// Double-accept by the same user surfaces the residency
			// conflict rather than silently succeeding.
			return err
		}

		inv.UsedCount++
		if inv.MaxUses != nil && inv.UsedCount >= *inv.MaxUses {
			inv.IsActive = false
		}
		if err := m.db.UpdateInvite(ctx, inv); err != nil {
			return err
		}

		unit, err = m.db.GetUnit(ctx, inv.UnitID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	m.logger.Info("invite accepted",
		zap.Uint("user_id", userID),
		zap.Uint("unit_id", unit.ID),
		zap.Uint("resident_id", newResident.ID))

	// The resident manager withholds its event inside our transaction; now
	// that the redemption is committed the new residency is announced here.
	event := notify.NewEvent(notify.EventResidentAdded, unit.ID)
	go m.notifier.Notify(context.WithoutCancel(ctx), event)

	return newResident, unit, nil
}

// Deactivate retires an invite. Already-inactive invites are left as they
// are, so the operation is idempotent.
func (m *Manager) Deactivate(ctx context.Context, inviteID string, actorID uint) error {
	inv, err := m.authorized(ctx, inviteID, actorID)
	if err != nil {
		return err
	}
	if !inv.IsActive {
		return nil
	}
	inv.IsActive = false
	return m.db.UpdateInvite(ctx, inv)
}

// Delete soft-deletes an invite.
func (m *Manager) Delete(ctx context.Context, inviteID string, actorID uint) error {
	inv, err := m.authorized(ctx, inviteID, actorID)
	if err != nil {
		return err
	}
	return m.db.DeleteInvite(ctx, inv.ID)
}

// ListByUnit returns the unit's invites for an authorized caller.
func (m *Manager) ListByUnit(ctx context.Context, unitID, actorID uint) ([]*database.Invite, error) {
	unit, err := m.db.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	ok, err := m.evaluator.CanAccess(ctx, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.ErrForbidden
	}
	return m.db.ListInvitesByUnit(ctx, unitID)
}

// Stats summarizes invite usage for a unit.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Expired     int `json:"expired"`
	Redemptions int `json:"redemptions"`
}

// StatsByUnit aggregates invite counters for an authorized caller.
func (m *Manager) StatsByUnit(ctx context.Context, unitID, actorID uint) (*Stats, error) {
	invites, err := m.ListByUnit(ctx, unitID, actorID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	stats := &Stats{Total: len(invites)}
	for _, inv := range invites {
		stats.Redemptions += inv.UsedCount
		switch {
		case now.After(inv.ExpiresAt):
			stats.Expired++
		case inv.IsActive:
			stats.Active++
		}
	}
	return stats, nil
}

// authorized loads the invite and verifies the actor administers its condo.
func (m *Manager) authorized(ctx context.Context, inviteID string, actorID uint) (*database.Invite, error) {
	inv, err := m.db.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	unit, err := m.db.GetUnit(ctx, inv.UnitID)
	if err != nil {
		return nil, err
	}
	ok, err := m.evaluator.CanAccess(ctx, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.ErrForbidden
	}
	return inv, nil
}

// redeemableReason returns "" when the invite can still be redeemed, or the
// internal reason it cannot.
func redeemableReason(inv *database.Invite, now time.Time) string {
	switch {
	case !inv.IsActive:
		return "deactivated"
	case now.After(inv.ExpiresAt):
		return "expired"
	case inv.MaxUses != nil && inv.UsedCount >= *inv.MaxUses:
		return "exhausted"
	default:
		return ""
	}
}
