package resident

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/config"
	"github.com/condoflow/condoflow/internal/common/errorx"
	"github.com/condoflow/condoflow/internal/notify"
)

// captureNotifier collects dispatched events so tests can assert on them.
type captureNotifier struct {
	events chan notify.Event
}

func (n *captureNotifier) Notify(_ context.Context, e notify.Event) { n.events <- e }

type testEnv struct {
	db      database.Database
	eval    *access.Evaluator
	manager *Manager
	events  chan notify.Event

	company *database.Company
	condo   *database.Condo
	unit1   *database.Unit
	unit2   *database.Unit

	companyAdmin *database.User
	condoAdmin   *database.User
	tenant       *database.User
	tenant2      *database.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	eval := access.NewEvaluator(db, logger)
	notifier := &captureNotifier{events: make(chan notify.Event, 64)}
	env := &testEnv{
		db:      db,
		eval:    eval,
		manager: NewManager(db, eval, notifier, logger),
		events:  notifier.events,
	}

	env.company = &database.Company{Name: "Alpha Estates", IsActive: true}
	require.NoError(t, db.CreateCompany(ctx, env.company))
	env.condo = &database.Condo{CompanyID: env.company.ID, Name: "North Tower", IsActive: true}
	require.NoError(t, db.CreateCondo(ctx, env.condo))
	env.unit1 = &database.Unit{CondoID: env.condo.ID, Number: "101"}
	require.NoError(t, db.CreateUnit(ctx, env.unit1))
	env.unit2 = &database.Unit{CondoID: env.condo.ID, Number: "102"}
	require.NoError(t, db.CreateUnit(ctx, env.unit2))

	env.companyAdmin = env.newUser(t, "company-admin")
	require.NoError(t, db.CreateUserRole(ctx, &database.UserRole{
		UserID: env.companyAdmin.ID, Role: cnst.RoleCompanyAdmin, CompanyID: &env.company.ID, IsActive: true,
	}))
	env.condoAdmin = env.newUser(t, "condo-admin")
	require.NoError(t, db.CreateUserRole(ctx, &database.UserRole{
		UserID: env.condoAdmin.ID, Role: cnst.RoleCondoAdmin, CondoID: &env.condo.ID, IsActive: true,
	}))
	env.tenant = env.newUser(t, "tenant")
	env.tenant2 = env.newUser(t, "tenant2")
	return env
}

func (e *testEnv) newUser(t *testing.T, name string) *database.User {
	t.Helper()
	u := &database.User{Username: name, Password: "hash", IsActive: true}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) residentGrant(t *testing.T, userID uint) *database.UserRole {
	t.Helper()
	g, err := e.db.FindUserRole(context.Background(), userID, cnst.RoleResident, nil, &e.condo.ID)
	require.NoError(t, err)
	return g
}

func TestCreate_GrantsResidentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.IsActive)
	assert.False(t, res.IsOwner)
	assert.False(t, res.MovedInAt.IsZero())

	g := env.residentGrant(t, env.tenant.ID)
	assert.True(t, g.IsActive)
}

func TestCreate_RejectsSecondActiveResidency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	_, err = env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrConflict)
}

func TestCreate_OwnershipNeedsCompanyRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A condo admin manages residents but cannot assign ownership
	_, err := env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, IsOwner: true, ActorID: env.condoAdmin.ID,
	})
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	res, err := env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, IsOwner: true, ActorID: env.companyAdmin.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.IsOwner)

	// The unit already has an active owner
	_, err = env.manager.Create(ctx, CreateParams{
		UserID: env.tenant2.ID, UnitID: env.unit1.ID, IsOwner: true, ActorID: env.companyAdmin.ID,
	})
	assert.ErrorIs(t, err, errorx.ErrConflict)
}

func TestCreate_ValidatesMoveDates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID,
		MovedInAt: time.Now().Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, errorx.ErrInvalidInput)

	_, err = env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID,
		MovedInAt: time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, errorx.ErrInvalidInput)
}

func TestCreate_UnknownUserOrUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.Create(ctx, CreateParams{UserID: 99999, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	_, err = env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: 99999, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestCreate_ConcurrentOwnersOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []uint{env.tenant.ID, env.tenant2.ID} {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := env.manager.Create(ctx, CreateParams{
				UserID: userID, UnitID: env.unit1.ID, IsOwner: true, ActorID: env.companyAdmin.ID,
			})
			errs <- err
		}(userID)
	}
	wg.Wait()
	close(errs)

	var conflicts, successes int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errorx.IsCategory(err, errorx.CategoryConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	owner, err := env.db.GetActiveOwnerForUpdate(ctx, env.unit1.ID)
	require.NoError(t, err)
	assert.True(t, owner.IsOwner)
}

func TestMoveOut_RetiresResidencyAndGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	out, err := env.manager.MoveOut(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	require.NotNil(t, out.MovedOutAt)

	g := env.residentGrant(t, env.tenant.ID)
	assert.False(t, g.IsActive)

	// Moving out twice is a conflict, not a silent no-op
	_, err = env.manager.MoveOut(ctx, res.ID)
	assert.ErrorIs(t, err, errorx.ErrConflict)
}

func TestMoveOut_GrantSurvivesOtherResidencyInCondo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res1, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	res2, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit2.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	_, err = env.manager.MoveOut(ctx, res1.ID)
	require.NoError(t, err)
	assert.True(t, env.residentGrant(t, env.tenant.ID).IsActive,
		"grant must survive while another residency in the condo is active")

	_, err = env.manager.MoveOut(ctx, res2.ID)
	require.NoError(t, err)
	assert.False(t, env.residentGrant(t, env.tenant.ID).IsActive)
}

func TestMoveOutThenRecreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	_, err = env.manager.MoveOut(ctx, res.ID)
	require.NoError(t, err)

	again, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	assert.NotEqual(t, res.ID, again.ID)
	assert.True(t, env.residentGrant(t, env.tenant.ID).IsActive)

	// Both stints stay in the unit's history
	rows, err := env.manager.ListByUnit(ctx, env.unit1.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestUpdate_OwnershipTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.manager.Create(ctx, CreateParams{
		UserID: env.tenant.ID, UnitID: env.unit1.ID, IsOwner: true, ActorID: env.companyAdmin.ID,
	})
	require.NoError(t, err)
	co, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant2.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	isOwner := true
	// Promoting the co-resident while an owner exists is a conflict
	_, err = env.manager.Update(ctx, co.ID, UpdateParams{IsOwner: &isOwner, ActorID: env.companyAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrConflict)

	// A condo admin cannot touch ownership at all
	notOwner := false
	_, err = env.manager.Update(ctx, owner.ID, UpdateParams{IsOwner: &notOwner, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	// Demote then promote transfers ownership
	_, err = env.manager.Update(ctx, owner.ID, UpdateParams{IsOwner: &notOwner, ActorID: env.companyAdmin.ID})
	require.NoError(t, err)
	updated, err := env.manager.Update(ctx, co.ID, UpdateParams{IsOwner: &isOwner, ActorID: env.companyAdmin.ID})
	require.NoError(t, err)
	assert.True(t, updated.IsOwner)
}

func TestUpdate_ReactivationGuardsUniqueness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	_, err = env.manager.MoveOut(ctx, res.ID)
	require.NoError(t, err)

	// A fresh active stint exists now
	_, err = env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	active := true
	_, err = env.manager.Update(ctx, res.ID, UpdateParams{IsActive: &active, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrConflict)
}

func TestUpdate_DeactivationRetiresGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	inactive := false
	updated, err := env.manager.Update(ctx, res.ID, UpdateParams{IsActive: &inactive, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.NotNil(t, updated.MovedOutAt)
	assert.False(t, env.residentGrant(t, env.tenant.ID).IsActive)
}

func TestUpdate_DateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	// moved_out before moved_in
	bad := res.MovedInAt.Add(-time.Hour)
	_, err = env.manager.Update(ctx, res.ID, UpdateParams{MovedOutAt: &bad, ActorID: env.condoAdmin.ID})
	assert.ErrorIs(t, err, errorx.ErrInvalidInput)
}

func TestDelete_RetiresThenRemoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	require.NoError(t, env.manager.Delete(ctx, res.ID))
	assert.False(t, env.residentGrant(t, env.tenant.ID).IsActive)

	_, err = env.db.GetResident(ctx, res.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
	assert.ErrorIs(t, env.manager.Delete(ctx, res.ID), errorx.ErrNotFound)
}

func TestListUnitsByUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res1, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	_, err = env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit2.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	units, err := env.manager.ListUnitsByUser(ctx, env.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	// Only active residencies count
	_, err = env.manager.MoveOut(ctx, res1.ID)
	require.NoError(t, err)
	units, err = env.manager.ListUnitsByUser(ctx, env.tenant.ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, env.unit2.ID, units[0].ID)
}

func TestCreate_ResidencyConfinedToOwnUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)

	ok, err := env.eval.CanAccess(ctx, env.tenant.ID, access.UnitScope(env.unit1.ID), cnst.RoleResident)
	require.NoError(t, err)
	assert.True(t, ok)

	// The condo-scoped grant issued above must not open sibling units
	ok, err = env.eval.CanAccess(ctx, env.tenant.ID, access.UnitScope(env.unit2.ID), cnst.RoleResident)
	require.NoError(t, err)
	assert.False(t, ok, "resident of unit 101 must not reach unit 102")

	ok, err = env.eval.CanAccess(ctx, env.tenant.ID, access.CondoScope(env.condo.ID))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreate_EventHeldUntilCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A failure downstream of Create in the same transaction rolls the
	// residency back; nothing may have been announced.
	err := env.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID}); err != nil {
			return err
		}
		return errorx.ErrInternal.WithMessage("downstream failure")
	})
	require.Error(t, err)
	_, err = env.db.GetActiveResident(ctx, env.tenant.ID, env.unit1.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
	select {
	case e := <-env.events:
		t.Fatalf("unexpected %q event after rollback", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	// A standalone create commits its own transaction and notifies
	_, err = env.manager.Create(ctx, CreateParams{UserID: env.tenant.ID, UnitID: env.unit1.ID, ActorID: env.condoAdmin.ID})
	require.NoError(t, err)
	select {
	case e := <-env.events:
		assert.Equal(t, notify.EventResidentAdded, e.Type)
		assert.Equal(t, env.unit1.ID, e.UnitID)
	case <-time.After(time.Second):
		t.Fatal("expected a resident added event")
	}
}
