package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/config"
	"github.com/condoflow/condoflow/internal/common/errorx"
)

func newTestStore(t *testing.T) Database {
	t.Helper()
	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"}
	db, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedHierarchy(t *testing.T, db Database) (*Company, *Condo, *Unit) {
	t.Helper()
	ctx := context.Background()
	company := &Company{Name: "Acme Properties " + uuid.NewString(), IsActive: true}
	require.NoError(t, db.CreateCompany(ctx, company))
	condo := &Condo{CompanyID: company.ID, Name: "Sea View", IsActive: true}
	require.NoError(t, db.CreateCondo(ctx, condo))
	unit := &Unit{CondoID: condo.ID, Number: "101", Floor: 1}
	require.NoError(t, db.CreateUnit(ctx, unit))
	return company, condo, unit
}

func TestStore_Users(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	u := &User{Username: "alice", Email: "alice@example.com", Password: "hash", IsActive: true}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.Email = "new@example.com"
	require.NoError(t, db.UpdateUser(ctx, got))
	again, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", again.Email)

	// Username is unique
	dup := &User{Username: "alice", Password: "hash"}
	err = db.CreateUser(ctx, dup)
	assert.True(t, IsDuplicateKey(err))

	_, err = db.GetUser(ctx, 99999)
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_TenancyHierarchy(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	company, condo, unit := seedHierarchy(t, db)

	gotCondo, err := db.GetCondo(ctx, condo.ID)
	require.NoError(t, err)
	assert.Equal(t, company.ID, gotCondo.CompanyID)

	condos, err := db.ListCondosByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, condos, 1)

	units, err := db.ListUnitsByCondo(ctx, condo.ID)
	require.NoError(t, err)
	assert.Len(t, units, 1)
	assert.Equal(t, "101", units[0].Number)

	// A company with condos cannot be deleted
	err = db.DeleteCompany(ctx, company.ID)
	assert.ErrorIs(t, err, errorx.ErrConflict)

	require.NoError(t, db.DeleteUnit(ctx, unit.ID))
	require.NoError(t, db.DeleteCondo(ctx, condo.ID))
	require.NoError(t, db.DeleteCompany(ctx, company.ID))

	_, err = db.GetCompany(ctx, company.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestStore_RoleGrants(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	company, condo, _ := seedHierarchy(t, db)
	u := &User{Username: "bob", Password: "hash", IsActive: true}
	require.NoError(t, db.CreateUser(ctx, u))

	global := &UserRole{UserID: u.ID, Role: cnst.RoleSuperAdmin, IsActive: true}
	require.NoError(t, db.CreateUserRole(ctx, global))
	scoped := &UserRole{UserID: u.ID, Role: cnst.RoleCondoAdmin, CondoID: &condo.ID, IsActive: true}
	require.NoError(t, db.CreateUserRole(ctx, scoped))

	// Exact scope matching: nil means the column must be NULL
	found, err := db.FindUserRole(ctx, u.ID, cnst.RoleSuperAdmin, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, global.ID, found.ID)

	_, err = db.FindUserRole(ctx, u.ID, cnst.RoleCondoAdmin, nil, nil)
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	found, err = db.FindUserRole(ctx, u.ID, cnst.RoleCondoAdmin, nil, &condo.ID)
	require.NoError(t, err)
	assert.Equal(t, scoped.ID, found.ID)

	_, err = db.FindUserRole(ctx, u.ID, cnst.RoleCompanyAdmin, &company.ID, nil)
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	// Inactive grants stay findable but drop out of the active list
	scoped.IsActive = false
	require.NoError(t, db.UpdateUserRole(ctx, scoped))
	active, err := db.ListActiveUserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, cnst.RoleSuperAdmin, active[0].Role)
}

func TestStore_ResidentConstraints(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, condo, unit := seedHierarchy(t, db)
	unit2 := &Unit{CondoID: condo.ID, Number: "102", Floor: 1}
	require.NoError(t, db.CreateUnit(ctx, unit2))

	u := &User{Username: "carol", Password: "hash", IsActive: true}
	require.NoError(t, db.CreateUser(ctx, u))
	v := &User{Username: "dave", Password: "hash", IsActive: true}
	require.NoError(t, db.CreateUser(ctx, v))

	r1 := &Resident{UserID: u.ID, UnitID: unit.ID, IsOwner: true, IsActive: true, MovedInAt: time.Now()}
	require.NoError(t, db.CreateResident(ctx, r1))

	// One active residency per (user, unit)
	err := db.CreateResident(ctx, &Resident{UserID: u.ID, UnitID: unit.ID, IsActive: true, MovedInAt: time.Now()})
	assert.True(t, IsDuplicateKey(err), "expected duplicate key, got %v", err)

	// One active owner per unit
	err = db.CreateResident(ctx, &Resident{UserID: v.ID, UnitID: unit.ID, IsOwner: true, IsActive: true, MovedInAt: time.Now()})
	assert.True(t, IsDuplicateKey(err), "expected duplicate key, got %v", err)

	// A non-owner co-resident is fine
	r2 := &Resident{UserID: v.ID, UnitID: unit.ID, IsActive: true, MovedInAt: time.Now()}
	require.NoError(t, db.CreateResident(ctx, r2))

	got, err := db.GetActiveResident(ctx, u.ID, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, got.ID)

	owner, err := db.GetActiveOwnerForUpdate(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, owner.ID)

	// Retiring the row frees both constraints
	now := time.Now()
	r1.IsActive = false
	r1.MovedOutAt = &now
	require.NoError(t, db.UpdateResident(ctx, r1))
	_, err = db.GetActiveResident(ctx, u.ID, unit.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
	require.NoError(t, db.CreateResident(ctx, &Resident{UserID: u.ID, UnitID: unit.ID, IsOwner: true, IsActive: true, MovedInAt: time.Now()}))

	// History kept per unit
	rows, err := db.ListResidentsByUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// v lives in units 101 and 102 of the same condo
	require.NoError(t, db.CreateResident(ctx, &Resident{UserID: v.ID, UnitID: unit2.ID, IsActive: true, MovedInAt: time.Now()}))
	count, err := db.CountOtherActiveResidencies(ctx, v.ID, condo.ID, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	units, err := db.ListUnitsByUser(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	assert.ErrorIs(t, db.DeleteResident(ctx, 99999), errorx.ErrNotFound)
}

func TestStore_Invites(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, _, unit := seedHierarchy(t, db)

	inv := &Invite{
		ID:        uuid.NewString(),
		UnitID:    unit.ID,
		Token:     "tok-" + uuid.NewString(),
		Email:     "new@example.com",
		Role:      cnst.RoleResident,
		ExpiresAt: time.Now().Add(time.Hour),
		IsActive:  true,
		CreatedBy: 1,
	}
	require.NoError(t, db.CreateInvite(ctx, inv))

	got, err := db.GetInviteByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = db.GetInviteByToken(ctx, "missing")
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	got.UsedCount = 1
	got.IsActive = false
	require.NoError(t, db.UpdateInvite(ctx, got))

	list, err := db.ListInvitesByUnit(ctx, unit.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].UsedCount)
	assert.False(t, list[0].IsActive)

	require.NoError(t, db.DeleteInvite(ctx, inv.ID))
	_, err = db.GetInvite(ctx, inv.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestStore_TransactionRollback(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(ctx context.Context) error {
		if err := db.CreateUser(ctx, &User{Username: "ghost", Password: "hash"}); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)

	_, err = db.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestStore_TransactionNestingReusesAmbient(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(ctx context.Context) error {
		if err := db.CreateUser(ctx, &User{Username: "outer", Password: "hash"}); err != nil {
			return err
		}
		// The inner Transaction joins the ambient one, so a later failure
		// rolls back both writes.
		if err := db.Transaction(ctx, func(ctx context.Context) error {
			return db.CreateUser(ctx, &User{Username: "inner", Password: "hash"})
		}); err != nil {
			return err
		}
		return errorx.ErrConflict
	})
	assert.ErrorIs(t, err, errorx.ErrConflict)

	_, err = db.GetUserByUsername(ctx, "outer")
	assert.ErrorIs(t, err, errorx.ErrNotFound)
	_, err = db.GetUserByUsername(ctx, "inner")
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestStore_RoleGrantScopeUniqueness(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	company, condo, _ := seedHierarchy(t, db)
	u := &User{Username: "carol", Password: "hash", IsActive: true}
	require.NoError(t, db.CreateUser(ctx, u))

	// One grant row per (user, role, scope); the partial indexes must catch
	// a duplicate insert for every scope shape despite the NULL columns
	require.NoError(t, db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleResident, CondoID: &condo.ID, IsActive: true}))
	err := db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleResident, CondoID: &condo.ID, IsActive: true})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err), "duplicate condo-scoped grant must hit the unique index")

	require.NoError(t, db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleEmployee, CompanyID: &company.ID, IsActive: true}))
	err = db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleEmployee, CompanyID: &company.ID, IsActive: true})
	assert.True(t, IsDuplicateKey(err), "duplicate company-scoped grant must hit the unique index")

	require.NoError(t, db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleSuperAdmin, IsActive: true}))
	err = db.CreateUserRole(ctx, &UserRole{UserID: u.ID, Role: cnst.RoleSuperAdmin, IsActive: true})
	assert.True(t, IsDuplicateKey(err), "duplicate global grant must hit the unique index")

	// The same role at a different scope stays a distinct grant
	other := &Condo{CompanyID: company.ID, Name: "South Tower", IsActive: true}
	require.NoError(t, db.CreateCondo(ctx, other))
	require.NoError(t, db.CreateUserRole(ctx, &UserRole{
		UserID: u.ID, Role: cnst.RoleResident, CondoID: &other.ID, IsActive: true,
	}))
}
