package database

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/config"
	"github.com/condoflow/condoflow/internal/common/errorx"
)

// InitSuperAdmin seeds the configured platform operator account and its
// global superadmin grant if they don't exist yet.
func InitSuperAdmin(db Database, cfg *config.SuperAdminConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	ctx := context.Background()

	user, err := db.GetUserByUsername(ctx, cfg.Username)
	switch {
	case err == nil:
		// Account already exists
	case errorx.IsCategory(err, errorx.CategoryNotFound):
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		user = &User{
			Username:  cfg.Username,
			Password:  string(hashed),
			IsActive:  true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.CreateUser(ctx, user); err != nil {
			// Lost a race against another instance seeding the same account
			if !IsDuplicateKey(err) {
				return err
			}
			if user, err = db.GetUserByUsername(ctx, cfg.Username); err != nil {
				return err
			}
		}
	default:
		return err
	}

	_, err = db.FindUserRole(ctx, user.ID, cnst.RoleSuperAdmin, nil, nil)
	if err == nil {
		return nil
	}
	if !errorx.IsCategory(err, errorx.CategoryNotFound) {
		return err
	}

	grant := &UserRole{
		UserID:    user.ID,
		Role:      cnst.RoleSuperAdmin,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.CreateUserRole(ctx, grant); err != nil && !IsDuplicateKey(err) {
		return err
	}
	return nil
}
