package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/dto"
	"github.com/condoflow/condoflow/internal/common/errorx"
)

// GrantRole handles assigning a scoped role to a user.
//
// Global grants require a superadmin; scoped grants require a company-level
// role over the target company. A condo-scoped grant resolves its owning
// company for that check.
func (h *Handler) GrantRole(c *gin.Context) {
	var req dto.GrantRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		h.respondError(c, errorx.ErrInvalidInput.WithMessage("unknown role %q", req.Role))
		return
	}
	if req.CompanyID != nil && req.CondoID != nil {
		h.respondError(c, errorx.ErrInvalidInput.WithMessage("a grant targets exactly one scope level"))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetUser(ctx, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	switch {
	case req.CondoID != nil:
		condo, err := h.db.GetCondo(ctx, *req.CondoID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		ok, err := h.evaluator.HasCompanyRole(ctx, actorID, condo.CompanyID, cnst.RoleCompanyAdmin)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !ok {
			h.respondError(c, errorx.ErrForbidden)
			return
		}
	case req.CompanyID != nil:
		if _, err := h.db.GetCompany(ctx, *req.CompanyID); err != nil {
			h.respondError(c, err)
			return
		}
		ok, err := h.evaluator.HasCompanyRole(ctx, actorID, *req.CompanyID, cnst.RoleCompanyAdmin)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !ok {
			h.respondError(c, errorx.ErrForbidden)
			return
		}
	default:
		ok, err := h.evaluator.IsSuperAdmin(ctx, actorID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !ok {
			h.respondError(c, errorx.ErrForbidden)
			return
		}
	}

	// Reactivate an existing grant at the same scope instead of duplicating it
	existing, err := h.db.FindUserRole(ctx, req.UserID, req.Role, req.CompanyID, req.CondoID)
	if err == nil {
		if !existing.IsActive {
			existing.IsActive = true
			if err := h.db.UpdateUserRole(ctx, existing); err != nil {
				h.respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errorx.IsCategory(err, errorx.CategoryNotFound) {
		h.respondError(c, err)
		return
	}

	grant := &database.UserRole{
		UserID:    req.UserID,
		Role:      req.Role,
		CompanyID: req.CompanyID,
		CondoID:   req.CondoID,
		IsActive:  true,
	}
	if err := h.db.CreateUserRole(ctx, grant); err != nil {
		if database.IsDuplicateKey(err) {
			h.respondError(c, errorx.ErrConflict.WithMessage("grant already exists"))
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// RevokeRole handles deactivating a scoped role grant
func (h *Handler) RevokeRole(c *gin.Context) {
	var req dto.GrantRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	actorID, _ := currentUserID(c)

	grant, err := h.db.FindUserRole(ctx, req.UserID, req.Role, req.CompanyID, req.CondoID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var companyID *uint
	switch {
	case grant.CondoID != nil:
		condo, err := h.db.GetCondo(ctx, *grant.CondoID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		companyID = &condo.CompanyID
	case grant.CompanyID != nil:
		companyID = grant.CompanyID
	}

	if companyID != nil {
		ok, err := h.evaluator.HasCompanyRole(ctx, actorID, *companyID, cnst.RoleCompanyAdmin)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !ok {
			h.respondError(c, errorx.ErrForbidden)
			return
		}
	} else {
		ok, err := h.evaluator.IsSuperAdmin(ctx, actorID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !ok {
			h.respondError(c, errorx.ErrForbidden)
			return
		}
	}

	if grant.IsActive {
		grant.IsActive = false
		if err := h.db.UpdateUserRole(ctx, grant); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "role revoked"})
}
