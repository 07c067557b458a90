package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/dto"
	"github.com/condoflow/condoflow/internal/common/errorx"
)

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// CreateCompany handles company creation; platform operators only.
func (h *Handler) CreateCompany(c *gin.Context) {
	userID, _ := currentUserID(c)
	ok, err := h.evaluator.IsSuperAdmin(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		h.respondError(c, errorx.ErrForbidden)
		return
	}

	var req dto.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := &database.Company{Name: req.Name, IsActive: true}
	if err := h.db.CreateCompany(c.Request.Context(), company); err != nil {
		if database.IsDuplicateKey(err) {
			h.respondError(c, errorx.ErrConflict.WithMessage("company name already exists"))
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ListCompanies handles listing all companies; platform operators only.
func (h *Handler) ListCompanies(c *gin.Context) {
	userID, _ := currentUserID(c)
	ok, err := h.evaluator.IsSuperAdmin(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		h.respondError(c, errorx.ErrForbidden)
		return
	}

	companies, err := h.db.ListCompanies(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

// GetCompany handles fetching one company
func (h *Handler) GetCompany(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	company, err := h.db.GetCompany(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CompanyScope(id)) {
		return
	}
	c.JSON(http.StatusOK, company)
}

// UpdateCompany handles company updates
func (h *Handler) UpdateCompany(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	company, err := h.db.GetCompany(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CompanyScope(id), cnst.RoleCompanyAdmin) {
		return
	}

	var req dto.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		company.Name = req.Name
	}
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}
	if err := h.db.UpdateCompany(c.Request.Context(), company); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// DeleteCompany handles company soft-deletion; refused while condos remain.
func (h *Handler) DeleteCompany(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID, _ := currentUserID(c)
	isSuper, err := h.evaluator.IsSuperAdmin(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !isSuper {
		h.respondError(c, errorx.ErrForbidden)
		return
	}

	if err := h.db.DeleteCompany(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "company deleted"})
}
