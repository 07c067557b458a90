package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/dto"
)

// CreateCondo handles condo creation under a company
func (h *Handler) CreateCondo(c *gin.Context) {
	var req dto.CreateCondoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.db.GetCompany(c.Request.Context(), req.CompanyID); err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CompanyScope(req.CompanyID), cnst.RoleCompanyAdmin) {
		return
	}

	condo := &database.Condo{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Address:   req.Address,
		IsActive:  true,
	}
	if err := h.db.CreateCondo(c.Request.Context(), condo); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, condo)
}

// ListCondos handles listing a company's condos
func (h *Handler) ListCondos(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.db.GetCompany(c.Request.Context(), companyID); err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CompanyScope(companyID)) {
		return
	}

	condos, err := h.db.ListCondosByCompany(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, condos)
}

// GetCondo handles fetching one condo
func (h *Handler) GetCondo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	condo, err := h.db.GetCondo(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(id)) {
		return
	}
	c.JSON(http.StatusOK, condo)
}

// UpdateCondo handles condo updates
func (h *Handler) UpdateCondo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	condo, err := h.db.GetCondo(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(id), cnst.AdminRoles...) {
		return
	}

	var req dto.UpdateCondoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		condo.Name = req.Name
	}
	if req.Address != "" {
		condo.Address = req.Address
	}
	if req.IsActive != nil {
		condo.IsActive = *req.IsActive
	}
	if err := h.db.UpdateCondo(c.Request.Context(), condo); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, condo)
}

// DeleteCondo handles condo soft-deletion
func (h *Handler) DeleteCondo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.db.GetCondo(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(id), cnst.RoleCompanyAdmin) {
		return
	}

	if err := h.db.DeleteCondo(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "condo deleted"})
}
