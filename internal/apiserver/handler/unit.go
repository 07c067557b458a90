package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/dto"
)

// CreateUnit handles unit creation inside a condo
func (h *Handler) CreateUnit(c *gin.Context) {
	var req dto.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.db.GetCondo(c.Request.Context(), req.CondoID); err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(req.CondoID), cnst.AdminRoles...) {
		return
	}

	unit := &database.Unit{
		CondoID: req.CondoID,
		Number:  req.Number,
		Floor:   req.Floor,
		Area:    req.Area,
	}
	if err := h.db.CreateUnit(c.Request.Context(), unit); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

// ListUnits handles listing a condo's units
func (h *Handler) ListUnits(c *gin.Context) {
	condoID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.db.GetCondo(c.Request.Context(), condoID); err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(condoID)) {
		return
	}

	units, err := h.db.ListUnitsByCondo(c.Request.Context(), condoID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}

// GetUnit handles fetching one unit; residents may read their own unit.
func (h *Handler) GetUnit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	unit, err := h.db.GetUnit(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.UnitScope(id)) {
		return
	}
	c.JSON(http.StatusOK, unit)
}

// UpdateUnit handles unit updates
func (h *Handler) UpdateUnit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	unit, err := h.db.GetUnit(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	var req dto.UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Number != "" {
		unit.Number = req.Number
	}
	if req.Floor != nil {
		unit.Floor = *req.Floor
	}
	if req.Area > 0 {
		unit.Area = req.Area
	}
	if err := h.db.UpdateUnit(c.Request.Context(), unit); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// DeleteUnit handles unit soft-deletion
func (h *Handler) DeleteUnit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	unit, err := h.db.GetUnit(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	if !h.requireAccess(c, userID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	if err := h.db.DeleteUnit(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unit deleted"})
}
