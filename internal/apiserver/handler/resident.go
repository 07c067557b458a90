package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/dto"
	"github.com/condoflow/condoflow/internal/resident"
)

// adminOrResidentRoles gate unit reads: administrators of the scope chain
// plus the unit's own residents via the evaluator's self-access rule.
var adminOrResidentRoles = []cnst.Role{cnst.RoleCompanyAdmin, cnst.RoleCondoAdmin, cnst.RoleResident}

// CreateResident handles admin-initiated residency registration
func (h *Handler) CreateResident(c *gin.Context) {
	var req dto.CreateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.db.GetUnit(c.Request.Context(), req.UnitID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	if !h.requireAccess(c, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	var movedInAt time.Time
	if req.MovedInAt != nil {
		movedInAt = *req.MovedInAt
	}
	created, err := h.residents.Create(c.Request.Context(), resident.CreateParams{
		UserID:    req.UserID,
		UnitID:    req.UnitID,
		IsOwner:   req.IsOwner,
		MovedInAt: movedInAt,
		ActorID:   actorID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateResident handles partial residency updates
func (h *Handler) UpdateResident(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.db.GetResident(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unit, err := h.db.GetUnit(c.Request.Context(), res.UnitID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	if !h.requireAccess(c, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	var req dto.UpdateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.residents.Update(c.Request.Context(), id, resident.UpdateParams{
		IsOwner:    req.IsOwner,
		IsActive:   req.IsActive,
		MovedInAt:  req.MovedInAt,
		MovedOutAt: req.MovedOutAt,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// MoveOutResident handles retiring a residency
func (h *Handler) MoveOutResident(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.db.GetResident(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unit, err := h.db.GetUnit(c.Request.Context(), res.UnitID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	if !h.requireAccess(c, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	movedOut, err := h.residents.MoveOut(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movedOut)
}

// DeleteResident handles soft-deleting a residency record
func (h *Handler) DeleteResident(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.db.GetResident(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unit, err := h.db.GetUnit(c.Request.Context(), res.UnitID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	if !h.requireAccess(c, actorID, access.CondoScope(unit.CondoID), cnst.AdminRoles...) {
		return
	}

	if err := h.residents.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resident deleted"})
}

// ListResidentsByUnit handles listing a unit's residents
func (h *Handler) ListResidentsByUnit(c *gin.Context) {
	unitID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.db.GetUnit(c.Request.Context(), unitID); err != nil {
		h.respondError(c, err)
		return
	}

	actorID, _ := currentUserID(c)
	if !h.requireAccess(c, actorID, access.UnitScope(unitID), adminOrResidentRoles...) {
		return
	}

	residents, err := h.residents.ListByUnit(c.Request.Context(), unitID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, residents)
}

// ListMyUnits handles listing the caller's actively occupied units
func (h *Handler) ListMyUnits(c *gin.Context) {
	userID, _ := currentUserID(c)
	units, err := h.residents.ListUnitsByUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}
