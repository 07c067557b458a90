package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/condoflow/condoflow/internal/common/dto"
	"github.com/condoflow/condoflow/internal/common/errorx"
	"github.com/condoflow/condoflow/internal/invite"
)

// CreateInvite handles invite issuance; the manager gates on condo access.
func (h *Handler) CreateInvite(c *gin.Context) {
	var req dto.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, _ := currentUserID(c)
	inv, err := h.invites.Create(c.Request.Context(), invite.CreateParams{
		UnitID:    req.UnitID,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		MaxUses:   req.MaxUses,
		CreatedBy: actorID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// The token is disclosed exactly once, at creation, for delivery
	c.JSON(http.StatusCreated, gin.H{
		"invite": inv,
		"token":  inv.Token,
	})
}

// ValidateInvite handles public, unauthenticated token validation. All
// failure causes answer the same non-revealing shape; the per-IP budget is
// enforced by middleware and the per-token-prefix budget here.
func (h *Handler) ValidateInvite(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if !h.allowTokenProbe(c, token) {
		return
	}

	v, err := h.invites.Validate(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// AcceptInvite handles authenticated invite redemption
func (h *Handler) AcceptInvite(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.allowTokenProbe(c, req.Token) {
		return
	}

	userID, _ := currentUserID(c)
	res, unit, err := h.invites.Accept(c.Request.Context(), req.Token, userID)
	if err != nil {
		if errorx.IsCategory(err, errorx.CategoryConflict) {
			h.metrics.RecordInviteRedemption("conflict")
		} else {
			h.metrics.RecordInviteRedemption("error")
		}
		h.respondError(c, err)
		return
	}
	h.metrics.RecordInviteRedemption("ok")
	c.JSON(http.StatusOK, gin.H{
		"resident": res,
		"unit":     unit,
	})
}

// DeactivateInvite handles retiring an invite; idempotent.
func (h *Handler) DeactivateInvite(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invite id is required"})
		return
	}

	actorID, _ := currentUserID(c)
	if err := h.invites.Deactivate(c.Request.Context(), id, actorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invite deactivated"})
}

// DeleteInvite handles invite soft-deletion
func (h *Handler) DeleteInvite(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invite id is required"})
		return
	}

	actorID, _ := currentUserID(c)
	if err := h.invites.Delete(c.Request.Context(), id, actorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invite deleted"})
}

// ListInvitesByUnit handles listing a unit's invites
func (h *Handler) ListInvitesByUnit(c *gin.Context) {
	unitID, ok := paramID(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	invites, err := h.invites.ListByUnit(c.Request.Context(), unitID, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}

// GetInviteStats handles the invite usage summary for a unit
func (h *Handler) GetInviteStats(c *gin.Context) {
	unitID, ok := paramID(c, "id")
	if !ok {
		return
	}

	actorID, _ := currentUserID(c)
	stats, err := h.invites.StatsByUnit(c.Request.Context(), unitID, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// allowTokenProbe spends one attempt from the per-token-prefix budget, so a
// distributed enumeration of one token family is bounded globally, not just
// per caller IP.
func (h *Handler) allowTokenProbe(c *gin.Context, token string) bool {
	res, err := h.guard.Allow(c.Request.Context(),
		"invite:token:"+invite.TokenPrefix(token),
		h.cfg.RateLimit.TokenPoints, h.cfg.RateLimit.TokenWindow)
	if err != nil {
		h.logger.Warn("token-prefix rate limit check failed")
		return true
	}
	if !res.Allowed {
		retry := int(res.RetryAfter.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		h.respondError(c, errorx.ErrRateLimited)
		return false
	}
	return true
}
