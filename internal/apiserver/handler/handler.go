package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/condoflow/condoflow/internal/access"
	"github.com/condoflow/condoflow/internal/apiserver/database"
	"github.com/condoflow/condoflow/internal/auth/jwt"
	"github.com/condoflow/condoflow/internal/common/cnst"
	"github.com/condoflow/condoflow/internal/common/config"
	"github.com/condoflow/condoflow/internal/common/errorx"
	"github.com/condoflow/condoflow/internal/guard"
	"github.com/condoflow/condoflow/internal/invite"
	"github.com/condoflow/condoflow/internal/resident"
	"github.com/condoflow/condoflow/pkg/metrics"
)

// Handler groups the HTTP endpoints and their collaborators.
type Handler struct {
	db         database.Database
	jwtService *jwt.Service
	evaluator  *access.Evaluator
	residents  *resident.Manager
	invites    *invite.Manager
	guard      guard.Guard
	metrics    *metrics.Metrics
	cfg        *config.APIServerConfig
	logger     *zap.Logger
}

// New creates the handler set
func New(
	db database.Database,
	jwtService *jwt.Service,
	evaluator *access.Evaluator,
	residents *resident.Manager,
	invites *invite.Manager,
	g guard.Guard,
	m *metrics.Metrics,
	cfg *config.APIServerConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:         db,
		jwtService: jwtService,
		evaluator:  evaluator,
		residents:  residents,
		invites:    invites,
		guard:      g,
		metrics:    m,
		cfg:        cfg,
		logger:     logger.Named("handler"),
	}
}

// currentUserID returns the authenticated user id set by the JWT middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(cnst.CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// respondError renders a domain error with its mapped status. Internal
// errors are logged with their cause but rendered without it.
func (h *Handler) respondError(c *gin.Context, err error) {
	var apiErr *errorx.APIError
	if !errors.As(err, &apiErr) {
		h.logger.Error("unexpected error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if apiErr.Category == errorx.CategoryInternal {
		h.logger.Error("internal error", zap.String("error", apiErr.Error()), zap.String("path", c.FullPath()))
		c.JSON(apiErr.HTTPStatus, gin.H{"error": "internal error"})
		return
	}
	c.JSON(apiErr.HTTPStatus, gin.H{"error": apiErr.Message})
}

// requireAccess runs the evaluator and renders Forbidden/NotFound uniformly.
// It returns true when the request may proceed.
func (h *Handler) requireAccess(c *gin.Context, userID uint, scope access.Scope, roles ...cnst.Role) bool {
	ok, err := h.evaluator.CanAccess(c.Request.Context(), userID, scope, roles...)
	if err != nil {
		h.respondError(c, err)
		return false
	}
	if !ok {
		h.metrics.RecordAuthzDecision("deny")
		h.respondError(c, errorx.ErrForbidden)
		return false
	}
	h.metrics.RecordAuthzDecision("grant")
	return true
}
