package handler

import (
	"net/http"
	"strconv"
	"time"

	"media-relay/internal/admin"
	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the moderation store: roles, suspensions, warnings
// and the audit trail. Every mutation is attributed to the authenticated
// operator.
type AdminHandler struct {
	store *admin.Store
}

func NewAdminHandler(store *admin.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// SetRole assigns a role to a chat user.
func (h *AdminHandler) SetRole(c *gin.Context) {
	actor, ok := operator(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID := c.Param("id")
	if err := h.store.SetRole(actor, userID, admin.Role(req.Role)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RoleResponse{
		UserID: userID,
		Role:   req.Role,
	}))
}

// GetRole reads a chat user's role.
func (h *AdminHandler) GetRole(c *gin.Context) {
	userID := c.Param("id")
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RoleResponse{
		UserID: userID,
		Role:   string(h.store.RoleOf(userID)),
	}))
}

// Suspend bars a chat user from uploading.
func (h *AdminHandler) Suspend(c *gin.Context) {
	actor, ok := operator(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	sus, err := h.store.Suspend(actor, c.Param("id"), req.Reason, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(sus))
}

// Unsuspend lifts an active suspension.
func (h *AdminHandler) Unsuspend(c *gin.Context) {
	actor, ok := operator(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.store.Unsuspend(actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Suspensions lists all suspensions still in force.
func (h *AdminHandler) Suspensions(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.store.Suspensions()))
}

// Warn records a warning; the store escalates to a suspension at the
// threshold.
func (h *AdminHandler) Warn(c *gin.Context) {
	actor, ok := operator(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.WarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID := c.Param("id")
	count, escalated, err := h.store.Warn(actor, userID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.WarnResponse{
		UserID:    userID,
		Count:     count,
		Escalated: escalated,
	}))
}

// Warnings lists the outstanding warnings for a chat user.
func (h *AdminHandler) Warnings(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.store.WarningsOf(c.Param("id"))))
}

// Audit returns the newest audit entries, most recent first.
func (h *AdminHandler) Audit(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.store.AuditLog(limit)))
}
