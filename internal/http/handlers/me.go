package handlers

import (
	"net/http"

	"tamv/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	p, bal, err := h.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              p.ID,
		"username":        p.Username,
		"display_name":    p.DisplayName,
		"role":            p.Role,
		"reputation":      p.Reputation,
		"delegated_power": p.DelegatedPower,
		"balance":         bal,
		"created_at":      p.CreatedAt,
	})
}

func (h *Handler) Notifications(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	list, err := h.Profiles.Notifications(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.Profiles.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MyAuditLogs returns the caller's recent audited actions
func (h *Handler) MyAuditLogs(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	limit := queryLimit(c, 50, 200)
	var (
		logs []*domain.AuditLog
		err  error
	)
	if category := c.Query("category"); category != "" {
		logs, err = h.AuditService.GetLogsByCategory(c.Request.Context(), userID, category, limit)
	} else {
		logs, err = h.AuditService.GetUserAuditLogs(c.Request.Context(), userID, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
