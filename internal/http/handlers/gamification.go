package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MyAchievements lists achievements with the caller's progress
func (h *Handler) MyAchievements(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	list, err := h.Achievements.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": list})
}

// RefreshAchievements re-evaluates progress from the caller's activity
func (h *Handler) RefreshAchievements(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	list, err := h.Achievements.Refresh(requestCtx(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": list})
}

func (h *Handler) ClaimAchievement(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	p, err := h.Achievements.Claim(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": p})
}

func (h *Handler) Leaderboard(c *gin.Context) {
	entries, err := h.Achievements.Leaderboard(c.Request.Context(), queryLimit(c, 50, 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *Handler) MyReputation(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	rep, err := h.Achievements.Reputation(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
