package handlers

import (
	"net/http"

	"tamv/internal/gamification"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type stakeRequest struct {
	PoolID       string          `json:"pool_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	AutoCompound bool            `json:"auto_compound"`
}

type unstakeRequest struct {
	ForceEarly bool `json:"force_early"`
}

type projectRequest struct {
	Amount                 decimal.Decimal `json:"amount"`
	APY                    decimal.Decimal `json:"apy"`
	Days                   int             `json:"days"`
	AutoCompound           bool            `json:"auto_compound"`
	CompoundFrequencyHours int             `json:"compound_frequency_hours"`
}

func (h *Handler) ListPools(c *gin.Context) {
	pools, err := h.Staking.ListPools(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

// ListPositions returns the caller's positions with live pending rewards
func (h *Handler) ListPositions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	positions, err := h.Staking.ListPositions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (h *Handler) Stake(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pos, err := h.Staking.Stake(requestCtx(c), userID, req.PoolID, req.Amount, req.AutoCompound)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": pos})
}

func (h *Handler) Unstake(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req unstakeRequest
	_ = c.ShouldBindJSON(&req)
	res, err := h.Staking.Unstake(requestCtx(c), userID, c.Param("id"), req.ForceEarly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// Compound reinvests the pending reward of one position now
func (h *Handler) Compound(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	pos, settled, err := h.Staking.Compound(requestCtx(c), userID, c.Param("id"), "manual")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": pos, "settlement": settled})
}

// Project estimates a stake's return. Display only.
func (h *Handler) Project(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Staking.Project(req.Amount, req.APY, req.Days, req.AutoCompound, req.CompoundFrequencyHours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projection":   p,
		"daily_reward": gamification.DisplayDailyReward(req.Amount, req.APY, req.AutoCompound),
	})
}
