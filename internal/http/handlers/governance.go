package handlers

import (
	"net/http"

	"tamv/internal/domain"
	"tamv/internal/service"

	"github.com/gin-gonic/gin"
)

type voteRequest struct {
	Choice domain.VoteChoice `json:"choice" binding:"required"`
}

func (h *Handler) CreateProposal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req service.NewProposal
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Governance.Create(requestCtx(c), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal": p})
}

func (h *Handler) GetProposal(c *gin.Context) {
	p, err := h.Governance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

// Vote records or replaces the caller's ballot
func (h *Handler) Vote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Governance.CastVote(requestCtx(c), userID, c.Param("id"), req.Choice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

func (h *Handler) AdvanceProposal(c *gin.Context) {
	p, err := h.Governance.Advance(requestCtx(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

func (h *Handler) CancelProposal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	p, err := h.Governance.Cancel(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

func (h *Handler) ExecuteProposal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	p, err := h.Governance.Execute(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": p})
}

// VotingPower returns the caller's current power
func (h *Handler) VotingPower(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	power, err := h.Governance.Power(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voting_power": power})
}
