package handlers

import (
	"net/http"
	"time"

	"tamv/internal/auction"
	"tamv/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type bidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) CreateAuction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req service.NewAuction
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.Auctions.Create(requestCtx(c), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"auction": a})
}

// GetAuction returns the auction with the time left to its close
func (h *Handler) GetAuction(c *gin.Context) {
	a, err := h.Auctions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	cd := auction.CountdownTo(a.EndTime, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"auction":     a,
		"minimum_bid": auction.MinimumBid(a),
		"countdown":   cd,
		"time_left":   cd.String(),
	})
}

func (h *Handler) ListBids(c *gin.Context) {
	bids, err := h.Auctions.ListBids(c.Request.Context(), c.Param("id"), queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) PlaceBid(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Auctions.PlaceBid(requestCtx(c), userID, c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auction": p.Auction, "bid": p.Bid, "extended": p.Extended})
}

// SettleAuction applies a due close. Anyone may trigger it.
func (h *Handler) SettleAuction(c *gin.Context) {
	a, err := h.Auctions.Advance(requestCtx(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auction": a})
}

func (h *Handler) CancelAuction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	a, err := h.Auctions.Cancel(requestCtx(c), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auction": a})
}
