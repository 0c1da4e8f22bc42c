package handlers

import (
	"net/http"

	"tamv/internal/economy"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type tipRequest struct {
	To          string          `json:"to" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type purchaseRequest struct {
	SellerID    string          `json:"seller_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ReferenceID *string         `json:"reference_id"`
}

type subscriptionRequest struct {
	CreatorID   string          `json:"creator_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type distributionRequest struct {
	Amount   decimal.Decimal  `json:"amount"`
	Schedule economy.Schedule `json:"schedule"`
}

// GetWallet returns the caller's balance split
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	bal, err := h.Wallet.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal})
}

// GetTransactions returns the caller's ledger history, newest first
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	txs, err := h.Wallet.GetTransactionHistory(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *Handler) Tip(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req tipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.Wallet.Tip(requestCtx(c), userID, req.To, req.Amount, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

func (h *Handler) Purchase(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.Wallet.Purchase(requestCtx(c), userID, req.SellerID, req.Amount, req.Description, req.ReferenceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

func (h *Handler) Subscribe(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.Wallet.Subscribe(requestCtx(c), userID, req.CreatorID, req.Amount, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// Refund returns a payment the caller received
func (h *Handler) Refund(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	var req refundRequest
	// тело необязательно
	_ = c.ShouldBindJSON(&req)
	tx, err := h.Wallet.Refund(requestCtx(c), userID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// Totals returns the cumulative distribution of every booked transaction
func (h *Handler) Totals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"totals": h.Wallet.Totals()})
}

// PreviewDistribution splits an amount without booking anything
func (h *Handler) PreviewDistribution(c *gin.Context) {
	var req distributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Schedule == "" {
		req.Schedule = economy.ScheduleLedger
	}
	if _, ok := h.Distributor.Ratios(req.Schedule); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown schedule " + string(req.Schedule)})
		return
	}
	d, err := h.Distributor.Distribute(req.Amount, req.Schedule)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount":       req.Amount,
		"schedule":     req.Schedule,
		"distribution": d,
	})
}
