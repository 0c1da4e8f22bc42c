package handlers

import (
	"context"
	"strconv"

	"tamv/internal/assistant"
	"tamv/internal/economy"
	"tamv/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Distributor  *economy.Distributor
	Profiles     *service.ProfileService
	Wallet       *service.WalletService
	Staking      *service.StakingService
	Auctions     *service.AuctionService
	Governance   *service.GovernanceService
	Achievements *service.AchievementService
	Assistant    *assistant.Client
	AuditService *service.AuditService
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (string, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := uidVal.(string)
	return id, ok && id != ""
}

// requestCtx carries the caller's ip and user agent for audit rows.
func requestCtx(c *gin.Context) context.Context {
	return service.WithRequestInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
}

func queryLimit(c *gin.Context, def, maxLimit int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
