package http

import (
	"time"

	"tamv/internal/config"
	"tamv/internal/http/handlers"
	"tamv/internal/http/middleware"
	"tamv/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Deps is everything the HTTP surface talks to.
type Deps struct {
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Hub     *ws.Hub
	Handler *handlers.Handler
	Version string
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	h := d.Handler
	var online func() int
	if d.Hub != nil {
		online = d.Hub.Online
	}
	healthHandler := handlers.NewHealthHandler(d.DB, d.Redis, online, d.Version)

	r.Use(middleware.RequestID(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// realtime notifications
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub))
	}

	window := time.Duration(cfg.RateWindow) * time.Second
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit("api", cfg.RateLimit, window, cfg.EconomyRateRPS*4, cfg.EconomyRateBurst*4))

	// economy writes are limited per user on top of the per-ip limit
	writeRL := middleware.RateLimit("economy", cfg.RateLimit/2+1, window, cfg.EconomyRateRPS, cfg.EconomyRateBurst)
	auth := []gin.HandlerFunc{middleware.JWT(), middleware.EnsureProfile(h.Profiles.Ensure)}

	registerPublicRoutes(v1, h)

	me := v1.Group("", auth...)
	{
		me.GET("/me", h.Me)
		me.GET("/me/notifications", h.Notifications)
		me.POST("/me/notifications/:id/read", h.MarkNotificationRead)
		me.GET("/me/audit", h.MyAuditLogs)
		me.GET("/me/achievements", h.MyAchievements)
		me.POST("/me/achievements/refresh", h.RefreshAchievements)
		me.POST("/me/achievements/:id/claim", writeRL, h.ClaimAchievement)
		me.GET("/me/reputation", h.MyReputation)

		me.GET("/wallet", h.GetWallet)
		me.GET("/wallet/transactions", h.GetTransactions)
		me.POST("/wallet/tip", writeRL, h.Tip)
		me.POST("/wallet/purchase", writeRL, h.Purchase)
		me.POST("/wallet/subscription", writeRL, h.Subscribe)
		me.POST("/wallet/refund/:id", writeRL, h.Refund)

		me.GET("/staking/positions", h.ListPositions)
		me.POST("/staking/stake", writeRL, h.Stake)
		me.POST("/staking/positions/:id/unstake", writeRL, h.Unstake)
		me.POST("/staking/positions/:id/compound", writeRL, h.Compound)

		me.POST("/auctions", writeRL, h.CreateAuction)
		me.POST("/auctions/:id/bids", writeRL, h.PlaceBid)
		me.POST("/auctions/:id/settle", writeRL, h.SettleAuction)
		me.POST("/auctions/:id/cancel", writeRL, h.CancelAuction)

		me.POST("/proposals", writeRL, h.CreateProposal)
		me.POST("/proposals/:id/votes", writeRL, h.Vote)
		me.POST("/proposals/:id/advance", writeRL, h.AdvanceProposal)
		me.POST("/proposals/:id/cancel", writeRL, h.CancelProposal)
		me.POST("/proposals/:id/execute", writeRL, h.ExecuteProposal)
		me.GET("/governance/power", h.VotingPower)

		me.POST("/assistant/chat", writeRL, h.Chat)
	}
}

func registerPublicRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	api.GET("/economy/totals", h.Totals)
	api.POST("/economy/distribution", h.PreviewDistribution)

	api.GET("/staking/pools", h.ListPools)
	api.POST("/staking/project", h.Project)

	api.GET("/auctions/:id", h.GetAuction)
	api.GET("/auctions/:id/bids", h.ListBids)

	api.GET("/proposals/:id", h.GetProposal)

	api.GET("/leaderboard", h.Leaderboard)
}
