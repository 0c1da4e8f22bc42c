package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tamv/internal/assistant"
	"tamv/internal/auction"
	"tamv/internal/cache"
	"tamv/internal/config"
	"tamv/internal/db"
	"tamv/internal/governance"
	httpServer "tamv/internal/http"
	"tamv/internal/http/handlers"
	"tamv/internal/http/middleware"
	"tamv/internal/ledger"
	"tamv/internal/logger"
	"tamv/internal/poller"
	"tamv/internal/service"
	"tamv/internal/staking"
	"tamv/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	sink := logger.Setup(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, File: cfg.LogFile})
	defer sink.Close()

	service.InitJWT(cfg.JWTSecret)

	econ := cfg.Economy
	govEngine, err := governance.NewEngine(econ.RoleMultipliers)
	if err != nil {
		logger.Fatal("invalid role multipliers", "error", err)
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	totals, err := service.LoadTotals(ctx, dbPool)
	if err != nil {
		logger.Fatal("failed to load ledger totals", "error", err)
	}

	rdb := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	hub := ws.NewHub()

	builder := ledger.NewBuilder(econ.Distributor)
	auditService := service.NewAuditService(dbPool)
	wallet := service.NewWalletService(dbPool, builder, totals, auditService, hub)
	stakingService := service.NewStakingService(dbPool, staking.NewEngine(econ.Distributor, econ.EarlyExitPenalty), builder, totals, auditService, hub)
	auctions := service.NewAuctionService(dbPool, auction.NewEngine(econ.AuctionExtensionMinutes), wallet, auditService, hub)
	gov := service.NewGovernanceService(dbPool, govEngine, auditService, hub)
	achievements := service.NewAchievementService(dbPool, wallet, cache.NewLeaderboard(rdb, 0), econ.Levels, auditService, hub)

	h := &handlers.Handler{
		Distributor:  econ.Distributor,
		Profiles:     service.NewProfileService(dbPool),
		Wallet:       wallet,
		Staking:      stakingService,
		Auctions:     auctions,
		Governance:   gov,
		Achievements: achievements,
		Assistant: assistant.NewClient(assistant.Config{
			URL:          cfg.AssistantURL,
			APIKey:       cfg.AssistantAPIKey,
			Model:        cfg.AssistantModel,
			SystemPrompt: cfg.AssistantPrompt,
		}),
		AuditService: auditService,
	}

	pollers := []*poller.Poller{
		poller.NewPoller("compound", cfg.CompoundInterval, stakingService.CompoundDue),
		poller.NewPoller("advance", cfg.AdvanceInterval, func(ctx context.Context) error {
			return errors.Join(auctions.AdvanceDue(ctx), gov.AdvanceDue(ctx))
		}),
	}
	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poller.Poller) {
			defer wg.Done()
			p.Start(ctx)
		}(p)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		DB:      dbPool,
		Redis:   rdb,
		Hub:     hub,
		Handler: h,
		Version: version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	for _, p := range pollers {
		p.Stop()
	}
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("server exited")
}
