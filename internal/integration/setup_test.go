package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tamv/internal/auction"
	"tamv/internal/cache"
	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/governance"
	"tamv/internal/http/handlers"
	"tamv/internal/ledger"
	"tamv/internal/repository"
	"tamv/internal/service"
	"tamv/internal/staking"
	"tamv/internal/ws"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type env struct {
	db       *pgxpool.Pool
	hub      *ws.Hub
	profiles *repository.ProfileRepository
	handler  *handlers.Handler
	wallet   *service.WalletService
	staking  *service.StakingService
	auctions *service.AuctionService
	gov      *service.GovernanceService
}

func applyMigrations(t *testing.T, dbp *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err, "read migrations")
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		require.NoError(t, err)
		_, err = dbp.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", f.Name())
	}
}

func setup(t *testing.T) *env {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	service.InitJWT("test-secret")

	dbp, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "connect db")
	t.Cleanup(dbp.Close)
	applyMigrations(t, dbp)

	totals, err := service.LoadTotals(context.Background(), dbp)
	require.NoError(t, err)

	dist := economy.DefaultDistributor()
	gov, err := governance.NewEngine(nil)
	require.NoError(t, err)

	hub := ws.NewHub()
	builder := ledger.NewBuilder(dist)
	audit := service.NewAuditService(dbp)
	wallet := service.NewWalletService(dbp, builder, totals, audit, hub)
	st := service.NewStakingService(dbp, staking.NewEngine(dist, staking.DefaultEarlyExitPenalty), builder, totals, audit, hub)
	auctions := service.NewAuctionService(dbp, auction.NewEngine(0), wallet, audit, hub)
	govService := service.NewGovernanceService(dbp, gov, audit, hub)

	return &env{
		db:       dbp,
		hub:      hub,
		profiles: repository.NewProfileRepository(dbp),
		wallet:   wallet,
		staking:  st,
		auctions: auctions,
		gov:      govService,
		handler: &handlers.Handler{
			Distributor:  dist,
			Profiles:     service.NewProfileService(dbp),
			Wallet:       wallet,
			Staking:      st,
			Auctions:     auctions,
			Governance:   govService,
			Achievements: service.NewAchievementService(dbp, wallet, cache.NewLeaderboard(nil, 0), nil, audit, hub),
			AuditService: audit,
		},
	}
}

// newProfile creates a fresh profile holding balance.
func (e *env) newProfile(t *testing.T, balance string) *domain.Profile {
	t.Helper()
	p, err := e.profiles.Ensure(context.Background(), &domain.Profile{
		ID:          "it-" + uuid.NewString(),
		Username:    gofakeit.Username(),
		DisplayName: gofakeit.Name(),
		Balance:     decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return p
}

func (e *env) balance(t *testing.T, id string) domain.Balance {
	t.Helper()
	b, err := e.profiles.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}
