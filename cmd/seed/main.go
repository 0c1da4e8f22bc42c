package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"tamv/internal/db"
	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/repository"
	"tamv/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	// expects DATABASE_URL and JWT_SECRET env vars
	users := flag.Int("users", 3, "profiles to create")
	balance := flag.String("balance", "1000", "starting balance of every profile")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	service.InitJWT(os.Getenv("JWT_SECRET"))

	start, err := decimal.NewFromString(*balance)
	if err != nil {
		log.Fatalf("invalid balance %q: %v", *balance, err)
	}

	pool := db.Connect(dsn)
	defer pool.Close()
	ctx := context.Background()

	profiles := repository.NewProfileRepository(pool)
	for i := 0; i < *users; i++ {
		p, err := profiles.Ensure(ctx, &domain.Profile{
			ID:          uuid.NewString(),
			Username:    gofakeit.Username(),
			DisplayName: gofakeit.Name(),
			Balance:     start,
		})
		if err != nil {
			log.Fatalf("create profile failed: %v", err)
		}
		token, err := service.GenerateJWT(p.ID, 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to generate token: %v", err)
		}
		log.Printf("profile id=%s username=%s balance=%s\n", p.ID, p.Username, p.Balance)
		log.Printf("token=%s\n", token)
	}

	seedPools(ctx, repository.NewStakingRepository(pool))
	seedAchievements(ctx, repository.NewAchievementRepository(pool))
}

func seedPools(ctx context.Context, repo *repository.StakingRepository) {
	pools := []*domain.StakingPool{
		{
			ID:                     "flex",
			Name:                   "Flexible",
			APRBase:                decimal.NewFromInt(5),
			APRMax:                 decimal.NewFromInt(8),
			MinStake:               decimal.NewFromInt(10),
			AutoCompoundEnabled:    true,
			CompoundFrequencyHours: 24,
			IsActive:               true,
		},
		{
			ID:                     "locked-90",
			Name:                   "Locked 90 days",
			APRBase:                decimal.NewFromInt(12),
			APRMax:                 decimal.NewFromInt(18),
			APY:                    decimal.NewFromInt(15),
			MinStake:               decimal.NewFromInt(100),
			LockDays:               90,
			AutoCompoundEnabled:    true,
			CompoundFrequencyHours: 24,
			IsActive:               true,
			IsFeatured:             true,
		},
	}
	for _, p := range pools {
		if _, err := repo.GetPool(ctx, p.ID); err == nil {
			log.Printf("pool already exists id=%s\n", p.ID)
			continue
		} else if !errors.Is(err, economy.ErrNotFound) {
			log.Fatalf("get pool %s: %v", p.ID, err)
		}
		if err := repo.CreatePool(ctx, p); err != nil {
			log.Fatalf("create pool %s: %v", p.ID, err)
		}
		log.Printf("pool created id=%s apy=%s\n", p.ID, p.CurrentAPY())
	}
}

func seedAchievements(ctx context.Context, repo *repository.AchievementRepository) {
	achievements := []*domain.Achievement{
		{
			ID:               "first-tip",
			Title:            "First tip",
			Description:      "Send your first tip",
			Requirement:      domain.Requirement{Type: domain.RequirementCount, Target: decimal.NewFromInt(1), Metric: "tips_sent"},
			RewardMSR:        decimal.NewFromInt(5),
			ReputationPoints: 10,
			IsActive:         true,
		},
		{
			ID:               "patron",
			Title:            "Patron",
			Description:      "Tip 500 MSR in total",
			Requirement:      domain.Requirement{Type: domain.RequirementAmount, Target: decimal.NewFromInt(500), Metric: "tips_amount"},
			RewardMSR:        decimal.NewFromInt(25),
			ReputationPoints: 100,
			IsActive:         true,
		},
		{
			ID:               "citizen-voter",
			Title:            "Citizen voter",
			Description:      "Vote on three proposals",
			Requirement:      domain.Requirement{Type: domain.RequirementCount, Target: decimal.NewFromInt(3), Metric: "votes_cast"},
			ReputationPoints: 50,
			IsActive:         true,
		},
		{
			ID:               "staker",
			Title:            "Staker",
			Description:      "Keep 1000 MSR staked",
			Requirement:      domain.Requirement{Type: domain.RequirementThreshold, Target: decimal.NewFromInt(1000), Metric: "total_staked"},
			RewardMSR:        decimal.NewFromInt(10),
			ReputationPoints: 75,
			IsActive:         true,
		},
	}
	for _, a := range achievements {
		if err := repo.Create(ctx, a); err != nil {
			log.Fatalf("create achievement %s: %v", a.ID, err)
		}
	}
	log.Printf("achievements seeded count=%d\n", len(achievements))
}
