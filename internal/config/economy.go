package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/gamification"
	"tamv/internal/staking"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EconomyFile is the on-disk shape of ECONOMY_CONFIG. Every field is
// optional; zero values keep the built-in defaults.
type EconomyFile struct {
	Schedules               map[string]economy.Ratios  `yaml:"schedules" toml:"schedules"`
	Remainder               string                     `yaml:"remainder" toml:"remainder"`
	EarlyExitPenalty        decimal.Decimal            `yaml:"early_exit_penalty" toml:"early_exit_penalty"`
	RoleMultipliers         map[string]decimal.Decimal `yaml:"role_multipliers" toml:"role_multipliers"`
	ReputationLevels        []LevelFile                `yaml:"reputation_levels" toml:"reputation_levels"`
	AuctionExtensionMinutes int                        `yaml:"auction_extension_minutes" toml:"auction_extension_minutes"`
}

type LevelFile struct {
	Name      string `yaml:"name" toml:"name"`
	Threshold int64  `yaml:"threshold" toml:"threshold"`
}

// Economy holds the resolved economic parameters shared by the engines.
type Economy struct {
	Distributor             *economy.Distributor
	EarlyExitPenalty        decimal.Decimal
	RoleMultipliers         map[domain.Role]decimal.Decimal
	Levels                  *gamification.LevelTable
	AuctionExtensionMinutes int
}

// LoadEconomy reads overrides from path (.yaml, .yml or .toml). An empty
// path yields the defaults.
func LoadEconomy(path string) (*Economy, error) {
	var f EconomyFile
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &f)
		case ".toml":
			err = toml.Unmarshal(raw, &f)
		default:
			return nil, fmt.Errorf("unsupported economy config format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return f.Resolve()
}

// Resolve validates the file and fills defaults.
func (f *EconomyFile) Resolve() (*Economy, error) {
	schedules := make(map[economy.Schedule]economy.Ratios, len(f.Schedules))
	for name, r := range f.Schedules {
		s := economy.Schedule(name)
		if s != economy.ScheduleLedger && s != economy.ScheduleStaking {
			return nil, fmt.Errorf("unknown schedule %q", name)
		}
		schedules[s] = r
	}
	dist, err := economy.NewDistributor(schedules, economy.RemainderPolicy(f.Remainder))
	if err != nil {
		return nil, err
	}

	penalty := f.EarlyExitPenalty
	if penalty.IsZero() {
		penalty = staking.DefaultEarlyExitPenalty
	}
	if penalty.IsNegative() || penalty.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("early_exit_penalty must be in [0,1), got %s", penalty)
	}

	mult := make(map[domain.Role]decimal.Decimal, len(f.RoleMultipliers))
	for role, v := range f.RoleMultipliers {
		if !v.IsPositive() {
			return nil, fmt.Errorf("role multiplier for %s must be positive", role)
		}
		mult[domain.Role(role)] = v
	}

	var levels []gamification.Level
	for _, l := range f.ReputationLevels {
		levels = append(levels, gamification.Level{Name: l.Name, Threshold: l.Threshold})
	}
	table, err := gamification.NewLevelTable(levels)
	if err != nil {
		return nil, fmt.Errorf("reputation_levels: %w", err)
	}

	if f.AuctionExtensionMinutes < 0 {
		return nil, fmt.Errorf("auction_extension_minutes must not be negative")
	}

	return &Economy{
		Distributor:             dist,
		EarlyExitPenalty:        penalty,
		RoleMultipliers:         mult,
		Levels:                  table,
		AuctionExtensionMinutes: f.AuctionExtensionMinutes,
	}, nil
}
