package config

import (
	"os"
	"path/filepath"
	"testing"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/shopspring/decimal"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadEconomyDefaults(t *testing.T) {
	econ, err := LoadEconomy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := econ.Distributor.Ratios(economy.ScheduleLedger)
	if !r.Creator.Equal(decimal.RequireFromString("0.7")) {
		t.Fatalf("expected default ledger ratios, got %+v", r)
	}
	if !econ.EarlyExitPenalty.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected default penalty, got %s", econ.EarlyExitPenalty)
	}
	if econ.Levels.Len() != 6 {
		t.Fatalf("expected 6 default levels, got %d", econ.Levels.Len())
	}
}

func TestLoadEconomyYAML(t *testing.T) {
	p := writeFile(t, "economy.yaml", `
schedules:
  ledger:
    creator: 0.60
    resilience: 0.25
    kernel: 0.15
remainder: kernel
early_exit_penalty: 0.25
role_multipliers:
  guardian: 4
auction_extension_minutes: 10
`)
	econ, err := LoadEconomy(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err := econ.Distributor.Distribute(decimal.NewFromInt(100), economy.ScheduleLedger)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if !d.CreatorShare.Equal(decimal.NewFromInt(60)) || !d.KernelShare.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("override not applied: %+v", d)
	}
	if econ.Distributor.Policy() != economy.RemainderToKernel {
		t.Fatalf("expected kernel remainder policy")
	}
	if !econ.RoleMultipliers[domain.RoleGuardian].Equal(decimal.NewFromInt(4)) {
		t.Fatalf("guardian multiplier not applied")
	}
	if econ.AuctionExtensionMinutes != 10 {
		t.Fatalf("got extension %d", econ.AuctionExtensionMinutes)
	}
}

func TestLoadEconomyTOML(t *testing.T) {
	p := writeFile(t, "economy.toml", `
early_exit_penalty = "0.05"

[schedules.staking]
creator = "0.40"
resilience = "0.30"
kernel = "0.30"

[[reputation_levels]]
name = "rookie"
threshold = 0

[[reputation_levels]]
name = "veteran"
threshold = 1000
`)
	econ, err := LoadEconomy(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := econ.Distributor.Ratios(economy.ScheduleStaking)
	if !r.Creator.Equal(decimal.RequireFromString("0.4")) {
		t.Fatalf("staking override not applied: %+v", r)
	}
	if !econ.EarlyExitPenalty.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("got penalty %s", econ.EarlyExitPenalty)
	}
	if econ.Levels.Len() != 2 || econ.Levels.Levels()[1].Name != "veteran" {
		t.Fatalf("levels not applied: %+v", econ.Levels.Levels())
	}
}

func TestLoadEconomyRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad.yaml":  "schedules:\n  ledger:\n    creator: 0.9\n    resilience: 0.2\n    kernel: 0.1\n",
		"sched.yml": "schedules:\n  lottery:\n    creator: 1\n",
		"pen.yaml":  "early_exit_penalty: 1.5\n",
		"mult.yaml": "role_multipliers:\n  citizen: -1\n",
		"lvl.yaml":  "reputation_levels:\n  - name: a\n    threshold: 5\n",
		"conf.json": "{}",
	}
	for name, body := range cases {
		if _, err := LoadEconomy(writeFile(t, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadEconomy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
