package economy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Schedule names a revenue context with its own split. The two schedules
// are deliberately kept apart: tipping/purchases and staking rewards settle
// against different ratios.
type Schedule string

const (
	ScheduleLedger  Schedule = "ledger"
	ScheduleStaking Schedule = "staking"
)

// RemainderPolicy decides what happens to the sub-cent shortfall left by
// flooring each share independently.
type RemainderPolicy string

const (
	// RemainderDrop leaves the shortfall unassigned.
	RemainderDrop RemainderPolicy = "drop"
	// RemainderToKernel adds the shortfall to the kernel share.
	RemainderToKernel RemainderPolicy = "kernel"
)

// Ratios is a creator/resilience/kernel triple summing to 1.
type Ratios struct {
	Creator    decimal.Decimal `json:"creator" yaml:"creator" toml:"creator"`
	Resilience decimal.Decimal `json:"resilience" yaml:"resilience" toml:"resilience"`
	Kernel     decimal.Decimal `json:"kernel" yaml:"kernel" toml:"kernel"`
}

// Validate checks that every ratio is within [0,1] and that they sum to 1.
func (r Ratios) Validate() error {
	for _, v := range []decimal.Decimal{r.Creator, r.Resilience, r.Kernel} {
		if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("ratio %s out of range", v)
		}
	}
	if sum := r.Creator.Add(r.Resilience).Add(r.Kernel); !sum.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("ratios sum to %s, want 1", sum)
	}
	return nil
}

var (
	LedgerRatios = Ratios{
		Creator:    decimal.RequireFromString("0.70"),
		Resilience: decimal.RequireFromString("0.20"),
		Kernel:     decimal.RequireFromString("0.10"),
	}
	StakingRatios = Ratios{
		Creator:    decimal.RequireFromString("0.50"),
		Resilience: decimal.RequireFromString("0.20"),
		Kernel:     decimal.RequireFromString("0.30"),
	}
)

// Distribution is the result of splitting an amount. For the staking
// schedule CreatorShare is the staker's share.
type Distribution struct {
	CreatorShare    decimal.Decimal `json:"creator_share"`
	ResilienceShare decimal.Decimal `json:"resilience_share"`
	KernelShare     decimal.Decimal `json:"kernel_share"`
}

// Total sums the three shares.
func (d Distribution) Total() decimal.Decimal {
	return d.CreatorShare.Add(d.ResilienceShare).Add(d.KernelShare)
}

// Add returns the share-wise sum.
func (d Distribution) Add(o Distribution) Distribution {
	return Distribution{
		CreatorShare:    d.CreatorShare.Add(o.CreatorShare),
		ResilienceShare: d.ResilienceShare.Add(o.ResilienceShare),
		KernelShare:     d.KernelShare.Add(o.KernelShare),
	}
}

// Distributor splits amounts according to injected schedules.
type Distributor struct {
	schedules map[Schedule]Ratios
	remainder RemainderPolicy
}

// NewDistributor builds a distributor. Missing schedules fall back to the
// platform defaults; an empty policy means RemainderDrop.
func NewDistributor(schedules map[Schedule]Ratios, remainder RemainderPolicy) (*Distributor, error) {
	d := &Distributor{
		schedules: map[Schedule]Ratios{
			ScheduleLedger:  LedgerRatios,
			ScheduleStaking: StakingRatios,
		},
		remainder: remainder,
	}
	for name, r := range schedules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
		d.schedules[name] = r
	}
	switch remainder {
	case "":
		d.remainder = RemainderDrop
	case RemainderDrop, RemainderToKernel:
	default:
		return nil, fmt.Errorf("unknown remainder policy %q", remainder)
	}
	return d, nil
}

// DefaultDistributor uses the platform ratios and drops the remainder.
func DefaultDistributor() *Distributor {
	d, _ := NewDistributor(nil, RemainderDrop)
	return d
}

// Ratios returns the ratios configured for a schedule.
func (d *Distributor) Ratios(s Schedule) (Ratios, bool) {
	r, ok := d.schedules[s]
	return r, ok
}

// Policy returns the configured remainder policy.
func (d *Distributor) Policy() RemainderPolicy { return d.remainder }

// Distribute splits amount with the named schedule. Each share is floored to
// cents independently, so under RemainderDrop the shares may sum to less
// than amount by up to three cents.
func (d *Distributor) Distribute(amount decimal.Decimal, s Schedule) (Distribution, error) {
	if !amount.IsPositive() {
		return Distribution{}, Errorf(KindInvalidAmount, "amount must be positive, got %s", amount)
	}
	r, ok := d.schedules[s]
	if !ok {
		return Distribution{}, fmt.Errorf("unknown distribution schedule %q", s)
	}
	out := Distribution{
		CreatorShare:    FloorCents(amount.Mul(r.Creator)),
		ResilienceShare: FloorCents(amount.Mul(r.Resilience)),
		KernelShare:     FloorCents(amount.Mul(r.Kernel)),
	}
	if d.remainder == RemainderToKernel {
		out.KernelShare = out.KernelShare.Add(amount.Sub(out.Total()))
	}
	return out, nil
}

// Distribute splits amount with the default distributor.
func Distribute(amount decimal.Decimal, s Schedule) (Distribution, error) {
	return defaultDistributor.Distribute(amount, s)
}

var defaultDistributor = DefaultDistributor()
