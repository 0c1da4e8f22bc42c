package economy

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDistributeTip(t *testing.T) {
	d, err := Distribute(decimal.NewFromInt(100), ScheduleLedger)
	require.NoError(t, err)
	require.True(t, d.CreatorShare.Equal(decimal.RequireFromString("70.00")))
	require.True(t, d.ResilienceShare.Equal(decimal.RequireFromString("20.00")))
	require.True(t, d.KernelShare.Equal(decimal.RequireFromString("10.00")))
	require.True(t, d.Total().Equal(decimal.NewFromInt(100)))
}

func TestDistributeStakingSchedule(t *testing.T) {
	d, err := Distribute(decimal.NewFromInt(10), ScheduleStaking)
	require.NoError(t, err)
	require.Equal(t, "5", d.CreatorShare.String())
	require.Equal(t, "2", d.ResilienceShare.String())
	require.Equal(t, "3", d.KernelShare.String())
}

func TestDistributeRejectsNonPositive(t *testing.T) {
	for _, amt := range []string{"0", "-1", "-0.01"} {
		_, err := Distribute(decimal.RequireFromString(amt), ScheduleLedger)
		require.True(t, errors.Is(err, ErrInvalidAmount), "amount %s", amt)
	}
}

func TestDistributeFloorsEachShare(t *testing.T) {
	d, err := Distribute(decimal.RequireFromString("0.01"), ScheduleLedger)
	require.NoError(t, err)
	require.True(t, d.CreatorShare.IsZero())
	require.True(t, d.ResilienceShare.IsZero())
	require.True(t, d.KernelShare.IsZero())

	d, err = Distribute(decimal.RequireFromString("33.33"), ScheduleLedger)
	require.NoError(t, err)
	require.Equal(t, "23.33", d.CreatorShare.StringFixed(2))
	require.Equal(t, "6.66", d.ResilienceShare.StringFixed(2))
	require.Equal(t, "3.33", d.KernelShare.StringFixed(2))
}

func TestDistributeShortfallBound(t *testing.T) {
	limit := decimal.RequireFromString("0.03")
	for cents := int64(1); cents <= 20000; cents += 7 {
		amount := decimal.New(cents, -Cents)
		d, err := Distribute(amount, ScheduleLedger)
		require.NoError(t, err)
		total := d.Total()
		require.True(t, total.LessThanOrEqual(amount), "amount %s total %s", amount, total)
		require.True(t, amount.Sub(total).LessThan(limit), "amount %s shortfall %s", amount, amount.Sub(total))
	}
}

func TestRemainderToKernel(t *testing.T) {
	dist, err := NewDistributor(nil, RemainderToKernel)
	require.NoError(t, err)

	amount := decimal.RequireFromString("0.07")
	d, err := dist.Distribute(amount, ScheduleLedger)
	require.NoError(t, err)
	require.True(t, d.Total().Equal(amount))
	require.Equal(t, "0.04", d.CreatorShare.StringFixed(2))
	require.Equal(t, "0.01", d.ResilienceShare.StringFixed(2))
	require.Equal(t, "0.02", d.KernelShare.StringFixed(2))
}

func TestNewDistributorValidatesOverrides(t *testing.T) {
	_, err := NewDistributor(map[Schedule]Ratios{
		ScheduleLedger: {
			Creator:    decimal.RequireFromString("0.8"),
			Resilience: decimal.RequireFromString("0.2"),
			Kernel:     decimal.RequireFromString("0.1"),
		},
	}, RemainderDrop)
	require.Error(t, err)

	_, err = NewDistributor(nil, "spread")
	require.Error(t, err)

	custom := Ratios{
		Creator:    decimal.RequireFromString("0.6"),
		Resilience: decimal.RequireFromString("0.3"),
		Kernel:     decimal.RequireFromString("0.1"),
	}
	dist, err := NewDistributor(map[Schedule]Ratios{ScheduleLedger: custom}, "")
	require.NoError(t, err)
	require.Equal(t, RemainderDrop, dist.Policy())
	got, ok := dist.Ratios(ScheduleLedger)
	require.True(t, ok)
	require.True(t, got.Creator.Equal(custom.Creator))
	staking, _ := dist.Ratios(ScheduleStaking)
	require.True(t, staking.Kernel.Equal(StakingRatios.Kernel))
}

func TestErrorKindMatching(t *testing.T) {
	err := Errorf(KindBidTooLow, "minimum is %d", 550)
	require.True(t, errors.Is(err, ErrBidTooLow))
	require.False(t, errors.Is(err, ErrBelowMinimum))
	require.Equal(t, KindBidTooLow, KindOf(err))
	require.Equal(t, "bid_too_low: minimum is 550", err.Error())

	wrapped := Transport("db.query", errors.New("connection reset"))
	require.True(t, IsRetryable(wrapped))
	require.True(t, IsRetryable(ErrConflict))
	require.False(t, IsRetryable(ErrBidTooLow))
	require.Nil(t, Transport("noop", nil))
}
