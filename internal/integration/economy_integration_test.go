package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/repository"
	"tamv/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTipAndRefund(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a := e.newProfile(t, "100")
	b := e.newProfile(t, "0")

	tx, err := e.wallet.Tip(ctx, a.ID, b.ID, decimal.NewFromInt(10), "thanks")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	assert.True(t, tx.Distribution.Total().Equal(decimal.NewFromInt(10)))

	assert.True(t, e.balance(t, a.ID).Available.Equal(decimal.NewFromInt(90)))
	assert.True(t, e.balance(t, b.ID).Available.Equal(tx.Distribution.CreatorShare))

	_, err = e.wallet.Tip(ctx, a.ID, b.ID, decimal.NewFromInt(1000), "too much")
	assert.ErrorIs(t, err, economy.ErrInsufficientBalance)
	_, err = e.wallet.Tip(ctx, a.ID, a.ID, decimal.NewFromInt(1), "self")
	assert.ErrorIs(t, err, economy.ErrSelfTransferNotAllowed)

	// only the recipient may refund
	_, err = e.wallet.Refund(ctx, a.ID, tx.ID, "nope")
	assert.ErrorIs(t, err, economy.ErrNotFound)

	refund, err := e.wallet.Refund(ctx, b.ID, tx.ID, "sorry")
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeRefund, refund.Type)
	assert.True(t, e.balance(t, b.ID).Available.IsZero())
	assert.True(t, e.balance(t, a.ID).Available.Equal(decimal.NewFromInt(90).Add(tx.Distribution.CreatorShare)))

	_, err = e.wallet.Refund(ctx, b.ID, tx.ID, "again")
	assert.Error(t, err)

	history, err := e.wallet.GetTransactionHistory(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestConcurrentTipsNeverOverdraw(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	sender := e.newProfile(t, "50")
	recipient := e.newProfile(t, "0")

	const tips = 10
	amount := decimal.NewFromInt(10)
	errs := make([]error, tips)
	var wg sync.WaitGroup
	for i := 0; i < tips; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.wallet.Tip(ctx, sender.ID, recipient.ID, amount, "rush")
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		kind := economy.KindOf(err)
		assert.Contains(t, []economy.Kind{economy.KindInsufficientBalance, economy.KindConflict}, kind, "unexpected error %v", err)
	}
	require.GreaterOrEqual(t, committed, 1)
	require.LessOrEqual(t, committed, 5)

	spent := amount.Mul(decimal.NewFromInt(int64(committed)))
	assert.True(t, e.balance(t, sender.ID).Available.Equal(decimal.NewFromInt(50).Sub(spent)))

	history, err := e.wallet.GetTransactionHistory(ctx, sender.ID, 50)
	require.NoError(t, err)
	assert.Len(t, history, committed)

	credited := decimal.Zero
	for _, tx := range history {
		credited = credited.Add(tx.Distribution.CreatorShare)
	}
	assert.True(t, e.balance(t, recipient.ID).Available.Equal(credited))
}

func TestStakeAndUnstake(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	u := e.newProfile(t, "100")

	pool := &domain.StakingPool{
		ID:                     "it-pool-" + uuid.NewString(),
		Name:                   "integration",
		APRBase:                decimal.NewFromInt(10),
		MinStake:               decimal.NewFromInt(10),
		AutoCompoundEnabled:    true,
		CompoundFrequencyHours: 24,
		IsActive:               true,
	}
	require.NoError(t, repository.NewStakingRepository(e.db).CreatePool(ctx, pool))

	_, err := e.staking.Stake(ctx, u.ID, pool.ID, decimal.NewFromInt(5), false)
	assert.ErrorIs(t, err, economy.ErrBelowMinimum)

	pos, err := e.staking.Stake(ctx, u.ID, pool.ID, decimal.NewFromInt(50), true)
	require.NoError(t, err)
	bal := e.balance(t, u.ID)
	assert.True(t, bal.Available.Equal(decimal.NewFromInt(50)))
	assert.True(t, bal.Staked.Equal(decimal.NewFromInt(50)))

	_, err = e.staking.Unstake(ctx, "someone-else", pos.ID, false)
	assert.ErrorIs(t, err, economy.ErrNotFound)

	res, err := e.staking.Unstake(ctx, u.ID, pos.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosed, res.Position.Status)
	assert.False(t, res.Early)

	bal = e.balance(t, u.ID)
	assert.True(t, bal.Staked.IsZero())
	assert.True(t, bal.Available.GreaterThanOrEqual(decimal.NewFromInt(100)))

	_, err = e.staking.Unstake(ctx, u.ID, pos.ID, false)
	assert.ErrorIs(t, err, economy.ErrPositionClosed)
}

func TestConcurrentStakesIntoOnePool(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pools := repository.NewStakingRepository(e.db)
	pool := &domain.StakingPool{
		ID:       "it-pool-" + uuid.NewString(),
		Name:     "busy",
		APRBase:  decimal.NewFromInt(10),
		MinStake: decimal.NewFromInt(10),
		IsActive: true,
	}
	require.NoError(t, pools.CreatePool(ctx, pool))

	const stakers = 8
	errs := make([]error, stakers)
	var wg sync.WaitGroup
	for i := 0; i < stakers; i++ {
		u := e.newProfile(t, "100")
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = e.staking.Stake(ctx, userID, pool.ID, decimal.NewFromInt(25), false)
		}(i, u.ID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := pools.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalStaked.Equal(decimal.NewFromInt(25*stakers)), "total %s", got.TotalStaked)
}

func TestCompoundDuePagesPastDust(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pools := repository.NewStakingRepository(e.db)
	pool := &domain.StakingPool{
		ID:                     "it-pool-" + uuid.NewString(),
		Name:                   "hourly",
		APRBase:                decimal.NewFromInt(10),
		MinStake:               decimal.NewFromInt(10),
		AutoCompoundEnabled:    true,
		CompoundFrequencyHours: 1,
		IsActive:               true,
	}
	require.NoError(t, pools.CreatePool(ctx, pool))

	backdate := func(id string, ago time.Duration) {
		at := time.Now().UTC().Add(-ago).Truncate(time.Microsecond)
		_, err := e.db.Exec(ctx, `UPDATE staking_positions SET staked_at = $2, last_compound_at = $2 WHERE id = $1`, id, at)
		require.NoError(t, err)
	}

	var dust []string
	for i := 0; i < 3; i++ {
		u := e.newProfile(t, "10")
		pos, err := e.staking.Stake(ctx, u.ID, pool.ID, decimal.NewFromInt(10), true)
		require.NoError(t, err)
		backdate(pos.ID, 3*time.Hour)
		dust = append(dust, pos.ID)
	}
	whale := e.newProfile(t, "100000")
	big, err := e.staking.Stake(ctx, whale.ID, pool.ID, decimal.NewFromInt(100000), true)
	require.NoError(t, err)
	backdate(big.ID, 2*time.Hour)

	e.staking.SetDuePageSize(2)
	require.NoError(t, e.staking.CompoundDue(ctx))

	got, err := pools.GetPosition(ctx, big.ID)
	require.NoError(t, err)
	assert.True(t, got.CompoundedAmount.IsPositive(), "position behind dust was not compounded")

	for _, id := range dust {
		p, err := pools.GetPosition(ctx, id)
		require.NoError(t, err)
		assert.True(t, p.CompoundedAmount.IsZero())
	}
}

func TestAuctionEscrow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	seller := e.newProfile(t, "0")
	a := e.newProfile(t, "100")
	b := e.newProfile(t, "100")

	au, err := e.auctions.Create(ctx, seller.ID, service.NewAuction{
		ArtworkID:        "art-" + uuid.NewString(),
		StartPrice:       decimal.NewFromInt(10),
		MinimumIncrement: decimal.NewFromInt(1),
		StartTime:        time.Now().Add(-time.Minute),
		EndTime:          time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionLive, au.Status)

	_, err = e.auctions.PlaceBid(ctx, seller.ID, au.ID, decimal.NewFromInt(20))
	assert.ErrorIs(t, err, economy.ErrSelfBidNotAllowed)
	_, err = e.auctions.PlaceBid(ctx, a.ID, au.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, economy.ErrBidTooLow)

	_, err = e.auctions.PlaceBid(ctx, a.ID, au.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, e.balance(t, a.ID).Pending.Equal(decimal.NewFromInt(10)))

	placed, err := e.auctions.PlaceBid(ctx, b.ID, au.ID, decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NotNil(t, placed.Outbid)
	assert.Equal(t, a.ID, placed.Outbid.BidderID)

	balA := e.balance(t, a.ID)
	assert.True(t, balA.Pending.IsZero())
	assert.True(t, balA.Available.Equal(decimal.NewFromInt(100)))
	balB := e.balance(t, b.ID)
	assert.True(t, balB.Pending.Equal(decimal.NewFromInt(20)))
	assert.True(t, balB.Available.Equal(decimal.NewFromInt(80)))

	bids, err := e.auctions.ListBids(ctx, au.ID, 10)
	require.NoError(t, err)
	assert.Len(t, bids, 2)
}

func TestProposalVote(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	proposer := e.newProfile(t, "0")

	p, err := e.gov.Create(ctx, proposer.ID, service.NewProposal{
		Title:       "Raise the kernel share",
		Summary:     "integration",
		Type:        domain.ProposalTypeParameter,
		VotingHours: 24,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalDiscussion, p.Status)

	// discussion is still running
	_, err = e.gov.CastVote(ctx, proposer.ID, p.ID, domain.VoteYes)
	assert.ErrorIs(t, err, economy.ErrVotingClosed)

	_, err = e.gov.Cancel(ctx, "someone-else", p.ID)
	assert.ErrorIs(t, err, economy.ErrNotFound)
	cancelled, err := e.gov.Cancel(ctx, proposer.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalCancelled, cancelled.Status)

	zero := decimal.Zero
	lenient, err := e.gov.Create(ctx, proposer.ID, service.NewProposal{
		Title:            "Anything goes",
		Type:             domain.ProposalTypeCommunity,
		PassingThreshold: &zero,
		VotingHours:      1,
	})
	require.NoError(t, err)
	stored, err := e.gov.Get(ctx, lenient.ID)
	require.NoError(t, err)
	assert.True(t, stored.PassingThreshold.IsZero())
	assert.True(t, stored.QuorumRequired.Equal(service.DefaultQuorum))
}
